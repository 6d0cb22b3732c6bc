package atlassian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dt-pm-tools/atlsync/internal/config"
	"github.com/dt-pm-tools/atlsync/internal/model"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.Config{
		URL:   srv.URL,
		Email: "dev@example.com",
		Token: "secret",
		Jira: config.JiraConfig{
			StoryPointsField: "customfield_10016",
			FlaggedField:     "customfield_10021",
		},
	}
	return NewClient(cfg), srv
}

const storyJSON = `{
  "key": "DIN-59",
  "fields": {
    "summary": "Login <form>",
    "status": {"name": "To Do", "statusCategory": {"key": "new", "name": "To Do"}},
    "issuetype": {"name": "Story"},
    "priority": {"name": "High"},
    "assignee": {"displayName": "Dana Kim", "emailAddress": "dana@example.com"},
    "parent": {"key": "DIN-58"},
    "duedate": "2026-01-15",
    "timetracking": {"originalEstimate": "2d"},
    "customfield_10016": 5,
    "customfield_10021": [{"value": "Impediment"}],
    "description": {"type": "doc", "content": [{"type": "paragraph", "content": [{"type": "text", "text": "a & b"}]}]},
    "issuelinks": [
      {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
       "inwardIssue": {"key": "DIN-70", "fields": {"status": {"name": "In Progress", "statusCategory": {"key": "indeterminate"}}}}},
      {"type": {"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
       "inwardIssue": {"key": "DIN-71", "fields": {"status": {"name": "Done", "statusCategory": {"key": "done"}}}}},
      {"type": {"name": "Relates"},
       "inwardIssue": {"key": "DIN-72", "fields": {"status": {"name": "To Do"}}}}
    ]
  }
}`

func TestGetIssue_MapsFields(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/DIN-59" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
			t.Errorf("missing basic auth header")
		}
		if fields := r.URL.Query().Get("fields"); !strings.Contains(fields, "customfield_10016") {
			t.Errorf("fields param missing story points field: %s", fields)
		}
		io.WriteString(w, storyJSON)
	}))

	got, err := client.GetIssue(context.Background(), "DIN-59")
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}

	due := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	want := model.Issue{
		Key:            "DIN-59",
		Type:           "Story",
		Status:         "To Do",
		StatusCategory: "new",
		Priority:       "High",
		Summary:        "Login <form>",
		Description:    "<p>a &amp; b</p>",
		ParentKey:      "DIN-58",
		StoryPoints:    model.Float(5),
		Estimate:       "2d",
		Assignee:       "Dana Kim",
		DueDate:        &due,
		BlockedBy:      []string{"DIN-70"},
		Flagged:        true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetIssue mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchIssues_FollowsPageTokens(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/rest/api/3/search/jql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if jql := r.URL.Query().Get("jql"); jql != `project = "DIN"` {
			t.Errorf("jql = %q", jql)
		}
		switch r.URL.Query().Get("nextPageToken") {
		case "":
			fmt.Fprint(w, `{"issues":[{"key":"DIN-1","fields":{}},{"key":"DIN-2","fields":{}}],"nextPageToken":"p2","isLast":false}`)
		case "p2":
			fmt.Fprint(w, `{"issues":[{"key":"DIN-3","fields":{"customfield_10016":null}}],"isLast":true}`)
		default:
			t.Errorf("unexpected token %q", r.URL.Query().Get("nextPageToken"))
		}
	}))

	issues, err := client.SearchIssues(context.Background(), `project = "DIN"`, 0)
	if err != nil {
		t.Fatalf("SearchIssues: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	var keys []string
	for _, i := range issues {
		keys = append(keys, i.Key)
	}
	if diff := cmp.Diff([]string{"DIN-1", "DIN-2", "DIN-3"}, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if issues[2].StoryPoints != nil {
		t.Errorf("null story points should stay nil")
	}
}

func TestQuery_LimitAndOrder(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("maxResults"); got != "2" {
			t.Errorf("maxResults = %s, want 2", got)
		}
		fmt.Fprint(w, `{"issues":[{"key":"DIN-10","fields":{}},{"key":"DIN-9","fields":{}}],"nextPageToken":"more"}`)
	}))

	issues, err := client.Query(context.Background(), model.IssueQuery{Project: "DIN", Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(issues) != 2 || issues[0].Key != "DIN-9" || issues[1].Key != "DIN-10" {
		t.Errorf("Query = %+v, want DIN-9, DIN-10", issues)
	}
}

func TestTransitionTo(t *testing.T) {
	var posted transitionPayload
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fmt.Fprint(w, `{"transitions":[{"id":"11","name":"Start","to":{"name":"In Progress"}},{"id":"31","name":"Finish","to":{"name":"Done"}}]}`)
		case http.MethodPost:
			json.NewDecoder(r.Body).Decode(&posted)
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	tr, err := client.TransitionTo(context.Background(), "DIN-59", "done")
	if err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}
	if tr.ID != "31" || posted.Transition.ID != "31" {
		t.Errorf("transition = %+v, posted %+v", tr, posted)
	}

	_, err = client.TransitionTo(context.Background(), "DIN-59", "Archived")
	if err == nil || !strings.Contains(err.Error(), "In Progress, Done") {
		t.Errorf("expected error listing available transitions, got %v", err)
	}
}

func TestAddComment_SendsADF(t *testing.T) {
	var body commentPayload
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/issue/DIN-59/comment" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"1"}`)
	}))

	if err := client.AddComment(context.Background(), "DIN-59", "synced"); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if body.Body.Type != "doc" || len(body.Body.Content) != 1 || body.Body.Content[0].Content[0].Text != "synced" {
		t.Errorf("unexpected comment body: %+v", body.Body)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status     int
		unavail    bool
		notFound   bool
		validation bool
	}{
		{http.StatusBadRequest, false, false, true},
		{http.StatusUnprocessableEntity, false, false, true},
		{http.StatusRequestEntityTooLarge, false, false, true},
		{http.StatusUnauthorized, true, false, false},
		{http.StatusForbidden, true, false, false},
		{http.StatusTooManyRequests, true, false, false},
		{http.StatusBadGateway, true, false, false},
		{http.StatusNotFound, false, true, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"errorMessages":["nope"]}`)
			}))

			_, err := client.GetIssue(context.Background(), "DIN-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrRemoteUnavailable); got != tt.unavail {
				t.Errorf("Is(ErrRemoteUnavailable) = %v, want %v (%v)", got, tt.unavail, err)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.notFound {
				t.Errorf("Is(ErrNotFound) = %v, want %v (%v)", got, tt.notFound, err)
			}
			var ve *ValidationError
			if got := errors.As(err, &ve); got != tt.validation {
				t.Errorf("As(ValidationError) = %v, want %v (%v)", got, tt.validation, err)
			}
			if tt.validation && !strings.Contains(ve.Message, "nope") {
				t.Errorf("validation message = %q", ve.Message)
			}
		})
	}
}

func TestNetworkFailureIsRemoteUnavailable(t *testing.T) {
	client, srv := newTestClient(t, http.NotFoundHandler())
	srv.Close()

	_, err := client.GetIssue(context.Background(), "DIN-1")
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("err = %v, want ErrRemoteUnavailable", err)
	}
}
