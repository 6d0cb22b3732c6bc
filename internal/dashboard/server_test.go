package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dt-pm-tools/atlsync/internal/atlassian"
	"github.com/dt-pm-tools/atlsync/internal/logger"
	"github.com/dt-pm-tools/atlsync/internal/mock"
	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func due(d int) *time.Time {
	t := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testIssues() []model.Issue {
	return []model.Issue{
		{Key: "DIN-1", Status: "To Do", Priority: "High", Summary: "One", Assignee: "Ana"},
		{Key: "DIN-2", Status: "Blocked", Priority: "High", Summary: "Two"},
		{Key: "DIN-3", Status: "In Progress", Summary: "Three", DueDate: due(1)},
		{Key: "DIN-4", Status: "Done", StatusCategory: "done", Priority: "Low", Summary: "Four"},
	}
}

func newServer(clients Clients) *Server {
	return NewServer(clients, Options{
		Project: "DIN",
		Space:   "DOCS",
		Rules:   report.Rules{BlockedStatuses: []string{"Blocked"}, DoneStatuses: []string{"Done"}},
		Now:     func() time.Time { return now },
	}, logger.Discard())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newServer(Clients{
		Jira:       mock.NewIssueSource(),
		Confluence: &mock.Confluence{},
		CompassErr: errors.New("no cloud id"),
	})

	rec := get(t, s, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	want := map[string]any{"status": "healthy", "jira": true, "confluence": true, "compass": false}
	delete(body, "timestamp")
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("health (-want +got):\n%s", diff)
	}
}

func TestUninitializedClientAnswers503(t *testing.T) {
	s := newServer(Clients{
		JiraErr:    errors.New("missing token"),
		CompassErr: errors.New("no cloud id"),
	})

	tests := []struct {
		path string
		want string
	}{
		{"/api/jira/health", "Jira client not initialized: missing token"},
		{"/api/jira/issues", "Jira client not initialized: missing token"},
		{"/api/confluence/spaces", "Confluence client not initialized"},
		{"/api/confluence/pages", "Confluence client not initialized"},
		{"/api/compass/components", "Compass client not initialized: no cloud id"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, s, tt.path)
			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rec.Code)
			}
			if got := decode[map[string]string](t, rec)["error"]; got != tt.want {
				t.Errorf("error = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJiraHealth(t *testing.T) {
	s := newServer(Clients{Jira: mock.NewIssueSource(testIssues()...)})

	rec := get(t, s, "/api/jira/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	want := ProjectHealth{
		Project:     "DIN",
		TotalIssues: 3,
		Blocked:     1,
		Overdue:     1,
		ByStatus:    map[string]int{"To Do": 1, "Blocked": 1, "In Progress": 1},
		ByPriority:  map[string]int{"High": 2, "None": 1},
	}
	if diff := cmp.Diff(want, decode[ProjectHealth](t, rec)); diff != "" {
		t.Errorf("health (-want +got):\n%s", diff)
	}
}

func TestJiraIssues(t *testing.T) {
	var gotJQL string
	var gotLimit int
	src := mock.NewIssueSource()
	src.SearchIssuesFunc = func(_ context.Context, jql string, limit int) ([]model.Issue, error) {
		gotJQL, gotLimit = jql, limit
		return testIssues()[:3], nil
	}
	s := newServer(Clients{Jira: src})

	rec := get(t, s, "/api/jira/issues")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotJQL != (model.IssueQuery{Project: "DIN"}).JQL() || gotLimit != defaultIssueLimit {
		t.Errorf("search(%q, %d)", gotJQL, gotLimit)
	}
	issues := decode[[]IssueInfo](t, rec)
	want := []IssueInfo{
		{Key: "DIN-1", Summary: "One", Status: "To Do", Priority: "High", Assignee: "Ana"},
		{Key: "DIN-2", Summary: "Two", Status: "Blocked", Priority: "High"},
		{Key: "DIN-3", Summary: "Three", Status: "In Progress", Priority: "None"},
	}
	if diff := cmp.Diff(want, issues); diff != "" {
		t.Errorf("issues (-want +got):\n%s", diff)
	}

	get(t, s, "/api/jira/issues?jql=assignee%3DcurrentUser()&limit=5")
	if gotJQL != "assignee=currentUser()" || gotLimit != 5 {
		t.Errorf("search(%q, %d), want explicit jql and limit", gotJQL, gotLimit)
	}
}

func TestJiraIssues_BadLimit(t *testing.T) {
	s := newServer(Clients{Jira: mock.NewIssueSource()})

	for _, limit := range []string{"abc", "0", "-3"} {
		if rec := get(t, s, "/api/jira/issues?limit="+limit); rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", limit, rec.Code)
		}
	}
}

func TestUpstreamFailureAnswers502(t *testing.T) {
	src := mock.NewIssueSource()
	src.QueryFunc = func(context.Context, model.IssueQuery) ([]model.Issue, error) {
		return nil, fmt.Errorf("JIRA API returned 503: %w", atlassian.ErrRemoteUnavailable)
	}
	s := newServer(Clients{Jira: src})

	rec := get(t, s, "/api/jira/health")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if msg := decode[map[string]string](t, rec)["error"]; !strings.Contains(msg, "JIRA API returned 503") {
		t.Errorf("error = %q", msg)
	}
}

func TestConfluenceSpaces(t *testing.T) {
	conf := &mock.Confluence{
		ListSpacesFunc: func(context.Context, int) ([]model.Space, error) {
			return []model.Space{{Key: "DOCS", Name: "Docs"}, {Key: "ENG", Name: "Engineering"}}, nil
		},
		ListPagesFunc: func(_ context.Context, space string, limit int) ([]model.Page, error) {
			if limit != spacePageLimit {
				return nil, fmt.Errorf("limit = %d", limit)
			}
			if space == "DOCS" {
				return []model.Page{{ID: "1"}, {ID: "2"}}, nil
			}
			return []model.Page{{ID: "3"}}, nil
		},
	}
	s := newServer(Clients{Confluence: conf})

	rec := get(t, s, "/api/confluence/spaces")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	want := []SpaceInfo{{Key: "DOCS", Name: "Docs", TotalPages: 2}, {Key: "ENG", Name: "Engineering", TotalPages: 1}}
	if diff := cmp.Diff(want, decode[[]SpaceInfo](t, rec)); diff != "" {
		t.Errorf("spaces (-want +got):\n%s", diff)
	}
}

func TestConfluencePages(t *testing.T) {
	var gotSpace string
	conf := &mock.Confluence{
		ListPagesFunc: func(_ context.Context, space string, _ int) ([]model.Page, error) {
			gotSpace = space
			return []model.Page{{ID: "10", Title: "Home", Status: "current", URL: "https://x/wiki/10"}}, nil
		},
	}
	s := newServer(Clients{Confluence: conf})

	rec := get(t, s, "/api/confluence/pages")
	if rec.Code != http.StatusOK || gotSpace != "DOCS" {
		t.Fatalf("status = %d, space = %q", rec.Code, gotSpace)
	}
	want := []PageInfo{{ID: "10", Title: "Home", Status: "current", URL: "https://x/wiki/10"}}
	if diff := cmp.Diff(want, decode[[]PageInfo](t, rec)); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}

	get(t, s, "/api/confluence/pages?space=ENG")
	if gotSpace != "ENG" {
		t.Errorf("space = %q, want ENG", gotSpace)
	}
}

func TestCompassComponents_EmptyIsArray(t *testing.T) {
	s := newServer(Clients{Compass: &mock.Compass{}})

	rec := get(t, s, "/api/compass/components")

	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestIndex(t *testing.T) {
	rec := get(t, newServer(Clients{}), "/")

	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("status = %d, content type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "/api/jira/health") {
		t.Error("index should reference the API")
	}
}
