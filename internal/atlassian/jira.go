package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

// searchPageSize is the page size requested from the search endpoint.
const searchPageSize = 100

var baseIssueFields = []string{
	"summary", "status", "issuetype", "priority", "description", "parent",
	"assignee", "duedate", "issuelinks", "timetracking",
}

func (c *Client) issueFields() string {
	fields := append([]string(nil), baseIssueFields...)
	if c.storyPointsField != "" {
		fields = append(fields, c.storyPointsField)
	}
	if c.flaggedField != "" {
		fields = append(fields, c.flaggedField)
	}
	return strings.Join(fields, ",")
}

// SearchIssues runs a JQL search and follows nextPageToken pagination until
// limit issues are collected. limit <= 0 fetches every page.
func (c *Client) SearchIssues(ctx context.Context, jql string, limit int) ([]model.Issue, error) {
	var (
		issues []model.Issue
		token  string
	)
	for {
		pageSize := searchPageSize
		if limit > 0 && limit-len(issues) < pageSize {
			pageSize = limit - len(issues)
		}

		params := url.Values{}
		params.Set("jql", jql)
		params.Set("fields", c.issueFields())
		params.Set("maxResults", strconv.Itoa(pageSize))
		if token != "" {
			params.Set("nextPageToken", token)
		}

		var resp searchResponse
		endpoint := fmt.Sprintf("%s/rest/api/3/search/jql?%s", c.baseURL, params.Encode())
		if err := c.do(ctx, jiraService, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, fmt.Errorf("searching issues: %w", err)
		}

		for _, raw := range resp.Issues {
			issue, err := c.toIssue(raw)
			if err != nil {
				return nil, err
			}
			issues = append(issues, issue)
		}

		if limit > 0 && len(issues) >= limit {
			return issues[:limit], nil
		}
		if resp.IsLast || resp.NextPageToken == "" || len(resp.Issues) == 0 {
			return issues, nil
		}
		token = resp.NextPageToken
	}
}

// Query runs a structured query. Results come back in natural key order.
func (c *Client) Query(ctx context.Context, q model.IssueQuery) ([]model.Issue, error) {
	issues, err := c.SearchIssues(ctx, q.JQL(), q.Limit)
	if err != nil {
		return nil, err
	}
	model.SortIssues(issues)
	return issues, nil
}

// GetIssue fetches a single issue by key.
func (c *Client) GetIssue(ctx context.Context, key string) (model.Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s?fields=%s",
		c.baseURL, url.PathEscape(key), url.QueryEscape(c.issueFields()))

	var raw rawIssue
	if err := c.do(ctx, jiraService, http.MethodGet, endpoint, nil, &raw); err != nil {
		return model.Issue{}, fmt.Errorf("fetching issue %s: %w", key, err)
	}
	return c.toIssue(raw)
}

// GetTransitions returns available transitions for an issue.
func (c *Client) GetTransitions(ctx context.Context, key string) ([]model.Transition, error) {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, url.PathEscape(key))

	var resp transitionsResponse
	if err := c.do(ctx, jiraService, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching transitions for %s: %w", key, err)
	}

	out := make([]model.Transition, 0, len(resp.Transitions))
	for _, t := range resp.Transitions {
		out = append(out, model.Transition{ID: t.ID, Name: t.Name, To: t.To.Name})
	}
	return out, nil
}

// DoTransition performs a status transition on an issue.
func (c *Client) DoTransition(ctx context.Context, key, transitionID string) error {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, url.PathEscape(key))
	payload := transitionPayload{Transition: transitionRef{ID: transitionID}}
	if err := c.do(ctx, jiraService, http.MethodPost, endpoint, payload, nil); err != nil {
		return fmt.Errorf("transitioning %s: %w", key, err)
	}
	return nil
}

// TransitionTo moves an issue to the named status, matching either the
// transition name or its target status case-insensitively.
func (c *Client) TransitionTo(ctx context.Context, key, target string) (model.Transition, error) {
	transitions, err := c.GetTransitions(ctx, key)
	if err != nil {
		return model.Transition{}, err
	}

	for _, t := range transitions {
		if strings.EqualFold(t.To, target) || strings.EqualFold(t.Name, target) {
			if err := c.DoTransition(ctx, key, t.ID); err != nil {
				return model.Transition{}, err
			}
			return t, nil
		}
	}

	available := make([]string, 0, len(transitions))
	for _, t := range transitions {
		available = append(available, t.To)
	}
	return model.Transition{}, fmt.Errorf("no transition to %q for %s (available: %s)",
		target, key, strings.Join(available, ", "))
}

// AddComment posts a plain-text comment on an issue.
func (c *Client) AddComment(ctx context.Context, key, text string) error {
	endpoint := fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, url.PathEscape(key))
	payload := commentPayload{Body: TextDocument(text)}
	if err := c.do(ctx, jiraService, http.MethodPost, endpoint, payload, nil); err != nil {
		return fmt.Errorf("commenting on %s: %w", key, err)
	}
	return nil
}

// ServerInfo checks Jira connectivity and returns the site's version string.
func (c *Client) ServerInfo(ctx context.Context) (string, error) {
	var info serverInfo
	if err := c.do(ctx, jiraService, http.MethodGet, c.baseURL+"/rest/api/3/serverInfo", nil, &info); err != nil {
		return "", fmt.Errorf("fetching server info: %w", err)
	}
	return info.Version, nil
}

func (c *Client) toIssue(raw rawIssue) (model.Issue, error) {
	var f issueFields
	if err := json.Unmarshal(raw.Fields, &f); err != nil {
		return model.Issue{}, fmt.Errorf("decoding fields of %s: %w", raw.Key, err)
	}
	var custom map[string]json.RawMessage
	if err := json.Unmarshal(raw.Fields, &custom); err != nil {
		return model.Issue{}, fmt.Errorf("decoding fields of %s: %w", raw.Key, err)
	}

	issue := model.Issue{
		Key:         raw.Key,
		Type:        f.IssueType.Name,
		Status:      f.Status.Name,
		Summary:     f.Summary,
		Description: ADFToStorage(f.Description),
	}
	if f.Status.StatusCategory != nil {
		issue.StatusCategory = f.Status.StatusCategory.Key
	}
	if f.Priority != nil {
		issue.Priority = f.Priority.Name
	}
	if f.Assignee != nil {
		issue.Assignee = f.Assignee.DisplayName
	}
	if f.Parent != nil {
		issue.ParentKey = f.Parent.Key
	}
	if f.TimeTracking != nil {
		issue.Estimate = f.TimeTracking.OriginalEstimate
	}
	if f.DueDate != "" {
		due, err := time.Parse(time.DateOnly, f.DueDate)
		if err != nil {
			return model.Issue{}, fmt.Errorf("parsing due date of %s: %w", raw.Key, err)
		}
		issue.DueDate = &due
	}
	for _, link := range f.IssueLinks {
		if !strings.EqualFold(link.Type.Name, "Blocks") || link.InwardIssue == nil {
			continue
		}
		cat := link.InwardIssue.Fields.Status.StatusCategory
		if cat != nil && cat.Key == "done" {
			continue
		}
		issue.BlockedBy = append(issue.BlockedBy, link.InwardIssue.Key)
	}

	if v, ok := custom[c.storyPointsField]; ok {
		points, err := decodePoints(v)
		if err != nil {
			return model.Issue{}, fmt.Errorf("decoding story points of %s: %w", raw.Key, err)
		}
		issue.StoryPoints = points
	}
	if v, ok := custom[c.flaggedField]; ok {
		issue.Flagged = decodeFlagged(v)
	}

	return issue, nil
}

func decodePoints(v json.RawMessage) (*float64, error) {
	var f *float64
	if err := json.Unmarshal(v, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// decodeFlagged reads the Flagged multi-checkbox field: null or an empty
// array means not flagged.
func decodeFlagged(v json.RawMessage) bool {
	var opts []struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(v, &opts); err != nil {
		return false
	}
	return len(opts) > 0
}
