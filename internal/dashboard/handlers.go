package dashboard

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
)

const (
	defaultIssueLimit = 50
	defaultPageLimit  = 50
	spacePageLimit    = 1000
	spaceListLimit    = 100
)

// ProjectHealth is the headline view of a project's active issues.
type ProjectHealth struct {
	Project     string         `json:"project"`
	TotalIssues int            `json:"total_issues"`
	Blocked     int            `json:"blocked"`
	Overdue     int            `json:"overdue"`
	ByStatus    map[string]int `json:"by_status"`
	ByPriority  map[string]int `json:"by_priority"`
}

// IssueInfo is one row of /api/jira/issues.
type IssueInfo struct {
	Key      string `json:"key"`
	Summary  string `json:"summary"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
	Assignee string `json:"assignee,omitempty"`
}

// SpaceInfo is one row of /api/confluence/spaces.
type SpaceInfo struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	TotalPages int    `json:"total_pages"`
}

// PageInfo is one row of /api/confluence/pages.
type PageInfo struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
	URL    string `json:"url,omitempty"`
}

func (s *Server) jiraHealth(w http.ResponseWriter, r *http.Request) {
	if s.clients.Jira == nil {
		unavailable(w, "Jira", s.clients.JiraErr)
		return
	}
	project := s.project(r)
	if project == "" {
		writeError(w, http.StatusBadRequest, "project is required")
		return
	}

	issues, err := s.clients.Jira.Query(r.Context(), model.IssueQuery{
		Project:         project,
		ExcludeStatuses: s.opts.Rules.DoneStatuses,
	})
	if err != nil {
		s.upstream(w, r, "fetching Jira issues", err)
		return
	}

	rep := report.Build(project, issues, s.opts.Rules, s.opts.Now())
	writeJSON(w, http.StatusOK, ProjectHealth{
		Project:     project,
		TotalIssues: rep.Summary.TotalActive,
		Blocked:     rep.Summary.BlockedCount,
		Overdue:     rep.Summary.OverdueCount,
		ByStatus:    countMap(rep.ByStatus),
		ByPriority:  countMap(rep.ByPriority),
	})
}

func (s *Server) jiraIssues(w http.ResponseWriter, r *http.Request) {
	if s.clients.Jira == nil {
		unavailable(w, "Jira", s.clients.JiraErr)
		return
	}
	limit, err := queryLimit(r, defaultIssueLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	jql := strings.TrimSpace(r.URL.Query().Get("jql"))
	if jql == "" {
		project := s.project(r)
		if project == "" {
			writeError(w, http.StatusBadRequest, "jql or project is required")
			return
		}
		jql = model.IssueQuery{Project: project}.JQL()
	}

	issues, err := s.clients.Jira.SearchIssues(r.Context(), jql, limit)
	if err != nil {
		s.upstream(w, r, "searching Jira issues", err)
		return
	}

	out := make([]IssueInfo, 0, len(issues))
	for _, i := range issues {
		prio := i.Priority
		if prio == "" {
			prio = report.NoPriority
		}
		out = append(out, IssueInfo{Key: i.Key, Summary: i.Summary, Status: i.Status, Priority: prio, Assignee: i.Assignee})
	}
	writeJSON(w, http.StatusOK, out)
}

// confluenceSpaces lists spaces with their page counts. Counts are fetched
// four spaces at a time.
func (s *Server) confluenceSpaces(w http.ResponseWriter, r *http.Request) {
	if s.clients.Confluence == nil {
		unavailable(w, "Confluence", s.clients.ConfluenceErr)
		return
	}
	spaces, err := s.clients.Confluence.ListSpaces(r.Context(), spaceListLimit)
	if err != nil {
		s.upstream(w, r, "listing Confluence spaces", err)
		return
	}

	out := make([]SpaceInfo, len(spaces))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, sp := range spaces {
		g.Go(func() error {
			pages, err := s.clients.Confluence.ListPages(ctx, sp.Key, spacePageLimit)
			if err != nil {
				return fmt.Errorf("space %s: %w", sp.Key, err)
			}
			out[i] = SpaceInfo{Key: sp.Key, Name: sp.Name, TotalPages: len(pages)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.upstream(w, r, "counting Confluence pages", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) confluencePages(w http.ResponseWriter, r *http.Request) {
	if s.clients.Confluence == nil {
		unavailable(w, "Confluence", s.clients.ConfluenceErr)
		return
	}
	limit, err := queryLimit(r, defaultPageLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	space := r.URL.Query().Get("space")
	if space == "" {
		space = s.opts.Space
	}
	if space == "" {
		writeError(w, http.StatusBadRequest, "space is required")
		return
	}

	pages, err := s.clients.Confluence.ListPages(r.Context(), space, limit)
	if err != nil {
		s.upstream(w, r, "listing Confluence pages", err)
		return
	}
	out := make([]PageInfo, 0, len(pages))
	for _, p := range pages {
		out = append(out, PageInfo{ID: p.ID, Title: p.Title, Status: p.Status, URL: p.URL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) compassComponents(w http.ResponseWriter, r *http.Request) {
	if s.clients.Compass == nil {
		unavailable(w, "Compass", s.clients.CompassErr)
		return
	}
	components, err := s.clients.Compass.ListComponents(r.Context())
	if err != nil {
		s.upstream(w, r, "listing Compass components", err)
		return
	}
	if components == nil {
		components = []model.Component{}
	}
	writeJSON(w, http.StatusOK, components)
}

func (s *Server) project(r *http.Request) string {
	if p := r.URL.Query().Get("project"); p != "" {
		return strings.ToUpper(p)
	}
	return s.opts.Project
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func countMap(counts []report.Count) map[string]int {
	m := make(map[string]int, len(counts))
	for _, c := range counts {
		m[c.Name] = c.Count
	}
	return m
}
