// Package mock provides test doubles for the Jira issue source and the
// Confluence page store.
package mock

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/dt-pm-tools/atlsync/internal/atlassian"
	"github.com/dt-pm-tools/atlsync/internal/model"
)

// IssueSource is a mock implementation of docsync.IssueSource and
// dashboard.JiraSource.
type IssueSource struct {
	GetIssueFunc     func(ctx context.Context, key string) (model.Issue, error)
	QueryFunc        func(ctx context.Context, q model.IssueQuery) ([]model.Issue, error)
	SearchIssuesFunc func(ctx context.Context, jql string, limit int) ([]model.Issue, error)
}

func (m *IssueSource) GetIssue(ctx context.Context, key string) (model.Issue, error) {
	if m.GetIssueFunc != nil {
		return m.GetIssueFunc(ctx, key)
	}
	return model.Issue{}, nil
}

func (m *IssueSource) Query(ctx context.Context, q model.IssueQuery) ([]model.Issue, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, q)
	}
	return nil, nil
}

func (m *IssueSource) SearchIssues(ctx context.Context, jql string, limit int) ([]model.Issue, error) {
	if m.SearchIssuesFunc != nil {
		return m.SearchIssuesFunc(ctx, jql, limit)
	}
	return nil, nil
}

// NewIssueSource returns an IssueSource answering from a fixed issue set.
// Queries are evaluated with IssueQuery.Matches and honour Limit; results
// come back in natural key order.
func NewIssueSource(issues ...model.Issue) *IssueSource {
	byKey := make(map[string]model.Issue, len(issues))
	for _, i := range issues {
		byKey[i.Key] = i
	}
	return &IssueSource{
		GetIssueFunc: func(_ context.Context, key string) (model.Issue, error) {
			i, ok := byKey[key]
			if !ok {
				return model.Issue{}, fmt.Errorf("issue %s: %w", key, atlassian.ErrNotFound)
			}
			return i, nil
		},
		QueryFunc: func(_ context.Context, q model.IssueQuery) ([]model.Issue, error) {
			var out []model.Issue
			for _, i := range issues {
				if q.Matches(i) {
					out = append(out, i)
				}
			}
			model.SortIssues(out)
			if q.Limit > 0 && len(out) > q.Limit {
				out = out[:q.Limit]
			}
			return out, nil
		},
	}
}

// Confluence is a mock implementation of dashboard.ConfluenceSource.
type Confluence struct {
	ListSpacesFunc func(ctx context.Context, limit int) ([]model.Space, error)
	ListPagesFunc  func(ctx context.Context, spaceKey string, limit int) ([]model.Page, error)
}

func (m *Confluence) ListSpaces(ctx context.Context, limit int) ([]model.Space, error) {
	if m.ListSpacesFunc != nil {
		return m.ListSpacesFunc(ctx, limit)
	}
	return nil, nil
}

func (m *Confluence) ListPages(ctx context.Context, spaceKey string, limit int) ([]model.Page, error) {
	if m.ListPagesFunc != nil {
		return m.ListPagesFunc(ctx, spaceKey, limit)
	}
	return nil, nil
}

// Compass is a mock implementation of dashboard.CompassSource.
type Compass struct {
	ListComponentsFunc func(ctx context.Context) ([]model.Component, error)
}

func (m *Compass) ListComponents(ctx context.Context) ([]model.Component, error) {
	if m.ListComponentsFunc != nil {
		return m.ListComponentsFunc(ctx)
	}
	return nil, nil
}

// PageStore is an in-memory docsync.PageStore that counts writes.
// FailFunc, when set, is consulted before every operation; a non-nil error
// fails that call. op is one of "find", "create", "update", "label".
type PageStore struct {
	FailFunc func(op, title string) error

	mu      sync.Mutex
	nextID  int
	pages   map[string]model.Page
	labels  map[string][]string
	finds   int
	creates int
	updates int
}

// NewPageStore returns an empty store.
func NewPageStore() *PageStore {
	return &PageStore{
		nextID: 1000,
		pages:  make(map[string]model.Page),
		labels: make(map[string][]string),
	}
}

// Seed adds an existing page, assigning an id when empty. It returns the id.
func (s *PageStore) Seed(p model.Page) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	s.pages[p.ID] = p
	return p.ID
}

func (s *PageStore) newID() string {
	s.nextID++
	return strconv.Itoa(s.nextID)
}

func (s *PageStore) fail(op, title string) error {
	if s.FailFunc == nil {
		return nil
	}
	return s.FailFunc(op, title)
}

func (s *PageStore) FindPages(_ context.Context, space, title string) ([]model.Page, error) {
	if err := s.fail("find", title); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	return s.lookup(space, title), nil
}

func (s *PageStore) CreatePage(_ context.Context, space, title, body, parentID string) (model.Page, error) {
	if err := s.fail("create", title); err != nil {
		return model.Page{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++

	p := model.Page{
		ID:       s.newID(),
		Title:    title,
		Status:   "current",
		SpaceKey: space,
		ParentID: parentID,
		Version:  1,
		Body:     body,
	}
	p.URL = "https://example.atlassian.net/wiki/pages/" + p.ID
	s.pages[p.ID] = p
	return p, nil
}

func (s *PageStore) UpdatePage(_ context.Context, id, title, body, parentID string) (model.Page, error) {
	if err := s.fail("update", title); err != nil {
		return model.Page{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pages[id]
	if !ok {
		return model.Page{}, fmt.Errorf("page %s: %w", id, atlassian.ErrNotFound)
	}
	s.updates++
	p.Title = title
	p.Body = body
	if parentID != "" {
		p.ParentID = parentID
	}
	p.Version++
	s.pages[id] = p
	return p, nil
}

func (s *PageStore) AddLabel(_ context.Context, pageID, label string) error {
	if err := s.fail("label", pageID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.labels[pageID], label) {
		s.labels[pageID] = append(s.labels[pageID], label)
	}
	return nil
}

// Page returns a stored page by id.
func (s *PageStore) Page(id string) (model.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	return p, ok
}

// PageByTitle returns the first page in space with the title.
func (s *PageStore) PageByTitle(space, title string) (model.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := s.lookup(space, title)
	if len(pages) == 0 {
		return model.Page{}, false
	}
	return pages[0], true
}

func (s *PageStore) lookup(space, title string) []model.Page {
	var out []model.Page
	for _, p := range s.pages {
		if p.SpaceKey == space && p.Title == title {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Page) int { return compareIDs(a.ID, b.ID) })
	return out
}

// Pages returns every stored page ordered by id.
func (s *PageStore) Pages() []model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Page, 0, len(s.pages))
	for _, p := range s.pages {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Page) int { return compareIDs(a.ID, b.ID) })
	return out
}

// Labels returns the labels of a page.
func (s *PageStore) Labels(pageID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.labels[pageID])
}

// Writes returns the number of successful creates and updates.
func (s *PageStore) Writes() (creates, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates, s.updates
}

// Finds returns the number of FindPages calls.
func (s *PageStore) Finds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finds
}

func compareIDs(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai - bi
	}
	return strings.Compare(a, b)
}
