// Package docsync turns Jira issues into Confluence documentation pages. It
// renders storage-format documents from issue snapshots and upserts them by
// (space, title), overview first, then epics, then stories.
package docsync

import (
	"context"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

// IssueSource is the read side of Jira used by a sync run.
type IssueSource interface {
	GetIssue(ctx context.Context, key string) (model.Issue, error)
	// Query returns matching issues in natural key order.
	Query(ctx context.Context, q model.IssueQuery) ([]model.Issue, error)
}

// PageStore is the Confluence side of a sync run.
type PageStore interface {
	// FindPages returns the pages in space whose title equals title exactly.
	FindPages(ctx context.Context, space, title string) ([]model.Page, error)
	CreatePage(ctx context.Context, space, title, body, parentID string) (model.Page, error)
	// UpdatePage replaces title and body. An empty parentID keeps the parent.
	UpdatePage(ctx context.Context, id, title, body, parentID string) (model.Page, error)
	AddLabel(ctx context.Context, pageID, label string) error
}
