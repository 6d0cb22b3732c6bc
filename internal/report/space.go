package report

import (
	"slices"
	"strings"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

// PageRef is the short form of a page used in space reports.
type PageRef struct {
	ID    string `json:"id"    yaml:"id"`
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

// SpaceReport summarizes the pages of a Confluence space.
type SpaceReport struct {
	Space       model.Space `json:"space"        yaml:"space"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	TotalPages  int         `json:"total_pages"  yaml:"total_pages"`
	ByStatus    []Count     `json:"pages_by_status" yaml:"pages_by_status"`
	Pages       []PageRef   `json:"pages"        yaml:"pages"`
}

// BuildSpace summarizes pages by status. Pages are listed by title.
func BuildSpace(space model.Space, pages []model.Page, now time.Time) SpaceReport {
	byStatus := map[string]int{}
	refs := make([]PageRef, 0, len(pages))
	for _, p := range pages {
		status := p.Status
		if status == "" {
			status = "unknown"
		}
		byStatus[status]++
		refs = append(refs, PageRef{ID: p.ID, Title: p.Title, URL: p.URL})
	}
	slices.SortStableFunc(refs, func(a, b PageRef) int { return strings.Compare(a.Title, b.Title) })

	return SpaceReport{
		Space:       space,
		GeneratedAt: now,
		TotalPages:  len(pages),
		ByStatus:    sortedCounts(byStatus),
		Pages:       refs,
	}
}
