package model

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// Issue is a read-only snapshot of a Jira issue taken during a single run.
type Issue struct {
	Key            string     `json:"key"`
	Type           string     `json:"type"`
	Status         string     `json:"status"`
	StatusCategory string     `json:"status_category,omitempty"` // "new", "indeterminate", "done"
	Priority       string     `json:"priority,omitempty"`
	Summary        string     `json:"summary"`
	Description    string     `json:"description,omitempty"` // Confluence storage markup
	ParentKey      string     `json:"parent_key,omitempty"`
	StoryPoints    *float64   `json:"story_points,omitempty"`
	Estimate       string     `json:"estimate,omitempty"`
	Assignee       string     `json:"assignee,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	BlockedBy      []string   `json:"blocked_by,omitempty"`
	Flagged        bool       `json:"flagged,omitempty"`
}

// Points returns the story points and whether they are set.
func (i Issue) Points() (float64, bool) {
	if i.StoryPoints == nil {
		return 0, false
	}
	return *i.StoryPoints, true
}

// FormatPoints renders story points without trailing zeros, or "N/A".
func FormatPoints(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// Float is a convenience for building *float64 literals.
func Float(f float64) *float64 {
	return &f
}

// CompareKeys orders issue keys naturally: project prefix first, then the
// numeric suffix as a number, so DIN-9 sorts before DIN-10.
func CompareKeys(a, b string) int {
	ap, an, aok := splitKey(a)
	bp, bn, bok := splitKey(b)
	if !aok || !bok {
		return strings.Compare(a, b)
	}
	if c := strings.Compare(ap, bp); c != 0 {
		return c
	}
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	}
	return 0
}

func splitKey(key string) (string, int, bool) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return key[:idx], n, true
}

// SortIssues sorts issues in place by natural key order.
func SortIssues(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		return CompareKeys(a.Key, b.Key)
	})
}
