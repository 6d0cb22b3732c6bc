package docsync

import (
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/config"
	"github.com/dt-pm-tools/atlsync/internal/model"
)

// IssueTypes names the epic, story and subtask issue types of a site.
// Empty fields fall back to the English defaults.
type IssueTypes struct {
	Epic    string
	Story   string
	Subtask string
}

// TypesFromConfig builds IssueTypes from the jira config section.
func TypesFromConfig(cfg config.JiraConfig) IssueTypes {
	return IssueTypes{Epic: cfg.EpicType, Story: cfg.StoryType, Subtask: cfg.SubtaskType}
}

func (t IssueTypes) withDefaults() IssueTypes {
	if t.Epic == "" {
		t.Epic = "Epic"
	}
	if t.Story == "" {
		t.Story = "Story"
	}
	if t.Subtask == "" {
		t.Subtask = "Subtask"
	}
	return t
}

// IsEpic reports whether the issue is an epic.
func (t IssueTypes) IsEpic(i model.Issue) bool {
	return strings.EqualFold(i.Type, t.withDefaults().Epic)
}

// IsStory reports whether the issue is a story.
func (t IssueTypes) IsStory(i model.Issue) bool {
	return strings.EqualFold(i.Type, t.withDefaults().Story)
}

// Hierarchy is the parent/child graph of one issue snapshot, built once per
// run. Every accessor returns issues in natural key order.
type Hierarchy struct {
	types    IssueTypes
	issues   map[string]model.Issue
	children map[string][]model.Issue
	ordered  []model.Issue
}

// BuildHierarchy indexes issues by key and by parent. Duplicate keys keep
// the last occurrence.
func BuildHierarchy(issues []model.Issue, types IssueTypes) *Hierarchy {
	h := &Hierarchy{
		types:    types,
		issues:   make(map[string]model.Issue, len(issues)),
		children: make(map[string][]model.Issue),
	}
	for _, i := range issues {
		h.issues[i.Key] = i
	}

	h.ordered = make([]model.Issue, 0, len(h.issues))
	for _, i := range h.issues {
		h.ordered = append(h.ordered, i)
	}
	model.SortIssues(h.ordered)

	for _, i := range h.ordered {
		if i.ParentKey != "" {
			h.children[i.ParentKey] = append(h.children[i.ParentKey], i)
		}
	}
	return h
}

// Issue looks up an issue in the snapshot.
func (h *Hierarchy) Issue(key string) (model.Issue, bool) {
	i, ok := h.issues[key]
	return i, ok
}

// All returns every issue in the snapshot.
func (h *Hierarchy) All() []model.Issue {
	return h.ordered
}

// Epics returns the epics in the snapshot.
func (h *Hierarchy) Epics() []model.Issue {
	return h.filter(h.types.IsEpic)
}

// Stories returns the stories in the snapshot.
func (h *Hierarchy) Stories() []model.Issue {
	return h.filter(h.types.IsStory)
}

// Children returns the direct children of key present in the snapshot.
func (h *Hierarchy) Children(key string) []model.Issue {
	return h.children[key]
}

// Orphans returns the non-epic issues whose parent is not in the snapshot,
// including issues with no parent at all.
func (h *Hierarchy) Orphans() []model.Issue {
	return h.filter(func(i model.Issue) bool {
		if h.types.IsEpic(i) {
			return false
		}
		_, ok := h.issues[i.ParentKey]
		return i.ParentKey == "" || !ok
	})
}

func (h *Hierarchy) filter(keep func(model.Issue) bool) []model.Issue {
	var out []model.Issue
	for _, i := range h.ordered {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}
