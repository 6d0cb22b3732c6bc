package docsync

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

func keys(issues []model.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Key)
	}
	return out
}

func TestBuildHierarchy(t *testing.T) {
	h := BuildHierarchy(fixtureIssues(), IssueTypes{})

	tests := []struct {
		name string
		got  []model.Issue
		want []string
	}{
		{"epics", h.Epics(), []string{"DIN-58", "DIN-70", "DIN-80"}},
		{"stories", h.Stories(), []string{"DIN-59", "DIN-60", "DIN-71"}},
		{"children of DIN-58", h.Children("DIN-58"), []string{"DIN-59", "DIN-60"}},
		{"children of DIN-59", h.Children("DIN-59"), []string{"DIN-61"}},
		{"children of DIN-80", h.Children("DIN-80"), []string{}},
		{"orphans", h.Orphans(), []string{"DIN-90"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, keys(tt.got)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildHierarchy_MissingParentIsOrphan(t *testing.T) {
	issues := []model.Issue{
		{Key: "DIN-2", Type: "Story", ParentKey: "DIN-1"}, // epic not in snapshot
		{Key: "DIN-3", Type: "Subtask", ParentKey: "DIN-2"},
		{Key: "DIN-10", Type: "Epic"},
	}
	h := BuildHierarchy(issues, IssueTypes{})

	if diff := cmp.Diff([]string{"DIN-2"}, keys(h.Orphans())); diff != "" {
		t.Errorf("orphans (-want +got):\n%s", diff)
	}
}

func TestIssueTypes_Localized(t *testing.T) {
	types := IssueTypes{Epic: "에픽", Story: "스토리"}
	issues := []model.Issue{
		{Key: "K-1", Type: "에픽"},
		{Key: "K-2", Type: "스토리", ParentKey: "K-1"},
		{Key: "K-3", Type: "Epic"},
	}
	h := BuildHierarchy(issues, types)

	if diff := cmp.Diff([]string{"K-1"}, keys(h.Epics())); diff != "" {
		t.Errorf("epics (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"K-2"}, keys(h.Stories())); diff != "" {
		t.Errorf("stories (-want +got):\n%s", diff)
	}
}

func TestSyncPlan(t *testing.T) {
	plan := NewSyncPlan()
	if _, ok := plan.Get(RoleOverview); ok {
		t.Fatal("empty plan should not resolve")
	}
	plan.Set(EpicRole("DIN-58"), PageRef{ID: "1", Title: "Epic: DIN-58 - Phase 1"})

	ref, ok := plan.Get("epic:DIN-58")
	if !ok || ref.ID != "1" {
		t.Errorf("Get = %+v, %v", ref, ok)
	}
	if plan.Len() != 1 {
		t.Errorf("Len = %d", plan.Len())
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"overview", "EPIC", " story ", "full"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q): %v", s, err)
		}
	}
	if _, err := ParseKind("sprint"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
