package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/dt-pm-tools/atlsync/internal/model"
)

var (
	testRules = Rules{
		BlockedStatuses:  []string{"Blocked"},
		DoneStatuses:     []string{"Done", "Won't Do"},
		FlaggedIsBlocked: true,
	}
	runTime = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestRules_IsBlocked(t *testing.T) {
	tests := []struct {
		name  string
		issue model.Issue
		rules Rules
		want  bool
	}{
		{"blocked status", model.Issue{Status: "blocked"}, testRules, true},
		{"open blocker link", model.Issue{Status: "To Do", BlockedBy: []string{"DIN-1"}}, testRules, true},
		{"flagged", model.Issue{Status: "To Do", Flagged: true}, testRules, true},
		{"flagged but flag ignored", model.Issue{Status: "To Do", Flagged: true}, Rules{}, false},
		{"plain", model.Issue{Status: "In Progress"}, testRules, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rules.IsBlocked(tt.issue); got != tt.want {
				t.Errorf("IsBlocked = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRules_IsOverdue(t *testing.T) {
	tests := []struct {
		name  string
		issue model.Issue
		want  bool
	}{
		{"no due date", model.Issue{Status: "To Do"}, false},
		{"due yesterday", model.Issue{Status: "To Do", DueDate: day(2026, 3, 9)}, true},
		{"due today", model.Issue{Status: "To Do", DueDate: day(2026, 3, 10)}, false},
		{"due tomorrow", model.Issue{Status: "To Do", DueDate: day(2026, 3, 11)}, false},
		{"done status", model.Issue{Status: "done", DueDate: day(2026, 1, 1)}, false},
		{"done category", model.Issue{Status: "Shipped", StatusCategory: "done", DueDate: day(2026, 1, 1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testRules.IsOverdue(tt.issue, runTime); got != tt.want {
				t.Errorf("IsOverdue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	issues := []model.Issue{
		{Key: "DIN-10", Status: "In Progress", Priority: "High", Assignee: "Dana", StoryPoints: model.Float(3)},
		{Key: "DIN-9", Status: "Blocked", Priority: "Medium", Summary: "Blocked one", Assignee: "Lee"},
		{Key: "DIN-11", Status: "To Do", DueDate: day(2026, 3, 1), Summary: "Late", StoryPoints: model.Float(2)},
		{Key: "DIN-12", Status: "Done", Priority: "High"},
	}

	got := Build("DIN", issues, testRules, runTime)

	want := Report{
		Project:     "DIN",
		GeneratedAt: runTime,
		Summary: Summary{
			TotalActive:     3,
			BlockedCount:    1,
			OverdueCount:    1,
			UnassignedCount: 1,
			StoryPoints:     5,
		},
		ByStatus:   []Count{{"Blocked", 1}, {"In Progress", 1}, {"To Do", 1}},
		ByPriority: []Count{{"High", 1}, {"Medium", 1}, {NoPriority, 1}},
		Blocked:    []IssueRef{{Key: "DIN-9", Summary: "Blocked one", Status: "Blocked"}},
		Overdue:    []IssueRef{{Key: "DIN-11", Summary: "Late", Status: "To Do"}},
		Unassigned: []IssueRef{{Key: "DIN-11", Summary: "Late", Status: "To Do"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_EmptyListsEncodeAsArrays(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Build("DIN", nil, testRules, runTime)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"blocked": []`) {
		t.Errorf("expected empty blocked array, got:\n%s", buf.String())
	}
}

func TestExport_JSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	rep := Build("DIN", []model.Issue{{Key: "DIN-1", Status: "To Do", Summary: "a <b>"}}, testRules, runTime)

	jsonPath := filepath.Join(dir, "out", "report.json")
	if err := Export(jsonPath, rep); err != nil {
		t.Fatalf("Export json: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding json: %v", err)
	}
	if decoded.Summary.TotalActive != 1 || !strings.Contains(string(data), "a <b>") {
		t.Errorf("unexpected json export:\n%s", data)
	}

	yamlPath := filepath.Join(dir, "report.yaml")
	if err := Export(yamlPath, rep); err != nil {
		t.Fatalf("Export yaml: %v", err)
	}
	data, err = os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		t.Fatalf("decoding yaml: %v", err)
	}
	if generic["project"] != "DIN" {
		t.Errorf("yaml project = %v", generic["project"])
	}
}

func TestBuildSpace(t *testing.T) {
	space := model.Space{ID: "42", Key: "DOCS", Name: "Docs"}
	pages := []model.Page{
		{ID: "2", Title: "Zeta", Status: "current"},
		{ID: "1", Title: "Alpha", Status: "current"},
		{ID: "3", Title: "Old", Status: "archived"},
	}

	got := BuildSpace(space, pages, runTime)

	if got.TotalPages != 3 {
		t.Errorf("TotalPages = %d", got.TotalPages)
	}
	if diff := cmp.Diff([]Count{{"archived", 1}, {"current", 2}}, got.ByStatus); diff != "" {
		t.Errorf("ByStatus (-want +got):\n%s", diff)
	}
	if got.Pages[0].Title != "Alpha" || got.Pages[2].Title != "Zeta" {
		t.Errorf("pages not sorted by title: %+v", got.Pages)
	}
}

func TestDefaultFilename(t *testing.T) {
	got := DefaultFilename("jira_report", "DIN", runTime)
	want := filepath.Join("reports", "jira_report_DIN_20260310_153000.json")
	if got != want {
		t.Errorf("DefaultFilename = %q, want %q", got, want)
	}
}
