package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"gopkg.in/yaml.v3"
)

// NoPriority labels issues without a priority.
const NoPriority = "None"

// Count is one row of a grouped count, e.g. status "In Progress" → 4.
type Count struct {
	Name  string `json:"name"  yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// IssueRef is the short form of an issue used in report lists.
type IssueRef struct {
	Key     string `json:"key"     yaml:"key"`
	Summary string `json:"summary" yaml:"summary"`
	Status  string `json:"status"  yaml:"status"`
}

// Summary holds the headline numbers of a project report.
type Summary struct {
	TotalActive     int     `json:"total_active"     yaml:"total_active"`
	BlockedCount    int     `json:"blocked_count"    yaml:"blocked_count"`
	OverdueCount    int     `json:"overdue_count"    yaml:"overdue_count"`
	UnassignedCount int     `json:"unassigned_count" yaml:"unassigned_count"`
	StoryPoints     float64 `json:"story_points"     yaml:"story_points"`
}

// Report is a point-in-time project health report over active issues.
type Report struct {
	Project     string     `json:"project"      yaml:"project"`
	GeneratedAt time.Time  `json:"generated_at" yaml:"generated_at"`
	Summary     Summary    `json:"summary"      yaml:"summary"`
	ByStatus    []Count    `json:"issues_by_status"   yaml:"issues_by_status"`
	ByPriority  []Count    `json:"issues_by_priority" yaml:"issues_by_priority"`
	Blocked     []IssueRef `json:"blocked"      yaml:"blocked"`
	Overdue     []IssueRef `json:"overdue"      yaml:"overdue"`
	Unassigned  []IssueRef `json:"unassigned"   yaml:"unassigned"`
}

// Build summarizes the active (not done) issues of a project. Counts are
// sorted by name and issue lists by key, so equal input gives equal output.
func Build(project string, issues []model.Issue, rules Rules, now time.Time) Report {
	active := make([]model.Issue, 0, len(issues))
	for _, i := range issues {
		if !rules.IsDone(i) {
			active = append(active, i)
		}
	}
	model.SortIssues(active)

	rep := Report{
		Project:     project,
		GeneratedAt: now,
		Blocked:     []IssueRef{},
		Overdue:     []IssueRef{},
		Unassigned:  []IssueRef{},
	}
	byStatus := map[string]int{}
	byPriority := map[string]int{}

	for _, i := range active {
		byStatus[i.Status]++
		prio := i.Priority
		if prio == "" {
			prio = NoPriority
		}
		byPriority[prio]++

		if p, ok := i.Points(); ok {
			rep.Summary.StoryPoints += p
		}
		ref := IssueRef{Key: i.Key, Summary: i.Summary, Status: i.Status}
		if rules.IsBlocked(i) {
			rep.Blocked = append(rep.Blocked, ref)
		}
		if rules.IsOverdue(i, now) {
			rep.Overdue = append(rep.Overdue, ref)
		}
		if i.Assignee == "" {
			rep.Unassigned = append(rep.Unassigned, ref)
		}
	}

	rep.ByStatus = sortedCounts(byStatus)
	rep.ByPriority = sortedCounts(byPriority)
	rep.Summary.TotalActive = len(active)
	rep.Summary.BlockedCount = len(rep.Blocked)
	rep.Summary.OverdueCount = len(rep.Overdue)
	rep.Summary.UnassignedCount = len(rep.Unassigned)
	return rep
}

func sortedCounts(m map[string]int) []Count {
	counts := make([]Count, 0, len(m))
	for name, n := range m {
		counts = append(counts, Count{Name: name, Count: n})
	}
	slices.SortFunc(counts, func(a, b Count) int { return strings.Compare(a.Name, b.Name) })
	return counts
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Export writes v to path, choosing YAML for .yaml/.yml and JSON otherwise.
// Missing parent directories are created.
func Export(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = WriteYAML(f, v)
	default:
		err = WriteJSON(f, v)
	}
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}

// DefaultFilename returns reports/<prefix>_<name>_<timestamp>.json.
func DefaultFilename(prefix, name string, now time.Time) string {
	return filepath.Join("reports", fmt.Sprintf("%s_%s_%s.json", prefix, name, now.Format("20060102_150405")))
}
