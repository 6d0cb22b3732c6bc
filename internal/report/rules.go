// Package report classifies issues (blocked, overdue, done) and builds the
// project and space summaries shared by the CLI, the dashboard and the
// generated overview page.
package report

import (
	"strings"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/config"
	"github.com/dt-pm-tools/atlsync/internal/model"
)

// Rules holds the blocked and overdue predicates. Status names are compared
// case-insensitively.
type Rules struct {
	BlockedStatuses  []string
	DoneStatuses     []string
	FlaggedIsBlocked bool
}

// RulesFromConfig builds Rules from the jira config section.
func RulesFromConfig(cfg config.JiraConfig) Rules {
	return Rules{
		BlockedStatuses:  cfg.BlockedStatuses,
		DoneStatuses:     cfg.DoneStatuses,
		FlaggedIsBlocked: cfg.FlaggedIsBlocked,
	}
}

// IsDone reports whether the issue's status is in the done set or its status
// category is "done".
func (r Rules) IsDone(i model.Issue) bool {
	return i.StatusCategory == "done" || containsFold(r.DoneStatuses, i.Status)
}

// IsBlocked reports whether the issue's status is in the blocked set, an open
// issue blocks it, or it carries the impediment flag and FlaggedIsBlocked is
// set.
func (r Rules) IsBlocked(i model.Issue) bool {
	if containsFold(r.BlockedStatuses, i.Status) {
		return true
	}
	if len(i.BlockedBy) > 0 {
		return true
	}
	return r.FlaggedIsBlocked && i.Flagged
}

// IsOverdue reports whether the due date is strictly before the calendar day
// of now (UTC) and the issue is not done.
func (r Rules) IsOverdue(i model.Issue, now time.Time) bool {
	if i.DueDate == nil || r.IsDone(i) {
		return false
	}
	return i.DueDate.Before(startOfDay(now))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
