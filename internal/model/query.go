package model

import (
	"fmt"
	"strings"
)

// IssueQuery is a structured issue search. It renders to JQL for the Jira
// client and can be evaluated locally by in-memory sources.
type IssueQuery struct {
	Project         string
	Types           []string
	ParentKey       string
	ExcludeStatuses []string
	Limit           int
}

// JQL renders the query. Results are always ordered by key.
func (q IssueQuery) JQL() string {
	var clauses []string
	if q.Project != "" {
		clauses = append(clauses, fmt.Sprintf("project = %s", quoteJQL(q.Project)))
	}
	if q.ParentKey != "" {
		clauses = append(clauses, fmt.Sprintf("parent = %s", quoteJQL(q.ParentKey)))
	}
	if len(q.Types) == 1 {
		clauses = append(clauses, fmt.Sprintf("issuetype = %s", quoteJQL(q.Types[0])))
	} else if len(q.Types) > 1 {
		clauses = append(clauses, fmt.Sprintf("issuetype in (%s)", quoteList(q.Types)))
	}
	if len(q.ExcludeStatuses) > 0 {
		clauses = append(clauses, fmt.Sprintf("status not in (%s)", quoteList(q.ExcludeStatuses)))
	}
	return strings.Join(clauses, " AND ") + " ORDER BY key ASC"
}

// Matches reports whether an issue satisfies the query's filters. Limit is
// not considered.
func (q IssueQuery) Matches(issue Issue) bool {
	if q.Project != "" && !strings.HasPrefix(issue.Key, q.Project+"-") {
		return false
	}
	if q.ParentKey != "" && issue.ParentKey != q.ParentKey {
		return false
	}
	if len(q.Types) > 0 && !containsFold(q.Types, issue.Type) {
		return false
	}
	if containsFold(q.ExcludeStatuses, issue.Status) {
		return false
	}
	return true
}

func quoteJQL(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteJQL(v)
	}
	return strings.Join(quoted, ", ")
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
