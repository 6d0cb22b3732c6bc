package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
	"github.com/dt-pm-tools/atlsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	issuesJQL    string
	issuesLimit  int
	reportOutput string
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Search Jira issues with JQL",
	Long: `Lists issues matching --jql, or every issue of the project in key order
when no query is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		jql := strings.TrimSpace(issuesJQL)
		if jql == "" {
			project, err := requireProject()
			if err != nil {
				return err
			}
			jql = model.IssueQuery{Project: project}.JQL()
		}

		issues, err := newClient().SearchIssues(cmd.Context(), jql, issuesLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(issues)
		}
		return printIssues(issues)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show project health: active, blocked and overdue issues",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := buildReport(cmd)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rep)
		}

		s := rep.Summary
		fmt.Printf("%s %s\n", ui.RenderBold("Project"), ui.RenderKey(rep.Project))
		summary := ui.Table{}
		summary.Append("Active issues", fmt.Sprint(s.TotalActive))
		summary.Append("Blocked", countStyle(s.BlockedCount))
		summary.Append("Overdue", countStyle(s.OverdueCount))
		summary.Append("Unassigned", fmt.Sprint(s.UnassignedCount))
		summary.Append("Open story points", model.FormatPoints(&s.StoryPoints))
		if err := summary.Render(os.Stdout); err != nil {
			return err
		}

		for _, section := range []struct {
			title  string
			counts []report.Count
		}{
			{"STATUS", rep.ByStatus},
			{"PRIORITY", rep.ByPriority},
		} {
			fmt.Println()
			tbl := ui.Table{Header: []string{section.title, "ISSUES"}}
			for _, c := range section.counts {
				tbl.Append(c.Name, fmt.Sprint(c.Count))
			}
			if err := tbl.Render(os.Stdout); err != nil {
				return err
			}
		}
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List blocked issues",
	Long: `Lists active issues that are blocked: their status is one of
jira.blocked_statuses, an open issue blocks them, or they are flagged (when
jira.flagged_is_blocked is set).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := buildReport(cmd)
		if err != nil {
			return err
		}
		return printRefs(rep.Blocked, "No blocked issues.")
	},
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List active issues past their due date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := buildReport(cmd)
		if err != nil {
			return err
		}
		return printRefs(rep.Overdue, "No overdue issues.")
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a project health report to a JSON or YAML file",
	Long: `Writes the full project report (summary, counts by status and priority,
blocked, overdue and unassigned issues). Without --output the file goes to
reports/jira_report_<PROJECT>_<timestamp>.json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := buildReport(cmd)
		if err != nil {
			return err
		}
		path := reportOutput
		if path == "" {
			path = report.DefaultFilename("jira_report", rep.Project, rep.GeneratedAt)
		}
		if err := report.Export(path, rep); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Report written to %s\n", path)
		return nil
	},
}

var transitionCmd = &cobra.Command{
	Use:   "transition <issue-key> <status>",
	Short: "Move a Jira issue to another status",
	Long: `Applies the workflow transition whose name or target status matches
<status> (case-insensitive). The available transitions are listed when none
matches.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		key := strings.ToUpper(args[0])
		tr, err := newClient().TransitionTo(cmd.Context(), key, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s: %s → %s\n", key, tr.Name, tr.To)
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <issue-key> <text>",
	Short: "Add a comment to a Jira issue",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		key := strings.ToUpper(args[0])
		if err := newClient().AddComment(cmd.Context(), key, strings.Join(args[1:], " ")); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Commented on %s\n", key)
		return nil
	},
}

// buildReport loads config and summarizes the project's active issues.
func buildReport(cmd *cobra.Command) (report.Report, error) {
	if err := loadConfig(); err != nil {
		return report.Report{}, err
	}
	project, err := requireProject()
	if err != nil {
		return report.Report{}, err
	}
	r := rules()
	issues, err := newClient().Query(cmd.Context(), model.IssueQuery{
		Project:         project,
		ExcludeStatuses: r.DoneStatuses,
	})
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(project, issues, r, timeNow()), nil
}

func printIssues(issues []model.Issue) error {
	if len(issues) == 0 {
		fmt.Fprintln(os.Stderr, "No issues.")
		return nil
	}
	r := rules()
	tbl := ui.Table{
		Header:   []string{"", "KEY", "TYPE", "STATUS", "PRIORITY", "ASSIGNEE", "SUMMARY"},
		MaxWidth: ui.TerminalWidth(0),
	}
	for _, i := range issues {
		blocked := r.IsBlocked(i)
		assignee := i.Assignee
		if assignee == "" {
			assignee = ui.RenderMuted("-")
		}
		tbl.Append(
			ui.RenderStatusIcon(i.StatusCategory, blocked),
			ui.RenderKey(i.Key),
			ui.RenderType(i.Type),
			ui.RenderStatus(i.Status, i.StatusCategory, blocked),
			ui.RenderPriority(i.Priority),
			assignee,
			i.Summary,
		)
	}
	return tbl.Render(os.Stdout)
}

func printRefs(refs []report.IssueRef, empty string) error {
	if jsonOutput {
		return printJSON(refs)
	}
	if len(refs) == 0 {
		fmt.Fprintln(os.Stderr, empty)
		return nil
	}
	tbl := ui.Table{Header: []string{"KEY", "STATUS", "SUMMARY"}, MaxWidth: ui.TerminalWidth(0)}
	for _, ref := range refs {
		tbl.Append(ui.RenderKey(ref.Key), ref.Status, ref.Summary)
	}
	return tbl.Render(os.Stdout)
}

func countStyle(n int) string {
	if n > 0 {
		return ui.StatusBlockedStyle.Render(fmt.Sprint(n))
	}
	return ui.StatusDoneStyle.Render(fmt.Sprint(n))
}

func init() {
	issuesCmd.Flags().StringVar(&issuesJQL, "jql", "", "JQL query (default: every issue of the project)")
	issuesCmd.Flags().IntVar(&issuesLimit, "limit", 50, "maximum number of issues (0 = all)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "report file (.json or .yaml)")
	rootCmd.AddCommand(issuesCmd, healthCmd, blockedCmd, overdueCmd, reportCmd, transitionCmd, commentCmd)
}
