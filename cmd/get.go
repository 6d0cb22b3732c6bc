package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/ui"
	"github.com/spf13/cobra"
)

var showTransitions bool

var getCmd = &cobra.Command{
	Use:   "get <issue-key>",
	Short: "Show a Jira issue",
	Long: `Fetches a Jira issue by key and prints its fields, blockers and
description (as Confluence storage markup). With --transitions the workflow
transitions available from the current status are listed too.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		issueKey := strings.ToUpper(args[0])

		client := newClient()
		issue, err := client.GetIssue(cmd.Context(), issueKey)
		if err != nil {
			return err
		}

		var transitions []model.Transition
		if showTransitions {
			transitions, err = client.GetTransitions(cmd.Context(), issueKey)
			if err != nil {
				return err
			}
		}

		if jsonOutput {
			return printJSON(struct {
				model.Issue
				Transitions []model.Transition `json:"transitions,omitempty"`
			}{issue, transitions})
		}

		r := rules()
		blocked := r.IsBlocked(issue)
		fmt.Printf("%s %s  %s\n", ui.RenderStatusIcon(issue.StatusCategory, blocked), ui.RenderKey(issue.Key), ui.RenderBold(issue.Summary))
		fmt.Println(ui.RenderMuted(client.BaseURL() + "/browse/" + issue.Key))
		fmt.Println()

		fields := ui.Table{}
		fields.Append("Type", ui.RenderType(issue.Type))
		fields.Append("Status", ui.RenderStatus(issue.Status, issue.StatusCategory, blocked))
		fields.Append("Priority", ui.RenderPriority(issue.Priority))
		fields.Append("Assignee", orNone(issue.Assignee))
		fields.Append("Parent", orNone(issue.ParentKey))
		fields.Append("Story points", model.FormatPoints(issue.StoryPoints))
		if issue.Estimate != "" {
			fields.Append("Estimate", issue.Estimate)
		}
		if issue.DueDate != nil {
			due := issue.DueDate.Format("2006-01-02")
			if r.IsOverdue(issue, timeNow()) {
				due = ui.StatusBlockedStyle.Render(due + " (overdue)")
			}
			fields.Append("Due", due)
		}
		if len(issue.BlockedBy) > 0 {
			fields.Append("Blocked by", strings.Join(issue.BlockedBy, ", "))
		}
		if err := fields.Render(os.Stdout); err != nil {
			return err
		}

		if issue.Description != "" {
			fmt.Println()
			fmt.Println(issue.Description)
		}

		if len(transitions) > 0 {
			fmt.Println()
			tbl := ui.Table{Header: []string{"TRANSITION", "TO"}}
			for _, t := range transitions {
				tbl.Append(t.Name, t.To)
			}
			return tbl.Render(os.Stdout)
		}
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return ui.RenderMuted("None")
	}
	return s
}

func init() {
	getCmd.Flags().BoolVar(&showTransitions, "transitions", false, "also list available workflow transitions")
	rootCmd.AddCommand(getCmd)
}
