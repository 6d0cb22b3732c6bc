package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search Confluence with CQL",
	Long: `Runs a CQL query. A bare word or phrase is searched as page text; with
--space the query is restricted to that space.

Examples:
  atlsync search --query "release notes"
  atlsync search --query 'type = page AND label = "jira-sync"' --space DOCS`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchQuery == "" {
			return fmt.Errorf("--query is required")
		}
		if err := loadConfig(); err != nil {
			return err
		}

		results, err := newClient().SearchCQL(cmd.Context(), buildCQL(searchQuery, appConfig.Space), searchLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(results)
		}
		if len(results) == 0 {
			fmt.Fprintln(os.Stderr, "No results.")
			return nil
		}
		tbl := ui.Table{Header: []string{"ID", "TYPE", "SPACE", "TITLE"}}
		for _, r := range results {
			tbl.Append(ui.RenderKey(r.ID), ui.RenderMuted(r.Type), r.SpaceKey, r.Title)
		}
		return tbl.Render(os.Stdout)
	},
}

// cqlOperators mark a query as CQL rather than free text.
var cqlOperators = []string{"=", "~", " AND ", " OR ", " IN ", " ORDER BY "}

// buildCQL turns free text into a text search and scopes the query to space
// when one is given.
func buildCQL(query, space string) string {
	query = strings.TrimSpace(query)
	isCQL := false
	for _, op := range cqlOperators {
		if strings.Contains(strings.ToUpper(query), op) {
			isCQL = true
			break
		}
	}
	if !isCQL {
		query = fmt.Sprintf(`text ~ "%s"`, strings.ReplaceAll(query, `"`, `\"`))
	}
	if space != "" {
		query = fmt.Sprintf(`space = "%s" AND (%s)`, space, query)
	}
	return query
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "CQL query or free text (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 25, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
