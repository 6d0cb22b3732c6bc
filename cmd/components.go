package cmd

import (
	"fmt"
	"os"

	"github.com/dt-pm-tools/atlsync/internal/ui"
	"github.com/spf13/cobra"
)

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List Compass components",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		components, err := newClient().ListComponents(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(components)
		}
		if len(components) == 0 {
			fmt.Fprintln(os.Stderr, "No components.")
			return nil
		}

		tbl := ui.Table{Header: []string{"NAME", "TYPE", "DESCRIPTION"}, MaxWidth: ui.TerminalWidth(0)}
		for _, c := range components {
			tbl.Append(ui.RenderBold(c.Name), c.Type, c.Description)
		}
		return tbl.Render(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(componentsCmd)
}
