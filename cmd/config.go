package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/dt-pm-tools/atlsync/internal/atlassian"
	"github.com/dt-pm-tools/atlsync/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure Atlassian connection settings",
	Long: `Interactively set up the Atlassian site URL, email, API token and the default
Jira project and Confluence space. Settings are saved to ~/.atlsync.yaml.

Sync and reporting options (issue type names, blocked and done statuses,
story page limit, label) keep their current values and can be edited in the
file directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		// Load existing config for defaults
		cfg, _ := config.Load(cfgFile)

		cfg.URL = config.NormalizeURL(prompt(reader, "Atlassian site URL", cfg.URL, "e.g., https://your-org.atlassian.net"))
		cfg.Email = prompt(reader, "Email", cfg.Email, "")

		// Token (masked input)
		fmt.Print("API Token (input hidden, enter keeps current): ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // newline after hidden input
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		if token := strings.TrimSpace(string(tokenBytes)); token != "" {
			cfg.Token = token
		}

		cfg.Project = strings.ToUpper(prompt(reader, "Default Jira project key", cfg.Project, "optional"))
		cfg.Space = prompt(reader, "Default Confluence space key", cfg.Space, "optional")

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}

		if err := config.Save(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration saved to %s\n", path)

		if version, err := atlassian.NewClient(cfg).ServerInfo(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not reach Jira: %v\n", err)
		} else {
			fmt.Printf("Connected to Jira %s\n", version)
		}
		return nil
	},
}

// prompt reads one line, returning current when the answer is empty.
func prompt(reader *bufio.Reader, label, current, hint string) string {
	switch {
	case current != "":
		fmt.Printf("%s [%s]: ", label, current)
	case hint != "":
		fmt.Printf("%s (%s): ", label, hint)
	default:
		fmt.Printf("%s: ", label)
	}
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return current
	}
	return answer
}

func init() {
	rootCmd.AddCommand(configCmd)
}
