package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/atlassian"
	"github.com/dt-pm-tools/atlsync/internal/config"
	"github.com/dt-pm-tools/atlsync/internal/logger"
	"github.com/dt-pm-tools/atlsync/internal/report"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	flagProject string
	flagSpace   string
	jsonOutput  bool
	verbose     bool

	appConfig config.Config
	appLog    = logger.Discard()
	version   = "0.1.0"

	timeNow = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "atlsync",
	Short: "Jira to Confluence documentation sync and Atlassian reporting",
	Long: `atlsync turns live Jira issues into Confluence documentation pages and
offers read-mostly access to Jira, Confluence and Compass from the terminal.

Pages are matched by title within a space, so re-running a sync updates the
same pages instead of creating duplicates.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context so in-flight requests stop cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.atlsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "Jira project key (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSpace, "space", "", "Confluence space key (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig loads and validates configuration and sets up logging. Commands
// that need Atlassian access call this.
func loadConfig() error {
	cfg, err := readConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w\nRun 'atlsync config' to set up credentials", err)
	}
	useConfig(cfg)
	return nil
}

// readConfig loads the config file and applies the flag overrides without
// validating.
func readConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if flagProject != "" {
		cfg.Project = flagProject
	}
	if flagSpace != "" {
		cfg.Space = flagSpace
	}
	cfg.Project = strings.ToUpper(strings.TrimSpace(cfg.Project))
	cfg.Space = strings.TrimSpace(cfg.Space)
	return cfg, nil
}

func useConfig(cfg config.Config) {
	appConfig = cfg
	appLog = logger.New(cfg.Log, os.Stderr, verbose)
	slog.SetDefault(appLog)
}

func newClient() *atlassian.Client {
	return atlassian.NewClient(appConfig)
}

func requireProject() (string, error) {
	if appConfig.Project == "" {
		return "", fmt.Errorf("a Jira project is required: pass --project or set project in the config file (ATLSYNC_PROJECT)")
	}
	return appConfig.Project, nil
}

func requireSpace() (string, error) {
	if appConfig.Space == "" {
		return "", fmt.Errorf("a Confluence space is required: pass --space or set space in the config file (ATLSYNC_SPACE)")
	}
	return appConfig.Space, nil
}

func rules() report.Rules {
	return report.RulesFromConfig(appConfig.Jira)
}

func printJSON(v any) error {
	return report.WriteJSON(os.Stdout, v)
}
