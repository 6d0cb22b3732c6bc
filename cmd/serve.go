package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/atlassian"
	"github.com/dt-pm-tools/atlsync/internal/dashboard"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Atlassian dashboard web server",
	Long: `Serves a small dashboard and JSON API over Jira, Confluence and Compass:

  GET /health                     which clients are available
  GET /api/jira/health            project health (?project=)
  GET /api/jira/issues            issues (?jql=, ?limit=, default 50)
  GET /api/confluence/spaces      spaces with page counts
  GET /api/confluence/pages       pages of a space (?space=)
  GET /api/compass/components     Compass components

The server starts even when credentials are missing; the affected endpoints
answer 503 with the reason.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		useConfig(cfg)

		addr := serveAddr
		if addr == "" {
			addr = cfg.Dashboard.Addr
		}

		clients := dashboardClients(cmd.Context())
		srv := dashboard.NewServer(clients, dashboard.Options{
			Project: cfg.Project,
			Space:   cfg.Space,
			Rules:   rules(),
			Now:     timeNow,
		}, appLog)

		fmt.Fprintf(os.Stderr, "Dashboard listening on %s\n", addr)
		return srv.Start(cmd.Context(), addr)
	},
}

// dashboardClients connects what the loaded config allows. Compass is only
// offered when the site's cloud id resolves.
func dashboardClients(ctx context.Context) dashboard.Clients {
	if err := appConfig.Validate(); err != nil {
		err = fmt.Errorf("invalid config: %w", err)
		appLog.Warn("dashboard running without Atlassian clients", "error", err)
		return dashboard.Clients{JiraErr: err, ConfluenceErr: err, CompassErr: err}
	}

	client := atlassian.NewClient(appConfig)
	clients := dashboard.Clients{Jira: client, Confluence: client}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := client.CloudID(probeCtx); err != nil {
		appLog.Warn("compass unavailable", "error", err)
		clients.CompassErr = err
	} else {
		clients.Compass = client
	}
	return clients
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default dashboard.addr, :8000)")
	rootCmd.AddCommand(serveCmd)
}
