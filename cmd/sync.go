package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/docsync"
	"github.com/dt-pm-tools/atlsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	syncType        string
	syncKey         string
	syncLimit       int
	syncConcurrency int
	syncPreview     bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync Jira issues into Confluence documentation pages",
	Long: `Renders Jira issues as Confluence pages and creates or updates them by
title within the space. Running the same sync twice updates the pages in
place.

Types:
  overview  "<PROJECT> - Project Overview" at the space root
  epic      one epic page (--key), under the overview page when it exists
  story     one story page (--key)
  full      overview, every epic, and the first --limit stories

With --preview nothing is written; the rendered pages are printed instead.`,
	Example: `  atlsync sync --type full --project DIN --space DOCS
  atlsync sync --type epic --key DIN-58
  atlsync sync --type full --limit 5 --preview`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := docsync.ParseKind(syncType)
		if err != nil {
			return err
		}
		key := strings.ToUpper(strings.TrimSpace(syncKey))
		if (kind == docsync.KindEpic || kind == docsync.KindStory) && key == "" {
			return fmt.Errorf("--key is required for --type %s", kind)
		}

		if err := loadConfig(); err != nil {
			return err
		}
		project, err := requireProject()
		if err != nil {
			return err
		}
		space, err := requireSpace()
		if err != nil {
			return err
		}

		client := newClient()
		orch := docsync.NewOrchestrator(client, client, syncOptions(), appLog)
		target := docsync.Target{Project: project, Space: space}
		ctx := cmd.Context()

		if syncPreview {
			docs, err := orch.Preview(ctx, target, kind, key, syncLimit)
			if err != nil {
				return err
			}
			return printDocuments(docs)
		}

		var entry docsync.Entry
		switch kind {
		case docsync.KindOverview:
			entry, err = orch.SyncOverview(ctx, target)
		case docsync.KindEpic:
			entry, err = orch.SyncEpic(ctx, target, key)
		case docsync.KindStory:
			entry, err = orch.SyncStory(ctx, target, key)
		case docsync.KindFull:
			result, err := orch.SyncFull(ctx, target, syncLimit)
			if perr := printFullResult(result); perr != nil {
				return perr
			}
			if err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d pages failed to sync", result.Failed, len(result.Entries))
			}
			return nil
		}
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(entry)
		}
		printEntry(entry)
		return nil
	},
}

func syncOptions() docsync.Options {
	concurrency := appConfig.Sync.Concurrency
	if syncConcurrency > 0 {
		concurrency = syncConcurrency
	}
	return docsync.Options{
		JiraURL:        appConfig.URL,
		ConfluenceURL:  appConfig.URL + "/wiki",
		Rules:          rules(),
		Types:          docsync.TypesFromConfig(appConfig.Jira),
		StoryPageLimit: appConfig.Sync.StoryPageLimit,
		Concurrency:    concurrency,
		Label:          appConfig.Sync.Label,
		Now:            timeNow,
	}
}

func printDocuments(docs []docsync.Document) error {
	if jsonOutput {
		return printJSON(docs)
	}
	for i, d := range docs {
		if i > 0 {
			fmt.Println()
		}
		parent := d.ParentRole
		if parent == "" {
			parent = "space root"
		}
		fmt.Printf("%s %s\n", ui.RenderBold(d.Title), ui.RenderMuted("("+d.Role+", under "+parent+")"))
		fmt.Println(d.Body)
	}
	fmt.Fprintf(os.Stderr, "\n%d page(s) rendered, nothing written\n", len(docs))
	return nil
}

func printEntry(e docsync.Entry) {
	if e.Err != nil {
		fmt.Println(ui.RenderFailed(fmt.Sprintf("%s: %v", e.Title, e.Err)))
		return
	}
	action := "updated"
	if e.Created {
		action = "created"
	}
	line := fmt.Sprintf("%s %s", action, e.Title)
	if e.URL != "" {
		line += "  " + ui.RenderMuted(e.URL)
	}
	fmt.Println(ui.RenderOK(line))
}

func printFullResult(res docsync.FullResult) error {
	if jsonOutput {
		type failure struct {
			Key   string `json:"key,omitempty"`
			Title string `json:"title"`
			Error string `json:"error"`
		}
		out := struct {
			Entries  []docsync.Entry `json:"entries"`
			Created  int             `json:"created"`
			Updated  int             `json:"updated"`
			Failed   int             `json:"failed"`
			Failures []failure       `json:"failures,omitempty"`
		}{Entries: res.Entries, Created: res.Created, Updated: res.Updated, Failed: res.Failed}
		for _, f := range res.Failures() {
			out.Failures = append(out.Failures, failure{Key: f.Key, Title: f.Title, Error: f.Err.Error()})
		}
		return printJSON(out)
	}

	for _, e := range res.Entries {
		printEntry(e)
	}
	fmt.Fprintf(os.Stderr, "\n%d created, %d updated, %d failed\n", res.Created, res.Updated, res.Failed)
	if failures := res.Failures(); len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "Failed:")
		for _, f := range failures {
			name := f.Key
			if name == "" {
				name = f.Role
			}
			fmt.Fprintf(os.Stderr, "  %s: %v\n", name, f.Err)
		}
	}
	return nil
}

func init() {
	syncCmd.Flags().StringVarP(&syncType, "type", "t", "full", "sync type: overview, epic, story or full")
	syncCmd.Flags().StringVarP(&syncKey, "key", "k", "", "issue key for --type epic or story")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "stories to sync with --type full (default sync.story_page_limit)")
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "parallel page syncs (default sync.concurrency)")
	syncCmd.Flags().BoolVar(&syncPreview, "preview", false, "render pages without writing to Confluence")
	rootCmd.AddCommand(syncCmd)
}
