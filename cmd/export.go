package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportOutput string

// exportMeta is the front matter of an exported page.
type exportMeta struct {
	ID       string    `yaml:"id"`
	Title    string    `yaml:"title"`
	Space    string    `yaml:"space,omitempty"`
	Version  int       `yaml:"version"`
	URL      string    `yaml:"url,omitempty"`
	Exported time.Time `yaml:"exported"`
}

var exportCmd = &cobra.Command{
	Use:   "export <page-id-or-url>",
	Short: "Save a point-in-time snapshot of a Confluence page",
	Long: `Writes the page's storage-format body preceded by YAML front matter (id,
title, space, version, url, export time). Without --output the file is named
after the page title. The result can be edited and passed to
'atlsync update --file'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageID := extractPageID(args[0])
		if pageID == "" {
			return fmt.Errorf("could not extract page ID from %q: expected a numeric ID or Confluence URL", args[0])
		}
		if err := loadConfig(); err != nil {
			return err
		}

		client := newClient()
		page, err := client.GetPage(cmd.Context(), pageID)
		if err != nil {
			return err
		}

		// Non-fatal if space lookup fails
		if page.SpaceKey == "" && page.SpaceID != "" {
			if space, err := client.GetSpace(cmd.Context(), page.SpaceID); err == nil {
				page.SpaceKey = space.Key
			} else {
				appLog.Debug("space lookup failed", "space_id", page.SpaceID, "err", err)
			}
		}

		out, err := marshalExport(page, timeNow().UTC())
		if err != nil {
			return err
		}

		path := exportOutput
		if path == "" {
			path = sanitizeFilename(page.Title) + ".html"
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}
		if err := os.WriteFile(path, []byte(out), 0644); err != nil {
			return fmt.Errorf("writing file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Written to %s\n", path)
		return nil
	},
}

// marshalExport renders front matter followed by the storage body.
func marshalExport(page model.Page, now time.Time) (string, error) {
	meta, err := yaml.Marshal(exportMeta{
		ID:       page.ID,
		Title:    page.Title,
		Space:    page.SpaceKey,
		Version:  page.Version,
		URL:      page.URL,
		Exported: now,
	})
	if err != nil {
		return "", fmt.Errorf("marshalling front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(meta)
	b.WriteString("---\n")
	b.WriteString(page.Body)
	if !strings.HasSuffix(page.Body, "\n") {
		b.WriteString("\n")
	}
	return b.String(), nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default <title>.html)")
	rootCmd.AddCommand(exportCmd)
}
