package cmd

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
	"github.com/dt-pm-tools/atlsync/internal/ui"
	"github.com/spf13/cobra"
)

var (
	pagesLimit      int
	pageTitle       string
	pageContent     string
	pageFile        string
	pageParent      string
	spaceReportFile string
)

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List Confluence spaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		spaces, err := newClient().ListSpaces(cmd.Context(), pagesLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(spaces)
		}
		tbl := ui.Table{Header: []string{"KEY", "NAME", "TYPE"}}
		for _, s := range spaces {
			tbl.Append(ui.RenderKey(s.Key), s.Name, ui.RenderMuted(s.Type))
		}
		return tbl.Render(os.Stdout)
	},
}

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the current pages of a Confluence space",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		space, err := requireSpace()
		if err != nil {
			return err
		}
		pages, err := newClient().ListPages(cmd.Context(), space, pagesLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(pages)
		}
		printPages(pages)
		return nil
	},
}

var spaceDashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Summarize a Confluence space: page counts by status and every page",
	Long: `Builds a point-in-time report of a space. With --output the report is also
written to a JSON or YAML file (chosen by extension).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		spaceKey, err := requireSpace()
		if err != nil {
			return err
		}
		client := newClient()
		space, err := client.GetSpaceByKey(cmd.Context(), spaceKey)
		if err != nil {
			return err
		}
		pages, err := client.ListPages(cmd.Context(), spaceKey, 0)
		if err != nil {
			return err
		}
		rep := report.BuildSpace(space, pages, timeNow())

		if spaceReportFile != "" {
			if err := report.Export(spaceReportFile, rep); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Written to %s\n", spaceReportFile)
		}
		if jsonOutput {
			return printJSON(rep)
		}

		fmt.Printf("%s %s (%s)\n", ui.RenderBold("Space"), ui.RenderKey(space.Key), space.Name)
		fmt.Printf("Total pages: %d\n\n", rep.TotalPages)
		counts := ui.Table{Header: []string{"STATUS", "PAGES"}}
		for _, c := range rep.ByStatus {
			counts.Append(c.Name, fmt.Sprint(c.Count))
		}
		if err := counts.Render(os.Stdout); err != nil {
			return err
		}
		fmt.Println()
		pageTbl := ui.Table{Header: []string{"ID", "TITLE", "URL"}, MaxWidth: ui.TerminalWidth(0)}
		for _, p := range rep.Pages {
			pageTbl.Append(ui.RenderKey(p.ID), p.Title, ui.RenderMuted(p.URL))
		}
		return pageTbl.Render(os.Stdout)
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a Confluence page",
	Long: `Creates a page in a space from storage-format (XHTML) content given with
--content or read from --file. Optionally provide --parent to create a child
page under an existing page (by page ID or URL).

Examples:
  atlsync create --space ENG --title "Decision Log" --content "<p>Draft</p>"
  atlsync create --space ENG --title "Decision Log" --parent 85962893 --file body.html
  atlsync create --space ENG --title "Decision Log" --parent https://org.atlassian.net/wiki/spaces/ENG/pages/85962893/Parent`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pageTitle == "" {
			return fmt.Errorf("--title is required")
		}
		if err := loadConfig(); err != nil {
			return err
		}
		space, err := requireSpace()
		if err != nil {
			return err
		}
		body, err := readContent()
		if err != nil {
			return err
		}

		// Resolve parent page ID if provided
		parentID := ""
		if pageParent != "" {
			parentID = extractPageID(pageParent)
			if parentID == "" {
				return fmt.Errorf("could not extract page ID from --parent %q", pageParent)
			}
		}

		page, err := newClient().CreatePage(cmd.Context(), space, pageTitle, body, parentID)
		if err != nil {
			return fmt.Errorf("creating page: %w", err)
		}
		if jsonOutput {
			return printJSON(page)
		}
		fmt.Fprintf(os.Stderr, "Created Confluence page %s: %s\n", page.ID, page.Title)
		if page.URL != "" {
			fmt.Fprintf(os.Stderr, "URL: %s\n", page.URL)
		}
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <page-id-or-url>",
	Short: "Replace the body (and optionally the title) of a Confluence page",
	Long: `Replaces the storage body of a page with --content or the contents of
--file. A file written by 'atlsync export' can be edited and passed back as-is:
its front matter is stripped. The title is kept unless --title is given. The
page version is incremented automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageID := extractPageID(args[0])
		if pageID == "" {
			return fmt.Errorf("could not extract page ID from %q: expected a numeric ID or Confluence URL", args[0])
		}
		if err := loadConfig(); err != nil {
			return err
		}
		body, err := readContent()
		if err != nil {
			return err
		}

		client := newClient()
		title := pageTitle
		if title == "" {
			current, err := client.GetPage(cmd.Context(), pageID)
			if err != nil {
				return err
			}
			title = current.Title
		}

		page, err := client.UpdatePage(cmd.Context(), pageID, title, body, "")
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(page)
		}
		fmt.Fprintf(os.Stderr, "Updated Confluence page %s: %s (version %d)\n", page.ID, page.Title, page.Version)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <page-id-or-url>",
	Short: "Move a Confluence page to the trash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageID := extractPageID(args[0])
		if pageID == "" {
			return fmt.Errorf("could not extract page ID from %q: expected a numeric ID or Confluence URL", args[0])
		}
		if err := loadConfig(); err != nil {
			return err
		}
		if err := newClient().DeletePage(cmd.Context(), pageID); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Deleted Confluence page %s\n", pageID)
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <page-id-or-url> <label>",
	Short: "Add a label to a Confluence page",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageID := extractPageID(args[0])
		if pageID == "" {
			return fmt.Errorf("could not extract page ID from %q", args[0])
		}
		if err := loadConfig(); err != nil {
			return err
		}
		if err := newClient().AddLabel(cmd.Context(), pageID, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Labelled page %s with %q\n", pageID, args[1])
		return nil
	},
}

var attachCmd = &cobra.Command{
	Use:   "attach <page-id-or-url> <file>",
	Short: "Upload a file as a Confluence page attachment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pageID := extractPageID(args[0])
		if pageID == "" {
			return fmt.Errorf("could not extract page ID from %q", args[0])
		}
		if err := loadConfig(); err != nil {
			return err
		}
		id, err := newClient().AttachFile(cmd.Context(), pageID, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Attached %s to page %s (attachment %s)\n", args[1], pageID, id)
		return nil
	},
}

func printPages(pages []model.Page) {
	tbl := ui.Table{Header: []string{"ID", "TITLE", "STATUS", "URL"}}
	for _, p := range pages {
		tbl.Append(ui.RenderKey(p.ID), p.Title, p.Status, ui.RenderMuted(p.URL))
	}
	tbl.Render(os.Stdout)
}

// readContent returns the page body from --content or --file.
func readContent() (string, error) {
	switch {
	case pageContent != "" && pageFile != "":
		return "", fmt.Errorf("use either --content or --file, not both")
	case pageContent != "":
		return pageContent, nil
	case pageFile != "":
		data, err := os.ReadFile(pageFile)
		if err != nil {
			return "", fmt.Errorf("reading file: %w", err)
		}
		return stripFrontmatter(string(data)), nil
	default:
		return "", fmt.Errorf("--content or --file is required")
	}
}

var (
	numericID = regexp.MustCompile(`^\d+$`)
	pathID    = regexp.MustCompile(`/pages/(\d+)`)
	queryID   = regexp.MustCompile(`[?&]pageId=(\d+)`)
)

// extractPageID extracts a numeric page ID from either a raw ID or a Confluence URL.
// Supported URL formats:
//
//	https://org.atlassian.net/wiki/spaces/SPACE/pages/12345/Title
//	https://org.atlassian.net/wiki/spaces/SPACE/pages/12345
//	https://org.atlassian.net/wiki/pages/viewpage.action?pageId=12345
func extractPageID(input string) string {
	input = strings.TrimSpace(input)

	if numericID.MatchString(input) {
		return input
	}
	if match := pathID.FindStringSubmatch(input); match != nil {
		return match[1]
	}
	if match := queryID.FindStringSubmatch(input); match != nil {
		return match[1]
	}
	return ""
}

// sanitizeFilename creates a safe filename from a page title.
func sanitizeFilename(title string) string {
	// Replace unsafe characters with hyphens
	re := regexp.MustCompile(`[^a-zA-Z0-9\-_. ]+`)
	safe := re.ReplaceAllString(title, "-")
	safe = strings.TrimSpace(safe)
	if safe == "" {
		safe = "confluence-page"
	}
	return safe
}

// stripFrontmatter removes a leading YAML front matter block, returning just
// the page body.
func stripFrontmatter(content string) string {
	if strings.HasPrefix(content, "---\n") {
		if idx := strings.Index(content[4:], "\n---\n"); idx >= 0 {
			content = content[4+idx+5:]
		} else if strings.HasSuffix(content, "\n---") {
			content = ""
		}
	}
	return strings.TrimLeft(content, "\n")
}

func init() {
	spacesCmd.Flags().IntVar(&pagesLimit, "limit", 0, "maximum number of spaces (0 = all)")
	pagesCmd.Flags().IntVar(&pagesLimit, "limit", 0, "maximum number of pages (0 = all)")
	spaceDashboardCmd.Flags().StringVarP(&spaceReportFile, "output", "o", "", "also write the report to a .json or .yaml file")

	createCmd.Flags().StringVar(&pageTitle, "title", "", "page title (required)")
	createCmd.Flags().StringVar(&pageContent, "content", "", "page body in storage format")
	createCmd.Flags().StringVarP(&pageFile, "file", "f", "", "read the page body from a file")
	createCmd.Flags().StringVar(&pageParent, "parent", "", "parent page ID or URL (creates child page)")

	updateCmd.Flags().StringVar(&pageTitle, "title", "", "new page title (default keeps the current one)")
	updateCmd.Flags().StringVar(&pageContent, "content", "", "page body in storage format")
	updateCmd.Flags().StringVarP(&pageFile, "file", "f", "", "read the page body from a file")

	rootCmd.AddCommand(spacesCmd, pagesCmd, spaceDashboardCmd, createCmd, updateCmd, deleteCmd, labelCmd, attachCmd)
}
