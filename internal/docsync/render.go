package docsync

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dt-pm-tools/atlsync/internal/model"
	"github.com/dt-pm-tools/atlsync/internal/report"
)

const generatedNotice = `<p><em>This page is generated from Jira by atlsync. Manual edits are overwritten on the next sync.</em></p>`

// Renderer builds Confluence storage-format documents from issue snapshots.
// It performs no I/O and takes the run time as Now, so equal input renders
// byte-identical bodies.
type Renderer struct {
	JiraURL       string // site URL; issue keys link to <JiraURL>/browse/<key>
	ConfluenceURL string // wiki base URL; page refs with an id link here
	Rules         report.Rules
	Types         IssueTypes
	Now           time.Time
}

// ProjectSnapshot is every issue gathered for one full sync.
type ProjectSnapshot struct {
	Project    string
	Issues     []model.Issue
	StoryLimit int // 0 renders every story
}

// Document is one rendered page and the role of its parent page.
type Document struct {
	Role       string `json:"role"`
	Key        string `json:"key,omitempty"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	ParentRole string `json:"parent_role,omitempty"`
}

// RenderProjectOverview renders the project overview from its active issues.
func (r Renderer) RenderProjectOverview(project string, issues []model.Issue) string {
	active := r.active(issues)
	rep := report.Build(project, active, r.Rules, r.Now)
	h := BuildHierarchy(active, r.Types)

	var b strings.Builder
	b.WriteString(generatedNotice)

	b.WriteString("<h2>Summary</h2>")
	writeFields(&b, [][2]string{
		{"Project", esc(project)},
		{"Total active issues", strconv.Itoa(rep.Summary.TotalActive)},
		{"Blocked", strconv.Itoa(rep.Summary.BlockedCount)},
		{"Overdue", strconv.Itoa(rep.Summary.OverdueCount)},
		{"Unassigned", strconv.Itoa(rep.Summary.UnassignedCount)},
		{"Open story points", formatTotal(rep.Summary.StoryPoints)},
	})

	b.WriteString("<h2>Epics</h2>")
	epics := h.Epics()
	if len(epics) == 0 {
		b.WriteString("<p>No active epics.</p>")
	} else {
		rows := make([][]string, 0, len(epics))
		for _, e := range epics {
			rows = append(rows, []string{
				r.pageLink(PageRef{Title: EpicTitle(e)}),
				r.issueLink(e.Key),
				r.status(e),
				strconv.Itoa(len(h.Children(e.Key))),
			})
		}
		writeTable(&b, []string{"Epic", "Key", "Status", "Open children"}, rows)
	}

	b.WriteString("<h2>Issues by Status</h2>")
	writeCounts(&b, "Status", rep.ByStatus)
	b.WriteString("<h2>Issues by Priority</h2>")
	writeCounts(&b, "Priority", rep.ByPriority)

	b.WriteString("<h2>Blocked Issues</h2>")
	r.writeRefList(&b, rep.Blocked)
	b.WriteString("<h2>Overdue Issues</h2>")
	r.writeRefList(&b, rep.Overdue)

	b.WriteString("<h2>Unlinked issues</h2>")
	orphans := h.Orphans()
	if len(orphans) == 0 {
		b.WriteString("<p>None.</p>")
	} else {
		rows := make([][]string, 0, len(orphans))
		for _, o := range orphans {
			rows = append(rows, []string{r.issueLink(o.Key), esc(o.Type), esc(o.Summary), r.status(o)})
		}
		writeTable(&b, []string{"Key", "Type", "Summary", "Status"}, rows)
	}

	return b.String()
}

// RenderEpic renders an epic page with its child stories in key order and
// their story point total. up links back to the overview when non-zero.
func (r Renderer) RenderEpic(epic model.Issue, stories []model.Issue, up PageRef) string {
	stories = sorted(stories)

	var b strings.Builder
	b.WriteString(generatedNotice)
	r.writeUp(&b, "Project overview", up)

	b.WriteString("<h2>Epic Details</h2>")
	writeFields(&b, [][2]string{
		{"Key", r.issueLink(epic.Key)},
		{"Summary", esc(epic.Summary)},
		{"Status", r.status(epic)},
		{"Priority", orDefault(epic.Priority, "None")},
		{"Assignee", orDefault(epic.Assignee, "Unassigned")},
		{"Due date", formatDate(epic.DueDate)},
	})
	writeDescription(&b, epic)

	b.WriteString("<h2>Stories</h2>")
	var total float64
	if len(stories) == 0 {
		b.WriteString("<p>No stories.</p>")
	} else {
		rows := make([][]string, 0, len(stories))
		for _, s := range stories {
			if p, ok := s.Points(); ok {
				total += p
			}
			rows = append(rows, []string{
				r.issueLink(s.Key),
				esc(s.Summary),
				r.status(s),
				model.FormatPoints(s.StoryPoints),
			})
		}
		writeTable(&b, []string{"Key", "Summary", "Status", "Story Points"}, rows)
	}
	fmt.Fprintf(&b, "<p><strong>Total story points:</strong> %s</p>", formatTotal(total))

	return b.String()
}

// RenderStory renders a story page with its subtasks in key order. up links
// to the epic page when non-zero.
func (r Renderer) RenderStory(story model.Issue, subtasks []model.Issue, up PageRef) string {
	subtasks = sorted(subtasks)

	var b strings.Builder
	b.WriteString(generatedNotice)
	r.writeUp(&b, "Epic", up)

	epic := "None"
	if story.ParentKey != "" {
		epic = r.issueLink(story.ParentKey)
	}
	fields := [][2]string{
		{"Key", r.issueLink(story.Key)},
		{"Summary", esc(story.Summary)},
		{"Status", r.status(story)},
		{"Priority", orDefault(story.Priority, "None")},
		{"Assignee", orDefault(story.Assignee, "Unassigned")},
		{"Story Points", model.FormatPoints(story.StoryPoints)},
		{"Epic", epic},
		{"Due date", formatDate(story.DueDate)},
	}
	if len(story.BlockedBy) > 0 {
		links := make([]string, 0, len(story.BlockedBy))
		for _, key := range story.BlockedBy {
			links = append(links, r.issueLink(key))
		}
		fields = append(fields, [2]string{"Blocked by", strings.Join(links, ", ")})
	}
	b.WriteString("<h2>Story Details</h2>")
	writeFields(&b, fields)
	writeDescription(&b, story)

	b.WriteString("<h2>Subtasks</h2>")
	if len(subtasks) == 0 {
		b.WriteString("<p>No subtasks.</p>")
	} else {
		rows := make([][]string, 0, len(subtasks))
		for _, s := range subtasks {
			rows = append(rows, []string{
				r.issueLink(s.Key),
				esc(s.Summary),
				r.status(s),
				orDefault(s.Estimate, "N/A"),
			})
		}
		writeTable(&b, []string{"Key", "Summary", "Status", "Estimate"}, rows)
	}

	return b.String()
}

// RenderFull renders the overview, every epic and the first StoryLimit
// stories of the snapshot. Parents come before their children and page
// links are by title.
func (r Renderer) RenderFull(s ProjectSnapshot) []Document {
	h := BuildHierarchy(s.Issues, r.Types)

	overviewTitle := OverviewTitle(s.Project)
	docs := []Document{{
		Role:  RoleOverview,
		Title: overviewTitle,
		Body:  r.RenderProjectOverview(s.Project, h.All()),
	}}

	for _, epic := range h.Epics() {
		docs = append(docs, Document{
			Role:       EpicRole(epic.Key),
			Key:        epic.Key,
			Title:      EpicTitle(epic),
			Body:       r.RenderEpic(epic, r.stories(h.Children(epic.Key)), PageRef{Title: overviewTitle}),
			ParentRole: RoleOverview,
		})
	}

	stories := h.Stories()
	if s.StoryLimit > 0 && len(stories) > s.StoryLimit {
		stories = stories[:s.StoryLimit]
	}
	for _, story := range stories {
		doc := Document{
			Role:  StoryRole(story.Key),
			Key:   story.Key,
			Title: StoryTitle(story),
		}
		var up PageRef
		if epic, ok := h.Issue(story.ParentKey); ok && r.Types.IsEpic(epic) {
			up = PageRef{Title: EpicTitle(epic)}
			doc.ParentRole = EpicRole(epic.Key)
		}
		doc.Body = r.RenderStory(story, h.Children(story.Key), up)
		docs = append(docs, doc)
	}

	return docs
}

func (r Renderer) active(issues []model.Issue) []model.Issue {
	out := make([]model.Issue, 0, len(issues))
	for _, i := range issues {
		if !r.Rules.IsDone(i) {
			out = append(out, i)
		}
	}
	return out
}

// stories keeps the issues of the story type.
func (r Renderer) stories(issues []model.Issue) []model.Issue {
	var out []model.Issue
	for _, i := range issues {
		if r.Types.IsStory(i) {
			out = append(out, i)
		}
	}
	return out
}

func (r Renderer) issueLink(key string) string {
	if r.JiraURL == "" {
		return esc(key)
	}
	href := strings.TrimRight(r.JiraURL, "/") + "/browse/" + url.PathEscape(key)
	return fmt.Sprintf(`<a href="%s">%s</a>`, esc(href), esc(key))
}

// pageLink links by page id when known, otherwise by title within the space.
func (r Renderer) pageLink(ref PageRef) string {
	if ref.ID != "" && r.ConfluenceURL != "" {
		href := strings.TrimRight(r.ConfluenceURL, "/") + "/pages/viewpage.action?pageId=" + url.QueryEscape(ref.ID)
		text := ref.Title
		if text == "" {
			text = ref.ID
		}
		return fmt.Sprintf(`<a href="%s">%s</a>`, esc(href), esc(text))
	}
	return fmt.Sprintf(`<ac:link><ri:page ri:content-title="%s" /></ac:link>`, esc(ref.Title))
}

func (r Renderer) writeUp(b *strings.Builder, label string, up PageRef) {
	if up.IsZero() {
		return
	}
	fmt.Fprintf(b, "<p><strong>%s:</strong> %s</p>", esc(label), r.pageLink(up))
}

// status renders a status lozenge coloured by done / blocked / in progress.
func (r Renderer) status(i model.Issue) string {
	colour := "Grey"
	switch {
	case r.Rules.IsDone(i):
		colour = "Green"
	case r.Rules.IsBlocked(i):
		colour = "Red"
	case i.StatusCategory == "indeterminate":
		colour = "Blue"
	}
	return fmt.Sprintf(`<ac:structured-macro ac:name="status"><ac:parameter ac:name="colour">%s</ac:parameter><ac:parameter ac:name="title">%s</ac:parameter></ac:structured-macro>`,
		colour, esc(i.Status))
}

func (r Renderer) writeRefList(b *strings.Builder, refs []report.IssueRef) {
	if len(refs) == 0 {
		b.WriteString("<p>None.</p>")
		return
	}
	b.WriteString("<ul>")
	for _, ref := range refs {
		fmt.Fprintf(b, "<li>%s: %s (%s)</li>", r.issueLink(ref.Key), esc(ref.Summary), esc(ref.Status))
	}
	b.WriteString("</ul>")
}

func writeDescription(b *strings.Builder, i model.Issue) {
	b.WriteString("<h2>Description</h2>")
	if strings.TrimSpace(i.Description) == "" {
		b.WriteString("<p><em>No description.</em></p>")
		return
	}
	// Already storage markup, escaped when converted from ADF.
	b.WriteString(i.Description)
}

// writeFields renders a two-column key/value table. Values are markup.
func writeFields(b *strings.Builder, fields [][2]string) {
	b.WriteString("<table><tbody>")
	for _, f := range fields {
		fmt.Fprintf(b, "<tr><th>%s</th><td>%s</td></tr>", esc(f[0]), f[1])
	}
	b.WriteString("</tbody></table>")
}

// writeTable renders a table with a header row. Cells are markup.
func writeTable(b *strings.Builder, header []string, rows [][]string) {
	b.WriteString("<table><tbody><tr>")
	for _, h := range header {
		fmt.Fprintf(b, "<th>%s</th>", esc(h))
	}
	b.WriteString("</tr>")
	for _, row := range rows {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
}

func writeCounts(b *strings.Builder, label string, counts []report.Count) {
	if len(counts) == 0 {
		b.WriteString("<p>None.</p>")
		return
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{esc(c.Name), strconv.Itoa(c.Count)})
	}
	writeTable(b, []string{label, "Count"}, rows)
}

func sorted(issues []model.Issue) []model.Issue {
	out := append([]model.Issue(nil), issues...)
	model.SortIssues(out)
	return out
}

func formatTotal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "None"
	}
	return t.Format(time.DateOnly)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return esc(s)
}

func esc(s string) string {
	return html.EscapeString(s)
}
