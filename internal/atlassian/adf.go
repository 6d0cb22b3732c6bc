package atlassian

import (
	"fmt"
	"html"
	"strings"
)

// ADFToStorage converts a Jira ADF document into Confluence storage markup.
// Unsupported block nodes are dropped with their text content kept; all text
// is escaped.
func ADFToStorage(node *ADFNode) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	renderNode(&b, node)
	return b.String()
}

// TextDocument wraps plain text in an ADF document, one paragraph per line.
func TextDocument(text string) ADFNode {
	var paragraphs []ADFNode
	for _, line := range strings.Split(text, "\n") {
		p := ADFNode{Type: "paragraph"}
		if line != "" {
			p.Content = []ADFNode{{Type: "text", Text: line}}
		}
		paragraphs = append(paragraphs, p)
	}
	return ADFNode{
		Type:    "doc",
		Attrs:   map[string]any{"version": 1},
		Content: paragraphs,
	}
}

func renderNode(b *strings.Builder, node *ADFNode) {
	switch node.Type {
	case "doc":
		renderChildren(b, node)

	case "paragraph":
		b.WriteString("<p>")
		renderChildren(b, node)
		b.WriteString("</p>")

	case "heading":
		level := 2
		if lf, ok := node.Attrs["level"].(float64); ok && lf >= 1 && lf <= 6 {
			level = int(lf)
		}
		fmt.Fprintf(b, "<h%d>", level)
		renderChildren(b, node)
		fmt.Fprintf(b, "</h%d>", level)

	case "bulletList":
		wrap(b, "ul", node)

	case "orderedList":
		wrap(b, "ol", node)

	case "listItem":
		wrap(b, "li", node)

	case "codeBlock":
		lang, _ := node.Attrs["language"].(string)
		b.WriteString(`<ac:structured-macro ac:name="code">`)
		if lang != "" {
			fmt.Fprintf(b, `<ac:parameter ac:name="language">%s</ac:parameter>`, html.EscapeString(lang))
		}
		b.WriteString("<ac:plain-text-body><![CDATA[")
		for _, child := range node.Content {
			b.WriteString(strings.ReplaceAll(child.Text, "]]>", "]]]]><![CDATA[>"))
		}
		b.WriteString("]]></ac:plain-text-body></ac:structured-macro>")

	case "blockquote":
		wrap(b, "blockquote", node)

	case "rule":
		b.WriteString("<hr />")

	case "table":
		wrap(b, "table", node)

	case "tableRow":
		wrap(b, "tr", node)

	case "tableHeader":
		wrap(b, "th", node)

	case "tableCell":
		wrap(b, "td", node)

	case "text":
		b.WriteString(applyMarks(html.EscapeString(node.Text), node.Marks))

	case "hardBreak":
		b.WriteString("<br />")

	case "mention":
		name, _ := node.Attrs["text"].(string)
		b.WriteString(html.EscapeString("@" + strings.TrimPrefix(name, "@")))

	case "inlineCard":
		url, _ := node.Attrs["url"].(string)
		escaped := html.EscapeString(url)
		fmt.Fprintf(b, `<a href="%s">%s</a>`, escaped, escaped)

	case "emoji":
		text, _ := node.Attrs["text"].(string)
		if text == "" {
			text, _ = node.Attrs["shortName"].(string)
		}
		b.WriteString(html.EscapeString(text))

	case "status":
		text, _ := node.Attrs["text"].(string)
		fmt.Fprintf(b, `<ac:structured-macro ac:name="status"><ac:parameter ac:name="title">%s</ac:parameter></ac:structured-macro>`,
			html.EscapeString(text))

	case "mediaGroup", "mediaSingle", "media", "extension", "bodiedExtension",
		"inlineExtension", "multiBodiedExtension", "placeholder":
		// Attachments and macros do not carry over to another product.

	default:
		// Best effort: panels, expands, layouts and task lists keep their text.
		renderChildren(b, node)
	}
}

func renderChildren(b *strings.Builder, node *ADFNode) {
	for i := range node.Content {
		renderNode(b, &node.Content[i])
	}
}

func wrap(b *strings.Builder, tag string, node *ADFNode) {
	b.WriteString("<" + tag + ">")
	renderChildren(b, node)
	b.WriteString("</" + tag + ">")
}

// applyMarks wraps already-escaped text in the inline tags for its marks.
func applyMarks(text string, marks []ADFMark) string {
	for _, mark := range marks {
		switch mark.Type {
		case "strong":
			text = "<strong>" + text + "</strong>"
		case "em":
			text = "<em>" + text + "</em>"
		case "code":
			text = "<code>" + text + "</code>"
		case "strike":
			text = "<s>" + text + "</s>"
		case "underline":
			text = "<u>" + text + "</u>"
		case "subsup":
			if kind, _ := mark.Attrs["type"].(string); kind == "sub" {
				text = "<sub>" + text + "</sub>"
			} else {
				text = "<sup>" + text + "</sup>"
			}
		case "link":
			href, _ := mark.Attrs["href"].(string)
			text = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), text)
		}
	}
	return text
}
