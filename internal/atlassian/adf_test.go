package atlassian

import "testing"

func TestADFToStorage(t *testing.T) {
	doc := &ADFNode{Type: "doc", Content: []ADFNode{
		{Type: "heading", Attrs: map[string]any{"level": float64(3)}, Content: []ADFNode{{Type: "text", Text: "Scope"}}},
		{Type: "paragraph", Content: []ADFNode{
			{Type: "text", Text: "Use "},
			{Type: "text", Text: "<b>", Marks: []ADFMark{{Type: "code"}}},
			{Type: "text", Text: " here", Marks: []ADFMark{{Type: "link", Attrs: map[string]any{"href": "https://x.test/?a=1&b=2"}}}},
		}},
		{Type: "bulletList", Content: []ADFNode{
			{Type: "listItem", Content: []ADFNode{{Type: "paragraph", Content: []ADFNode{{Type: "text", Text: "one"}}}}},
		}},
		{Type: "mediaSingle", Content: []ADFNode{{Type: "media"}}},
		{Type: "panel", Content: []ADFNode{{Type: "paragraph", Content: []ADFNode{{Type: "text", Text: "note"}}}}},
	}}

	want := `<h3>Scope</h3>` +
		`<p>Use <code>&lt;b&gt;</code><a href="https://x.test/?a=1&amp;b=2"> here</a></p>` +
		`<ul><li><p>one</p></li></ul>` +
		`<p>note</p>`
	if got := ADFToStorage(doc); got != want {
		t.Errorf("ADFToStorage\n got: %s\nwant: %s", got, want)
	}
}

func TestADFToStorage_CodeBlock(t *testing.T) {
	doc := &ADFNode{Type: "doc", Content: []ADFNode{
		{Type: "codeBlock", Attrs: map[string]any{"language": "go"}, Content: []ADFNode{{Type: "text", Text: "x := a[b[0]]>1"}}},
	}}
	want := `<ac:structured-macro ac:name="code"><ac:parameter ac:name="language">go</ac:parameter>` +
		`<ac:plain-text-body><![CDATA[x := a[b[0]]]]><![CDATA[>1]]></ac:plain-text-body></ac:structured-macro>`
	if got := ADFToStorage(doc); got != want {
		t.Errorf("ADFToStorage\n got: %s\nwant: %s", got, want)
	}
}

func TestADFToStorage_Nil(t *testing.T) {
	if got := ADFToStorage(nil); got != "" {
		t.Errorf("ADFToStorage(nil) = %q", got)
	}
}

func TestTextDocument(t *testing.T) {
	doc := TextDocument("line one\n\nline two")
	if doc.Type != "doc" || len(doc.Content) != 3 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Content[1].Content != nil {
		t.Errorf("blank line should be an empty paragraph")
	}
	if got := ADFToStorage(&doc); got != "<p>line one</p><p></p><p>line two</p>" {
		t.Errorf("round trip = %q", got)
	}
}
