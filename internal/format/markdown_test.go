package format

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoulee21/bedit/internal/doctree"
)

func importMarkdown(t *testing.T, input string) *Result {
	t.Helper()
	res, err := NewRegistry(Options{}).Import(context.Background(), Markdown, strings.NewReader(input), "doc.md")
	require.NoError(t, err)
	return res
}

func exportMarkdown(t *testing.T, doc *doctree.Document) string {
	t.Helper()
	out, err := NewRegistry(Options{}).Export(context.Background(), Markdown, doc, "doc")
	require.NoError(t, err)
	return string(out.Data)
}

func kinds(nodes []doctree.Node) []doctree.Kind {
	out := make([]doctree.Kind, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.(*doctree.Element).Kind)
	}
	return out
}

func TestMarkdown_HeadingsAndParagraphs(t *testing.T) {
	input := `# Title

Intro text.

## Section A

Section A content.

### Subsection A1

Subsection A1 content.
`
	res := importMarkdown(t, input)
	assert.Equal(t, "Title", res.Metadata.Title)
	assert.Equal(t, []doctree.Kind{
		doctree.Heading1, doctree.Paragraph,
		doctree.Heading2, doctree.Paragraph,
		doctree.Heading3, doctree.Paragraph,
	}, kinds(res.Doc.Children))
	assert.Equal(t, "Subsection A1", doctree.NodeText(res.Doc.Children[4]))
}

func TestMarkdown_NoHeadingsUsesFilename(t *testing.T) {
	res := importMarkdown(t, "Just some plain text.\n\nAnother paragraph.")
	assert.Equal(t, "doc", res.Metadata.Title)
	assert.Len(t, res.Doc.Children, 2)
}

func TestMarkdown_HashWithoutSpaceIsText(t *testing.T) {
	res := importMarkdown(t, "#hashtag\n\n# C#")
	assert.Equal(t, []doctree.Kind{doctree.Paragraph, doctree.Heading1}, kinds(res.Doc.Children))
	assert.Equal(t, "C#", doctree.NodeText(res.Doc.Children[1]))
}

func TestMarkdown_InlineMarks(t *testing.T) {
	res := importMarkdown(t, "**bold** *it* ~~gone~~ `code` <u>under</u> H<sub>2</sub>O [site](https://example.com)")
	para := res.Doc.Children[0].(*doctree.Element)

	marks := map[string]doctree.Marks{}
	var link *doctree.Element
	for _, c := range para.Children {
		switch v := c.(type) {
		case *doctree.Text:
			marks[v.Text] = v.Marks
		case *doctree.Element:
			link = v
		}
	}
	assert.Equal(t, doctree.Bold, marks["bold"])
	assert.Equal(t, doctree.Italic, marks["it"])
	assert.Equal(t, doctree.Strikethrough, marks["gone"])
	assert.Equal(t, doctree.Code, marks["code"])
	assert.Equal(t, doctree.Underline, marks["under"])
	assert.Equal(t, doctree.Sub, marks["2"])
	require.NotNil(t, link)
	assert.Equal(t, "https://example.com", link.Attrs.URL)
	assert.Equal(t, "site", doctree.NodeText(link))
}

func TestMarkdown_Blocks(t *testing.T) {
	input := "> one\n> two\n\n- a\n  - b\n- c\n\n1. first\n2. second\n\n---\n\n| A | B |\n|---|:-:|\n| 1 | 2 |\n\n```go\nx := 1\n\n```"
	res := importMarkdown(t, input)
	require.Equal(t, []doctree.Kind{
		doctree.Blockquote, doctree.BulletedList, doctree.NumberedList,
		doctree.HorizontalRule, doctree.Table, doctree.CodeBlock,
	}, kinds(res.Doc.Children))

	quote := res.Doc.Children[0].(*doctree.Element)
	assert.Len(t, quote.Children, 2)

	bullets := res.Doc.Children[1].(*doctree.Element)
	assert.Equal(t, []doctree.Kind{doctree.ListItem, doctree.BulletedList, doctree.ListItem}, kinds(bullets.Children))

	tbl := res.Doc.Children[4].(*doctree.Element)
	assert.Equal(t, "A\tB\n1\t2", doctree.BlockText(tbl))

	assert.Equal(t, "x := 1\n", doctree.NodeText(res.Doc.Children[5]))
}

func TestMarkdown_HorizontalRules(t *testing.T) {
	for _, line := range []string{"---", "***", "___", "* * *", " - - - -", "_____  "} {
		res := importMarkdown(t, line)
		assert.Equal(t, []doctree.Kind{doctree.HorizontalRule}, kinds(res.Doc.Children), line)
	}
	for _, line := range []string{"-*-", "--", "_*_"} {
		res := importMarkdown(t, line)
		assert.Equal(t, []doctree.Kind{doctree.Paragraph}, kinds(res.Doc.Children), line)
	}
}

func TestMarkdown_UnterminatedFenceRunsToEnd(t *testing.T) {
	res := importMarkdown(t, "intro\n\n```\ncode\n# not a heading")
	require.Equal(t, []doctree.Kind{doctree.Paragraph, doctree.CodeBlock}, kinds(res.Doc.Children))
	assert.Equal(t, "code\n# not a heading", doctree.NodeText(res.Doc.Children[1]))
}

func TestMarkdown_HeadingMarkersExportVerbatim(t *testing.T) {
	for level := 1; level <= 6; level++ {
		kind, _ := doctree.HeadingKind(level)
		doc := &doctree.Document{Children: []doctree.Node{doctree.NewElement(kind, &doctree.Text{Text: "Heading"})}}
		out := exportMarkdown(t, doc)
		assert.Equal(t, strings.Repeat("#", level)+" Heading", strings.TrimSpace(out))
	}
}

func TestMarkdown_RoundTrip(t *testing.T) {
	doc := &doctree.Document{Children: []doctree.Node{
		doctree.NewElement(doctree.Heading1, &doctree.Text{Text: "Title"}),
		doctree.NewElement(doctree.Paragraph,
			&doctree.Text{Text: "Hello", Marks: doctree.Bold},
			&doctree.Text{Text: " and "},
			&doctree.Text{Text: "under", Marks: doctree.Underline},
			&doctree.Text{Text: " a*b [x] "},
			&doctree.Element{
				Kind:     doctree.Link,
				Attrs:    doctree.Attributes{URL: "https://example.com/a"},
				Children: []doctree.Node{&doctree.Text{Text: "site"}},
			},
		),
		doctree.NewParagraph("# not a heading"),
		doctree.NewParagraph("1. not a list"),
		doctree.NewElement(doctree.BulletedList,
			doctree.NewElement(doctree.ListItem, &doctree.Text{Text: "a"}),
			doctree.NewElement(doctree.BulletedList,
				doctree.NewElement(doctree.ListItem, &doctree.Text{Text: "b"})),
			doctree.NewElement(doctree.ListItem, &doctree.Text{Text: "c"}),
		),
		doctree.NewElement(doctree.NumberedList,
			doctree.NewElement(doctree.ListItem, &doctree.Text{Text: "one"}),
			doctree.NewElement(doctree.ListItem, &doctree.Text{Text: "two"}),
		),
		doctree.NewElement(doctree.Blockquote, doctree.NewParagraph("quoted")),
		doctree.NewElement(doctree.CodeBlock, &doctree.Text{Text: "x := 1\ny := 2"}),
		doctree.NewElement(doctree.HorizontalRule),
	}}
	require.NoError(t, doctree.Validate(doc))

	out := exportMarkdown(t, doc)
	assert.Contains(t, out, "# Title\n")
	assert.Contains(t, out, `\# not a heading`)
	assert.Contains(t, out, `1\. not a list`)

	res, err := NewRegistry(Options{}).Import(context.Background(), Markdown, bytes.NewReader([]byte(out)), "doc.md")
	require.NoError(t, err)
	assert.True(t, doctree.Equal(doc, res.Doc), "re-imported:\n%s", out)
}

func TestMarkdown_TableExport(t *testing.T) {
	res := importMarkdown(t, "| A | B |\n|---|---|\n| 1 | x\\|y |")
	out := exportMarkdown(t, res.Doc)
	again := importMarkdown(t, out)
	assert.Equal(t, doctree.BlockText(res.Doc.Children[0]), doctree.BlockText(again.Doc.Children[0]))
	assert.Equal(t, "A\tB\n1\tx|y", doctree.BlockText(again.Doc.Children[0]))
}
