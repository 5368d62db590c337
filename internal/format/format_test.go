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

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"md": Markdown, ".markdown": Markdown, "HTM": HTML, "docx": DOCX, " csv ": CSV,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("rtf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f, err := FormatForFile("reports/Q3.PDF")
	require.NoError(t, err)
	assert.Equal(t, PDF, f)
	_, err = FormatForFile("README")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_InputLimit(t *testing.T) {
	r := NewRegistry(Options{MaxInputBytes: 8})
	_, err := r.Import(context.Background(), Text, strings.NewReader("0123456789"), "big.txt")
	assert.ErrorIs(t, err, ErrInputTooLarge)

	res, err := r.Import(context.Background(), Text, strings.NewReader("01234567"), "ok.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.Metadata.Size)
	assert.Equal(t, Text, res.Metadata.Format)
	assert.False(t, res.Metadata.CreatedAt.IsZero())
}

func TestRegistry_PDFIsImportOnly(t *testing.T) {
	_, err := NewRegistry(Options{}).Export(context.Background(), PDF, doctree.New(), "x")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRegistry_ForFile(t *testing.T) {
	imp, f, err := NewRegistry(Options{}).ForFile("notes.md")
	require.NoError(t, err)
	assert.Equal(t, Markdown, f)
	assert.IsType(t, &MarkdownConverter{}, imp)
}

func TestJSON_RoundTrip(t *testing.T) {
	link := &doctree.Element{
		Kind:     doctree.Link,
		Attrs:    doctree.Attributes{URL: "https://example.com"},
		Children: []doctree.Node{&doctree.Text{Text: "site"}},
	}
	doc := &doctree.Document{Children: []doctree.Node{
		doctree.NewElement(doctree.Heading2, &doctree.Text{Text: "Title", Marks: doctree.Bold}),
		doctree.NewElement(doctree.Paragraph, &doctree.Text{Text: "see "}, link),
		doctree.NewElement(doctree.HorizontalRule),
	}}
	r := NewRegistry(Options{})
	out, err := r.Export(context.Background(), JSON, doc, "t")
	require.NoError(t, err)

	res, err := r.Import(context.Background(), JSON, bytes.NewReader(out.Data), "t.json")
	require.NoError(t, err)
	assert.True(t, doctree.Equal(doc, res.Doc))
}

func TestJSON_FallsBackToText(t *testing.T) {
	r := NewRegistry(Options{})
	for _, in := range []string{`"not json"`, `{"a":1}`, `not json at all`, `[{"type":"paragraph"}]`} {
		res, err := r.Import(context.Background(), JSON, strings.NewReader(in), "x.json")
		require.NoError(t, err, in)
		require.Len(t, res.Doc.Children, 1, in)
		assert.Equal(t, in, doctree.NodeText(res.Doc.Children[0]), in)
	}
}

func TestJSON_EmptyDocumentRoundTrips(t *testing.T) {
	r := NewRegistry(Options{})
	out, err := r.Export(context.Background(), JSON, &doctree.Document{}, "t")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out.Data))

	res, err := r.Import(context.Background(), JSON, bytes.NewReader(out.Data), "t.json")
	require.NoError(t, err)
	assert.Empty(t, res.Doc.Children)

	res, err = r.Import(context.Background(), Text, strings.NewReader(""), "t.txt")
	require.NoError(t, err)
	assert.Len(t, res.Doc.Children, 1, "other formats still get one empty paragraph")
}

func TestJSON_FallbackKeepsWhitespace(t *testing.T) {
	in := "  {oops}\n\n"
	res, err := NewRegistry(Options{}).Import(context.Background(), JSON, strings.NewReader(in), "x.json")
	require.NoError(t, err)
	require.Len(t, res.Doc.Children, 1)
	assert.Equal(t, in, doctree.NodeText(res.Doc.Children[0]))
}

func TestJSON_InvalidNestingFallsBack(t *testing.T) {
	in := `[{"type":"table-row","children":[{"text":"x"}]}]`
	res, err := NewRegistry(Options{}).Import(context.Background(), JSON, strings.NewReader(in), "x.json")
	require.NoError(t, err)
	assert.Equal(t, doctree.Paragraph, res.Doc.Children[0].(*doctree.Element).Kind)
}

func TestCSV_Import(t *testing.T) {
	in := "name, qty\napple,3\n\"pear, green\",4,extra\n"
	res, err := NewRegistry(Options{}).Import(context.Background(), CSV, strings.NewReader(in), "fruit.csv")
	require.NoError(t, err)
	require.Len(t, res.Doc.Children, 1)
	tbl := res.Doc.Children[0].(*doctree.Element)
	assert.Equal(t, doctree.Table, tbl.Kind)
	assert.Len(t, tbl.Children, 3)
	assert.Equal(t, "name\tqty\t\napple\t3\t\npear, green\t4\textra", doctree.BlockText(tbl))
	assert.Equal(t, "fruit", res.Metadata.Title)
}

func TestCSV_ExportFirstTable(t *testing.T) {
	in := "a,b\n\"x,y\",z\n"
	r := NewRegistry(Options{})
	res, err := r.Import(context.Background(), CSV, strings.NewReader(in), "t.csv")
	require.NoError(t, err)

	doc := &doctree.Document{Children: append([]doctree.Node{doctree.NewParagraph("intro")}, res.Doc.Children...)}
	out, err := r.Export(context.Background(), CSV, doc, "t")
	require.NoError(t, err)
	assert.Equal(t, in, string(out.Data))
}

func TestCSV_ExportWithoutTable(t *testing.T) {
	out, err := NewRegistry(Options{}).Export(context.Background(), CSV, doctree.New(), "t")
	require.NoError(t, err)
	assert.Empty(t, out.Data)
}
