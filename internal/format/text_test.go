package format

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/thoulee21/bedit/internal/doctree"
)

func importText(t *testing.T, input, filename string) *Result {
	t.Helper()
	res, err := NewRegistry(Options{}).Import(context.Background(), Text, strings.NewReader(input), filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestTextConverter_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	res := importText(t, input, "notes.txt")

	if res.Metadata.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", res.Metadata.Title)
	}
	if len(res.Doc.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(res.Doc.Children))
	}

	want := []string{
		"First paragraph line one.\nFirst paragraph line two.",
		"Second paragraph.",
		"Third paragraph.",
	}
	for i, w := range want {
		if got := doctree.NodeText(res.Doc.Children[i]); got != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, got)
		}
	}
}

func TestTextConverter_EmptyInput(t *testing.T) {
	res := importText(t, "", "empty.txt")
	if len(res.Doc.Children) != 1 {
		t.Fatalf("expected a single empty paragraph, got %d children", len(res.Doc.Children))
	}
	if got := doctree.PlainText(res.Doc); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestTextConverter_MultipleBlankLines(t *testing.T) {
	// Runs of blank lines must not produce empty paragraphs.
	res := importText(t, "Para one.\n\n\n\nPara two.\r\n  \r\nPara three.", "gaps.txt")
	if len(res.Doc.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(res.Doc.Children))
	}
}

func TestTextConverter_LongLine(t *testing.T) {
	long := strings.Repeat("x", 3<<20)
	res := importText(t, "short\n\n"+long+"\nnext", "long.txt")
	if len(res.Doc.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(res.Doc.Children))
	}
	if got := doctree.NodeText(res.Doc.Children[1]); got != long+"\nnext" {
		t.Errorf("long paragraph has %d bytes, want %d", len(got), len(long)+5)
	}
}

func TestTextConverter_InvalidUTF8(t *testing.T) {
	_, err := NewRegistry(Options{}).Import(context.Background(), Text, strings.NewReader("ok \xff\xfe"), "bad.txt")
	var pe *FormatParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected FormatParseError, got %v", err)
	}
	if pe.Format != Text {
		t.Errorf("expected format %q, got %q", Text, pe.Format)
	}
}

func TestTextConverter_Export(t *testing.T) {
	doc := &doctree.Document{Children: []doctree.Node{
		doctree.NewParagraph("one"),
		doctree.NewParagraph("two"),
	}}
	out, err := NewRegistry(Options{}).Export(context.Background(), Text, doc, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out.Data) != "one\n\ntwo" {
		t.Errorf("expected %q, got %q", "one\n\ntwo", out.Data)
	}
}
