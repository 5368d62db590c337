package format

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/thoulee21/bedit/internal/doctree"
)

// TextConverter handles plain text. Each run of non-blank lines becomes one
// paragraph; export joins top-level blocks with a blank line.
type TextConverter struct{}

func (c *TextConverter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	src, err := readText(Text, r)
	if err != nil {
		return nil, err
	}
	paragraphs, err := splitParagraphs(src)
	if err != nil {
		return nil, parseErr(Text, err)
	}

	doc := &doctree.Document{}
	for _, para := range paragraphs {
		doc.Children = append(doc.Children, doctree.NewParagraph(para))
	}
	return &Result{Doc: doc}, nil
}

func (c *TextConverter) Export(ctx context.Context, doc *doctree.Document, w io.Writer) error {
	_, err := io.WriteString(w, doctree.PlainText(doc))
	return err
}

// splitParagraphs groups non-blank lines separated by blank or
// whitespace-only lines. A line may be as long as src itself.
func splitParagraphs(src string) ([]string, error) {
	scanner := bufio.NewScanner(strings.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), max(len(src)+1, 64*1024))

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paragraphs, nil
}
