package format

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/thoulee21/bedit/internal/doctree"
)

// PDFImporter extracts the text layer of a PDF. It tries the Go library
// first and can fall back to pdftotext when the library fails. Each page's
// text is split into paragraphs; PDF is import-only.
type PDFImporter struct {
	FallbackPdftotext bool
}

func (p *PDFImporter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	// ledongthuc/pdf wants a file it can seek in.
	tmp, err := os.CreateTemp("", "bedit-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(ctx, tmpPath)
	}
	if err != nil {
		return nil, parseErr(PDF, err)
	}

	doc := &doctree.Document{}
	for _, page := range strings.Split(text, "\f") {
		paragraphs, err := splitParagraphs(page)
		if err != nil {
			return nil, parseErr(PDF, err)
		}
		for _, para := range paragraphs {
			doc.Children = append(doc.Children, doctree.NewParagraph(strings.TrimSpace(para)))
		}
	}
	return &Result{Doc: doc}, nil
}

func extractPDFText(path string) (text string, err error) {
	// The library panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}
