package format

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/thoulee21/bedit/internal/doctree"
)

// CSVConverter maps a CSV file onto a single table, one paragraph per cell.
// Export writes the first table of the document.
type CSVConverter struct{}

func (c *CSVConverter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	src, err := readText(CSV, r)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(strings.NewReader(src))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, parseErr(CSV, err)
	}
	doc := &doctree.Document{}
	if len(records) > 0 {
		doc.Children = []doctree.Node{buildTable(records, func(text string) []doctree.Node {
			return []doctree.Node{doctree.NewParagraph(text)}
		})}
	}
	return &Result{Doc: doc}, nil
}

func (c *CSVConverter) Export(ctx context.Context, doc *doctree.Document, w io.Writer) error {
	cw := csv.NewWriter(w)
	var tbl *doctree.Element
	doctree.Walk(doc, func(p doctree.Path, n doctree.Node) bool {
		if tbl != nil {
			return false
		}
		if e, ok := n.(*doctree.Element); ok && e.Kind == doctree.Table {
			tbl = e
			return false
		}
		return true
	})
	if tbl != nil {
		for _, rn := range tbl.Children {
			row := rn.(*doctree.Element)
			record := make([]string, 0, len(row.Children))
			for _, cn := range row.Children {
				cell := cn.(*doctree.Element)
				if cell.IsCovered() {
					record = append(record, "")
					continue
				}
				record = append(record, doctree.BlockText(cell))
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
