// Package metrics computes document statistics and caret positions.
package metrics

import (
	"strings"
	"unicode/utf8"

	"github.com/thoulee21/bedit/internal/doctree"
)

// Counts are the size statistics of a document's plain text.
type Counts struct {
	Characters int `json:"characters"`
	Words      int `json:"words"`
	Lines      int `json:"lines"`
}

// Position is a 1-based caret location. Line counts top-level blocks.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Compute counts runes and whitespace-separated words of the plain text.
// Lines is the number of top-level blocks, never less than one.
func Compute(doc *doctree.Document) Counts {
	text := doctree.PlainText(doc)
	return Counts{
		Characters: utf8.RuneCountInString(text),
		Words:      len(strings.Fields(text)),
		Lines:      max(len(doc.Children), 1),
	}
}

// Cursor maps a point to its line and column. A nil or invalid point is
// reported as 1:1.
func Cursor(doc *doctree.Document, pt *doctree.Point) Position {
	start := Position{Line: 1, Column: 1}
	if pt == nil || !pt.Valid(doc) || len(pt.Path) == 0 {
		return start
	}
	block := pt.Path[0]

	col := 0
	for _, lf := range doctree.Leaves(doctree.Path{block}, doc.Children[block]) {
		if lf.Path.Compare(pt.Path) != doctree.Before {
			col += pt.Offset
			break
		}
		col += doctree.RuneLen(lf.Text.Text)
	}
	return Position{Line: block + 1, Column: col + 1}
}
