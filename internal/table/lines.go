package table

import (
	"fmt"
	"slices"

	"github.com/thoulee21/bedit/internal/doctree"
)

// InsertRow adds a row after the row containing at, or at the end when at
// addresses the table itself. Without an enclosing table the document is
// returned unchanged. A row inserted inside a merged block widens the block.
func InsertRow(doc *doctree.Document, at doctree.Path) (*doctree.Document, doctree.Change, error) {
	loc, m, ok, err := enclosing(doc, at)
	if err != nil || !ok {
		return doc, doctree.Change{}, err
	}
	idx := m.rows()
	if loc.Row >= 0 && loc.Row < m.rows() {
		idx = loc.Row + 1
	}

	grid := m.anchors()
	row := make([]*doctree.Element, m.width())
	widened := make(map[Coord]bool)
	for c := range row {
		row[c] = emptyCell()
		if idx == 0 || idx >= m.rows() || grid[idx-1][c] != grid[idx][c] {
			continue
		}
		a := grid[idx][c]
		row[c] = coveredCell()
		if widened[a] {
			continue
		}
		widened[a] = true
		anchor := m.cells[a.Row][a.Col]
		s := anchor.Attrs.Span
		parts := partsOf(s)
		cut := (idx - a.Row) * s.Cols
		parts = slices.Insert(parts, cut, make([]int, s.Cols)...)
		m.cells[a.Row][a.Col] = withSpan(anchor, &doctree.Span{Rows: s.Rows + 1, Cols: s.Cols, Parts: parts})
	}

	m.cells = slices.Insert(m.cells, idx, row)
	m.rowAttrs = slices.Insert(m.rowAttrs, idx, doctree.Attributes{})
	return commit(doc, loc, m)
}

// InsertColumn adds a cell to every row after the column containing at, or at
// the end when at addresses the table or a row. Without an enclosing table
// the document is returned unchanged.
func InsertColumn(doc *doctree.Document, at doctree.Path) (*doctree.Document, doctree.Change, error) {
	loc, m, ok, err := enclosing(doc, at)
	if err != nil || !ok {
		return doc, doctree.Change{}, err
	}
	w := m.width()
	idx := w
	if loc.Col >= 0 && loc.Col < w {
		idx = loc.Col + 1
	}

	grid := m.anchors()
	widened := make(map[Coord]bool)
	for r := range m.cells {
		cell := emptyCell()
		if idx > 0 && idx < w && grid[r][idx-1] == grid[r][idx] {
			a := grid[r][idx]
			cell = coveredCell()
			if !widened[a] {
				widened[a] = true
				anchor := m.cells[a.Row][a.Col]
				s := anchor.Attrs.Span
				old := partsOf(s)
				cc := idx - a.Col
				parts := make([]int, 0, s.Rows*(s.Cols+1))
				for rr := 0; rr < s.Rows; rr++ {
					line := old[rr*s.Cols : (rr+1)*s.Cols]
					parts = append(parts, line[:cc]...)
					parts = append(parts, 0)
					parts = append(parts, line[cc:]...)
				}
				m.cells[a.Row][a.Col] = withSpan(anchor, &doctree.Span{Rows: s.Rows, Cols: s.Cols + 1, Parts: parts})
			}
		}
		m.cells[r] = slices.Insert(slices.Clone(m.cells[r]), idx, cell)
	}
	return commit(doc, loc, m)
}

// RemoveRow deletes the row containing at. The last row of a table and rows
// crossing a merged block cannot be removed.
func RemoveRow(doc *doctree.Document, at doctree.Path) (*doctree.Document, doctree.Change, error) {
	loc, m, ok, err := enclosing(doc, at)
	if err != nil {
		return doc, doctree.Change{}, err
	}
	if !ok || loc.Row < 0 || loc.Row >= m.rows() {
		return doc, doctree.Change{}, fmt.Errorf("remove row: %w", doctree.ErrInvalidTarget)
	}
	if m.rows() == 1 {
		return doc, doctree.Change{}, fmt.Errorf("remove last row: %w", doctree.ErrInvalidTarget)
	}
	grid := m.anchors()
	for _, a := range grid[loc.Row] {
		if s := m.cells[a.Row][a.Col].Attrs.Span; s != nil && s.Rows > 1 {
			return doc, doctree.Change{}, fmt.Errorf("remove row %d: %w", loc.Row, ErrNonRectangularSelection)
		}
	}
	m.cells = slices.Delete(m.cells, loc.Row, loc.Row+1)
	m.rowAttrs = slices.Delete(m.rowAttrs, loc.Row, loc.Row+1)
	return commit(doc, loc, m)
}

// RemoveColumn deletes the column containing at. The last column of a table
// and columns crossing a merged block cannot be removed.
func RemoveColumn(doc *doctree.Document, at doctree.Path) (*doctree.Document, doctree.Change, error) {
	loc, m, ok, err := enclosing(doc, at)
	if err != nil {
		return doc, doctree.Change{}, err
	}
	if !ok || loc.Col < 0 || loc.Col >= m.width() {
		return doc, doctree.Change{}, fmt.Errorf("remove column: %w", doctree.ErrInvalidTarget)
	}
	if m.width() == 1 {
		return doc, doctree.Change{}, fmt.Errorf("remove last column: %w", doctree.ErrInvalidTarget)
	}
	grid := m.anchors()
	for r := range m.cells {
		a := grid[r][loc.Col]
		if s := m.cells[a.Row][a.Col].Attrs.Span; s != nil && s.Cols > 1 {
			return doc, doctree.Change{}, fmt.Errorf("remove column %d: %w", loc.Col, ErrNonRectangularSelection)
		}
	}
	for r := range m.cells {
		m.cells[r] = slices.Delete(slices.Clone(m.cells[r]), loc.Col, loc.Col+1)
	}
	return commit(doc, loc, m)
}

// partsOf returns a copy of the span's parts sized to Rows*Cols.
func partsOf(s *doctree.Span) []int {
	parts := make([]int, s.Rows*s.Cols)
	copy(parts, s.Parts)
	return parts
}
