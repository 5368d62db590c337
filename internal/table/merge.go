package table

import (
	"fmt"

	"github.com/thoulee21/bedit/internal/doctree"
)

// MergeCells merges the block of cells bounded by the cells holding the
// range's anchor and focus. The top-left cell receives the children of every
// cell in the block, in row-major order, and records how many each one gave.
// A single-cell block leaves the document unchanged.
func MergeCells(doc *doctree.Document, rng doctree.Range) (*doctree.Document, doctree.Change, error) {
	a, okA := Locate(doc, rng.Anchor.Path)
	f, okF := Locate(doc, rng.Focus.Path)
	if !okA || !okF || !a.Table.Equal(f.Table) || a.Row < 0 || a.Col < 0 || f.Row < 0 || f.Col < 0 {
		return doc, doctree.Change{}, fmt.Errorf("merge cells: %w", ErrNonRectangularSelection)
	}
	r0, r1 := min(a.Row, f.Row), max(a.Row, f.Row)
	c0, c1 := min(a.Col, f.Col), max(a.Col, f.Col)
	if r0 == r1 && c0 == c1 {
		return doc, doctree.Change{}, nil
	}

	_, m, _, err := enclosing(doc, rng.Anchor.Path)
	if err != nil {
		return doc, doctree.Change{}, err
	}
	if r1 >= m.rows() || c1 >= m.width() {
		return doc, doctree.Change{}, fmt.Errorf("merge cells: %w", doctree.ErrPathOutOfRange)
	}

	rows, cols := r1-r0+1, c1-c0+1
	parts := make([]int, 0, rows*cols)
	var children []doctree.Node
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			cell := m.cells[r][c]
			if cell.Attrs.Span != nil || cell.IsCovered() {
				return doc, doctree.Change{}, fmt.Errorf("merge cells at %d,%d: %w", r, c, ErrNonRectangularSelection)
			}
			parts = append(parts, len(cell.Children))
			children = append(children, cell.Children...)
		}
	}

	anchor := *m.cells[r0][c0]
	anchor.Children = children
	anchor.Attrs.Span = &doctree.Span{Rows: rows, Cols: cols, Parts: parts}
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			covered := coveredCell()
			covered.Attrs = m.cells[r][c].Attrs
			covered.Attrs.Style = doctree.CoveredStyle
			m.cells[r][c] = covered
		}
	}
	m.cells[r0][c0] = &anchor
	return commit(doc, a, m)
}

// SplitCell undoes a merge: the children of the merged cell at at go back to
// the cells they came from. A cell that gave nothing gets one empty
// paragraph. Children added to the merged cell after the merge stay with the
// top-left cell.
func SplitCell(doc *doctree.Document, at doctree.Path) (*doctree.Document, doctree.Change, error) {
	loc, m, ok, err := enclosing(doc, at)
	if err != nil {
		return doc, doctree.Change{}, err
	}
	if !ok || loc.Row < 0 || loc.Col < 0 || loc.Row >= m.rows() || loc.Col >= m.width() {
		return doc, doctree.Change{}, fmt.Errorf("split cell: %w", doctree.ErrInvalidTarget)
	}
	cell := m.cells[loc.Row][loc.Col]
	s := cell.Attrs.Span
	if s == nil {
		return doc, doctree.Change{}, fmt.Errorf("split cell %d,%d: %w", loc.Row, loc.Col, ErrNotMerged)
	}

	parts := partsOf(s)
	others := 0
	for _, n := range parts[1:] {
		others += n
	}
	parts[0] = max(len(cell.Children)-others, 0)

	rest := cell.Children
	for i, n := range parts {
		r, c := loc.Row+i/s.Cols, loc.Col+i%s.Cols
		if r >= m.rows() || c >= m.width() {
			continue
		}
		n = min(n, len(rest))
		var own []doctree.Node
		if n == 0 {
			own = []doctree.Node{doctree.NewParagraph("")}
		} else {
			own = append(own, rest[:n]...)
		}
		rest = rest[n:]

		restored := &doctree.Element{Kind: doctree.TableCell, Children: own}
		if i == 0 {
			restored.Attrs = cell.Attrs
			restored.Attrs.Span = nil
		} else if prev := m.cells[r][c]; prev.IsCovered() {
			restored.Attrs = prev.Attrs
			restored.Attrs.Style = ""
		}
		m.cells[r][c] = restored
	}
	return commit(doc, loc, m)
}
