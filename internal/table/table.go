// Package table implements structural editing of tables in a doctree
// document: adding and removing rows and columns, and merging and splitting
// cells.
//
// Merged cells never change the shape of a table. The top-left cell of a
// merged block carries a Span and the rest of the block stays in place as
// covered cells, so every row keeps the same number of cells.
package table

import (
	"errors"
	"fmt"

	"github.com/thoulee21/bedit/internal/doctree"
)

var (
	// ErrNonRectangularSelection is returned when a selection does not form a
	// clean block of unmerged cells inside one table.
	ErrNonRectangularSelection = errors.New("selection is not a rectangular block of cells")

	// ErrNotMerged is returned by SplitCell for a cell without a span.
	ErrNotMerged = errors.New("cell is not merged")
)

// Coord addresses a cell by row and column.
type Coord struct {
	Row int
	Col int
}

// Location is the table enclosing a path. Row and Col are -1 when the path
// stops above that level.
type Location struct {
	Table doctree.Path
	Row   int
	Col   int
}

// New builds a rows x cols table whose cells each hold one empty paragraph.
func New(rows, cols int) *doctree.Element {
	rows, cols = max(rows, 1), max(cols, 1)
	tbl := doctree.NewElement(doctree.Table)
	for r := 0; r < rows; r++ {
		row := doctree.NewElement(doctree.TableRow)
		for c := 0; c < cols; c++ {
			row.Children = append(row.Children, emptyCell())
		}
		tbl.Children = append(tbl.Children, row)
	}
	return tbl
}

// Insert places a new rows x cols table at path at.
func Insert(doc *doctree.Document, at doctree.Path, rows, cols int) (*doctree.Document, doctree.Change, error) {
	return doctree.InsertNodes(doc, at, New(rows, cols))
}

// Locate finds the nearest table enclosing at.
func Locate(doc *doctree.Document, at doctree.Path) (Location, bool) {
	tp, _, ok := doctree.Closest(doc, at, func(e *doctree.Element) bool { return e.Kind == doctree.Table })
	if !ok {
		return Location{}, false
	}
	loc := Location{Table: tp, Row: -1, Col: -1}
	if len(at) > len(tp) {
		loc.Row = at[len(tp)]
	}
	if len(at) > len(tp)+1 {
		loc.Col = at[len(tp)+1]
	}
	return loc, true
}

// Grid maps every cell of tbl to the coordinates of the cell that owns it:
// itself, or the anchor of the merged block covering it.
func Grid(tbl *doctree.Element) [][]Coord {
	m, err := load(tbl)
	if err != nil {
		return nil
	}
	return m.anchors()
}

func emptyCell() *doctree.Element {
	return doctree.NewElement(doctree.TableCell, doctree.NewParagraph(""))
}

func coveredCell() *doctree.Element {
	c := emptyCell()
	c.Attrs.Style = doctree.CoveredStyle
	return c
}

// matrix is a working copy of a table. Cells are replaced, never modified.
type matrix struct {
	attrs    doctree.Attributes
	rowAttrs []doctree.Attributes
	cells    [][]*doctree.Element
}

func load(tbl *doctree.Element) (*matrix, error) {
	if tbl == nil || tbl.Kind != doctree.Table {
		return nil, fmt.Errorf("load table: %w", doctree.ErrInvalidTarget)
	}
	m := &matrix{attrs: tbl.Attrs}
	for _, rn := range tbl.Children {
		row, ok := rn.(*doctree.Element)
		if !ok || row.Kind != doctree.TableRow {
			return nil, fmt.Errorf("load table row: %w", doctree.ErrInvalidTarget)
		}
		cells := make([]*doctree.Element, 0, len(row.Children))
		for _, cn := range row.Children {
			cell, ok := cn.(*doctree.Element)
			if !ok || cell.Kind != doctree.TableCell {
				return nil, fmt.Errorf("load table cell: %w", doctree.ErrInvalidTarget)
			}
			cells = append(cells, cell)
		}
		m.rowAttrs = append(m.rowAttrs, row.Attrs)
		m.cells = append(m.cells, cells)
	}
	return m, nil
}

func (m *matrix) rows() int { return len(m.cells) }

func (m *matrix) width() int {
	if len(m.cells) == 0 {
		return 0
	}
	return len(m.cells[0])
}

func (m *matrix) build() *doctree.Element {
	tbl := &doctree.Element{Kind: doctree.Table, Attrs: m.attrs}
	for r, cells := range m.cells {
		row := &doctree.Element{Kind: doctree.TableRow, Attrs: m.rowAttrs[r]}
		for _, c := range cells {
			row.Children = append(row.Children, c)
		}
		tbl.Children = append(tbl.Children, row)
	}
	return tbl
}

func (m *matrix) anchors() [][]Coord {
	grid := make([][]Coord, m.rows())
	for r := range grid {
		grid[r] = make([]Coord, m.width())
		for c := range grid[r] {
			grid[r][c] = Coord{Row: r, Col: c}
		}
	}
	for r, cells := range m.cells {
		for c, cell := range cells {
			s := cell.Attrs.Span
			if s == nil {
				continue
			}
			for dr := 0; dr < s.Rows && r+dr < m.rows(); dr++ {
				for dc := 0; dc < s.Cols && c+dc < m.width(); dc++ {
					grid[r+dr][c+dc] = Coord{Row: r, Col: c}
				}
			}
		}
	}
	return grid
}

// withSpan returns a copy of cell carrying span.
func withSpan(cell *doctree.Element, span *doctree.Span) *doctree.Element {
	cp := *cell
	cp.Attrs.Span = span
	return &cp
}

// enclosing resolves the table around at together with its location.
func enclosing(doc *doctree.Document, at doctree.Path) (Location, *matrix, bool, error) {
	loc, ok := Locate(doc, at)
	if !ok {
		return Location{}, nil, false, nil
	}
	tbl, err := doctree.ElementAt(doc, loc.Table)
	if err != nil {
		return Location{}, nil, false, err
	}
	m, err := load(tbl)
	if err != nil {
		return Location{}, nil, false, err
	}
	return loc, m, true, nil
}

func commit(doc *doctree.Document, loc Location, m *matrix) (*doctree.Document, doctree.Change, error) {
	next, change, err := doctree.ReplaceNode(doc, loc.Table, m.build())
	if err != nil {
		return doc, doctree.Change{}, err
	}
	return next, change, nil
}
