package session

import (
	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/table"
)

// Insert inserts nodes at the given path.
func Insert(at doctree.Path, nodes ...doctree.Node) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		return doctree.InsertNodes(d, at, nodes...)
	}
}

// Remove removes the node at the given path.
func Remove(at doctree.Path) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		return doctree.RemoveNodes(d, at)
	}
}

// SetProperties patches the attributes of the element at the given path.
func SetProperties(at doctree.Path, patch doctree.Patch) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		return doctree.SetNodeProperties(d, at, patch)
	}
}

// WrapLink turns the text covered by rng into a link to url.
func WrapLink(rng doctree.Range, url string) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		link := &doctree.Element{Kind: doctree.Link, Attrs: doctree.Attributes{URL: url}}
		return doctree.WrapNodes(d, rng, link)
	}
}

// InsertTable inserts an empty rows x cols table at the given path.
func InsertTable(at doctree.Path, rows, cols int) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		return table.Insert(d, at, rows, cols)
	}
}

// AtPath binds a path operation of the table editor, such as
// table.InsertRow, to a path.
func AtPath(fn func(*doctree.Document, doctree.Path) (*doctree.Document, doctree.Change, error), at doctree.Path) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		return fn(d, at)
	}
}

// MergeCells merges the cells spanned by rng.
func MergeCells(rng doctree.Range) Operation {
	return func(d *doctree.Document) (*doctree.Document, doctree.Change, error) {
		return table.MergeCells(d, rng)
	}
}
