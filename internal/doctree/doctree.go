// Package doctree is the document model of the editor: an ordered tree of
// elements and text leaves addressed by paths.
//
// Documents are values. Every mutating operation returns a new *Document and
// leaves its input untouched; unchanged subtrees are shared between the old
// and the new tree, so callers must never modify a node in place.
package doctree

import "strings"

// Node is one of *Document, *Element or *Text.
type Node interface {
	isNode()
}

// Document is the root of a parsed document.
type Document struct {
	Children []Node // Top-level block elements
}

// Element is a structural or inline node with ordered children.
type Element struct {
	Kind     Kind
	Attrs    Attributes
	Children []Node
}

// Text is a leaf run of characters sharing one set of marks.
type Text struct {
	Text  string
	Marks Marks
}

// Attributes are the optional element properties.
type Attributes struct {
	URL   string // link target, image or attachment source
	Name  string // attachment or image display name
	Size  int64  // attachment size in bytes
	Align string // left, center, right, justify
	Style string // free-form style token; "covered" on cells hidden by a merge
	Span  *Span  // set on merged table cells
}

// Span records the block consumed by a merged table cell. Parts holds, in
// row-major order over Rows*Cols, how many children each original cell
// contributed to the merged cell.
type Span struct {
	Rows  int
	Cols  int
	Parts []int
}

// CoveredStyle marks a table cell hidden behind a merged neighbour.
const CoveredStyle = "covered"

func (*Document) isNode() {}
func (*Element) isNode()  {}
func (*Text) isNode()     {}

// New returns a document holding one empty paragraph.
func New() *Document {
	return &Document{Children: []Node{NewParagraph("")}}
}

// NewParagraph builds a paragraph with a single unmarked leaf.
func NewParagraph(text string) *Element {
	return &Element{Kind: Paragraph, Children: []Node{&Text{Text: text}}}
}

// NewElement builds an element of the given kind.
func NewElement(kind Kind, children ...Node) *Element {
	return &Element{Kind: kind, Children: children}
}

// IsCovered reports whether the element is a cell hidden by a merge.
func (e *Element) IsCovered() bool {
	return e.Kind == TableCell && e.Attrs.Style == CoveredStyle
}

// childrenOf returns the child slice of a container node.
func childrenOf(n Node) ([]Node, bool) {
	switch v := n.(type) {
	case *Document:
		return v.Children, true
	case *Element:
		return v.Children, true
	case *Text:
		return nil, false
	}
	return nil, false
}

// withChildren returns a shallow copy of a container with new children.
func withChildren(n Node, children []Node) Node {
	switch v := n.(type) {
	case *Document:
		return &Document{Children: children}
	case *Element:
		cp := *v
		cp.Attrs = v.Attrs.clone()
		cp.Children = children
		return &cp
	}
	panic("doctree: withChildren on leaf")
}

func (a Attributes) clone() Attributes {
	if a.Span != nil {
		s := *a.Span
		s.Parts = append([]int(nil), a.Span.Parts...)
		a.Span = &s
	}
	return a
}

// Clone returns a deep copy of n.
func Clone(n Node) Node {
	switch v := n.(type) {
	case *Document:
		return &Document{Children: cloneAll(v.Children)}
	case *Element:
		return &Element{Kind: v.Kind, Attrs: v.Attrs.clone(), Children: cloneAll(v.Children)}
	case *Text:
		cp := *v
		return &cp
	}
	return nil
}

func cloneAll(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Clone(n)
	}
	return out
}

// Equal reports structural equality of two nodes.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Document:
		y, ok := b.(*Document)
		return ok && equalAll(x.Children, y.Children)
	case *Element:
		y, ok := b.(*Element)
		return ok && x.Kind == y.Kind && x.Attrs.equal(y.Attrs) && equalAll(x.Children, y.Children)
	case *Text:
		y, ok := b.(*Text)
		return ok && *x == *y
	}
	return a == nil && b == nil
}

func equalAll(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (a Attributes) equal(b Attributes) bool {
	if a.URL != b.URL || a.Name != b.Name || a.Size != b.Size || a.Align != b.Align || a.Style != b.Style {
		return false
	}
	if (a.Span == nil) != (b.Span == nil) {
		return false
	}
	if a.Span == nil {
		return true
	}
	if a.Span.Rows != b.Span.Rows || a.Span.Cols != b.Span.Cols || len(a.Span.Parts) != len(b.Span.Parts) {
		return false
	}
	for i := range a.Span.Parts {
		if a.Span.Parts[i] != b.Span.Parts[i] {
			return false
		}
	}
	return true
}

// Marks is the set of inline formats applied to a text leaf.
type Marks uint8

const (
	Bold Marks = 1 << iota
	Italic
	Underline
	Strikethrough
	Code
	Sub
	Sup
)

// AllMarks lists marks in their canonical order.
var AllMarks = []Marks{Bold, Italic, Underline, Strikethrough, Code, Sub, Sup}

var markNames = map[Marks]string{
	Bold:          "bold",
	Italic:        "italic",
	Underline:     "underline",
	Strikethrough: "strikethrough",
	Code:          "code",
	Sub:           "sub",
	Sup:           "sup",
}

// Has reports whether every mark in m2 is set in m.
func (m Marks) Has(m2 Marks) bool { return m&m2 == m2 }

// With returns m with m2 added.
func (m Marks) With(m2 Marks) Marks { return m | m2 }

// Name returns the wire name of a single mark.
func (m Marks) Name() string { return markNames[m] }

func (m Marks) String() string {
	var parts []string
	for _, mk := range AllMarks {
		if m.Has(mk) {
			parts = append(parts, markNames[mk])
		}
	}
	return strings.Join(parts, "+")
}
