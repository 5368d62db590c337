package doctree

import (
	"strings"
	"unicode/utf8"
)

// Resolve returns the node at path. The empty path resolves to doc itself.
func Resolve(doc *Document, p Path) (Node, error) {
	var n Node = doc
	for depth, idx := range p {
		children, ok := childrenOf(n)
		if !ok || idx < 0 || idx >= len(children) {
			return nil, outOfRange(p, depth)
		}
		n = children[idx]
	}
	return n, nil
}

// ElementAt resolves path and requires an Element there.
func ElementAt(doc *Document, p Path) (*Element, error) {
	n, err := Resolve(doc, p)
	if err != nil {
		return nil, err
	}
	e, ok := n.(*Element)
	if !ok {
		return nil, ErrInvalidTarget
	}
	return e, nil
}

// Ancestors returns the paths of every element above p, nearest first.
// The root is not included.
func Ancestors(p Path) []Path {
	out := make([]Path, 0, len(p))
	for i := len(p) - 1; i >= 1; i-- {
		out = append(out, p[:i].Copy())
	}
	return out
}

// Closest returns the path of the nearest element at or above p matching fn.
func Closest(doc *Document, p Path, fn func(*Element) bool) (Path, *Element, bool) {
	for i := len(p); i >= 1; i-- {
		n, err := Resolve(doc, p[:i])
		if err != nil {
			continue
		}
		if e, ok := n.(*Element); ok && fn(e) {
			return p[:i].Copy(), e, true
		}
	}
	return nil, nil, false
}

// Siblings returns the children of p's parent and p's index among them.
func Siblings(doc *Document, p Path) ([]Node, int, error) {
	if len(p) == 0 {
		return nil, 0, ErrInvalidTarget
	}
	parent, err := Resolve(doc, p.Parent())
	if err != nil {
		return nil, 0, err
	}
	children, ok := childrenOf(parent)
	idx := p[len(p)-1]
	if !ok || idx < 0 || idx >= len(children) {
		return nil, 0, outOfRange(p, len(p)-1)
	}
	return children, idx, nil
}

// WalkFunc is called for each node in pre-order. Returning false skips the
// node's children.
type WalkFunc func(p Path, n Node) bool

// Walk visits every node below doc in document order.
func Walk(doc *Document, fn WalkFunc) {
	for i, c := range doc.Children {
		walk(Path{i}, c, fn)
	}
}

func walk(p Path, n Node, fn WalkFunc) {
	if !fn(p, n) {
		return
	}
	children, _ := childrenOf(n)
	for i, c := range children {
		walk(p.Child(i), c, fn)
	}
}

// ExtractText returns the concatenated text of every leaf below path.
func ExtractText(doc *Document, p Path) (string, error) {
	n, err := Resolve(doc, p)
	if err != nil {
		return "", err
	}
	return NodeText(n), nil
}

// NodeText concatenates leaf text depth-first, left to right.
func NodeText(n Node) string {
	var sb strings.Builder
	appendText(&sb, n)
	return sb.String()
}

func appendText(sb *strings.Builder, n Node) {
	if t, ok := n.(*Text); ok {
		sb.WriteString(t.Text)
		return
	}
	children, _ := childrenOf(n)
	for _, c := range children {
		appendText(sb, c)
	}
}

// PlainText renders the document as plain text: top-level blocks joined by a
// blank line.
func PlainText(doc *Document) string {
	parts := make([]string, len(doc.Children))
	for i, c := range doc.Children {
		parts[i] = BlockText(c)
	}
	return strings.Join(parts, "\n\n")
}

// BlockText renders one block. Container blocks put their child blocks on
// separate lines and table cells are separated by tabs.
func BlockText(n Node) string {
	e, ok := n.(*Element)
	if !ok {
		return NodeText(n)
	}
	switch {
	case e.Kind == TableRow:
		cells := make([]string, 0, len(e.Children))
		for _, c := range e.Children {
			cells = append(cells, BlockText(c))
		}
		return strings.Join(cells, "\t")
	case e.Kind == Table || e.Kind.IsList() || hasBlockChildren(e):
		lines := make([]string, 0, len(e.Children))
		for _, c := range e.Children {
			lines = append(lines, BlockText(c))
		}
		return strings.Join(lines, "\n")
	}
	return NodeText(e)
}

func hasBlockChildren(e *Element) bool {
	for _, c := range e.Children {
		if ce, ok := c.(*Element); ok && ce.Kind.IsBlock() && !ce.Kind.IsVoid() {
			return true
		}
	}
	return false
}

// Leaves returns every text leaf below n with its path relative to base.
func Leaves(base Path, n Node) []LeafAt {
	var out []LeafAt
	var visit func(p Path, n Node)
	visit = func(p Path, n Node) {
		if t, ok := n.(*Text); ok {
			out = append(out, LeafAt{Path: p, Text: t})
			return
		}
		children, _ := childrenOf(n)
		for i, c := range children {
			visit(p.Child(i), c)
		}
	}
	visit(base.Copy(), n)
	return out
}

// LeafAt pairs a text leaf with its path.
type LeafAt struct {
	Path Path
	Text *Text
}

// RuneLen is the length of a leaf in runes, the unit of Point offsets.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// splitAtRune splits s after the first n runes.
func splitAtRune(s string, n int) (string, string) {
	if n <= 0 {
		return "", s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
