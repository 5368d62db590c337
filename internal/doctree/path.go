package doctree

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Path is a position in the tree: each index selects a child of the
// previous level. The empty path is the document root.
type Path []int

// Ordering is the result of comparing two positions.
type Ordering int

const (
	Before Ordering = -1
	Same   Ordering = 0
	After  Ordering = 1
)

// String renders the path as dot-separated indices.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// ParsePath parses the dot-separated form produced by String.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Path{}, nil
	}
	fields := strings.Split(s, ".")
	p := make(Path, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("parse path %q: bad index %q", s, f)
		}
		p[i] = n
	}
	return p, nil
}

// Copy returns an independent copy of p.
func (p Path) Copy() Path {
	return append(Path{}, p...)
}

// Child returns the path of the i-th child of p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

// Parent returns the path of the containing node. The root's parent is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p[:len(p)-1].Copy()
}

// Next returns the path of the following sibling.
func (p Path) Next() Path {
	if len(p) == 0 {
		return Path{}
	}
	out := p.Copy()
	out[len(out)-1]++
	return out
}

// Previous returns the path of the preceding sibling, or false at index 0.
func (p Path) Previous() (Path, bool) {
	if len(p) == 0 || p[len(p)-1] == 0 {
		return nil, false
	}
	out := p.Copy()
	out[len(out)-1]--
	return out, true
}

// Compare orders two paths in document (pre-order) order. An ancestor sorts
// before its descendants.
func (p Path) Compare(q Path) Ordering {
	n := min(len(p), len(q))
	for i := 0; i < n; i++ {
		switch {
		case p[i] < q[i]:
			return Before
		case p[i] > q[i]:
			return After
		}
	}
	switch {
	case len(p) < len(q):
		return Before
	case len(p) > len(q):
		return After
	}
	return Same
}

// Equal reports whether both paths address the same position.
func (p Path) Equal(q Path) bool { return p.Compare(q) == Same }

// IsAncestorOf reports whether p is a proper prefix of q.
func (p Path) IsAncestorOf(q Path) bool {
	if len(p) >= len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Point is a caret position inside a text leaf. Offset counts runes.
type Point struct {
	Path   Path `json:"path"`
	Offset int  `json:"offset"`
}

// Compare orders two points in document order.
func (pt Point) Compare(o Point) Ordering {
	if c := pt.Path.Compare(o.Path); c != Same {
		return c
	}
	switch {
	case pt.Offset < o.Offset:
		return Before
	case pt.Offset > o.Offset:
		return After
	}
	return Same
}

// Valid reports whether the point resolves to a leaf in doc with an offset
// inside its text.
func (pt Point) Valid(doc *Document) bool {
	n, err := Resolve(doc, pt.Path)
	if err != nil {
		return false
	}
	t, ok := n.(*Text)
	return ok && pt.Offset >= 0 && pt.Offset <= utf8.RuneCountInString(t.Text)
}

// Range is a selection between an anchor and a focus point.
type Range struct {
	Anchor Point `json:"anchor"`
	Focus  Point `json:"focus"`
}

// IsCollapsed reports whether anchor and focus coincide.
func (r Range) IsCollapsed() bool { return r.Anchor.Compare(r.Focus) == Same }

// Edges returns the range boundaries in document order.
func (r Range) Edges() (start, end Point) {
	if r.Anchor.Compare(r.Focus) == After {
		return r.Focus, r.Anchor
	}
	return r.Anchor, r.Focus
}
