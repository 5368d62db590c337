package doctree

import (
	"errors"
	"fmt"
)

// Op names the kind of structural change a mutation made.
type Op int

const (
	OpInsert Op = iota + 1
	OpRemove
	OpSetProperties
	OpReplace
	OpWrap
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpRemove:
		return "remove"
	case OpSetProperties:
		return "set_properties"
	case OpReplace:
		return "replace"
	case OpWrap:
		return "wrap"
	}
	return "none"
}

// MarshalText writes the op name, so changes read well on the wire.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText reads an op name written by MarshalText.
func (o *Op) UnmarshalText(b []byte) error {
	for op := OpInsert; op <= OpWrap; op++ {
		if op.String() == string(b) {
			*o = op
			return nil
		}
	}
	if string(b) == "none" {
		*o = 0
		return nil
	}
	return fmt.Errorf("unknown op %q", b)
}

// Change describes a completed mutation. Paths held by callers at or after
// Path are stale once a change is applied.
type Change struct {
	Op    Op   `json:"op"`
	Path  Path `json:"path"`
	Count int  `json:"count,omitempty"`
}

// Patch lists attribute updates; nil fields are left unchanged.
type Patch struct {
	URL   *string `json:"url,omitempty"`
	Name  *string `json:"name,omitempty"`
	Size  *int64  `json:"size,omitempty"`
	Align *string `json:"align,omitempty"`
	Style *string `json:"style,omitempty"`
}

func (pt Patch) apply(a Attributes) Attributes {
	if pt.URL != nil {
		a.URL = *pt.URL
	}
	if pt.Name != nil {
		a.Name = *pt.Name
	}
	if pt.Size != nil {
		a.Size = *pt.Size
	}
	if pt.Align != nil {
		a.Align = *pt.Align
	}
	if pt.Style != nil {
		a.Style = *pt.Style
	}
	return a
}

// update rebuilds the spine from the root down to p, replacing the node at p
// with the result of fn. Nodes off the spine are shared.
func update(doc *Document, p Path, fn func(Node) (Node, error)) (*Document, error) {
	n, err := replaceAt(doc, p, 0, fn)
	if err != nil {
		return nil, err
	}
	return n.(*Document), nil
}

func replaceAt(n Node, p Path, depth int, fn func(Node) (Node, error)) (Node, error) {
	if depth == len(p) {
		return fn(n)
	}
	children, ok := childrenOf(n)
	idx := p[depth]
	if !ok || idx < 0 || idx >= len(children) {
		return nil, outOfRange(p, depth)
	}
	child, err := replaceAt(children[idx], p, depth+1, fn)
	if err != nil {
		return nil, err
	}
	next := append([]Node(nil), children...)
	next[idx] = child
	return withChildren(n, next), nil
}

// errGridEdit rejects generic edits of table rows and cells. The table
// package changes them as a whole so rows stay rectangular and merges stay
// intact.
var errGridEdit = fmt.Errorf("rows and cells change only through table operations: %w", ErrInvalidTarget)

func isGrid(n Node) bool {
	e, ok := n.(*Element)
	return ok && (e.Kind == Table || e.Kind == TableRow)
}

// InsertNodes inserts nodes as consecutive siblings starting at path at.
// Every inserted subtree must satisfy the nesting rules, and the direct
// children of tables and rows cannot be inserted here.
func InsertNodes(doc *Document, at Path, nodes ...Node) (*Document, Change, error) {
	if len(at) == 0 {
		return doc, Change{}, fmt.Errorf("insert at root: %w", ErrInvalidTarget)
	}
	if len(nodes) == 0 {
		return doc, Change{}, nil
	}
	idx := at[len(at)-1]
	next, err := update(doc, at.Parent(), func(parent Node) (Node, error) {
		children, ok := childrenOf(parent)
		if !ok {
			return nil, fmt.Errorf("insert into text leaf: %w", ErrInvalidTarget)
		}
		if idx < 0 || idx > len(children) {
			return nil, outOfRange(at, len(at)-1)
		}
		if isGrid(parent) {
			return nil, fmt.Errorf("insert into %s: %w", describe(parent), errGridEdit)
		}
		for i, n := range nodes {
			if !Accepts(parent, n) {
				return nil, fmt.Errorf("insert %s into %s: %w", describe(n), describe(parent), ErrInvalidTarget)
			}
			if err := validateNode(n, at.Parent().Child(idx+i)); err != nil {
				return nil, fmt.Errorf("insert %s: %v: %w", describe(n), err, ErrInvalidTarget)
			}
		}
		out := make([]Node, 0, len(children)+len(nodes))
		out = append(out, children[:idx]...)
		out = append(out, nodes...)
		out = append(out, children[idx:]...)
		return withChildren(parent, out), nil
	})
	if err != nil {
		return doc, Change{}, err
	}
	return next, Change{Op: OpInsert, Path: at.Copy(), Count: len(nodes)}, nil
}

// RemoveNodes removes the node at path at. Removing the only child of a
// non-void element, or a row or cell of a table, is refused.
func RemoveNodes(doc *Document, at Path) (*Document, Change, error) {
	if len(at) == 0 {
		return doc, Change{}, fmt.Errorf("remove root: %w", ErrInvalidTarget)
	}
	idx := at[len(at)-1]
	next, err := update(doc, at.Parent(), func(parent Node) (Node, error) {
		children, ok := childrenOf(parent)
		if !ok || idx < 0 || idx >= len(children) {
			return nil, outOfRange(at, len(at)-1)
		}
		if isGrid(parent) {
			return nil, fmt.Errorf("remove from %s: %w", describe(parent), errGridEdit)
		}
		if _, isElem := parent.(*Element); isElem && len(children) == 1 {
			return nil, fmt.Errorf("remove last child of %s: %w", describe(parent), ErrInvalidTarget)
		}
		out := make([]Node, 0, len(children)-1)
		out = append(out, children[:idx]...)
		out = append(out, children[idx+1:]...)
		return withChildren(parent, out), nil
	})
	if err != nil {
		return doc, Change{}, err
	}
	return next, Change{Op: OpRemove, Path: at.Copy(), Count: 1}, nil
}

// SetNodeProperties merges patch into the attributes of the element at path.
func SetNodeProperties(doc *Document, at Path, patch Patch) (*Document, Change, error) {
	next, err := update(doc, at, func(n Node) (Node, error) {
		e, ok := n.(*Element)
		if !ok {
			return nil, fmt.Errorf("set properties on %s: %w", describe(n), ErrInvalidTarget)
		}
		cp := *e
		cp.Attrs = patch.apply(e.Attrs.clone())
		return &cp, nil
	})
	if err != nil {
		return doc, Change{}, err
	}
	return next, Change{Op: OpSetProperties, Path: at.Copy()}, nil
}

// ReplaceNode swaps the node at path for n, checking that the parent accepts it.
func ReplaceNode(doc *Document, at Path, n Node) (*Document, Change, error) {
	if len(at) == 0 {
		d, ok := n.(*Document)
		if !ok {
			return doc, Change{}, fmt.Errorf("replace root with %s: %w", describe(n), ErrInvalidTarget)
		}
		return d, Change{Op: OpReplace, Path: Path{}}, nil
	}
	idx := at[len(at)-1]
	next, err := update(doc, at.Parent(), func(parent Node) (Node, error) {
		children, ok := childrenOf(parent)
		if !ok || idx < 0 || idx >= len(children) {
			return nil, outOfRange(at, len(at)-1)
		}
		if isGrid(parent) {
			return nil, fmt.Errorf("replace in %s: %w", describe(parent), errGridEdit)
		}
		if !Accepts(parent, n) {
			return nil, fmt.Errorf("replace with %s in %s: %w", describe(n), describe(parent), ErrInvalidTarget)
		}
		if err := validateNode(n, at); err != nil {
			return nil, fmt.Errorf("replace with %s: %v: %w", describe(n), err, ErrInvalidTarget)
		}
		out := append([]Node(nil), children...)
		out[idx] = n
		return withChildren(parent, out), nil
	})
	if err != nil {
		return doc, Change{}, err
	}
	return next, Change{Op: OpReplace, Path: at.Copy(), Count: 1}, nil
}

// WrapNodes moves the content covered by rng into wrapper, splitting the
// boundary leaves at the range offsets. Both edges must lie in leaves of the
// same parent. The children already held by wrapper are discarded.
func WrapNodes(doc *Document, rng Range, wrapper *Element) (*Document, Change, error) {
	if wrapper == nil || wrapper.Kind.IsVoid() {
		return doc, Change{}, fmt.Errorf("wrap in void element: %w", ErrInvalidTarget)
	}
	if rng.IsCollapsed() {
		return doc, Change{}, fmt.Errorf("wrap collapsed range: %w", ErrInvalidTarget)
	}
	start, end := rng.Edges()
	if !start.Valid(doc) || !end.Valid(doc) {
		return doc, Change{}, fmt.Errorf("wrap range: %w", ErrPathOutOfRange)
	}
	if len(start.Path) == 0 || !start.Path.Parent().Equal(end.Path.Parent()) {
		return doc, Change{}, fmt.Errorf("wrap across parents: %w", ErrInvalidTarget)
	}

	parentPath := start.Path.Parent()
	si, ei := start.Path[len(start.Path)-1], end.Path[len(end.Path)-1]
	pos := si

	next, err := update(doc, parentPath, func(parent Node) (Node, error) {
		children, _ := childrenOf(parent)
		startLeaf := children[si].(*Text)
		endLeaf := children[ei].(*Text)

		head, rest := splitAtRune(startLeaf.Text, start.Offset)
		var inner []Node
		var tail string
		if si == ei {
			mid, after := splitAtRune(rest, end.Offset-start.Offset)
			inner = appendLeaf(inner, mid, startLeaf.Marks)
			tail = after
		} else {
			inner = appendLeaf(inner, rest, startLeaf.Marks)
			inner = append(inner, children[si+1:ei]...)
			before, after := splitAtRune(endLeaf.Text, end.Offset)
			inner = appendLeaf(inner, before, endLeaf.Marks)
			tail = after
		}
		if len(inner) == 0 {
			return nil, fmt.Errorf("wrap empty selection: %w", ErrInvalidTarget)
		}

		w := &Element{Kind: wrapper.Kind, Attrs: wrapper.Attrs.clone(), Children: inner}
		if !Accepts(parent, w) {
			return nil, fmt.Errorf("wrap %s inside %s: %w", w.Kind, describe(parent), ErrInvalidTarget)
		}
		for _, c := range inner {
			if !Accepts(w, c) {
				return nil, fmt.Errorf("wrap %s in %s: %w", describe(c), w.Kind, ErrInvalidTarget)
			}
		}

		out := make([]Node, 0, len(children)+2)
		out = append(out, children[:si]...)
		if head != "" {
			out = append(out, &Text{Text: head, Marks: startLeaf.Marks})
			pos++
		}
		out = append(out, w)
		out = appendLeaf(out, tail, endLeaf.Marks)
		out = append(out, children[ei+1:]...)
		return withChildren(parent, out), nil
	})
	if err != nil {
		return doc, Change{}, err
	}
	return next, Change{Op: OpWrap, Path: parentPath.Child(pos), Count: 1}, nil
}

func appendLeaf(nodes []Node, text string, marks Marks) []Node {
	if text == "" {
		return nodes
	}
	return append(nodes, &Text{Text: text, Marks: marks})
}

// IsStructural reports whether err came from a rejected tree operation.
func IsStructural(err error) bool {
	var iv *InvariantViolation
	return errors.Is(err, ErrPathOutOfRange) || errors.Is(err, ErrInvalidTarget) || errors.As(err, &iv)
}
