package doctree

import "fmt"

// Accepts reports whether parent may hold child directly. parent is a
// *Document or an *Element.
func Accepts(parent Node, child Node) bool {
	switch p := parent.(type) {
	case *Document:
		e, ok := child.(*Element)
		return ok && e.Kind.IsBlock()
	case *Element:
		return elementAccepts(p, child)
	}
	return false
}

func elementAccepts(p *Element, child Node) bool {
	if p.Kind.IsVoid() {
		return false
	}
	_, isText := child.(*Text)
	e, _ := child.(*Element)

	switch p.Kind {
	case Table:
		return e != nil && e.Kind == TableRow
	case TableRow:
		return e != nil && e.Kind == TableCell
	case BulletedList, NumberedList:
		return e != nil && (e.Kind == ListItem || e.Kind.IsList())
	}

	if isText {
		return p.Kind.holdsInline()
	}
	if e == nil {
		return false
	}

	switch e.Kind {
	case ListItem, TableRow, TableCell:
		return false
	case Link:
		return p.Kind.holdsInline() && p.Kind != Link
	case Image, Attachment:
		return true
	}

	// Remaining child kinds are blocks.
	switch p.Kind {
	case Blockquote, TableCell:
		return true
	case ListItem:
		return e.Kind == Paragraph || e.Kind.IsList()
	}
	return false
}

// Validate checks every nesting rule of the document and the rectangular
// shape of its tables.
func Validate(doc *Document) error {
	for i, c := range doc.Children {
		if !Accepts(doc, c) {
			return &InvariantViolation{Path: Path{i}, Reason: fmt.Sprintf("%s not allowed at root", describe(c))}
		}
		if err := validateNode(c, Path{i}); err != nil {
			return err
		}
	}
	return nil
}

// MustValidate panics with the violation if doc breaks an invariant.
func MustValidate(doc *Document) {
	if err := Validate(doc); err != nil {
		panic(err)
	}
}

func validateNode(n Node, at Path) error {
	e, ok := n.(*Element)
	if !ok {
		return nil
	}
	if e.Kind.IsVoid() {
		if len(e.Children) > 0 {
			return &InvariantViolation{Path: at, Reason: fmt.Sprintf("void %s has children", e.Kind)}
		}
		return nil
	}
	if len(e.Children) == 0 {
		return &InvariantViolation{Path: at, Reason: fmt.Sprintf("%s has no children", e.Kind)}
	}
	for i, c := range e.Children {
		if !Accepts(e, c) {
			return &InvariantViolation{Path: at.Child(i), Reason: fmt.Sprintf("%s not allowed in %s", describe(c), e.Kind)}
		}
		if err := validateNode(c, at.Child(i)); err != nil {
			return err
		}
	}
	if e.Kind == Table {
		width := -1
		for i, r := range e.Children {
			cells := len(r.(*Element).Children)
			if width >= 0 && cells != width {
				return &InvariantViolation{Path: at.Child(i), Reason: fmt.Sprintf("row has %d cells, want %d", cells, width)}
			}
			width = cells
		}
	}
	return nil
}

func describe(n Node) string {
	switch v := n.(type) {
	case *Element:
		return v.Kind.String()
	case *Text:
		return "text"
	case *Document:
		return "document"
	}
	return "nil"
}
