package doctree

import "fmt"

// Kind identifies the type of an Element.
type Kind int

const (
	Paragraph Kind = iota
	Heading1
	Heading2
	Heading3
	Heading4
	Heading5
	Heading6
	Blockquote
	CodeBlock
	BulletedList
	NumberedList
	ListItem
	Link
	Image
	Attachment
	HorizontalRule
	Table
	TableRow
	TableCell
)

var kindNames = [...]string{
	Paragraph:      "paragraph",
	Heading1:       "heading-1",
	Heading2:       "heading-2",
	Heading3:       "heading-3",
	Heading4:       "heading-4",
	Heading5:       "heading-5",
	Heading6:       "heading-6",
	Blockquote:     "blockquote",
	CodeBlock:      "code-block",
	BulletedList:   "bulleted-list",
	NumberedList:   "numbered-list",
	ListItem:       "list-item",
	Link:           "link",
	Image:          "image",
	Attachment:     "attachment",
	HorizontalRule: "horizontal-rule",
	Table:          "table",
	TableRow:       "table-row",
	TableCell:      "table-cell",
}

// String returns the wire name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a wire name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// HeadingKind returns the heading kind for level 1-6.
func HeadingKind(level int) (Kind, bool) {
	if level < 1 || level > 6 {
		return 0, false
	}
	return Heading1 + Kind(level-1), true
}

// HeadingLevel returns 1-6 for heading kinds and 0 otherwise.
func (k Kind) HeadingLevel() int {
	if k >= Heading1 && k <= Heading6 {
		return int(k-Heading1) + 1
	}
	return 0
}

// IsHeading reports whether k is one of the six heading kinds.
func (k Kind) IsHeading() bool { return k.HeadingLevel() > 0 }

// IsList reports whether k is a bulleted or numbered list.
func (k Kind) IsList() bool { return k == BulletedList || k == NumberedList }

// IsVoid reports whether elements of this kind carry no children.
func (k Kind) IsVoid() bool {
	switch k {
	case Image, Attachment, HorizontalRule:
		return true
	}
	return false
}

// IsInline reports whether elements of this kind live among text leaves.
func (k Kind) IsInline() bool { return k == Link }

// IsBlock reports whether k may appear at the document root.
func (k Kind) IsBlock() bool {
	switch k {
	case ListItem, Link, TableRow, TableCell:
		return false
	}
	return k >= 0 && int(k) < len(kindNames)
}

// holdsInline reports whether elements of this kind contain text runs.
func (k Kind) holdsInline() bool {
	switch k {
	case Paragraph, Heading1, Heading2, Heading3, Heading4, Heading5, Heading6,
		CodeBlock, ListItem, Link, Blockquote, TableCell:
		return true
	}
	return false
}
