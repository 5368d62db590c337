package wordcodec

import (
	"fmt"
	"strings"

	"github.com/thoulee21/bedit/internal/doctree"
)

// StyleMap translates between Word paragraph style IDs and document kinds.
type StyleMap struct{}

// Style IDs written on export.
const (
	StyleQuote      = "Quote"
	StyleCode       = "HTMLPreformatted"
	StyleListBullet = "ListBullet"
	StyleListNumber = "ListNumber"
)

// HeadingLevel returns 1-6 for heading styles in English, French or German
// ("Heading1", "heading 2", "Titre3", "Überschrift4") as well as Title and
// Subtitle, and 0 for anything else.
func (StyleMap) HeadingLevel(style string) int {
	lower := strings.ToLower(strings.TrimSpace(style))
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}
		rest := strings.TrimSpace(lower[len(prefix):])
		if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
			return int(rest[0] - '0')
		}
	}
	return 0
}

// HeadingStyle is the style ID written for a heading of the given level.
func (StyleMap) HeadingStyle(level int) string {
	return fmt.Sprintf("Heading%d", min(max(level, 1), 6))
}

// BlockKind maps a paragraph style to the block it imports as. List styles
// map to the list kind that should hold the paragraph.
func (s StyleMap) BlockKind(style string) doctree.Kind {
	if lvl := s.HeadingLevel(style); lvl > 0 {
		k, _ := doctree.HeadingKind(lvl)
		return k
	}
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case lower == "quote" || lower == "intensequote" || lower == "blocktext":
		return doctree.Blockquote
	case lower == "htmlpreformatted" || strings.HasPrefix(lower, "code") || lower == "sourcecode":
		return doctree.CodeBlock
	case strings.HasPrefix(lower, "listnumber"):
		return doctree.NumberedList
	case strings.HasPrefix(lower, "listbullet") || lower == "listparagraph":
		return doctree.BulletedList
	}
	return doctree.Paragraph
}

// StyleFor is the style ID written for a block kind, or "" for the default
// paragraph style.
func (s StyleMap) StyleFor(kind doctree.Kind) string {
	switch {
	case kind.IsHeading():
		return s.HeadingStyle(kind.HeadingLevel())
	case kind == doctree.Blockquote:
		return StyleQuote
	case kind == doctree.CodeBlock:
		return StyleCode
	case kind == doctree.BulletedList:
		return StyleListBullet
	case kind == doctree.NumberedList:
		return StyleListNumber
	}
	return ""
}
