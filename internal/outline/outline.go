// Package outline lists the headings of a document for navigation.
package outline

import (
	"strings"

	"github.com/thoulee21/bedit/internal/doctree"
)

// Entry is one heading in document order.
type Entry struct {
	Path  doctree.Path `json:"path"`
	Level int          `json:"level"`
	Text  string       `json:"text"`
}

// Extract returns every heading in the document, including headings nested
// inside quotes and table cells. Headings with blank text are left out.
func Extract(doc *doctree.Document) []Entry {
	var out []Entry
	doctree.Walk(doc, func(p doctree.Path, n doctree.Node) bool {
		e, ok := n.(*doctree.Element)
		if !ok {
			return false
		}
		if !e.Kind.IsHeading() {
			return true
		}
		text := doctree.NodeText(e)
		if strings.TrimSpace(text) != "" {
			out = append(out, Entry{Path: p.Copy(), Level: e.Kind.HeadingLevel(), Text: text})
		}
		return false
	})
	return out
}
