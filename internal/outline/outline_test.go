package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thoulee21/bedit/internal/doctree"
)

func TestExtract(t *testing.T) {
	doc := &doctree.Document{Children: []doctree.Node{
		doctree.NewElement(doctree.Heading1, &doctree.Text{Text: "Intro"}),
		doctree.NewParagraph("body"),
		doctree.NewElement(doctree.Heading2, &doctree.Text{Text: "   "}),
		doctree.NewElement(doctree.Blockquote,
			doctree.NewElement(doctree.Heading3, &doctree.Text{Text: "Quoted "}, &doctree.Text{Text: "part", Marks: doctree.Bold}),
		),
		doctree.NewElement(doctree.Heading2, &doctree.Text{Text: "Next"}),
	}}

	got := Extract(doc)
	assert.Equal(t, []Entry{
		{Path: doctree.Path{0}, Level: 1, Text: "Intro"},
		{Path: doctree.Path{3, 0}, Level: 3, Text: "Quoted part"},
		{Path: doctree.Path{4}, Level: 2, Text: "Next"},
	}, got)
}

func TestExtract_NoHeadings(t *testing.T) {
	assert.Empty(t, Extract(doctree.New()))
}
