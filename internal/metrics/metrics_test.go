package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thoulee21/bedit/internal/doctree"
)

func TestCompute(t *testing.T) {
	doc := &doctree.Document{Children: []doctree.Node{
		doctree.NewParagraph("Hello   world"),
		doctree.NewParagraph("foo"),
	}}
	assert.Equal(t, Counts{Characters: 18, Words: 3, Lines: 2}, Compute(doc))
}

func TestCompute_Empty(t *testing.T) {
	assert.Equal(t, Counts{Characters: 0, Words: 0, Lines: 1}, Compute(&doctree.Document{}))
	assert.Equal(t, Counts{Lines: 1}, Compute(doctree.New()))
}

func TestCompute_CountsRunes(t *testing.T) {
	doc := &doctree.Document{Children: []doctree.Node{doctree.NewParagraph("héllo wörld")}}
	assert.Equal(t, 11, Compute(doc).Characters)
}

func TestCursor(t *testing.T) {
	doc := &doctree.Document{Children: []doctree.Node{
		doctree.NewParagraph("first"),
		doctree.NewElement(doctree.Paragraph,
			&doctree.Text{Text: "ab"},
			doctree.NewElement(doctree.Link, &doctree.Text{Text: "cde"}),
			&doctree.Text{Text: "fg"},
		),
	}}

	tests := []struct {
		name string
		pt   *doctree.Point
		want Position
	}{
		{"nil point", nil, Position{1, 1}},
		{"invalid point", &doctree.Point{Path: doctree.Path{7, 0}}, Position{1, 1}},
		{"start of first block", &doctree.Point{Path: doctree.Path{0, 0}}, Position{1, 1}},
		{"end of first block", &doctree.Point{Path: doctree.Path{0, 0}, Offset: 5}, Position{1, 6}},
		{"inside link", &doctree.Point{Path: doctree.Path{1, 1, 0}, Offset: 2}, Position{2, 5}},
		{"after link", &doctree.Point{Path: doctree.Path{1, 2}, Offset: 1}, Position{2, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cursor(doc, tt.pt))
		})
	}
}
