package doctree

import (
	"encoding/json"
	"fmt"
)

type wireSpan struct {
	Rows  int   `json:"rows"`
	Cols  int   `json:"cols"`
	Parts []int `json:"parts"`
}

type wireElement struct {
	Type     string    `json:"type"`
	URL      string    `json:"url,omitempty"`
	Name     string    `json:"name,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Align    string    `json:"align,omitempty"`
	Style    string    `json:"style,omitempty"`
	Span     *wireSpan `json:"span,omitempty"`
	Children []any     `json:"children"`
}

type wireText struct {
	Text          string `json:"text"`
	Bold          bool   `json:"bold,omitempty"`
	Italic        bool   `json:"italic,omitempty"`
	Underline     bool   `json:"underline,omitempty"`
	Strikethrough bool   `json:"strikethrough,omitempty"`
	Code          bool   `json:"code,omitempty"`
	Sub           bool   `json:"sub,omitempty"`
	Sup           bool   `json:"sup,omitempty"`
}

// wireNode is the decode-side union of wireElement and wireText.
type wireNode struct {
	Type     string     `json:"type"`
	URL      string     `json:"url"`
	Name     string     `json:"name"`
	Size     int64      `json:"size"`
	Align    string     `json:"align"`
	Style    string     `json:"style"`
	Span     *wireSpan  `json:"span"`
	Children []wireNode `json:"children"`

	Text          *string `json:"text"`
	Bold          bool    `json:"bold"`
	Italic        bool    `json:"italic"`
	Underline     bool    `json:"underline"`
	Strikethrough bool    `json:"strikethrough"`
	Code          bool    `json:"code"`
	Sub           bool    `json:"sub"`
	Sup           bool    `json:"sup"`
}

// MarshalNodes encodes nodes in the JSON wire form: an array of element
// objects whose leaves are text objects.
func MarshalNodes(nodes []Node) ([]byte, error) {
	return json.Marshal(toWireAll(nodes))
}

// UnmarshalNodes decodes the wire form. It checks kind names but not nesting
// rules; call Validate on the assembled document.
func UnmarshalNodes(data []byte) ([]Node, error) {
	var raw []wireNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode nodes: %w", err)
	}
	return fromWireAll(raw, Path{})
}

// MarshalJSON encodes the document as its array of top-level nodes.
func (d *Document) MarshalJSON() ([]byte, error) {
	return MarshalNodes(d.Children)
}

// UnmarshalJSON decodes the array form produced by MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	nodes, err := UnmarshalNodes(data)
	if err != nil {
		return err
	}
	d.Children = nodes
	return nil
}

func toWireAll(nodes []Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toWire(n))
	}
	return out
}

func toWire(n Node) any {
	switch v := n.(type) {
	case *Text:
		return wireText{
			Text:          v.Text,
			Bold:          v.Marks.Has(Bold),
			Italic:        v.Marks.Has(Italic),
			Underline:     v.Marks.Has(Underline),
			Strikethrough: v.Marks.Has(Strikethrough),
			Code:          v.Marks.Has(Code),
			Sub:           v.Marks.Has(Sub),
			Sup:           v.Marks.Has(Sup),
		}
	case *Element:
		w := wireElement{
			Type:     v.Kind.String(),
			URL:      v.Attrs.URL,
			Name:     v.Attrs.Name,
			Size:     v.Attrs.Size,
			Align:    v.Attrs.Align,
			Style:    v.Attrs.Style,
			Children: toWireAll(v.Children),
		}
		if s := v.Attrs.Span; s != nil {
			w.Span = &wireSpan{Rows: s.Rows, Cols: s.Cols, Parts: append([]int{}, s.Parts...)}
		}
		return w
	case *Document:
		return toWireAll(v.Children)
	}
	return nil
}

func fromWireAll(raw []wireNode, at Path) ([]Node, error) {
	out := make([]Node, 0, len(raw))
	for i, w := range raw {
		n, err := fromWire(w, at.Child(i))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func fromWire(w wireNode, at Path) (Node, error) {
	if w.Type == "" {
		if w.Text == nil {
			return nil, fmt.Errorf("node [%s]: missing type and text", at)
		}
		var m Marks
		for mk, on := range map[Marks]bool{
			Bold: w.Bold, Italic: w.Italic, Underline: w.Underline,
			Strikethrough: w.Strikethrough, Code: w.Code, Sub: w.Sub, Sup: w.Sup,
		} {
			if on {
				m = m.With(mk)
			}
		}
		return &Text{Text: *w.Text, Marks: m}, nil
	}

	kind, ok := ParseKind(w.Type)
	if !ok {
		return nil, fmt.Errorf("node [%s]: unknown type %q", at, w.Type)
	}
	children, err := fromWireAll(w.Children, at)
	if err != nil {
		return nil, err
	}
	e := &Element{
		Kind: kind,
		Attrs: Attributes{
			URL:   w.URL,
			Name:  w.Name,
			Size:  w.Size,
			Align: w.Align,
			Style: w.Style,
		},
		Children: children,
	}
	if len(children) == 0 {
		e.Children = nil
	}
	if w.Span != nil {
		e.Attrs.Span = &Span{Rows: w.Span.Rows, Cols: w.Span.Cols, Parts: append([]int(nil), w.Span.Parts...)}
	}
	return e, nil
}
