package format

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/thoulee21/bedit/internal/doctree"
)

// JSONConverter handles the loss-free wire form of the document.
//
// Payloads that are not an array of {type, children} objects, or that break
// the nesting rules, are not rejected: they import as a single paragraph
// holding the raw text, whitespace included.
type JSONConverter struct{}

func (c *JSONConverter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	src, err := readText(JSON, r)
	if err != nil {
		return nil, err
	}
	if doc, err := decodeDocument([]byte(src)); err == nil {
		return &Result{Doc: doc}, nil
	}
	return &Result{Doc: &doctree.Document{Children: []doctree.Node{
		doctree.NewParagraph(src),
	}}}, nil
}

func (c *JSONConverter) Export(ctx context.Context, doc *doctree.Document, w io.Writer) error {
	data, err := doctree.MarshalNodes(doc.Children)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

var errNotDocument = errors.New("payload is not an array of {type, children} objects")

func decodeDocument(data []byte) (*doctree.Document, error) {
	var shape []map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, errNotDocument
	}
	for _, obj := range shape {
		if _, ok := obj["type"]; !ok {
			return nil, errNotDocument
		}
		if _, ok := obj["children"]; !ok {
			return nil, errNotDocument
		}
	}
	nodes, err := doctree.UnmarshalNodes(data)
	if err != nil {
		return nil, err
	}
	doc := &doctree.Document{Children: nodes}
	if err := doctree.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}
