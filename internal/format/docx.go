package format

import (
	"context"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/wordcodec"
)

// DOCXConverter handles Word documents through the codec. Paragraph styles
// decide the block kind; runs keep bold, italic and underline.
type DOCXConverter struct {
	Codec *wordcodec.Codec
}

var docxJustify = map[string]string{
	"left": "left", "start": "left",
	"center": "center",
	"right": "right", "end": "right",
	"both": "justify", "distribute": "justify",
}

func (c *DOCXConverter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ExternalCodecError{Op: "read", Err: err}
	}
	d, err := c.Codec.Load(ctx, data)
	if err != nil {
		return nil, &ExternalCodecError{Op: "load", Err: err}
	}

	b := &docxBuilder{styles: c.Codec.Styles()}
	for _, item := range d.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			b.paragraph(v)
		case *docx.Table:
			b.flush()
			if t := docxTable(v); t != nil {
				b.blocks = append(b.blocks, t)
			}
		}
	}
	b.flush()

	res := &Result{Doc: &doctree.Document{Children: b.blocks}}
	for _, n := range b.blocks {
		if e := n.(*doctree.Element); e.Kind == doctree.Heading1 {
			res.Metadata.Title = doctree.NodeText(e)
			break
		}
	}
	return res, nil
}

// docxBuilder groups consecutive list, quote and code paragraphs into one
// block each.
type docxBuilder struct {
	styles wordcodec.StyleMap
	blocks []doctree.Node
	open   *doctree.Element
	code   []string
}

func (b *docxBuilder) paragraph(p *docx.Paragraph) {
	style := ""
	if p.Properties != nil && p.Properties.Style != nil {
		style = p.Properties.Style.Val
	}
	kind := b.styles.BlockKind(style)
	inline := docxRuns(p)
	if len(inline) == 0 {
		return
	}

	if kind == doctree.CodeBlock {
		if b.open == nil || b.open.Kind != doctree.CodeBlock {
			b.flush()
			b.open = doctree.NewElement(doctree.CodeBlock)
		}
		b.code = append(b.code, doctree.NodeText(&doctree.Element{Children: inline}))
		return
	}

	if b.open != nil && b.open.Kind != kind {
		b.flush()
	}
	switch kind {
	case doctree.Blockquote:
		if b.open == nil {
			b.open = doctree.NewElement(doctree.Blockquote)
		}
		b.open.Children = append(b.open.Children, doctree.NewElement(doctree.Paragraph, inline...))
	case doctree.BulletedList, doctree.NumberedList:
		if b.open == nil {
			b.open = doctree.NewElement(kind)
		}
		b.open.Children = append(b.open.Children, doctree.NewElement(doctree.ListItem, inline...))
	default:
		e := doctree.NewElement(kind, inline...)
		e.Attrs.Align = docxAlign(p)
		b.blocks = append(b.blocks, e)
	}
}

func (b *docxBuilder) flush() {
	if b.open == nil {
		return
	}
	if b.open.Kind == doctree.CodeBlock {
		b.open.Children = []doctree.Node{&doctree.Text{Text: strings.Join(b.code, "\n")}}
		b.code = nil
	}
	b.blocks = append(b.blocks, b.open)
	b.open = nil
}

func docxAlign(p *docx.Paragraph) string {
	if p.Properties == nil || p.Properties.Justification == nil {
		return ""
	}
	return docxJustify[strings.ToLower(p.Properties.Justification.Val)]
}

// docxRuns returns the text runs of a paragraph, or nil when it holds no
// text at all.
func docxRuns(p *docx.Paragraph) []doctree.Node {
	var out []doctree.Node
	for _, child := range p.Children {
		switch v := child.(type) {
		case *docx.Run:
			out = appendInline(out, docxRun(v)...)
		case *docx.Hyperlink:
			out = appendInline(out, docxRun(&v.Run)...)
		}
	}
	if strings.TrimSpace(doctree.NodeText(&doctree.Element{Children: out})) == "" {
		return nil
	}
	return out
}

func docxRun(r *docx.Run) []doctree.Node {
	var marks doctree.Marks
	if rp := r.RunProperties; rp != nil {
		if rp.Bold != nil {
			marks = marks.With(doctree.Bold)
		}
		if rp.Italic != nil {
			marks = marks.With(doctree.Italic)
		}
		if rp.Underline != nil {
			marks = marks.With(doctree.Underline)
		}
	}
	var out []doctree.Node
	for _, rc := range r.Children {
		if t, ok := rc.(*docx.Text); ok {
			out = appendInline(out, &doctree.Text{Text: t.Text, Marks: marks})
		}
	}
	return out
}

func docxTable(t *docx.Table) *doctree.Element {
	var rows [][][]doctree.Node
	for _, tr := range t.TableRows {
		var cells [][]doctree.Node
		for _, tc := range tr.TableCells {
			var blocks []doctree.Node
			for _, p := range tc.Paragraphs {
				if inline := docxRuns(p); inline != nil {
					blocks = append(blocks, doctree.NewElement(doctree.Paragraph, inline...))
				}
			}
			cells = append(cells, blocks)
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil
	}
	width := 1
	for _, r := range rows {
		width = max(width, len(r))
	}
	tbl := doctree.NewElement(doctree.Table)
	for _, r := range rows {
		row := doctree.NewElement(doctree.TableRow)
		for c := 0; c < width; c++ {
			var blocks []doctree.Node
			if c < len(r) {
				blocks = r[c]
			}
			if len(blocks) == 0 {
				blocks = []doctree.Node{doctree.NewParagraph("")}
			}
			row.Children = append(row.Children, doctree.NewElement(doctree.TableCell, blocks...))
		}
		tbl.Children = append(tbl.Children, row)
	}
	return tbl
}

func (c *DOCXConverter) Export(ctx context.Context, doc *doctree.Document, w io.Writer) error {
	d := c.Codec.New()
	styles := c.Codec.Styles()
	for _, n := range doc.Children {
		e, ok := n.(*doctree.Element)
		if !ok {
			continue
		}
		docxBlock(d, styles, e)
	}
	data, err := c.Codec.Save(ctx, d)
	if err != nil {
		return &ExternalCodecError{Op: "save", Err: err}
	}
	_, err = w.Write(data)
	return err
}

func docxBlock(d *docx.Docx, styles wordcodec.StyleMap, e *doctree.Element) {
	switch {
	case e.Kind == doctree.Table:
		docxWriteTable(d, e)
	case e.Kind.IsList():
		for _, c := range e.Children {
			item, ok := c.(*doctree.Element)
			if !ok {
				continue
			}
			if item.Kind.IsList() {
				docxBlock(d, styles, item)
				continue
			}
			p := docxParagraph(d, styles.StyleFor(e.Kind))
			docxInline(p, item.Children)
		}
	case e.Kind == doctree.Blockquote:
		for _, line := range strings.Split(doctree.BlockText(e), "\n") {
			docxParagraph(d, styles.StyleFor(e.Kind)).AddText(line)
		}
	case e.Kind == doctree.CodeBlock:
		for _, line := range strings.Split(doctree.NodeText(e), "\n") {
			docxParagraph(d, styles.StyleFor(e.Kind)).AddText(line)
		}
	case e.Kind == doctree.HorizontalRule:
		d.AddParagraph()
	case e.Kind == doctree.Image || e.Kind == doctree.Attachment:
		d.AddParagraph().AddLink(attachmentLabel(e), e.Attrs.URL)
	default:
		p := docxParagraph(d, styles.StyleFor(e.Kind))
		if j := docxJustification(e.Attrs.Align); j != "" {
			p.Justification(j)
		}
		docxInline(p, e.Children)
	}
}

func docxParagraph(d *docx.Docx, style string) *docx.Paragraph {
	p := d.AddParagraph()
	if style != "" {
		p.Properties = &docx.ParagraphProperties{Style: &docx.Style{Val: style}}
	}
	return p
}

func docxJustification(align string) string {
	switch align {
	case "left", "center", "right":
		return align
	case "justify":
		return "both"
	}
	return ""
}

func docxInline(p *docx.Paragraph, nodes []doctree.Node) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *doctree.Text:
			if v.Text == "" {
				continue
			}
			r := p.AddText(v.Text)
			if v.Marks.Has(doctree.Bold) {
				r.Bold()
			}
			if v.Marks.Has(doctree.Italic) {
				r.Italic()
			}
			if v.Marks.Has(doctree.Underline) {
				r.Underline("single")
			}
		case *doctree.Element:
			switch v.Kind {
			case doctree.Link:
				p.AddLink(doctree.NodeText(v), v.Attrs.URL)
			case doctree.Image, doctree.Attachment:
				p.AddLink(attachmentLabel(v), v.Attrs.URL)
			default:
				docxInline(p, v.Children)
			}
		}
	}
}

// docxWriteTable writes a plain grid. Covered cells come out empty and the
// anchor of a merge keeps all of its content.
func docxWriteTable(d *docx.Docx, tbl *doctree.Element) {
	rows := len(tbl.Children)
	if rows == 0 {
		return
	}
	cols := len(tbl.Children[0].(*doctree.Element).Children)
	out := d.AddTable(rows, cols, 0, nil)
	for r, rn := range tbl.Children {
		for c, cn := range rn.(*doctree.Element).Children {
			cell := cn.(*doctree.Element)
			if r >= len(out.TableRows) || c >= len(out.TableRows[r].TableCells) {
				continue
			}
			target := out.TableRows[r].TableCells[c]
			if cell.IsCovered() {
				target.AddParagraph()
				continue
			}
			for _, line := range strings.Split(doctree.BlockText(cell), "\n") {
				target.AddParagraph().AddText(line)
			}
		}
	}
}
