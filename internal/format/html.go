package format

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/thoulee21/bedit/internal/doctree"
)

// HTMLConverter handles HTML. Import optionally sanitizes the markup before
// mapping tags onto elements; export renders an HTML fragment, optionally
// minified.
type HTMLConverter struct {
	Sanitize bool
	Minify   bool
}

var alignments = map[string]bool{"left": true, "center": true, "right": true, "justify": true}

func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
	p.AllowStyles("text-align").MatchingEnum("left", "center", "right", "justify").
		OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6", "td", "th", "li")
	p.AllowElements("title", "u", "ins", "s", "del", "sub", "sup", "mark")
	return p
}

func (c *HTMLConverter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	title := rawTitle(data)
	if c.Sanitize {
		data = sanitizePolicy().SanitizeBytes(data)
	}
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, parseErr(HTML, err)
	}

	res := &Result{Metadata: FileMetadata{Title: title}}
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	res.Doc = &doctree.Document{Children: htmlBlocks(body)}
	return res, nil
}

// rawTitle reads <title> before sanitizing, which drops the head.
func rawTitle(data []byte) string {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	if t := findElement(root, atom.Title); t != nil {
		return strings.TrimSpace(textContent(t))
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, a); f != nil {
			return f
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// alignOf reads text-align from an inline style or the legacy align
// attribute.
func alignOf(n *html.Node) string {
	if a := strings.ToLower(attr(n, "align")); alignments[a] {
		return a
	}
	for _, decl := range strings.Split(attr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if !ok || strings.TrimSpace(strings.ToLower(k)) != "text-align" {
			continue
		}
		if v = strings.TrimSpace(strings.ToLower(v)); alignments[v] {
			return v
		}
	}
	return ""
}

var inlineTags = map[atom.Atom]doctree.Marks{
	atom.B:      doctree.Bold,
	atom.Strong: doctree.Bold,
	atom.I:      doctree.Italic,
	atom.Em:     doctree.Italic,
	atom.Cite:   doctree.Italic,
	atom.U:      doctree.Underline,
	atom.Ins:    doctree.Underline,
	atom.S:      doctree.Strikethrough,
	atom.Strike: doctree.Strikethrough,
	atom.Del:    doctree.Strikethrough,
	atom.Code:   doctree.Code,
	atom.Kbd:    doctree.Code,
	atom.Samp:   doctree.Code,
	atom.Sub:    doctree.Sub,
	atom.Sup:    doctree.Sup,
	atom.Span:   0,
	atom.Mark:   0,
	atom.Small:  0,
	atom.Abbr:   0,
	atom.Font:   0,
	atom.Label:  0,
	atom.Time:   0,
	atom.Q:      0,
	atom.Var:    0,
}

func isInlineHTML(n *html.Node) bool {
	switch n.Type {
	case html.TextNode:
		return true
	case html.ElementNode:
		if n.DataAtom == atom.A || n.DataAtom == atom.Br || n.DataAtom == atom.Img {
			return true
		}
		_, ok := inlineTags[n.DataAtom]
		return ok
	}
	return false
}

// htmlBlocks maps the children of a container to block elements. Runs of
// loose inline content become paragraphs.
func htmlBlocks(parent *html.Node) []doctree.Node {
	var out []doctree.Node
	var loose []doctree.Node
	flush := func() {
		loose = trimInline(loose)
		if len(loose) > 0 {
			out = append(out, doctree.NewElement(doctree.Paragraph, loose...))
		}
		loose = nil
	}
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if isInlineHTML(c) {
			loose = appendInline(loose, htmlInline(c, 0, false)...)
			continue
		}
		if c.Type != html.ElementNode {
			continue
		}
		flush()
		out = append(out, htmlBlock(c)...)
	}
	flush()
	return out
}

func htmlBlock(n *html.Node) []doctree.Node {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Head, atom.Template, atom.Noscript:
		return nil
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		kind, _ := doctree.HeadingKind(int(n.Data[1] - '0'))
		return []doctree.Node{inlineElement(kind, n)}
	case atom.P:
		return []doctree.Node{inlineElement(doctree.Paragraph, n)}
	case atom.Pre:
		body := strings.TrimSuffix(strings.TrimPrefix(textContent(n), "\n"), "\n")
		return []doctree.Node{doctree.NewElement(doctree.CodeBlock, &doctree.Text{Text: body})}
	case atom.Blockquote:
		children := htmlBlocks(n)
		if len(children) == 0 {
			children = []doctree.Node{doctree.NewParagraph("")}
		}
		return []doctree.Node{doctree.NewElement(doctree.Blockquote, children...)}
	case atom.Ul, atom.Ol:
		return []doctree.Node{htmlList(n)}
	case atom.Li:
		return []doctree.Node{inlineElement(doctree.Paragraph, n)}
	case atom.Table:
		if t := htmlTable(n); t != nil {
			return []doctree.Node{t}
		}
		return nil
	case atom.Hr:
		return []doctree.Node{doctree.NewElement(doctree.HorizontalRule)}
	}
	return htmlBlocks(n)
}

func inlineElement(kind doctree.Kind, n *html.Node) *doctree.Element {
	var children []doctree.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = appendInline(children, htmlInline(c, 0, false)...)
	}
	children = trimInline(children)
	if len(children) == 0 {
		children = []doctree.Node{&doctree.Text{}}
	}
	e := doctree.NewElement(kind, children...)
	e.Attrs.Align = alignOf(n)
	return e
}

// htmlInline converts inline markup under marks. Whitespace collapses the
// way a browser renders it.
func htmlInline(n *html.Node, marks doctree.Marks, inLink bool) []doctree.Node {
	switch n.Type {
	case html.TextNode:
		return []doctree.Node{&doctree.Text{Text: collapseSpace(n.Data), Marks: marks}}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Br:
		return []doctree.Node{&doctree.Text{Text: "\n", Marks: marks}}
	case atom.Img:
		return []doctree.Node{&doctree.Element{
			Kind:  doctree.Image,
			Attrs: doctree.Attributes{URL: attr(n, "src"), Name: attr(n, "alt")},
		}}
	case atom.Script, atom.Style:
		return nil
	}

	var children []doctree.Node
	inner := marks
	if m, ok := inlineTags[n.DataAtom]; ok {
		inner = marks.With(m)
	}
	nested := inLink || n.DataAtom == atom.A
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = appendInline(children, htmlInline(c, inner, nested)...)
	}
	if n.DataAtom != atom.A || inLink {
		return children
	}
	href := attr(n, "href")
	if len(children) == 0 {
		children = []doctree.Node{&doctree.Text{Text: href, Marks: marks}}
	}
	for i, c := range children {
		if _, ok := c.(*doctree.Element); ok {
			children[i] = &doctree.Text{Text: doctree.NodeText(c), Marks: marks}
		}
	}
	return []doctree.Node{&doctree.Element{
		Kind:     doctree.Link,
		Attrs:    doctree.Attributes{URL: href},
		Children: children,
	}}
}

func collapseSpace(s string) string {
	var sb strings.Builder
	space := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			if !space {
				sb.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// trimInline drops leading and trailing whitespace of an inline run and
// reports nothing for a run that is entirely blank.
func trimInline(nodes []doctree.Node) []doctree.Node {
	for len(nodes) > 0 {
		t, ok := nodes[0].(*doctree.Text)
		if !ok {
			break
		}
		trimmed := strings.TrimLeft(t.Text, " ")
		if trimmed != "" {
			nodes[0] = &doctree.Text{Text: trimmed, Marks: t.Marks}
			break
		}
		nodes = nodes[1:]
	}
	for len(nodes) > 0 {
		last := len(nodes) - 1
		t, ok := nodes[last].(*doctree.Text)
		if !ok {
			break
		}
		trimmed := strings.TrimRight(t.Text, " ")
		if trimmed != "" {
			nodes[last] = &doctree.Text{Text: trimmed, Marks: t.Marks}
			break
		}
		nodes = nodes[:last]
	}
	return nodes
}

// htmlList maps ul/ol. A list nested inside an item becomes a sibling of
// that item.
func htmlList(n *html.Node) *doctree.Element {
	kind := doctree.BulletedList
	if n.DataAtom == atom.Ol {
		kind = doctree.NumberedList
	}
	list := doctree.NewElement(kind)
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode {
			continue
		}
		if li.DataAtom == atom.Ul || li.DataAtom == atom.Ol {
			list.Children = append(list.Children, htmlList(li))
			continue
		}
		if li.DataAtom != atom.Li {
			continue
		}
		item := doctree.NewElement(doctree.ListItem)
		item.Attrs.Align = alignOf(li)
		var nested []doctree.Node
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol):
				nested = append(nested, htmlList(c))
			case isInlineHTML(c):
				item.Children = appendInline(item.Children, htmlInline(c, 0, false)...)
			case c.Type == html.ElementNode:
				for _, b := range htmlBlock(c) {
					if p, ok := b.(*doctree.Element); ok && p.Kind == doctree.Paragraph {
						item.Children = appendInline(item.Children, p.Children...)
					} else if ok && p.Kind != doctree.Table {
						item.Children = appendInline(item.Children, &doctree.Text{Text: doctree.NodeText(p)})
					}
				}
			}
		}
		item.Children = trimInline(item.Children)
		if len(item.Children) == 0 {
			item.Children = []doctree.Node{&doctree.Text{}}
		}
		list.Children = append(list.Children, item)
		list.Children = append(list.Children, nested...)
	}
	if len(list.Children) == 0 {
		list.Children = []doctree.Node{doctree.NewElement(doctree.ListItem, &doctree.Text{})}
	}
	return list
}

// htmlTable places cells on an occupancy grid so colspan and rowspan turn
// into a merged anchor cell plus covered cells.
func htmlTable(n *html.Node) *doctree.Element {
	var trs []*html.Node
	var collect func(*html.Node)
	collect = func(p *html.Node) {
		for c := p.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Tr:
				trs = append(trs, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				collect(c)
			}
		}
	}
	collect(n)
	if len(trs) == 0 {
		return nil
	}

	var grid [][]*doctree.Element
	ensure := func(r, c int) {
		for len(grid) <= r {
			grid = append(grid, nil)
		}
		for len(grid[r]) <= c {
			grid[r] = append(grid[r], nil)
		}
	}
	for r, tr := range trs {
		col := 0
		for td := tr.FirstChild; td != nil; td = td.NextSibling {
			if td.Type != html.ElementNode || (td.DataAtom != atom.Td && td.DataAtom != atom.Th) {
				continue
			}
			ensure(r, col)
			for grid[r][col] != nil {
				col++
				ensure(r, col)
			}
			rows := spanAttr(td, "rowspan", len(trs)-r)
			cols := spanAttr(td, "colspan", 1000)
			cell := htmlCell(td)
			if rows > 1 || cols > 1 {
				parts := make([]int, rows*cols)
				parts[0] = len(cell.Children)
				cell.Attrs.Span = &doctree.Span{Rows: rows, Cols: cols, Parts: parts}
			}
			for dr := 0; dr < rows; dr++ {
				for dc := 0; dc < cols; dc++ {
					ensure(r+dr, col+dc)
					if dr == 0 && dc == 0 {
						grid[r][col] = cell
						continue
					}
					covered := doctree.NewElement(doctree.TableCell, doctree.NewParagraph(""))
					covered.Attrs.Style = doctree.CoveredStyle
					grid[r+dr][col+dc] = covered
				}
			}
			col += cols
		}
	}

	width := 1
	for _, row := range grid {
		width = max(width, len(row))
	}
	tbl := doctree.NewElement(doctree.Table)
	for _, cells := range grid {
		row := doctree.NewElement(doctree.TableRow)
		for c := 0; c < width; c++ {
			var cell *doctree.Element
			if c < len(cells) {
				cell = cells[c]
			}
			if cell == nil {
				cell = doctree.NewElement(doctree.TableCell, doctree.NewParagraph(""))
			}
			row.Children = append(row.Children, cell)
		}
		tbl.Children = append(tbl.Children, row)
	}
	return tbl
}

func spanAttr(n *html.Node, key string, limit int) int {
	v, err := strconv.Atoi(strings.TrimSpace(attr(n, key)))
	if err != nil || v < 1 {
		return 1
	}
	return min(v, max(limit, 1))
}

func htmlCell(td *html.Node) *doctree.Element {
	children := htmlBlocks(td)
	if len(children) == 0 {
		children = []doctree.Node{doctree.NewParagraph("")}
	}
	cell := doctree.NewElement(doctree.TableCell, children...)
	cell.Attrs.Align = alignOf(td)
	return cell
}

func (c *HTMLConverter) Export(ctx context.Context, doc *doctree.Document, w io.Writer) error {
	var buf bytes.Buffer
	for _, n := range doc.Children {
		if err := html.Render(&buf, htmlNode(n)); err != nil {
			return err
		}
		buf.WriteByte('\n')
	}
	if !c.Minify {
		_, err := w.Write(buf.Bytes())
		return err
	}
	m := minify.New()
	m.AddFunc("text/html", mhtml.Minify)
	return m.Minify("text/html", w, &buf)
}

func el(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func htmlNode(n doctree.Node) *html.Node {
	switch v := n.(type) {
	case *doctree.Text:
		return markedText(v)
	case *doctree.Element:
		return htmlElement(v)
	}
	return &html.Node{Type: html.TextNode}
}

var blockTags = map[doctree.Kind]atom.Atom{
	doctree.Paragraph:      atom.P,
	doctree.Heading1:       atom.H1,
	doctree.Heading2:       atom.H2,
	doctree.Heading3:       atom.H3,
	doctree.Heading4:       atom.H4,
	doctree.Heading5:       atom.H5,
	doctree.Heading6:       atom.H6,
	doctree.Blockquote:     atom.Blockquote,
	doctree.BulletedList:   atom.Ul,
	doctree.NumberedList:   atom.Ol,
	doctree.ListItem:       atom.Li,
	doctree.HorizontalRule: atom.Hr,
	doctree.Table:          atom.Table,
	doctree.TableRow:       atom.Tr,
}

func htmlElement(e *doctree.Element) *html.Node {
	switch e.Kind {
	case doctree.CodeBlock:
		pre := el(atom.Pre)
		code := el(atom.Code)
		code.AppendChild(&html.Node{Type: html.TextNode, Data: doctree.NodeText(e)})
		pre.AppendChild(code)
		return pre
	case doctree.Link:
		a := el(atom.A, html.Attribute{Key: "href", Val: e.Attrs.URL})
		appendHTML(a, e.Children)
		return a
	case doctree.Image:
		return el(atom.Img, html.Attribute{Key: "src", Val: e.Attrs.URL}, html.Attribute{Key: "alt", Val: e.Attrs.Name})
	case doctree.Attachment:
		a := el(atom.A, html.Attribute{Key: "href", Val: e.Attrs.URL})
		a.AppendChild(&html.Node{Type: html.TextNode, Data: attachmentLabel(e)})
		return a
	case doctree.TableCell:
		return htmlTableCell(e)
	}

	tag, ok := blockTags[e.Kind]
	if !ok {
		tag = atom.Div
	}
	n := el(tag)
	if e.Attrs.Align != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: "text-align: " + e.Attrs.Align})
	}
	if !e.Kind.IsVoid() {
		appendHTML(n, e.Children)
	}
	return n
}

// htmlTableCell returns nil for cells hidden behind a merge; the anchor's
// colspan and rowspan already cover them.
func htmlTableCell(e *doctree.Element) *html.Node {
	if e.IsCovered() {
		return nil
	}
	n := el(atom.Td)
	if s := e.Attrs.Span; s != nil {
		if s.Cols > 1 {
			n.Attr = append(n.Attr, html.Attribute{Key: "colspan", Val: strconv.Itoa(s.Cols)})
		}
		if s.Rows > 1 {
			n.Attr = append(n.Attr, html.Attribute{Key: "rowspan", Val: strconv.Itoa(s.Rows)})
		}
	}
	if e.Attrs.Align != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: "text-align: " + e.Attrs.Align})
	}
	if len(e.Children) == 1 {
		if p, ok := e.Children[0].(*doctree.Element); ok && p.Kind == doctree.Paragraph {
			appendHTML(n, p.Children)
			return n
		}
	}
	appendHTML(n, e.Children)
	return n
}

func appendHTML(parent *html.Node, children []doctree.Node) {
	for _, c := range children {
		if h := htmlNode(c); h != nil {
			parent.AppendChild(h)
		}
	}
}

var markTags = []struct {
	mark doctree.Marks
	tag  atom.Atom
}{
	{doctree.Bold, atom.Strong},
	{doctree.Italic, atom.Em},
	{doctree.Underline, atom.U},
	{doctree.Strikethrough, atom.S},
	{doctree.Code, atom.Code},
	{doctree.Sub, atom.Sub},
	{doctree.Sup, atom.Sup},
}

// markedText nests one tag per mark, outermost first, and turns "\n" into
// <br>.
func markedText(t *doctree.Text) *html.Node {
	var root, inner *html.Node
	for _, mt := range markTags {
		if !t.Marks.Has(mt.mark) {
			continue
		}
		n := el(mt.tag)
		if root == nil {
			root = n
		} else {
			inner.AppendChild(n)
		}
		inner = n
	}
	lines := strings.Split(t.Text, "\n")
	if root == nil {
		if len(lines) == 1 {
			return &html.Node{Type: html.TextNode, Data: t.Text}
		}
		root = el(atom.Span)
		inner = root
	}
	for i, line := range lines {
		if i > 0 {
			inner.AppendChild(el(atom.Br))
		}
		if line != "" {
			inner.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
	}
	return root
}
