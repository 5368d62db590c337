package format

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	md "github.com/nao1215/markdown"

	"github.com/thoulee21/bedit/internal/doctree"
)

const mdSpecial = "\\*_`~[]<"

var mdOrderedStart = regexp.MustCompile(`^(\d+)([.)])(\s|$)`)

func writeMarkdown(w io.Writer, doc *doctree.Document) error {
	m := md.NewMarkdown(w)
	for i, n := range doc.Children {
		if i > 0 {
			m.PlainText("")
		}
		e, ok := n.(*doctree.Element)
		if !ok {
			continue
		}
		writeMarkdownBlock(m, e)
	}
	return m.Build()
}

func writeMarkdownBlock(m *md.Markdown, e *doctree.Element) {
	switch {
	case e.Kind.IsHeading():
		text := mdInline(e.Children)
		switch e.Kind.HeadingLevel() {
		case 1:
			m.H1(text)
		case 2:
			m.H2(text)
		case 3:
			m.H3(text)
		case 4:
			m.H4(text)
		case 5:
			m.H5(text)
		default:
			m.H6(text)
		}
	case e.Kind == doctree.Blockquote:
		m.Blockquote(strings.Join(quoteLines(e), "\n"))
	case e.Kind == doctree.CodeBlock:
		m.CodeBlocks(md.SyntaxHighlight(""), doctree.NodeText(e))
	case e.Kind.IsList():
		if items, flat := flatItems(e); flat {
			if e.Kind == doctree.NumberedList {
				m.OrderedList(items...)
			} else {
				m.BulletList(items...)
			}
			return
		}
		m.PlainText(strings.Join(listLines(e, 0), "\n"))
	case e.Kind == doctree.HorizontalRule:
		m.HorizontalRule()
	case e.Kind == doctree.Table:
		writeMarkdownTable(m, e)
	case e.Kind == doctree.Image:
		m.PlainText(fmt.Sprintf("![%s](%s)", mdEscape(e.Attrs.Name), mdURL(e.Attrs.URL)))
	case e.Kind == doctree.Attachment:
		m.PlainText(fmt.Sprintf("[%s](%s)", mdEscape(attachmentLabel(e)), mdURL(e.Attrs.URL)))
	default:
		m.PlainText(mdLineStart(mdInline(e.Children)))
	}
}

func quoteLines(e *doctree.Element) []string {
	var lines []string
	var loose []doctree.Node
	flushLoose := func() {
		if len(loose) > 0 {
			lines = append(lines, mdInline(loose))
			loose = nil
		}
	}
	for _, c := range e.Children {
		ce, ok := c.(*doctree.Element)
		if !ok || !ce.Kind.IsBlock() {
			loose = append(loose, c)
			continue
		}
		flushLoose()
		lines = append(lines, blockLine(ce))
	}
	flushLoose()
	return lines
}

// blockLine renders a block nested inside a quote or cell as one line.
func blockLine(e *doctree.Element) string {
	switch {
	case e.Kind == doctree.Paragraph || e.Kind.IsHeading() || e.Kind == doctree.Blockquote:
		return mdInline(e.Children)
	case e.Kind == doctree.Image:
		return fmt.Sprintf("![%s](%s)", mdEscape(e.Attrs.Name), mdURL(e.Attrs.URL))
	}
	return mdEscape(strings.ReplaceAll(doctree.BlockText(e), "\n", " "))
}

func flatItems(list *doctree.Element) ([]string, bool) {
	items := make([]string, 0, len(list.Children))
	for _, c := range list.Children {
		item, ok := c.(*doctree.Element)
		if !ok || item.Kind != doctree.ListItem {
			return nil, false
		}
		items = append(items, itemText(item))
	}
	return items, true
}

func listLines(list *doctree.Element, depth int) []string {
	var lines []string
	n := 0
	for _, c := range list.Children {
		e, ok := c.(*doctree.Element)
		if !ok {
			continue
		}
		if e.Kind.IsList() {
			lines = append(lines, listLines(e, depth+1)...)
			continue
		}
		n++
		marker := "-"
		if list.Kind == doctree.NumberedList {
			marker = fmt.Sprintf("%d.", n)
		}
		lines = append(lines, strings.Repeat("  ", depth)+marker+" "+itemText(e))
	}
	return lines
}

func itemText(item *doctree.Element) string {
	var parts []string
	var loose []doctree.Node
	for _, c := range item.Children {
		if p, ok := c.(*doctree.Element); ok && p.Kind.IsBlock() {
			parts = append(parts, blockLine(p))
			continue
		}
		loose = append(loose, c)
	}
	if len(loose) > 0 {
		parts = append([]string{mdInline(loose)}, parts...)
	}
	return strings.Join(parts, "<br>")
}

func writeMarkdownTable(m *md.Markdown, tbl *doctree.Element) {
	var rows [][]string
	for _, rn := range tbl.Children {
		row := rn.(*doctree.Element)
		cells := make([]string, 0, len(row.Children))
		for _, cn := range row.Children {
			cell := cn.(*doctree.Element)
			if cell.IsCovered() {
				cells = append(cells, "")
				continue
			}
			var parts []string
			for _, b := range cell.Children {
				if be, ok := b.(*doctree.Element); ok && be.Kind.IsBlock() {
					parts = append(parts, blockLine(be))
				} else {
					parts = append(parts, mdInline([]doctree.Node{b}))
				}
			}
			cells = append(cells, strings.ReplaceAll(strings.Join(parts, "<br>"), "|", `\|`))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}
	m.CustomTable(md.TableSet{Header: rows[0], Rows: rows[1:]}, md.TableOptions{AutoWrapText: false})
}

// mdInline renders inline nodes with their marks and links.
func mdInline(nodes []doctree.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch v := n.(type) {
		case *doctree.Text:
			sb.WriteString(mdMarked(v))
		case *doctree.Element:
			switch v.Kind {
			case doctree.Link:
				fmt.Fprintf(&sb, "[%s](%s)", mdInline(v.Children), mdURL(v.Attrs.URL))
			case doctree.Image:
				fmt.Fprintf(&sb, "![%s](%s)", mdEscape(v.Attrs.Name), mdURL(v.Attrs.URL))
			case doctree.Attachment:
				fmt.Fprintf(&sb, "[%s](%s)", mdEscape(attachmentLabel(v)), mdURL(v.Attrs.URL))
			default:
				sb.WriteString(mdInline(v.Children))
			}
		}
	}
	return sb.String()
}

// mdMarked wraps one leaf in the syntax for its marks. Surrounding spaces
// stay outside the delimiters so the emphasis still parses.
func mdMarked(t *doctree.Text) string {
	core := strings.TrimSpace(t.Text)
	if core == "" || t.Marks == 0 {
		return mdText(t.Text, t.Marks.Has(doctree.Code))
	}
	lead := t.Text[:strings.Index(t.Text, core)]
	trail := t.Text[len(lead)+len(core):]

	s := mdText(core, t.Marks.Has(doctree.Code))
	if t.Marks.Has(doctree.Code) {
		fence := "`"
		if strings.Contains(core, "`") {
			fence = "``"
		}
		s = fence + s + fence
	}
	if t.Marks.Has(doctree.Sub) {
		s = "<sub>" + s + "</sub>"
	}
	if t.Marks.Has(doctree.Sup) {
		s = "<sup>" + s + "</sup>"
	}
	if t.Marks.Has(doctree.Underline) {
		s = "<u>" + s + "</u>"
	}
	if t.Marks.Has(doctree.Strikethrough) {
		s = "~~" + s + "~~"
	}
	if t.Marks.Has(doctree.Italic) {
		s = "*" + s + "*"
	}
	if t.Marks.Has(doctree.Bold) {
		s = "**" + s + "**"
	}
	return mdText(lead, false) + s + mdText(trail, false)
}

func mdText(s string, code bool) string {
	if code {
		return strings.ReplaceAll(s, "\n", " ")
	}
	return strings.ReplaceAll(mdEscape(s), "\n", "<br>")
}

// mdEscape backslash-escapes characters that would otherwise start inline
// syntax.
func mdEscape(s string) string {
	if !strings.ContainsAny(s, mdSpecial) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		if strings.ContainsRune(mdSpecial, r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// mdLineStart escapes a paragraph whose first characters would be read as
// block syntax.
func mdLineStart(s string) string {
	if s == "" {
		return s
	}
	if mdOrderedStart.MatchString(s) {
		return mdOrderedStart.ReplaceAllString(s, `$1\$2$3`)
	}
	switch s[0] {
	case '#', '>', '-', '+', '|', '=':
		return `\` + s
	}
	if mdRule.MatchString(s) {
		return `\` + s
	}
	return s
}

func mdURL(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(u) + ">"
	}
	return u
}

func attachmentLabel(e *doctree.Element) string {
	if e.Attrs.Name != "" {
		return e.Attrs.Name
	}
	return e.Attrs.URL
}
