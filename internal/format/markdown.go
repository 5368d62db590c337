package format

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/thoulee21/bedit/internal/doctree"
)

// MarkdownConverter handles Markdown. Import scans block syntax line by line
// and parses the inline content of each line with goldmark; export writes
// the block syntax back with full inline formatting.
type MarkdownConverter struct{}

var (
	mdHeading  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	mdRule     = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	mdListItem = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+(.*)$`)
	mdFence    = regexp.MustCompile("^\\s*(```|~~~)")
	mdTableSep = regexp.MustCompile(`^\s*:?-+:?\s*$`)
)

func (c *MarkdownConverter) Import(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	src, err := readText(Markdown, r)
	if err != nil {
		return nil, err
	}
	s := &mdScanner{}
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		s.line(line)
	}
	s.finish()

	res := &Result{Doc: &doctree.Document{Children: s.blocks}}
	for _, b := range s.blocks {
		if e := b.(*doctree.Element); e.Kind == doctree.Heading1 {
			res.Metadata.Title = doctree.NodeText(e)
			break
		}
	}
	return res, nil
}

// mdScanner accumulates blocks. At most one of the open containers (fence,
// quote, list, table) is active at a time.
type mdScanner struct {
	blocks []doctree.Node

	fence     bool
	fenceBody []string

	quote *doctree.Element
	lists []*doctree.Element
	table [][]string
}

func (s *mdScanner) line(line string) {
	if s.fence {
		if mdFence.MatchString(line) {
			s.closeFence()
			return
		}
		s.fenceBody = append(s.fenceBody, line)
		return
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case mdFence.MatchString(line):
		s.flush()
		s.fence = true
	case trimmed == "":
		s.flush()
	case mdHeading.MatchString(trimmed):
		s.flush()
		m := mdHeading.FindStringSubmatch(trimmed)
		kind, _ := doctree.HeadingKind(len(m[1]))
		s.emit(inlineBlock(kind, strings.TrimSpace(m[2])))
	case mdRule.MatchString(line):
		s.flush()
		s.emit(doctree.NewElement(doctree.HorizontalRule))
	case strings.HasPrefix(trimmed, ">"):
		if s.quote == nil {
			s.flush()
			s.quote = doctree.NewElement(doctree.Blockquote)
		}
		text := strings.TrimPrefix(strings.TrimPrefix(trimmed, ">"), " ")
		s.quote.Children = append(s.quote.Children, inlineBlock(doctree.Paragraph, text))
	case mdListItem.MatchString(line):
		if s.lists == nil {
			s.flush()
		}
		m := mdListItem.FindStringSubmatch(line)
		s.listItem(len(strings.ReplaceAll(m[1], "\t", "  "))/2, !strings.ContainsAny(m[2], "-*+"), m[3])
	case strings.HasPrefix(trimmed, "|"):
		if s.table == nil {
			s.flush()
		}
		s.tableRow(trimmed)
	default:
		s.flush()
		s.emit(inlineBlock(doctree.Paragraph, trimmed))
	}
}

func (s *mdScanner) emit(n doctree.Node) { s.blocks = append(s.blocks, n) }

func (s *mdScanner) closeFence() {
	body := strings.Join(s.fenceBody, "\n")
	s.emit(doctree.NewElement(doctree.CodeBlock, &doctree.Text{Text: body}))
	s.fence = false
	s.fenceBody = nil
}

// listItem appends an item at the given nesting depth. Deeper items open a
// nested list inside the current one; a change of marker type starts a new
// list at that depth.
func (s *mdScanner) listItem(depth int, ordered bool, text string) {
	kind := doctree.BulletedList
	if ordered {
		kind = doctree.NumberedList
	}
	if len(s.lists) == 0 {
		s.lists = []*doctree.Element{doctree.NewElement(kind)}
	}
	depth = min(depth, len(s.lists))
	for len(s.lists) > depth+1 {
		s.lists = s.lists[:len(s.lists)-1]
	}
	if depth == len(s.lists) {
		nested := doctree.NewElement(kind)
		top := s.lists[len(s.lists)-1]
		top.Children = append(top.Children, nested)
		s.lists = append(s.lists, nested)
	}

	top := s.lists[len(s.lists)-1]
	if top.Kind != kind {
		next := doctree.NewElement(kind)
		if len(s.lists) == 1 {
			s.emit(top)
		} else {
			parent := s.lists[len(s.lists)-2]
			parent.Children = append(parent.Children, next)
		}
		s.lists[len(s.lists)-1] = next
		top = next
	}
	top.Children = append(top.Children, inlineBlock(doctree.ListItem, text))
}

func (s *mdScanner) tableRow(line string) {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	cells := splitTableCells(line)
	sep := true
	for _, c := range cells {
		if !mdTableSep.MatchString(c) {
			sep = false
			break
		}
	}
	if sep && len(s.table) > 0 {
		return
	}
	s.table = append(s.table, cells)
}

// splitTableCells splits on unescaped pipes.
func splitTableCells(line string) []string {
	var cells []string
	var cur strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			if r != '|' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	return append(cells, strings.TrimSpace(cur.String()))
}

func (s *mdScanner) flush() {
	if s.quote != nil {
		s.emit(s.quote)
		s.quote = nil
	}
	if len(s.lists) > 0 {
		s.emit(s.lists[0])
		s.lists = nil
	}
	if s.table != nil {
		s.emit(buildTable(s.table, func(text string) []doctree.Node {
			return []doctree.Node{inlineBlock(doctree.Paragraph, text)}
		}))
		s.table = nil
	}
}

func (s *mdScanner) finish() {
	if s.fence {
		s.closeFence()
	}
	s.flush()
}

// inlineBlock builds an element of kind whose children are the parsed inline
// content of text.
func inlineBlock(kind doctree.Kind, text string) *doctree.Element {
	return doctree.NewElement(kind, parseInline(text)...)
}

// buildTable builds a rectangular table, padding short rows with empty cells.
func buildTable(rows [][]string, cell func(string) []doctree.Node) *doctree.Element {
	width := 1
	for _, r := range rows {
		width = max(width, len(r))
	}
	tbl := doctree.NewElement(doctree.Table)
	for _, r := range rows {
		row := doctree.NewElement(doctree.TableRow)
		for c := 0; c < width; c++ {
			text := ""
			if c < len(r) {
				text = r[c]
			}
			row.Children = append(row.Children, doctree.NewElement(doctree.TableCell, cell(text)...))
		}
		tbl.Children = append(tbl.Children, row)
	}
	return tbl
}

func (c *MarkdownConverter) Export(ctx context.Context, doc *doctree.Document, w io.Writer) error {
	return writeMarkdown(w, doc)
}
