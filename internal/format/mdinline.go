package format

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gmtext "github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/thoulee21/bedit/internal/doctree"
)

var inlineMarkdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

// htmlMarks are the raw inline tags the exporter writes for marks Markdown
// has no syntax for.
var htmlMarks = map[string]doctree.Marks{
	"u":   doctree.Underline,
	"ins": doctree.Underline,
	"s":   doctree.Strikethrough,
	"del": doctree.Strikethrough,
	"sub": doctree.Sub,
	"sup": doctree.Sup,
}

// parseInline turns one line of Markdown inline syntax into text leaves and
// links. Lines goldmark reads as something other than a paragraph keep their
// raw text. The result always holds at least one node.
func parseInline(line string) []doctree.Node {
	if strings.TrimSpace(line) == "" {
		return []doctree.Node{&doctree.Text{Text: line}}
	}
	src := []byte(line)
	root := inlineMarkdown.Parser().Parse(gmtext.NewReader(src))
	para, ok := root.FirstChild().(*ast.Paragraph)
	if !ok || para.NextSibling() != nil {
		return []doctree.Node{&doctree.Text{Text: line}}
	}
	w := &inlineWalker{src: src}
	out := w.walk(para, 0, false)
	if len(out) == 0 {
		return []doctree.Node{&doctree.Text{Text: ""}}
	}
	return out
}

type inlineWalker struct {
	src []byte
}

func (w *inlineWalker) walk(n ast.Node, marks doctree.Marks, inLink bool) []doctree.Node {
	var out []doctree.Node
	cur := marks
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch v := c.(type) {
		case *ast.Text:
			s := string(util.UnescapePunctuations(v.Segment.Value(w.src)))
			if v.HardLineBreak() {
				s += "\n"
			} else if v.SoftLineBreak() {
				s += " "
			}
			out = appendInline(out, &doctree.Text{Text: s, Marks: cur})
		case *ast.String:
			out = appendInline(out, &doctree.Text{Text: string(v.Value), Marks: cur})
		case *ast.CodeSpan:
			out = appendInline(out, &doctree.Text{Text: w.plain(v), Marks: cur.With(doctree.Code)})
		case *ast.Emphasis:
			m := doctree.Italic
			if v.Level >= 2 {
				m = doctree.Bold
			}
			out = appendInline(out, w.walk(v, cur.With(m), inLink)...)
		case *east.Strikethrough:
			out = appendInline(out, w.walk(v, cur.With(doctree.Strikethrough), inLink)...)
		case *ast.Link:
			children := w.walk(v, cur, true)
			if inLink {
				out = appendInline(out, children...)
				continue
			}
			if len(children) == 0 {
				children = []doctree.Node{&doctree.Text{Text: string(v.Destination), Marks: cur}}
			}
			out = append(out, &doctree.Element{
				Kind:     doctree.Link,
				Attrs:    doctree.Attributes{URL: string(v.Destination)},
				Children: children,
			})
		case *ast.AutoLink:
			label := &doctree.Text{Text: string(v.Label(w.src)), Marks: cur}
			if inLink {
				out = appendInline(out, label)
				continue
			}
			out = append(out, &doctree.Element{
				Kind:     doctree.Link,
				Attrs:    doctree.Attributes{URL: string(v.URL(w.src))},
				Children: []doctree.Node{label},
			})
		case *ast.Image:
			out = append(out, &doctree.Element{
				Kind:  doctree.Image,
				Attrs: doctree.Attributes{URL: string(v.Destination), Name: w.plain(v)},
			})
		case *ast.RawHTML:
			raw := w.raw(v)
			if next, ok := toggleMark(raw, cur); ok {
				cur = next
				continue
			}
			if isBreakTag(raw) {
				out = appendInline(out, &doctree.Text{Text: "\n", Marks: cur})
				continue
			}
			out = appendInline(out, &doctree.Text{Text: raw, Marks: cur})
		default:
			out = appendInline(out, w.walk(c, cur, inLink)...)
		}
	}
	return out
}

// plain concatenates the raw text segments below n.
func (w *inlineWalker) plain(n ast.Node) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(w.src))
			continue
		}
		sb.WriteString(w.plain(c))
	}
	return sb.String()
}

func (w *inlineWalker) raw(n *ast.RawHTML) string {
	var sb strings.Builder
	for i := 0; i < n.Segments.Len(); i++ {
		seg := n.Segments.At(i)
		sb.Write(seg.Value(w.src))
	}
	return sb.String()
}

// toggleMark applies an opening or closing mark tag such as <u> or </sup>.
func toggleMark(tag string, marks doctree.Marks) (doctree.Marks, bool) {
	t := strings.ToLower(strings.TrimSpace(tag))
	if !strings.HasPrefix(t, "<") || !strings.HasSuffix(t, ">") {
		return marks, false
	}
	t = strings.TrimSpace(t[1 : len(t)-1])
	closing := strings.HasPrefix(t, "/")
	m, ok := htmlMarks[strings.TrimPrefix(t, "/")]
	if !ok {
		return marks, false
	}
	if closing {
		return marks &^ m, true
	}
	return marks.With(m), true
}

func isBreakTag(tag string) bool {
	t := strings.ToLower(strings.ReplaceAll(tag, " ", ""))
	return t == "<br>" || t == "<br/>"
}

// appendInline appends nodes, merging adjacent leaves with equal marks.
func appendInline(out []doctree.Node, nodes ...doctree.Node) []doctree.Node {
	for _, n := range nodes {
		t, ok := n.(*doctree.Text)
		if !ok {
			out = append(out, n)
			continue
		}
		if t.Text == "" {
			continue
		}
		if len(out) > 0 {
			if prev, ok := out[len(out)-1].(*doctree.Text); ok && prev.Marks == t.Marks {
				out[len(out)-1] = &doctree.Text{Text: prev.Text + t.Text, Marks: t.Marks}
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
