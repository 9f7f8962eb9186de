// Package htmlsink renders decoded documents as a standalone HTML page.
// Each page is an absolutely positioned box; shapes become inline SVG and
// pictures PNG data URIs.
package htmlsink

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dyuri/zoneconv/internal/codec"
	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
)

const stylesheet = `body{background:#ccc;margin:0;padding:1em}
.page{position:relative;background:#fff;margin:0 auto 1em;overflow:hidden}
.page>p,.text-box>p,td>p{margin:0}
.footnote{font-size:smaller;border-top:1px solid #999}
svg,.text-box,table,img{position:absolute}`

// Sink is an event.Sink that builds an HTML document tree. Call Render
// once the document has ended.
type Sink struct {
	doc   *html.Node
	head  *html.Node
	body  *html.Node
	stack []*html.Node
	para  *html.Node
	// paragraphs interrupted by open notes
	resume []*html.Node

	paraCSS string
	charCSS string
	err     error
}

// New creates an empty HTML sink
func New() *Sink {
	s := &Sink{doc: &html.Node{Type: html.DocumentNode}}
	s.doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
	root := element(atom.Html)
	s.head = element(atom.Head)
	s.body = element(atom.Body)
	root.AppendChild(s.head)
	root.AppendChild(s.body)
	s.doc.AppendChild(root)
	s.stack = []*html.Node{s.body}
	return s
}

// Render writes the document. It reports the first picture encoding
// failure, if any, after writing.
func (s *Sink) Render(w io.Writer) error {
	if err := html.Render(w, s.doc); err != nil {
		return err
	}
	return s.err
}

func element(a atom.Atom, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	setAttrs(n, attrs...)
	return n
}

// svgElement creates an element the atom table has no entry for
func svgElement(name string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: name}
	setAttrs(n, attrs...)
	return n
}

func setAttrs(n *html.Node, attrs ...string) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i+1] == "" {
			continue
		}
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func (s *Sink) top() *html.Node {
	return s.stack[len(s.stack)-1]
}

func (s *Sink) push(n *html.Node) {
	s.top().AppendChild(n)
	s.stack = append(s.stack, n)
	s.para = nil
}

func (s *Sink) pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	s.para = nil
}

// paragraph returns the open paragraph of the current container
func (s *Sink) paragraph() *html.Node {
	if s.para == nil || s.para.Parent != s.top() {
		s.para = element(atom.P, "style", s.paraCSS)
		s.top().AppendChild(s.para)
	}
	return s.para
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func css(c model.Color) string {
	if c.Alpha == 255 {
		return c.Hex()
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, num(float64(c.Alpha)/255))
}

func placement(pos event.Position) string {
	b := pos.Box
	style := fmt.Sprintf("left:%spt;top:%spt;width:%spt;height:%spt",
		num(b.Min.X), num(b.Min.Y), num(b.Width()), num(b.Height()))
	if pos.Rotation != 0 {
		style += fmt.Sprintf(";transform:rotate(%sdeg)", num(pos.Rotation))
	}
	return style
}

func (s *Sink) StartDocument(info event.DocumentInfo) {
	s.head.AppendChild(element(atom.Meta, "charset", "utf-8"))
	title := element(atom.Title)
	title.AppendChild(textNode(info.Format + " document"))
	s.head.AppendChild(title)
	if len(info.Labels) > 0 {
		s.head.AppendChild(element(atom.Meta, "name", "keywords", "content", strings.Join(info.Labels, ", ")))
	}
	style := element(atom.Style)
	style.AppendChild(textNode(stylesheet))
	s.head.AppendChild(style)
}

func (s *Sink) EndDocument() {
	s.stack = s.stack[:1]
	s.para = nil
}

func (s *Sink) OpenPage(number int, width, height float64) {
	s.stack = s.stack[:1]
	s.push(element(atom.Div,
		"class", "page",
		"id", fmt.Sprintf("page-%d", number),
		"style", fmt.Sprintf("width:%spt;height:%spt", num(width), num(height))))
}

func (s *Sink) ClosePage() {
	s.stack = s.stack[:1]
	s.para = nil
	s.resume = nil
}

func (s *Sink) SetParagraphStyle(p model.ParaStyle) {
	var b strings.Builder
	fmt.Fprintf(&b, "text-align:%s", p.Align)
	for _, d := range []struct {
		prop string
		v    float64
	}{
		{"text-indent", p.FirstIndent},
		{"margin-left", p.LeftIndent},
		{"margin-right", p.RightIndent},
		{"margin-top", p.Before},
		{"margin-bottom", p.After},
	} {
		if d.v != 0 {
			fmt.Fprintf(&b, ";%s:%spt", d.prop, num(d.v))
		}
	}
	if p.LineSpacing > 0 && p.LineSpacing != 100 {
		fmt.Fprintf(&b, ";line-height:%d%%", p.LineSpacing)
	}
	s.paraCSS = b.String()
	// An empty open paragraph takes the new style
	if s.para != nil && len(s.para.Attr) == 0 && s.para.FirstChild == nil {
		setAttrs(s.para, "style", s.paraCSS)
	}
}

func (s *Sink) SetCharacterStyle(c event.CharStyle) {
	var parts []string
	if c.Font != "" {
		parts = append(parts, fmt.Sprintf("font-family:%q", c.Font))
	}
	if c.Size > 0 {
		parts = append(parts, "font-size:"+num(c.Size)+"pt")
	}
	if c.Flags&model.Bold != 0 {
		parts = append(parts, "font-weight:bold")
	}
	if c.Flags&model.Italic != 0 {
		parts = append(parts, "font-style:italic")
	}
	var deco []string
	if c.Flags&model.Underline != 0 {
		deco = append(deco, "underline")
	}
	if c.Flags&model.Strike != 0 {
		deco = append(deco, "line-through")
	}
	if len(deco) > 0 {
		parts = append(parts, "text-decoration:"+strings.Join(deco, " "))
	}
	switch {
	case c.Flags&model.Superscript != 0:
		parts = append(parts, "vertical-align:super")
	case c.Flags&model.Subscript != 0:
		parts = append(parts, "vertical-align:sub")
	}
	if c.Color != model.Black {
		parts = append(parts, "color:"+css(c.Color))
	}
	s.charCSS = strings.Join(parts, ";")
}

func (s *Sink) InsertText(text string) {
	p := s.paragraph()
	if s.charCSS == "" {
		p.AppendChild(textNode(text))
		return
	}
	span := element(atom.Span, "style", s.charCSS)
	span.AppendChild(textNode(text))
	p.AppendChild(span)
}

func (s *Sink) InsertTab() {
	s.InsertText("\t")
}

func (s *Sink) InsertBreak(kind model.BreakKind) {
	switch kind {
	case model.BreakParagraph:
		if s.para == nil {
			s.paragraph()
		}
		s.para = nil
	case model.BreakLine:
		s.paragraph().AppendChild(element(atom.Br))
	case model.BreakColumn:
		s.paragraph().AppendChild(element(atom.Br, "class", "column-break"))
	default:
		s.top().AppendChild(element(atom.Hr, "class", "page-break"))
		s.para = nil
	}
}

func (s *Sink) InsertField(kind model.TokenKind) {
	span := element(atom.Span, "class", "field", "data-kind", kind.String())
	span.AppendChild(textNode("[" + kind.String() + "]"))
	s.paragraph().AppendChild(span)
}

func (s *Sink) OpenNote(kind model.NoteKind) {
	s.resume = append(s.resume, s.para)
	s.push(element(atom.Aside, "class", kind.String()))
}

func (s *Sink) CloseNote() {
	s.pop()
	if n := len(s.resume); n > 0 {
		if p := s.resume[n-1]; p != nil && p.Parent == s.top() {
			s.para = p
		}
		s.resume = s.resume[:n-1]
	}
}

func (s *Sink) InsertShape(pos event.Position, style event.Style, geom event.Geometry) {
	b := geom.Box
	if geom.Path != nil {
		// Pad the view box so strokes on the bounds stay visible
		pad := style.LineWidth / 2
		b = geometry.NewRect(b.Min.X-pad, b.Min.Y-pad, b.Max.X+pad, b.Max.Y+pad)
		pos.Box = b
	}
	svg := element(atom.Svg,
		"xmlns", "http://www.w3.org/2000/svg",
		"class", geom.Kind.String(),
		"style", placement(pos),
		"viewBox", fmt.Sprintf("%s %s %s %s", num(b.Min.X), num(b.Min.Y), num(b.Width()), num(b.Height())))

	stroke, fill := css(style.Line), css(style.Fill)
	if style.NoLine {
		stroke = "none"
	}
	if style.NoFill {
		fill = "none"
	}
	paint := []string{"stroke", stroke, "fill", fill, "stroke-width", num(style.LineWidth)}

	switch {
	case geom.Path != nil:
		svg.AppendChild(svgElement("path", append([]string{"d", pathData(geom.Path)}, paint...)...))
	case geom.Kind == model.ShapeEllipse:
		c := b.Center()
		svg.AppendChild(svgElement("ellipse", append([]string{
			"cx", num(c.X), "cy", num(c.Y),
			"rx", num(b.Width() / 2), "ry", num(b.Height() / 2),
		}, paint...)...))
	default:
		svg.AppendChild(svgElement("rect", append([]string{
			"x", num(b.Min.X), "y", num(b.Min.Y),
			"width", num(b.Width()), "height", num(b.Height()),
			"rx", num(geom.Radius),
		}, paint...)...))
	}
	s.top().AppendChild(svg)
}

func pathData(p *geometry.Path) string {
	var parts []string
	for _, seg := range p.Segments {
		parts = append(parts, seg.Kind.String())
		for _, pt := range seg.Points {
			parts = append(parts, num(pt.X)+","+num(pt.Y))
		}
	}
	return strings.Join(parts, " ")
}

func (s *Sink) InsertPicture(pos event.Position, bm *model.Bitmap) {
	if bm == nil {
		return
	}
	var buf bytes.Buffer
	if err := codec.WritePNG(&buf, bm); err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("encode picture: %w", err)
		}
		return
	}
	s.top().AppendChild(element(atom.Img,
		"style", placement(pos),
		"alt", fmt.Sprintf("%dx%d %s picture", bm.Width, bm.Height, bm.ColorMode),
		"src", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(buf.Bytes())))
}

func (s *Sink) OpenGroup(pos event.Position) {
	s.push(element(atom.Div, "class", "group"))
}

func (s *Sink) CloseGroup() {
	s.pop()
}

func (s *Sink) OpenTextBox(pos event.Position) {
	s.push(element(atom.Div, "class", "text-box", "style", placement(pos)))
}

func (s *Sink) CloseTextBox() {
	s.pop()
}

func (s *Sink) OpenTable(pos event.Position, info event.TableInfo) {
	s.push(element(atom.Table, "style", placement(pos)))
	if len(info.ColWidths) > 0 {
		group := element(atom.Colgroup)
		for _, w := range info.ColWidths {
			group.AppendChild(element(atom.Col, "style", "width:"+num(w)+"pt"))
		}
		s.top().AppendChild(group)
	}
}

func (s *Sink) OpenCell(row, col int) {
	table := s.top()
	if col == 0 || table.LastChild == nil || table.LastChild.DataAtom != atom.Tr {
		table.AppendChild(element(atom.Tr))
	}
	tr := table.LastChild
	td := element(atom.Td)
	tr.AppendChild(td)
	// Cells are closed with pop, so the row itself is not on the stack
	s.stack = append(s.stack, td)
	s.para = nil
}

func (s *Sink) CloseCell() {
	s.pop()
}

func (s *Sink) CloseTable() {
	s.pop()
}

var _ event.Sink = (*Sink)(nil)
