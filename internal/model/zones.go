package model

import (
	"fmt"

	"github.com/dyuri/zoneconv/internal/geometry"
)

// Zone type tags of the container family.
const (
	TagColor        uint16 = 0x0001
	TagFont         uint16 = 0x0003
	TagCharStyle    uint16 = 0x0004
	TagParaStyle    uint16 = 0x0005
	TagGraphicStyle uint16 = 0x0006
	TagShape        uint16 = 0x0007
	TagText         uint16 = 0x0008
	TagPicture      uint16 = 0x0009
	TagTable        uint16 = 0x000A
	TagNote         uint16 = 0x000B
	TagDocument     uint16 = 0x000C
)

// Color represents an RGBA color
type Color struct {
	R     byte // Red (0-255)
	G     byte // Green (0-255)
	B     byte // Blue (0-255)
	Alpha byte // Alpha/transparency (0=transparent, 255=opaque)
}

// IsZero returns true if the color is uninitialized (all zeros)
func (c Color) IsZero() bool {
	return c.R == 0 && c.G == 0 && c.B == 0 && c.Alpha == 0
}

// Hex formats the color as #rrggbb
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Black is the fallback when a color reference cannot be resolved.
var Black = Color{Alpha: 255}

// Color zone modes
const (
	ColorRGB  = 0
	ColorTint = 1
)

// ColorDef is a color zone: either a literal RGB value or a tint of
// another color zone.
type ColorDef struct {
	Mode    uint8
	RGB     Color
	Base    int // tint base zone
	Percent int // 0 = white, 100 = base color

	value Color
}

// Value returns the effective color once linked
func (c *ColorDef) Value() Color {
	return c.value
}

// Link derives the tint from its base color.
func (c *ColorDef) Link(l Lookup) error {
	if c.Mode != ColorTint {
		c.value = c.RGB
		return nil
	}
	base := Black
	b, err := As[*ColorDef](l, c.Base)
	if err != nil {
		l.Log().WithField("zone", c.Base).WithError(err).Warn("tint base unavailable, using black")
	} else {
		base = b.Value()
	}
	p := min(max(c.Percent, 0), 100)
	tint := func(v byte) byte {
		return byte(255 - (255-int(v))*p/100)
	}
	c.value = Color{R: tint(base.R), G: tint(base.G), B: tint(base.B), Alpha: 255}
	return nil
}

// Font is a font zone. Family ids map to names outside this package.
type Font struct {
	Family int
	Name   string
}

// CharFlags are character style attributes
type CharFlags uint16

const (
	Bold CharFlags = 1 << iota
	Italic
	Underline
	Strike
	Superscript
	Subscript
	Outline
	Shadow
)

// CharStyle is a character style zone
type CharStyle struct {
	FontRef  int
	Size     float64 // points
	Flags    CharFlags
	ColorRef int
}

// Alignment of a paragraph
type Alignment uint8

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
	AlignJustify
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignCenter:
		return "center"
	case AlignRight:
		return "right"
	case AlignJustify:
		return "justify"
	}
	return fmt.Sprintf("align(%d)", int(a))
}

// Fields set explicitly by a paragraph style; the rest are inherited.
const (
	ParaMaskAlign uint16 = 1 << iota
	ParaMaskIndent
	ParaMaskSpacing
	ParaMaskLine
	ParaMaskTabs
)

// Tab is a tab stop
type Tab struct {
	Pos  float64 // points from the left indent
	Kind uint8   // 0 left, 1 center, 2 right, 3 decimal
}

// ParaStyle is a paragraph style zone. A style may be based on a parent
// style; fields missing from Mask come from the parent chain.
type ParaStyle struct {
	ParentRef   int
	Mask        uint16
	Align       Alignment
	FirstIndent float64
	LeftIndent  float64
	RightIndent float64
	Before      float64
	After       float64
	LineSpacing int // percent
	Tabs        []Tab
}

// Link resolves inheritance from the parent style.
func (s *ParaStyle) Link(l Lookup) error {
	if s.ParentRef == 0 {
		return nil
	}
	parent, err := As[*ParaStyle](l, s.ParentRef)
	if err != nil {
		l.Log().WithField("zone", s.ParentRef).WithError(err).Warn("parent paragraph style unavailable")
		return nil
	}
	if s.Mask&ParaMaskAlign == 0 {
		s.Align = parent.Align
	}
	if s.Mask&ParaMaskIndent == 0 {
		s.FirstIndent, s.LeftIndent, s.RightIndent = parent.FirstIndent, parent.LeftIndent, parent.RightIndent
	}
	if s.Mask&ParaMaskSpacing == 0 {
		s.Before, s.After = parent.Before, parent.After
	}
	if s.Mask&ParaMaskLine == 0 {
		s.LineSpacing = parent.LineSpacing
	}
	if s.Mask&ParaMaskTabs == 0 {
		s.Tabs = parent.Tabs
	}
	s.Mask |= parent.Mask
	return nil
}

// Graphic style flags
const (
	NoLine uint8 = 1 << iota
	NoFill
)

// GraphicStyle is a line/fill style zone
type GraphicStyle struct {
	LineRef   int
	FillRef   int
	LineWidth float64
	Flags     uint8
	Pattern   uint8
}

// ShapeKind tags the shape variant
type ShapeKind uint8

const (
	ShapeLine ShapeKind = iota
	ShapeRect
	ShapeEllipse
	ShapePath
	ShapeGroup
	ShapePicture
	ShapeText
	ShapeTable
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeLine:
		return "line"
	case ShapeRect:
		return "rect"
	case ShapeEllipse:
		return "ellipse"
	case ShapePath:
		return "path"
	case ShapeGroup:
		return "group"
	case ShapePicture:
		return "picture"
	case ShapeText:
		return "text"
	case ShapeTable:
		return "table"
	}
	return fmt.Sprintf("shape(%d)", int(k))
}

// Shape flags
const (
	ShapeHasTransform uint8 = 1 << iota
	ShapeLineReversed       // line runs from the bottom-left corner
)

// Shape is a drawing object zone. Groups list their children by id;
// picture, text and table shapes reference their content zone by id.
type Shape struct {
	Kind      ShapeKind
	Flags     uint8
	StyleRef  int
	Box       geometry.Rect
	Page      int // 1-based anchor page, 0 to derive from position
	Transform geometry.Matrix
	Radius    float64         // rect corner radius
	Nodes     []geometry.Node // path vertices
	Children  []int           // group members as declared
	Ref       int             // picture/text/table zone

	// Members are the children that resolved as shapes when linking;
	// Bounds covers them (or the shape itself) in local coordinates.
	Members []int
	Bounds  geometry.Rect
}

// Link resolves group children and computes the covering box.
func (s *Shape) Link(l Lookup) error {
	switch s.Kind {
	case ShapePath:
		s.Bounds = geometry.AssemblePath(s.Nodes, s.Box.Min).Bounds()
		return nil
	case ShapeGroup:
	default:
		s.Bounds = s.Box
		return nil
	}

	var bounds geometry.Rect
	for _, id := range s.Children {
		child, err := As[*Shape](l, id)
		if err != nil {
			l.Log().WithField("zone", id).WithError(err).Warn("dropping group member")
			continue
		}
		s.Members = append(s.Members, id)
		bounds = bounds.Union(child.Bounds.Transform(child.Transform))
	}
	if bounds == (geometry.Rect{}) {
		bounds = s.Box
	}
	s.Bounds = bounds
	return nil
}

// Run is one (position, zone) pair of a style run table.
type Run struct {
	Pos int
	Ref int
}

// TokenKind is the payload type of a text token
type TokenKind uint8

const (
	TokenFootnote TokenKind = iota + 1
	TokenPageNumber
	TokenDate
	TokenTime
	TokenTitle
)

func (k TokenKind) String() string {
	switch k {
	case TokenFootnote:
		return "footnote"
	case TokenPageNumber:
		return "page-number"
	case TokenDate:
		return "date"
	case TokenTime:
		return "time"
	case TokenTitle:
		return "title"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// Token marks a footnote anchor or a field at a text position.
type Token struct {
	Pos  int
	Kind TokenKind
	Ref  int // note zone for footnotes
}

// BreakKind enumerates structural breaks
type BreakKind uint8

const (
	BreakLine BreakKind = iota
	BreakParagraph
	BreakColumn
	BreakPage
)

func (k BreakKind) String() string {
	switch k {
	case BreakLine:
		return "line"
	case BreakParagraph:
		return "paragraph"
	case BreakColumn:
		return "column"
	case BreakPage:
		return "page"
	}
	return fmt.Sprintf("break(%d)", int(k))
}

// Break is a forced break at a text position.
type Break struct {
	Pos  int
	Kind BreakKind
}

// TextZone holds a raw text buffer and its independently indexed
// annotation tables.
type TextZone struct {
	Text     []byte
	CharRuns []Run
	ParaRuns []Run
	Tokens   []Token
	Breaks   []Break
}

// Picture encodings
const (
	EncodingRaw      = 0
	EncodingPackBits = 1
	EncodingHuffman  = 2
)

// Picture is a raster picture zone, decoded eagerly.
type Picture struct {
	Encoding int
	Bitmap   *Bitmap
}

// Table is a grid of text zones in row-major order; 0 marks an empty cell.
type Table struct {
	Rows      int
	Cols      int
	ColWidths []float64
	Cells     []int
}

// Cell returns the text zone at (row, col)
func (t *Table) Cell(row, col int) int {
	i := row*t.Cols + col
	if row < 0 || col < 0 || col >= t.Cols || i >= len(t.Cells) {
		return 0
	}
	return t.Cells[i]
}

// NoteKind distinguishes footnotes from endnotes
type NoteKind uint8

const (
	Footnote NoteKind = iota
	Endnote
)

func (k NoteKind) String() string {
	if k == Endnote {
		return "endnote"
	}
	return "footnote"
}

// Note is a footnote/endnote zone pointing at its body text.
type Note struct {
	Kind    NoteKind
	TextRef int
}

// DocumentZone is the root zone.
type DocumentZone struct {
	PageWidth   float64
	PageHeight  float64
	Margins     [4]float64 // top, left, bottom, right
	Pages       int
	MainText    int
	DefaultPara int
	SoftBreaks  []int
	Shapes      []int
}
