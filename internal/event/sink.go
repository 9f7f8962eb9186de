// Package event defines the document sink that decoded content is emitted
// to, and a recorder implementation of it.
package event

import (
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
)

// DocumentInfo describes the document as a whole
type DocumentInfo struct {
	Format     string     `json:"format"`
	Version    int        `json:"version"`
	PageWidth  float64    `json:"pageWidth"`
	PageHeight float64    `json:"pageHeight"`
	Margins    [4]float64 `json:"margins"` // top, left, bottom, right
	Pages      int        `json:"pages"`
	Landscape  bool       `json:"landscape,omitempty"`
	Labels     []string   `json:"labels,omitempty"`
}

// Position anchors an object on a page. Box is axis-aligned in page
// coordinates; Rotation (degrees, clockwise on the page about the box
// center) is applied on top of it.
type Position struct {
	Page     int           `json:"page"`
	Box      geometry.Rect `json:"box"`
	Rotation float64       `json:"rotation,omitempty"`
}

// Style is the resolved line and fill of a shape
type Style struct {
	Line      model.Color `json:"line"`
	Fill      model.Color `json:"fill"`
	LineWidth float64     `json:"lineWidth"`
	NoLine    bool        `json:"noLine,omitempty"`
	NoFill    bool        `json:"noFill,omitempty"`
	Pattern   uint8       `json:"pattern,omitempty"`
}

// DefaultStyle is used when a shape has no resolvable style
var DefaultStyle = Style{
	Line:      model.Black,
	Fill:      model.Color{R: 255, G: 255, B: 255, Alpha: 255},
	LineWidth: 1,
	NoFill:    true,
}

// Geometry is the outline of a shape. Rect and ellipse shapes use Box and
// Radius; lines and paths use Path, already in page coordinates.
type Geometry struct {
	Kind   model.ShapeKind `json:"kind"`
	Box    geometry.Rect   `json:"box"`
	Radius float64         `json:"radius,omitempty"`
	Path   *geometry.Path  `json:"path,omitempty"`
}

// CharStyle is a resolved character style
type CharStyle struct {
	Font  string          `json:"font"`
	Size  float64         `json:"size"`
	Flags model.CharFlags `json:"flags,omitempty"`
	Color model.Color     `json:"color"`
}

// TableInfo describes a table before its cells
type TableInfo struct {
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	ColWidths []float64 `json:"colWidths,omitempty"`
}

// Sink receives decoded document content in reading order. Open/Close
// calls always nest properly.
type Sink interface {
	StartDocument(info DocumentInfo)
	EndDocument()
	OpenPage(number int, width, height float64)
	ClosePage()

	SetParagraphStyle(style model.ParaStyle)
	SetCharacterStyle(style CharStyle)
	InsertText(text string)
	InsertTab()
	InsertBreak(kind model.BreakKind)
	InsertField(kind model.TokenKind)
	OpenNote(kind model.NoteKind)
	CloseNote()

	InsertShape(pos Position, style Style, geom Geometry)
	InsertPicture(pos Position, bm *model.Bitmap)
	OpenGroup(pos Position)
	CloseGroup()
	OpenTextBox(pos Position)
	CloseTextBox()
	OpenTable(pos Position, info TableInfo)
	OpenCell(row, col int)
	CloseCell()
	CloseTable()
}
