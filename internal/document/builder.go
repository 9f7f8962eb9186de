package document

import (
	"fmt"
	"io"
	"math"

	"github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/codec"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
)

// Builder writes containers zone by zone. It backs the sample command and
// the test fixtures.
type Builder struct {
	w      *binary.Writer
	format *Format
}

// NewBuilder starts a container of the given format in its default byte
// order and codepage.
func NewBuilder(w io.Writer, signature string) (*Builder, error) {
	f, ok := FormatFor(signature)
	if !ok {
		return nil, fmt.Errorf("signature %q: %w", signature, model.ErrUnsupported)
	}
	return &Builder{
		w:      binary.NewWriter(w, f.ByteOrder, f.Signature, f.CodePage),
		format: f,
	}, nil
}

// Writer exposes the underlying container writer
func (b *Builder) Writer() *binary.Writer {
	return b.w
}

// Reserve allocates an id for a zone written later with one of the At
// methods
func (b *Builder) Reserve() uint16 {
	return b.w.Reserve()
}

func (b *Builder) add(id, tag uint16, rec *binary.Record) uint16 {
	if id == 0 {
		return b.w.AddZone(tag, rec.Bytes())
	}
	b.w.SetZone(id, tag, rec.Bytes())
	return id
}

func toTwips(v float64) uint16 {
	return uint16(int16(math.Round(v * 20)))
}

// Color adds an RGB color zone
func (b *Builder) Color(c model.Color) uint16 {
	rec := b.w.NewRecord().PutU8(model.ColorRGB).PutU8(c.R).PutU8(c.G).PutU8(c.B)
	return b.add(0, model.TagColor, rec)
}

// Tint adds a tint of base at percent
func (b *Builder) Tint(base uint16, percent int) uint16 {
	return b.TintAt(0, base, percent)
}

// TintAt writes a tint zone at a reserved id
func (b *Builder) TintAt(id, base uint16, percent int) uint16 {
	rec := b.w.NewRecord().PutU8(model.ColorTint).PutU16(base).PutU16(uint16(percent))
	return b.add(id, model.TagColor, rec)
}

// Font adds a font zone
func (b *Builder) Font(family int, name string) uint16 {
	rec := b.w.NewRecord().PutU16(uint16(family)).PutPascal(name)
	return b.add(0, model.TagFont, rec)
}

// CharStyle adds a character style zone
func (b *Builder) CharStyle(s model.CharStyle) uint16 {
	rec := b.w.NewRecord().
		PutU16(uint16(s.FontRef)).
		PutU16(toTwips(s.Size)).
		PutU16(uint16(s.Flags)).
		PutU16(uint16(s.ColorRef))
	return b.add(0, model.TagCharStyle, rec)
}

// ParaStyle adds a paragraph style zone
func (b *Builder) ParaStyle(s model.ParaStyle) uint16 {
	return b.ParaStyleAt(0, s)
}

// ParaStyleAt writes a paragraph style zone at a reserved id
func (b *Builder) ParaStyleAt(id uint16, s model.ParaStyle) uint16 {
	rec := b.w.NewRecord().
		PutU16(uint16(s.ParentRef)).
		PutU16(s.Mask).
		PutU8(uint8(s.Align)).
		PutU8(0).
		PutU16(toTwips(s.FirstIndent)).
		PutU16(toTwips(s.LeftIndent)).
		PutU16(toTwips(s.RightIndent)).
		PutU16(toTwips(s.Before)).
		PutU16(toTwips(s.After)).
		PutU16(uint16(s.LineSpacing)).
		PutU8(uint8(len(s.Tabs)))
	for _, t := range s.Tabs {
		rec.PutU16(toTwips(t.Pos)).PutU8(t.Kind)
	}
	return b.add(id, model.TagParaStyle, rec)
}

// GraphicStyle adds a graphic style zone
func (b *Builder) GraphicStyle(s model.GraphicStyle) uint16 {
	rec := b.w.NewRecord().
		PutU16(uint16(s.LineRef)).
		PutU16(uint16(s.FillRef)).
		PutFixed(s.LineWidth).
		PutU8(s.Flags).
		PutU8(s.Pattern)
	return b.add(0, model.TagGraphicStyle, rec)
}

// Shape adds a shape zone. A transform other than zero or identity is
// written with the transform flag set.
func (b *Builder) Shape(s model.Shape) uint16 {
	return b.ShapeAt(0, s)
}

// ShapeAt writes a shape zone at a reserved id
func (b *Builder) ShapeAt(id uint16, s model.Shape) uint16 {
	flags := s.Flags &^ model.ShapeHasTransform
	hasTransform := s.Transform != (geometry.Matrix{}) && !s.Transform.IsIdentity()
	if hasTransform {
		flags |= model.ShapeHasTransform
	}
	rec := b.w.NewRecord().
		PutU8(uint8(s.Kind)).
		PutU8(flags).
		PutU16(uint16(s.StyleRef)).
		PutFixed(s.Box.Min.X).PutFixed(s.Box.Min.Y).
		PutFixed(s.Box.Max.X).PutFixed(s.Box.Max.Y).
		PutU16(uint16(s.Page))
	if hasTransform {
		for _, v := range s.Transform {
			rec.PutFixed(v)
		}
	}

	switch s.Kind {
	case model.ShapeRect:
		rec.PutFixed(s.Radius)
	case model.ShapePath:
		rec.PutU16(uint16(len(s.Nodes)))
		for _, n := range s.Nodes {
			for _, p := range []geometry.Point{n.Before, n.Anchor, n.After} {
				rec.PutFixed(p.X).PutFixed(p.Y)
			}
		}
		if len(s.Nodes) == 0 {
			rec.PutI32(geometry.EndMarker)
		}
	case model.ShapeGroup:
		rec.PutU16(uint16(len(s.Children)))
		for _, c := range s.Children {
			rec.PutU16(uint16(c))
		}
	case model.ShapePicture, model.ShapeText, model.ShapeTable:
		rec.PutU16(uint16(s.Ref))
	}
	return b.add(id, model.TagShape, rec)
}

// Text adds a text zone
func (b *Builder) Text(tz model.TextZone) uint16 {
	return b.TextAt(0, tz)
}

// TextAt writes a text zone at a reserved id
func (b *Builder) TextAt(id uint16, tz model.TextZone) uint16 {
	rec := b.w.NewRecord().PutU32(uint32(len(tz.Text))).PutBytes(tz.Text)
	for _, runs := range [][]model.Run{tz.CharRuns, tz.ParaRuns} {
		rec.PutU16(uint16(len(runs)))
		for _, r := range runs {
			rec.PutU32(uint32(r.Pos)).PutU16(uint16(r.Ref))
		}
	}
	rec.PutU16(uint16(len(tz.Tokens)))
	for _, t := range tz.Tokens {
		rec.PutU32(uint32(t.Pos)).PutU8(uint8(t.Kind)).PutU16(uint16(t.Ref))
	}
	rec.PutU16(uint16(len(tz.Breaks)))
	for _, br := range tz.Breaks {
		rec.PutU32(uint32(br.Pos)).PutU8(uint8(br.Kind))
	}
	return b.add(id, model.TagText, rec)
}

// Encode converts s to the container codepage
func (b *Builder) Encode(s string) []byte {
	return b.w.NewRecord().Encode(s)
}

// Picture adds a picture zone
func (b *Builder) Picture(bm *model.Bitmap, enc int) (uint16, error) {
	rec := b.w.NewRecord()
	if err := codec.EncodePicture(rec, bm, enc); err != nil {
		return 0, err
	}
	return b.add(0, model.TagPicture, rec), nil
}

// Table adds a table zone
func (b *Builder) Table(t model.Table) uint16 {
	rec := b.w.NewRecord().PutU16(uint16(t.Rows)).PutU16(uint16(t.Cols))
	for c := 0; c < t.Cols; c++ {
		w := 0.0
		if c < len(t.ColWidths) {
			w = t.ColWidths[c]
		}
		rec.PutFixed(w)
	}
	for i := 0; i < t.Rows*t.Cols; i++ {
		ref := 0
		if i < len(t.Cells) {
			ref = t.Cells[i]
		}
		rec.PutU16(uint16(ref))
	}
	return b.add(0, model.TagTable, rec)
}

// Note adds a note zone
func (b *Builder) Note(n model.Note) uint16 {
	return b.NoteAt(0, n)
}

// NoteAt writes a note zone at a reserved id
func (b *Builder) NoteAt(id uint16, n model.Note) uint16 {
	rec := b.w.NewRecord().PutU8(uint8(n.Kind)).PutU16(uint16(n.TextRef))
	return b.add(id, model.TagNote, rec)
}

// Document adds the document zone and makes it the root
func (b *Builder) Document(d model.DocumentZone) uint16 {
	rec := b.w.NewRecord().PutFixed(d.PageWidth).PutFixed(d.PageHeight)
	for _, m := range d.Margins {
		rec.PutFixed(m)
	}
	rec.PutU16(uint16(d.Pages)).PutU16(uint16(d.MainText)).PutU16(uint16(d.DefaultPara))
	rec.PutU16(uint16(len(d.SoftBreaks)))
	for _, p := range d.SoftBreaks {
		rec.PutU32(uint32(p))
	}
	rec.PutU16(uint16(len(d.Shapes)))
	for _, s := range d.Shapes {
		rec.PutU16(uint16(s))
	}
	id := b.add(0, model.TagDocument, rec)
	b.w.SetRoot(id)
	return id
}

// Close writes the container
func (b *Builder) Close() error {
	return b.w.Write()
}
