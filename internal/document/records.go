package document

import (
	"errors"
	"fmt"

	"github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/codec"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/zone"
)

// Size limits for declared tables
const (
	maxTableCells = 4096
	maxTextLen    = 16 << 20
)

// Text measurements are stored in twentieths of a point
func twips(v int) float64 {
	return float64(v) / 20
}

// count reads a u16 row count and checks that many rows of rowSize bytes
// fit in what is left of the zone.
func count(rd *binary.Reader, rowSize int, what string) (int, error) {
	n := int(rd.U16())
	if err := rd.Err(); err != nil {
		return 0, fmt.Errorf("read %s count: %w", what, err)
	}
	if int64(n*rowSize) > rd.Remaining() {
		return 0, fmt.Errorf("%d %s need %d bytes, %d left: %w",
			n, what, n*rowSize, rd.Remaining(), model.ErrMalformed)
	}
	return n, nil
}

func decodeColor(_ *zone.Entry, rd *binary.Reader) (any, error) {
	c := &model.ColorDef{Mode: rd.U8()}
	switch c.Mode {
	case model.ColorRGB:
		c.RGB = model.Color{R: rd.U8(), G: rd.U8(), B: rd.U8(), Alpha: 255}
	case model.ColorTint:
		c.Base = int(rd.U16())
		c.Percent = int(rd.U16())
	default:
		return nil, fmt.Errorf("color mode %d: %w", c.Mode, model.ErrUnsupported)
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeFont(_ *zone.Entry, rd *binary.Reader) (any, error) {
	f := &model.Font{Family: int(rd.U16())}
	f.Name = rd.PascalString()
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return f, nil
}

func decodeCharStyle(_ *zone.Entry, rd *binary.Reader) (any, error) {
	s := &model.CharStyle{
		FontRef:  int(rd.U16()),
		Size:     twips(int(rd.U16())),
		Flags:    model.CharFlags(rd.U16()),
		ColorRef: int(rd.U16()),
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeParaStyle(_ *zone.Entry, rd *binary.Reader) (any, error) {
	s := &model.ParaStyle{
		ParentRef: int(rd.U16()),
		Mask:      rd.U16(),
		Align:     model.Alignment(rd.U8()),
	}
	_ = rd.U8()
	s.FirstIndent = twips(int(rd.I16()))
	s.LeftIndent = twips(int(rd.I16()))
	s.RightIndent = twips(int(rd.I16()))
	s.Before = twips(int(rd.U16()))
	s.After = twips(int(rd.U16()))
	s.LineSpacing = int(rd.U16())
	n := int(rd.U8())
	for i := 0; i < n; i++ {
		pos := rd.I16()
		kind := rd.U8()
		if rd.Err() != nil {
			break
		}
		s.Tabs = append(s.Tabs, model.Tab{Pos: twips(int(pos)), Kind: kind})
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if s.Align > model.AlignJustify {
		s.Align = model.AlignLeft
	}
	return s, nil
}

func decodeGraphicStyle(_ *zone.Entry, rd *binary.Reader) (any, error) {
	s := &model.GraphicStyle{
		LineRef:   int(rd.U16()),
		FillRef:   int(rd.U16()),
		LineWidth: rd.Fixed(),
		Flags:     rd.U8(),
		Pattern:   rd.U8(),
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeShape(_ *zone.Entry, rd *binary.Reader) (any, error) {
	s := &model.Shape{
		Kind:      model.ShapeKind(rd.U8()),
		Flags:     rd.U8(),
		StyleRef:  int(rd.U16()),
		Transform: geometry.Identity(),
	}
	x0, y0, x1, y1 := rd.Fixed(), rd.Fixed(), rd.Fixed(), rd.Fixed()
	s.Box = geometry.NewRect(x0, y0, x1, y1)
	s.Page = int(rd.U16())
	if s.Flags&model.ShapeHasTransform != 0 {
		for i := range s.Transform {
			s.Transform[i] = rd.Fixed()
		}
	}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read shape header: %w", err)
	}

	switch s.Kind {
	case model.ShapeLine, model.ShapeEllipse:
	case model.ShapeRect:
		s.Radius = rd.Fixed()
	case model.ShapePath:
		n := int(rd.U16())
		if err := rd.Err(); err != nil {
			return nil, err
		}
		nodes, err := geometry.ReadNodes(rd, n)
		if err != nil {
			if !errors.Is(err, model.ErrBounds) && !errors.Is(err, model.ErrTruncated) {
				err = fmt.Errorf("%w: %w", model.ErrMalformed, err)
			}
			return nil, fmt.Errorf("read path vertices: %w", err)
		}
		s.Nodes = nodes
	case model.ShapeGroup:
		n, err := count(rd, 2, "group members")
		if err != nil {
			return nil, err
		}
		s.Children = make([]int, n)
		for i := range s.Children {
			s.Children[i] = int(rd.U16())
		}
	case model.ShapePicture, model.ShapeText, model.ShapeTable:
		s.Ref = int(rd.U16())
	default:
		return nil, fmt.Errorf("shape kind %d: %w", s.Kind, model.ErrUnsupported)
	}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read %s payload: %w", s.Kind, err)
	}
	return s, nil
}

func decodeText(_ *zone.Entry, rd *binary.Reader) (any, error) {
	length := int64(rd.U32())
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if length > maxTextLen || length > rd.Remaining() {
		return nil, fmt.Errorf("text of %d bytes, %d left: %w", length, rd.Remaining(), model.ErrMalformed)
	}
	text, err := rd.Read(int(length))
	if err != nil {
		return nil, err
	}
	tz := &model.TextZone{Text: text}

	readRuns := func(what string) ([]model.Run, error) {
		n, err := count(rd, 6, what)
		if err != nil {
			return nil, err
		}
		runs := make([]model.Run, n)
		for i := range runs {
			runs[i] = model.Run{Pos: int(rd.U32()), Ref: int(rd.U16())}
		}
		return runs, rd.Err()
	}
	if tz.CharRuns, err = readRuns("character runs"); err != nil {
		return nil, err
	}
	if tz.ParaRuns, err = readRuns("paragraph runs"); err != nil {
		return nil, err
	}

	n, err := count(rd, 7, "tokens")
	if err != nil {
		return nil, err
	}
	tz.Tokens = make([]model.Token, n)
	for i := range tz.Tokens {
		tz.Tokens[i] = model.Token{
			Pos:  int(rd.U32()),
			Kind: model.TokenKind(rd.U8()),
			Ref:  int(rd.U16()),
		}
	}

	n, err = count(rd, 5, "breaks")
	if err != nil {
		return nil, err
	}
	tz.Breaks = make([]model.Break, n)
	for i := range tz.Breaks {
		tz.Breaks[i] = model.Break{Pos: int(rd.U32()), Kind: model.BreakKind(rd.U8())}
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return tz, nil
}

func decodePicture(_ *zone.Entry, rd *binary.Reader) (any, error) {
	return codec.DecodePicture(rd)
}

func decodeTable(_ *zone.Entry, rd *binary.Reader) (any, error) {
	t := &model.Table{Rows: int(rd.U16()), Cols: int(rd.U16())}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	cells := t.Rows * t.Cols
	if cells == 0 || cells > maxTableCells {
		return nil, fmt.Errorf("table %dx%d: %w", t.Rows, t.Cols, model.ErrMalformed)
	}
	if int64(t.Cols*4+cells*2) > rd.Remaining() {
		return nil, fmt.Errorf("table %dx%d exceeds zone: %w", t.Rows, t.Cols, model.ErrMalformed)
	}
	t.ColWidths = make([]float64, t.Cols)
	for i := range t.ColWidths {
		t.ColWidths[i] = rd.Fixed()
	}
	t.Cells = make([]int, cells)
	for i := range t.Cells {
		t.Cells[i] = int(rd.U16())
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeNote(_ *zone.Entry, rd *binary.Reader) (any, error) {
	n := &model.Note{Kind: model.NoteKind(rd.U8()), TextRef: int(rd.U16())}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if n.Kind > model.Endnote {
		return nil, fmt.Errorf("note kind %d: %w", n.Kind, model.ErrUnsupported)
	}
	return n, nil
}

func decodeDocument(_ *zone.Entry, rd *binary.Reader) (any, error) {
	d := &model.DocumentZone{
		PageWidth:  rd.Fixed(),
		PageHeight: rd.Fixed(),
	}
	for i := range d.Margins {
		d.Margins[i] = rd.Fixed()
	}
	d.Pages = int(rd.U16())
	d.MainText = int(rd.U16())
	d.DefaultPara = int(rd.U16())
	if err := rd.Err(); err != nil {
		return nil, err
	}

	n, err := count(rd, 4, "soft breaks")
	if err != nil {
		return nil, err
	}
	d.SoftBreaks = make([]int, n)
	for i := range d.SoftBreaks {
		d.SoftBreaks[i] = int(rd.U32())
	}
	n, err = count(rd, 2, "shapes")
	if err != nil {
		return nil, err
	}
	d.Shapes = make([]int, n)
	for i := range d.Shapes {
		d.Shapes[i] = int(rd.U16())
	}
	if err := rd.Err(); err != nil {
		return nil, err
	}
	if d.PageWidth < 0 || d.PageHeight < 0 {
		return nil, fmt.Errorf("page size %gx%g: %w", d.PageWidth, d.PageHeight, model.ErrMalformed)
	}
	return d, nil
}
