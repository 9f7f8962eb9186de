package document

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zbin "github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/zone"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func build(t *testing.T, signature string, fn func(b *Builder)) []byte {
	t.Helper()
	var buf bytes.Buffer
	b, err := NewBuilder(&buf, signature)
	require.NoError(t, err)
	fn(b)
	require.NoError(t, b.Close())
	return buf.Bytes()
}

func decode(t *testing.T, data []byte, opts ...Option) (*event.Recorder, *Report, error) {
	t.Helper()
	rec := &event.Recorder{}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	report, err := Decode(context.Background(), bytes.NewReader(data), int64(len(data)), rec, opts...)
	return rec, report, err
}

func texts(rec *event.Recorder) []string {
	var out []string
	for _, e := range rec.Filter(event.TypeText) {
		out = append(out, e.Text)
	}
	return out
}

func TestWordProcessorFlow(t *testing.T) {
	data := build(t, "ZWPD", func(b *Builder) {
		font := b.Font(3, "Geneva")
		red := b.Color(model.Color{R: 255, Alpha: 255})
		cs := b.CharStyle(model.CharStyle{FontRef: int(font), Size: 12, Flags: model.Bold, ColorRef: int(red)})
		ps := b.ParaStyle(model.ParaStyle{Mask: model.ParaMaskAlign, Align: model.AlignCenter, LineSpacing: 100})
		noteText := b.Text(model.TextZone{Text: []byte("Note text")})
		note := b.Note(model.Note{Kind: model.Footnote, TextRef: int(noteText)})
		main := b.Text(model.TextZone{
			Text:     []byte("Hello\rWorld\x0cSecond\x1f."),
			CharRuns: []model.Run{{Pos: 0, Ref: int(cs)}},
			ParaRuns: []model.Run{{Pos: 0, Ref: int(ps)}},
			Tokens:   []model.Token{{Pos: 18, Kind: model.TokenFootnote, Ref: int(note)}},
		})
		b.Document(model.DocumentZone{
			PageWidth:  612,
			PageHeight: 792,
			Pages:      2,
			MainText:   int(main),
			SoftBreaks: []int{11},
		})
	})

	rec, report, err := decode(t, data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		event.TypeStartDocument,
		event.TypeOpenPage,
		event.TypeParagraph,
		event.TypeCharacter,
		event.TypeText,
		event.TypeBreak,
		event.TypeText,
		event.TypeClosePage,
		event.TypeOpenPage,
		event.TypeText,
		event.TypeOpenNote,
		event.TypeText,
		event.TypeCloseNote,
		event.TypeText,
		event.TypeClosePage,
		event.TypeEndDocument,
	}, rec.Types())
	assert.Equal(t, []string{"Hello", "World", "Second", "Note text", "."}, texts(rec))

	char := rec.Filter(event.TypeCharacter)[0].Char
	assert.Equal(t, "Geneva", char.Font)
	assert.InDelta(t, 12, char.Size, 1e-9)
	assert.Equal(t, model.Bold, char.Flags)
	assert.Equal(t, "#ff0000", char.Color.Hex())

	para := rec.Filter(event.TypeParagraph)[0].Para
	assert.Equal(t, model.AlignCenter, para.Align)

	assert.Equal(t, 2, report.Pages)
	assert.Empty(t, report.MergeErrors)
	assert.Empty(t, report.Failures)
}

func TestDrawingShapes(t *testing.T) {
	var rect, g3 uint16
	data := build(t, "ZDRW", func(b *Builder) {
		blue := b.Color(model.Color{B: 255, Alpha: 255})
		style := b.GraphicStyle(model.GraphicStyle{LineRef: int(blue), LineWidth: 2, Flags: model.NoFill})
		gray := &model.Bitmap{Width: 4, Height: 2, ColorMode: model.Gray, Data: []byte{0, 50, 100, 150, 200, 250, 255, 0}}
		pic, err := b.Picture(gray, model.EncodingHuffman)
		require.NoError(t, err)

		rect = b.Shape(model.Shape{
			Kind:      model.ShapeRect,
			StyleRef:  int(style),
			Box:       geometry.NewRect(10, 10, 50, 30),
			Page:      1,
			Transform: geometry.RotateAbout(math.Pi/2, geometry.Point{X: 30, Y: 20}),
			Radius:    4,
		})
		line := b.Shape(model.Shape{Kind: model.ShapeLine, Box: geometry.NewRect(0, 0, 10, 10)})
		ellipse := b.Shape(model.Shape{Kind: model.ShapeEllipse, Box: geometry.NewRect(0, 20, 10, 30)})
		group := b.Shape(model.Shape{
			Kind:      model.ShapeGroup,
			Box:       geometry.NewRect(0, 0, 10, 30),
			Page:      1,
			Transform: geometry.Translate(100, 0),
			Children:  []int{int(line), int(ellipse)},
		})

		// Two groups containing each other
		g3 = b.Reserve()
		g4 := b.Reserve()
		b.ShapeAt(g3, model.Shape{Kind: model.ShapeGroup, Page: 1, Box: geometry.NewRect(0, 0, 1, 1), Children: []int{int(g4)}})
		b.ShapeAt(g4, model.Shape{Kind: model.ShapeGroup, Page: 1, Box: geometry.NewRect(0, 0, 1, 1), Children: []int{int(g3)}})

		picShape := b.Shape(model.Shape{Kind: model.ShapePicture, Box: geometry.NewRect(0, 100, 40, 120), Page: 1, Ref: int(pic)})
		b.Document(model.DocumentZone{
			PageWidth:  200,
			PageHeight: 200,
			Pages:      1,
			Shapes:     []int{int(rect), int(group), int(g3), int(picShape), int(rect), 999},
		})
	})

	rec, report, err := decode(t, data)
	require.NoError(t, err)

	shapes := rec.Filter(event.TypeShape)
	require.Len(t, shapes, 3)
	assert.Equal(t, []string{"rect", "line", "ellipse"}, []string{shapes[0].Kind, shapes[1].Kind, shapes[2].Kind})

	r := shapes[0]
	assert.InDelta(t, 90, r.Pos.Rotation, 1e-6)
	assert.InDelta(t, 10, r.Pos.Box.Min.X, 1e-3)
	assert.InDelta(t, 10, r.Pos.Box.Min.Y, 1e-3)
	assert.InDelta(t, 50, r.Pos.Box.Max.X, 1e-3)
	assert.InDelta(t, 30, r.Pos.Box.Max.Y, 1e-3)
	assert.InDelta(t, 4, r.Geometry.Radius, 1e-9)
	assert.Equal(t, 2.0, r.Style.LineWidth)
	assert.Equal(t, "#0000ff", r.Style.Line.Hex())
	assert.True(t, r.Style.NoFill)

	line := shapes[1].Geometry.Path
	require.NotNil(t, line)
	require.Len(t, line.Segments, 2)
	assert.Equal(t, geometry.Point{X: 100, Y: 0}, line.Segments[0].Points[0])
	assert.Equal(t, geometry.Point{X: 110, Y: 10}, line.Segments[1].Points[0])

	groups := rec.Filter(event.TypeOpenGroup)
	require.Len(t, groups, 3)
	assert.Equal(t, geometry.NewRect(100, 0, 110, 30), groups[0].Pos.Box)
	assert.Len(t, rec.Filter(event.TypeCloseGroup), 3)

	pics := rec.Filter(event.TypePicture)
	require.Len(t, pics, 1)
	assert.Equal(t, 4, pics[0].Picture.Width)
	assert.Equal(t, "gray", pics[0].Picture.Mode)

	// rect listed twice, 999 missing
	assert.Equal(t, 4, report.Shapes)
}

func TestSharedShapesEmitOnce(t *testing.T) {
	data := build(t, "ZDRW", func(b *Builder) {
		rect := b.Shape(model.Shape{Kind: model.ShapeRect, Box: geometry.NewRect(0, 0, 10, 10), Page: 1})
		g1 := b.Shape(model.Shape{Kind: model.ShapeGroup, Box: geometry.NewRect(0, 0, 10, 10), Page: 1, Children: []int{int(rect)}})
		g2 := b.Shape(model.Shape{Kind: model.ShapeGroup, Box: geometry.NewRect(0, 0, 10, 10), Page: 1, Children: []int{int(rect)}})
		b.Document(model.DocumentZone{PageWidth: 100, PageHeight: 100, Pages: 1, Shapes: []int{int(g1), int(g2), int(rect)}})
	})

	rec, report, err := decode(t, data)
	require.NoError(t, err)
	assert.Len(t, rec.Filter(event.TypeShape), 1)
	assert.Len(t, rec.Filter(event.TypeOpenGroup), 2)
	assert.Equal(t, 2, report.Shapes)

	// Two top-level groups containing each other
	data = build(t, "ZDRW", func(b *Builder) {
		ga := b.Reserve()
		gb := b.Reserve()
		b.ShapeAt(ga, model.Shape{Kind: model.ShapeGroup, Page: 1, Box: geometry.NewRect(0, 0, 1, 1), Children: []int{int(gb)}})
		b.ShapeAt(gb, model.Shape{Kind: model.ShapeGroup, Page: 1, Box: geometry.NewRect(0, 0, 1, 1), Children: []int{int(ga)}})
		b.Document(model.DocumentZone{PageWidth: 100, PageHeight: 100, Pages: 1, Shapes: []int{int(ga), int(gb)}})
	})

	rec, report, err = decode(t, data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		event.TypeStartDocument,
		event.TypeOpenPage,
		event.TypeOpenGroup,
		event.TypeOpenGroup,
		event.TypeCloseGroup,
		event.TypeCloseGroup,
		event.TypeClosePage,
		event.TypeEndDocument,
	}, rec.Types())
	assert.Equal(t, 1, report.Shapes)
}

func TestPagination(t *testing.T) {
	boxes := []geometry.Rect{
		geometry.NewRect(0, 10, 10, 20),   // page 1
		geometry.NewRect(0, 150, 10, 160), // page 2 by position
		geometry.NewRect(0, 95, 10, 105),  // overflows inside the tolerance band
		geometry.NewRect(0, 50, 10, 120),  // overflows from above the band
	}
	data := build(t, "ZDRW", func(b *Builder) {
		var ids []int
		for _, box := range boxes {
			ids = append(ids, int(b.Shape(model.Shape{Kind: model.ShapeRect, Box: box})))
		}
		b.Document(model.DocumentZone{PageWidth: 100, PageHeight: 100, Pages: 1, Shapes: ids})
	})

	type placement struct {
		page int
		top  float64
	}
	placements := func(rec *event.Recorder) []placement {
		var out []placement
		for _, e := range rec.Filter(event.TypeShape) {
			out = append(out, placement{e.Pos.Page, math.Round(e.Pos.Box.Min.Y)})
		}
		return out
	}

	rec, _, err := decode(t, data)
	require.NoError(t, err)
	assert.Equal(t, []placement{{1, 10}, {1, 50}, {2, 50}, {2, 0}}, placements(rec))
	assert.Len(t, rec.Filter(event.TypeOpenPage), 2)

	rec, _, err = decode(t, data, WithPageBreakTolerance(0))
	require.NoError(t, err)
	assert.Equal(t, []placement{{1, 10}, {1, 95}, {1, 50}, {2, 50}}, placements(rec))
}

func TestStrictDirectory(t *testing.T) {
	data := build(t, "ZDRW", func(b *Builder) {
		first := b.Shape(model.Shape{Kind: model.ShapeRect, Box: geometry.NewRect(0, 0, 5, 5)})
		second := b.Shape(model.Shape{Kind: model.ShapeRect, Box: geometry.NewRect(5, 5, 10, 10)})
		b.Document(model.DocumentZone{Pages: 1, Shapes: []int{int(first), int(second)}})
		b.Writer().Override(second, zbin.DirEntry{Length: 10, Offset: zbin.HeaderSize + 2})
	})

	rec, report, err := decode(t, data)
	require.NoError(t, err)
	assert.Len(t, report.Invalid, 2)
	assert.Empty(t, rec.Filter(event.TypeShape))

	_, err = Open(bytes.NewReader(data), int64(len(data)), WithStrict(true), WithLogger(quietLogger()))
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestDamagedShapeIsSkipped(t *testing.T) {
	var bad uint16
	data := build(t, "ZDRW", func(b *Builder) {
		payload := make([]byte, 22)
		payload[0] = 99 // unknown shape kind
		bad = b.Writer().AddZone(model.TagShape, payload)
		good := b.Shape(model.Shape{Kind: model.ShapeEllipse, Box: geometry.NewRect(0, 0, 5, 5)})
		b.Document(model.DocumentZone{Pages: 1, Shapes: []int{int(bad), int(good)}})
	})

	rec, report, err := decode(t, data)
	require.NoError(t, err)
	assert.Len(t, rec.Filter(event.TypeShape), 1)
	require.Contains(t, report.Failures, int(bad))
	assert.ErrorIs(t, report.Failures[int(bad)], model.ErrUnsupported)
}

func TestUnterminatedPathIsMalformed(t *testing.T) {
	var bad uint16
	data := build(t, "ZDRW", func(b *Builder) {
		// Shape header, zero vertex count, then vertices with no end marker
		payload := make([]byte, 24+(1<<14)*24)
		payload[0] = byte(model.ShapePath)
		bad = b.Writer().AddZone(model.TagShape, payload)
		b.Document(model.DocumentZone{Pages: 1, Shapes: []int{int(bad)}})
	})

	rec, report, err := decode(t, data)
	require.NoError(t, err)
	assert.Empty(t, rec.Filter(event.TypeShape))
	require.Contains(t, report.Failures, int(bad))
	assert.ErrorIs(t, report.Failures[int(bad)], model.ErrMalformed)
}

func TestBadHeaderIsFatal(t *testing.T) {
	_, _, err := decode(t, []byte("IIXXXX"))
	assert.Error(t, err)

	data := build(t, "ZDRW", func(b *Builder) {
		b.Document(model.DocumentZone{Pages: 1})
	})
	copy(data[2:], "QQQQ")
	_, _, err = decode(t, data)
	assert.ErrorIs(t, err, model.ErrUnsupported)
}

func auxContainer(t *testing.T, damaged bool) []byte {
	t.Helper()
	prnt := zbin.NewRecord(binary.BigEndian, 10000).
		PutFixed(300).PutFixed(400).
		PutFixed(10).PutFixed(12).PutFixed(10).PutFixed(12).
		PutU8(1)
	labl := zbin.NewRecord(binary.BigEndian, 10000).PutU8(2).PutPascal("draft").PutPascal("v2")

	var out []byte
	for _, r := range []struct {
		tag  string
		data []byte
	}{
		{"PRNT", prnt.Bytes()},
		{"XXXX", []byte{1, 2, 3}},
		{"LABL", labl.Bytes()},
	} {
		b, err := AuxRecord(r.tag, r.data)
		require.NoError(t, err)
		out = append(out, b...)
	}
	if damaged {
		out = append(out, 'W', 'I', 'N', 'D', 0, 0, 0x10, 0)
	}
	return out
}

func TestReadAux(t *testing.T) {
	data := auxContainer(t, true)
	meta, err := ReadAux(bytes.NewReader(data), int64(len(data)), 10000, quietLogger())
	assert.ErrorIs(t, err, model.ErrBounds)
	require.NotNil(t, meta.Print)
	assert.Equal(t, 300.0, meta.Print.PaperWidth)
	assert.True(t, meta.Print.Landscape)
	assert.Equal(t, []string{"draft", "v2"}, meta.Labels)
	assert.Nil(t, meta.Window)
}

func TestAuxSuppliesPageSize(t *testing.T) {
	data := build(t, "ZDRW", func(b *Builder) {
		b.Document(model.DocumentZone{Pages: 1})
	})
	aux := auxContainer(t, true)

	rec, _, err := decode(t, data, WithAux(bytes.NewReader(aux), int64(len(aux))))
	require.NoError(t, err)

	info := rec.Events[0].Info
	require.NotNil(t, info)
	assert.Equal(t, 400.0, info.PageWidth)
	assert.Equal(t, 300.0, info.PageHeight)
	assert.True(t, info.Landscape)
	assert.Equal(t, [4]float64{10, 12, 10, 12}, info.Margins)
	assert.Equal(t, []string{"draft", "v2"}, info.Labels)
}

func TestCancelledContext(t *testing.T) {
	data := build(t, "ZWPD", func(b *Builder) {
		main := b.Text(model.TextZone{Text: []byte("text")})
		b.Document(model.DocumentZone{Pages: 3, MainText: int(main)})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &event.Recorder{}
	_, err := Decode(ctx, bytes.NewReader(data), int64(len(data)), rec, WithLogger(quietLogger()))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []string{event.TypeStartDocument, event.TypeEndDocument}, rec.Types())
}

func TestStyleLinking(t *testing.T) {
	var parent, child, tint, loopA, loopB uint16
	data := build(t, "ZWPD", func(b *Builder) {
		parent = b.ParaStyle(model.ParaStyle{
			Mask:        model.ParaMaskAlign | model.ParaMaskLine,
			Align:       model.AlignRight,
			LineSpacing: 150,
		})
		child = b.ParaStyle(model.ParaStyle{
			ParentRef:  int(parent),
			Mask:       model.ParaMaskIndent,
			LeftIndent: 36,
		})
		red := b.Color(model.Color{R: 255, Alpha: 255})
		tint = b.Tint(red, 50)
		loopA = b.Reserve()
		loopB = b.Tint(loopA, 50)
		b.TintAt(loopA, loopB, 50)
		b.Document(model.DocumentZone{Pages: 1})
	})

	d, err := Open(bytes.NewReader(data), int64(len(data)), WithLogger(quietLogger()))
	require.NoError(t, err)

	ps, err := zone.ResolveAs[*model.ParaStyle](d.Resolver, int(child))
	require.NoError(t, err)
	assert.Equal(t, model.AlignRight, ps.Align)
	assert.Equal(t, 150, ps.LineSpacing)
	assert.Equal(t, 36.0, ps.LeftIndent)

	c, err := zone.ResolveAs[*model.ColorDef](d.Resolver, int(tint))
	require.NoError(t, err)
	assert.Equal(t, model.Color{R: 255, G: 128, B: 128, Alpha: 255}, c.Value())

	// The cycle resolves: the inner tint falls back to a black base
	_, err = zone.ResolveAs[*model.ColorDef](d.Resolver, int(loopA))
	require.NoError(t, err)
	inner, err := zone.ResolveAs[*model.ColorDef](d.Resolver, int(loopB))
	require.NoError(t, err)
	assert.Equal(t, model.Color{R: 128, G: 128, B: 128, Alpha: 255}, inner.Value())
}

func TestTablesAndNotesEmitOnce(t *testing.T) {
	data := build(t, "ZWPD", func(b *Builder) {
		a := b.Text(model.TextZone{Text: []byte("A")})
		bb := b.Text(model.TextZone{Text: []byte("B")})
		table := b.Table(model.Table{Rows: 2, Cols: 2, ColWidths: []float64{50, 60}, Cells: []int{int(a), int(bb), int(a), 0}})
		shape := b.Shape(model.Shape{Kind: model.ShapeTable, Box: geometry.NewRect(0, 0, 110, 40), Page: 1, Ref: int(table)})

		// The note body is the main text itself
		main := b.Reserve()
		note := b.Note(model.Note{Kind: model.Footnote, TextRef: int(main)})
		b.TextAt(main, model.TextZone{
			Text:   []byte("x\x1fy\x1f"),
			Tokens: []model.Token{{Pos: 1, Kind: model.TokenFootnote, Ref: int(note)}, {Pos: 3, Kind: model.TokenFootnote, Ref: int(note)}},
		})
		b.Document(model.DocumentZone{Pages: 1, MainText: int(main), Shapes: []int{int(shape)}})
	})

	rec, _, err := decode(t, data)
	require.NoError(t, err)

	assert.Equal(t, []string{
		event.TypeStartDocument,
		event.TypeOpenPage,
		event.TypeOpenTable,
		event.TypeOpenCell, event.TypeText, event.TypeCloseCell,
		event.TypeOpenCell, event.TypeText, event.TypeCloseCell,
		event.TypeOpenCell, event.TypeCloseCell,
		event.TypeOpenCell, event.TypeCloseCell,
		event.TypeCloseTable,
		event.TypeText,
		event.TypeOpenNote,
		event.TypeCloseNote,
		event.TypeText,
		event.TypeClosePage,
		event.TypeEndDocument,
	}, rec.Types())
	assert.Equal(t, []string{"A", "B", "x", "y"}, texts(rec))

	table := rec.Filter(event.TypeOpenTable)[0].Table
	assert.Equal(t, 2, table.Rows)
	assert.Equal(t, []float64{50, 60}, table.ColWidths)
}
