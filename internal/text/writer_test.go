package text

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
)

func TestWriterDump(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.StartDocument(event.DocumentInfo{Format: "draw", Version: 1, PageWidth: 612, PageHeight: 792, Pages: 1, Labels: []string{"a", "b"}})
	w.OpenPage(1, 612, 792)
	w.SetCharacterStyle(event.CharStyle{Font: "Geneva", Size: 12.5, Flags: model.Bold | model.Italic, Color: model.Color{R: 255, Alpha: 255}})
	w.InsertText("Hello")
	w.InsertTab()
	w.InsertBreak(model.BreakParagraph)
	w.OpenGroup(event.Position{Page: 1, Box: geometry.NewRect(0, 0, 10, 10)})
	w.InsertShape(
		event.Position{Page: 1, Box: geometry.NewRect(1, 2, 4, 6), Rotation: 90},
		event.DefaultStyle,
		event.Geometry{Kind: model.ShapeRect, Box: geometry.NewRect(1, 2, 4, 6)},
	)
	w.CloseGroup()
	w.ClosePage()
	w.EndDocument()

	if err := w.Err(); err != nil {
		t.Fatalf("Err = %v", err)
	}
	want := []string{
		"[document]",
		"Format=draw",
		"Version=1",
		"Page=612x792",
		"Pages=1",
		"Labels=a,b",
		"[end]",
		"",
		"[page 1]",
		`CharacterStyle="Geneva" 12.5 bold,italic #ff0000`,
		`Text="Hello"`,
		"Tab",
		"Break=paragraph",
		"Group=0,0 10x10",
		"  Shape=rect 1,2 3x4 rot=90",
		"    Line=#000000 1",
		"EndGroup",
		"[end]",
		"",
		"",
	}
	if got := buf.String(); got != strings.Join(want, "\n") {
		t.Errorf("dump =\n%s\nwant\n%s", got, strings.Join(want, "\n"))
	}
}

func TestWriterPictureXPM(t *testing.T) {
	bm := &model.Bitmap{
		Width:     2,
		Height:    1,
		ColorMode: model.Indexed,
		Palette:   []model.Color{{Alpha: 255}, {R: 255, G: 255, B: 255, Alpha: 255}},
		Data:      []byte{0, 1},
	}
	pos := event.Position{Page: 1, Box: geometry.NewRect(0, 0, 2, 1)}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.InsertPicture(pos, bm)
	want := "Picture=2x1 indexed 0,0 2x1\nPictureXpm=\"2 1 2 1\"\n\"! c #000000\"\n\"# c #ffffff\"\n\"!#\"\n"
	if got := buf.String(); got != want {
		t.Errorf("picture =\n%q\nwant\n%q", got, want)
	}

	buf.Reset()
	w.SetXPMLimit(0)
	w.InsertPicture(pos, bm)
	if got := buf.String(); strings.Contains(got, "Xpm") {
		t.Errorf("XPM written with limit 0: %q", got)
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("disk full")
	}
	f.n--
	return len(p), nil
}

func TestWriterStickyError(t *testing.T) {
	fw := &failingWriter{n: 1}
	w := NewWriter(fw)
	w.InsertText("a")
	w.InsertText("b")
	w.InsertText("c")
	if w.Err() == nil || w.Err().Error() != "disk full" {
		t.Errorf("Err = %v, want disk full", w.Err())
	}
}
