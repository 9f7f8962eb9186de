// Package text writes decoded documents as a sectioned plain-text dump and
// converts small indexed pictures to and from XPM.
package text

import (
	"fmt"
	"io"
	"strings"

	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
)

// DefaultXPMLimit is the largest indexed picture, in pixels, written
// inline as XPM by default.
const DefaultXPMLimit = 64 * 64

// Writer is an event.Sink that writes a sectioned plain-text dump of the
// document. Write errors are sticky and reported by Err.
type Writer struct {
	w        io.Writer
	err      error
	depth    int
	xpmLimit int
}

// NewWriter creates a dump writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, xpmLimit: DefaultXPMLimit}
}

// SetXPMLimit sets the largest picture written as XPM; 0 disables XPM
// output.
func (w *Writer) SetXPMLimit(pixels int) {
	w.xpmLimit = pixels
}

// Err returns the first write error
func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) printf(format string, args ...any) {
	if w.err != nil {
		return
	}
	line := strings.Repeat("  ", w.depth) + fmt.Sprintf(format, args...)
	if _, err := io.WriteString(w.w, line); err != nil {
		w.err = err
	}
}

func (w *Writer) open(format string, args ...any) {
	w.printf(format, args...)
	w.depth++
}

func (w *Writer) close(format string, args ...any) {
	if w.depth > 0 {
		w.depth--
	}
	w.printf(format, args...)
}

func pt(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func box(r geometry.Rect) string {
	return fmt.Sprintf("%s,%s %sx%s", pt(r.Min.X), pt(r.Min.Y), pt(r.Width()), pt(r.Height()))
}

func position(p event.Position) string {
	s := box(p.Box)
	if p.Rotation != 0 {
		s += " rot=" + pt(p.Rotation)
	}
	return s
}

var charFlagNames = []struct {
	flag model.CharFlags
	name string
}{
	{model.Bold, "bold"},
	{model.Italic, "italic"},
	{model.Underline, "underline"},
	{model.Strike, "strike"},
	{model.Superscript, "super"},
	{model.Subscript, "sub"},
	{model.Outline, "outline"},
	{model.Shadow, "shadow"},
}

func flagList(f model.CharFlags) string {
	var names []string
	for _, n := range charFlagNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "plain"
	}
	return strings.Join(names, ",")
}

func (w *Writer) StartDocument(info event.DocumentInfo) {
	// Format:
	// [document]
	// Format=draw
	// Page=612x792
	// [end]
	w.printf("[document]\n")
	w.printf("Format=%s\n", info.Format)
	w.printf("Version=%d\n", info.Version)
	w.printf("Page=%sx%s\n", pt(info.PageWidth), pt(info.PageHeight))
	if info.Margins != [4]float64{} {
		m := info.Margins
		w.printf("Margins=%s,%s,%s,%s\n", pt(m[0]), pt(m[1]), pt(m[2]), pt(m[3]))
	}
	w.printf("Pages=%d\n", info.Pages)
	if info.Landscape {
		w.printf("Landscape=1\n")
	}
	if len(info.Labels) > 0 {
		w.printf("Labels=%s\n", strings.Join(info.Labels, ","))
	}
	w.printf("[end]\n\n")
}

func (w *Writer) EndDocument() {}

func (w *Writer) OpenPage(number int, width, height float64) {
	w.printf("[page %d]\n", number)
}

func (w *Writer) ClosePage() {
	w.depth = 0
	w.printf("[end]\n\n")
}

func (w *Writer) SetParagraphStyle(s model.ParaStyle) {
	w.printf("ParagraphStyle=%s indent=%s,%s,%s spacing=%s,%s line=%d\n",
		s.Align, pt(s.FirstIndent), pt(s.LeftIndent), pt(s.RightIndent),
		pt(s.Before), pt(s.After), s.LineSpacing)
	for _, t := range s.Tabs {
		w.printf("Tab=%s,%d\n", pt(t.Pos), t.Kind)
	}
}

func (w *Writer) SetCharacterStyle(s event.CharStyle) {
	font := s.Font
	if font == "" {
		font = "default"
	}
	w.printf("CharacterStyle=%q %s %s %s\n", font, pt(s.Size), flagList(s.Flags), s.Color.Hex())
}

func (w *Writer) InsertText(text string) {
	w.printf("Text=%q\n", text)
}

func (w *Writer) InsertTab() {
	w.printf("Tab\n")
}

func (w *Writer) InsertBreak(kind model.BreakKind) {
	w.printf("Break=%s\n", kind)
}

func (w *Writer) InsertField(kind model.TokenKind) {
	w.printf("Field=%s\n", kind)
}

func (w *Writer) OpenNote(kind model.NoteKind) {
	w.open("Note=%s\n", kind)
}

func (w *Writer) CloseNote() {
	w.close("EndNote\n")
}

func (w *Writer) InsertShape(pos event.Position, style event.Style, geom event.Geometry) {
	w.printf("Shape=%s %s\n", geom.Kind, position(pos))
	w.depth++
	defer func() { w.depth-- }()

	if !style.NoLine {
		w.printf("Line=%s %s\n", style.Line.Hex(), pt(style.LineWidth))
	}
	if !style.NoFill {
		w.printf("Fill=%s\n", style.Fill.Hex())
	}
	if geom.Radius != 0 {
		w.printf("Radius=%s\n", pt(geom.Radius))
	}
	if geom.Path != nil {
		for _, seg := range geom.Path.Segments {
			coords := make([]string, len(seg.Points))
			for i, p := range seg.Points {
				coords[i] = pt(p.X) + "," + pt(p.Y)
			}
			w.printf("%s\n", strings.TrimSpace(seg.Kind.String()+" "+strings.Join(coords, " ")))
		}
	}
}

func (w *Writer) InsertPicture(pos event.Position, bm *model.Bitmap) {
	if bm == nil {
		w.printf("Picture=missing %s\n", position(pos))
		return
	}
	w.printf("Picture=%dx%d %s %s\n", bm.Width, bm.Height, bm.ColorMode, position(pos))
	if bm.ColorMode != model.Indexed || bm.Width*bm.Height > w.xpmLimit {
		return
	}
	if w.err == nil {
		w.err = WriteXPM(w.w, bm, "PictureXpm")
	}
}

func (w *Writer) OpenGroup(pos event.Position) {
	w.open("Group=%s\n", position(pos))
}

func (w *Writer) CloseGroup() {
	w.close("EndGroup\n")
}

func (w *Writer) OpenTextBox(pos event.Position) {
	w.open("TextBox=%s\n", position(pos))
}

func (w *Writer) CloseTextBox() {
	w.close("EndTextBox\n")
}

func (w *Writer) OpenTable(pos event.Position, info event.TableInfo) {
	widths := make([]string, len(info.ColWidths))
	for i, v := range info.ColWidths {
		widths[i] = pt(v)
	}
	w.open("Table=%dx%d %s widths=%s\n", info.Rows, info.Cols, position(pos), strings.Join(widths, ","))
}

func (w *Writer) OpenCell(row, col int) {
	w.open("Cell=%d,%d\n", row, col)
}

func (w *Writer) CloseCell() {
	w.close("EndCell\n")
}

func (w *Writer) CloseTable() {
	w.close("EndTable\n")
}

var _ event.Sink = (*Writer)(nil)
