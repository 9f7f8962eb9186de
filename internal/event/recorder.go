package event

import (
	"strings"

	"github.com/dyuri/zoneconv/internal/model"
)

// Event types
const (
	TypeStartDocument = "start-document"
	TypeEndDocument   = "end-document"
	TypeOpenPage      = "open-page"
	TypeClosePage     = "close-page"
	TypeParagraph     = "paragraph-style"
	TypeCharacter     = "character-style"
	TypeText          = "text"
	TypeTab           = "tab"
	TypeBreak         = "break"
	TypeField         = "field"
	TypeOpenNote      = "open-note"
	TypeCloseNote     = "close-note"
	TypeShape         = "shape"
	TypePicture       = "picture"
	TypeOpenGroup     = "open-group"
	TypeCloseGroup    = "close-group"
	TypeOpenTextBox   = "open-text-box"
	TypeCloseTextBox  = "close-text-box"
	TypeOpenTable     = "open-table"
	TypeOpenCell      = "open-cell"
	TypeCloseCell     = "close-cell"
	TypeCloseTable    = "close-table"
)

// PictureInfo summarizes an emitted bitmap
type PictureInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Mode   string `json:"mode"`
}

// Event is one recorded sink call
type Event struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Kind     string           `json:"kind,omitempty"`
	Page     int              `json:"page,omitempty"`
	Width    float64          `json:"width,omitempty"`
	Height   float64          `json:"height,omitempty"`
	Row      int              `json:"row,omitempty"`
	Col      int              `json:"col,omitempty"`
	Pos      *Position        `json:"pos,omitempty"`
	Style    *Style           `json:"style,omitempty"`
	Geometry *Geometry        `json:"geometry,omitempty"`
	Char     *CharStyle       `json:"char,omitempty"`
	Para     *model.ParaStyle `json:"para,omitempty"`
	Picture  *PictureInfo     `json:"picture,omitempty"`
	Table    *TableInfo       `json:"table,omitempty"`
	Info     *DocumentInfo    `json:"info,omitempty"`
}

// Recorder is a Sink that keeps every call as an Event
type Recorder struct {
	Events []Event
}

func (r *Recorder) add(e Event) {
	r.Events = append(r.Events, e)
}

// Types returns the event types in order
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}

// Text concatenates the text events, rendering tabs as \t and breaks as \n.
func (r *Recorder) Text() string {
	var sb strings.Builder
	for _, e := range r.Events {
		switch e.Type {
		case TypeText:
			sb.WriteString(e.Text)
		case TypeTab:
			sb.WriteByte('\t')
		case TypeBreak:
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Filter returns the events of type typ
func (r *Recorder) Filter(typ string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) StartDocument(info DocumentInfo) {
	r.add(Event{Type: TypeStartDocument, Info: &info})
}

func (r *Recorder) EndDocument() { r.add(Event{Type: TypeEndDocument}) }

func (r *Recorder) OpenPage(number int, width, height float64) {
	r.add(Event{Type: TypeOpenPage, Page: number, Width: width, Height: height})
}

func (r *Recorder) ClosePage() { r.add(Event{Type: TypeClosePage}) }

func (r *Recorder) SetParagraphStyle(style model.ParaStyle) {
	r.add(Event{Type: TypeParagraph, Para: &style})
}

func (r *Recorder) SetCharacterStyle(style CharStyle) {
	r.add(Event{Type: TypeCharacter, Char: &style})
}

func (r *Recorder) InsertText(text string) {
	r.add(Event{Type: TypeText, Text: text})
}

func (r *Recorder) InsertTab() { r.add(Event{Type: TypeTab}) }

func (r *Recorder) InsertBreak(kind model.BreakKind) {
	r.add(Event{Type: TypeBreak, Kind: kind.String()})
}

func (r *Recorder) InsertField(kind model.TokenKind) {
	r.add(Event{Type: TypeField, Kind: kind.String()})
}

func (r *Recorder) OpenNote(kind model.NoteKind) {
	r.add(Event{Type: TypeOpenNote, Kind: kind.String()})
}

func (r *Recorder) CloseNote() { r.add(Event{Type: TypeCloseNote}) }

func (r *Recorder) InsertShape(pos Position, style Style, geom Geometry) {
	r.add(Event{Type: TypeShape, Kind: geom.Kind.String(), Pos: &pos, Style: &style, Geometry: &geom})
}

func (r *Recorder) InsertPicture(pos Position, bm *model.Bitmap) {
	e := Event{Type: TypePicture, Pos: &pos}
	if bm != nil {
		e.Picture = &PictureInfo{Width: bm.Width, Height: bm.Height, Mode: bm.ColorMode.String()}
	}
	r.add(e)
}

func (r *Recorder) OpenGroup(pos Position) { r.add(Event{Type: TypeOpenGroup, Pos: &pos}) }

func (r *Recorder) CloseGroup() { r.add(Event{Type: TypeCloseGroup}) }

func (r *Recorder) OpenTextBox(pos Position) { r.add(Event{Type: TypeOpenTextBox, Pos: &pos}) }

func (r *Recorder) CloseTextBox() { r.add(Event{Type: TypeCloseTextBox}) }

func (r *Recorder) OpenTable(pos Position, info TableInfo) {
	r.add(Event{Type: TypeOpenTable, Pos: &pos, Table: &info})
}

func (r *Recorder) OpenCell(row, col int) {
	r.add(Event{Type: TypeOpenCell, Row: row, Col: col})
}

func (r *Recorder) CloseCell() { r.add(Event{Type: TypeCloseCell}) }

func (r *Recorder) CloseTable() { r.add(Event{Type: TypeCloseTable}) }
