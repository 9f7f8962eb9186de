package document

import (
	"encoding/binary"
	"sort"

	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/textmerge"
	"github.com/dyuri/zoneconv/internal/zone"
)

// Layout is how a format lays out its content
type Layout int

const (
	// Flow documents pour one main text across pages
	Flow Layout = iota
	// Paged documents place shapes on explicit pages
	Paged
)

func (l Layout) String() string {
	if l == Flow {
		return "flow"
	}
	return "paged"
}

// Format describes one member of the container family
type Format struct {
	Signature string
	Name      string
	Layout    Layout
	ByteOrder binary.ByteOrder // written by Builder; readers follow the header mark
	CodePage  int              // default when the header declares none
	Escapes   textmerge.Escapes
	Registry  *zone.Registry
}

func baseRegistry() *zone.Registry {
	r := zone.NewRegistry()
	r.Register(model.TagColor, "color", decodeColor)
	r.Register(model.TagFont, "font", decodeFont)
	r.Register(model.TagCharStyle, "character style", decodeCharStyle)
	r.Register(model.TagParaStyle, "paragraph style", decodeParaStyle)
	r.Register(model.TagGraphicStyle, "graphic style", decodeGraphicStyle)
	r.Register(model.TagShape, "shape", decodeShape)
	r.Register(model.TagText, "text", decodeText)
	r.Register(model.TagPicture, "picture", decodePicture)
	r.Register(model.TagDocument, "document", decodeDocument)
	return r
}

func wordRegistry() *zone.Registry {
	r := baseRegistry()
	r.Register(model.TagTable, "table", decodeTable)
	r.Register(model.TagNote, "note", decodeNote)
	return r
}

func drawRegistry() *zone.Registry {
	r := baseRegistry()
	r.Register(model.TagTable, "table", decodeTable)
	return r
}

var formats = map[string]*Format{
	"ZWPD": {
		Signature: "ZWPD",
		Name:      "word processor",
		Layout:    Flow,
		ByteOrder: binary.BigEndian,
		CodePage:  10000,
		Escapes:   textmerge.MacEscapes,
		Registry:  wordRegistry(),
	},
	"ZDRW": {
		Signature: "ZDRW",
		Name:      "drawing",
		Layout:    Paged,
		ByteOrder: binary.BigEndian,
		CodePage:  10000,
		Escapes:   textmerge.MacEscapes,
		Registry:  drawRegistry(),
	},
	"ZPRS": {
		Signature: "ZPRS",
		Name:      "presentation",
		Layout:    Paged,
		ByteOrder: binary.LittleEndian,
		CodePage:  1252,
		Escapes:   textmerge.PCEscapes,
		Registry:  baseRegistry(),
	},
}

// FormatFor returns the format with the given signature
func FormatFor(signature string) (*Format, bool) {
	f, ok := formats[signature]
	return f, ok
}

// Signatures lists the known signatures in order
func Signatures() []string {
	out := make([]string, 0, len(formats))
	for sig := range formats {
		out = append(out, sig)
	}
	sort.Strings(out)
	return out
}
