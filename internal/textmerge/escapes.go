package textmerge

// Control is the structural meaning of a byte in the text buffer
type Control uint8

const (
	Literal Control = iota
	Tab
	LineBreak
	ParagraphBreak
	ColumnBreak
	PageBreak
	Placeholder // anchor of a footnote or field token
	Ignore
)

func (c Control) String() string {
	switch c {
	case Literal:
		return "literal"
	case Tab:
		return "tab"
	case LineBreak:
		return "line"
	case ParagraphBreak:
		return "paragraph"
	case ColumnBreak:
		return "column"
	case PageBreak:
		return "page"
	case Placeholder:
		return "placeholder"
	}
	return "ignore"
}

// Escapes maps control bytes to their meaning. Bytes below 0x20 that are
// not listed are dropped; everything else is literal text.
type Escapes map[byte]Control

// Lookup classifies b
func (e Escapes) Lookup(b byte) Control {
	if c, ok := e[b]; ok {
		return c
	}
	if b < 0x20 || b == 0x7F {
		return Ignore
	}
	return Literal
}

// MacEscapes ends paragraphs with CR.
var MacEscapes = Escapes{
	0x09: Tab,
	0x0B: LineBreak,
	0x0C: PageBreak,
	0x0D: ParagraphBreak,
	0x0E: ColumnBreak,
	0x1F: Placeholder,
}

// PCEscapes ends paragraphs with LF and drops CR.
var PCEscapes = Escapes{
	0x09: Tab,
	0x0A: ParagraphBreak,
	0x0B: LineBreak,
	0x0C: PageBreak,
	0x0D: Ignore,
	0x0E: ColumnBreak,
	0x1F: Placeholder,
}
