// Package textmerge walks a text buffer once while applying several
// independently indexed annotation streams (breaks, paragraph styles,
// tokens, character styles) in one deterministic order.
package textmerge

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/zoneconv/internal/model"
)

// Kind is the stream priority: at one position lower kinds apply first.
type Kind uint8

const (
	KindBreak Kind = iota
	KindParagraph
	KindToken
	KindCharStyle
)

func (k Kind) String() string {
	switch k {
	case KindBreak:
		return "break"
	case KindParagraph:
		return "paragraph"
	case KindToken:
		return "token"
	case KindCharStyle:
		return "char-style"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Annotation is one (position, payload) entry of a stream. Ref is a zone
// id (style or note); Sub carries the break or token kind.
type Annotation struct {
	Pos  int
	Kind Kind
	Ref  int
	Sub  int
	Soft bool // provisional soft page break
}

// Target receives the merged walk
type Target interface {
	// Text receives a run of literal text
	Text(s string)
	// Control receives a structural byte at pos
	Control(c Control, pos int)
	// Apply receives an annotation
	Apply(a Annotation)
}

type stream struct {
	name  string
	kind  Kind
	items []Annotation
	next  int
}

// Merger merges annotation streams over one text buffer.
type Merger struct {
	text       []byte
	escapes    Escapes
	decode     func([]byte) string
	log        logrus.FieldLogger
	streams    []*stream
	softBreaks []int
}

// Option configures a merger
type Option func(*Merger)

// WithDecoder sets the function turning literal bytes into text
func WithDecoder(decode func([]byte) string) Option {
	return func(m *Merger) {
		if decode != nil {
			m.decode = decode
		}
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Merger) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates a merger over text
func New(text []byte, escapes Escapes, opts ...Option) *Merger {
	m := &Merger{
		text:    text,
		escapes: escapes,
		decode:  func(b []byte) string { return string(b) },
		log:     logrus.StandardLogger(),
	}
	if m.escapes == nil {
		m.escapes = MacEscapes
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers a stream. Items must be in ascending position order; the
// stream kind overrides each item's Kind.
func (m *Merger) Add(name string, kind Kind, items []Annotation) {
	s := &stream{name: name, kind: kind, items: make([]Annotation, len(items))}
	for i, a := range items {
		a.Kind = kind
		s.items[i] = a
	}
	m.streams = append(m.streams, s)
}

// AddSoftBreaks declares provisional page breaks. A soft break is dropped
// when a forced page break already falls at the same position.
func (m *Merger) AddSoftBreaks(positions []int) {
	m.softBreaks = append(m.softBreaks, positions...)
}

// forcedPages returns the positions holding a forced page break, from the
// break streams or from page-break bytes in the buffer.
func (m *Merger) forcedPages() map[int]bool {
	forced := make(map[int]bool)
	for _, s := range m.streams {
		if s.kind != KindBreak {
			continue
		}
		for _, a := range s.items {
			if model.BreakKind(a.Sub) == model.BreakPage {
				forced[a.Pos] = true
			}
		}
	}
	for i, b := range m.text {
		if m.escapes.Lookup(b) == PageBreak {
			forced[i] = true
		}
	}
	return forced
}

// head returns the index of the stream whose next item has the smallest
// (position, kind, stream order) key, or -1 when all are drained.
func (m *Merger) head() int {
	best := -1
	var bestA Annotation
	for i, s := range m.streams {
		if s.next >= len(s.items) {
			continue
		}
		a := s.items[s.next]
		if best < 0 || a.Pos < bestA.Pos || (a.Pos == bestA.Pos && a.Kind < bestA.Kind) {
			best, bestA = i, a
		}
	}
	return best
}

// Run walks the buffer once. Before each annotation position it flushes
// the literal text up to there; annotations at one position apply in
// (kind, stream, sequence) order. Annotations past the end of the buffer
// apply after the final flush.
//
// A stream that goes backwards aborts the merge: the error is logged and
// returned, and the rest of the text is flushed without annotations.
func (m *Merger) Run(t Target) error {
	if len(m.softBreaks) > 0 {
		forced := m.forcedPages()
		sort.Ints(m.softBreaks)
		var soft []Annotation
		last := -1
		for _, p := range m.softBreaks {
			if p < 0 || p == last || forced[p] {
				continue
			}
			soft = append(soft, Annotation{Pos: p, Sub: int(model.BreakPage), Soft: true})
			last = p
		}
		// Soft breaks come after forced breaks at one position
		m.Add("soft-breaks", KindBreak, soft)
		m.softBreaks = nil
	}

	// Bytes whose meaning an annotation already carried: a token's
	// placeholder, or a page-break byte under a page break annotation
	absorbed := make(map[int]bool)
	consumed := 0
	var err error
	for {
		i := m.head()
		if i < 0 {
			break
		}
		s := m.streams[i]
		a := s.items[s.next]
		if a.Pos < consumed {
			err = fmt.Errorf("%s stream item %d at %d behind position %d: %w",
				s.name, s.next, a.Pos, consumed, model.ErrMalformed)
			m.log.WithFields(logrus.Fields{"stream": s.name, "pos": a.Pos}).Warn("aborting text merge: " + err.Error())
			break
		}
		s.next++

		if a.Pos > consumed {
			m.flush(t, consumed, min(a.Pos, len(m.text)), absorbed)
			consumed = a.Pos
		}
		if m.absorbs(a) {
			absorbed[a.Pos] = true
		}
		t.Apply(a)
	}

	if consumed < len(m.text) {
		m.flush(t, consumed, len(m.text), absorbed)
	}
	return err
}

// absorbs reports whether a stands in for the control byte at its position
func (m *Merger) absorbs(a Annotation) bool {
	if a.Pos < 0 || a.Pos >= len(m.text) {
		return false
	}
	c := m.escapes.Lookup(m.text[a.Pos])
	switch a.Kind {
	case KindToken:
		return c == Placeholder
	case KindBreak:
		return !a.Soft && c == PageBreak && model.BreakKind(a.Sub) == model.BreakPage
	}
	return false
}

// flush emits text[from:to], splitting literal runs at control bytes.
// Absorbed control bytes are dropped.
func (m *Merger) flush(t Target, from, to int, absorbed map[int]bool) {
	run := from
	emit := func(end int) {
		if end > run {
			t.Text(m.decode(m.text[run:end]))
		}
	}
	for i := from; i < to; i++ {
		c := m.escapes.Lookup(m.text[i])
		if c == Literal {
			continue
		}
		emit(i)
		run = i + 1
		if c == Ignore || absorbed[i] {
			continue
		}
		t.Control(c, i)
	}
	emit(to)
}
