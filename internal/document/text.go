package document

import (
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/textmerge"
	"github.com/dyuri/zoneconv/internal/zone"
)

// emitText merges a text zone's annotation tables over its buffer. Page
// breaks in the main text turn pages; anywhere else they are emitted as
// break events. A text zone reached again while it is being emitted (a
// footnote inside its own body, say) is skipped.
func (a *assembly) emitText(id int, softBreaks []int, main bool) {
	log := a.log.WithField("zone", id)
	if !a.tracker.Enter(id) {
		log.Debug("text already being emitted, skipping")
		return
	}
	defer a.tracker.Leave(id)

	tz, err := zone.ResolveAs[*model.TextZone](a.res, id)
	if err != nil {
		log.WithError(err).Warn("skipping text")
		return
	}

	m := textmerge.New(tz.Text, a.doc.Format.Escapes,
		textmerge.WithDecoder(a.doc.DecodeString),
		textmerge.WithLogger(log))

	breaks := make([]textmerge.Annotation, len(tz.Breaks))
	for i, b := range tz.Breaks {
		breaks[i] = textmerge.Annotation{Pos: b.Pos, Sub: int(b.Kind)}
	}
	m.Add("breaks", textmerge.KindBreak, breaks)
	m.Add("paragraphs", textmerge.KindParagraph, runAnnotations(tz.ParaRuns))
	tokens := make([]textmerge.Annotation, len(tz.Tokens))
	for i, t := range tz.Tokens {
		tokens[i] = textmerge.Annotation{Pos: t.Pos, Ref: t.Ref, Sub: int(t.Kind)}
	}
	m.Add("tokens", textmerge.KindToken, tokens)
	m.Add("characters", textmerge.KindCharStyle, runAnnotations(tz.CharRuns))
	if main {
		m.AddSoftBreaks(softBreaks)
	}

	if err := m.Run(&textTarget{a: a, main: main}); err != nil {
		a.report.MergeErrors = append(a.report.MergeErrors, err)
	}
}

func runAnnotations(runs []model.Run) []textmerge.Annotation {
	out := make([]textmerge.Annotation, len(runs))
	for i, r := range runs {
		out[i] = textmerge.Annotation{Pos: r.Pos, Ref: r.Ref}
	}
	return out
}

// textTarget turns the merged walk into sink events
type textTarget struct {
	a    *assembly
	main bool
}

func (t *textTarget) Text(s string) {
	t.a.sink.InsertText(s)
}

func (t *textTarget) Control(c textmerge.Control, pos int) {
	switch c {
	case textmerge.Tab:
		t.a.sink.InsertTab()
	case textmerge.LineBreak:
		t.a.sink.InsertBreak(model.BreakLine)
	case textmerge.ParagraphBreak:
		t.a.sink.InsertBreak(model.BreakParagraph)
	case textmerge.ColumnBreak:
		t.a.sink.InsertBreak(model.BreakColumn)
	case textmerge.PageBreak:
		t.pageBreak()
	case textmerge.Placeholder:
		t.a.log.WithField("pos", pos).Debug("placeholder without token")
	}
}

func (t *textTarget) Apply(an textmerge.Annotation) {
	switch an.Kind {
	case textmerge.KindBreak:
		kind := model.BreakKind(an.Sub)
		switch {
		case kind == model.BreakPage:
			t.pageBreak()
		case kind > model.BreakPage:
			t.a.log.WithField("pos", an.Pos).Warn("unknown break kind")
		default:
			t.a.sink.InsertBreak(kind)
		}
	case textmerge.KindParagraph:
		t.a.setParagraph(an.Ref)
	case textmerge.KindCharStyle:
		t.a.setCharacter(an.Ref)
	case textmerge.KindToken:
		kind := model.TokenKind(an.Sub)
		if kind == model.TokenFootnote {
			t.a.emitNote(an.Ref)
			return
		}
		t.a.sink.InsertField(kind)
	}
}

func (t *textTarget) pageBreak() {
	if !t.main {
		t.a.sink.InsertBreak(model.BreakPage)
		return
	}
	if err := t.a.nextPage(); err != nil {
		t.a.log.WithError(err).Debug("page break after cancellation")
	}
}
