package document

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/zone"
)

// Letter size, used when neither the document zone nor the print record
// gives a page size.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// placed is a top-level shape waiting for its page. base maps document
// coordinates to the coordinates of that page.
type placed struct {
	id    int
	shape *model.Shape
	base  geometry.Matrix
}

// assembly is the state of one Assemble call.
type assembly struct {
	ctx     context.Context
	doc     *Document
	res     *zone.Resolver
	sink    event.Sink
	tracker *zone.Tracker
	log     logrus.FieldLogger
	report  *Report

	root          *model.DocumentZone
	width, height float64
	page          int // open page, 0 when none
	lastPage      int
	byPage        map[int][]placed
}

// Assemble emits the document to sink. Damaged optional zones are
// skipped with a warning; an unresolvable document zone is fatal. When
// ctx is cancelled the open page and the document are closed and the
// context error is returned.
func (d *Document) Assemble(ctx context.Context, sink event.Sink) (*Report, error) {
	root, err := d.Root()
	if err != nil {
		return nil, err
	}

	a := &assembly{
		ctx:     ctx,
		doc:     d,
		res:     d.Resolver,
		sink:    sink,
		tracker: zone.NewTracker(),
		log:     d.log,
		root:    root,
		byPage:  make(map[int][]placed),
		report: &Report{
			Format:  d.Format.Name,
			Invalid: d.Dir.Invalid(),
		},
	}
	a.pageGeometry()
	a.placeShapes()

	sink.StartDocument(a.info())
	switch d.Format.Layout {
	case Flow:
		err = a.flow()
	default:
		err = a.paged()
	}
	a.closePage()
	sink.EndDocument()

	a.report.Decoded = a.res.Decodes()
	a.report.Failures = a.res.Failures()
	return a.report, err
}

func (a *assembly) pageGeometry() {
	a.width, a.height = a.root.PageWidth, a.root.PageHeight
	if (a.width == 0 || a.height == 0) && a.doc.Meta != nil && a.doc.Meta.Print != nil {
		p := a.doc.Meta.Print
		a.width, a.height = p.PaperWidth, p.PaperHeight
		if p.Landscape && a.width < a.height {
			a.width, a.height = a.height, a.width
		}
	}
	if a.width <= 0 || a.height <= 0 {
		a.width, a.height = defaultPageWidth, defaultPageHeight
	}
	a.lastPage = max(a.root.Pages, 1)
}

func (a *assembly) info() event.DocumentInfo {
	info := event.DocumentInfo{
		Format:     a.doc.Format.Name,
		Version:    int(a.doc.Header.Version),
		PageWidth:  a.width,
		PageHeight: a.height,
		Margins:    a.root.Margins,
		Pages:      a.lastPage,
	}
	if m := a.doc.Meta; m != nil {
		info.Labels = m.Labels
		if m.Print != nil {
			info.Landscape = m.Print.Landscape
			if info.Margins == [4]float64{} {
				info.Margins = m.Print.Margins
			}
		}
	}
	return info
}

// placeShapes resolves the top-level shapes and buckets them by page.
// Each id is placed once however often the list repeats it.
func (a *assembly) placeShapes() {
	listed := make(map[int]bool, len(a.root.Shapes))
	for _, id := range a.root.Shapes {
		if listed[id] {
			a.log.WithField("zone", id).Debug("shape listed twice")
			continue
		}
		listed[id] = true
		s, err := zone.ResolveAs[*model.Shape](a.res, id)
		if err != nil {
			a.log.WithField("zone", id).WithError(err).Warn("skipping shape")
			continue
		}
		page, dy := a.paginate(s, s.Bounds.Transform(s.Transform))
		a.byPage[page] = append(a.byPage[page], placed{id: id, shape: s, base: geometry.Translate(0, dy)})
		a.lastPage = max(a.lastPage, page)
	}
}

// paginate picks the page of a shape and the vertical shift into that
// page's coordinates. Shapes with an explicit page use page coordinates;
// the rest use document coordinates with pages stacked top to bottom. A
// shape running off the bottom of its page whose top is within the
// tolerance band of that page moves to the top of the next page.
func (a *assembly) paginate(s *model.Shape, world geometry.Rect) (int, float64) {
	h := a.height
	page, dy := s.Page, 0.0
	if page <= 0 {
		page = max(int(math.Floor(world.Min.Y/h))+1, 1)
		dy = -float64(page-1) * h
	}
	top, bottom := world.Min.Y+dy, world.Max.Y+dy
	if bottom > h && top >= h*(1-a.doc.opts.PageBreakTolerance) {
		page++
		dy -= top
	}
	return page, dy
}

func (a *assembly) flow() error {
	if err := a.openPage(1); err != nil {
		return err
	}
	if a.root.DefaultPara != 0 {
		a.setParagraph(a.root.DefaultPara)
	}
	if a.root.MainText != 0 {
		a.emitText(a.root.MainText, a.root.SoftBreaks, true)
	}
	for a.page < a.lastPage {
		if err := a.nextPage(); err != nil {
			return err
		}
	}
	return a.ctx.Err()
}

func (a *assembly) paged() error {
	for p := 1; p <= a.lastPage; p++ {
		if err := a.openPage(p); err != nil {
			return err
		}
		a.closePage()
	}
	return nil
}

// openPage opens page n and emits the shapes anchored to it
func (a *assembly) openPage(n int) error {
	if err := a.ctx.Err(); err != nil {
		return err
	}
	a.closePage()
	a.sink.OpenPage(n, a.width, a.height)
	a.page = n
	a.report.Pages = max(a.report.Pages, n)

	shapes := a.byPage[n]
	delete(a.byPage, n)
	for _, p := range shapes {
		if err := a.ctx.Err(); err != nil {
			return err
		}
		if a.emitShape(p.id, p.shape, p.base) {
			a.report.Shapes++
		}
	}
	return nil
}

func (a *assembly) nextPage() error {
	return a.openPage(a.page + 1)
}

func (a *assembly) closePage() {
	if a.page != 0 {
		a.sink.ClosePage()
		a.page = 0
	}
}

// emitShape emits one shape under the parent transform base. A shape
// goes out once per run, however many groups or lists reference it; it
// reports whether this call emitted it.
func (a *assembly) emitShape(id int, s *model.Shape, base geometry.Matrix) bool {
	m := s.Transform.Multiply(base)
	log := a.log.WithFields(logrus.Fields{"zone": id, "kind": s.Kind.String()})
	if !a.tracker.MarkSent(id) {
		log.Debug("shape already emitted")
		return false
	}

	switch s.Kind {
	case model.ShapeGroup:
		if !a.tracker.Enter(id) {
			log.Debug("group already open, skipping")
			return false
		}
		defer a.tracker.Leave(id)
		a.sink.OpenGroup(event.Position{Page: a.page, Box: s.Bounds.Transform(m)})
		for _, cid := range s.Members {
			child, err := zone.ResolveAs[*model.Shape](a.res, cid)
			if err != nil {
				log.WithError(err).Warn("skipping group member")
				continue
			}
			a.emitShape(cid, child, m)
		}
		a.sink.CloseGroup()

	case model.ShapeLine, model.ShapePath:
		var p geometry.Path
		if s.Kind == model.ShapeLine {
			from, to := s.Box.Min, s.Box.Max
			if s.Flags&model.ShapeLineReversed != 0 {
				from = geometry.Point{X: s.Box.Min.X, Y: s.Box.Max.Y}
				to = geometry.Point{X: s.Box.Max.X, Y: s.Box.Min.Y}
			}
			p = geometry.Line(from, to)
		} else {
			p = geometry.AssemblePath(s.Nodes, s.Box.Min)
		}
		p = p.Transform(m)
		bounds := p.Bounds()
		a.sink.InsertShape(event.Position{Page: a.page, Box: bounds}, a.style(s.StyleRef),
			event.Geometry{Kind: s.Kind, Box: bounds, Path: &p})

	default:
		pos := a.rotated(s.Box, m)
		switch s.Kind {
		case model.ShapeRect, model.ShapeEllipse:
			a.sink.InsertShape(pos, a.style(s.StyleRef), event.Geometry{Kind: s.Kind, Box: pos.Box, Radius: s.Radius})
		case model.ShapePicture:
			pic, err := zone.ResolveAs[*model.Picture](a.res, s.Ref)
			if err != nil {
				log.WithError(err).Warn("skipping picture")
				return false
			}
			a.sink.InsertPicture(pos, pic.Bitmap)
		case model.ShapeText:
			a.sink.OpenTextBox(pos)
			a.emitText(s.Ref, nil, false)
			a.sink.CloseTextBox()
		case model.ShapeTable:
			a.emitTable(s.Ref, pos)
		}
	}
	return true
}

// rotated splits the rotation off m so box can be emitted axis-aligned
// with a rotation about its center.
func (a *assembly) rotated(box geometry.Rect, m geometry.Matrix) event.Position {
	pivot := m.Transform(box.Center())
	deg, residual := geometry.Decompose(m, pivot)
	return event.Position{Page: a.page, Box: box.Transform(residual), Rotation: deg}
}

func (a *assembly) emitTable(id int, pos event.Position) {
	log := a.log.WithField("zone", id)
	if !a.tracker.Enter(id) {
		log.Debug("table already open, skipping")
		return
	}
	defer a.tracker.Leave(id)

	t, err := zone.ResolveAs[*model.Table](a.res, id)
	if err != nil {
		log.WithError(err).Warn("skipping table")
		return
	}
	a.sink.OpenTable(pos, event.TableInfo{Rows: t.Rows, Cols: t.Cols, ColWidths: t.ColWidths})
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			a.sink.OpenCell(r, c)
			if ref := t.Cell(r, c); ref != 0 {
				// A text zone shared by several cells fills the first only
				if a.tracker.MarkSent(ref) {
					a.emitText(ref, nil, false)
				} else {
					log.WithField("cell", ref).Debug("cell text already emitted")
				}
			}
			a.sink.CloseCell()
		}
	}
	a.sink.CloseTable()
}

// emitNote emits a footnote or endnote body once
func (a *assembly) emitNote(id int) {
	log := a.log.WithField("zone", id)
	if !a.tracker.MarkSent(id) {
		log.Debug("note already emitted")
		return
	}
	note, err := zone.ResolveAs[*model.Note](a.res, id)
	if err != nil {
		log.WithError(err).Warn("skipping note")
		return
	}
	a.sink.OpenNote(note.Kind)
	a.emitText(note.TextRef, nil, false)
	a.sink.CloseNote()
}

func (a *assembly) style(id int) event.Style {
	if id == 0 {
		return event.DefaultStyle
	}
	gs, err := zone.ResolveAs[*model.GraphicStyle](a.res, id)
	if err != nil {
		a.log.WithField("zone", id).WithError(err).Warn("using default style")
		return event.DefaultStyle
	}
	return event.Style{
		Line:      a.color(gs.LineRef, model.Black),
		Fill:      a.color(gs.FillRef, event.DefaultStyle.Fill),
		LineWidth: gs.LineWidth,
		NoLine:    gs.Flags&model.NoLine != 0,
		NoFill:    gs.Flags&model.NoFill != 0,
		Pattern:   gs.Pattern,
	}
}

func (a *assembly) color(id int, fallback model.Color) model.Color {
	if id == 0 {
		return fallback
	}
	c, err := zone.ResolveAs[*model.ColorDef](a.res, id)
	if err != nil {
		a.log.WithField("zone", id).WithError(err).Warn("color unavailable")
		return fallback
	}
	return c.Value()
}

func (a *assembly) setParagraph(id int) {
	ps, err := zone.ResolveAs[*model.ParaStyle](a.res, id)
	if err != nil {
		a.log.WithField("zone", id).WithError(err).Warn("paragraph style unavailable")
		return
	}
	a.sink.SetParagraphStyle(*ps)
}

func (a *assembly) setCharacter(id int) {
	cs, err := zone.ResolveAs[*model.CharStyle](a.res, id)
	if err != nil {
		a.log.WithField("zone", id).WithError(err).Warn("character style unavailable")
		return
	}
	style := event.CharStyle{
		Size:  cs.Size,
		Flags: cs.Flags,
		Color: a.color(cs.ColorRef, model.Black),
	}
	if cs.FontRef != 0 {
		if f, err := zone.ResolveAs[*model.Font](a.res, cs.FontRef); err == nil {
			style.Font = f.Name
		} else {
			a.log.WithField("zone", cs.FontRef).WithError(err).Warn("font unavailable")
		}
	}
	a.sink.SetCharacterStyle(style)
}
