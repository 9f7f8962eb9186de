// Package document drives the decoding of one container: header,
// directory, auxiliary metadata and the root document zone, emitting the
// content to an event.Sink.
package document

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/zone"
)

// Document is an opened container with a validated directory. Zones are
// decoded lazily through Resolver.
type Document struct {
	Header   *binary.FileHeader
	Format   *Format
	Dir      *zone.Directory
	Resolver *zone.Resolver
	Meta     *model.Metadata
	RunID    string

	src  *binary.Reader
	opts Options
	log  logrus.FieldLogger
}

// Report summarizes one assembly run
type Report struct {
	Format      string
	Pages       int
	Shapes      int // top-level shapes emitted
	Decoded     int // zones decoded
	Invalid     []*zone.Entry
	Failures    map[int]error
	MergeErrors []error
}

// Open reads the header and directory of src. Header, format and
// directory failures are fatal; a damaged auxiliary container is logged
// and decoding continues without it.
func Open(src io.ReaderAt, size int64, opts ...Option) (*Document, error) {
	o := buildOptions(opts)
	runID := uuid.NewString()
	log := o.Logger.WithField("run", runID)

	rd := binary.NewReader(src, size)
	header, err := rd.ReadHeader()
	if err != nil {
		return nil, &model.RecordError{Op: "read header", Offset: 0, Err: err}
	}
	format, ok := FormatFor(header.Signature)
	if !ok {
		return nil, &model.RecordError{
			Op:     "identify format",
			Offset: 2,
			Err:    fmt.Errorf("signature %q: %w", header.Signature, model.ErrUnsupported),
		}
	}
	codePage := int(header.CodePage)
	if codePage == 0 {
		codePage = format.CodePage
	}
	if o.CodePage != 0 {
		codePage = o.CodePage
	}
	rd.SetCodePage(codePage)
	log = log.WithField("format", format.Signature)

	listing, err := rd.ReadDirectory(int64(header.DirectoryOffset))
	if err != nil {
		return nil, &model.RecordError{Op: "read directory", Offset: int64(header.DirectoryOffset), Err: err}
	}
	dir, err := zone.BuildDirectory(rd, listing, o.Strict, log)
	if err != nil {
		return nil, err
	}
	log.WithField("zones", len(dir.Entries())).Debug("directory loaded")

	d := &Document{
		Header: header,
		Format: format,
		Dir:    dir,
		Resolver: zone.NewResolver(dir, format.Registry,
			zone.WithMaxDepth(o.MaxDepth),
			zone.WithLogger(log)),
		RunID: runID,
		src:   rd,
		opts:  o,
		log:   log,
	}

	if o.aux != nil {
		meta, err := ReadAux(o.aux, o.auxSize, codePage, log)
		if err != nil {
			log.WithError(err).Warn("auxiliary container damaged, keeping records read so far")
		}
		d.Meta = meta
	}
	return d, nil
}

// Decode opens src and assembles it into sink
func Decode(ctx context.Context, src io.ReaderAt, size int64, sink event.Sink, opts ...Option) (*Report, error) {
	d, err := Open(src, size, opts...)
	if err != nil {
		return nil, err
	}
	return d.Assemble(ctx, sink)
}

// Log returns the run logger
func (d *Document) Log() logrus.FieldLogger {
	return d.log
}

// DecodeString converts text bytes using the document codepage
func (d *Document) DecodeString(b []byte) string {
	return d.src.DecodeString(b)
}

// Root resolves the document zone named by the header
func (d *Document) Root() (*model.DocumentZone, error) {
	id := int(d.Header.RootZone)
	root, err := zone.ResolveAs[*model.DocumentZone](d.Resolver, id)
	if err != nil {
		return nil, &model.RecordError{Op: "resolve document zone", Zone: id, Offset: -1, Err: err}
	}
	return root, nil
}

// ZonesByTag returns the valid entries with the given tag in id order
func (d *Document) ZonesByTag(tag uint16) []*zone.Entry {
	var out []*zone.Entry
	for _, e := range d.Dir.Entries() {
		if e.Tag == tag {
			out = append(out, e)
		}
	}
	return out
}

// Pictures decodes every picture zone; undecodable ones are left out.
func (d *Document) Pictures() map[int]*model.Picture {
	out := make(map[int]*model.Picture)
	for _, e := range d.ZonesByTag(model.TagPicture) {
		pic, err := zone.ResolveAs[*model.Picture](d.Resolver, e.ID)
		if err != nil {
			continue
		}
		out[e.ID] = pic
	}
	return out
}

// DecodeAll resolves every valid zone and returns the ids that failed,
// sorted.
func (d *Document) DecodeAll() []int {
	for _, e := range d.Dir.Entries() {
		_, _ = d.Resolver.Resolve(e.ID)
	}
	failed := make([]int, 0, len(d.Resolver.Failures()))
	for id := range d.Resolver.Failures() {
		failed = append(failed, id)
	}
	sort.Ints(failed)
	return failed
}
