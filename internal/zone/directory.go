package zone

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/model"
)

// headerSize is the tag + version prefix every zone starts with.
const headerSize = 4

// Entry is one zone of the directory: an id bound to a byte range of the
// source. Entries never change after BuildDirectory except for the parsed
// flag, which the resolver sets once.
type Entry struct {
	ID      int
	Begin   int64 // absolute offset of the zone header
	End     int64 // exclusive
	Tag     uint16
	Version uint16
	Flags   uint32

	// Reason is set when the entry was invalidated
	Reason string

	parsed bool
}

// Len returns the byte length of the zone including its header
func (e *Entry) Len() int64 {
	return e.End - e.Begin
}

// Parsed reports whether the zone has been decoded
func (e *Entry) Parsed() bool {
	return e.parsed
}

// Valid reports whether the entry survived directory checks
func (e *Entry) Valid() bool {
	return e.Reason == ""
}

func (e *Entry) invalidate(reason string) {
	if e.Reason == "" {
		e.Reason = reason
	}
}

// Directory maps zone ids to byte ranges of one source.
type Directory struct {
	src     *binary.Reader
	entries []*Entry // index id-1; nil for free or empty slots
}

// BuildDirectory validates a raw listing against src. Entries that leave
// the source, are too short to hold a zone header, or share any byte with
// another entry are invalidated (both sides of an overlap). In strict mode
// any invalidation fails the whole directory with ErrMalformed.
func BuildDirectory(src *binary.Reader, listing []binary.DirEntry, strict bool, log logrus.FieldLogger) (*Directory, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	d := &Directory{src: src, entries: make([]*Entry, len(listing))}

	var placed []*Entry
	for i, raw := range listing {
		if raw.Flags&binary.FlagFree != 0 || raw.Length == 0 {
			continue
		}
		e := &Entry{
			ID:    i + 1,
			Begin: int64(raw.Offset),
			End:   int64(raw.Offset) + int64(raw.Length),
			Flags: raw.Flags,
		}
		d.entries[i] = e

		switch {
		case !src.CheckPosition(e.Begin) || !src.CheckPosition(e.End):
			e.invalidate(fmt.Sprintf("range 0x%x-0x%x outside source of %d bytes", e.Begin, e.End, src.Size()))
		case e.Len() < headerSize:
			e.invalidate(fmt.Sprintf("length %d shorter than zone header", e.Len()))
		default:
			placed = append(placed, e)
		}
	}

	markOverlaps(placed)

	for _, e := range d.entries {
		if e == nil || !e.Valid() {
			continue
		}
		hdr, err := src.Section(e.Begin, headerSize)
		if err != nil {
			e.invalidate(err.Error())
			continue
		}
		e.Tag = hdr.U16()
		e.Version = hdr.U16()
	}

	invalid := d.Invalid()
	for _, e := range invalid {
		log.WithFields(logrus.Fields{
			"zone":   e.ID,
			"offset": e.Begin,
		}).Warn("invalid zone: " + e.Reason)
	}
	if strict && len(invalid) > 0 {
		return nil, &model.RecordError{
			Op:     "build directory",
			Zone:   invalid[0].ID,
			Offset: invalid[0].Begin,
			Err:    fmt.Errorf("%d invalid zones: %w", len(invalid), model.ErrMalformed),
		}
	}
	return d, nil
}

// markOverlaps invalidates every pair of entries sharing a byte. Entries
// are swept in begin order; active holds those whose range is still open.
func markOverlaps(entries []*Entry) {
	sorted := make([]*Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Begin < sorted[j].Begin
	})

	var active []*Entry
	for _, e := range sorted {
		open := active[:0]
		for _, a := range active {
			if a.End > e.Begin {
				open = append(open, a)
			}
		}
		active = open
		for _, a := range active {
			a.invalidate(fmt.Sprintf("overlaps zone %d", e.ID))
			e.invalidate(fmt.Sprintf("overlaps zone %d", a.ID))
		}
		active = append(active, e)
	}
}

// Len returns the number of directory slots
func (d *Directory) Len() int {
	return len(d.entries)
}

// Zone returns the valid entry for id, or nil
func (d *Directory) Zone(id int) *Entry {
	if id < 1 || id > len(d.entries) {
		return nil
	}
	e := d.entries[id-1]
	if e == nil || !e.Valid() {
		return nil
	}
	return e
}

// Entries returns the valid entries in id order
func (d *Directory) Entries() []*Entry {
	var out []*Entry
	for _, e := range d.entries {
		if e != nil && e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

// Invalid returns the invalidated entries in id order
func (d *Directory) Invalid() []*Entry {
	var out []*Entry
	for _, e := range d.entries {
		if e != nil && !e.Valid() {
			out = append(out, e)
		}
	}
	return out
}

// Payload returns a reader over the zone body after its header
func (d *Directory) Payload(e *Entry) (*binary.Reader, error) {
	rd, err := d.src.Section(e.Begin+headerSize, e.Len()-headerSize)
	if err != nil {
		return nil, fmt.Errorf("zone %d payload: %w", e.ID, err)
	}
	return rd, nil
}

// Raw returns the zone bytes including the header
func (d *Directory) Raw(e *Entry) ([]byte, error) {
	rd, err := d.src.Section(e.Begin, e.Len())
	if err != nil {
		return nil, fmt.Errorf("zone %d: %w", e.ID, err)
	}
	return rd.Read(int(e.Len()))
}
