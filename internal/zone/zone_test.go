package zone

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	zbin "github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/model"
)

const tagChain = 0x7F

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// chainLink references one other zone and records what resolving it gave.
type chainLink struct {
	next    int
	target  any
	linkErr error
}

func (c *chainLink) Link(l model.Lookup) error {
	if c.next == 0 {
		return nil
	}
	c.target, c.linkErr = l.Resolve(c.next)
	return nil
}

type countingRegistry struct {
	*Registry
	calls map[int]int
}

func newCountingRegistry() *countingRegistry {
	cr := &countingRegistry{Registry: NewRegistry(), calls: make(map[int]int)}
	cr.Register(tagChain, "chain", func(e *Entry, rd *zbin.Reader) (any, error) {
		cr.calls[e.ID]++
		next := rd.U16()
		if err := rd.Err(); err != nil {
			return nil, err
		}
		return &chainLink{next: int(next)}, nil
	})
	return cr
}

// buildChain writes n chain zones where zone i points at next(i).
func buildChain(t *testing.T, n int, next func(i int) int) (*zbin.Reader, []zbin.DirEntry) {
	t.Helper()
	var out bytes.Buffer
	w := zbin.NewWriter(&out, binary.BigEndian, "ZDRW", 10000)
	for i := 1; i <= n; i++ {
		w.AddZone(tagChain, w.NewRecord().PutU16(uint16(next(i))).Bytes())
	}
	w.SetRoot(1)
	if err := w.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	return openContainer(t, out.Bytes())
}

func openContainer(t *testing.T, data []byte) (*zbin.Reader, []zbin.DirEntry) {
	t.Helper()
	src := zbin.NewReader(bytes.NewReader(data), int64(len(data)))
	header, err := src.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	listing, err := src.ReadDirectory(int64(header.DirectoryOffset))
	if err != nil {
		t.Fatalf("ReadDirectory failed: %v", err)
	}
	return src, listing
}

func TestDirectoryOverlap(t *testing.T) {
	var out bytes.Buffer
	w := zbin.NewWriter(&out, binary.LittleEndian, "ZDRW", 10000)
	first := w.AddZone(tagChain, []byte{0, 0})
	second := w.AddZone(tagChain, []byte{0, 0})
	third := w.AddZone(tagChain, []byte{0, 0})
	// second now starts inside first
	w.Override(second, zbin.DirEntry{Length: 6, Offset: zbin.HeaderSize + 2})
	if err := w.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	src, listing := openContainer(t, out.Bytes())
	dir, err := BuildDirectory(src, listing, false, quietLogger())
	if err != nil {
		t.Fatalf("BuildDirectory failed: %v", err)
	}

	if dir.Zone(int(first)) != nil {
		t.Errorf("zone %d survived overlap", first)
	}
	if dir.Zone(int(second)) != nil {
		t.Errorf("zone %d survived overlap", second)
	}
	e := dir.Zone(int(third))
	if e == nil {
		t.Fatalf("zone %d invalidated, want valid", third)
	}
	if e.Tag != tagChain {
		t.Errorf("Tag = 0x%x, want 0x%x", e.Tag, tagChain)
	}
	if got := len(dir.Invalid()); got != 2 {
		t.Errorf("Invalid() has %d entries, want 2", got)
	}

	// No two valid zones share a byte
	valid := dir.Entries()
	for i, a := range valid {
		for _, b := range valid[i+1:] {
			if a.Begin < b.End && b.Begin < a.End {
				t.Errorf("zones %d and %d overlap", a.ID, b.ID)
			}
		}
	}
}

func TestDirectoryBounds(t *testing.T) {
	var out bytes.Buffer
	w := zbin.NewWriter(&out, binary.LittleEndian, "ZDRW", 10000)
	good := w.AddZone(tagChain, []byte{0, 0})
	past := w.AddZone(tagChain, []byte{0, 0})
	short := w.AddZone(tagChain, []byte{0, 0})
	free := w.Reserve()
	w.Override(past, zbin.DirEntry{Length: 0x1000, Offset: 0x20})
	w.Override(short, zbin.DirEntry{Length: 2, Offset: 0x1A + 6})
	if err := w.Write(); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	src, listing := openContainer(t, out.Bytes())

	dir, err := BuildDirectory(src, listing, false, quietLogger())
	if err != nil {
		t.Fatalf("BuildDirectory failed: %v", err)
	}
	if dir.Zone(int(good)) == nil {
		t.Errorf("zone %d invalidated", good)
	}
	if dir.Zone(int(past)) != nil {
		t.Errorf("zone past end accepted")
	}
	if dir.Zone(int(short)) != nil {
		t.Errorf("zone shorter than header accepted")
	}
	if dir.Zone(int(free)) != nil {
		t.Errorf("free slot returned an entry")
	}
	if dir.Zone(0) != nil || dir.Zone(99) != nil {
		t.Errorf("out-of-range ids returned entries")
	}

	_, err = BuildDirectory(src, listing, true, quietLogger())
	if !errors.Is(err, model.ErrMalformed) {
		t.Errorf("strict BuildDirectory error = %v, want ErrMalformed", err)
	}
	var rerr *model.RecordError
	if !errors.As(err, &rerr) || rerr.Zone != int(past) {
		t.Errorf("strict error = %v, want RecordError for zone %d", err, past)
	}
}

// TestResolveCycles resolves rings of every length from 1 to 50: each zone
// is decoded exactly once and the ring closes with ErrCycle.
func TestResolveCycles(t *testing.T) {
	for n := 1; n <= 50; n++ {
		src, listing := buildChain(t, n, func(i int) int { return i%n + 1 })
		dir, err := BuildDirectory(src, listing, false, quietLogger())
		if err != nil {
			t.Fatalf("n=%d: BuildDirectory failed: %v", n, err)
		}
		reg := newCountingRegistry()
		r := NewResolver(dir, reg.Registry, WithLogger(quietLogger()))

		v, err := r.Resolve(1)
		if err != nil {
			t.Fatalf("n=%d: Resolve(1) failed: %v", n, err)
		}

		// Walk to the last link and check the back reference failed
		link := v.(*chainLink)
		for i := 1; i < n; i++ {
			link = link.target.(*chainLink)
		}
		if !errors.Is(link.linkErr, model.ErrCycle) {
			t.Errorf("n=%d: closing reference error = %v, want ErrCycle", n, link.linkErr)
		}

		for i := 1; i <= n; i++ {
			if _, err := r.Resolve(i); err != nil {
				t.Errorf("n=%d: Resolve(%d) failed: %v", n, i, err)
			}
			if reg.calls[i] != 1 {
				t.Errorf("n=%d: zone %d decoded %d times, want 1", n, i, reg.calls[i])
			}
			if !dir.Zone(i).Parsed() {
				t.Errorf("n=%d: zone %d not marked parsed", n, i)
			}
		}
		if r.Decodes() != n {
			t.Errorf("n=%d: Decodes = %d, want %d", n, r.Decodes(), n)
		}
	}
}

func TestResolveDepthLimit(t *testing.T) {
	const n = 20
	src, listing := buildChain(t, n, func(i int) int {
		if i == n {
			return 0
		}
		return i + 1
	})
	dir, err := BuildDirectory(src, listing, false, quietLogger())
	if err != nil {
		t.Fatalf("BuildDirectory failed: %v", err)
	}
	r := NewResolver(dir, newCountingRegistry().Registry, WithMaxDepth(10), WithLogger(quietLogger()))

	v, err := r.Resolve(1)
	if err != nil {
		t.Fatalf("Resolve(1) failed: %v", err)
	}
	link := v.(*chainLink)
	for i := 1; i < 10; i++ {
		link = link.target.(*chainLink)
	}
	if !errors.Is(link.linkErr, model.ErrDepth) {
		t.Errorf("reference at depth 10 error = %v, want ErrDepth", link.linkErr)
	}
	if !errors.Is(link.linkErr, model.ErrUnresolved) {
		t.Errorf("ErrDepth does not wrap ErrUnresolved")
	}

	// The zone cut off by the limit resolves from a shallow start
	if _, err := r.Resolve(11); err != nil {
		t.Errorf("Resolve(11) failed: %v", err)
	}
}

func TestResolveAsMismatch(t *testing.T) {
	src, listing := buildChain(t, 1, func(int) int { return 0 })
	dir, err := BuildDirectory(src, listing, false, quietLogger())
	if err != nil {
		t.Fatalf("BuildDirectory failed: %v", err)
	}
	reg := newCountingRegistry()
	r := NewResolver(dir, reg.Registry, WithLogger(quietLogger()))

	if _, err := ResolveAs[*model.Font](r, 1); !errors.Is(err, model.ErrTypeMismatch) {
		t.Errorf("ResolveAs[*Font] error = %v, want ErrTypeMismatch", err)
	}
	if _, err := ResolveAs[*chainLink](r, 1); err != nil {
		t.Errorf("ResolveAs[*chainLink] failed after mismatch: %v", err)
	}
	if reg.calls[1] != 1 {
		t.Errorf("zone decoded %d times, want 1", reg.calls[1])
	}
	if _, err := r.Resolve(2); !errors.Is(err, model.ErrUnresolved) {
		t.Errorf("Resolve(absent) error = %v, want ErrUnresolved", err)
	}
}

func TestResolveUnknownTag(t *testing.T) {
	src, listing := buildChain(t, 1, func(int) int { return 0 })
	dir, err := BuildDirectory(src, listing, false, quietLogger())
	if err != nil {
		t.Fatalf("BuildDirectory failed: %v", err)
	}
	r := NewResolver(dir, NewRegistry(), WithLogger(quietLogger()))
	if _, err := r.Resolve(1); !errors.Is(err, model.ErrUnsupported) {
		t.Errorf("Resolve error = %v, want ErrUnsupported", err)
	}
	if _, ok := r.Failures()[1]; !ok {
		t.Errorf("failure not memoized")
	}
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	if !tr.Enter(5) {
		t.Fatalf("Enter(5) = false on empty tracker")
	}
	if tr.Enter(5) {
		t.Errorf("re-entrant Enter(5) = true, want false")
	}
	tr.Leave(5)
	if tr.Active(5) {
		t.Errorf("Active(5) after Leave")
	}
	if !tr.Enter(5) {
		t.Errorf("Enter(5) after Leave = false")
	}

	if !tr.MarkSent(300) {
		t.Errorf("first MarkSent(300) = false")
	}
	if tr.MarkSent(300) {
		t.Errorf("second MarkSent(300) = true")
	}
	if !tr.Sent(300) || tr.Sent(301) {
		t.Errorf("Sent reports wrong ids")
	}
	if tr.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1", tr.SentCount())
	}
}
