package zone

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"

	"github.com/dyuri/zoneconv/internal/model"
)

// DefaultMaxDepth bounds nested resolution chains.
const DefaultMaxDepth = 64

// Resolver turns zone ids into entities. Each id is decoded at most once;
// the result (or the failure) is memoized for the life of the resolver.
type Resolver struct {
	dir      *Directory
	registry *Registry
	log      logrus.FieldLogger
	maxDepth int

	cache     map[int]any
	failed    map[int]error
	resolving *bitset.BitSet // ids whose decode or link is on the stack
	depth     int
	decodes   int
}

// Option configures the resolver
type Option func(*Resolver)

// WithMaxDepth sets the maximum resolution depth (default: 64)
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// WithLogger sets the diagnostics logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// NewResolver creates a resolver over dir using the decoders in registry.
func NewResolver(dir *Directory, registry *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		dir:       dir,
		registry:  registry,
		log:       logrus.StandardLogger(),
		maxDepth:  DefaultMaxDepth,
		cache:     make(map[int]any),
		failed:    make(map[int]error),
		resolving: bitset.New(uint(dir.Len() + 1)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Log returns the resolver's logger
func (r *Resolver) Log() logrus.FieldLogger {
	return r.log
}

// Directory returns the directory the resolver reads from
func (r *Resolver) Directory() *Directory {
	return r.dir
}

// Decodes returns how many zones have been decoded so far
func (r *Resolver) Decodes() int {
	return r.decodes
}

// Failures returns the memoized decode failures by zone id
func (r *Resolver) Failures() map[int]error {
	return r.failed
}

// Resolve returns the entity for id, decoding and linking it on first use.
// A reference to an id that is still being resolved fails with ErrCycle;
// a chain deeper than the configured limit fails with ErrDepth. Neither is
// memoized, so the zone can still be resolved from another path.
func (r *Resolver) Resolve(id int) (any, error) {
	if v, ok := r.cache[id]; ok {
		return v, nil
	}
	if err, ok := r.failed[id]; ok {
		return nil, err
	}
	e := r.dir.Zone(id)
	if e == nil {
		return nil, fmt.Errorf("zone %d: %w", id, model.ErrUnresolved)
	}
	if r.resolving.Test(uint(id)) {
		return nil, fmt.Errorf("zone %d: %w", id, model.ErrCycle)
	}
	if r.depth >= r.maxDepth {
		return nil, fmt.Errorf("zone %d at depth %d: %w", id, r.depth, model.ErrDepth)
	}

	r.resolving.Set(uint(id))
	r.depth++
	defer func() {
		r.depth--
		r.resolving.Clear(uint(id))
	}()

	v, err := r.decode(e)
	if err != nil {
		r.failed[id] = err
		r.log.WithFields(logrus.Fields{
			"zone": id,
			"tag":  e.Tag,
		}).WithError(err).Warn("zone decode failed")
		return nil, err
	}
	r.cache[id] = v
	return v, nil
}

func (r *Resolver) decode(e *Entry) (any, error) {
	fn, ok := r.registry.Lookup(e.Tag)
	if !ok {
		return nil, &model.RecordError{
			Op:     "decode zone",
			Zone:   e.ID,
			Offset: e.Begin,
			Err:    fmt.Errorf("tag 0x%04x: %w", e.Tag, model.ErrUnsupported),
		}
	}
	rd, err := r.dir.Payload(e)
	if err != nil {
		return nil, err
	}

	r.decodes++
	e.parsed = true
	r.log.WithFields(logrus.Fields{"zone": e.ID, "tag": e.Tag}).Debug("decoding " + r.registry.Name(e.Tag))

	v, err := fn(e, rd)
	if err != nil {
		return nil, &model.RecordError{
			Op:     "decode " + r.registry.Name(e.Tag),
			Zone:   e.ID,
			Offset: e.Begin,
			Err:    err,
		}
	}
	if l, ok := v.(model.Linker); ok {
		if err := l.Link(r); err != nil {
			return nil, &model.RecordError{
				Op:     "link " + r.registry.Name(e.Tag),
				Zone:   e.ID,
				Offset: e.Begin,
				Err:    err,
			}
		}
	}
	return v, nil
}

// ResolveAs resolves id and asserts its type. Resolving an id as the wrong
// type is logged and reported as ErrTypeMismatch; it never discards the
// memoized entity.
func ResolveAs[T any](r *Resolver, id int) (T, error) {
	v, err := model.As[T](r, id)
	if errors.Is(err, model.ErrTypeMismatch) {
		r.log.WithField("zone", id).Warn(err.Error())
	}
	return v, err
}
