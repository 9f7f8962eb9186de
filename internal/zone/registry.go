package zone

import (
	"fmt"

	"github.com/dyuri/zoneconv/internal/binary"
)

// DecodeFunc builds an entity from a zone payload. Decoders are pure: they
// read only from rd and never resolve other zones; references are kept as
// ids and followed later through model.Linker.
type DecodeFunc func(e *Entry, rd *binary.Reader) (any, error)

type decoder struct {
	name string
	fn   DecodeFunc
}

// Registry maps zone type tags to decoders for one format.
type Registry struct {
	decoders map[uint16]decoder
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[uint16]decoder)}
}

// Register binds tag to fn, replacing any previous decoder
func (r *Registry) Register(tag uint16, name string, fn DecodeFunc) {
	r.decoders[tag] = decoder{name: name, fn: fn}
}

// Lookup returns the decoder for tag
func (r *Registry) Lookup(tag uint16) (DecodeFunc, bool) {
	d, ok := r.decoders[tag]
	return d.fn, ok
}

// Name returns a display name for tag
func (r *Registry) Name(tag uint16) string {
	if d, ok := r.decoders[tag]; ok {
		return d.name
	}
	return fmt.Sprintf("tag 0x%04x", tag)
}
