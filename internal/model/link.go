package model

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Lookup resolves zone ids to decoded entities. The zone resolver is the
// only implementation; entities see it through this interface while they
// link.
type Lookup interface {
	Resolve(id int) (any, error)
	Log() logrus.FieldLogger
}

// Linker is implemented by entities that derive values from other zones.
// Link runs once, right after decoding, while the entity's own id is
// marked as being resolved, so a reference back to it fails with ErrCycle
// instead of recursing.
type Linker interface {
	Link(l Lookup) error
}

// As resolves id through l and asserts the entity type.
func As[T any](l Lookup, id int) (T, error) {
	var zero T
	v, err := l.Resolve(id)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("zone %d is %T, want %T: %w", id, v, zero, ErrTypeMismatch)
	}
	return t, nil
}
