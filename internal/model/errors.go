package model

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every decoding layer. Wrap these with %w so
// callers can classify failures with errors.Is.
var (
	// ErrBounds reports a read or seek past the end of a source or window.
	ErrBounds = errors.New("read past end of source")

	// ErrMalformed reports a record whose declared sizes or fields are
	// inconsistent with each other.
	ErrMalformed = errors.New("malformed record")

	// ErrUnresolved reports a zone reference that cannot be followed.
	ErrUnresolved = errors.New("unresolved reference")

	// ErrUnsupported reports an unknown record type or compression scheme.
	ErrUnsupported = errors.New("unsupported encoding")

	// ErrTruncated reports a stream that ended in the middle of a decode.
	ErrTruncated = errors.New("truncated stream")
)

// Refinements of ErrUnresolved.
var (
	ErrCycle        = fmt.Errorf("%w: reference cycle, not yet available", ErrUnresolved)
	ErrDepth        = fmt.Errorf("%w: resolution depth exceeded", ErrUnresolved)
	ErrTypeMismatch = fmt.Errorf("%w: zone resolved as another type", ErrUnresolved)
)

// RecordError locates a failure inside the input.
type RecordError struct {
	Op     string // what was being decoded, e.g. "decode shape"
	Zone   int    // zone id, 0 when not zone-specific
	Offset int64  // absolute file offset, -1 when unknown
	Err    error
}

func (e *RecordError) Error() string {
	switch {
	case e.Zone > 0 && e.Offset >= 0:
		return fmt.Sprintf("%s (zone %d at 0x%x): %v", e.Op, e.Zone, e.Offset, e.Err)
	case e.Zone > 0:
		return fmt.Sprintf("%s (zone %d): %v", e.Op, e.Zone, e.Err)
	case e.Offset >= 0:
		return fmt.Sprintf("%s (at 0x%x): %v", e.Op, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
