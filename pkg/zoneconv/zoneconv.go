// Package zoneconv decodes zone-structured document containers.
//
// This package can be used as a library to decode word-processor, drawing
// and presentation containers into a stream of document events, or to
// convert them directly to a text dump or an HTML preview.
//
// Example usage:
//
//	f, _ := os.Open("letter.zwp")
//	defer f.Close()
//	stat, _ := f.Stat()
//
//	out, _ := os.Create("letter.html")
//	defer out.Close()
//	if _, err := zoneconv.WriteHTML(ctx, out, f, stat.Size()); err != nil {
//	    log.Fatal(err)
//	}
package zoneconv

import (
	"context"
	"errors"
	"io"

	"github.com/dyuri/zoneconv/internal/document"
	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/htmlsink"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/text"
)

// Re-exported decoding types
type (
	Sink         = event.Sink
	Recorder     = event.Recorder
	Option       = document.Option
	Report       = document.Report
	DocumentInfo = event.DocumentInfo
)

// Decoding options
var (
	WithStrict             = document.WithStrict
	WithMaxDepth           = document.WithMaxDepth
	WithPageBreakTolerance = document.WithPageBreakTolerance
	WithCodePage           = document.WithCodePage
	WithLogger             = document.WithLogger
	WithAux                = document.WithAux
)

// Decode reads a container and emits its content to sink.
//
// The reader must support ReadAt for random access. The size parameter
// should be the total file size in bytes. Damaged optional records are
// skipped and reported in the returned Report; a bad header, directory or
// document zone fails with an *Error.
func Decode(ctx context.Context, r io.ReaderAt, size int64, sink Sink, opts ...Option) (*Report, error) {
	report, err := document.Decode(ctx, r, size, sink, opts...)
	return report, wrap(err)
}

// WriteText writes the container as a sectioned text dump.
//
// Example:
//
//	report, err := WriteText(ctx, os.Stdout, f, stat.Size())
func WriteText(ctx context.Context, w io.Writer, r io.ReaderAt, size int64, opts ...Option) (*Report, error) {
	tw := text.NewWriter(w)
	report, err := Decode(ctx, r, size, tw, opts...)
	if err != nil {
		return report, err
	}
	if err := tw.Err(); err != nil {
		return report, &Error{Code: "write", Message: "write text dump", Cause: err}
	}
	return report, nil
}

// WriteHTML writes the container as a standalone HTML page
func WriteHTML(ctx context.Context, w io.Writer, r io.ReaderAt, size int64, opts ...Option) (*Report, error) {
	hs := htmlsink.New()
	report, err := Decode(ctx, r, size, hs, opts...)
	if err != nil {
		return report, err
	}
	if err := hs.Render(w); err != nil {
		return report, &Error{Code: "write", Message: "write html", Cause: err}
	}
	return report, nil
}

// Signatures lists the container signatures that can be decoded
func Signatures() []string {
	return document.Signatures()
}

// Common errors
var (
	ErrInvalidHeader     = &Error{Code: "invalid_header", Message: "invalid container header"}
	ErrUnsupportedFormat = &Error{Code: "unsupported_format", Message: "unsupported container format"}
	ErrInvalidFormat     = &Error{Code: "invalid_format", Message: "invalid file format"}
	ErrCancelled         = &Error{Code: "cancelled", Message: "decoding cancelled"}
)

// Error represents a zoneconv error
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is(err, ErrInvalidHeader) holds
// for any header failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var re *model.RecordError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: ErrCancelled.Code, Message: ErrCancelled.Message, Cause: err}
	case errors.As(err, &re) && re.Op == "read header":
		return &Error{Code: ErrInvalidHeader.Code, Message: ErrInvalidHeader.Message, Cause: err}
	case errors.Is(err, model.ErrUnsupported) && errors.As(err, &re) && re.Op == "identify format":
		return &Error{Code: ErrUnsupportedFormat.Code, Message: ErrUnsupportedFormat.Message, Cause: err}
	}
	return &Error{Code: ErrInvalidFormat.Code, Message: ErrInvalidFormat.Message, Cause: err}
}
