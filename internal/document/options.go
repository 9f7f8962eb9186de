package document

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/dyuri/zoneconv/internal/zone"
)

// DefaultPageBreakTolerance is the fraction of a page height at its bottom
// within which an overflowing shape moves to the next page.
const DefaultPageBreakTolerance = 0.1

// Options controls decoding
type Options struct {
	// Strict turns any invalid directory entry into a fatal error
	Strict bool
	// MaxDepth bounds nested zone resolution
	MaxDepth int
	// PageBreakTolerance, see DefaultPageBreakTolerance
	PageBreakTolerance float64
	// CodePage overrides the header codepage when non-zero
	CodePage int
	// Logger receives diagnostics; nil logs warnings to stderr
	Logger logrus.FieldLogger

	aux     io.ReaderAt
	auxSize int64
}

// Option configures decoding
type Option func(*Options)

// DefaultOptions returns the lenient defaults
func DefaultOptions() Options {
	return Options{
		MaxDepth:           zone.DefaultMaxDepth,
		PageBreakTolerance: DefaultPageBreakTolerance,
	}
}

// WithStrict enables strict directory validation
func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

// WithMaxDepth sets the resolution depth limit
func WithMaxDepth(depth int) Option {
	return func(o *Options) { o.MaxDepth = depth }
}

// WithPageBreakTolerance sets the pagination tolerance fraction
func WithPageBreakTolerance(f float64) Option {
	return func(o *Options) { o.PageBreakTolerance = f }
}

// WithCodePage overrides the header codepage
func WithCodePage(cp int) Option {
	return func(o *Options) { o.CodePage = cp }
}

// WithLogger sets the diagnostics logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Options) { o.Logger = log }
}

// WithAux supplies the auxiliary metadata container
func WithAux(r io.ReaderAt, size int64) Option {
	return func(o *Options) {
		o.aux = r
		o.auxSize = size
	}
}

// Apply returns an option that copies o, for callers that bound flags
// with AddFlags.
func (o Options) Apply() Option {
	return func(dst *Options) {
		aux, auxSize := dst.aux, dst.auxSize
		*dst = o
		if dst.aux == nil {
			dst.aux, dst.auxSize = aux, auxSize
		}
	}
}

// AddFlags binds the options to command-line flags
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Strict, "strict", o.Strict, "fail on any invalid zone")
	fs.IntVar(&o.MaxDepth, "max-depth", o.MaxDepth, "maximum nested zone resolution depth")
	fs.Float64Var(&o.PageBreakTolerance, "page-tolerance", o.PageBreakTolerance,
		"fraction of a page bottom within which overflowing shapes move to the next page")
	fs.IntVar(&o.CodePage, "codepage", o.CodePage, "override the file codepage (e.g. 10000, 1252)")
}

func (o *Options) normalize() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = zone.DefaultMaxDepth
	}
	if o.PageBreakTolerance < 0 || o.PageBreakTolerance >= 1 {
		o.PageBreakTolerance = DefaultPageBreakTolerance
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.WarnLevel)
		o.Logger = l
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.normalize()
	return o
}
