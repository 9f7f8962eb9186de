package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyuri/zoneconv/internal/document"
	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/model"
)

// validate command
var validateCmd = &cobra.Command{
	Use:   "validate <input>",
	Short: "Validate container structure",
	Long: `Validate the container header, zone directory and every zone.

Invalid directory entries, undecodable zones and damaged text runs are
reported as warnings. With the global --strict flag warnings fail the
validation too.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	strict := decodeOpts.Strict

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	v := newValidator(strict)
	v.file = inputPath

	// Open leniently so every invalid entry is listed, not just the first
	opts, err := in.options()
	if err != nil {
		return err
	}
	opts = append(opts, document.WithStrict(false))
	d, err := document.Open(in.f, in.size, opts...)
	if err != nil {
		v.error("%v", err)
	} else {
		v.validate(cmd, d)
	}

	v.printResults()

	if v.hasErrors() || (strict && v.hasWarnings()) {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// Validator holds validation state
type validator struct {
	strict   bool
	errors   []string
	warnings []string
	file     string
}

func newValidator(strict bool) *validator {
	return &validator{
		strict:   strict,
		errors:   make([]string, 0),
		warnings: make([]string, 0),
	}
}

func (v *validator) error(msg string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(msg, args...))
}

func (v *validator) warning(msg string, args ...interface{}) {
	v.warnings = append(v.warnings, fmt.Sprintf(msg, args...))
}

func (v *validator) hasErrors() bool {
	return len(v.errors) > 0
}

func (v *validator) hasWarnings() bool {
	return len(v.warnings) > 0
}

func (v *validator) validate(cmd *cobra.Command, d *document.Document) {
	v.validateHeader(d)

	for _, e := range d.Dir.Invalid() {
		v.warning("Zone %d: %s", e.ID, e.Reason)
	}

	for _, id := range d.DecodeAll() {
		err := d.Resolver.Failures()[id]
		if errors.Is(err, model.ErrUnsupported) {
			v.warning("Zone %d: unsupported content: %v", id, err)
			continue
		}
		v.warning("Zone %d: %v", id, err)
	}

	for id, pic := range d.Pictures() {
		v.validateBitmap(pic.Bitmap, fmt.Sprintf("Picture %d", id))
	}

	report, err := d.Assemble(cmd.Context(), &event.Recorder{})
	if err != nil {
		v.error("Assembly failed: %v", err)
		return
	}
	for _, err := range report.MergeErrors {
		v.warning("Text: %v", err)
	}
	if report.Pages == 0 {
		v.warning("Document has no pages")
	}
}

func (v *validator) validateHeader(d *document.Document) {
	h := d.Header
	// Check CodePage
	validCodePages := map[int]bool{
		0: true, 437: true, 1250: true, 1251: true, 1252: true, 10000: true, 65001: true,
	}
	if !validCodePages[int(h.CodePage)] {
		v.warning("Unusual CodePage: %d (common values: 10000, 1252, 437)", h.CodePage)
	}

	if d.Dir.Zone(int(h.RootZone)) == nil {
		v.error("Document zone %d is missing from the directory", h.RootZone)
	} else if _, err := d.Root(); err != nil {
		v.error("Document zone: %v", err)
	}
	if len(d.Dir.Entries()) == 0 {
		v.error("Directory has no valid zones")
	}
}

func (v *validator) validateBitmap(bm *model.Bitmap, context string) {
	// Check dimensions
	if bm.Width <= 0 || bm.Height <= 0 {
		v.error("%s: invalid size %dx%d", context, bm.Width, bm.Height)
	}

	// Check palette
	if bm.ColorMode == model.Indexed {
		if len(bm.Palette) == 0 {
			v.warning("%s: empty palette", context)
		}
		if len(bm.Palette) > 256 {
			v.error("%s: palette too large (%d colors)", context, len(bm.Palette))
		}
	}

	// Check pixel data
	if len(bm.Data) < bm.Stride()*bm.Height {
		v.error("%s: short pixel data (%d bytes)", context, len(bm.Data))
	}
}

func (v *validator) printResults() {
	fmt.Printf("Validating: %s\n", v.file)
	fmt.Println(strings.Repeat("=", 50))

	if len(v.errors) == 0 && len(v.warnings) == 0 {
		fmt.Println("✓ Valid container - no issues found")
		return
	}

	// Print errors
	if len(v.errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(v.errors))
		for _, err := range v.errors {
			fmt.Printf("  ✗ %s\n", err)
		}
	}

	// Print warnings
	if len(v.warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(v.warnings))
		for _, warn := range v.warnings {
			fmt.Printf("  ⚠ %s\n", warn)
		}
	}

	// Summary
	fmt.Println()
	if len(v.errors) > 0 {
		fmt.Printf("Validation failed: %d error(s)", len(v.errors))
		if len(v.warnings) > 0 {
			fmt.Printf(", %d warning(s)", len(v.warnings))
		}
		fmt.Println()
	} else if len(v.warnings) > 0 {
		fmt.Printf("Validation passed with %d warning(s)\n", len(v.warnings))
		if v.strict {
			fmt.Println("(use without --strict to ignore warnings)")
		}
	}
}
