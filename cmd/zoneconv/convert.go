package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyuri/zoneconv/internal/document"
	"github.com/dyuri/zoneconv/internal/event"
	"github.com/dyuri/zoneconv/internal/htmlsink"
	"github.com/dyuri/zoneconv/internal/text"
)

// dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <input>",
	Short: "Dump a container as sectioned text",
	Long: `Decode a container and write a sectioned text dump: one [page N]
section per page with styles, text runs, breaks, shapes and pictures.

Small indexed pictures are written inline in XPM format.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	dumpCmd.Flags().Bool("no-xpm", false, "Skip XPM picture data")
	dumpCmd.Flags().Int("xpm-limit", text.DefaultXPMLimit, "Largest picture in pixels written as XPM")
}

func runDump(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	noXPM, _ := cmd.Flags().GetBool("no-xpm")
	xpmLimit, _ := cmd.Flags().GetInt("xpm-limit")

	out, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := text.NewWriter(out)
	if noXPM {
		xpmLimit = 0
	}
	w.SetXPMLimit(xpmLimit)

	report, err := decodeTo(cmd.Context(), args[0], w)
	if err != nil {
		return err
	}
	if err := w.Err(); err != nil {
		return fmt.Errorf("write dump: %w", err)
	}
	if outputPath != "" {
		printSummary(args[0], outputPath, report)
	}
	return nil
}

// json command
var jsonCmd = &cobra.Command{
	Use:   "json <input>",
	Short: "Export the decoded event stream as JSON",
	Long: `Decode a container and export every sink event, together with a
decoding report, as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runJSON,
}

func init() {
	jsonCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	jsonCmd.Flags().Bool("compact", false, "Do not indent the output")
}

func runJSON(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	compact, _ := cmd.Flags().GetBool("compact")

	rec := &event.Recorder{}
	report, err := decodeTo(cmd.Context(), args[0], rec)
	if err != nil {
		return err
	}

	out, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	output := map[string]interface{}{
		"file":   args[0],
		"report": summarize(report),
		"events": rec.Events,
	}
	encoder := json.NewEncoder(out)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(output)
}

// html command
var htmlCmd = &cobra.Command{
	Use:   "html <input>",
	Short: "Render a container as an HTML preview",
	Long: `Decode a container and render a standalone HTML page. Shapes are
drawn with inline SVG; pictures are embedded as PNG data URIs.`,
	Args: cobra.ExactArgs(1),
	RunE: runHTML,
}

func init() {
	htmlCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
}

func runHTML(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")

	sink := htmlsink.New()
	report, err := decodeTo(cmd.Context(), args[0], sink)
	if err != nil {
		return err
	}

	out, err := createOutput(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := sink.Render(out); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	if outputPath != "" {
		printSummary(args[0], outputPath, report)
	}
	return nil
}

func decodeTo(ctx context.Context, path string, sink event.Sink) (*document.Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	d, err := in.open()
	if err != nil {
		return nil, err
	}
	report, err := d.Assemble(ctx, sink)
	if err != nil {
		return report, fmt.Errorf("decode %s: %w", path, err)
	}
	return report, nil
}

// reportJSON is the JSON form of a decoding report
type reportJSON struct {
	Format      string         `json:"format"`
	Pages       int            `json:"pages"`
	Shapes      int            `json:"shapes"`
	Decoded     int            `json:"decoded"`
	Invalid     map[int]string `json:"invalid,omitempty"`
	Failures    map[int]string `json:"failures,omitempty"`
	MergeErrors []string       `json:"mergeErrors,omitempty"`
}

func summarize(r *document.Report) reportJSON {
	out := reportJSON{
		Format:  r.Format,
		Pages:   r.Pages,
		Shapes:  r.Shapes,
		Decoded: r.Decoded,
	}
	if len(r.Invalid) > 0 {
		out.Invalid = make(map[int]string, len(r.Invalid))
		for _, e := range r.Invalid {
			out.Invalid[e.ID] = e.Reason
		}
	}
	if len(r.Failures) > 0 {
		out.Failures = make(map[int]string, len(r.Failures))
		for id, err := range r.Failures {
			out.Failures[id] = err.Error()
		}
	}
	for _, err := range r.MergeErrors {
		out.MergeErrors = append(out.MergeErrors, err.Error())
	}
	return out
}

func printSummary(inputPath, outputPath string, r *document.Report) {
	fmt.Fprintf(os.Stderr, "Successfully converted %s to %s\n", inputPath, outputPath)
	fmt.Fprintf(os.Stderr, "  Format: %s, Pages: %d, Shapes: %d, Zones decoded: %d\n",
		r.Format, r.Pages, r.Shapes, r.Decoded)
	if n := len(r.Invalid) + len(r.Failures) + len(r.MergeErrors); n > 0 {
		fmt.Fprintf(os.Stderr, "  %d damaged record(s) skipped, run validate for details\n", n)
	}
}
