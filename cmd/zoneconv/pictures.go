package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dyuri/zoneconv/internal/codec"
	"github.com/dyuri/zoneconv/internal/model"
	"github.com/dyuri/zoneconv/internal/text"
)

// pictures command
var picturesCmd = &cobra.Command{
	Use:   "pictures <input>",
	Short: "Extract picture zones",
	Long: `Decode every picture zone and write it to the output directory as
picture-<zone>.<format>. XPM output is only possible for indexed pictures.`,
	Args: cobra.ExactArgs(1),
	RunE: runPictures,
}

func init() {
	picturesCmd.Flags().StringP("output", "o", ".", "Output directory")
	picturesCmd.Flags().String("format", "png", "Output format (png, bmp, xpm)")
}

func runPictures(cmd *cobra.Command, args []string) error {
	outputDir, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	var write func(io.Writer, *model.Bitmap, int) error
	switch format {
	case "png":
		write = func(w io.Writer, bm *model.Bitmap, _ int) error { return codec.WritePNG(w, bm) }
	case "bmp":
		write = func(w io.Writer, bm *model.Bitmap, _ int) error { return codec.WriteBMP(w, bm) }
	case "xpm":
		write = func(w io.Writer, bm *model.Bitmap, id int) error {
			return text.WriteXPM(w, bm, fmt.Sprintf("picture_%d", id))
		}
	default:
		return fmt.Errorf("unknown picture format %q (use png, bmp or xpm)", format)
	}

	in, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer in.Close()

	d, err := in.open()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	pics := d.Pictures()
	ids := make([]int, 0, len(pics))
	for id := range pics {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	written := 0
	for _, id := range ids {
		bm := pics[id].Bitmap
		path := filepath.Join(outputDir, fmt.Sprintf("picture-%d.%s", id, format))
		if err := writePicture(path, bm, id, write); err != nil {
			d.Log().WithField("zone", id).WithError(err).Warn("skipping picture")
			continue
		}
		written++
		fmt.Fprintf(os.Stderr, "  %s (%dx%d %s)\n", path, bm.Width, bm.Height, bm.ColorMode)
	}
	fmt.Fprintf(os.Stderr, "Extracted %d of %d picture(s) to %s\n", written, len(ids), outputDir)
	return nil
}

func writePicture(path string, bm *model.Bitmap, id int, write func(io.Writer, *model.Bitmap, int) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, bm, id); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
