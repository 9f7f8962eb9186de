package codec

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/bmp"

	"github.com/dyuri/zoneconv/internal/model"
)

// ToImage converts a bitmap to an image.Image. Indexed bitmaps become
// paletted images; the rest become NRGBA.
func ToImage(bm *model.Bitmap) image.Image {
	rect := image.Rect(0, 0, bm.Width, bm.Height)
	if bm.ColorMode == model.Indexed && len(bm.Palette) > 0 {
		pal := make(color.Palette, len(bm.Palette))
		for i, c := range bm.Palette {
			pal[i] = color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.Alpha}
		}
		img := image.NewPaletted(rect, pal)
		n := min(len(img.Pix), len(bm.Data))
		copy(img.Pix, bm.Data[:n])
		// Out-of-palette indexes would break encoders
		for i, p := range img.Pix {
			if int(p) >= len(pal) {
				img.Pix[i] = 0
			}
		}
		return img
	}

	img := image.NewNRGBA(rect)
	for y := 0; y < bm.Height; y++ {
		for x := 0; x < bm.Width; x++ {
			c := bm.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.Alpha})
		}
	}
	return img
}

// WritePNG encodes bm as PNG
func WritePNG(w io.Writer, bm *model.Bitmap) error {
	if err := png.Encode(w, ToImage(bm)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// WriteBMP encodes bm as BMP
func WriteBMP(w io.Writer, bm *model.Bitmap) error {
	if err := bmp.Encode(w, ToImage(bm)); err != nil {
		return fmt.Errorf("encode bmp: %w", err)
	}
	return nil
}
