package model

// Bitmap represents decoded picture data
type Bitmap struct {
	Width     int       // Width in pixels
	Height    int       // Height in pixels
	ColorMode ColorMode // Color depth/mode
	Palette   []Color   // Color palette (for indexed mode)
	Data      []byte    // Pixel rows, Stride() bytes each
}

// ColorMode defines bitmap sample layout
type ColorMode int

const (
	Indexed ColorMode = iota // 8-bit palette index
	Gray                     // 8-bit luminance
	RGB                      // 24-bit RGB
	RGBA                     // 24-bit RGB + 8-bit alpha
)

func (m ColorMode) String() string {
	switch m {
	case Indexed:
		return "indexed"
	case Gray:
		return "gray"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	}
	return "unknown"
}

// Channels returns the bytes per pixel for the mode
func (m ColorMode) Channels() int {
	switch m {
	case RGB:
		return 3
	case RGBA:
		return 4
	}
	return 1
}

// ModeFor picks the color mode for a channel count; single-channel
// pictures with a palette are indexed.
func ModeFor(channels int, hasPalette bool) (ColorMode, bool) {
	switch channels {
	case 1:
		if hasPalette {
			return Indexed, true
		}
		return Gray, true
	case 3:
		return RGB, true
	case 4:
		return RGBA, true
	}
	return 0, false
}

// Stride returns the bytes per row
func (b *Bitmap) Stride() int {
	return b.Width * b.ColorMode.Channels()
}

// At returns the color of pixel (x, y). Out-of-range pixels and palette
// indexes yield the zero color.
func (b *Bitmap) At(x, y int) Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return Color{}
	}
	i := y*b.Stride() + x*b.ColorMode.Channels()
	if i+b.ColorMode.Channels() > len(b.Data) {
		return Color{}
	}
	switch b.ColorMode {
	case Indexed:
		idx := int(b.Data[i])
		if idx >= len(b.Palette) {
			return Color{}
		}
		return b.Palette[idx]
	case Gray:
		v := b.Data[i]
		return Color{R: v, G: v, B: v, Alpha: 255}
	case RGB:
		return Color{R: b.Data[i], G: b.Data[i+1], B: b.Data[i+2], Alpha: 255}
	case RGBA:
		return Color{R: b.Data[i], G: b.Data[i+1], B: b.Data[i+2], Alpha: b.Data[i+3]}
	}
	return Color{}
}
