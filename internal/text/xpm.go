package text

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dyuri/zoneconv/internal/model"
)

// Palette - printable ASCII characters excluding space and quote. This gives
// 93 single-char codes; larger palettes use two-character codes.
const xpmChars = "!#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

func xpmCodes(colors int) ([]string, error) {
	if colors > 256 {
		return nil, fmt.Errorf("too many colors for XPM encoding: %d (max 256)", colors)
	}
	codes := make([]string, 0, colors)
	if colors <= len(xpmChars) {
		for i := 0; i < colors; i++ {
			codes = append(codes, xpmChars[i:i+1])
		}
		return codes, nil
	}
	for i := 0; len(codes) < colors; i++ {
		c1, c2 := xpmChars[i/len(xpmChars)], xpmChars[i%len(xpmChars)]
		codes = append(codes, string([]byte{c1, c2}))
	}
	return codes, nil
}

// WriteXPM writes an indexed bitmap in XPM format:
//
//	PictureXpm="8 8 2 1"
//	"! c #ff0000"
//	"# c none"
//	"!!!!!!!!"
//	...
//
// A palette entry with zero alpha is written as none.
func WriteXPM(w io.Writer, bm *model.Bitmap, tag string) error {
	if bm.ColorMode != model.Indexed {
		return fmt.Errorf("xpm needs an indexed bitmap, got %s: %w", bm.ColorMode, model.ErrUnsupported)
	}
	codes, err := xpmCodes(len(bm.Palette))
	if err != nil {
		return err
	}
	cpp := 1
	if len(bm.Palette) > len(xpmChars) {
		cpp = 2
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s=\"%d %d %d %d\"\n", tag, bm.Width, bm.Height, len(bm.Palette), cpp)
	for i, color := range bm.Palette {
		if color.Alpha == 0 {
			fmt.Fprintf(bw, "\"%s c none\"\n", codes[i])
		} else {
			fmt.Fprintf(bw, "\"%s c %s\"\n", codes[i], color.Hex())
		}
	}

	for y := 0; y < bm.Height; y++ {
		bw.WriteByte('"')
		for x := 0; x < bm.Width; x++ {
			idx := y*bm.Width + x
			if idx >= len(bm.Data) {
				return fmt.Errorf("bitmap data too short")
			}
			pixel := int(bm.Data[idx])
			if pixel >= len(codes) {
				return fmt.Errorf("pixel index out of range: %d", pixel)
			}
			bw.WriteString(codes[pixel])
		}
		bw.WriteString("\"\n")
	}
	return bw.Flush()
}

// ReadXPM parses the output of WriteXPM back into an indexed bitmap. The
// header may carry a Tag= prefix; lines after the last pixel row are
// ignored.
func ReadXPM(r io.Reader) (*model.Bitmap, error) {
	scanner := bufio.NewScanner(r)
	var x *xpmBuilder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if x == nil {
			if i := strings.Index(line, "="); i >= 0 && !strings.HasPrefix(line, "\"") {
				line = line[i+1:]
			}
			var err error
			if x, err = newXPMBuilder(line); err != nil {
				return nil, err
			}
			continue
		}
		x.addLine(line)
		if x.complete() {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if x == nil {
		return nil, fmt.Errorf("no XPM data")
	}
	return x.build()
}

// xpmBuilder builds a bitmap from XPM data
type xpmBuilder struct {
	width   int
	height  int
	ncolors int
	cpp     int // chars per pixel
	lines   []string
}

// newXPMBuilder parses a header line: "width height ncolors cpp"
func newXPMBuilder(header string) (*xpmBuilder, error) {
	parts := strings.Fields(strings.Trim(header, "\""))
	if len(parts) < 4 {
		return nil, fmt.Errorf("xpm header %q: %w", header, model.ErrMalformed)
	}
	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("xpm header %q: %w", header, model.ErrMalformed)
		}
		v[i] = n
	}
	if v[3] < 1 || v[3] > 2 || v[2] > 256 || v[0] > 0x4000 || v[1] > 0x4000 {
		return nil, fmt.Errorf("xpm header %q: %w", header, model.ErrUnsupported)
	}
	return &xpmBuilder{width: v[0], height: v[1], ncolors: v[2], cpp: v[3]}, nil
}

func (x *xpmBuilder) addLine(line string) {
	x.lines = append(x.lines, strings.TrimSuffix(strings.TrimPrefix(line, "\""), "\""))
}

func (x *xpmBuilder) complete() bool {
	return len(x.lines) >= x.ncolors+x.height
}

// build constructs the bitmap from accumulated XPM data
func (x *xpmBuilder) build() (*model.Bitmap, error) {
	if !x.complete() {
		return nil, fmt.Errorf("expected %d xpm lines, got %d: %w", x.ncolors+x.height, len(x.lines), model.ErrTruncated)
	}

	// Color lines: "code c #rrggbb" or "code c none"
	index := make(map[string]int, x.ncolors)
	palette := make([]model.Color, 0, x.ncolors)
	for _, line := range x.lines[:x.ncolors] {
		if len(line) < x.cpp+3 {
			return nil, fmt.Errorf("xpm color %q: %w", line, model.ErrMalformed)
		}
		code := line[:x.cpp]
		parts := strings.Fields(line[x.cpp:])
		if len(parts) < 2 || parts[0] != "c" {
			return nil, fmt.Errorf("xpm color %q: %w", line, model.ErrMalformed)
		}

		var color model.Color
		switch value := parts[1]; {
		case strings.EqualFold(value, "none"):
		case len(value) == 7 && value[0] == '#':
			rgb, err := strconv.ParseUint(value[1:], 16, 32)
			if err != nil {
				return nil, fmt.Errorf("xpm color %q: %w", line, model.ErrMalformed)
			}
			color = model.Color{R: byte(rgb >> 16), G: byte(rgb >> 8), B: byte(rgb), Alpha: 255}
		default:
			return nil, fmt.Errorf("xpm color %q: %w", value, model.ErrUnsupported)
		}
		index[code] = len(palette)
		palette = append(palette, color)
	}

	data := make([]byte, x.width*x.height)
	for y, line := range x.lines[x.ncolors : x.ncolors+x.height] {
		if len(line) < x.width*x.cpp {
			return nil, fmt.Errorf("line %d too short: expected %d chars, got %d", y, x.width*x.cpp, len(line))
		}
		for col := 0; col < x.width; col++ {
			code := line[col*x.cpp : (col+1)*x.cpp]
			idx, ok := index[code]
			if !ok {
				return nil, fmt.Errorf("line %d: unknown color code %q: %w", y, code, model.ErrMalformed)
			}
			data[y*x.width+col] = byte(idx)
		}
	}

	return &model.Bitmap{
		Width:     x.width,
		Height:    x.height,
		ColorMode: model.Indexed,
		Palette:   palette,
		Data:      data,
	}, nil
}
