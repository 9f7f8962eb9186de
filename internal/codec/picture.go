package codec

import (
	"fmt"

	"github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/model"
)

const (
	maxDimension   = 0x4000
	maxPixelBytes  = 64 << 20
	maxPaletteSize = 256
)

// DecodePicture reads a picture payload: dimensions, channel count,
// encoding, palette and pixel data. Opcode and Huffman data go through the
// row delta reconstruction; raw data is stored verbatim.
func DecodePicture(rd *binary.Reader) (*model.Picture, error) {
	width := int(rd.U16())
	height := int(rd.U16())
	channels := int(rd.U8())
	enc := int(rd.U8())
	paletteLen := int(rd.U16())
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read picture header: %w", err)
	}
	if width == 0 || height == 0 || width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf("picture %dx%d: %w", width, height, model.ErrMalformed)
	}
	if paletteLen > maxPaletteSize {
		return nil, fmt.Errorf("palette of %d entries: %w", paletteLen, model.ErrMalformed)
	}
	mode, ok := model.ModeFor(channels, paletteLen > 0)
	if !ok {
		return nil, fmt.Errorf("%d channels: %w", channels, model.ErrUnsupported)
	}
	stride := width * channels
	if stride*height > maxPixelBytes {
		return nil, fmt.Errorf("picture %dx%dx%d too large: %w", width, height, channels, model.ErrMalformed)
	}

	bm := &model.Bitmap{Width: width, Height: height, ColorMode: mode}
	for i := 0; i < paletteLen; i++ {
		c := rd.Bytes(3)
		if c == nil {
			break
		}
		bm.Palette = append(bm.Palette, model.Color{R: c[0], G: c[1], B: c[2], Alpha: 255})
	}
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read palette: %w", err)
	}

	var err error
	switch enc {
	case model.EncodingRaw:
		bm.Data, err = rd.Read(stride * height)
	case model.EncodingPackBits:
		bm.Data, err = decodePackBits(rd, width, height, channels)
	case model.EncodingHuffman:
		bm.Data, err = decodeHuffman(rd, width, height, channels)
	default:
		err = fmt.Errorf("picture encoding %d: %w", enc, model.ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}
	return &model.Picture{Encoding: enc, Bitmap: bm}, nil
}

// decodePackBits reads rows of (budget u16, opcode bytes). A row must
// decode within its budget.
func decodePackBits(rd *binary.Reader, width, height, channels int) ([]byte, error) {
	rc := NewReconstructor(width, channels)
	stride := width * channels
	data := make([]byte, 0, stride*height)
	for y := 0; y < height; y++ {
		budget := int(rd.U16())
		if err := rd.Err(); err != nil {
			return nil, fmt.Errorf("row %d budget: %w", y, err)
		}
		src, err := rd.Read(budget)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		packed, _, err := UnpackRow(src, stride)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		row, err := rc.Next(packed)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		data = append(data, row...)
	}
	return data, nil
}

// decodeHuffman reads a node table, a bit stream length and the bits, and
// decodes one symbol per pixel byte.
func decodeHuffman(rd *binary.Reader, width, height, channels int) ([]byte, error) {
	count := int(rd.U16())
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}
	if count == 0 || count > maxTreeNodes {
		return nil, fmt.Errorf("tree of %d nodes: %w", count, model.ErrMalformed)
	}
	records := make([][2]uint16, count)
	for i := range records {
		records[i] = [2]uint16{rd.U16(), rd.U16()}
	}
	length := int64(rd.U32())
	if err := rd.Err(); err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	tree, err := BuildTree(records)
	if err != nil {
		return nil, err
	}
	if length > rd.Remaining() {
		return nil, fmt.Errorf("bit stream of %d bytes, %d left: %w", length, rd.Remaining(), model.ErrBounds)
	}
	bits, err := rd.Read(int(length))
	if err != nil {
		return nil, err
	}

	br := NewBitReader(bits)
	rc := NewReconstructor(width, channels)
	stride := width * channels
	data := make([]byte, 0, stride*height)
	for y := 0; y < height; y++ {
		raw, err := tree.DecodeN(br, stride)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		row, err := rc.Next(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", y, err)
		}
		data = append(data, row...)
	}
	return data, nil
}

// EncodePicture writes bm as a picture payload with the given encoding.
func EncodePicture(rec *binary.Record, bm *model.Bitmap, enc int) error {
	channels := bm.ColorMode.Channels()
	stride := bm.Stride()
	if len(bm.Data) != stride*bm.Height {
		return fmt.Errorf("bitmap data of %d bytes, want %d: %w", len(bm.Data), stride*bm.Height, model.ErrMalformed)
	}
	rec.PutU16(uint16(bm.Width)).PutU16(uint16(bm.Height))
	rec.PutU8(uint8(channels)).PutU8(uint8(enc))
	rec.PutU16(uint16(len(bm.Palette)))
	for _, c := range bm.Palette {
		rec.PutBytes([]byte{c.R, c.G, c.B})
	}

	switch enc {
	case model.EncodingRaw:
		rec.PutBytes(bm.Data)
	case model.EncodingPackBits:
		deltas := DeltaEncode(bm.Data, stride, channels)
		for off := 0; off < len(deltas); off += stride {
			packed := PackRow(deltas[off : off+stride])
			rec.PutU16(uint16(len(packed))).PutBytes(packed)
		}
	case model.EncodingHuffman:
		deltas := DeltaEncode(bm.Data, stride, channels)
		tree := NewTree(deltas)
		bits, err := tree.Encode(deltas)
		if err != nil {
			return err
		}
		records := tree.Records()
		rec.PutU16(uint16(len(records)))
		for _, r := range records {
			rec.PutU16(r[0]).PutU16(r[1])
		}
		rec.PutU32(uint32(len(bits))).PutBytes(bits)
	default:
		return fmt.Errorf("picture encoding %d: %w", enc, model.ErrUnsupported)
	}
	return nil
}
