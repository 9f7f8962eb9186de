package binary

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dyuri/zoneconv/internal/model"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Reader is a bounds-checked cursor over a window of a random-access source.
//
// Typed reads (U8, U16, ...) are sticky: after the first failure they
// return zero values and Err reports the failure, so record decoders can
// read a run of fields and check once. Read, Seek and Section return
// their errors directly.
type Reader struct {
	r       io.ReaderAt
	base    int64            // absolute offset of the window start
	size    int64            // window length
	pos     int64            // relative to base
	endian  binary.ByteOrder // per-stream byte order, per-call overrides exist
	decoder *encoding.Decoder
	err     error
}

// NewReader creates a reader over the first size bytes of r.
func NewReader(r io.ReaderAt, size int64) *Reader {
	return &Reader{
		r:      r,
		size:   size,
		endian: binary.LittleEndian,
	}
}

// Size returns the window length
func (r *Reader) Size() int64 {
	return r.size
}

// Base returns the absolute offset of the window within the source.
func (r *Reader) Base() int64 {
	return r.base
}

// Tell returns the current position relative to the window.
func (r *Reader) Tell() int64 {
	return r.pos
}

// Remaining returns the number of unread bytes in the window.
func (r *Reader) Remaining() int64 {
	return r.size - r.pos
}

// ByteOrder returns the stream byte order
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.endian
}

// SetByteOrder switches the stream byte order.
func (r *Reader) SetByteOrder(order binary.ByteOrder) {
	r.endian = order
}

// Err returns the first error hit by a typed read.
func (r *Reader) Err() error {
	return r.err
}

// CheckPosition reports whether pos lies within the window (pos == Size is
// allowed: it is the end of the window). Call it before trusting any
// offset or length taken from the file.
func (r *Reader) CheckPosition(pos int64) bool {
	return pos >= 0 && pos <= r.size
}

// Seek moves to an absolute position within the window.
func (r *Reader) Seek(pos int64) error {
	if !r.CheckPosition(pos) {
		return fmt.Errorf("seek to 0x%x in window of 0x%x: %w", pos, r.size, model.ErrBounds)
	}
	r.pos = pos
	return nil
}

// Skip advances n bytes.
func (r *Reader) Skip(n int64) error {
	return r.Seek(r.pos + n)
}

// Read returns the next n bytes.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || !r.CheckPosition(r.pos+int64(n)) {
		return nil, fmt.Errorf("read %d bytes at 0x%x: %w", n, r.base+r.pos, model.ErrBounds)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := r.r.ReadAt(buf, r.base+r.pos); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read %d bytes at 0x%x: %w", n, r.base+r.pos, err)
	}
	r.pos += int64(n)
	return buf, nil
}

// Section returns a reader over [begin, begin+length) of this window,
// inheriting byte order and codepage. The receiver's position is unchanged.
func (r *Reader) Section(begin, length int64) (*Reader, error) {
	if length < 0 || !r.CheckPosition(begin) || !r.CheckPosition(begin+length) {
		return nil, fmt.Errorf("section 0x%x+0x%x outside window of 0x%x: %w",
			begin, length, r.size, model.ErrBounds)
	}
	return &Reader{
		r:       r.r,
		base:    r.base + begin,
		size:    length,
		endian:  r.endian,
		decoder: r.decoder,
	}, nil
}

// fill reads n bytes for a typed read, recording the first failure.
func (r *Reader) fill(n int) []byte {
	if r.err != nil {
		return nil
	}
	buf, err := r.Read(n)
	if err != nil {
		r.err = err
		return nil
	}
	return buf
}

// U8 reads one byte
func (r *Reader) U8() uint8 {
	buf := r.fill(1)
	if buf == nil {
		return 0
	}
	return buf[0]
}

// U16 reads an unsigned 16-bit value in the stream byte order
func (r *Reader) U16() uint16 {
	return r.Uint16In(r.endian)
}

// U32 reads an unsigned 32-bit value in the stream byte order
func (r *Reader) U32() uint32 {
	return r.Uint32In(r.endian)
}

// I16 reads a signed 16-bit value
func (r *Reader) I16() int16 {
	return int16(r.U16())
}

// I32 reads a signed 32-bit value
func (r *Reader) I32() int32 {
	return int32(r.U32())
}

// Uint16In reads an unsigned 16-bit value in an explicit byte order.
func (r *Reader) Uint16In(order binary.ByteOrder) uint16 {
	buf := r.fill(2)
	if buf == nil {
		return 0
	}
	return order.Uint16(buf)
}

// Uint32In reads an unsigned 32-bit value in an explicit byte order.
func (r *Reader) Uint32In(order binary.ByteOrder) uint32 {
	buf := r.fill(4)
	if buf == nil {
		return 0
	}
	return order.Uint32(buf)
}

// Fixed reads a signed 16.16 fixed point number
func (r *Reader) Fixed() float64 {
	return float64(r.I32()) / 65536
}

// Bytes reads n raw bytes as a typed read.
func (r *Reader) Bytes(n int) []byte {
	return r.fill(n)
}

// SetCodePage configures string decoding
func (r *Reader) SetCodePage(codePage int) {
	r.decoder = DecoderFor(codePage)
}

// DecoderFor returns the text decoder for a codepage, nil for UTF-8.
// Unknown codepages fall back to MacRoman, the native encoding of most of
// these formats.
func DecoderFor(codePage int) *encoding.Decoder {
	switch codePage {
	case 65001:
		return nil
	case 1252:
		return charmap.Windows1252.NewDecoder()
	case 1250:
		return charmap.Windows1250.NewDecoder()
	case 1251:
		return charmap.Windows1251.NewDecoder()
	case 437:
		return charmap.CodePage437.NewDecoder()
	default:
		return charmap.Macintosh.NewDecoder()
	}
}

// DecodeString decodes a byte slice using the configured codepage decoder
func (r *Reader) DecodeString(data []byte) string {
	if r.decoder == nil {
		return string(data)
	}
	decoded, err := r.decoder.Bytes(data)
	if err != nil {
		return string(data) // Fall back to raw string on error
	}
	return string(decoded)
}

// PascalString reads a length-prefixed string.
func (r *Reader) PascalString() string {
	n := r.U8()
	buf := r.fill(int(n))
	if buf == nil {
		return ""
	}
	return r.DecodeString(buf)
}

// CString reads a null-terminated string of at most maxLen bytes. The
// terminator is consumed; a string that reaches maxLen without one is
// returned as is.
func (r *Reader) CString(maxLen int) string {
	var out []byte
	for i := 0; i < maxLen; i++ {
		b := r.U8()
		if r.err != nil || b == 0 {
			break
		}
		out = append(out, b)
	}
	return r.DecodeString(out)
}
