package codec

import (
	"fmt"

	"github.com/dyuri/zoneconv/internal/model"
)

// BitReader reads bits most-significant first, refilling one byte at a
// time from an in-memory buffer.
type BitReader struct {
	data []byte
	pos  int    // next byte to load
	buf  uint32 // pending bits in the low end
	bits int
}

// NewBitReader creates a bit reader over data
func NewBitReader(data []byte) *BitReader {
	return &BitReader{data: data}
}

func (br *BitReader) fill() error {
	if br.pos >= len(br.data) {
		return fmt.Errorf("bit stream exhausted after %d bytes: %w", len(br.data), model.ErrTruncated)
	}
	br.buf = br.buf<<8 | uint32(br.data[br.pos])
	br.pos++
	br.bits += 8
	return nil
}

// ReadBit returns the next bit
func (br *BitReader) ReadBit() (int, error) {
	if br.bits == 0 {
		if err := br.fill(); err != nil {
			return 0, err
		}
	}
	br.bits--
	return int((br.buf >> br.bits) & 1), nil
}

// BytesRead returns how many source bytes have been loaded
func (br *BitReader) BytesRead() int {
	return br.pos
}

// BitWriter packs bits most-significant first. The last byte is padded
// with zero bits.
type BitWriter struct {
	out  []byte
	cur  byte
	bits int
}

// WriteBit appends one bit
func (bw *BitWriter) WriteBit(bit int) {
	bw.cur = bw.cur<<1 | byte(bit&1)
	bw.bits++
	if bw.bits == 8 {
		bw.out = append(bw.out, bw.cur)
		bw.cur, bw.bits = 0, 0
	}
}

// Bytes flushes pending bits and returns the packed stream
func (bw *BitWriter) Bytes() []byte {
	if bw.bits > 0 {
		bw.out = append(bw.out, bw.cur<<(8-bw.bits))
		bw.cur, bw.bits = 0, 0
	}
	return bw.out
}
