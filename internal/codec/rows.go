package codec

import (
	"fmt"

	"github.com/dyuri/zoneconv/internal/model"
)

// Reconstructor undoes the two-stage row delta: a running sum along the
// row per channel, then a sum against the previous reconstructed row. The
// first row is summed against zeros.
type Reconstructor struct {
	stride   int
	channels int
	prev     []byte
}

// NewReconstructor creates a reconstructor for rows of width pixels
func NewReconstructor(width, channels int) *Reconstructor {
	stride := width * channels
	return &Reconstructor{
		stride:   stride,
		channels: channels,
		prev:     make([]byte, stride),
	}
}

// Next reconstructs one row. A row of the wrong length is ErrMalformed
// and leaves the reconstructor unchanged.
func (r *Reconstructor) Next(row []byte) ([]byte, error) {
	if len(row) != r.stride {
		return nil, fmt.Errorf("row of %d bytes, want %d: %w", len(row), r.stride, model.ErrMalformed)
	}
	out := make([]byte, r.stride)
	copy(out, row)

	// Stage 1: per-channel running sum
	for i := r.channels; i < len(out); i++ {
		out[i] += out[i-r.channels]
	}
	// Stage 2: vertical accumulation
	for i := range out {
		out[i] += r.prev[i]
	}

	copy(r.prev, out)
	return out, nil
}

// EncodeRow applies the forward transform of one row given the previous
// original row (nil for the first).
func EncodeRow(prev, row []byte, channels int) []byte {
	v := make([]byte, len(row))
	for i := range row {
		v[i] = row[i]
		if prev != nil {
			v[i] -= prev[i]
		}
	}
	out := make([]byte, len(row))
	for i := range v {
		out[i] = v[i]
		if i >= channels {
			out[i] -= v[i-channels]
		}
	}
	return out
}

// DeltaEncode applies EncodeRow to every row of data
func DeltaEncode(data []byte, stride, channels int) []byte {
	out := make([]byte, 0, len(data))
	var prev []byte
	for off := 0; off+stride <= len(data); off += stride {
		row := data[off : off+stride]
		out = append(out, EncodeRow(prev, row, channels)...)
		prev = row
	}
	return out
}
