package codec

import (
	"fmt"

	"github.com/dyuri/zoneconv/internal/model"
)

// UnpackRow expands opcode-encoded src into exactly rowLen bytes.
//
// Control byte n < 0x80 copies the next n+1 bytes; n > 0x80 repeats the
// next byte 257-n times; 0x80 is a no-op. It returns the row and the number
// of source bytes consumed. Running out of source is ErrTruncated; a run
// that would overrun the row is ErrMalformed.
func UnpackRow(src []byte, rowLen int) ([]byte, int, error) {
	row := make([]byte, 0, rowLen)
	i := 0
	for len(row) < rowLen {
		if i >= len(src) {
			return row, i, fmt.Errorf("row has %d of %d bytes: %w", len(row), rowLen, model.ErrTruncated)
		}
		n := int(src[i])
		i++
		switch {
		case n < 0x80:
			count := n + 1
			if i+count > len(src) {
				return row, i, fmt.Errorf("literal run of %d at %d: %w", count, i, model.ErrTruncated)
			}
			if len(row)+count > rowLen {
				return row, i, fmt.Errorf("literal run of %d overruns row of %d: %w", count, rowLen, model.ErrMalformed)
			}
			row = append(row, src[i:i+count]...)
			i += count
		case n > 0x80:
			count := 257 - n
			if i >= len(src) {
				return row, i, fmt.Errorf("repeat run at %d: %w", i, model.ErrTruncated)
			}
			if len(row)+count > rowLen {
				return row, i, fmt.Errorf("repeat run of %d overruns row of %d: %w", count, rowLen, model.ErrMalformed)
			}
			b := src[i]
			i++
			for j := 0; j < count; j++ {
				row = append(row, b)
			}
		}
	}
	return row, i, nil
}

// PackRow encodes row with the same opcodes. Runs of three or more equal
// bytes become repeats; everything else is copied literally.
func PackRow(row []byte) []byte {
	var out []byte
	i := 0
	for i < len(row) {
		run := 1
		for i+run < len(row) && run < 128 && row[i+run] == row[i] {
			run++
		}
		if run >= 3 {
			out = append(out, byte(257-run), row[i])
			i += run
			continue
		}

		start := i
		for i < len(row) && i-start < 128 {
			if i+2 < len(row) && row[i] == row[i+1] && row[i] == row[i+2] {
				break
			}
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, row[start:i]...)
	}
	return out
}
