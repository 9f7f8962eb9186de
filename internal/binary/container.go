package binary

import (
	"encoding/binary"
	"fmt"

	"github.com/dyuri/zoneconv/internal/model"
)

// HeaderSize is the length of the fixed container header.
const HeaderSize = 0x14

// Directory entry flags, stored in the high nibble of the length word.
const (
	FlagMask   = 0xF0000000
	LengthMask = 0x0FFFFFFF
	FlagFree   = 0x40000000
)

// maxDirectoryEntries bounds the listing before any allocation.
const maxDirectoryEntries = 0x8000

// FileHeader is the container header shared by every variant.
type FileHeader struct {
	ByteOrder       binary.ByteOrder
	Signature       string // 4-character variant code
	Version         uint16
	CodePage        uint16
	RootZone        uint16
	DirectoryOffset uint32
	Flags           uint16
}

// DirEntry is one raw (length|flags, offset) pair from the listing.
type DirEntry struct {
	Length uint32 // length with flag bits cleared
	Flags  uint32
	Offset uint32
}

// ReadHeader reads and parses the container header at offset 0. The byte
// order mark switches the reader's stream order for everything after it.
func (r *Reader) ReadHeader() (*FileHeader, error) {
	if err := r.Seek(0); err != nil {
		return nil, err
	}
	bom, err := r.Read(2)
	if err != nil {
		return nil, fmt.Errorf("read byte order mark: %w", err)
	}

	// Offset 0x00-0x01: "MM" big-endian, "II" little-endian
	switch string(bom) {
	case "MM":
		r.endian = binary.BigEndian
	case "II":
		r.endian = binary.LittleEndian
	default:
		return nil, fmt.Errorf("byte order mark %q: %w", bom, model.ErrUnsupported)
	}

	h := &FileHeader{ByteOrder: r.endian}

	// Offset 0x02-0x05: variant signature
	sig := r.Bytes(4)
	h.Signature = string(sig)
	h.Version = r.U16()         // 0x06
	h.CodePage = r.U16()        // 0x08
	h.RootZone = r.U16()        // 0x0A
	h.DirectoryOffset = r.U32() // 0x0C
	h.Flags = r.U16()           // 0x10
	_ = r.U16()                 // 0x12 reserved
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	r.SetCodePage(int(h.CodePage))
	return h, nil
}

// ReadDirectory reads the zone listing at offset: a count followed by
// count (length|flags, offset) pairs. An all-zero pair ends the listing
// early.
func (r *Reader) ReadDirectory(offset int64) ([]DirEntry, error) {
	if err := r.Seek(offset); err != nil {
		return nil, fmt.Errorf("seek to directory: %w", err)
	}

	count := int(r.U16())
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read zone count: %w", err)
	}
	if count == 0 || count > maxDirectoryEntries {
		return nil, fmt.Errorf("invalid zone count %d: %w", count, model.ErrMalformed)
	}
	// Sanity check the listing fits before allocating for it
	if !r.CheckPosition(r.Tell() + int64(count)*8) {
		return nil, fmt.Errorf("zone listing of %d entries: %w", count, model.ErrBounds)
	}

	entries := make([]DirEntry, 0, count)
	for i := 0; i < count; i++ {
		raw := r.U32()
		off := r.U32()
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("read zone entry %d: %w", i, err)
		}
		if raw == 0 && off == 0 {
			break // sentinel
		}
		entries = append(entries, DirEntry{
			Length: raw & LengthMask,
			Flags:  raw & FlagMask,
			Offset: off,
		})
	}
	return entries, nil
}
