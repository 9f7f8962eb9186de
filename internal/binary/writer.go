package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Writer assembles a zone container: header, zones, then the directory.
// It exists to synthesize inputs (sample documents and test fixtures);
// write-back of decoded documents is not supported.
type Writer struct {
	w         io.Writer
	endian    binary.ByteOrder
	encoding  encoding.Encoding // Text encoding for strings (based on codepage)
	signature string
	codePage  uint16
	rootZone  uint16
	flags     uint16

	// Accumulated zones; index i holds zone id i+1
	zones     []zoneData
	overrides map[uint16]DirEntry
}

type zoneData struct {
	tag     uint16
	payload []byte
	flags   uint32
}

// NewWriter creates a container writer
func NewWriter(w io.Writer, order binary.ByteOrder, signature string, codePage int) *Writer {
	return &Writer{
		w:         w,
		endian:    order,
		encoding:  encodingFor(codePage),
		signature: signature,
		codePage:  uint16(codePage),
		overrides: make(map[uint16]DirEntry),
	}
}

// encodingFor mirrors DecoderFor; nil means UTF-8 passthrough.
func encodingFor(codePage int) encoding.Encoding {
	switch codePage {
	case 65001:
		return nil
	case 1252:
		return charmap.Windows1252
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	case 437:
		return charmap.CodePage437
	default:
		return charmap.Macintosh
	}
}

// AddZone appends a zone and returns its id
func (w *Writer) AddZone(tag uint16, payload []byte) uint16 {
	w.zones = append(w.zones, zoneData{tag: tag, payload: payload})
	return uint16(len(w.zones))
}

// Reserve allocates an id to be filled by SetZone, for forward references.
func (w *Writer) Reserve() uint16 {
	w.zones = append(w.zones, zoneData{flags: FlagFree})
	return uint16(len(w.zones))
}

// SetZone fills or replaces zone id.
func (w *Writer) SetZone(id, tag uint16, payload []byte) {
	w.zones[id-1] = zoneData{tag: tag, payload: payload}
}

// SetRoot sets the document zone id stored in the header
func (w *Writer) SetRoot(id uint16) {
	w.rootZone = id
}

// Override replaces the directory entry written for id, for crafting
// damaged listings.
func (w *Writer) Override(id uint16, e DirEntry) {
	w.overrides[id] = e
}

// Write outputs the complete container
func (w *Writer) Write() error {
	if len(w.signature) != 4 {
		return fmt.Errorf("signature %q must be 4 bytes", w.signature)
	}

	body := &bytes.Buffer{}
	entries := make([]DirEntry, len(w.zones))
	offset := uint32(HeaderSize)

	// Write zones
	for i, z := range w.zones {
		if z.flags&FlagFree != 0 {
			entries[i] = DirEntry{Flags: FlagFree, Offset: offset}
			continue
		}
		rec := w.NewRecord()
		rec.PutU16(z.tag)
		rec.PutU16(0) // version
		rec.PutBytes(z.payload)
		entries[i] = DirEntry{Length: uint32(rec.Len()), Offset: offset}
		body.Write(rec.Bytes())
		offset += uint32(rec.Len())
	}

	// Directory follows the zones
	dir := w.NewRecord()
	dir.PutU16(uint16(len(entries)))
	for i, e := range entries {
		if o, ok := w.overrides[uint16(i+1)]; ok {
			e = o
		}
		dir.PutU32(e.Length | e.Flags)
		dir.PutU32(e.Offset)
	}
	dir.PutU32(0) // sentinel
	dir.PutU32(0)

	header := w.NewRecord()
	if w.endian == binary.BigEndian {
		header.PutBytes([]byte("MM"))
	} else {
		header.PutBytes([]byte("II"))
	}
	header.PutBytes([]byte(w.signature))
	header.PutU16(1)
	header.PutU16(w.codePage)
	header.PutU16(w.rootZone)
	header.PutU32(offset)
	header.PutU16(w.flags)
	header.PutU16(0)

	for _, part := range [][]byte{header.Bytes(), body.Bytes(), dir.Bytes()} {
		if _, err := w.w.Write(part); err != nil {
			return fmt.Errorf("write container: %w", err)
		}
	}
	return nil
}

// NewRecord starts a payload in the writer's byte order and codepage.
func (w *Writer) NewRecord() *Record {
	return &Record{endian: w.endian, encoding: w.encoding}
}

// Record accumulates one zone payload
type Record struct {
	buf      bytes.Buffer
	endian   binary.ByteOrder
	encoding encoding.Encoding
}

// NewRecord creates a standalone record builder.
func NewRecord(order binary.ByteOrder, codePage int) *Record {
	return &Record{endian: order, encoding: encodingFor(codePage)}
}

// Bytes returns the accumulated payload
func (r *Record) Bytes() []byte { return r.buf.Bytes() }

// Len returns the payload length
func (r *Record) Len() int { return r.buf.Len() }

func (r *Record) PutU8(v uint8) *Record {
	r.buf.WriteByte(v)
	return r
}

func (r *Record) PutU16(v uint16) *Record {
	var b [2]byte
	r.endian.PutUint16(b[:], v)
	r.buf.Write(b[:])
	return r
}

func (r *Record) PutU32(v uint32) *Record {
	var b [4]byte
	r.endian.PutUint32(b[:], v)
	r.buf.Write(b[:])
	return r
}

func (r *Record) PutI16(v int16) *Record {
	return r.PutU16(uint16(v))
}

func (r *Record) PutI32(v int32) *Record {
	return r.PutU32(uint32(v))
}

// PutFixed writes v as signed 16.16
func (r *Record) PutFixed(v float64) *Record {
	return r.PutI32(int32(math.Round(v * 65536)))
}

func (r *Record) PutBytes(b []byte) *Record {
	r.buf.Write(b)
	return r
}

// PutPascal writes a length-prefixed string in the record codepage.
// Characters the codepage cannot represent are replaced.
func (r *Record) PutPascal(s string) *Record {
	b := r.Encode(s)
	if len(b) > 255 {
		b = b[:255]
	}
	r.buf.WriteByte(byte(len(b)))
	r.buf.Write(b)
	return r
}

// Encode converts s to the record codepage
func (r *Record) Encode(s string) []byte {
	if r.encoding == nil {
		return []byte(s)
	}
	enc := encoding.ReplaceUnsupported(r.encoding.NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}
