package document

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	zbin "github.com/dyuri/zoneconv/internal/binary"
	"github.com/dyuri/zoneconv/internal/geometry"
	"github.com/dyuri/zoneconv/internal/model"
)

// Auxiliary record tags
const (
	auxPrint  = "PRNT"
	auxWindow = "WIND"
	auxLabels = "LABL"
)

// ReadAux walks the auxiliary metadata container: a sequence of
// (tag[4], length u32 big-endian, data) records. Unknown tags are skipped.
// A damaged record ends the walk; what was read before it is returned
// together with the error.
func ReadAux(src io.ReaderAt, size int64, codePage int, log logrus.FieldLogger) (*model.Metadata, error) {
	rd := zbin.NewReader(src, size)
	rd.SetByteOrder(binary.BigEndian)
	rd.SetCodePage(codePage)

	meta := &model.Metadata{}
	for rd.Remaining() > 0 {
		at := rd.Tell()
		tag := string(rd.Bytes(4))
		length := int64(rd.U32())
		if err := rd.Err(); err != nil {
			return meta, &model.RecordError{Op: "read aux record", Offset: at, Err: err}
		}
		body, err := rd.Section(rd.Tell(), length)
		if err != nil {
			return meta, &model.RecordError{Op: "read aux " + tag, Offset: at, Err: err}
		}
		if err := rd.Skip(length); err != nil {
			return meta, err
		}

		switch tag {
		case auxPrint:
			p := &model.PrintInfo{
				PaperWidth:  body.Fixed(),
				PaperHeight: body.Fixed(),
			}
			for i := range p.Margins {
				p.Margins[i] = body.Fixed()
			}
			p.Landscape = body.U8() != 0
			if err := body.Err(); err != nil {
				return meta, &model.RecordError{Op: "decode aux " + tag, Offset: at, Err: err}
			}
			meta.Print = p
		case auxWindow:
			x0, y0, x1, y1 := body.Fixed(), body.Fixed(), body.Fixed(), body.Fixed()
			if err := body.Err(); err != nil {
				return meta, &model.RecordError{Op: "decode aux " + tag, Offset: at, Err: err}
			}
			r := geometry.NewRect(x0, y0, x1, y1)
			meta.Window = &r
		case auxLabels:
			n := int(body.U8())
			for i := 0; i < n; i++ {
				s := body.PascalString()
				if body.Err() != nil {
					break
				}
				meta.Labels = append(meta.Labels, s)
			}
			if err := body.Err(); err != nil {
				return meta, &model.RecordError{Op: "decode aux " + tag, Offset: at, Err: err}
			}
		default:
			log.WithFields(logrus.Fields{"tag": tag, "offset": at}).Debug("skipping aux record")
		}
	}
	return meta, nil
}

// AuxRecord encodes one auxiliary record
func AuxRecord(tag string, data []byte) ([]byte, error) {
	if len(tag) != 4 {
		return nil, fmt.Errorf("aux tag %q must be 4 bytes", tag)
	}
	rec := zbin.NewRecord(binary.BigEndian, 10000)
	rec.PutBytes([]byte(tag)).PutU32(uint32(len(data))).PutBytes(data)
	return rec.Bytes(), nil
}
