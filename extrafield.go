package arkive

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ExtraField is one zip extra-field block.
//
// Zip stores extra data twice: once in the local file header and once in
// the central directory, and the two copies may differ (the extended
// timestamp is the usual example). A field keeps both payloads so that
// copying an entry between archives preserves each one.
type ExtraField struct {
	HeaderID    uint16
	LocalData   []byte
	CentralData []byte
}

// Clone returns a deep copy of f.
func (f ExtraField) Clone() ExtraField {
	return ExtraField{
		HeaderID:    f.HeaderID,
		LocalData:   bytes.Clone(f.LocalData),
		CentralData: bytes.Clone(f.CentralData),
	}
}

// Well-known zip extra field header IDs.
const (
	ExtraZip64         uint16 = 0x0001
	ExtraExtendedTime  uint16 = 0x5455
	ExtraUnixUIDGID    uint16 = 0x7875
	ExtraInfoZipUnixV1 uint16 = 0x5855
)

// ParseExtraFields decodes raw local and central extra blocks into fields.
//
// Fields are matched by header ID in the order they first appear in
// either block; a field present in only one block has an empty payload
// for the other.
func ParseExtraFields(local, central []byte) ([]ExtraField, error) {
	lf, err := splitExtra(local)
	if err != nil {
		return nil, fmt.Errorf("local extra: %w", err)
	}
	cf, err := splitExtra(central)
	if err != nil {
		return nil, fmt.Errorf("central extra: %w", err)
	}

	fields := make([]ExtraField, 0, len(lf)+len(cf))
	index := make(map[uint16]int, len(lf)+len(cf))
	for _, raw := range lf {
		index[raw.id] = len(fields)
		fields = append(fields, ExtraField{HeaderID: raw.id, LocalData: raw.data})
	}
	for _, raw := range cf {
		if i, ok := index[raw.id]; ok {
			fields[i].CentralData = raw.data
			continue
		}
		index[raw.id] = len(fields)
		fields = append(fields, ExtraField{HeaderID: raw.id, CentralData: raw.data})
	}
	return fields, nil
}

// EncodeLocalExtra serializes the local-header payloads of fields.
func EncodeLocalExtra(fields []ExtraField) []byte {
	return encodeExtra(fields, func(f ExtraField) []byte { return f.LocalData })
}

// encodeCentralExtra serializes the central-directory payloads of fields.
func encodeCentralExtra(fields []ExtraField) []byte {
	return encodeExtra(fields, func(f ExtraField) []byte { return f.CentralData })
}

type rawExtra struct {
	id   uint16
	data []byte
}

func splitExtra(b []byte) ([]rawExtra, error) {
	var out []rawExtra
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, fmt.Errorf("%w: truncated extra field header", ErrCorruptArchive)
		}
		id := binary.LittleEndian.Uint16(b[0:2])
		size := int(binary.LittleEndian.Uint16(b[2:4]))
		b = b[4:]
		if size > len(b) {
			return nil, fmt.Errorf("%w: extra field 0x%04x overruns block", ErrCorruptArchive, id)
		}
		out = append(out, rawExtra{id: id, data: bytes.Clone(b[:size])})
		b = b[size:]
	}
	return out, nil
}

func encodeExtra(fields []ExtraField, payload func(ExtraField) []byte) []byte {
	var buf bytes.Buffer
	var hdr [4]byte
	for _, f := range fields {
		data := payload(f)
		if data == nil {
			continue
		}
		binary.LittleEndian.PutUint16(hdr[0:2], f.HeaderID)
		binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(data))) //nolint:gosec // bounded by zip header size
		buf.Write(hdr[:])
		buf.Write(data)
	}
	if buf.Len() == 0 {
		return nil
	}
	return buf.Bytes()
}
