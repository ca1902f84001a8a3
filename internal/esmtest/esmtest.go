// Package esmtest assembles small master file images for tests.
package esmtest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Flag bits mirrored from the codec package so fixtures stay literal.
const (
	FlagLocalized  = 0x00000080
	FlagCompressed = 0x00040000
)

// Concat joins chunks into one byte slice.
func Concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// U16 encodes v little-endian.
func U16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

// U32 encodes v little-endian.
func U32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// U64 encodes v little-endian.
func U64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// F32 encodes v as a little-endian IEEE 754 float.
func F32(v float32) []byte {
	return U32(math.Float32bits(v))
}

// ZString returns s followed by a NUL terminator.
func ZString(s string) []byte {
	return append([]byte(s), 0)
}

// FieldHeader encodes a 6 byte field header declaring size.
func FieldHeader(tag string, size uint16) []byte {
	return append([]byte(tag[:4]), U16(size)...)
}

// Field encodes a field whose header declares exactly len(payload).
func Field(tag string, payload []byte) []byte {
	return Concat(FieldHeader(tag, uint16(len(payload))), payload)
}

// RecordHeader encodes a 24 byte record header declaring size.
func RecordHeader(tag string, size, flags, formID uint32) []byte {
	b := make([]byte, 0, 24)
	b = append(b, tag[:4]...)
	b = binary.LittleEndian.AppendUint32(b, size)
	b = binary.LittleEndian.AppendUint32(b, flags)
	b = binary.LittleEndian.AppendUint32(b, formID)
	return append(b, make([]byte, 8)...)
}

// Record encodes a plain record wrapping fields.
func Record(tag string, formID, flags uint32, fields ...[]byte) []byte {
	payload := Concat(fields...)
	return Concat(RecordHeader(tag, uint32(len(payload)), flags, formID), payload)
}

// CompressedRecord encodes a record with the compression flag set whose
// payload is the zlib compressed field sequence.
func CompressedRecord(tag string, formID, flags uint32, fields ...[]byte) []byte {
	plain := Concat(fields...)
	payload := Concat(U32(uint32(len(plain))), Deflate(plain))
	return Concat(RecordHeader(tag, uint32(len(payload)), flags|FlagCompressed, formID), payload)
}

// Deflate compresses b as an RFC 1950 zlib stream.
func Deflate(b []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// GroupHeader encodes a 24 byte group header. size includes the header.
func GroupHeader(label [4]byte, groupType int32, size uint32) []byte {
	b := make([]byte, 0, 24)
	b = append(b, "GRUP"...)
	b = binary.LittleEndian.AppendUint32(b, size)
	b = append(b, label[:]...)
	b = binary.LittleEndian.AppendUint32(b, uint32(groupType))
	return append(b, make([]byte, 8)...)
}

// Group encodes a top group labelled with a record type.
func Group(label string, children ...[]byte) []byte {
	var l [4]byte
	copy(l[:], label)
	return GroupOf(l, 0, children...)
}

// GroupOf encodes a group with an explicit label and type.
func GroupOf(label [4]byte, groupType int32, children ...[]byte) []byte {
	payload := Concat(children...)
	return Concat(GroupHeader(label, groupType, uint32(24+len(payload))), payload)
}

// FormLabel encodes a form id as a group label.
func FormLabel(formID uint32) [4]byte {
	var l [4]byte
	binary.LittleEndian.PutUint32(l[:], formID)
	return l
}

// FileHeader encodes a TES4 record with a 12 byte HEDR.
func FileHeader(flags uint32, records uint32, extra ...[]byte) []byte {
	hedr := Concat(F32(0.94), U32(records), U32(0x800))
	fields := append([][]byte{Field("HEDR", hedr)}, extra...)
	return Record("TES4", 0, flags, fields...)
}
