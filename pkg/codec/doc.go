// Package codec decodes the fixed-width chunk headers of Elder Scrolls master
// files (ESM/ESP).
//
// A master file is a tree of three chunk kinds. Every chunk starts with a
// 4-byte type tag followed by a little-endian size:
//
//	Field:  [Tag(4)][Size(2)]                                       6 bytes
//	Record: [Tag(4)][Size(4)][Flags(4)][FormID(4)][VC(4)][Ver(2)][?(2)] 24 bytes
//	Group:  [GRUP(4)][Size(4)][Label(4)][Type(4)][Stamp(2)][?(2)][Ver(2)][?(2)] 24 bytes
//
// # Size Semantics
//
// The size conventions are asymmetric and easy to get wrong:
//   - FieldHeader.Size excludes the 6 byte header.
//   - RecordHeader.Size excludes the 24 byte header.
//   - GroupHeader.Size includes the 24 byte header.
//
// Header.PayloadSize and Header.Span hide the difference: PayloadSize is the
// number of bytes following the header, Span is the full on-disk footprint.
//
// # Flags
//
// Record flags carry two bits the parser cares about. FlagCompressed marks a
// record whose payload is a 4 byte decompressed length followed by a zlib
// stream. FlagLocalized, set on the TES4 file header, means string fields are
// keys into external string tables rather than inline text.
//
// # Usage
//
//	var raw [codec.HeaderSize]byte
//	if _, err := io.ReadFull(r, raw[:]); err != nil {
//	    return err
//	}
//	h, err := codec.DecodeHeader(raw[:])
//	if err != nil {
//	    return err
//	}
//	if h.IsGroup() {
//	    // h.Group.Label, h.PayloadSize() ...
//	}
package codec
