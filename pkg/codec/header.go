package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
)

const (
	// FieldHeaderSize is the width of a field header on disk.
	FieldHeaderSize = 6

	// HeaderSize is the width of both record and group headers on disk.
	HeaderSize = 24
)

// ErrBadSize is returned for a group header whose declared size cannot
// contain the header itself.
var ErrBadSize = errors.New("declared size smaller than header")

// RecordFlags is the flags bitset of a record header.
type RecordFlags uint32

// Record flag bits.
const (
	FlagMaster     RecordFlags = 0x00000001 // TES4 only: file is a master (ESM)
	FlagDeleted    RecordFlags = 0x00000020
	FlagLocalized  RecordFlags = 0x00000080 // TES4 only: strings live in string tables
	FlagLight      RecordFlags = 0x00000200 // TES4 only: light master (ESL)
	FlagCompressed RecordFlags = 0x00040000
)

// Has reports whether every bit of f is set.
func (r RecordFlags) Has(f RecordFlags) bool {
	return r&f == f
}

// GroupType is the kind of a GRUP, which also determines how its label is read.
type GroupType int32

// Group types.
const (
	GroupTop GroupType = iota
	GroupWorldChildren
	GroupInteriorCellBlock
	GroupInteriorCellSubBlock
	GroupExteriorCellBlock
	GroupExteriorCellSubBlock
	GroupCellChildren
	GroupTopicChildren
	GroupCellPersistentChildren
	GroupCellTemporaryChildren
	GroupCellVisibleDistantChildren
)

var groupTypeNames = [...]string{
	GroupTop:                        "Top",
	GroupWorldChildren:              "WorldChildren",
	GroupInteriorCellBlock:          "InteriorCellBlock",
	GroupInteriorCellSubBlock:       "InteriorCellSubBlock",
	GroupExteriorCellBlock:          "ExteriorCellBlock",
	GroupExteriorCellSubBlock:       "ExteriorCellSubBlock",
	GroupCellChildren:               "CellChildren",
	GroupTopicChildren:              "TopicChildren",
	GroupCellPersistentChildren:     "CellPersistentChildren",
	GroupCellTemporaryChildren:      "CellTemporaryChildren",
	GroupCellVisibleDistantChildren: "CellVisibleDistantChildren",
}

func (g GroupType) String() string {
	if g >= 0 && int(g) < len(groupTypeNames) {
		return groupTypeNames[g]
	}
	return fmt.Sprintf("GroupType(%d)", int32(g))
}

// FieldHeader precedes every field. Size excludes the header.
type FieldHeader struct {
	Tag  Tag
	Size uint16
}

func (h FieldHeader) String() string {
	return fmt.Sprintf("%s[%d]", h.Tag, h.Size)
}

// RecordHeader precedes every record. Size excludes the header.
type RecordHeader struct {
	Tag            Tag
	Size           uint32
	Flags          RecordFlags
	FormID         FormID
	Timestamp      uint16
	VersionControl uint16
	Version        uint16
	Unknown        uint16
}

// Compressed reports whether the record payload is zlib compressed.
func (h RecordHeader) Compressed() bool {
	return h.Flags.Has(FlagCompressed)
}

func (h RecordHeader) String() string {
	return fmt.Sprintf("%s %s size=%d flags=%08X", h.Tag, h.FormID, h.Size, uint32(h.Flags))
}

// GroupHeader precedes every GRUP. Unlike records, Size includes the header.
type GroupHeader struct {
	Tag      Tag
	Size     uint32
	Label    [4]byte
	Type     GroupType
	Stamp    uint16
	Unknown1 uint16
	Version  uint16
	Unknown2 uint16
}

// PayloadSize is the number of bytes of child chunks following the header.
func (h GroupHeader) PayloadSize() uint32 {
	return h.Size - HeaderSize
}

// LabelTag interprets the label as the record type of a top group.
func (h GroupHeader) LabelTag() Tag {
	return Tag(h.Label)
}

// LabelFormID interprets the label as the parent form of a child group.
func (h GroupHeader) LabelFormID() FormID {
	return FormID(binary.LittleEndian.Uint32(h.Label[:]))
}

// LabelString renders the label according to the group type.
func (h GroupHeader) LabelString() string {
	switch h.Type {
	case GroupTop:
		return h.LabelTag().String()
	case GroupWorldChildren, GroupCellChildren, GroupTopicChildren,
		GroupCellPersistentChildren, GroupCellTemporaryChildren, GroupCellVisibleDistantChildren:
		return h.LabelFormID().String()
	case GroupExteriorCellBlock, GroupExteriorCellSubBlock:
		y := int16(binary.LittleEndian.Uint16(h.Label[0:]))
		x := int16(binary.LittleEndian.Uint16(h.Label[2:]))
		return fmt.Sprintf("(%d,%d)", x, y)
	default:
		return fmt.Sprintf("%d", int32(binary.LittleEndian.Uint32(h.Label[:])))
	}
}

func (h GroupHeader) String() string {
	return fmt.Sprintf("GRUP %s %s size=%d", h.Type, h.LabelString(), h.Size)
}

// Header is a decoded 24 byte chunk header: either a record or a group.
// Exactly one of Record and Group is meaningful, selected by IsGroup.
type Header struct {
	Record RecordHeader
	Group  GroupHeader
	group  bool
}

// RecordChunk wraps a record header.
func RecordChunk(h RecordHeader) Header {
	return Header{Record: h}
}

// GroupChunk wraps a group header.
func GroupChunk(h GroupHeader) Header {
	return Header{Group: h, group: true}
}

// IsGroup reports whether the header introduces a GRUP.
func (h Header) IsGroup() bool {
	return h.group
}

// Tag returns the chunk tag.
func (h Header) Tag() Tag {
	if h.group {
		return h.Group.Tag
	}
	return h.Record.Tag
}

// PayloadSize is the number of bytes following the header that belong to the
// chunk, regardless of chunk kind.
func (h Header) PayloadSize() uint32 {
	if h.group {
		return h.Group.PayloadSize()
	}
	return h.Record.Size
}

// Span is the total on-disk footprint of the chunk including its header.
func (h Header) Span() uint64 {
	if h.group {
		return uint64(h.Group.Size)
	}
	return uint64(h.Record.Size) + HeaderSize
}

func (h Header) String() string {
	if h.group {
		return h.Group.String()
	}
	return h.Record.String()
}

// DecodeFieldHeader decodes a field header from the first 6 bytes of b.
func DecodeFieldHeader(b []byte) (FieldHeader, error) {
	if len(b) < FieldHeaderSize {
		return FieldHeader{}, io.ErrUnexpectedEOF
	}
	var h FieldHeader
	copy(h.Tag[:], b[0:4])
	h.Size = binary.LittleEndian.Uint16(b[4:6])
	return h, nil
}

// DecodeHeader decodes a record or group header from the first 24 bytes of b,
// branching on the tag.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, io.ErrUnexpectedEOF
	}
	var tag Tag
	copy(tag[:], b[0:4])
	size := binary.LittleEndian.Uint32(b[4:8])

	if tag == TagGroup {
		if size < HeaderSize {
			return Header{}, errors.Wrapf(ErrBadSize, "GRUP size %d", size)
		}
		g := GroupHeader{
			Tag:      tag,
			Size:     size,
			Type:     GroupType(int32(binary.LittleEndian.Uint32(b[12:16]))),
			Stamp:    binary.LittleEndian.Uint16(b[16:18]),
			Unknown1: binary.LittleEndian.Uint16(b[18:20]),
			Version:  binary.LittleEndian.Uint16(b[20:22]),
			Unknown2: binary.LittleEndian.Uint16(b[22:24]),
		}
		copy(g.Label[:], b[8:12])
		return GroupChunk(g), nil
	}

	return RecordChunk(RecordHeader{
		Tag:            tag,
		Size:           size,
		Flags:          RecordFlags(binary.LittleEndian.Uint32(b[8:12])),
		FormID:         FormID(binary.LittleEndian.Uint32(b[12:16])),
		Timestamp:      binary.LittleEndian.Uint16(b[16:18]),
		VersionControl: binary.LittleEndian.Uint16(b[18:20]),
		Version:        binary.LittleEndian.Uint16(b[20:22]),
		Unknown:        binary.LittleEndian.Uint16(b[22:24]),
	}), nil
}
