package esm

import "github.com/ssargent/esmkit/pkg/codec"

// HeaderData is the HEDR field of the TES4 file header.
type HeaderData struct {
	Version      float32
	Records      uint32
	NextObjectID uint32
}

// ObjectBounds is the OBND field: two corners of an axis aligned box.
type ObjectBounds struct {
	X1, Y1, Z1 int16
	X2, Y2, Z2 int16
}

// FactionRelation is a FACT XNAM entry.
type FactionRelation struct {
	Faction  codec.FormID
	Modifier int32
	Reaction uint32
}

// ContainerItem is a CNTO entry.
type ContainerItem struct {
	Item  codec.FormID
	Count int32
}

// EffectItem is an EFIT entry of a spell, enchantment or ingestible.
type EffectItem struct {
	Magnitude  uint32
	Area       uint32
	Duration   uint32
	Type       uint32
	ActorValue int32
}

// CriticalData is the WEAP CRDT field.
type CriticalData struct {
	Damage     uint16
	_          [2]byte
	Multiplier float32
	Flags      uint8
	_          [3]byte
	Effect     codec.FormID
}

// Attributes is the CLAS ATTR field, one byte per SPECIAL attribute.
type Attributes [7]uint8
