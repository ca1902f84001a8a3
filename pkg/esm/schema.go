package esm

import (
	"fmt"
	"sort"

	"github.com/ssargent/esmkit/pkg/codec"
)

// Kind selects how a field payload is read.
type Kind uint8

// Field kinds.
const (
	KindBytes   Kind = iota // opaque, declared size
	KindZString             // NUL terminated Windows-1252 text
	KindLString             // like KindZString unless the file is localized
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFormID
	KindStruct   // fixed width, decoded into a typed value when New is set
	KindSkip     // consumed without keeping the payload
	KindOverride // XXXX: carries the size of the field that follows it
)

var kindNames = [...]string{
	KindBytes:    "bytes",
	KindZString:  "zstring",
	KindLString:  "lstring",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFormID:   "formid",
	KindStruct:   "struct",
	KindSkip:     "skip",
	KindOverride: "override",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// FieldSpec describes one known field of a record type.
type FieldSpec struct {
	Kind Kind
	// Width is the on-disk size of a KindStruct field. The field's declared
	// size must match it or the parse fails with a misconsumption error.
	Width int
	// New returns a pointer to a fixed-size value a KindStruct field is
	// decoded into. Nil keeps the raw bytes.
	New func() any
}

// Schema lists the fields decoded for one record type. Fields not listed are
// kept with a nil value.
type Schema struct {
	Tag    codec.Tag
	Fields map[codec.Tag]FieldSpec
	// SkipPayload skips the record body entirely without reading fields.
	SkipPayload bool
}

// Field returns the spec for tag.
func (s *Schema) Field(tag codec.Tag) (FieldSpec, bool) {
	spec, ok := s.Fields[tag]
	return spec, ok
}

type fieldDef struct {
	tag  codec.Tag
	spec FieldSpec
}

func def(tag string, spec FieldSpec) fieldDef {
	return fieldDef{tag: codec.MustTag(tag), spec: spec}
}

func structOf(width int) FieldSpec {
	return FieldSpec{Kind: KindStruct, Width: width}
}

func typed[T any](width int) FieldSpec {
	return FieldSpec{Kind: KindStruct, Width: width, New: func() any { return new(T) }}
}

var (
	zstring = FieldSpec{Kind: KindZString}
	lstring = FieldSpec{Kind: KindLString}
	u8      = FieldSpec{Kind: KindUint8}
	u16     = FieldSpec{Kind: KindUint16}
	u32     = FieldSpec{Kind: KindUint32}
	u64     = FieldSpec{Kind: KindUint64}
	f32     = FieldSpec{Kind: KindFloat32}
	formID  = FieldSpec{Kind: KindFormID}
	opaque  = FieldSpec{Kind: KindBytes}
	skip    = FieldSpec{Kind: KindSkip}
)

func newSchema(tag string, groups ...[]fieldDef) *Schema {
	s := &Schema{Tag: codec.MustTag(tag), Fields: make(map[codec.Tag]FieldSpec)}
	for _, g := range groups {
		for _, d := range g {
			s.Fields[d.tag] = d.spec
		}
	}
	return s
}

// Registry maps record tags to schemas.
type Registry struct {
	schemas map[codec.Tag]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[codec.Tag]*Schema)}
}

// Add registers s, replacing any schema with the same tag.
func (r *Registry) Add(s *Schema) *Registry {
	r.schemas[s.Tag] = s
	return r
}

// Lookup returns the schema registered for tag.
func (r *Registry) Lookup(tag codec.Tag) (*Schema, bool) {
	s, ok := r.schemas[tag]
	return s, ok
}

// Tags returns the registered record tags in sorted order.
func (r *Registry) Tags() []codec.Tag {
	tags := make([]codec.Tag, 0, len(r.schemas))
	for t := range r.schemas {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags
}

// Len returns the number of registered record types.
func (r *Registry) Len() int {
	return len(r.schemas)
}
