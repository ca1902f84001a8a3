package parser

import (
	"github.com/ssargent/esmkit/pkg/codec"
)

// FieldDecoder consumes exactly h.Size bytes of one field.
type FieldDecoder interface {
	DecodeField(p *Parser, h codec.FieldHeader) error
}

// FieldDecoderFunc adapts a function to FieldDecoder.
type FieldDecoderFunc func(p *Parser, h codec.FieldHeader) error

// DecodeField implements FieldDecoder.
func (f FieldDecoderFunc) DecodeField(p *Parser, h codec.FieldHeader) error {
	return f(p, h)
}

// RecordDecoder consumes exactly h.PayloadSize() bytes of one record or
// group, typically through ParseRecordFields or ParseRecords.
type RecordDecoder interface {
	DecodeRecord(p *Parser, h codec.Header) error
}

// RecordDecoderFunc adapts a function to RecordDecoder.
type RecordDecoderFunc func(p *Parser, h codec.Header) error

// DecodeRecord implements RecordDecoder.
func (f RecordDecoderFunc) DecodeRecord(p *Parser, h codec.Header) error {
	return f(p, h)
}

// SkipField skips a field's declared size.
var SkipField FieldDecoder = FieldDecoderFunc(func(p *Parser, h codec.FieldHeader) error {
	p.stats.Skipped++
	return p.Skip(int64(h.Size))
})

// SkipRecord skips a record's or group's payload.
var SkipRecord RecordDecoder = RecordDecoderFunc(func(p *Parser, h codec.Header) error {
	p.stats.Skipped++
	return p.Skip(int64(h.PayloadSize()))
})

// FieldTable dispatches fields to decoders by tag. Tags without a decoder go
// to Fallback, which is SkipField unless replaced.
type FieldTable struct {
	decoders map[codec.Tag]FieldDecoder
	Fallback FieldDecoder
}

// NewFieldTable returns an empty table that skips every field.
func NewFieldTable() *FieldTable {
	return &FieldTable{
		decoders: make(map[codec.Tag]FieldDecoder),
		Fallback: SkipField,
	}
}

// Register installs d for tag, replacing any previous decoder.
func (t *FieldTable) Register(tag codec.Tag, d FieldDecoder) *FieldTable {
	t.decoders[tag] = d
	return t
}

// Lookup returns the decoder for tag and whether one was registered.
func (t *FieldTable) Lookup(tag codec.Tag) (FieldDecoder, bool) {
	d, ok := t.decoders[tag]
	if !ok {
		return t.Fallback, false
	}
	return d, true
}

// Len returns the number of registered tags.
func (t *FieldTable) Len() int {
	return len(t.decoders)
}

// DecodeField implements FieldDecoder.
func (t *FieldTable) DecodeField(p *Parser, h codec.FieldHeader) error {
	d, ok := t.Lookup(h.Tag)
	if !ok {
		p.logger.Debug("unknown field", "tag", h.Tag.String(), "size", h.Size, "offset", p.cur.pos, "depth", p.depth)
	}
	return d.DecodeField(p, h)
}

// RecordTable dispatches records and groups to decoders by tag. Tags without
// a decoder go to Fallback, which is SkipRecord unless replaced.
type RecordTable struct {
	decoders map[codec.Tag]RecordDecoder
	Fallback RecordDecoder
}

// NewRecordTable returns an empty table that skips every record.
func NewRecordTable() *RecordTable {
	return &RecordTable{
		decoders: make(map[codec.Tag]RecordDecoder),
		Fallback: SkipRecord,
	}
}

// Register installs d for tag, replacing any previous decoder.
func (t *RecordTable) Register(tag codec.Tag, d RecordDecoder) *RecordTable {
	t.decoders[tag] = d
	return t
}

// Lookup returns the decoder for tag and whether one was registered.
func (t *RecordTable) Lookup(tag codec.Tag) (RecordDecoder, bool) {
	d, ok := t.decoders[tag]
	if !ok {
		return t.Fallback, false
	}
	return d, true
}

// Len returns the number of registered tags.
func (t *RecordTable) Len() int {
	return len(t.decoders)
}

// DecodeRecord implements RecordDecoder.
func (t *RecordTable) DecodeRecord(p *Parser, h codec.Header) error {
	d, ok := t.Lookup(h.Tag())
	if !ok {
		p.logger.Debug("unknown record", "tag", h.Tag().String(), "size", h.PayloadSize(), "offset", p.cur.pos, "depth", p.depth)
	}
	return d.DecodeRecord(p, h)
}
