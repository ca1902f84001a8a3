package esm

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/parser"
)

var errStopWalk = errors.New("stop walk")

// decoder builds a File while the parser walks the input. The parser is
// single threaded so the group stack and current record need no locking.
type decoder struct {
	registry *Registry
	trace    io.Writer

	file   *File
	groups []*Group
	cur    *Record

	records *parser.RecordTable
	tables  map[codec.Tag]*parser.FieldTable
}

func newDecoder(registry *Registry, trace io.Writer) *decoder {
	d := &decoder{
		registry: registry,
		trace:    trace,
		file:     &File{},
		tables:   make(map[codec.Tag]*parser.FieldTable),
		records:  parser.NewRecordTable(),
	}

	d.records.Fallback = parser.RecordDecoderFunc(d.decodeUnknown)
	for _, tag := range registry.Tags() {
		s, _ := registry.Lookup(tag)
		d.records.Register(tag, d.decodeRecord(s))
	}
	d.records.Register(codec.TagGroup, parser.RecordDecoderFunc(d.decodeGroup))
	if s, ok := registry.Lookup(codec.TagHeader); ok {
		d.records.Register(codec.TagHeader, d.decodeFileHeader(s))
	}
	return d
}

func (d *decoder) decodeGroup(p *parser.Parser, h codec.Header) error {
	g := &Group{Header: h.Group, Offset: p.Position() - codec.HeaderSize}
	d.tracef(p, "%s", h.Group)

	if n := len(d.groups); n > 0 {
		parent := d.groups[n-1]
		parent.Groups = append(parent.Groups, g)
	} else {
		d.file.Groups = append(d.file.Groups, g)
	}

	d.groups = append(d.groups, g)
	defer func() { d.groups = d.groups[:len(d.groups)-1] }()

	return p.ParseRecords(d.records, uint64(h.Group.PayloadSize()))
}

func (d *decoder) decodeFileHeader(s *Schema) parser.RecordDecoder {
	fields := d.fieldTable(s)
	return parser.RecordDecoderFunc(func(p *parser.Parser, h codec.Header) error {
		rec := d.newRecord(p, h)
		d.tracef(p, "%s", h.Record)

		localized := h.Record.Flags.Has(codec.FlagLocalized)
		if err := p.SetLocalized(localized); err != nil {
			return errors.Wrapf(err, "file header at offset %d", rec.Offset)
		}
		d.file.Localized = localized
		if d.file.Header == nil {
			d.file.Header = rec
		} else {
			d.attach(rec)
		}

		d.cur = rec
		return p.ParseRecordFields(h.Record, fields)
	})
}

func (d *decoder) decodeRecord(s *Schema) parser.RecordDecoder {
	if s.SkipPayload {
		return parser.RecordDecoderFunc(func(p *parser.Parser, h codec.Header) error {
			rec := d.newRecord(p, h)
			rec.Skipped = true
			d.attach(rec)
			return parser.SkipRecord.DecodeRecord(p, h)
		})
	}

	fields := d.fieldTable(s)
	return parser.RecordDecoderFunc(func(p *parser.Parser, h codec.Header) error {
		rec := d.newRecord(p, h)
		d.tracef(p, "%s", h.Record)
		d.attach(rec)

		d.cur = rec
		return p.ParseRecordFields(h.Record, fields)
	})
}

func (d *decoder) decodeUnknown(p *parser.Parser, h codec.Header) error {
	rec := d.newRecord(p, h)
	rec.Skipped = true
	d.tracef(p, "%s unknown record", h.Record)
	d.attach(rec)
	return parser.SkipRecord.DecodeRecord(p, h)
}

func (d *decoder) newRecord(p *parser.Parser, h codec.Header) *Record {
	return &Record{Header: h.Record, Offset: p.Position() - codec.HeaderSize}
}

func (d *decoder) attach(rec *Record) {
	if n := len(d.groups); n > 0 {
		g := d.groups[n-1]
		g.Records = append(g.Records, rec)
		return
	}
	d.file.Records = append(d.file.Records, rec)
}

// fieldTable returns the dispatch table for a schema, building it once.
func (d *decoder) fieldTable(s *Schema) *parser.FieldTable {
	if t, ok := d.tables[s.Tag]; ok {
		return t
	}
	t := parser.NewFieldTable()
	t.Fallback = parser.FieldDecoderFunc(d.decodeUnknownField)
	for tag, spec := range s.Fields {
		t.Register(tag, d.fieldDecoder(spec))
	}
	d.tables[s.Tag] = t
	return t
}

func (d *decoder) fieldDecoder(spec FieldSpec) parser.FieldDecoder {
	switch spec.Kind {
	case KindOverride:
		return parser.FieldDecoderFunc(d.decodeOverride)
	case KindSkip:
		return parser.FieldDecoderFunc(func(p *parser.Parser, h codec.FieldHeader) error {
			d.addField(h.Tag, uint32(h.Size), nil)
			d.tracef(p, "%s skipped", h)
			return parser.SkipField.DecodeField(p, h)
		})
	}
	return parser.FieldDecoderFunc(func(p *parser.Parser, h codec.FieldHeader) error {
		v, err := readValue(p, h, spec)
		if err != nil {
			return errors.Wrapf(err, "%s %s field %s", d.cur.Header.Tag, d.cur.Header.FormID, h.Tag)
		}
		d.addField(h.Tag, uint32(h.Size), v)
		d.tracef(p, "%s %s", h, formatValue(v))
		return nil
	})
}

func (d *decoder) decodeUnknownField(p *parser.Parser, h codec.FieldHeader) error {
	d.addField(h.Tag, uint32(h.Size), nil)
	d.tracef(p, "%s unknown field", h)
	return parser.SkipField.DecodeField(p, h)
}

// decodeOverride handles XXXX, whose u32 payload is the real size of the
// next field. The next field's own header is read and its payload skipped
// using the override. The bytes consumed exceed XXXX's declared size, so
// this only passes the byte accounting when the oversized field is the last
// one in its record, which is where files put it.
func (d *decoder) decodeOverride(p *parser.Parser, h codec.FieldHeader) error {
	size, err := p.ReadUint32()
	if err != nil {
		return errors.Wrapf(err, "read %s", h.Tag)
	}
	d.addField(h.Tag, uint32(h.Size), size)
	d.tracef(p, "%s %d", h, size)

	next, err := p.ReadFieldHeader()
	if err != nil {
		return errors.Wrapf(err, "read field after %s", h.Tag)
	}
	d.tracef(p, "%s", next)
	d.addField(next.Tag, size, nil)
	return p.Skip(int64(size))
}

func (d *decoder) addField(tag codec.Tag, size uint32, v any) {
	d.cur.Fields = append(d.cur.Fields, Field{Tag: tag, Size: size, Value: v})
}

func (d *decoder) tracef(p *parser.Parser, format string, args ...any) {
	if d.trace == nil {
		return
	}
	indent := strings.Repeat(" ", int(p.Depth())*2)
	fmt.Fprintf(d.trace, indent+format+"\n", args...)
}

func readValue(p *parser.Parser, h codec.FieldHeader, spec FieldSpec) (any, error) {
	switch spec.Kind {
	case KindZString:
		b, err := p.ZString(h.Size)
		if err != nil {
			return nil, err
		}
		return decodeString(b), nil
	case KindLString:
		b, err := p.LString(h.Size)
		if err != nil {
			return nil, err
		}
		return decodeString(b), nil
	case KindUint8:
		return orNil(p.ReadUint8())
	case KindUint16:
		return orNil(p.ReadUint16())
	case KindUint32:
		return orNil(p.ReadUint32())
	case KindUint64:
		return orNil(p.ReadUint64())
	case KindFloat32:
		return orNil(p.ReadFloat32())
	case KindFormID:
		return orNil(p.ReadFormID())
	case KindStruct:
		if spec.New == nil {
			return orNil(p.ReadBytes(spec.Width))
		}
		v := spec.New()
		if err := p.Read(v); err != nil {
			return nil, err
		}
		return v, nil
	case KindBytes:
		return orNil(p.ReadBytes(int(h.Size)))
	}
	return nil, errors.Newf("field %s: unsupported kind %s", h.Tag, spec.Kind)
}

func orNil[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []byte:
		if len(v) > 16 {
			return fmt.Sprintf("[%d bytes]", len(v))
		}
		return hex.EncodeToString(v)
	case codec.FormID:
		return v.String()
	case uint32:
		return fmt.Sprintf("%#010x", v)
	}
	return fmt.Sprintf("%+v", v)
}
