package parser

import (
	"github.com/cockroachdb/errors"

	"github.com/ssargent/esmkit/pkg/codec"
)

// compressedPrefix is the decompressed length that precedes the zlib stream.
const compressedPrefix = 4

// ParseRecordFields parses the fields of the record described by h, inflating
// the payload first when the record is compressed.
func (p *Parser) ParseRecordFields(h codec.RecordHeader, dec FieldDecoder) error {
	if h.Compressed() {
		return p.ParseCompressed(h, dec)
	}
	return p.ParseFields(dec, h.Size)
}

// ParseCompressed consumes the payload of a compressed record and parses the
// decompressed bytes as its field list. The fields are parsed by a child
// Parser that starts one level below the current depth and shares the
// localized flag; its counters are folded back into p.
func (p *Parser) ParseCompressed(h codec.RecordHeader, dec FieldDecoder) error {
	start := p.cur.pos
	if h.Size < compressedPrefix {
		return &ChunkError{
			Tag: h.Tag, Offset: start, Declared: uint64(h.Size),
			Reason: "compressed record too small for length prefix",
		}
	}

	hint, err := p.ReadUint32()
	if err != nil {
		return errors.Wrapf(err, "read decompressed length of %s %s", h.Tag, h.FormID)
	}
	data, err := p.Inflate(h.Size-compressedPrefix, hint)
	if err != nil {
		return errors.Wrapf(err, "record %s %s", h.Tag, h.FormID)
	}
	if consumed := p.cur.pos - start; consumed != int64(h.Size) {
		return &ChunkError{Tag: h.Tag, Offset: start, Declared: uint64(h.Size), Consumed: consumed}
	}
	if uint32(len(data)) != hint {
		p.logger.Debug("decompressed length differs from header",
			"tag", h.Tag.String(), "form_id", h.FormID.String(), "declared", hint, "actual", len(data))
	}

	sub := p.child(data)
	if err := sub.push(); err != nil {
		return err
	}
	err = sub.ParseFields(dec, uint32(len(data)))
	sub.pop()

	p.stats.add(sub.stats)
	p.stats.Compressed++
	p.stats.InflatedBytes += uint64(len(data))

	if err != nil {
		return errors.Wrapf(err, "compressed record %s %s", h.Tag, h.FormID)
	}
	return nil
}
