package parser

import (
	"github.com/ssargent/esmkit/pkg/codec"
)

// ParseFields iterates the fields making up totalSize bytes from the current
// position, handing each to dec. Each decoder call must advance the cursor by
// exactly the field's declared size, or finish exactly at the end of the
// span; otherwise a *ChunkError is returned.
func (p *Parser) ParseFields(dec FieldDecoder, totalSize uint32) error {
	if totalSize == 0 {
		return nil
	}
	loopEnd := p.cur.pos + int64(totalSize)

	if err := p.push(); err != nil {
		return err
	}
	defer p.pop()

	for {
		if loopEnd-p.cur.pos < codec.FieldHeaderSize {
			return &ChunkError{
				Offset:   p.cur.pos,
				Declared: codec.FieldHeaderSize,
				Consumed: loopEnd - p.cur.pos,
				Reason:   "field header crosses end of span",
			}
		}
		h, err := p.ReadFieldHeader()
		if err != nil {
			return err
		}
		start := p.cur.pos
		end := start + int64(h.Size)
		p.stats.Fields++

		if err := dec.DecodeField(p, h); err != nil {
			return err
		}

		pos := p.cur.pos
		switch {
		case pos == loopEnd:
			return nil
		case pos != end:
			return &ChunkError{Tag: h.Tag, Offset: start, Declared: uint64(h.Size), Consumed: pos - start}
		case pos > loopEnd:
			return &ChunkError{
				Tag: h.Tag, Offset: start, Declared: uint64(h.Size), Consumed: pos - start,
				Reason: "field overruns enclosing chunk",
			}
		}
	}
}

// ParseRecords iterates the records and groups making up totalSize bytes from
// the current position. Record headers declare their payload size while
// group headers declare their full size; dec always sees the header as
// decoded and should consume Header.PayloadSize bytes.
func (p *Parser) ParseRecords(dec RecordDecoder, totalSize uint64) error {
	if totalSize == 0 {
		return nil
	}
	loopEnd := p.cur.pos + int64(totalSize)

	if err := p.push(); err != nil {
		return err
	}
	defer p.pop()

	for {
		start := p.cur.pos
		if loopEnd-start < codec.HeaderSize {
			return &ChunkError{
				Offset:   start,
				Declared: codec.HeaderSize,
				Consumed: loopEnd - start,
				Reason:   "record header crosses end of span",
			}
		}
		h, err := p.readHeader()
		if err != nil {
			return err
		}
		end := start + int64(h.Span())
		if h.IsGroup() {
			p.stats.Groups++
		} else {
			p.stats.Records++
		}

		if err := dec.DecodeRecord(p, h); err != nil {
			return err
		}

		pos := p.cur.pos
		payload := start + codec.HeaderSize
		switch {
		case pos == loopEnd:
			return nil
		case pos != end:
			return &ChunkError{Tag: h.Tag(), Offset: payload, Declared: uint64(h.PayloadSize()), Consumed: pos - payload}
		case pos > loopEnd:
			return &ChunkError{
				Tag: h.Tag(), Offset: payload, Declared: uint64(h.PayloadSize()), Consumed: pos - payload,
				Reason: "chunk overruns enclosing group",
			}
		}
	}
}

// ParseTopLevel measures the whole input, rewinds to its start and parses it
// as a sequence of records and groups.
func (p *Parser) ParseTopLevel(dec RecordDecoder) error {
	if err := p.cur.rewind(); err != nil {
		return err
	}
	return p.ParseRecords(dec, uint64(p.cur.size))
}
