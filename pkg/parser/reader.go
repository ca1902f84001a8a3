package parser

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zlib"

	"github.com/ssargent/esmkit/pkg/codec"
)

// maxInflateHint caps the preallocation taken from a record's declared
// decompressed length.
const maxInflateHint = 64 << 20

// Read decodes a fixed-size little-endian value into v, which must be a
// pointer to a fixed-size type as understood by encoding/binary.
func (p *Parser) Read(v any) error {
	n := binary.Size(v)
	if n < 0 {
		return errors.Newf("cannot read %T: not a fixed-size value", v)
	}
	if int64(n) > p.cur.remaining() {
		return io.ErrUnexpectedEOF
	}
	if err := binary.Read(p.cur, binary.LittleEndian, v); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

func (p *Parser) readN(n int) ([]byte, error) {
	var scratch [8]byte
	b := scratch[:n]
	if err := p.cur.readFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadUint8 reads one byte.
func (p *Parser) ReadUint8() (uint8, error) {
	b, err := p.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (p *Parser) ReadUint16() (uint16, error) {
	b, err := p.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadUint32 reads a little-endian uint32.
func (p *Parser) ReadUint32() (uint32, error) {
	b, err := p.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadUint64 reads a little-endian uint64.
func (p *Parser) ReadUint64() (uint64, error) {
	b, err := p.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadFloat32 reads a little-endian IEEE 754 float.
func (p *Parser) ReadFloat32() (float32, error) {
	v, err := p.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFormID reads a 4 byte form id.
func (p *Parser) ReadFormID() (codec.FormID, error) {
	v, err := p.ReadUint32()
	return codec.FormID(v), err
}

// ReadBytes reads exactly n bytes.
func (p *Parser) ReadBytes(n int) ([]byte, error) {
	if n < 0 || int64(n) > p.cur.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if err := p.cur.readFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ZString reads an n byte string field. The bytes are returned as stored,
// normally including the trailing NUL.
func (p *Parser) ZString(n uint16) ([]byte, error) {
	return p.ReadBytes(int(n))
}

// LString reads a string field that may be localized. Without the localized
// flag it is identical to ZString; with it the field holds a string table key,
// which this package does not resolve, and ErrUnsupported is returned.
func (p *Parser) LString(n uint16) ([]byte, error) {
	if p.localized {
		return nil, errors.Wrapf(ErrUnsupported, "lstring of %d bytes at offset %d", n, p.cur.pos)
	}
	return p.ZString(n)
}

// Skip advances the cursor by n bytes without interpreting them.
func (p *Parser) Skip(n int64) error {
	return p.cur.skip(n)
}

// Inflate reads n bytes and decompresses them as one zlib stream. hint is the
// expected decompressed length and only sizes the initial buffer. Output
// beyond the parser's inflate limit fails with ErrDecompress before it is
// buffered.
func (p *Parser) Inflate(n uint32, hint uint32) ([]byte, error) {
	raw, err := p.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "open zlib stream"), ErrDecompress)
	}
	defer zr.Close()

	var out bytes.Buffer
	out.Grow(int(min(uint64(hint), maxInflateHint, p.maxInflate)))
	if _, err := io.Copy(&out, io.LimitReader(zr, int64(p.maxInflate)+1)); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "inflate"), ErrDecompress)
	}
	if uint64(out.Len()) > p.maxInflate {
		return nil, errors.Mark(
			errors.Newf("decompressed payload exceeds %d bytes", p.maxInflate), ErrDecompress)
	}
	return out.Bytes(), nil
}

// ReadFieldHeader reads a 6 byte field header. The loops call it for every
// field; decoders only need it for fields that describe the one after them.
func (p *Parser) ReadFieldHeader() (codec.FieldHeader, error) {
	b, err := p.readN(codec.FieldHeaderSize)
	if err != nil {
		return codec.FieldHeader{}, err
	}
	return codec.DecodeFieldHeader(b)
}

func (p *Parser) readHeader() (codec.Header, error) {
	var raw [codec.HeaderSize]byte
	if err := p.cur.readFull(raw[:]); err != nil {
		return codec.Header{}, err
	}
	h, err := codec.DecodeHeader(raw[:])
	if err != nil {
		return codec.Header{}, errors.Mark(err, ErrParse)
	}
	return h, nil
}
