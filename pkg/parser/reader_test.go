package parser

import (
	"bytes"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/internal/esmtest"
	"github.com/ssargent/esmkit/pkg/codec"
)

func TestReader_FixedValues(t *testing.T) {
	buf := esmtest.Concat(
		[]byte{0x7f},
		esmtest.U16(0xBEEF),
		esmtest.U32(0xDEADBEEF),
		esmtest.U64(1<<40+3),
		esmtest.F32(0.25),
		esmtest.U32(0x0001F00D),
	)
	p := NewBytes(buf)

	u8, err := p.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x7f), u8)

	u16, err := p.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), u16)

	u32, err := p.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := p.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40+3), u64)

	f32, err := p.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), f32)

	id, err := p.ReadFormID()
	require.NoError(t, err)
	assert.Equal(t, codec.FormID(0x0001F00D), id)

	assert.Equal(t, int64(len(buf)), p.Position())

	_, err = p.ReadUint8()
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestReader_ReadStruct(t *testing.T) {
	type hedr struct {
		Version      float32
		Records      uint32
		NextObjectID uint32
	}
	p := NewBytes(esmtest.Concat(esmtest.F32(0.94), esmtest.U32(12), esmtest.U32(0x800)))

	var h hedr
	require.NoError(t, p.Read(&h))
	assert.Equal(t, hedr{Version: 0.94, Records: 12, NextObjectID: 0x800}, h)

	var again hedr
	assert.True(t, errors.Is(p.Read(&again), io.ErrUnexpectedEOF))

	var notFixed string
	assert.Error(t, p.Read(&notFixed))
}

func TestReader_Strings(t *testing.T) {
	raw := esmtest.ZString("Vault 101")

	t.Run("lstring matches zstring when not localized", func(t *testing.T) {
		z, err := NewBytes(raw).ZString(uint16(len(raw)))
		require.NoError(t, err)
		l, err := NewBytes(raw).LString(uint16(len(raw)))
		require.NoError(t, err)
		assert.Equal(t, z, l)
		assert.Equal(t, raw, z)
	})

	t.Run("lstring fails when localized", func(t *testing.T) {
		p := NewBytes(raw)
		require.NoError(t, p.SetLocalized(true))
		b, err := p.LString(uint16(len(raw)))
		assert.Nil(t, b)
		assert.True(t, errors.Is(err, ErrUnsupported))
	})

	t.Run("set localized only once", func(t *testing.T) {
		p := NewBytes(raw)
		require.NoError(t, p.SetLocalized(false))
		assert.True(t, errors.Is(p.SetLocalized(true), ErrLocalizedSet))
		assert.False(t, p.Localized())
	})
}

func TestReader_Skip(t *testing.T) {
	p := NewBytes(make([]byte, 10))
	require.NoError(t, p.Skip(4))
	assert.Equal(t, int64(4), p.Position())

	assert.True(t, errors.Is(p.Skip(7), io.ErrUnexpectedEOF))
	assert.Equal(t, int64(4), p.Position(), "failed skip does not move")

	require.NoError(t, p.Skip(6))
	assert.Equal(t, p.Len(), p.Position())
}

func TestReader_Inflate(t *testing.T) {
	plain := bytes.Repeat([]byte("dungeon"), 50)
	z := esmtest.Deflate(plain)
	p := NewBytes(z)

	out, err := p.Inflate(uint32(len(z)), uint32(len(plain)))
	require.NoError(t, err)
	assert.Equal(t, plain, out)
	assert.Equal(t, int64(len(z)), p.Position())

	_, err = NewBytes([]byte{0x78, 0x9c, 0xff}).Inflate(3, 0)
	assert.True(t, errors.Is(err, ErrDecompress))
}

func TestReader_InflateLimit(t *testing.T) {
	plain := make([]byte, 1<<20)
	z := esmtest.Deflate(plain)

	t.Run("over the limit", func(t *testing.T) {
		p := NewBytes(z, WithMaxInflate(1024))
		_, err := p.Inflate(uint32(len(z)), uint32(len(plain)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDecompress))
		assert.Contains(t, err.Error(), "exceeds 1024 bytes")
	})

	t.Run("exactly the limit", func(t *testing.T) {
		p := NewBytes(z, WithMaxInflate(uint64(len(plain))))
		out, err := p.Inflate(uint32(len(z)), uint32(len(plain)))
		require.NoError(t, err)
		assert.Len(t, out, len(plain))
	})

	t.Run("compressed record inherits the limit", func(t *testing.T) {
		rec := esmtest.CompressedRecord("WEAP", 0x10, 0,
			esmtest.Field("DATA", make([]byte, 4096)),
		)
		p := NewBytes(rec, WithMaxInflate(512))
		err := p.ParseTopLevel(walker(&collector{}))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDecompress))
	})
}

func TestNew_SeekableSource(t *testing.T) {
	buf := esmtest.Record("TEST", 1, 0, esmtest.Field("DATA", esmtest.U32(7)))
	r := bytes.NewReader(buf)

	p, err := New(r)
	require.NoError(t, err)
	assert.Equal(t, int64(len(buf)), p.Len())
	require.NoError(t, p.ParseTopLevel(walker(SkipField)))
}

func TestDispatch_Tables(t *testing.T) {
	edid := codec.MustTag("EDID")
	fields := NewFieldTable()
	assert.Equal(t, 0, fields.Len())

	_, ok := fields.Lookup(edid)
	assert.False(t, ok)

	fields.Register(edid, &collector{})
	d, ok := fields.Lookup(edid)
	assert.True(t, ok)
	assert.IsType(t, &collector{}, d)

	records := NewRecordTable()
	records.Fallback = RecordDecoderFunc(func(*Parser, codec.Header) error {
		return errors.New("no decoder")
	})
	buf := esmtest.Record("ZZZZ", 1, 0)
	err := NewBytes(buf).ParseTopLevel(records)
	assert.EqualError(t, err, "no decoder")
}
