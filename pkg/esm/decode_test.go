package esm

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/esmkit/internal/esmtest"
	"github.com/ssargent/esmkit/pkg/codec"
	"github.com/ssargent/esmkit/pkg/parser"
)

func i16(v int16) []byte {
	return esmtest.U16(uint16(v))
}

func bounds() []byte {
	return esmtest.Concat(i16(-16), i16(-4), i16(0), i16(16), i16(4), i16(32))
}

func sampleFile() []byte {
	return esmtest.Concat(
		esmtest.FileHeader(0, 4,
			esmtest.Field("CNAM", esmtest.ZString("tester")),
			esmtest.Field("MAST", esmtest.ZString("Fallout3.esm")),
			esmtest.Field("DATA", esmtest.U64(0)),
		),
		esmtest.Group("GLOB",
			esmtest.Record("GLOB", 0x14, 0,
				esmtest.Field("EDID", esmtest.ZString("GameYear")),
				esmtest.Field("FNAM", []byte{'s'}),
				esmtest.Field("FLTV", esmtest.F32(2277)),
			),
		),
		esmtest.Group("WEAP",
			esmtest.CompressedRecord("WEAP", 0x1F00D, 0,
				esmtest.Field("EDID", esmtest.ZString("Gun10mm")),
				esmtest.Field("FULL", esmtest.ZString("10mm Pistol")),
				esmtest.Field("OBND", bounds()),
				esmtest.Field("CRDT", esmtest.Concat(
					esmtest.U16(25), []byte{0, 0}, esmtest.F32(2), []byte{1, 0, 0, 0}, esmtest.U32(0x42),
				)),
				esmtest.Field("QQQQ", []byte{1, 2}),
			),
		),
		esmtest.Group("REFR",
			esmtest.Record("REFR", 0x99, 0, esmtest.Field("NAME", esmtest.U32(1))),
		),
		esmtest.Group("ZZZZ",
			esmtest.Record("ZZZZ", 0x5, 0, esmtest.Field("EDID", esmtest.ZString("x"))),
		),
	)
}

func TestDecode_SampleFile(t *testing.T) {
	f, err := DecodeBytes(sampleFile())
	require.NoError(t, err)

	require.NotNil(t, f.Header)
	assert.Equal(t, codec.TagHeader, f.Header.Header.Tag)
	hedr, ok := f.Header.Field(codec.MustTag("HEDR"))
	require.True(t, ok)
	assert.Equal(t, &HeaderData{Version: 0.94, Records: 4, NextObjectID: 0x800}, hedr.Value)
	cnam, _ := f.Header.Field(codec.MustTag("CNAM"))
	assert.Equal(t, "tester", cnam.Value)
	assert.False(t, f.Localized)

	require.Len(t, f.Groups, 4)
	assert.Empty(t, f.Records)

	glob := f.Groups[0].Records[0]
	assert.Equal(t, "GameYear", glob.EditorID())
	fnam, _ := glob.Field(codec.MustTag("FNAM"))
	assert.Equal(t, uint8('s'), fnam.Value)
	fltv, _ := glob.Field(codec.MustTag("FLTV"))
	assert.Equal(t, float32(2277), fltv.Value)

	weap := f.Groups[1].Records[0]
	assert.True(t, weap.Header.Compressed())
	assert.Equal(t, "Gun10mm", weap.EditorID())
	assert.Equal(t, "10mm Pistol", weap.FullName())
	obnd, _ := weap.Field(codec.MustTag("OBND"))
	assert.Equal(t, &ObjectBounds{X1: -16, Y1: -4, Z1: 0, X2: 16, Y2: 4, Z2: 32}, obnd.Value)
	crdt, _ := weap.Field(codec.MustTag("CRDT"))
	assert.Equal(t, &CriticalData{Damage: 25, Multiplier: 2, Flags: 1, Effect: 0x42}, crdt.Value)
	unknown, ok := weap.Field(codec.MustTag("QQQQ"))
	require.True(t, ok)
	assert.Nil(t, unknown.Value)
	assert.Equal(t, uint32(2), unknown.Size)

	refr := f.Groups[2].Records[0]
	assert.True(t, refr.Skipped)
	assert.Empty(t, refr.Fields)

	other := f.Groups[3].Records[0]
	assert.True(t, other.Skipped)

	assert.Equal(t, uint64(4), f.Stats.Groups)
	assert.Equal(t, uint64(5), f.Stats.Records)
	assert.Equal(t, uint64(1), f.Stats.Compressed)
	assert.Equal(t, uint64(3), f.Stats.Skipped, "unknown field, REFR body and unknown record")

	assert.Equal(t, 5, f.Count())
	found, ok := f.Find(0x1F00D)
	require.True(t, ok)
	assert.Same(t, weap, found)
	_, ok = f.Find(0)
	assert.False(t, ok, "file header is not a form")
}

func TestDecode_Offsets(t *testing.T) {
	buf := sampleFile()
	f, err := DecodeBytes(buf)
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.Header.Offset)
	require.NoError(t, f.Walk(func(_ []*Group, r *Record) error {
		h, err := codec.DecodeHeader(buf[r.Offset:])
		require.NoError(t, err)
		assert.Equal(t, r.Header.FormID, h.Record.FormID)
		return nil
	}))
	for _, g := range f.Groups {
		assert.Equal(t, []byte("GRUP"), buf[g.Offset:g.Offset+4])
	}
}

func TestDecode_Localized(t *testing.T) {
	t.Run("lstring fails", func(t *testing.T) {
		buf := esmtest.Concat(
			esmtest.FileHeader(esmtest.FlagLocalized, 1),
			esmtest.Group("WEAP", esmtest.Record("WEAP", 1, 0, esmtest.Field("FULL", esmtest.U32(1234)))),
		)
		f, err := DecodeBytes(buf)
		assert.Nil(t, f)
		assert.True(t, errors.Is(err, parser.ErrUnsupported), "got %v", err)
	})

	t.Run("lstring fails inside compressed record", func(t *testing.T) {
		buf := esmtest.Concat(
			esmtest.FileHeader(esmtest.FlagLocalized, 1),
			esmtest.Group("WEAP", esmtest.CompressedRecord("WEAP", 1, 0, esmtest.Field("FULL", esmtest.U32(1234)))),
		)
		_, err := DecodeBytes(buf)
		assert.True(t, errors.Is(err, parser.ErrUnsupported), "got %v", err)
	})

	t.Run("zstrings still decode", func(t *testing.T) {
		buf := esmtest.Concat(
			esmtest.FileHeader(esmtest.FlagLocalized, 1),
			esmtest.Group("WEAP", esmtest.Record("WEAP", 1, 0, esmtest.Field("EDID", esmtest.ZString("Gun")))),
		)
		f, err := DecodeBytes(buf)
		require.NoError(t, err)
		assert.True(t, f.Localized)
		assert.Equal(t, "Gun", f.Groups[0].Records[0].EditorID())
	})

	t.Run("second file header", func(t *testing.T) {
		buf := esmtest.Concat(esmtest.FileHeader(0, 0), esmtest.FileHeader(0, 0))
		_, err := DecodeBytes(buf)
		assert.True(t, errors.Is(err, parser.ErrLocalizedSet), "got %v", err)
	})
}

func TestDecode_WorldOverride(t *testing.T) {
	blob := bytes.Repeat([]byte{0xAB}, 70000)

	t.Run("oversized field last", func(t *testing.T) {
		buf := esmtest.Group("WRLD",
			esmtest.Record("WRLD", 0x3C, 0,
				esmtest.Field("EDID", esmtest.ZString("Wasteland")),
				esmtest.Field("XXXX", esmtest.U32(uint32(len(blob)))),
				esmtest.FieldHeader("OFST", 0),
				blob,
			),
		)
		f, err := DecodeBytes(buf)
		require.NoError(t, err)

		wrld := f.Groups[0].Records[0]
		require.Len(t, wrld.Fields, 3)
		assert.Equal(t, "Wasteland", wrld.EditorID())
		assert.Equal(t, uint32(len(blob)), wrld.Fields[1].Value)
		assert.Equal(t, codec.MustTag("OFST"), wrld.Fields[2].Tag)
		assert.Equal(t, uint32(len(blob)), wrld.Fields[2].Size)
	})

	t.Run("fields after the oversized one", func(t *testing.T) {
		buf := esmtest.Group("WRLD",
			esmtest.Record("WRLD", 0x3C, 0,
				esmtest.Field("XXXX", esmtest.U32(uint32(len(blob)))),
				esmtest.FieldHeader("OFST", 0),
				blob,
				esmtest.Field("CNAM", esmtest.U32(7)),
			),
		)
		_, err := DecodeBytes(buf)
		assert.True(t, errors.Is(err, parser.ErrParse), "got %v", err)
	})
}

func TestDecode_Failures(t *testing.T) {
	testCases := []struct {
		name  string
		buf   []byte
		isErr error
	}{
		{
			name: "numeric field narrower than its kind",
			buf: esmtest.Group("GLOB",
				esmtest.Record("GLOB", 1, 0, esmtest.Field("FLTV", esmtest.U16(1))),
				esmtest.Record("GLOB", 2, 0, esmtest.Field("EDID", esmtest.ZString("x"))),
			),
			isErr: parser.ErrParse,
		},
		{
			name: "struct field wider than declared",
			buf: esmtest.Group("STAT",
				esmtest.Record("STAT", 1, 0, esmtest.Field("OBND", bounds()[:6])),
				esmtest.Record("STAT", 2, 0, esmtest.Field("EDID", esmtest.ZString("x"))),
			),
			isErr: parser.ErrParse,
		},
		{
			name:  "truncated record",
			buf:   esmtest.Record("GLOB", 1, 0, esmtest.Field("EDID", esmtest.ZString("x")))[:30],
			isErr: io.ErrUnexpectedEOF,
		},
		{
			name:  "corrupt compressed record",
			buf:   esmtest.Concat(esmtest.RecordHeader("WEAP", 8, esmtest.FlagCompressed, 1), esmtest.U32(4), []byte{9, 9, 9, 9}),
			isErr: parser.ErrDecompress,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := DecodeBytes(tc.buf)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, tc.isErr), "got %v", err)
		})
	}
}

func TestDecode_Trace(t *testing.T) {
	buf := esmtest.Concat(
		esmtest.Group("GLOB",
			esmtest.Record("GLOB", 0x14, 0, esmtest.Field("EDID", esmtest.ZString("GameYear"))),
		),
		esmtest.Group("WEAP",
			esmtest.CompressedRecord("WEAP", 0x15, 0, esmtest.Field("EDID", esmtest.ZString("Gun"))),
		),
	)
	var out bytes.Buffer
	_, err := DecodeBytes(buf, WithTrace(&out))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "  GRUP Top GLOB size=63", lines[0])
	assert.Equal(t, "    GLOB 00000014 size=15 flags=00000000", lines[1])
	assert.Equal(t, `      EDID[9] "GameYear"`, lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "  GRUP Top WEAP"))
	assert.True(t, strings.HasPrefix(lines[4], "    WEAP 00000015"))
	assert.Equal(t, `        EDID[4] "Gun"`, lines[5], "compressed fields sit one level deeper")
}

func TestDecode_MaxDepth(t *testing.T) {
	buf := esmtest.Group("WRLD",
		esmtest.GroupOf(esmtest.FormLabel(0x3C), 1,
			esmtest.Record("CELL", 1, 0, esmtest.Field("EDID", esmtest.ZString("c"))),
		),
	)
	_, err := DecodeBytes(buf, WithMaxDepth(3))
	assert.True(t, errors.Is(err, parser.ErrDepthExceeded), "got %v", err)

	f, err := DecodeBytes(buf, WithMaxDepth(4))
	require.NoError(t, err)
	var path []*Group
	require.NoError(t, f.Walk(func(p []*Group, r *Record) error {
		path = p
		return nil
	}))
	require.Len(t, path, 2)
	assert.Equal(t, codec.GroupWorldChildren, path[1].Header.Type)
}

func TestDecode_CustomRegistry(t *testing.T) {
	r := NewRegistry().Add(newSchema("GLOB", fields(def("FLTV", f32))))
	buf := esmtest.Group("GLOB",
		esmtest.Record("GLOB", 1, 0,
			esmtest.Field("EDID", esmtest.ZString("x")),
			esmtest.Field("FLTV", esmtest.F32(1)),
		),
	)
	f, err := DecodeBytes(buf, WithRegistry(r))
	require.NoError(t, err)
	rec := f.Groups[0].Records[0]
	assert.Equal(t, "", rec.EditorID(), "EDID not in schema")
	assert.Equal(t, uint64(1), f.Stats.Skipped)
}

func TestDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.esm")
	require.NoError(t, os.WriteFile(path, sampleFile(), 0o600))

	f, err := DecodeFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Groups, 4)

	_, err = DecodeFile(filepath.Join(t.TempDir(), "missing.esm"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
