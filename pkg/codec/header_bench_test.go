//go:build bench
// +build bench

package codec

import (
	"testing"

	"github.com/ssargent/esmkit/internal/esmtest"
)

func BenchmarkDecodeHeader(b *testing.B) {
	benchmarks := []struct {
		name string
		raw  []byte
	}{
		{name: "record", raw: esmtest.RecordHeader("WEAP", 512, esmtest.FlagCompressed, 0x1F00D)},
		{name: "group", raw: esmtest.GroupHeader([4]byte{'W', 'E', 'A', 'P'}, 0, 4096)},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := DecodeHeader(bm.raw); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkDecodeFieldHeader(b *testing.B) {
	raw := esmtest.FieldHeader("EDID", 32)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeFieldHeader(raw); err != nil {
			b.Fatal(err)
		}
	}
}
