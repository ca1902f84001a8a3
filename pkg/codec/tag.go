package codec

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Tag is the 4 byte type identifier that starts every chunk.
type Tag [4]byte

// Well known tags.
var (
	TagGroup  = Tag{'G', 'R', 'U', 'P'}
	TagHeader = Tag{'T', 'E', 'S', '4'}
)

// ParseTag converts a 4 character string into a Tag.
func ParseTag(s string) (Tag, error) {
	var t Tag
	if len(s) != len(t) {
		return t, errors.Newf("tag %q must be exactly 4 bytes", s)
	}
	copy(t[:], s)
	return t, nil
}

// MustTag is like ParseTag but panics on malformed input. It is meant for
// package level tables.
func MustTag(s string) Tag {
	t, err := ParseTag(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the tag as text, quoting non printable bytes.
func (t Tag) String() string {
	for _, b := range t {
		if b < 0x20 || b > 0x7e {
			return strconv.Quote(string(t[:]))
		}
	}
	return string(t[:])
}

// FormID identifies a record across the whole load order.
type FormID uint32

func (id FormID) String() string {
	return fmt.Sprintf("%08X", uint32(id))
}

// ParseFormID accepts hexadecimal form IDs with or without a 0x prefix.
func ParseFormID(s string) (FormID, error) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid form id %q", s)
	}
	return FormID(v), nil
}

// MarshalText renders the id as 8 hex digits.
func (id FormID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts the forms understood by ParseFormID.
func (id *FormID) UnmarshalText(b []byte) error {
	v, err := ParseFormID(string(b))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
