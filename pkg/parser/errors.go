package parser

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/esmkit/pkg/codec"
)

var (
	// ErrParse marks a structural error: a decoder consumed a different number
	// of bytes than its chunk declared, or the input is corrupt.
	ErrParse = errors.New("chunk parse error")

	// ErrDecompress marks a malformed or truncated zlib stream.
	ErrDecompress = errors.New("decompression failed")

	// ErrUnsupported is returned by LString when the file is localized.
	ErrUnsupported = errors.New("localized strings are not supported")

	// ErrDepthExceeded is returned when nesting exceeds the configured limit.
	ErrDepthExceeded = errors.New("maximum nesting depth exceeded")

	// ErrLocalizedSet is returned when SetLocalized is called twice.
	ErrLocalizedSet = errors.New("localized flag already set")
)

// ChunkError describes a violation of the byte-accounting invariant.
type ChunkError struct {
	Tag      codec.Tag
	Offset   int64  // offset of the chunk payload
	Declared uint64 // payload size the header declared
	Consumed int64  // bytes the decoder actually advanced
	Reason   string
}

// Error implements [error].
func (e *ChunkError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "decoder consumed a different size than declared"
	}
	return fmt.Sprintf("%v: %s at offset %d/%#x: %s (declared %d, consumed %d)",
		ErrParse, e.Tag, e.Offset, e.Offset, reason, e.Declared, e.Consumed)
}

// Unwrap implements error unwrapping viz [errors.Unwrap].
func (e *ChunkError) Unwrap() error {
	return ErrParse
}
