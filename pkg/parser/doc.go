// Package parser is the chunk parsing engine for Elder Scrolls master files.
//
// The engine knows nothing about individual record types. It walks the
// group/record/field grammar, hands each chunk to a caller supplied decoder
// selected by tag, and enforces the byte-accounting invariant: after a
// decoder returns, the cursor must sit exactly at the end of the chunk's
// declared size, or exactly at the end of the span the enclosing loop was
// asked to cover. Anything else is a *ChunkError wrapping ErrParse.
//
// # Loops
//
// ParseFields iterates the fields of one record. ParseRecords iterates the
// records and groups of a group or of the whole file. ParseTopLevel measures
// the input and runs ParseRecords across it.
//
// # Compressed Records
//
// A record with codec.FlagCompressed carries a 4 byte decompressed length and
// a zlib stream. ParseRecordFields detects the flag and ParseCompressed
// inflates the payload and runs ParseFields over it with a child Parser that
// inherits the depth and localized state of its parent.
//
// # Depth
//
// Depth increases by one on entering each loop and on entering a compressed
// sub-parse, and is restored on every exit path. Decoders may read it with
// Depth for indentation.
//
// A Parser is not safe for concurrent use.
package parser
