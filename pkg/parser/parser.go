package parser

import (
	"bytes"
	"io"
	"log/slog"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/esmkit/pkg/logging"
)

// DefaultMaxDepth bounds recursion on hostile input. Real files nest at most
// a handful of levels plus one per compressed record.
const DefaultMaxDepth = 64

// Stats counts what a parse visited. A compressed sub-parse folds its counts
// into its parent when it finishes.
type Stats struct {
	Groups        uint64 `json:"groups"`
	Records       uint64 `json:"records"`
	Fields        uint64 `json:"fields"`
	Compressed    uint64 `json:"compressed"`
	Skipped       uint64 `json:"skipped"`
	InflatedBytes uint64 `json:"inflated_bytes"`
}

func (s *Stats) add(o Stats) {
	s.Groups += o.Groups
	s.Records += o.Records
	s.Fields += o.Fields
	s.Compressed += o.Compressed
	s.Skipped += o.Skipped
	s.InflatedBytes += o.InflatedBytes
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for diagnostics such as unknown tags.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Zero disables the limit.
func WithMaxDepth(n uint32) Option {
	return func(p *Parser) {
		p.maxDepth = n
	}
}

// WithMaxInflate bounds the decompressed size of a single compressed record.
// Zero, and anything above the 4GiB a record can describe, selects 4GiB.
func WithMaxInflate(n uint64) Option {
	return func(p *Parser) {
		if n == 0 || n > math.MaxUint32 {
			n = math.MaxUint32
		}
		p.maxInflate = n
	}
}

// Parser holds the state of one parse: the cursor over the input, the
// nesting depth and the file-wide localized flag.
type Parser struct {
	cur *cursor

	depth    uint32
	maxDepth uint32

	maxInflate uint64

	localized    bool
	localizedSet bool

	logger *slog.Logger
	stats  Stats
}

// New returns a Parser reading from r at its current offset.
func New(r io.ReadSeeker, opts ...Option) (*Parser, error) {
	c, err := newCursor(r)
	if err != nil {
		return nil, err
	}
	return newParser(c, opts...), nil
}

// NewBytes returns a Parser over an in-memory buffer.
func NewBytes(b []byte, opts ...Option) *Parser {
	return newParser(bytesCursor(b), opts...)
}

func newParser(c *cursor, opts ...Option) *Parser {
	p := &Parser{
		cur:        c,
		maxDepth:   DefaultMaxDepth,
		maxInflate: math.MaxUint32,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// child returns a Parser over a decompressed buffer. It starts at the
// parent's depth and inherits its localized state, which can no longer change.
func (p *Parser) child(b []byte) *Parser {
	return &Parser{
		cur:          bytesCursor(b),
		depth:        p.depth,
		maxDepth:     p.maxDepth,
		maxInflate:   p.maxInflate,
		localized:    p.localized,
		localizedSet: true,
		logger:       p.logger,
	}
}

// Depth returns the current nesting depth.
func (p *Parser) Depth() uint32 {
	return p.depth
}

// Localized reports whether string fields are string table keys.
func (p *Parser) Localized() bool {
	return p.localized
}

// SetLocalized records the file-wide localized flag. It may be called once,
// normally by the decoder of the TES4 file header.
func (p *Parser) SetLocalized(v bool) error {
	if p.localizedSet {
		return ErrLocalizedSet
	}
	p.localized = v
	p.localizedSet = true
	return nil
}

// Stats returns the counters accumulated so far.
func (p *Parser) Stats() Stats {
	return p.stats
}

// Logger returns the parser's logger.
func (p *Parser) Logger() *slog.Logger {
	return p.logger
}

// Position returns the cursor offset from the start of the input.
func (p *Parser) Position() int64 {
	return p.cur.pos
}

// Len returns the total length of the input.
func (p *Parser) Len() int64 {
	return p.cur.size
}

func (p *Parser) push() error {
	if p.maxDepth > 0 && p.depth >= p.maxDepth {
		return errors.Wrapf(ErrDepthExceeded, "depth %d at offset %d", p.depth, p.cur.pos)
	}
	p.depth++
	return nil
}

func (p *Parser) pop() {
	p.depth--
}

// cursor tracks the read position so the loops never have to ask the
// underlying source where it is.
type cursor struct {
	r    io.ReadSeeker
	pos  int64
	size int64
}

func newCursor(r io.ReadSeeker) (*cursor, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "locate start of input")
	}
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.Wrap(err, "measure input")
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewind input")
	}
	return &cursor{r: r, pos: pos, size: size}, nil
}

func bytesCursor(b []byte) *cursor {
	return &cursor{r: bytes.NewReader(b), size: int64(len(b))}
}

func (c *cursor) remaining() int64 {
	return c.size - c.pos
}

// Read implements io.Reader so encoding/binary can decode straight from the
// cursor.
func (c *cursor) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.pos += int64(n)
	return n, err
}

func (c *cursor) readFull(b []byte) error {
	if int64(len(b)) > c.remaining() {
		return io.ErrUnexpectedEOF
	}
	_, err := io.ReadFull(c, b)
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (c *cursor) skip(n int64) error {
	if n < 0 || n > c.remaining() {
		return io.ErrUnexpectedEOF
	}
	if _, err := c.r.Seek(n, io.SeekCurrent); err != nil {
		return err
	}
	c.pos += n
	return nil
}

func (c *cursor) rewind() error {
	size, err := c.r.Seek(0, io.SeekEnd)
	if err != nil {
		return errors.Wrap(err, "seek to end")
	}
	if _, err := c.r.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek to start")
	}
	c.pos = 0
	c.size = size
	return nil
}
