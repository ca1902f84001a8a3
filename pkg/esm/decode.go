package esm

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/esmkit/pkg/logging"
	"github.com/ssargent/esmkit/pkg/parser"
)

type options struct {
	trace      io.Writer
	logger     *slog.Logger
	maxDepth   uint32
	maxInflate uint64
	registry   *Registry
}

// Option configures Decode.
type Option func(*options)

// WithTrace writes one line per group, record and field to w, indented two
// spaces per nesting level.
func WithTrace(w io.Writer) Option {
	return func(o *options) {
		o.trace = w
	}
}

// WithLogger sets the logger handed to the parser.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxDepth bounds nesting. Zero disables the limit.
func WithMaxDepth(n uint32) Option {
	return func(o *options) {
		o.maxDepth = n
	}
}

// WithMaxInflate bounds the decompressed size of one compressed record. Zero
// allows the 4GiB the format can describe.
func WithMaxInflate(n uint64) Option {
	return func(o *options) {
		o.maxInflate = n
	}
}

// WithRegistry replaces the built in record catalogue.
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// Decode parses a whole master file from r. On error no partial tree is
// returned.
func Decode(r io.ReadSeeker, opts ...Option) (*File, error) {
	o := options{
		logger:   logging.Discard(),
		maxDepth: parser.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = Default()
	}

	p, err := parser.New(r,
		parser.WithLogger(o.logger),
		parser.WithMaxDepth(o.maxDepth),
		parser.WithMaxInflate(o.maxInflate),
	)
	if err != nil {
		return nil, err
	}

	d := newDecoder(o.registry, o.trace)
	if err := p.ParseTopLevel(d.records); err != nil {
		return nil, err
	}
	d.file.Localized = p.Localized()
	d.file.Stats = p.Stats()
	return d.file, nil
}

// DecodeBytes parses a master file held in memory.
func DecodeBytes(b []byte, opts ...Option) (*File, error) {
	return Decode(bytes.NewReader(b), opts...)
}

// DecodeFile reads and parses the master file at path.
func DecodeFile(path string, opts ...Option) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	f, err := DecodeBytes(b, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return f, nil
}
