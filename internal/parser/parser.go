// Package parser is the entry point for record extraction: it resolves the
// format of an input, manages the input's lifetime and hands back either a
// lazy record sequence or a fully materialized slice.
package parser

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/hyperjump/fileparse/internal/decode"
	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/record"
	"github.com/hyperjump/fileparse/internal/source"
)

// Source is an input to parse. A path source is opened and owned by the
// parser; a stream source belongs to the caller and is never closed.
type Source struct {
	path string
	r    io.Reader
	name string
}

// Path returns a source the parser opens and closes itself.
func Path(path string) Source {
	return Source{path: path, name: path}
}

// Stream returns a source over a caller-owned reader. When r has a
// Name() string method (as *os.File does) that name is used for format
// resolution.
func Stream(r io.Reader) Source {
	s := Source{r: r}
	if n, ok := r.(interface{ Name() string }); ok {
		s.name = n.Name()
	}
	return s
}

// NamedStream is Stream with an explicit name, e.g. an uploaded file name.
func NamedStream(r io.Reader, name string) Source {
	return Source{r: r, name: name}
}

// Name returns the path or stream name, or "" when none is known.
func (s Source) Name() string {
	return s.name
}

// Options are per-call settings.
type Options struct {
	// Format names the format explicitly ("csv", "jsonl", ...). Empty means
	// resolve it from the source name.
	Format string
	// Delimiter overrides the csv and tsv field separator.
	Delimiter rune
	// Schema is required for the fixed format.
	Schema decode.Schema
}

// FileParser parses files and streams into records.
type FileParser struct {
	encoding string
	logger   *zap.Logger
}

// Option configures a FileParser.
type Option func(*FileParser)

// WithEncoding forces a text encoding instead of the UTF-8 then Latin-1 policy.
func WithEncoding(name string) Option {
	return func(p *FileParser) {
		p.encoding = name
	}
}

// WithLogger sets the logger for the parser.
func WithLogger(logger *zap.Logger) Option {
	return func(p *FileParser) {
		p.logger = logger
	}
}

// New creates a FileParser.
func New(opts ...Option) *FileParser {
	p := &FileParser{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns a lazy, single-pass sequence of records. Configuration errors
// are returned before the source is opened. When src is a path the returned
// Records owns the file and closes it on exhaustion, on error, or on Close.
func (p *FileParser) Parse(src Source, opts Options) (*Records, error) {
	f, err := p.resolve(src, opts)
	if err != nil {
		return nil, err
	}
	decOpts := decode.Options{Delimiter: opts.Delimiter, Schema: opts.Schema, Name: src.path}
	if err := decode.Validate(f, decOpts); err != nil {
		return nil, err
	}
	if p.encoding != "" && !f.Binary() {
		if _, _, err := source.Lookup(p.encoding); err != nil {
			return nil, err
		}
	}

	r := src.r
	var owned io.Closer
	if src.path != "" {
		file, err := source.Open(src.path)
		if err != nil {
			return nil, err
		}
		r, owned = file, file
	}
	fail := func(err error) (*Records, error) {
		if owned != nil {
			_ = owned.Close()
		}
		return nil, err
	}

	enc := "binary"
	if !f.Binary() {
		r, enc, err = source.Decode(r, p.encoding)
		if err != nil {
			return fail(err)
		}
	}
	dec, err := decode.New(f, r, decOpts)
	if err != nil {
		return fail(err)
	}

	p.logger.Debug("parse started",
		zap.String("source", src.Name()),
		zap.Stringer("format", f),
		zap.String("encoding", enc),
		zap.Bool("owned", owned != nil),
	)
	recs := &Records{dec: dec, format: f, logger: p.logger.With(zap.String("source", src.Name()))}
	if c, ok := dec.(io.Closer); ok {
		recs.closers = append(recs.closers, c)
	}
	if owned != nil {
		recs.closers = append(recs.closers, owned)
	}
	return recs, nil
}

// ParseAll drains Parse into a slice. The slice is never nil.
func (p *FileParser) ParseAll(src Source, opts Options) ([]*record.Record, error) {
	recs, err := p.Parse(src, opts)
	if err != nil {
		return nil, err
	}
	defer recs.Close()
	out := make([]*record.Record, 0)
	for recs.Next() {
		out = append(out, recs.Record())
	}
	if err := recs.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Format returns the format Parse would use for src and opts.
func (p *FileParser) Format(src Source, opts Options) (format.Format, error) {
	return p.resolve(src, opts)
}

func (p *FileParser) resolve(src Source, opts Options) (format.Format, error) {
	if opts.Format != "" {
		return format.Parse(opts.Format)
	}
	return format.Resolve(src.Name()), nil
}

// IsConfigError reports whether err is a caller configuration problem
// (unsupported format, bad schema or delimiter, unknown encoding) rather
// than an I/O or data error.
func IsConfigError(err error) bool {
	for _, target := range []error{
		format.ErrUnsupportedFormat,
		decode.ErrMissingSchema,
		decode.ErrInvalidSchema,
		decode.ErrInvalidDelimiter,
		source.ErrUnknownEncoding,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

