package parser

import (
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/hyperjump/fileparse/internal/decode"
	"github.com/hyperjump/fileparse/internal/format"
	"github.com/hyperjump/fileparse/internal/record"
)

// Records is a forward-only sequence of records. It is not safe for
// concurrent use and cannot be restarted: once Next returns false it keeps
// returning false.
//
//	recs, err := p.Parse(parser.Path("data.csv"), parser.Options{})
//	if err != nil { ... }
//	defer recs.Close()
//	for recs.Next() {
//		use(recs.Record())
//	}
//	if err := recs.Err(); err != nil { ... }
type Records struct {
	dec     decode.Decoder
	closers []io.Closer
	format  format.Format
	logger  *zap.Logger

	cur      *record.Record
	err      error
	reported bool // err already yielded by All
	done     bool
	count    int
}

// Next advances to the next record. It returns false at the end of the input,
// on error, or after Close. Resources are released as soon as it returns false.
func (r *Records) Next() bool {
	if r.done {
		return false
	}
	rec, err := r.dec.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			r.err = err
		}
		r.finish()
		return false
	}
	r.cur = rec
	r.count++
	return true
}

// Record returns the record read by the last successful call to Next.
func (r *Records) Record() *record.Record {
	return r.cur
}

// Err returns the error that stopped iteration, if any.
func (r *Records) Err() error {
	return r.err
}

// Count returns how many records have been read so far.
func (r *Records) Count() int {
	return r.count
}

// Close stops iteration and releases the decoder and any file the parser
// opened. It is safe to call more than once.
func (r *Records) Close() error {
	return r.finish()
}

// All returns an iterator over the remaining records. Iteration ends with a
// single (nil, err) pair if decoding fails; later iterations yield nothing.
// Breaking out of the loop closes the Records.
func (r *Records) All() iter.Seq2[*record.Record, error] {
	return func(yield func(*record.Record, error) bool) {
		for r.Next() {
			if !yield(r.Record(), nil) {
				_ = r.Close()
				return
			}
		}
		if err := r.Err(); err != nil && !r.reported {
			r.reported = true
			yield(nil, err)
		}
	}
}

func (r *Records) finish() error {
	if r.done {
		return nil
	}
	r.done = true
	r.cur = nil
	var errs []error
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	r.logger.Debug("parse finished",
		zap.Stringer("format", r.format),
		zap.Int("records", r.count),
		zap.Error(r.err),
	)
	return errors.Join(errs...)
}
