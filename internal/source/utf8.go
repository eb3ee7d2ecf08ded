package source

import (
	"fmt"
	"io"
	"unicode/utf8"
)

const strictBufSize = 4096

// strictUTF8Reader passes UTF-8 through unchanged and fails with ErrInvalidUTF8
// at the first invalid sequence. Bytes that may start a multi-byte sequence at
// the end of a read are held back until the rest arrives.
type strictUTF8Reader struct {
	r      io.Reader
	buf    []byte
	out    []byte // validated, not yet returned
	tail   []byte // incomplete sequence at the end of the last read
	offset int64
	err    error
}

func newStrictUTF8Reader(r io.Reader) *strictUTF8Reader {
	return &strictUTF8Reader{r: r, buf: make([]byte, strictBufSize)}
}

// Read implements io.Reader.
func (s *strictUTF8Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads once from the source and validates the result. It is only called
// once out has been drained, so buf may be reused.
func (s *strictUTF8Reader) fill() {
	k := copy(s.buf, s.tail)
	s.tail = nil
	m, err := s.r.Read(s.buf[k:])
	n := k + m
	atEOF := err == io.EOF

	valid := 0
	for valid < n {
		c := s.buf[valid]
		if c < utf8.RuneSelf {
			valid++
			continue
		}
		if !utf8.FullRune(s.buf[valid:n]) && !atEOF {
			s.tail = s.buf[valid:n]
			break
		}
		r, size := utf8.DecodeRune(s.buf[valid:n])
		if r == utf8.RuneError && size == 1 {
			s.err = fmt.Errorf("%w at byte %d", ErrInvalidUTF8, s.offset+int64(valid))
			break
		}
		valid += size
	}
	s.out = s.buf[:valid]
	s.offset += int64(valid)

	if s.err == nil && err != nil {
		s.err = err
	}
}
