// Package source opens inputs and turns their bytes into UTF-8 text.
//
// Text decoding follows a two-step policy: an explicitly named encoding is
// always honored; otherwise the opening window of the input is checked and
// decoded as UTF-8 when valid, or as Latin-1 (ISO-8859-1) when it is not.
// Once UTF-8 is chosen the rest of the input must be valid UTF-8 too; an
// invalid sequence past the window fails with ErrInvalidUTF8.
//
// The window is the first 64 KiB of files and in-memory readers. Live streams
// such as pipes and request bodies are judged on their first read, so records
// flow before 64 KiB have arrived.
package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported by Decode.
const (
	UTF8   = "utf-8"
	Latin1 = "latin-1"
)

// sniffSize is the most input inspected before choosing between UTF-8 and Latin-1.
const sniffSize = 64 << 10

var (
	// ErrUnknownEncoding is returned for encoding names that cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")
	// ErrInvalidUTF8 is returned while reading when UTF-8 was requested or
	// detected and the input contains an invalid sequence.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Open opens path for reading. The caller must close the returned file.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return f, nil
}

// Decode wraps r so that it yields UTF-8 text. name selects the source encoding;
// an empty name applies the UTF-8 then Latin-1 policy. It returns the wrapped
// reader and the name of the encoding that was chosen. r is never closed.
func Decode(r io.Reader, name string) (io.Reader, string, error) {
	if name == "" {
		return sniff(r)
	}
	enc, canonical, err := Lookup(name)
	if err != nil {
		return nil, "", err
	}
	if canonical == UTF8 {
		br := bufio.NewReader(r)
		if err := skipBOM(br); err != nil {
			return nil, "", err
		}
		return newStrictUTF8Reader(br), UTF8, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), canonical, nil
}

func sniff(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	if err := skipBOM(br); err != nil {
		return nil, "", err
	}
	n := sniffSize
	if !bounded(r) {
		n = max(br.Buffered(), 1)
	}
	window, err := br.Peek(n)
	atEOF := false
	switch {
	case err == io.EOF:
		atEOF = true
	case err != nil && !errors.Is(err, bufio.ErrBufferFull):
		return nil, "", fmt.Errorf("read source: %w", err)
	}
	if !atEOF {
		window = trimIncompleteRune(window)
	}
	if utf8.Valid(window) {
		return newStrictUTF8Reader(br), UTF8, nil
	}
	return transform.NewReader(br, charmap.ISO8859_1.NewDecoder()), Latin1, nil
}

// bounded reports whether r can fill the sniff window without waiting on a
// producer: regular files and in-memory readers.
func bounded(r io.Reader) bool {
	switch v := r.(type) {
	case *os.File:
		fi, err := v.Stat()
		return err == nil && fi.Mode().IsRegular()
	case interface{ Len() int }:
		return true
	}
	return false
}

func skipBOM(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return fmt.Errorf("read source: %w", err)
	}
	if bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return nil
}

// trimIncompleteRune drops a multi-byte sequence cut off by the end of b.
func trimIncompleteRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

// Lookup resolves an encoding name. Common Python-style spellings such as
// "latin-1" and "utf8" are accepted alongside IANA and WHATWG names.
func Lookup(name string) (encoding.Encoding, string, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	switch n {
	case "utf-8", "utf8", "u8", "utf-8-sig", "utf8-sig":
		return unicode.UTF8, UTF8, nil
	case "latin-1", "latin1", "l1", "iso-8859-1", "iso8859-1", "8859":
		return charmap.ISO8859_1, Latin1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, "windows-1252", nil
	}
	if enc, err := ianaindex.IANA.Encoding(n); err == nil && enc != nil {
		return enc, n, nil
	}
	if enc, err := htmlindex.Get(n); err == nil {
		return enc, n, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
}
