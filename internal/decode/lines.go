package decode

import (
	"bufio"
	"io"
	"strings"
)

// lineReader yields lines without their terminator ("\n" or "\r\n").
// The last line is returned even when it has no terminator.
type lineReader struct {
	br *bufio.Reader
	no int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReader(r)}
}

// next returns the next line and its 1-based number, or io.EOF.
func (l *lineReader) next() (string, int, error) {
	line, err := l.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", 0, err
	}
	if err == io.EOF && line == "" {
		return "", 0, io.EOF
	}
	l.no++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, l.no, nil
}
