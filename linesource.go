package llmprovider

import (
	"bufio"
	"bytes"
	"io"
)

// maxLineSize bounds how much of a single wire line is kept. Vendor payloads
// carrying tool input or citations can be large; anything past the limit is
// discarded so the line fails JSON validation and is dropped on its own.
const maxLineSize = 16 * 1024 * 1024

// LineSource yields one line of a streaming body at a time.
//
// ReadLine blocks until a line is available and returns io.EOF when the body
// is exhausted. Close releases the underlying connection.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

// readerLineSource reads lines from an io.ReadCloser.
type readerLineSource struct {
	reader  *bufio.Reader
	closer  io.Closer
	maxLine int
}

// NewLineSource wraps a streaming body. Trailing "\r" is stripped from each line.
func NewLineSource(body io.ReadCloser) LineSource {
	return newLineSource(body, maxLineSize)
}

func newLineSource(body io.ReadCloser, maxLine int) *readerLineSource {
	return &readerLineSource{
		reader:  bufio.NewReaderSize(body, 64*1024),
		closer:  body,
		maxLine: maxLine,
	}
}

// ReadLine returns the next line without its terminator. Lines longer than
// the limit are truncated and the rest is consumed, so the next call starts
// at the following line.
func (s *readerLineSource) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if room := s.maxLine - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}

		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err == io.EOF && len(line) > 0:
			return trimLine(line), nil
		case err != nil:
			return "", err
		}
		return trimLine(line), nil
	}
}

func trimLine(line []byte) string {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return string(bytes.TrimSuffix(line, []byte("\r")))
}

// Close closes the underlying body.
func (s *readerLineSource) Close() error {
	return s.closer.Close()
}

// sliceLineSource replays a fixed set of lines.
type sliceLineSource struct {
	lines  []string
	pos    int
	closed bool
}

// NewSliceLineSource replays lines in order. Useful for captured streams and tests.
func NewSliceLineSource(lines []string) LineSource {
	return &sliceLineSource{lines: lines}
}

// ReadLine returns the next line or io.EOF.
func (s *sliceLineSource) ReadLine() (string, error) {
	if s.closed || s.pos >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.pos]
	s.pos++
	return line, nil
}

// Close marks the source exhausted.
func (s *sliceLineSource) Close() error {
	s.closed = true
	return nil
}
