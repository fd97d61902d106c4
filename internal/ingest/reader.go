package ingest

// reader.go holds the streaming wrappers applied to delimited input before
// parsing: a leading UTF-8 BOM is dropped, invalid UTF-8 bytes become '?',
// and the byte count is bounded.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader over r without a leading UTF-8 byte order mark.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// sanitizer replaces invalid UTF-8 bytes with '?' as data streams through.
// A multi-byte rune split across reads is held back until it completes.
type sanitizer struct {
	r       io.Reader
	buf     []byte
	ready   []byte
	pending []byte
	err     error
}

// NewSanitizer wraps r so that everything read from it is valid UTF-8.
func NewSanitizer(r io.Reader) io.Reader {
	return &sanitizer{
		r:       r,
		buf:     make([]byte, 32*1024),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.ready) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		off := copy(s.buf, s.pending)
		s.pending = s.pending[:0]
		n, err := s.r.Read(s.buf[off:])
		s.err = err
		s.ready = s.buf[:s.clean(s.buf[:off+n], err != nil)]
	}
	n := copy(p, s.ready)
	s.ready = s.ready[n:]
	return n, nil
}

// clean rewrites data in place and returns the bytes ready to hand out.
func (s *sanitizer) clean(data []byte, final bool) int {
	w := 0
	for r := 0; r < len(data); {
		if data[r] < utf8.RuneSelf {
			data[w] = data[r]
			w++
			r++
			continue
		}
		if !final && !utf8.FullRune(data[r:]) {
			s.pending = append(s.pending, data[r:]...)
			break
		}
		c, size := utf8.DecodeRune(data[r:])
		if c == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		w += copy(data[w:], data[r:r+size])
		r += size
	}
	return w
}

// limitReader fails with ErrFileTooLarge once more than max bytes are read.
type limitReader struct {
	r    io.Reader
	max  int64
	read int64
}

func newLimitReader(r io.Reader, max int64) *limitReader {
	return &limitReader{r: r, max: max}
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.read > l.max {
		return n, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, l.max)
	}
	return n, err
}

// cleanText applies the text wrappers in order: BOM first, then UTF-8.
func cleanText(r io.Reader) io.Reader {
	return NewSanitizer(SkipBOM(r))
}
