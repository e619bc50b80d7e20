package mxpack

import (
	"fmt"
	"io"
)

// StreamSource pulls bytes from an io.Reader. Close closes the reader
// if it is an io.Closer.
type StreamSource struct {
	r io.Reader
}

var _ Source = (*StreamSource)(nil)

// NewStreamSource creates a source over r.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

func (s *StreamSource) Read(p []byte, minHint int) (int, error) {
	return s.r.Read(p)
}

func (s *StreamSource) Skip(n int) error {
	if n <= 0 {
		return nil
	}
	skipped, err := Discard(s.r, int64(n))
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return &EOFError{Expected: n, ActualRead: int(skipped)}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return nil
}

func (s *StreamSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BufferSource reads from a pre-filled byte slice.
type BufferSource struct {
	b []byte
	n int // current read position
}

var _ Source = (*BufferSource)(nil)

// NewBufferSource creates a source over b. The slice is not copied.
func NewBufferSource(b []byte) *BufferSource {
	return &BufferSource{b: b}
}

func (s *BufferSource) Read(p []byte, minHint int) (int, error) {
	if s.n >= len(s.b) {
		return 0, io.EOF
	}
	read := copy(p, s.b[s.n:])
	s.n += read
	return read, nil
}

func (s *BufferSource) Skip(n int) error {
	if n <= 0 {
		return nil
	}
	available := len(s.b) - s.n
	if n > available {
		s.n = len(s.b)
		return &EOFError{Expected: n, ActualRead: available}
	}
	s.n += n
	return nil
}

func (s *BufferSource) Close() error { return nil }

// Available returns the number of unread bytes.
func (s *BufferSource) Available() int {
	if s.n >= len(s.b) {
		return 0
	}
	return len(s.b) - s.n
}

// EmptySource reads nothing.
type EmptySource struct{}

var _ Source = EmptySource{}

func (EmptySource) Read(p []byte, minHint int) (int, error) { return 0, io.EOF }

func (EmptySource) Skip(n int) error {
	if n <= 0 {
		return nil
	}
	return &EOFError{Expected: n, ActualRead: 0}
}

func (EmptySource) Close() error { return nil }
