package mxpack

import (
	"fmt"
	"io"
)

// StreamSink pushes bytes into an io.Writer. Flush is forwarded when the
// writer has one; Close closes the writer if it is an io.Closer.
type StreamSink struct {
	w io.Writer
}

var _ Sink = (*StreamSink)(nil)

// NewStreamSink creates a sink over w.
func NewStreamSink(w io.Writer) *StreamSink {
	return &StreamSink{w: w}
}

func (s *StreamSink) Write(p []byte) (int, error) {
	written, err := s.w.Write(p)
	if err == nil && written < len(p) {
		err = io.ErrShortWrite
	}
	return written, err
}

func (s *StreamSink) WriteAll(bufs ...[]byte) error {
	for _, buf := range bufs {
		if _, err := s.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func (s *StreamSink) Flush() error {
	if f, ok := s.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (s *StreamSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BufferSink collects written bytes in memory.
type BufferSink struct {
	b []byte
}

var _ Sink = (*BufferSink)(nil)

// NewBufferSink creates an empty in-memory sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

func (s *BufferSink) Write(p []byte) (int, error) {
	s.b = append(s.b, p...)
	return len(p), nil
}

func (s *BufferSink) WriteAll(bufs ...[]byte) error {
	for _, buf := range bufs {
		s.b = append(s.b, buf...)
	}
	return nil
}

func (s *BufferSink) Flush() error { return nil } // nothing to do

func (s *BufferSink) Close() error { return nil } // nothing to do

// Bytes returns a view of the collected bytes.
func (s *BufferSink) Bytes() []byte { return s.b }

// Len returns the number of collected bytes.
func (s *BufferSink) Len() int { return len(s.b) }

// Reset drops the collected bytes, keeping the backing array.
func (s *BufferSink) Reset() { s.b = s.b[:0] }

// DiscardSink drops everything written to it.
type DiscardSink struct{}

var _ Sink = DiscardSink{}

func (DiscardSink) Write(p []byte) (int, error) { return len(p), nil }

func (DiscardSink) WriteAll(bufs ...[]byte) error { return nil }

func (DiscardSink) Flush() error { return nil } // nothing to do

func (DiscardSink) Close() error { return nil } // nothing to do

// wrapWriteErr attaches the sink failure to the writer error surface.
func wrapWriteErr(err error) error {
	return fmt.Errorf("%w: %w", ErrWriteFailed, err)
}
