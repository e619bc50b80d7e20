package mxpack

// Source supplies bytes to a Reader. Implementations block only as long
// as necessary to produce at least one byte.
type Source interface {
	// Read fills p from the source's current position and returns the
	// number of bytes placed. minHint is a lower bound the caller would
	// like to see; the source is free to return fewer. End of stream is
	// reported as io.EOF.
	Read(p []byte, minHint int) (int, error)

	// Skip discards exactly n bytes.
	Skip(n int) error

	// Close releases the source.
	Close() error
}

// Sink receives bytes from a Writer.
type Sink interface {
	// Write consumes p in full and returns the number of bytes written.
	Write(p []byte) (int, error)

	// WriteAll consumes every given buffer in full.
	WriteAll(bufs ...[]byte) error

	// Flush forces any bytes the sink itself buffers out to its target.
	Flush() error

	// Close releases the sink. Writer.Close calls Flush before Close.
	Close() error
}

// BufferAllocator hands out auxiliary byte buffers with a bounded maximum
// capacity. Requests above the maximum fail with ErrCapacityExceeded.
//
// The pooled variant recycles released buffers through a size-segregated
// free list and is safe for concurrent use; the unpooled variant is
// stateless.
type BufferAllocator interface {
	// ByteBuffer returns a buffer of at least minCapacity bytes.
	ByteBuffer(minCapacity int) ([]byte, error)

	// Release returns a buffer obtained from ByteBuffer. The buffer must
	// not be used afterwards.
	Release(buf []byte)

	// Close discards any pooled buffers.
	Close() error
}

// StringDecoder converts a UTF-8 payload into a string.
type StringDecoder interface {
	Decode(payload []byte) (string, error)
}

// StringEncoder produces the UTF-8 encoding of a string.
type StringEncoder interface {
	// EncodedLength returns the exact number of bytes Encode will emit
	// for s, or an error if s cannot be encoded.
	EncodedLength(s string) (int, error)

	// Encode copies the encoding of s into dst, which must hold at least
	// EncodedLength(s) bytes, and returns the number of bytes written.
	Encode(dst []byte, s string) (int, error)
}
