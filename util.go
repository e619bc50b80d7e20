package mxpack

import (
	"encoding/binary"
	"io"

	"golang.org/x/exp/constraints"
)

// be is the wire byte order. MessagePack is big-endian throughout.
var be = binary.BigEndian

const CHUNK_SIZE = 4096

var discard [CHUNK_SIZE]byte

// Discard reads and drops exactly n bytes from r. It returns the number
// of bytes actually dropped; fewer than n means the stream ended early.
func Discard(r io.Reader, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	if n <= CHUNK_SIZE {
		read, err := io.ReadFull(r, discard[:n])
		return int64(read), err
	}
	return io.CopyN(io.Discard, r, n)
}

// Roundup rounds n up to the nearest multiple of align.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }
