package mxpack

import (
	"fmt"
	"unicode/utf8"
)

// utf8Decoder is the default string decoder. It validates strictly:
// malformed sequences fail instead of being replaced.
type utf8Decoder struct{}

var _ StringDecoder = utf8Decoder{}

// NewStringDecoder returns the default strict UTF-8 decoder.
func NewStringDecoder() StringDecoder { return utf8Decoder{} }

func (utf8Decoder) Decode(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: malformed byte sequence in string payload", ErrInvalidUTF8)
	}
	return string(payload), nil
}

// utf8Encoder is the default string encoder. Go strings are UTF-8
// already, so encoding is a validity check plus a copy and the encoded
// length equals len(s).
type utf8Encoder struct{}

var _ StringEncoder = utf8Encoder{}

// NewStringEncoder returns the default strict UTF-8 encoder.
func NewStringEncoder() StringEncoder { return utf8Encoder{} }

func (utf8Encoder) EncodedLength(s string) (int, error) {
	if !utf8.ValidString(s) {
		return 0, fmt.Errorf("%w: malformed byte sequence in string", ErrInvalidUTF8)
	}
	return len(s), nil
}

func (utf8Encoder) Encode(dst []byte, s string) (int, error) {
	return copy(dst, s), nil
}
