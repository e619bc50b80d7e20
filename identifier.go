package mxpack

import (
	"github.com/puzpuzpuz/xsync/v4"
)

const (
	// Identifiers are short, frequently repeated strings such as map
	// keys. Anything longer goes through the plain decoder.
	maxIdentifierLength = 20

	// maxCachedIdentifiers bounds the intern cache so a stream of unique
	// keys cannot grow it without limit.
	maxCachedIdentifiers = 1 << 12
)

// identifierDecoder interns decoded strings so repeated identifiers
// share one allocation. It is semantically equivalent to the plain
// decoder and safe for concurrent use.
type identifierDecoder struct {
	plain StringDecoder
	cache *xsync.Map[string, string]
}

var _ StringDecoder = (*identifierDecoder)(nil)

// NewIdentifierDecoder returns a decoder that caches strings of at most
// 20 bytes.
func NewIdentifierDecoder() StringDecoder {
	return &identifierDecoder{
		plain: NewStringDecoder(),
		cache: xsync.NewMap[string, string](),
	}
}

func (d *identifierDecoder) Decode(payload []byte) (string, error) {
	if len(payload) > maxIdentifierLength {
		return d.plain.Decode(payload)
	}
	if cached, ok := d.cache.Load(string(payload)); ok {
		return cached, nil
	}
	decoded, err := d.plain.Decode(payload)
	if err != nil {
		return "", err
	}
	if d.cache.Size() < maxCachedIdentifiers {
		d.cache.Store(decoded, decoded)
	}
	return decoded, nil
}

// NewIdentifierEncoder returns the encoder used for identifiers. Output
// is identical to the plain encoder; the distinct constructor exists so
// callers can swap in their own interning encoder.
func NewIdentifierEncoder() StringEncoder { return NewStringEncoder() }
