package mxpack

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip writes with fn and hands the wire bytes to a fresh reader.
func roundTrip(t *testing.T, write func(w *Writer)) *Reader {
	t.Helper()
	sink := NewBufferSink()
	w, err := NewWriter(sink)
	require.NoError(t, err)
	write(w)
	require.NoError(t, w.Err())
	require.NoError(t, w.Flush())
	r, err := NewBufferReader(sink.Bytes())
	require.NoError(t, err)
	return r
}

func TestRoundTripAllBytes(t *testing.T) {
	r := roundTrip(t, func(w *Writer) {
		for v := math.MinInt8; v <= math.MaxInt8; v++ {
			require.NoError(t, w.WriteInt8(int8(v)))
		}
		for v := 0; v <= math.MaxUint8; v++ {
			require.NoError(t, w.WriteUint8(uint8(v)))
		}
	})
	for v := math.MinInt8; v <= math.MaxInt8; v++ {
		got, err := r.ReadInt8()
		require.NoError(t, err)
		assert.EqualValues(t, v, got)
	}
	for v := 0; v <= math.MaxUint8; v++ {
		got, err := r.ReadUint8()
		require.NoError(t, err)
		assert.EqualValues(t, v, got)
	}
}

func TestRoundTripShorts(t *testing.T) {
	values := []int16{math.MinInt16, math.MinInt16 + 1, -4096, -129, -128, -33, -32, -1, 0, 1, 127, 128, 255, 256, 4096, math.MaxInt16 - 1, math.MaxInt16}
	r := roundTrip(t, func(w *Writer) {
		for _, v := range values {
			require.NoError(t, w.WriteInt16(v))
		}
	})
	for _, v := range values {
		got, err := r.ReadInt16()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestRoundTripIntegerBoundaries(t *testing.T) {
	signed := []int64{
		math.MinInt64, math.MinInt64 + 1, math.MinInt32 - 1, math.MinInt32,
		math.MinInt16 - 1, math.MinInt16, -129, -128, -33, -32, -1,
		0, 1, 127, 128, 255, 256, 65535, 65536,
		math.MaxInt32, math.MaxInt32 + 1, math.MaxInt64 - 1, math.MaxInt64,
	}
	unsigned := []uint64{
		0, 1, 127, 128, 255, 256, 65535, 65536,
		math.MaxUint32, math.MaxUint32 + 1, math.MaxUint64 - 1, math.MaxUint64,
	}
	r := roundTrip(t, func(w *Writer) {
		for _, v := range signed {
			require.NoError(t, w.WriteInt(v))
		}
		for _, v := range unsigned {
			require.NoError(t, w.WriteUint(v))
		}
	})
	for _, v := range signed {
		got, err := r.ReadInt64()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	for _, v := range unsigned {
		got, err := r.ReadUint64()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestRoundTripFloats(t *testing.T) {
	floats32 := []float32{0, float32(math.Copysign(0, -1)), 1.5, -1.5,
		float32(math.Inf(1)), float32(math.Inf(-1)),
		math.SmallestNonzeroFloat32, math.MaxFloat32, 1e-42 /* denormal */}
	floats64 := []float64{0, math.Copysign(0, -1), 3.141592653589793, -2.5e300,
		math.Inf(1), math.Inf(-1),
		math.SmallestNonzeroFloat64, math.MaxFloat64, 5e-324 /* denormal */}

	r := roundTrip(t, func(w *Writer) {
		for _, v := range floats32 {
			require.NoError(t, w.WriteFloat32(v))
		}
		for _, v := range floats64 {
			require.NoError(t, w.WriteFloat64(v))
		}
		require.NoError(t, w.WriteFloat32(float32(math.NaN())))
		require.NoError(t, w.WriteFloat64(math.NaN()))
	})
	for _, v := range floats32 {
		got, err := r.ReadFloat32()
		require.NoError(t, err)
		assert.Equal(t, math.Float32bits(v), math.Float32bits(got), "bit-identical round trip")
	}
	for _, v := range floats64 {
		got, err := r.ReadFloat64()
		require.NoError(t, err)
		assert.Equal(t, math.Float64bits(v), math.Float64bits(got), "bit-identical round trip")
	}
	nan32, err := r.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, math.Float32bits(float32(math.NaN())), math.Float32bits(nan32))
	nan64, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, math.Float64bits(math.NaN()), math.Float64bits(nan64))
}

func TestRoundTripStrings(t *testing.T) {
	lengths := []int{0, 1, 31, 32, 255, 256, 65535, 65536, 1_000_000}
	for _, length := range lengths {
		payload := strings.Repeat("s", length)
		r := roundTrip(t, func(w *Writer) {
			require.NoError(t, w.WriteString(payload))
		})
		got, err := r.ReadString()
		require.NoError(t, err, "length %d", length)
		assert.Equal(t, payload, got, "length %d", length)
	}
}

func TestRoundTripMultibyteStrings(t *testing.T) {
	values := []string{
		"ascii only",
		"héllo wörld",
		"日本語のテキスト",
		"emoji \U0001f600\U0001f680", // surrogate-pair-forming code points
		"mixed: aé中\U0001f4a9z",
	}
	r := roundTrip(t, func(w *Writer) {
		for _, v := range values {
			require.NoError(t, w.WriteString(v))
		}
	})
	for _, v := range values {
		got, err := r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestRoundTripIdentifiers(t *testing.T) {
	values := []string{"id", "field_name", "id", "field_name", "id"}
	r := roundTrip(t, func(w *Writer) {
		for _, v := range values {
			require.NoError(t, w.WriteIdentifier(v))
		}
	})
	for _, v := range values {
		got, err := r.ReadIdentifier()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestRoundTripCollectionCounts(t *testing.T) {
	counts := []int{0, 15, 16, 65535, 65536}
	for _, count := range counts {
		r := roundTrip(t, func(w *Writer) {
			require.NoError(t, w.WriteArrayHeader(count))
			require.NoError(t, w.WriteMapHeader(count))
		})
		n, err := r.ReadArrayHeader()
		require.NoError(t, err)
		assert.Equal(t, count, n)
		n, err = r.ReadMapHeader()
		require.NoError(t, err)
		assert.Equal(t, count, n)
	}
}

func TestRoundTripBinary(t *testing.T) {
	lengths := []int{0, 1, 255, 256, 65535, 65536, 1_000_000}
	for _, length := range lengths {
		payload := make([]byte, length)
		for i := range payload {
			payload[i] = byte(i)
		}
		r := roundTrip(t, func(w *Writer) {
			require.NoError(t, w.WriteBinaryHeader(length))
			_, err := w.WritePayload(payload)
			require.NoError(t, err)
		})
		n, err := r.ReadBinaryHeader()
		require.NoError(t, err)
		require.Equal(t, length, n)
		if length == 0 {
			continue
		}
		dst := make([]byte, length)
		read, err := r.ReadPayload(dst, length)
		require.NoError(t, err)
		assert.Equal(t, length, read)
		assert.Equal(t, payload, dst)
	}
}

func TestRoundTripExtension(t *testing.T) {
	lengths := []int{0, 1, 2, 4, 8, 16, 17, 255, 256, 65535, 65536}
	for _, length := range lengths {
		payload := make([]byte, length)
		for i := range payload {
			payload[i] = byte(i * 7)
		}
		r := roundTrip(t, func(w *Writer) {
			require.NoError(t, w.WriteExtensionHeader(length, 42))
			_, err := w.WritePayload(payload)
			require.NoError(t, err)
		})
		hdr, err := r.ReadExtensionHeader()
		require.NoError(t, err)
		assert.Equal(t, length, hdr.Length)
		assert.EqualValues(t, 42, hdr.Type)
		if length == 0 {
			continue
		}
		dst := make([]byte, length)
		_, err = r.ReadPayload(dst, length)
		require.NoError(t, err)
		assert.Equal(t, payload, dst)
	}
}

func TestRoundTripTimestamps(t *testing.T) {
	values := []time.Time{
		time.Unix(0, 0),
		time.Unix(1, 0),
		time.Unix(1234567890, 0),              // seconds only: ts32
		time.Unix(1234567890, 123456789),      // with nanos: ts64
		time.Unix((1<<34)-1, 999999999),       // largest ts64
		time.Unix(1<<34, 0),                   // needs ts96
		time.Unix(-1, 0),                      // pre-epoch: ts96
		time.Unix(-62135596800, 999999999),    // year 1
		time.Unix(math.MaxUint32, 0),          // largest ts32
		time.Unix(math.MaxUint32+1, 0),        // just past ts32
	}
	r := roundTrip(t, func(w *Writer) {
		for _, v := range values {
			require.NoError(t, w.WriteTimestamp(v))
		}
	})
	for _, v := range values {
		got, err := r.ReadTimestamp()
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "want %v, got %v", v, got)
	}
}

func TestTimestampWireForms(t *testing.T) {
	cases := []struct {
		value time.Time
		tag   byte
	}{
		{time.Unix(1234567890, 0), FormatFixExt4},
		{time.Unix(1234567890, 1), FormatFixExt8},
		{time.Unix(math.MaxUint32+1, 0), FormatFixExt8},
		{time.Unix(-1, 0), FormatExt8},
		{time.Unix(1<<34, 0), FormatExt8},
	}
	for _, c := range cases {
		sink := NewBufferSink()
		w, err := NewWriter(sink)
		require.NoError(t, err)
		require.NoError(t, w.WriteTimestamp(c.value))
		require.NoError(t, w.Flush())
		assert.Equal(t, c.tag, sink.Bytes()[0], "value %v", c.value)
	}
}

func TestRoundTripMixedDocument(t *testing.T) {
	// A realistic message: map of scalars, nested array, binary blob.
	blob := []byte{0xde, 0xad, 0xbe, 0xef}
	r := roundTrip(t, func(w *Writer) {
		require.NoError(t, w.WriteMapHeader(4))
		require.NoError(t, w.WriteIdentifier("id"))
		require.NoError(t, w.WriteUint(8923423))
		require.NoError(t, w.WriteIdentifier("name"))
		require.NoError(t, w.WriteString("mxpack"))
		require.NoError(t, w.WriteIdentifier("scores"))
		require.NoError(t, w.WriteArrayHeader(3))
		require.NoError(t, w.WriteFloat64(1.25))
		require.NoError(t, w.WriteFloat64(-0.5))
		require.NoError(t, w.WriteNil())
		require.NoError(t, w.WriteIdentifier("raw"))
		require.NoError(t, w.WriteBinaryHeader(len(blob)))
		_, err := w.WritePayload(blob)
		require.NoError(t, err)
	})

	n, err := r.ReadMapHeader()
	require.NoError(t, err)
	require.Equal(t, 4, n)

	key, err := r.ReadIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "id", key)
	id, err := r.ReadUint64()
	require.NoError(t, err)
	assert.EqualValues(t, 8923423, id)

	key, err = r.ReadIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "name", key)
	name, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "mxpack", name)

	key, err = r.ReadIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "scores", key)
	count, err := r.ReadArrayHeader()
	require.NoError(t, err)
	require.Equal(t, 3, count)
	f, err := r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, 1.25, f)
	f, err = r.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, -0.5, f)
	require.NoError(t, r.ReadNil())

	key, err = r.ReadIdentifier()
	require.NoError(t, err)
	assert.Equal(t, "raw", key)
	length, err := r.ReadBinaryHeader()
	require.NoError(t, err)
	dst := make([]byte, length)
	_, err = r.ReadPayload(dst, length)
	require.NoError(t, err)
	assert.Equal(t, blob, dst)
}
