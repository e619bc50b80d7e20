package mxpack

import (
	"fmt"
	"io"
	"math"
	"time"
)

// Writer encodes MessagePack values into a Sink through a fixed-size
// working buffer, always choosing the smallest tag that faithfully
// represents a value.
//
// A Writer tracks the first error it encounters; once an operation has
// failed, every later operation returns the same error without touching
// the sink. A Writer is not safe for concurrent use.
type Writer struct {
	sink Sink
	buf  []byte
	pos  int

	strEnc StringEncoder
	idEnc  StringEncoder

	err    error
	closed bool
}

// NewWriter creates a Writer over sink.
func NewWriter(sink Sink, opts ...Option) (*Writer, error) {
	if sink == nil {
		return nil, ErrSinkRequired
	}
	o := applyOptions(opts)

	buf := o.buffer
	if buf == nil {
		if o.capacity < MIN_BUFFER_CAPACITY {
			return nil, fmt.Errorf("%w: capacity %d is below the %d byte minimum",
				ErrBufferTooSmall, o.capacity, MIN_BUFFER_CAPACITY)
		}
		buf = make([]byte, o.capacity)
	} else {
		buf = buf[:cap(buf)]
	}
	if len(buf) < MIN_BUFFER_CAPACITY {
		return nil, fmt.Errorf("%w: capacity %d is below the %d byte minimum",
			ErrBufferTooSmall, len(buf), MIN_BUFFER_CAPACITY)
	}

	w := &Writer{
		sink:   sink,
		buf:    buf,
		strEnc: o.stringEncoder,
		idEnc:  o.identifierEncoder,
	}
	if w.strEnc == nil {
		w.strEnc = NewStringEncoder()
	}
	if w.idEnc == nil {
		w.idEnc = NewIdentifierEncoder()
	}
	return w, nil
}

// NewStreamWriter creates a Writer over an io.Writer. Ownership of wr
// transfers: closing the Writer closes wr if it is an io.Closer.
func NewStreamWriter(wr io.Writer, opts ...Option) (*Writer, error) {
	if wr == nil {
		return nil, ErrSinkRequired
	}
	return NewWriter(NewStreamSink(wr), opts...)
}

// Err returns the first error encountered, if any.
func (w *Writer) Err() error { return w.err }

// Flush pushes all formatted bytes out to the sink and flushes the sink.
func (w *Writer) Flush() error {
	if err := w.flushBuffer(); err != nil {
		return err
	}
	if err := w.sink.Flush(); err != nil {
		return w.fail(wrapWriteErr(err))
	}
	return nil
}

// Close flushes, then closes the underlying sink. Operations after Close
// fail with ErrWriterClosed. Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var err error
	if w.err == nil {
		err = w.Flush()
	}
	if w.err == nil {
		w.err = ErrWriterClosed
	}
	if cerr := w.sink.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: %w", ErrCloseFailed, cerr)
	}
	return err
}

// WriteNil writes a nil value.
func (w *Writer) WriteNil() error {
	return w.putByte(FormatNil)
}

// WriteBool writes a boolean value.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.putByte(FormatTrue)
	}
	return w.putByte(FormatFalse)
}

// WriteInt writes an integer value in its smallest form.
func (w *Writer) WriteInt(v int64) error {
	if v >= 0 {
		return w.WriteUint(uint64(v))
	}
	switch {
	case v >= -32:
		return w.putByte(byte(v))
	case v >= math.MinInt8:
		return w.putByteAnd8(FormatInt8, byte(v))
	case v >= math.MinInt16:
		return w.putByteAnd16(FormatInt16, uint16(v))
	case v >= math.MinInt32:
		return w.putByteAnd32(FormatInt32, uint32(v))
	}
	return w.putByteAnd64(FormatInt64, uint64(v))
}

// WriteUint writes a non-negative integer value in its smallest form.
func (w *Writer) WriteUint(v uint64) error {
	switch {
	case v < 0x80:
		return w.putByte(byte(v))
	case v <= math.MaxUint8:
		return w.putByteAnd8(FormatUint8, byte(v))
	case v <= math.MaxUint16:
		return w.putByteAnd16(FormatUint16, uint16(v))
	case v <= math.MaxUint32:
		return w.putByteAnd32(FormatUint32, uint32(v))
	}
	return w.putByteAnd64(FormatUint64, v)
}

// WriteInt8 writes v in its smallest form.
func (w *Writer) WriteInt8(v int8) error { return w.WriteInt(int64(v)) }

// WriteInt16 writes v in its smallest form.
func (w *Writer) WriteInt16(v int16) error { return w.WriteInt(int64(v)) }

// WriteInt32 writes v in its smallest form.
func (w *Writer) WriteInt32(v int32) error { return w.WriteInt(int64(v)) }

// WriteInt64 writes v in its smallest form.
func (w *Writer) WriteInt64(v int64) error { return w.WriteInt(v) }

// WriteUint8 writes v in its smallest form.
func (w *Writer) WriteUint8(v uint8) error { return w.WriteUint(uint64(v)) }

// WriteUint16 writes v in its smallest form.
func (w *Writer) WriteUint16(v uint16) error { return w.WriteUint(uint64(v)) }

// WriteUint32 writes v in its smallest form.
func (w *Writer) WriteUint32(v uint32) error { return w.WriteUint(uint64(v)) }

// WriteUint64 writes v in its smallest form.
func (w *Writer) WriteUint64(v uint64) error { return w.WriteUint(v) }

// WriteFloat32 writes a 32-bit floating point value.
func (w *Writer) WriteFloat32(v float32) error {
	return w.putByteAnd32(FormatFloat32, math.Float32bits(v))
}

// WriteFloat64 writes a 64-bit floating point value.
func (w *Writer) WriteFloat64(v float64) error {
	return w.putByteAnd64(FormatFloat64, math.Float64bits(v))
}

// WriteString writes a string value. The header always carries the exact
// UTF-8 byte count.
func (w *Writer) WriteString(s string) error {
	return w.writeStringValue(s, w.strEnc)
}

// WriteIdentifier writes a string value through the identifier encoder.
// The wire form is identical to WriteString.
func (w *Writer) WriteIdentifier(s string) error {
	return w.writeStringValue(s, w.idEnc)
}

// WriteArrayHeader starts an array of n elements. It MUST be followed by
// n value writes.
func (w *Writer) WriteArrayHeader(n int) error {
	switch {
	case n < 0 || int64(n) > math.MaxUint32:
		return w.fail(&LengthError{Length: int64(n), Type: TypeArray})
	case n <= 0x0f:
		return w.putByte(fixArrayPrefix | byte(n))
	case n <= math.MaxUint16:
		return w.putByteAnd16(FormatArray16, uint16(n))
	}
	return w.putByteAnd32(FormatArray32, uint32(n))
}

// WriteMapHeader starts a map of n entries. It MUST be followed by n*2
// value writes, alternating keys and values.
func (w *Writer) WriteMapHeader(n int) error {
	switch {
	case n < 0 || int64(n) > math.MaxUint32:
		return w.fail(&LengthError{Length: int64(n), Type: TypeMap})
	case n <= 0x0f:
		return w.putByte(fixMapPrefix | byte(n))
	case n <= math.MaxUint16:
		return w.putByteAnd16(FormatMap16, uint16(n))
	}
	return w.putByteAnd32(FormatMap32, uint32(n))
}

// WriteBinaryHeader starts a binary value of n payload bytes. It MUST be
// followed by WritePayload calls carrying exactly n bytes.
func (w *Writer) WriteBinaryHeader(n int) error {
	switch {
	case n < 0 || int64(n) > math.MaxUint32:
		return w.fail(&LengthError{Length: int64(n), Type: TypeBinary})
	case n <= math.MaxUint8:
		return w.putByteAnd8(FormatBin8, byte(n))
	case n <= math.MaxUint16:
		return w.putByteAnd16(FormatBin16, uint16(n))
	}
	return w.putByteAnd32(FormatBin32, uint32(n))
}

// WriteRawStringHeader starts a string value of n payload bytes. It MUST
// be followed by WritePayload calls carrying exactly n bytes of UTF-8.
// This is the low-level alternative to WriteString.
func (w *Writer) WriteRawStringHeader(n int) error {
	switch {
	case n < 0 || int64(n) > math.MaxUint32:
		return w.fail(&LengthError{Length: int64(n), Type: TypeString})
	case n <= 0x1f:
		return w.putByte(fixStrPrefix | byte(n))
	case n <= math.MaxUint8:
		return w.putByteAnd8(FormatStr8, byte(n))
	case n <= math.MaxUint16:
		return w.putByteAnd16(FormatStr16, uint16(n))
	}
	return w.putByteAnd32(FormatStr32, uint32(n))
}

// WriteExtensionHeader starts an extension value. It MUST be followed by
// WritePayload calls carrying exactly length bytes.
func (w *Writer) WriteExtensionHeader(length int, typ int8) error {
	var err error
	switch {
	case length < 0 || int64(length) > math.MaxUint32:
		return w.fail(&LengthError{Length: int64(length), Type: TypeExtension})
	case length == 1:
		err = w.putByte(FormatFixExt1)
	case length == 2:
		err = w.putByte(FormatFixExt2)
	case length == 4:
		err = w.putByte(FormatFixExt4)
	case length == 8:
		err = w.putByte(FormatFixExt8)
	case length == 16:
		err = w.putByte(FormatFixExt16)
	case length <= math.MaxUint8:
		err = w.putByteAnd8(FormatExt8, byte(length))
	case length <= math.MaxUint16:
		err = w.putByteAnd16(FormatExt16, uint16(length))
	default:
		err = w.putByteAnd32(FormatExt32, uint32(length))
	}
	if err != nil {
		return err
	}
	return w.putByte(byte(typ))
}

// WriteTimestamp writes a timestamp extension value (type -1) in its
// smallest wire form.
func (w *Writer) WriteTimestamp(t time.Time) error {
	sec := t.Unix()
	nsec := uint64(t.Nanosecond())
	typ := ExtTimestamp // a variable, so byte(typ) wraps -1 to 0xff
	if sec >= 0 && sec>>34 == 0 {
		data := nsec<<34 | uint64(sec)
		if data&0xffffffff00000000 == 0 {
			if err := w.putByteAnd8(FormatFixExt4, byte(typ)); err != nil {
				return err
			}
			return w.putUint32(uint32(data))
		}
		if err := w.putByteAnd8(FormatFixExt8, byte(typ)); err != nil {
			return err
		}
		return w.putUint64(data)
	}
	if err := w.putByteAnd8(FormatExt8, 12); err != nil {
		return err
	}
	if err := w.putByte(byte(typ)); err != nil {
		return err
	}
	if err := w.putUint32(uint32(nsec)); err != nil {
		return err
	}
	return w.putUint64(uint64(sec))
}

// WritePayload writes raw bytes, used together with WriteBinaryHeader,
// WriteRawStringHeader, and WriteExtensionHeader.
func (w *Writer) WritePayload(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if len(p) <= len(w.buf)-w.pos {
		w.pos += copy(w.buf[w.pos:], p)
		return len(p), nil
	}
	if err := w.flushBuffer(); err != nil {
		return 0, err
	}
	if len(p) < len(w.buf) {
		w.pos += copy(w.buf, p)
		return len(p), nil
	}
	if err := w.sinkWrite(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *Writer) writeStringValue(s string, enc StringEncoder) error {
	if w.err != nil {
		return w.err
	}
	n, err := enc.EncodedLength(s)
	if err != nil {
		return w.fail(err)
	}
	if err := w.WriteRawStringHeader(n); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if n <= len(w.buf) {
		if err := w.ensureCapacity(n); err != nil {
			return err
		}
		written, err := enc.Encode(w.buf[w.pos:w.pos+n], s)
		if err != nil {
			return w.fail(err)
		}
		w.pos += written
		return nil
	}
	// The payload exceeds the working buffer: the header is already out,
	// spill the string in chunks. A Go string's bytes are its UTF-8
	// encoding, so after EncodedLength has validated the string a plain
	// copy emits what the encoder would.
	if err := w.flushBuffer(); err != nil {
		return err
	}
	for off := 0; off < n; {
		c := copy(w.buf, s[off:])
		if err := w.sinkWrite(w.buf[:c]); err != nil {
			return err
		}
		off += c
	}
	return nil
}

func (w *Writer) fail(err error) error {
	if w.err == nil && err != nil {
		w.err = err
	}
	return w.err
}

// ensureCapacity flushes the working buffer when a primitive of n bytes
// would not fit behind pos.
func (w *Writer) ensureCapacity(n int) error {
	if w.err != nil {
		return w.err
	}
	if len(w.buf)-w.pos >= n {
		return nil
	}
	return w.flushBuffer()
}

// flushBuffer moves all formatted bytes to the sink without flushing the
// sink itself.
func (w *Writer) flushBuffer() error {
	if w.err != nil {
		return w.err
	}
	if w.pos == 0 {
		return nil
	}
	if err := w.sinkWrite(w.buf[:w.pos]); err != nil {
		return err
	}
	w.pos = 0
	return nil
}

func (w *Writer) sinkWrite(p []byte) error {
	if _, err := w.sink.Write(p); err != nil {
		return w.fail(wrapWriteErr(err))
	}
	return nil
}

func (w *Writer) putByte(b byte) error {
	if err := w.ensureCapacity(1); err != nil {
		return err
	}
	w.buf[w.pos] = b
	w.pos++
	return nil
}

func (w *Writer) putByteAnd8(tag, v byte) error {
	if err := w.ensureCapacity(2); err != nil {
		return err
	}
	w.buf[w.pos] = tag
	w.buf[w.pos+1] = v
	w.pos += 2
	return nil
}

func (w *Writer) putByteAnd16(tag byte, v uint16) error {
	if err := w.ensureCapacity(3); err != nil {
		return err
	}
	w.buf[w.pos] = tag
	be.PutUint16(w.buf[w.pos+1:], v)
	w.pos += 3
	return nil
}

func (w *Writer) putByteAnd32(tag byte, v uint32) error {
	if err := w.ensureCapacity(5); err != nil {
		return err
	}
	w.buf[w.pos] = tag
	be.PutUint32(w.buf[w.pos+1:], v)
	w.pos += 5
	return nil
}

func (w *Writer) putByteAnd64(tag byte, v uint64) error {
	if err := w.ensureCapacity(9); err != nil {
		return err
	}
	w.buf[w.pos] = tag
	be.PutUint64(w.buf[w.pos+1:], v)
	w.pos += 9
	return nil
}

func (w *Writer) putUint32(v uint32) error {
	if err := w.ensureCapacity(4); err != nil {
		return err
	}
	be.PutUint32(w.buf[w.pos:], v)
	w.pos += 4
	return nil
}

func (w *Writer) putUint64(v uint64) error {
	if err := w.ensureCapacity(8); err != nil {
		return err
	}
	be.PutUint64(w.buf[w.pos:], v)
	w.pos += 8
	return nil
}
