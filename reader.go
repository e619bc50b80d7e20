package mxpack

import (
	"fmt"
	"io"
	"math"
	"time"
)

// Reader decodes MessagePack values from a Source through a fixed-size
// working buffer.
//
// A Reader tracks the first error it encounters; once an operation has
// failed, every later operation returns the same error without touching
// the source. A Reader is not safe for concurrent use.
type Reader struct {
	source Source
	buf    []byte
	pos    int
	limit  int

	alloc     BufferAllocator
	ownsAlloc bool
	strDec    StringDecoder
	idDec     StringDecoder

	err    error
	closed bool
}

// NewReader creates a Reader over src.
func NewReader(src Source, opts ...Option) (*Reader, error) {
	if src == nil {
		return nil, ErrSourceRequired
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

	r := &Reader{
		source: src,
		buf:    buf,
		alloc:  o.allocator,
		strDec: o.stringDecoder,
		idDec:  o.identifierDecoder,
	}
	if r.alloc == nil {
		r.alloc = NewUnpooledAllocator(o.maxAllocatorCapacity)
		r.ownsAlloc = true
	}
	if r.strDec == nil {
		r.strDec = NewStringDecoder()
	}
	if r.idDec == nil {
		r.idDec = NewIdentifierDecoder()
	}
	return r, nil
}

// NewStreamReader creates a Reader over an io.Reader. Ownership of rd
// transfers: closing the Reader closes rd if it is an io.Closer.
func NewStreamReader(rd io.Reader, opts ...Option) (*Reader, error) {
	if rd == nil {
		return nil, ErrSourceRequired
	}
	return NewReader(NewStreamSource(rd), opts...)
}

// NewBufferReader creates a Reader over a pre-filled byte slice.
func NewBufferReader(b []byte, opts ...Option) (*Reader, error) {
	return NewReader(NewBufferSource(b), opts...)
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Close closes the underlying source. Operations after Close fail with
// ErrReaderClosed. Closing twice is a no-op.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.err == nil {
		r.err = ErrReaderClosed
	}
	var err error
	if cerr := r.source.Close(); cerr != nil {
		err = fmt.Errorf("%w: %w", ErrCloseFailed, cerr)
	}
	if r.ownsAlloc {
		if cerr := r.alloc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrCloseFailed, cerr)
		}
	}
	return err
}

// NextType returns the type of the next value without consuming it.
func (r *Reader) NextType() (ValueType, error) {
	if err := r.ensureRemaining(1); err != nil {
		return TypeInvalid, err
	}
	tag := r.buf[r.pos]
	t := TypeOf(tag)
	if t == TypeInvalid {
		return TypeInvalid, r.fail(&TypeError{Tag: tag, Requested: TargetValue})
	}
	return t, nil
}

// ReadNil reads a nil value.
func (r *Reader) ReadNil() error {
	format, err := r.readFormat()
	if err != nil {
		return err
	}
	if format != FormatNil {
		return r.fail(&TypeError{Tag: format, Requested: TargetNil})
	}
	return nil
}

// ReadBool reads a boolean value.
func (r *Reader) ReadBool() (bool, error) {
	format, err := r.readFormat()
	if err != nil {
		return false, err
	}
	switch format {
	case FormatTrue:
		return true, nil
	case FormatFalse:
		return false, nil
	}
	return false, r.fail(&TypeError{Tag: format, Requested: TargetBool})
}

// ReadInt8 reads an integer value that fits into an int8.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.readInt(TargetInt8, math.MinInt8, math.MaxInt8)
	return int8(v), err
}

// ReadInt16 reads an integer value that fits into an int16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.readInt(TargetInt16, math.MinInt16, math.MaxInt16)
	return int16(v), err
}

// ReadInt32 reads an integer value that fits into an int32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.readInt(TargetInt32, math.MinInt32, math.MaxInt32)
	return int32(v), err
}

// ReadInt64 reads an integer value that fits into an int64. An unsigned
// 64-bit value with its high bit set does not fit.
func (r *Reader) ReadInt64() (int64, error) {
	return r.readInt(TargetInt64, math.MinInt64, math.MaxInt64)
}

// ReadUint8 reads an integer value that fits into a uint8.
func (r *Reader) ReadUint8() (uint8, error) {
	v, err := r.readUint(TargetUint8, math.MaxUint8)
	return uint8(v), err
}

// ReadUint16 reads an integer value that fits into a uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.readUint(TargetUint16, math.MaxUint16)
	return uint16(v), err
}

// ReadUint32 reads an integer value that fits into a uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.readUint(TargetUint32, math.MaxUint32)
	return uint32(v), err
}

// ReadUint64 reads an integer value that fits into a uint64. Negative
// values do not fit.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.readUint(TargetUint64, math.MaxUint64)
}

// ReadFloat32 reads a 32-bit floating point value.
func (r *Reader) ReadFloat32() (float32, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	if format != FormatFloat32 {
		return 0, r.fail(&TypeError{Tag: format, Requested: TargetFloat32})
	}
	bits, err := r.getUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(bits), nil
}

// ReadFloat64 reads a 64-bit floating point value.
func (r *Reader) ReadFloat64() (float64, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	if format != FormatFloat64 {
		return 0, r.fail(&TypeError{Tag: format, Requested: TargetFloat64})
	}
	bits, err := r.getUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// ReadString reads a string value.
//
// The maximum string byte length outside the working buffer is bounded by
// the allocator this reader was built with (1 MiB by default).
func (r *Reader) ReadString() (string, error) {
	length, err := r.readStringHeader()
	if err != nil {
		return "", err
	}
	return r.readStringPayload(length, r.strDec)
}

// ReadIdentifier reads a string value through the interning identifier
// decoder. It accepts exactly the same wire forms as ReadString.
func (r *Reader) ReadIdentifier() (string, error) {
	length, err := r.readStringHeader()
	if err != nil {
		return "", err
	}
	return r.readStringPayload(length, r.idDec)
}

// ReadArrayHeader starts reading an array value and returns the element
// count. It MUST be followed by that many value reads.
func (r *Reader) ReadArrayHeader() (int, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	switch {
	case IsFixArray(format):
		return FixArrayLength(format), nil
	case format == FormatArray16:
		return r.getLength16()
	case format == FormatArray32:
		return r.getLength32(TypeArray)
	}
	return 0, r.fail(&TypeError{Tag: format, Requested: TargetArray})
}

// ReadMapHeader starts reading a map value and returns the entry count.
// It MUST be followed by count*2 value reads, alternating keys and values.
func (r *Reader) ReadMapHeader() (int, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	switch {
	case IsFixMap(format):
		return FixMapLength(format), nil
	case format == FormatMap16:
		return r.getLength16()
	case format == FormatMap32:
		return r.getLength32(TypeMap)
	}
	return 0, r.fail(&TypeError{Tag: format, Requested: TargetMap})
}

// ReadBinaryHeader starts reading a binary value and returns the payload
// length. It MUST be followed by ReadPayload calls that consume exactly
// that many bytes.
func (r *Reader) ReadBinaryHeader() (int, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatBin8:
		return r.getLength8()
	case FormatBin16:
		return r.getLength16()
	case FormatBin32:
		return r.getLength32(TypeBinary)
	}
	return 0, r.fail(&TypeError{Tag: format, Requested: TargetBinary})
}

// ReadRawStringHeader starts reading a string value and returns the
// UTF-8 payload length, leaving the payload to ReadPayload. This is the
// low-level alternative to ReadString.
func (r *Reader) ReadRawStringHeader() (int, error) {
	return r.readStringHeader()
}

// ReadExtensionHeader starts reading an extension value. It MUST be
// followed by ReadPayload calls that consume exactly Length bytes.
func (r *Reader) ReadExtensionHeader() (ExtensionHeader, error) {
	format, err := r.readFormat()
	if err != nil {
		return ExtensionHeader{}, err
	}
	var length int
	switch format {
	case FormatFixExt1:
		length = 1
	case FormatFixExt2:
		length = 2
	case FormatFixExt4:
		length = 4
	case FormatFixExt8:
		length = 8
	case FormatFixExt16:
		length = 16
	case FormatExt8:
		if length, err = r.getLength8(); err != nil {
			return ExtensionHeader{}, err
		}
	case FormatExt16:
		if length, err = r.getLength16(); err != nil {
			return ExtensionHeader{}, err
		}
	case FormatExt32:
		if length, err = r.getLength32(TypeExtension); err != nil {
			return ExtensionHeader{}, err
		}
	default:
		return ExtensionHeader{}, r.fail(&TypeError{Tag: format, Requested: TargetExtension})
	}
	typ, err := r.getByte()
	if err != nil {
		return ExtensionHeader{}, err
	}
	return ExtensionHeader{Length: length, Type: int8(typ)}, nil
}

// ReadTimestamp reads a timestamp extension value (type -1) in any of
// its three wire forms.
func (r *Reader) ReadTimestamp() (time.Time, error) {
	header, err := r.ReadExtensionHeader()
	if err != nil {
		return time.Time{}, err
	}
	if header.Type != ExtTimestamp {
		return time.Time{}, r.fail(fmt.Errorf("%w: extension type %d is not a timestamp", ErrWrongType, header.Type))
	}
	switch header.Length {
	case 4:
		sec, err := r.getUint32()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(int64(sec), 0).UTC(), nil
	case 8:
		data, err := r.getUint64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(int64(data&((1<<34)-1)), int64(data>>34)).UTC(), nil
	case 12:
		nsec, err := r.getUint32()
		if err != nil {
			return time.Time{}, err
		}
		sec, err := r.getUint64()
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(int64(sec), int64(nsec)).UTC(), nil
	}
	return time.Time{}, r.fail(fmt.Errorf("%w: timestamp payload length %d", ErrWrongType, header.Length))
}

// ReadPayload reads at least minBytes into dst, bypassing the working
// buffer except for bytes it already holds. It is used together with
// ReadBinaryHeader, ReadRawStringHeader, and ReadExtensionHeader.
func (r *Reader) ReadPayload(dst []byte, minBytes int) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if minBytes > len(dst) {
		minBytes = len(dst)
	}
	n := copy(dst, r.buf[r.pos:r.limit])
	r.pos += n
	if n >= minBytes || n == len(dst) {
		return n, nil
	}
	read, err := r.readFromSource(dst[n:], minBytes-n)
	return n + read, err
}

// Skip consumes exactly one value, including the children of arrays and
// maps and the payloads of strings, binary, and extensions.
func (r *Reader) Skip() error {
	format, err := r.readFormat()
	if err != nil {
		return err
	}
	switch {
	case IsFixInt(format):
		return nil
	case IsFixStr(format):
		return r.skipBytes(FixStrLength(format))
	case IsFixArray(format):
		return r.skipValues(FixArrayLength(format))
	case IsFixMap(format):
		return r.skipValues(2 * FixMapLength(format))
	}
	switch format {
	case FormatNil, FormatFalse, FormatTrue:
		return nil
	case FormatUint8, FormatInt8:
		return r.skipBytes(1)
	case FormatUint16, FormatInt16:
		return r.skipBytes(2)
	case FormatUint32, FormatInt32, FormatFloat32:
		return r.skipBytes(4)
	case FormatUint64, FormatInt64, FormatFloat64:
		return r.skipBytes(8)
	case FormatFixExt1, FormatFixExt2, FormatFixExt4, FormatFixExt8, FormatFixExt16:
		return r.skipBytes(1 + 1<<(format-FormatFixExt1))
	case FormatStr8:
		return r.skipLengthPrefixed(r.getLength8())
	case FormatStr16:
		return r.skipLengthPrefixed(r.getLength16())
	case FormatStr32:
		return r.skipLengthPrefixed(r.getLength32(TypeString))
	case FormatBin8:
		return r.skipLengthPrefixed(r.getLength8())
	case FormatBin16:
		return r.skipLengthPrefixed(r.getLength16())
	case FormatBin32:
		return r.skipLengthPrefixed(r.getLength32(TypeBinary))
	case FormatExt8:
		return r.skipExtension(r.getLength8())
	case FormatExt16:
		return r.skipExtension(r.getLength16())
	case FormatExt32:
		return r.skipExtension(r.getLength32(TypeExtension))
	case FormatArray16:
		return r.skipArrayValues(r.getLength16())
	case FormatArray32:
		return r.skipArrayValues(r.getLength32(TypeArray))
	case FormatMap16:
		return r.skipMapValues(r.getLength16())
	case FormatMap32:
		return r.skipMapValues(r.getLength32(TypeMap))
	}
	return r.fail(&TypeError{Tag: format, Requested: TargetValue})
}

func (r *Reader) skipLengthPrefixed(length int, err error) error {
	if err != nil {
		return err
	}
	return r.skipBytes(length)
}

func (r *Reader) skipExtension(length int, err error) error {
	if err != nil {
		return err
	}
	return r.skipBytes(length + 1)
}

func (r *Reader) skipArrayValues(count int, err error) error {
	if err != nil {
		return err
	}
	return r.skipValues(count)
}

func (r *Reader) skipMapValues(count int, err error) error {
	if err != nil {
		return err
	}
	return r.skipValues(2 * count)
}

func (r *Reader) skipValues(count int) error {
	for range count {
		if err := r.Skip(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) skipBytes(n int) error {
	if n <= 0 {
		return nil
	}
	if available := r.limit - r.pos; n > available {
		r.pos = r.limit
		if err := r.source.Skip(n - available); err != nil {
			return r.fail(err)
		}
		return nil
	}
	r.pos += n
	return nil
}

func (r *Reader) fail(err error) error {
	if r.err == nil && err != nil {
		r.err = err
	}
	return r.err
}

// ensureRemaining guarantees that at least n bytes sit between pos and
// limit, compacting the buffer tail to the front and refilling from the
// source as needed.
func (r *Reader) ensureRemaining(n int) error {
	if r.err != nil {
		return r.err
	}
	if r.limit-r.pos >= n {
		return nil
	}
	copy(r.buf, r.buf[r.pos:r.limit])
	r.limit -= r.pos
	r.pos = 0
	for r.limit < n {
		read, err := r.source.Read(r.buf[r.limit:], n-r.limit)
		r.limit += read
		if r.limit >= n {
			break
		}
		if err == io.EOF {
			return r.fail(&EOFError{Expected: n, ActualRead: r.limit})
		}
		if err != nil {
			return r.fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
		}
	}
	return nil
}

// readFromSource fills dst directly from the source until at least
// minBytes have arrived.
func (r *Reader) readFromSource(dst []byte, minBytes int) (int, error) {
	total := 0
	for total < minBytes {
		read, err := r.source.Read(dst[total:], minBytes-total)
		total += read
		if total >= minBytes {
			break
		}
		if err == io.EOF {
			return total, r.fail(&EOFError{Expected: minBytes, ActualRead: total})
		}
		if err != nil {
			return total, r.fail(fmt.Errorf("%w: %w", ErrReadFailed, err))
		}
	}
	return total, nil
}

func (r *Reader) readFormat() (byte, error) {
	return r.getByte()
}

func (r *Reader) getByte() (byte, error) {
	if err := r.ensureRemaining(1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *Reader) getUint16() (uint16, error) {
	if err := r.ensureRemaining(2); err != nil {
		return 0, err
	}
	v := be.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) getUint32() (uint32, error) {
	if err := r.ensureRemaining(4); err != nil {
		return 0, err
	}
	v := be.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) getUint64() (uint64, error) {
	if err := r.ensureRemaining(8); err != nil {
		return 0, err
	}
	v := be.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) getLength8() (int, error) {
	b, err := r.getByte()
	return int(b), err
}

func (r *Reader) getLength16() (int, error) {
	v, err := r.getUint16()
	return int(v), err
}

func (r *Reader) getLength32(valueType ValueType) (int, error) {
	v, err := r.getUint32()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, r.fail(&LengthError{Length: int64(v), Type: valueType})
	}
	return int(v), nil
}

// readInt decodes an integer of any encoded width, then narrows it to
// [min, max].
func (r *Reader) readInt(target TargetType, min, max int64) (int64, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	var v int64
	switch format {
	case FormatInt8:
		b, err := r.getByte()
		if err != nil {
			return 0, err
		}
		v = int64(int8(b))
	case FormatInt16:
		u, err := r.getUint16()
		if err != nil {
			return 0, err
		}
		v = int64(int16(u))
	case FormatInt32:
		u, err := r.getUint32()
		if err != nil {
			return 0, err
		}
		v = int64(int32(u))
	case FormatInt64:
		u, err := r.getUint64()
		if err != nil {
			return 0, err
		}
		v = int64(u)
	case FormatUint8:
		b, err := r.getByte()
		if err != nil {
			return 0, err
		}
		v = int64(b)
	case FormatUint16:
		u, err := r.getUint16()
		if err != nil {
			return 0, err
		}
		v = int64(u)
	case FormatUint32:
		u, err := r.getUint32()
		if err != nil {
			return 0, err
		}
		v = int64(u)
	case FormatUint64:
		u, err := r.getUint64()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			return 0, r.fail(&OverflowError{Value: int64(u), Tag: format, Target: target})
		}
		v = int64(u)
	default:
		if !IsFixInt(format) {
			return 0, r.fail(&TypeError{Tag: format, Requested: target})
		}
		v = int64(int8(format))
	}
	if v < min || v > max {
		return 0, r.fail(&OverflowError{Value: v, Tag: format, Target: target})
	}
	return v, nil
}

// readUint decodes an integer of any encoded width, then narrows it to
// [0, max].
func (r *Reader) readUint(target TargetType, max uint64) (uint64, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	var v uint64
	switch format {
	case FormatInt8:
		b, err := r.getByte()
		if err != nil {
			return 0, err
		}
		if s := int8(b); s < 0 {
			return 0, r.fail(&OverflowError{Value: int64(s), Tag: format, Target: target})
		}
		v = uint64(b)
	case FormatInt16:
		u, err := r.getUint16()
		if err != nil {
			return 0, err
		}
		if s := int16(u); s < 0 {
			return 0, r.fail(&OverflowError{Value: int64(s), Tag: format, Target: target})
		}
		v = uint64(u)
	case FormatInt32:
		u, err := r.getUint32()
		if err != nil {
			return 0, err
		}
		if s := int32(u); s < 0 {
			return 0, r.fail(&OverflowError{Value: int64(s), Tag: format, Target: target})
		}
		v = uint64(u)
	case FormatInt64:
		u, err := r.getUint64()
		if err != nil {
			return 0, err
		}
		if s := int64(u); s < 0 {
			return 0, r.fail(&OverflowError{Value: s, Tag: format, Target: target})
		}
		v = u
	case FormatUint8:
		b, err := r.getByte()
		if err != nil {
			return 0, err
		}
		v = uint64(b)
	case FormatUint16:
		u, err := r.getUint16()
		if err != nil {
			return 0, err
		}
		v = uint64(u)
	case FormatUint32:
		u, err := r.getUint32()
		if err != nil {
			return 0, err
		}
		v = uint64(u)
	case FormatUint64:
		u, err := r.getUint64()
		if err != nil {
			return 0, err
		}
		v = u
	default:
		if !IsFixInt(format) {
			return 0, r.fail(&TypeError{Tag: format, Requested: target})
		}
		if s := int8(format); s < 0 {
			return 0, r.fail(&OverflowError{Value: int64(s), Tag: format, Target: target})
		}
		v = uint64(format)
	}
	if v > max {
		return 0, r.fail(&OverflowError{Value: int64(v), Tag: format, Target: target})
	}
	return v, nil
}

func (r *Reader) readStringHeader() (int, error) {
	format, err := r.readFormat()
	if err != nil {
		return 0, err
	}
	switch {
	case IsFixStr(format):
		return FixStrLength(format), nil
	case format == FormatStr8:
		return r.getLength8()
	case format == FormatStr16:
		return r.getLength16()
	case format == FormatStr32:
		return r.getLength32(TypeString)
	}
	return 0, r.fail(&TypeError{Tag: format, Requested: TargetString})
}

// readStringPayload applies the zero-copy policy: decode straight out of
// the working buffer when the payload fits, otherwise stage it in an
// auxiliary buffer from the allocator. This is the only place that
// chooses between the two.
func (r *Reader) readStringPayload(length int, dec StringDecoder) (string, error) {
	if length <= len(r.buf) {
		if err := r.ensureRemaining(length); err != nil {
			return "", err
		}
		s, err := dec.Decode(r.buf[r.pos : r.pos+length])
		if err != nil {
			return "", r.fail(err)
		}
		r.pos += length
		return s, nil
	}

	aux, err := r.alloc.ByteBuffer(length)
	if err != nil {
		return "", r.fail(err)
	}
	defer r.alloc.Release(aux)
	aux = aux[:length]

	buffered := copy(aux, r.buf[r.pos:r.limit])
	r.pos += buffered
	if buffered < length {
		if _, err := r.readFromSource(aux[buffered:], length-buffered); err != nil {
			return "", err
		}
	}
	s, err := dec.Decode(aux)
	if err != nil {
		return "", r.fail(err)
	}
	return s, nil
}
