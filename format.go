package mxpack

// MessagePack format tags.
// See: https://github.com/msgpack/msgpack/blob/master/spec.md
const (
	FormatNil       byte = 0xc0
	FormatNeverUsed byte = 0xc1 // reserved, must never appear on the wire
	FormatFalse     byte = 0xc2
	FormatTrue      byte = 0xc3

	FormatBin8  byte = 0xc4
	FormatBin16 byte = 0xc5
	FormatBin32 byte = 0xc6

	FormatExt8  byte = 0xc7
	FormatExt16 byte = 0xc8
	FormatExt32 byte = 0xc9

	FormatFloat32 byte = 0xca
	FormatFloat64 byte = 0xcb

	FormatUint8  byte = 0xcc
	FormatUint16 byte = 0xcd
	FormatUint32 byte = 0xce
	FormatUint64 byte = 0xcf
	FormatInt8   byte = 0xd0
	FormatInt16  byte = 0xd1
	FormatInt32  byte = 0xd2
	FormatInt64  byte = 0xd3

	FormatFixExt1  byte = 0xd4
	FormatFixExt2  byte = 0xd5
	FormatFixExt4  byte = 0xd6
	FormatFixExt8  byte = 0xd7
	FormatFixExt16 byte = 0xd8

	FormatStr8  byte = 0xd9
	FormatStr16 byte = 0xda
	FormatStr32 byte = 0xdb

	FormatArray16 byte = 0xdc
	FormatArray32 byte = 0xdd
	FormatMap16   byte = 0xde
	FormatMap32   byte = 0xdf
)

// Fix-format masks and ranges. The low bits of a fix tag carry a small
// value or length.
const (
	posFixIntMask byte = 0x80

	negFixIntMin byte = 0xe0

	fixMapMask   byte = 0xf0
	fixMapPrefix byte = 0x80

	fixArrayMask   byte = 0xf0
	fixArrayPrefix byte = 0x90

	fixStrMask   byte = 0xe0
	fixStrPrefix byte = 0xa0
)

// ExtTimestamp is the predefined extension type code for timestamps.
const ExtTimestamp int8 = -1

// IsFixInt returns true if tag is a positive (0x00-0x7f) or negative
// (0xe0-0xff) fixint.
func IsFixInt(tag byte) bool {
	return tag&posFixIntMask == 0 || tag >= negFixIntMin
}

// IsFixMap returns true if tag is a fixmap (0x80-0x8f).
func IsFixMap(tag byte) bool {
	return tag&fixMapMask == fixMapPrefix
}

// IsFixArray returns true if tag is a fixarray (0x90-0x9f).
func IsFixArray(tag byte) bool {
	return tag&fixArrayMask == fixArrayPrefix
}

// IsFixStr returns true if tag is a fixstr (0xa0-0xbf).
func IsFixStr(tag byte) bool {
	return tag&fixStrMask == fixStrPrefix
}

// FixMapLength returns the length encoded in a fixmap tag.
func FixMapLength(tag byte) int { return int(tag & 0x0f) }

// FixArrayLength returns the length encoded in a fixarray tag.
func FixArrayLength(tag byte) int { return int(tag & 0x0f) }

// FixStrLength returns the length encoded in a fixstr tag.
func FixStrLength(tag byte) int { return int(tag & 0x1f) }

// ValueType is the type of a MessagePack value as seen on the wire.
type ValueType uint8

const (
	TypeNil ValueType = iota
	TypeBoolean
	TypeInteger
	TypeFloat
	TypeString
	TypeBinary
	TypeArray
	TypeMap
	TypeExtension
	// TypeInvalid is reported for the reserved tag 0xc1. Observing it on
	// the wire is a fatal decode error.
	TypeInvalid
)

var valueTypeNames = [...]string{
	TypeNil:       "nil",
	TypeBoolean:   "boolean",
	TypeInteger:   "integer",
	TypeFloat:     "float",
	TypeString:    "string",
	TypeBinary:    "binary",
	TypeArray:     "array",
	TypeMap:       "map",
	TypeExtension: "extension",
	TypeInvalid:   "invalid",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return "unknown"
}

// TypeOf maps a format tag to the type of the value it introduces.
func TypeOf(tag byte) ValueType {
	switch {
	case IsFixInt(tag):
		return TypeInteger
	case IsFixMap(tag):
		return TypeMap
	case IsFixArray(tag):
		return TypeArray
	case IsFixStr(tag):
		return TypeString
	}
	switch tag {
	case FormatNil:
		return TypeNil
	case FormatFalse, FormatTrue:
		return TypeBoolean
	case FormatBin8, FormatBin16, FormatBin32:
		return TypeBinary
	case FormatExt8, FormatExt16, FormatExt32,
		FormatFixExt1, FormatFixExt2, FormatFixExt4, FormatFixExt8, FormatFixExt16:
		return TypeExtension
	case FormatFloat32, FormatFloat64:
		return TypeFloat
	case FormatUint8, FormatUint16, FormatUint32, FormatUint64,
		FormatInt8, FormatInt16, FormatInt32, FormatInt64:
		return TypeInteger
	case FormatStr8, FormatStr16, FormatStr32:
		return TypeString
	case FormatArray16, FormatArray32:
		return TypeArray
	case FormatMap16, FormatMap32:
		return TypeMap
	}
	return TypeInvalid
}

// TargetType names the value a caller asked a Reader for. It appears in
// type-mismatch and overflow errors.
type TargetType uint8

const (
	TargetValue TargetType = iota
	TargetNil
	TargetBool
	TargetInt8
	TargetInt16
	TargetInt32
	TargetInt64
	TargetUint8
	TargetUint16
	TargetUint32
	TargetUint64
	TargetFloat32
	TargetFloat64
	TargetString
	TargetArray
	TargetMap
	TargetBinary
	TargetExtension
	TargetTimestamp
)

var targetTypeNames = [...]string{
	TargetValue:     "value",
	TargetNil:       "nil",
	TargetBool:      "bool",
	TargetInt8:      "int8",
	TargetInt16:     "int16",
	TargetInt32:     "int32",
	TargetInt64:     "int64",
	TargetUint8:     "uint8",
	TargetUint16:    "uint16",
	TargetUint32:    "uint32",
	TargetUint64:    "uint64",
	TargetFloat32:   "float32",
	TargetFloat64:   "float64",
	TargetString:    "string",
	TargetArray:     "array",
	TargetMap:       "map",
	TargetBinary:    "binary",
	TargetExtension: "extension",
	TargetTimestamp: "timestamp",
}

func (t TargetType) String() string {
	if int(t) < len(targetTypeNames) {
		return targetTypeNames[t]
	}
	return "unknown"
}

// ExtensionHeader describes an extension value: a signed 8-bit type code
// followed by Length payload bytes. Type codes 0 to 127 are application
// extensions; -128 to -1 are reserved for the format.
type ExtensionHeader struct {
	Length int
	Type   int8
}
