package pointcloud

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Interpretation is the raw storage type a dimension's bytes are read as.
type Interpretation uint32

const (
	Unknown Interpretation = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Double
	Float

	interpretationCount
)

var interpretationNames = [interpretationCount]string{
	Unknown: "unknown",
	Int8:    "int8_t",
	Uint8:   "uint8_t",
	Int16:   "int16_t",
	Uint16:  "uint16_t",
	Int32:   "int32_t",
	Uint32:  "uint32_t",
	Int64:   "int64_t",
	Uint64:  "uint64_t",
	Double:  "double",
	Float:   "float",
}

// Go spellings accepted by ParseInterpretation in addition to the C names.
var interpretationAliases = map[string]Interpretation{
	"int8":    Int8,
	"uint8":   Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float64": Double,
	"float32": Float,
}

// String returns the C type name used in schema documents.
func (t Interpretation) String() string {
	if t < interpretationCount {
		return interpretationNames[t]
	}
	return fmt.Sprintf("interpretation(%d)", uint32(t))
}

// ParseInterpretation maps a type name such as "uint16_t" or "float64" to an
// Interpretation.
func ParseInterpretation(name string) (Interpretation, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t := Int8; t < interpretationCount; t++ {
		if interpretationNames[t] == name {
			return t, nil
		}
	}
	if t, ok := interpretationAliases[name]; ok {
		return t, nil
	}
	return Unknown, fmt.Errorf("%w: unknown interpretation %q", ErrInvalidSchema, name)
}

// Size returns the width in bytes of the raw value, or 0 for Unknown.
func (t Interpretation) Size() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float:
		return 4
	case Int64, Uint64, Double:
		return 8
	case Unknown:
		return 0
	default:
		return 0
	}
}

// IsInteger reports whether the raw value is an integer type.
func (t Interpretation) IsInteger() bool {
	switch t {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	case Double, Float, Unknown:
		return false
	default:
		return false
	}
}

// decode reads the raw value at the start of b in host byte order.
func (t Interpretation) decode(b []byte) float64 {
	switch t {
	case Int8:
		return float64(int8(b[0]))
	case Uint8:
		return float64(b[0])
	case Int16:
		return float64(int16(binary.NativeEndian.Uint16(b)))
	case Uint16:
		return float64(binary.NativeEndian.Uint16(b))
	case Int32:
		return float64(int32(binary.NativeEndian.Uint32(b)))
	case Uint32:
		return float64(binary.NativeEndian.Uint32(b))
	case Int64:
		return float64(int64(binary.NativeEndian.Uint64(b)))
	case Uint64:
		return float64(binary.NativeEndian.Uint64(b))
	case Double:
		return math.Float64frombits(binary.NativeEndian.Uint64(b))
	case Float:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(b)))
	case Unknown:
		return 0
	default:
		return 0
	}
}

// encode writes v at the start of b in host byte order. Integer types round
// half away from zero and clamp to their range; the return value reports
// whether v had to be clamped.
func (t Interpretation) encode(b []byte, v float64) bool {
	switch t {
	case Int8:
		r, sat := roundClamp(v, math.MinInt8, math.MaxInt8)
		b[0] = byte(int8(r))
		return sat
	case Uint8:
		r, sat := roundClamp(v, 0, math.MaxUint8)
		b[0] = uint8(r)
		return sat
	case Int16:
		r, sat := roundClamp(v, math.MinInt16, math.MaxInt16)
		binary.NativeEndian.PutUint16(b, uint16(int16(r)))
		return sat
	case Uint16:
		r, sat := roundClamp(v, 0, math.MaxUint16)
		binary.NativeEndian.PutUint16(b, uint16(r))
		return sat
	case Int32:
		r, sat := roundClamp(v, math.MinInt32, math.MaxInt32)
		binary.NativeEndian.PutUint32(b, uint32(int32(r)))
		return sat
	case Uint32:
		r, sat := roundClamp(v, 0, math.MaxUint32)
		binary.NativeEndian.PutUint32(b, uint32(r))
		return sat
	case Int64:
		i, sat := saturateInt64(v)
		binary.NativeEndian.PutUint64(b, uint64(i))
		return sat
	case Uint64:
		u, sat := saturateUint64(v)
		binary.NativeEndian.PutUint64(b, u)
		return sat
	case Double:
		binary.NativeEndian.PutUint64(b, math.Float64bits(v))
		return false
	case Float:
		f, sat := saturateFloat32(v)
		binary.NativeEndian.PutUint32(b, math.Float32bits(f))
		return sat
	case Unknown:
		return false
	default:
		return false
	}
}

// roundClamp rounds v and clamps it to [lo, hi]. NaN becomes 0.
func roundClamp(v, lo, hi float64) (float64, bool) {
	if math.IsNaN(v) {
		return 0, true
	}
	r := math.Round(v)
	if r < lo {
		return lo, true
	}
	if r > hi {
		return hi, true
	}
	return r, false
}

// 2^63 and 2^64 are exact in float64; MaxInt64 and MaxUint64 are not.
const (
	twoTo63 = 9223372036854775808.0
	twoTo64 = 18446744073709551616.0
)

func saturateInt64(v float64) (int64, bool) {
	if math.IsNaN(v) {
		return 0, true
	}
	r := math.Round(v)
	if r >= twoTo63 {
		return math.MaxInt64, true
	}
	if r < -twoTo63 {
		return math.MinInt64, true
	}
	return int64(r), false
}

func saturateUint64(v float64) (uint64, bool) {
	if math.IsNaN(v) {
		return 0, true
	}
	r := math.Round(v)
	if r >= twoTo64 {
		return math.MaxUint64, true
	}
	if r < 0 {
		return 0, true
	}
	return uint64(r), false
}

func saturateFloat32(v float64) (float32, bool) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return float32(v), false
	}
	if v > math.MaxFloat32 {
		return math.MaxFloat32, true
	}
	if v < -math.MaxFloat32 {
		return -math.MaxFloat32, true
	}
	return float32(v), false
}
