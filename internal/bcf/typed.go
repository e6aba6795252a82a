package bcf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueType is the type code of a BCF typed value.
type ValueType uint8

const (
	TypeMissing ValueType = 0
	TypeInt8    ValueType = 1
	TypeInt16   ValueType = 2
	TypeInt32   ValueType = 3
	TypeFloat   ValueType = 5
	TypeChar    ValueType = 7
)

// Size returns the width in bytes of one value.
func (t ValueType) Size() int {
	switch t {
	case TypeInt8, TypeChar:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat:
		return 4
	}
	return 0
}

func (t ValueType) String() string {
	switch t {
	case TypeMissing:
		return "missing"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeFloat:
		return "float"
	case TypeChar:
		return "char"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t ValueType) valid() bool {
	return t == TypeMissing || t.Size() > 0
}

func (t ValueType) isInt() bool {
	return t == TypeInt8 || t == TypeInt16 || t == TypeInt32
}

// Integer sentinels after widening to int32.
const (
	IntMissing int32 = math.MinInt32
	IntEOV     int32 = math.MinInt32 + 1
)

// Float sentinels. Both are NaN payloads, so they must be compared by bit
// pattern rather than with math.IsNaN.
const (
	FloatMissingBits uint32 = 0x7F800001
	FloatEOVBits     uint32 = 0x7F800002
)

// IsFloatMissing reports whether f carries the missing-value bit pattern.
// An ordinary NaN is not missing.
func IsFloatMissing(f float32) bool {
	return math.Float32bits(f) == FloatMissingBits
}

// span locates a typed vector of n values inside a record buffer.
type span struct {
	typ ValueType
	n   int
	off int
}

// cursor walks typed values in buf[off:end].
type cursor struct {
	buf   []byte
	off   int
	end   int
	field string
}

func (c *cursor) fail(format string, args ...any) error {
	return &DecodeError{Field: c.field, Offset: c.off, Msg: fmt.Sprintf(format, args...)}
}

func (c *cursor) need(n int) error {
	if n < 0 || c.off+n > c.end {
		return c.fail("need %d bytes, %d left", n, c.end-c.off)
	}
	return nil
}

// descriptor reads a type byte and, for counts of 15 or more, the typed
// integer that follows it.
func (c *cursor) descriptor() (ValueType, int, error) {
	if err := c.need(1); err != nil {
		return 0, 0, err
	}
	b := c.buf[c.off]
	typ, n := ValueType(b&0x0f), int(b>>4)
	if !typ.valid() {
		return 0, 0, c.fail("unknown value type %d", uint8(typ))
	}
	c.off++

	if n == 15 {
		v, err := c.typedInt()
		if err != nil {
			return 0, 0, err
		}
		if v < 0 {
			return 0, 0, c.fail("negative vector length %d", v)
		}
		n = int(v)
	}
	return typ, n, nil
}

// typedInt reads a single typed integer, as used for keys and long counts.
func (c *cursor) typedInt() (int32, error) {
	typ, n, err := c.descriptor()
	if err != nil {
		return 0, err
	}
	if !typ.isInt() || n != 1 {
		return 0, c.fail("expected scalar integer, got %d x %s", n, typ)
	}
	if err := c.need(typ.Size()); err != nil {
		return 0, err
	}
	v := intAt(c.buf, span{typ: typ, n: 1, off: c.off}, 0)
	c.off += typ.Size()
	return v, nil
}

// vector reads a descriptor and skips over its values.
func (c *cursor) vector() (span, error) {
	typ, n, err := c.descriptor()
	if err != nil {
		return span{}, err
	}
	return c.spanOf(typ, n)
}

func (c *cursor) spanOf(typ ValueType, n int) (span, error) {
	size := n * typ.Size()
	if err := c.need(size); err != nil {
		return span{}, err
	}
	s := span{typ: typ, n: n, off: c.off}
	c.off += size
	return s, nil
}

// intAt returns value i of an integer span widened to int32, with the
// width-specific sentinels mapped onto IntMissing and IntEOV.
func intAt(buf []byte, s span, i int) int32 {
	switch s.typ {
	case TypeInt8:
		v := int8(buf[s.off+i])
		switch v {
		case math.MinInt8:
			return IntMissing
		case math.MinInt8 + 1:
			return IntEOV
		}
		return int32(v)
	case TypeInt16:
		v := int16(binary.LittleEndian.Uint16(buf[s.off+2*i:]))
		switch v {
		case math.MinInt16:
			return IntMissing
		case math.MinInt16 + 1:
			return IntEOV
		}
		return int32(v)
	default:
		return int32(binary.LittleEndian.Uint32(buf[s.off+4*i:]))
	}
}

func floatAt(buf []byte, s span, i int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[s.off+4*i:]))
}

// ints decodes an integer span, stopping at the first end-of-vector value.
func ints(buf []byte, s span) []int32 {
	out := make([]int32, 0, s.n)
	for i := 0; i < s.n; i++ {
		v := intAt(buf, s, i)
		if v == IntEOV {
			break
		}
		out = append(out, v)
	}
	return out
}

// floats decodes a float span, stopping at the first end-of-vector value.
func floats(buf []byte, s span) []float32 {
	out := make([]float32, 0, s.n)
	for i := 0; i < s.n; i++ {
		v := floatAt(buf, s, i)
		if math.Float32bits(v) == FloatEOVBits {
			break
		}
		out = append(out, v)
	}
	return out
}

// str decodes a char span, dropping NUL padding.
func str(buf []byte, s span) string {
	if s.typ != TypeChar {
		return ""
	}
	b := buf[s.off : s.off+s.n]
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}
