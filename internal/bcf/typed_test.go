package bcf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_Descriptor(t *testing.T) {
	tests := []struct {
		name  string
		buf   []byte
		typ   ValueType
		n     int
		after int
	}{
		{"flag", []byte{0x00}, TypeMissing, 0, 1},
		{"int8 x1", []byte{0x11}, TypeInt8, 1, 1},
		{"char x14", []byte{0xe7}, TypeChar, 14, 1},
		{"long count int8", []byte{0xf7, 0x11, 20}, TypeChar, 20, 3},
		{"long count int16", []byte{0xf5, 0x12, 0x2c, 0x01}, TypeFloat, 300, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cursor{buf: tt.buf, end: len(tt.buf)}
			typ, n, err := c.descriptor()
			require.NoError(t, err)
			assert.Equal(t, tt.typ, typ)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.after, c.off)
		})
	}
}

func TestCursor_Errors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		read func(c *cursor) error
	}{
		{"empty", nil, func(c *cursor) error { _, _, err := c.descriptor(); return err }},
		{"unknown type", []byte{0x14}, func(c *cursor) error { _, _, err := c.descriptor(); return err }},
		{"negative long count", []byte{0xf7, 0x11, 0xff}, func(c *cursor) error { _, _, err := c.descriptor(); return err }},
		{"non-scalar key", []byte{0x21, 1, 2}, func(c *cursor) error { _, err := c.typedInt(); return err }},
		{"float key", []byte{0x15, 0, 0, 0, 0}, func(c *cursor) error { _, err := c.typedInt(); return err }},
		{"short vector", []byte{0x33, 1, 0, 0, 0}, func(c *cursor) error { _, err := c.vector(); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &cursor{buf: tt.buf, end: len(tt.buf), field: "test"}
			err := tt.read(c)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "test", de.Field)
		})
	}
}

func TestInts_Sentinels(t *testing.T) {
	tests := []struct {
		name string
		typ  ValueType
		buf  []byte
		want []int32
	}{
		{"int8", TypeInt8, []byte{0x05, 0xff, 0x80, 0x81}, []int32{5, -1, IntMissing}},
		{"int16", TypeInt16, []byte{0x2c, 0x01, 0x00, 0x80, 0x01, 0x80, 0x07, 0x00}, []int32{300, IntMissing}},
		{"int32", TypeInt32, []byte{0x00, 0x00, 0x00, 0x80, 0x01, 0x00, 0x00, 0x80}, []int32{IntMissing}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := span{typ: tt.typ, n: len(tt.buf) / tt.typ.Size()}
			assert.Equal(t, tt.want, ints(tt.buf, s))
		})
	}
}

func TestFloats_Sentinels(t *testing.T) {
	var buf []byte
	for _, bits := range []uint32{math.Float32bits(1.5), FloatMissingBits, FloatEOVBits, math.Float32bits(2)} {
		buf = append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	}

	got := floats(buf, span{typ: TypeFloat, n: 4})
	require.Len(t, got, 2)
	assert.Equal(t, float32(1.5), got[0])
	assert.True(t, IsFloatMissing(got[1]))
}

func TestIsFloatMissing(t *testing.T) {
	assert.True(t, IsFloatMissing(math.Float32frombits(FloatMissingBits)))
	assert.False(t, IsFloatMissing(math.Float32frombits(FloatEOVBits)))
	assert.False(t, IsFloatMissing(float32(math.NaN())))
	assert.False(t, IsFloatMissing(0))
}

func TestStr(t *testing.T) {
	buf := []byte("rs1\x00\x00")
	assert.Equal(t, "rs1", str(buf, span{typ: TypeChar, n: 5}))
	assert.Equal(t, "", str(buf, span{typ: TypeMissing}))
}

func TestValueType_String(t *testing.T) {
	assert.Equal(t, "int16", TypeInt16.String())
	assert.Equal(t, "type(9)", ValueType(9).String())
	assert.Equal(t, 0, ValueType(9).Size())
}
