package testutil

import (
	"encoding/binary"
	"math"
)

// BCF typed-value type codes.
const (
	TypeMissing = 0
	TypeInt8    = 1
	TypeInt16   = 2
	TypeInt32   = 3
	TypeFloat   = 5
	TypeChar    = 7
)

// Integer sentinels, written at the narrowest width chosen for a vector.
const (
	IntMissing = math.MinInt32
	IntEOV     = math.MinInt32 + 1
)

// FloatMissing is the float value whose bit pattern marks a missing value.
var FloatMissing = math.Float32frombits(0x7F800001)

// Field is one INFO or FORMAT key with its value. Exactly one of Ints,
// Floats, Str or Flag should be set.
type Field struct {
	Key    int32
	Ints   []int32
	Floats []float32
	Str    string
	Flag   bool
}

// Record describes one BCF record. Pos is 0-based.
type Record struct {
	Chrom   int32
	Pos     int32
	Rlen    int32 // 0 means len(Alleles[0])
	Qual    float32
	ID      string // "" writes a missing ID
	Alleles []string
	Filters []int32
	Info    []Field
	NSample int
	Format  []Field // Ints/Floats hold NSample*n values, sample-major
}

// Header encodes the BCF magic and header text.
func Header(text string) []byte {
	b := []byte{'B', 'C', 'F', 2, 2}
	b = binary.LittleEndian.AppendUint32(b, uint32(len(text)+1))
	b = append(b, text...)
	return append(b, 0)
}

// File encodes an uncompressed BCF stream.
func File(text string, recs ...Record) []byte {
	b := Header(text)
	for _, r := range recs {
		b = append(b, r.Encode()...)
	}
	return b
}

// Encode returns the record with its l_shared/l_indiv prefix.
func (r Record) Encode() []byte {
	rlen := r.Rlen
	if rlen == 0 && len(r.Alleles) > 0 {
		rlen = int32(len(r.Alleles[0]))
	}

	var shared []byte
	shared = binary.LittleEndian.AppendUint32(shared, uint32(r.Chrom))
	shared = binary.LittleEndian.AppendUint32(shared, uint32(r.Pos))
	shared = binary.LittleEndian.AppendUint32(shared, uint32(rlen))
	shared = binary.LittleEndian.AppendUint32(shared, math.Float32bits(r.Qual))
	shared = binary.LittleEndian.AppendUint32(shared, uint32(len(r.Alleles))<<16|uint32(len(r.Info)))
	shared = binary.LittleEndian.AppendUint32(shared, uint32(len(r.Format))<<24|uint32(r.NSample))

	shared = appendString(shared, r.ID)
	for _, a := range r.Alleles {
		shared = appendString(shared, a)
	}
	if len(r.Filters) == 0 {
		shared = appendDescriptor(shared, 0, TypeMissing)
	} else {
		shared = appendInts(shared, r.Filters)
	}
	for _, f := range r.Info {
		shared = appendInts(shared, []int32{f.Key})
		shared = appendValue(shared, f, 1)
	}

	var indiv []byte
	for _, f := range r.Format {
		indiv = appendInts(indiv, []int32{f.Key})
		indiv = appendValue(indiv, f, r.NSample)
	}

	out := binary.LittleEndian.AppendUint32(nil, uint32(len(shared)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(indiv)))
	out = append(out, shared...)
	return append(out, indiv...)
}

func appendValue(b []byte, f Field, groups int) []byte {
	if groups < 1 {
		groups = 1
	}
	switch {
	case f.Flag:
		return appendDescriptor(b, 0, TypeMissing)
	case f.Floats != nil:
		b = appendDescriptor(b, len(f.Floats)/groups, TypeFloat)
		for _, v := range f.Floats {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
		}
		return b
	case f.Ints != nil:
		typ := intType(f.Ints)
		b = appendDescriptor(b, len(f.Ints)/groups, typ)
		return appendIntValues(b, f.Ints, typ)
	default:
		return appendString(b, f.Str)
	}
}

func appendString(b []byte, s string) []byte {
	b = appendDescriptor(b, len(s), TypeChar)
	return append(b, s...)
}

func appendInts(b []byte, vals []int32) []byte {
	typ := intType(vals)
	b = appendDescriptor(b, len(vals), typ)
	return appendIntValues(b, vals, typ)
}

func appendDescriptor(b []byte, n, typ int) []byte {
	if n < 15 {
		return append(b, byte(n<<4|typ))
	}
	b = append(b, byte(15<<4|typ))
	return appendInts(b, []int32{int32(n)})
}

// intType picks the narrowest width that keeps every value clear of the
// reserved sentinel range.
func intType(vals []int32) int {
	typ := TypeInt8
	for _, v := range vals {
		if v == IntMissing || v == IntEOV {
			continue
		}
		switch {
		case v < -32760 || v > math.MaxInt16:
			return TypeInt32
		case v < -120 || v > math.MaxInt8:
			typ = TypeInt16
		}
	}
	return typ
}

func appendIntValues(b []byte, vals []int32, typ int) []byte {
	for _, v := range vals {
		switch typ {
		case TypeInt8:
			switch v {
			case IntMissing:
				v = math.MinInt8
			case IntEOV:
				v = math.MinInt8 + 1
			}
			b = append(b, byte(int8(v)))
		case TypeInt16:
			switch v {
			case IntMissing:
				v = math.MinInt16
			case IntEOV:
				v = math.MinInt16 + 1
			}
			b = binary.LittleEndian.AppendUint16(b, uint16(int16(v)))
		default:
			b = binary.LittleEndian.AppendUint32(b, uint32(v))
		}
	}
	return b
}
