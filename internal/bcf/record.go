package bcf

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/inodb/vibe-bcf/internal/vcf"
)

// fixedSharedSize is the size of the fixed part of the shared block:
// CHROM, POS, rlen, QUAL, n_allele|n_info and n_fmt|n_sample.
const fixedSharedSize = 24

// maxPooledBuffer keeps oversized record buffers out of the pool.
const maxPooledBuffer = 1 << 20

var recordBuffers = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 4096)
		return &b
	},
}

func getBuffer(n int) *[]byte {
	bp := recordBuffers.Get().(*[]byte)
	if cap(*bp) < n {
		*bp = make([]byte, n)
	}
	*bp = (*bp)[:n]
	return bp
}

func putBuffer(bp *[]byte) {
	if bp == nil || cap(*bp) > maxPooledBuffer {
		return
	}
	recordBuffers.Put(bp)
}

type unpackLevel uint8

const (
	unpackStr unpackLevel = 1 << iota
	unpackFilter
	unpackInfo
	unpackFormat

	unpackShared = unpackStr | unpackFilter | unpackInfo
	unpackAll    = unpackShared | unpackFormat
)

type keyedSpan struct {
	key int32
	val span
}

// Record is one decoded variant. It owns its raw buffer until Release.
// A Record is not safe for concurrent use: accessors may unpack fields on
// first touch.
type Record struct {
	file *File
	dict *Dict

	bufp    *[]byte
	buf     []byte
	lShared int

	rid      int32
	pos      int32
	rlen     int32
	qualBits uint32
	nAllele  int
	nInfo    int
	nFmt     int
	nSample  int

	unpacked unpackLevel
	next     int // offset of the first shared field not yet unpacked

	id      span
	alleles []span
	filters []int32
	info    []keyedSpan
	format  []keyedSpan

	released bool
}

// decode wraps buf in a Record and unpacks it. In lazy mode FORMAT is left
// for the first accessor that needs it.
func decode(f *File, bufp *[]byte, lShared int, lazy bool) (*Record, error) {
	buf := *bufp
	if lShared < fixedSharedSize || lShared > len(buf) {
		return nil, &DecodeError{Field: "l_shared", Msg: fmt.Sprintf("invalid shared length %d for record of %d bytes", lShared, len(buf))}
	}

	r := &Record{
		file:     f,
		dict:     f.dict,
		bufp:     bufp,
		buf:      buf,
		lShared:  lShared,
		rid:      int32(binary.LittleEndian.Uint32(buf[0:])),
		pos:      int32(binary.LittleEndian.Uint32(buf[4:])),
		rlen:     int32(binary.LittleEndian.Uint32(buf[8:])),
		qualBits: binary.LittleEndian.Uint32(buf[12:]),
		next:     fixedSharedSize,
	}
	v := binary.LittleEndian.Uint32(buf[16:])
	r.nInfo, r.nAllele = int(v&0xffff), int(v>>16)
	v = binary.LittleEndian.Uint32(buf[20:])
	r.nSample, r.nFmt = int(v&0xffffff), int(v>>24)

	level := unpackAll
	if lazy {
		level = unpackShared
	}
	if err := r.unpack(level); err != nil {
		return nil, err
	}
	return r, nil
}

// unpack decodes the requested field groups that are not decoded yet.
// Shared groups are stored back to back, so they unpack in order.
func (r *Record) unpack(level unpackLevel) error {
	if level&unpackShared != 0 {
		c := &cursor{buf: r.buf, off: r.next, end: r.lShared}
		steps := []struct {
			lvl unpackLevel
			fn  func(*cursor) error
		}{
			{unpackStr, r.unpackStr},
			{unpackFilter, r.unpackFilter},
			{unpackInfo, r.unpackInfo},
		}
		target := level & unpackShared
		for _, s := range steps {
			if s.lvl > target {
				break
			}
			if r.unpacked&s.lvl != 0 {
				continue
			}
			if err := s.fn(c); err != nil {
				return err
			}
			r.unpacked |= s.lvl
			r.next = c.off
		}
	}

	if level&unpackFormat != 0 && r.unpacked&unpackFormat == 0 {
		c := &cursor{buf: r.buf, off: r.lShared, end: len(r.buf)}
		if err := r.unpackFormat(c); err != nil {
			return err
		}
		r.unpacked |= unpackFormat
	}
	return nil
}

func (r *Record) unpackStr(c *cursor) error {
	c.field = "ID"
	s, err := c.vector()
	if err != nil {
		return err
	}
	if err := checkStr(c, s, "ID"); err != nil {
		return err
	}
	r.id = s

	c.field = "allele"
	r.alleles = make([]span, 0, r.nAllele)
	for i := 0; i < r.nAllele; i++ {
		s, err := c.vector()
		if err != nil {
			return err
		}
		if err := checkStr(c, s, fmt.Sprintf("allele %d", i)); err != nil {
			return err
		}
		r.alleles = append(r.alleles, s)
	}
	return nil
}

// checkStr accepts a char vector or an empty missing-typed one.
func checkStr(c *cursor, s span, what string) error {
	switch {
	case s.typ == TypeChar:
		return nil
	case s.typ == TypeMissing && s.n == 0:
		return nil
	case s.typ == TypeMissing:
		return c.fail("%s is missing-typed with %d values", what, s.n)
	}
	return c.fail("%s has type %s", what, s.typ)
}

func (r *Record) unpackFilter(c *cursor) error {
	c.field = "FILTER"
	s, err := c.vector()
	if err != nil {
		return err
	}
	switch {
	case s.typ == TypeMissing || s.n == 0:
		r.filters = nil
	case s.typ.isInt():
		r.filters = ints(r.buf, s)
	default:
		return c.fail("FILTER has type %s", s.typ)
	}
	return nil
}

func (r *Record) unpackInfo(c *cursor) error {
	c.field = "INFO"
	r.info = make([]keyedSpan, 0, r.nInfo)
	for i := 0; i < r.nInfo; i++ {
		key, err := c.typedInt()
		if err != nil {
			return err
		}
		val, err := c.vector()
		if err != nil {
			return err
		}
		r.info = append(r.info, keyedSpan{key: key, val: val})
	}
	return nil
}

func (r *Record) unpackFormat(c *cursor) error {
	c.field = "FORMAT"
	r.format = make([]keyedSpan, 0, r.nFmt)
	for i := 0; i < r.nFmt; i++ {
		key, err := c.typedInt()
		if err != nil {
			return err
		}
		typ, n, err := c.descriptor()
		if err != nil {
			return err
		}
		val, err := c.spanOf(typ, n*r.nSample)
		if err != nil {
			return err
		}
		r.format = append(r.format, keyedSpan{key: key, val: val})
	}
	return nil
}

func (r *Record) check() {
	if r.released {
		panic(ErrRecordReleased)
	}
}

// RID returns the contig id of CHROM.
func (r *Record) RID() int32 {
	r.check()
	return r.rid
}

// Chrom returns the contig name, or "" if the id is not in the header.
func (r *Record) Chrom() string {
	r.check()
	name, _ := r.dict.ContigName(r.rid)
	return name
}

// Pos returns the 1-based position.
func (r *Record) Pos() int64 {
	r.check()
	return int64(r.pos) + 1
}

// Rlen returns the length of the reference span.
func (r *Record) Rlen() int64 {
	r.check()
	return int64(r.rlen)
}

// End returns the 1-based inclusive end of the reference span.
func (r *Record) End() int64 {
	r.check()
	return int64(r.pos) + int64(r.rlen)
}

// ID returns the variant identifiers; "." yields an empty slice.
func (r *Record) ID() []string {
	r.check()
	s := str(r.buf, r.id)
	if s == "" || s == "." {
		return []string{}
	}
	return strings.Split(s, ";")
}

// NAlleles returns the number of alleles including REF.
func (r *Record) NAlleles() int {
	r.check()
	return r.nAllele
}

// Ref returns allele 0.
func (r *Record) Ref() string {
	r.check()
	if len(r.alleles) == 0 {
		return ""
	}
	return str(r.buf, r.alleles[0])
}

// Alt returns alleles 1..n-1 in order.
func (r *Record) Alt() []string {
	r.check()
	if len(r.alleles) <= 1 {
		return []string{}
	}
	alts := make([]string, 0, len(r.alleles)-1)
	for _, s := range r.alleles[1:] {
		alts = append(alts, str(r.buf, s))
	}
	return alts
}

// Qual returns the quality score. ok is false when QUAL is missing.
func (r *Record) Qual() (q float32, ok bool) {
	r.check()
	if r.qualBits == FloatMissingBits {
		return 0, false
	}
	return math.Float32frombits(r.qualBits), true
}

// Filter is the decoded FILTER column: either a FilterList (no filters,
// PASS, or one failed filter) or a FilterJoined (several failed filters).
type Filter interface {
	String() string
	isFilter()
}

// FilterList holds zero or one filter name. PASS is reported as empty.
type FilterList []string

func (FilterList) isFilter()        {}
func (f FilterList) String() string { return strings.Join(f, ";") }

// FilterJoined holds two or more filter names joined by ";".
type FilterJoined string

func (FilterJoined) isFilter()        {}
func (f FilterJoined) String() string { return string(f) }

// Filter decodes FILTER. A single PASS id is cached on the file the first
// time it is resolved.
func (r *Record) Filter() Filter {
	r.check()

	switch len(r.filters) {
	case 0:
		return FilterList{}
	case 1:
		id := r.filters[0]
		if pass, ok := r.file.PassID(); ok && pass == id {
			return FilterList{}
		}
		name := r.filterName(id)
		if name == "PASS" {
			r.file.cachePassID(id)
			return FilterList{}
		}
		return FilterList{name}
	}

	names := make([]string, len(r.filters))
	for i, id := range r.filters {
		names[i] = r.filterName(id)
	}
	return FilterJoined(strings.Join(names, ";"))
}

func (r *Record) filterName(id int32) string {
	if name, ok := r.dict.StringName(id); ok {
		return name
	}
	return fmt.Sprintf("filter%d", id)
}

// InfoField is one decoded INFO entry. Value is true for flags, []int32
// for integers, []float32 for floats and string for characters.
type InfoField struct {
	Key   string
	Type  ValueType
	Value any
}

// Info decodes all INFO fields in record order.
func (r *Record) Info() []InfoField {
	r.check()
	out := make([]InfoField, 0, len(r.info))
	for _, ks := range r.info {
		out = append(out, r.infoField(ks))
	}
	return out
}

// InfoValue returns the decoded value of one INFO key.
func (r *Record) InfoValue(key string) (any, bool) {
	r.check()
	id, ok := r.dict.StringID(key)
	if !ok {
		return nil, false
	}
	for _, ks := range r.info {
		if ks.key == id {
			return r.infoField(ks).Value, true
		}
	}
	return nil, false
}

func (r *Record) infoField(ks keyedSpan) InfoField {
	name, ok := r.dict.StringName(ks.key)
	if !ok {
		name = fmt.Sprintf("info%d", ks.key)
	}
	f := InfoField{Key: name, Type: ks.val.typ}
	switch {
	case ks.val.typ == TypeMissing || ks.val.n == 0:
		f.Value = true
	case ks.val.typ.isInt():
		f.Value = ints(r.buf, ks.val)
	case ks.val.typ == TypeFloat:
		f.Value = floats(r.buf, ks.val)
	default:
		f.Value = str(r.buf, ks.val)
	}
	return f
}

// FormatKeys returns the FORMAT keys present in the record, unpacking the
// per-sample block if the file is lazy.
func (r *Record) FormatKeys() ([]string, error) {
	r.check()
	if err := r.unpack(unpackFormat); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(r.format))
	for _, ks := range r.format {
		name, ok := r.dict.StringName(ks.key)
		if !ok {
			name = fmt.Sprintf("format%d", ks.key)
		}
		keys = append(keys, name)
	}
	return keys, nil
}

// NSamples returns the number of samples stored in the record. It is the
// file-wide count and does not shrink with SetSamples; use len(f.Samples())
// for the active selection.
func (r *Record) NSamples() int {
	r.check()
	return r.nSample
}

// String renders the record as CHROM:POS REF/ALT1,ALT2 for diagnostics.
func (r *Record) String() string {
	if r.released {
		return "<released record>"
	}
	return fmt.Sprintf("%s:%d %s/%s", r.Chrom(), r.Pos(), r.Ref(), strings.Join(r.Alt(), ","))
}

// Variant flattens the record into its text form. FILTER is "." when no
// filter was recorded and "PASS" for the PASS filter.
func (r *Record) Variant() *vcf.Variant {
	r.check()
	v := &vcf.Variant{
		Chrom:  r.Chrom(),
		Pos:    r.Pos(),
		ID:     ".",
		Ref:    r.Ref(),
		Alt:    ".",
		Filter: ".",
		Info:   make(map[string]interface{}, len(r.info)),
	}
	if ids := r.ID(); len(ids) > 0 {
		v.ID = strings.Join(ids, ";")
	}
	if alts := r.Alt(); len(alts) > 0 {
		v.Alt = strings.Join(alts, ",")
	}

	q, ok := r.Qual()
	v.Qual, v.QualMissing = float64(q), !ok

	switch f := r.Filter().(type) {
	case FilterJoined:
		v.Filter = string(f)
	case FilterList:
		if len(f) > 0 {
			v.Filter = f[0]
		} else if len(r.filters) > 0 {
			v.Filter = "PASS"
		}
	}

	for _, f := range r.Info() {
		v.Info[f.Key] = f.Value
	}
	return v
}

// Release returns the buffer to the pool. Calling it again is a no-op;
// any other method called afterwards panics with ErrRecordReleased.
func (r *Record) Release() {
	if r.released {
		return
	}
	r.released = true
	putBuffer(r.bufp)
	r.bufp, r.buf = nil, nil
	r.alleles, r.info, r.format = nil, nil, nil
}
