// Package output provides record output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-bcf/internal/vcf"
)

// TabWriter writes flattened records in tab-delimited format.
type TabWriter struct {
	w              *bufio.Writer
	columns        []string
	info           bool
	normalizeChrom bool
}

// TabOption configures a TabWriter.
type TabOption func(*TabWriter)

// WithInfo adds an INFO column.
func WithInfo() TabOption {
	return func(tw *TabWriter) { tw.info = true }
}

// WithNormalizedChrom strips the "chr" prefix from CHROM.
func WithNormalizedChrom() TabOption {
	return func(tw *TabWriter) { tw.normalizeChrom = true }
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer, opts ...TabOption) *TabWriter {
	tw := &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#CHROM",
			"POS",
			"ID",
			"REF",
			"ALT",
			"QUAL",
			"FILTER",
			"CLASS",
		},
	}
	for _, opt := range opts {
		opt(tw)
	}
	if tw.info {
		tw.columns = append(tw.columns, "INFO")
	}
	return tw
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single variant.
func (tw *TabWriter) Write(v *vcf.Variant) error {
	chrom := v.Chrom
	if tw.normalizeChrom {
		chrom = v.NormalizeChrom()
	}

	qual := "."
	if !v.QualMissing {
		qual = strconv.FormatFloat(v.Qual, 'g', -1, 32)
	}

	values := []string{
		chrom,
		strconv.FormatInt(v.Pos, 10),
		orDot(v.ID),
		v.Ref,
		orDot(v.Alt),
		qual,
		orDot(v.Filter),
		v.Class(),
	}
	if tw.info {
		values = append(values, FormatInfo(v.Info))
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// FormatInfo renders INFO values as key=value pairs sorted by key. Flags
// are written as the bare key and missing numbers as ".".
func FormatInfo(info map[string]interface{}) string {
	if len(info) == 0 {
		return "."
	}

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch val := info[k].(type) {
		case bool:
			if val {
				parts = append(parts, k)
			}
		case []int32:
			vals := make([]string, len(val))
			for i, n := range val {
				if n == math.MinInt32 {
					vals[i] = "."
				} else {
					vals[i] = strconv.FormatInt(int64(n), 10)
				}
			}
			parts = append(parts, k+"="+strings.Join(vals, ","))
		case []float32:
			vals := make([]string, len(val))
			for i, f := range val {
				if math.Float32bits(f) == 0x7F800001 {
					vals[i] = "."
				} else {
					vals[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
				}
			}
			parts = append(parts, k+"="+strings.Join(vals, ","))
		default:
			parts = append(parts, fmt.Sprintf("%s=%v", k, val))
		}
	}
	return strings.Join(parts, ";")
}
