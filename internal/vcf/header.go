// Package vcf provides the VCF data model shared by the BCF decoder and the
// writers: header lines, the header model and flattened variants.
package vcf

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// fixedColumns are the mandatory #CHROM line columns.
var fixedColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// Header holds typed header lines in file order plus the active samples.
type Header struct {
	Lines   []HeaderLine
	Samples []string

	filters map[string]*FilterLine
	infos   map[string]*InfoLine
	formats map[string]*FormatLine
	contigs map[string]*ContigLine
}

// NewHeader indexes lines by ID. Lines are kept in the given order; when an
// ID repeats, lookups return the first definition.
func NewHeader(lines []HeaderLine, samples []string) *Header {
	h := &Header{
		Lines:   lines,
		Samples: samples,
		filters: make(map[string]*FilterLine),
		infos:   make(map[string]*InfoLine),
		formats: make(map[string]*FormatLine),
		contigs: make(map[string]*ContigLine),
	}

	for _, line := range lines {
		switch l := line.(type) {
		case *FilterLine:
			if _, ok := h.filters[l.ID()]; !ok {
				h.filters[l.ID()] = l
			}
		case *InfoLine:
			if _, ok := h.infos[l.ID()]; !ok {
				h.infos[l.ID()] = l
			}
		case *FormatLine:
			if _, ok := h.formats[l.ID()]; !ok {
				h.formats[l.ID()] = l
			}
		case *ContigLine:
			if _, ok := h.contigs[l.ID()]; !ok {
				h.contigs[l.ID()] = l
			}
		}
	}

	return h
}

// Filter returns the ##FILTER line for id.
func (h *Header) Filter(id string) (*FilterLine, bool) {
	l, ok := h.filters[id]
	return l, ok
}

// Info returns the ##INFO line for id.
func (h *Header) Info(id string) (*InfoLine, bool) {
	l, ok := h.infos[id]
	return l, ok
}

// Format returns the ##FORMAT line for id.
func (h *Header) Format(id string) (*FormatLine, bool) {
	l, ok := h.formats[id]
	return l, ok
}

// Contig returns the ##contig line for id.
func (h *Header) Contig(id string) (*ContigLine, bool) {
	l, ok := h.contigs[id]
	return l, ok
}

// Meta returns the values of all generic lines with the given key, in order.
func (h *Header) Meta(key string) []string {
	var vals []string
	for _, line := range h.Lines {
		if g, ok := line.(*GenericLine); ok && g.Tag == key {
			vals = append(vals, g.Value)
		}
	}
	return vals
}

// ColumnLine renders the #CHROM line for the active samples.
func (h *Header) ColumnLine() string {
	cols := fixedColumns
	if len(h.Samples) > 0 {
		cols = append(append(append([]string{}, fixedColumns...), "FORMAT"), h.Samples...)
	}
	return strings.Join(cols, "\t")
}

// String renders the header as VCF text.
func (h *Header) String() string {
	var sb strings.Builder
	for _, line := range h.Lines {
		sb.WriteString(line.String())
		sb.WriteByte('\n')
	}
	sb.WriteString(h.ColumnLine())
	sb.WriteByte('\n')
	return sb.String()
}

// ScanHeader reads VCF header text up to and including the #CHROM line.
// It returns the ## lines (with their prefix) and the sample names.
func ScanHeader(r io.Reader) (meta []string, samples []string, err error) {
	br := bufio.NewReader(r)
	lineNumber := 0

	for {
		line, err := br.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF {
				break
			}
			return nil, nil, fmt.Errorf("read header: %w", err)
		}
		lineNumber++

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "##") {
			meta = append(meta, line)
			continue
		}

		if strings.HasPrefix(line, "#CHROM") {
			// Extract sample names from columns after FORMAT (index 9+)
			fields := strings.Split(line, "\t")
			if len(fields) > 9 {
				samples = fields[9:]
			}
			return meta, samples, nil
		}

		return nil, nil, &ParseError{
			Line:    lineNumber,
			Message: "expected #CHROM header line",
		}
	}

	return nil, nil, &ParseError{
		Line:    lineNumber,
		Message: "no #CHROM header line found",
	}
}

// ParseError represents an error during VCF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, e.Message)
}
