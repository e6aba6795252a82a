package vcf

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// HeaderLine is one ## meta line of a VCF header. Concrete types are
// *GenericLine, *StructuredLine, *FilterLine, *InfoLine, *FormatLine and
// *ContigLine.
type HeaderLine interface {
	// Key returns the tag, e.g. "INFO" or "fileformat".
	Key() string
	// String renders the line including the leading "##".
	String() string
}

// GenericLine is a free-form key=value line such as ##fileformat=VCFv4.2.
type GenericLine struct {
	Tag   string
	Value string
}

func (l *GenericLine) Key() string    { return l.Tag }
func (l *GenericLine) String() string { return "##" + l.Tag + "=" + l.Value }

// StructuredLine is a ##TAG=<k=v,...> line with no specific parser.
type StructuredLine struct {
	Tag    string
	Fields []Field // original order
}

func (l *StructuredLine) Key() string { return l.Tag }

func (l *StructuredLine) String() string {
	return "##" + l.Tag + "=<" + JoinStructured(l.Fields) + ">"
}

// Get returns the value for key.
func (l *StructuredLine) Get(key string) (string, bool) {
	for _, f := range l.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// ID returns the ID field, or "".
func (l *StructuredLine) ID() string {
	id, _ := l.Get("ID")
	return id
}

// FilterLine is a ##FILTER line.
type FilterLine struct {
	StructuredLine
	Description string
}

// InfoLine is a ##INFO line.
type InfoLine struct {
	StructuredLine
	Number      string
	Type        string
	Description string
}

// FormatLine is a ##FORMAT line.
type FormatLine struct {
	StructuredLine
	Number      string
	Type        string
	Description string
}

// ContigLine is a ##contig line. Length is 0 when absent.
type ContigLine struct {
	StructuredLine
	Length int64
}

var (
	// ErrMissingID is returned when a structured line requires an ID.
	ErrMissingID = errors.New("missing ID")
)

// HeaderLineParser turns the rendered body of a structured line into a
// typed HeaderLine.
type HeaderLineParser func(tag, value string) (HeaderLine, error)

var (
	parsersMu sync.RWMutex
	parsers   = map[string]HeaderLineParser{
		"FILTER": parseFilterLine,
		"INFO":   parseInfoLine,
		"FORMAT": parseFormatLine,
		"contig": parseContigLine,
	}
)

// RegisterHeaderLineParser adds or replaces the parser for tag.
func RegisterHeaderLineParser(tag string, p HeaderLineParser) {
	parsersMu.Lock()
	defer parsersMu.Unlock()
	parsers[tag] = p
}

// ParseHeaderLine parses the body of a structured line with the parser
// registered for tag, or DefaultHeaderLineParser if there is none.
//
// The returned line is never nil. When the specific parser fails, the
// default parser's result is returned together with that parser's error so
// the caller can warn and carry on.
func ParseHeaderLine(tag, value string) (HeaderLine, error) {
	parsersMu.RLock()
	p, ok := parsers[tag]
	parsersMu.RUnlock()

	if ok {
		line, err := p(tag, value)
		if err == nil {
			return line, nil
		}
		fallback, ferr := DefaultHeaderLineParser(tag, value)
		if ferr != nil {
			return &GenericLine{Tag: tag, Value: "<" + value + ">"}, err
		}
		return fallback, err
	}

	line, err := DefaultHeaderLineParser(tag, value)
	if err != nil {
		return &GenericLine{Tag: tag, Value: "<" + value + ">"}, err
	}
	return line, nil
}

// DefaultHeaderLineParser returns a *StructuredLine holding the fields in order.
func DefaultHeaderLineParser(tag, value string) (HeaderLine, error) {
	fields, err := SplitStructured(value)
	if err != nil {
		return nil, fmt.Errorf("parse %s line: %w", tag, err)
	}
	return &StructuredLine{Tag: tag, Fields: fields}, nil
}

func structured(tag, value string) (StructuredLine, error) {
	fields, err := SplitStructured(value)
	if err != nil {
		return StructuredLine{}, fmt.Errorf("parse %s line: %w", tag, err)
	}
	l := StructuredLine{Tag: tag, Fields: fields}
	if l.ID() == "" {
		return StructuredLine{}, fmt.Errorf("parse %s line: %w", tag, ErrMissingID)
	}
	return l, nil
}

func parseFilterLine(tag, value string) (HeaderLine, error) {
	s, err := structured(tag, value)
	if err != nil {
		return nil, err
	}
	desc, _ := s.Get("Description")
	return &FilterLine{StructuredLine: s, Description: desc}, nil
}

var infoTypes = map[string]bool{
	"Integer": true, "Float": true, "Flag": true, "Character": true, "String": true,
}

func validNumber(n string) bool {
	switch n {
	case "A", "R", "G", ".":
		return true
	}
	v, err := strconv.Atoi(n)
	return err == nil && v >= 0
}

func parseInfoLine(tag, value string) (HeaderLine, error) {
	s, err := structured(tag, value)
	if err != nil {
		return nil, err
	}
	l := &InfoLine{StructuredLine: s}
	l.Number, _ = s.Get("Number")
	l.Type, _ = s.Get("Type")
	l.Description, _ = s.Get("Description")

	if !infoTypes[l.Type] {
		return nil, fmt.Errorf("parse %s line %s: invalid Type %q", tag, s.ID(), l.Type)
	}
	if !validNumber(l.Number) {
		return nil, fmt.Errorf("parse %s line %s: invalid Number %q", tag, s.ID(), l.Number)
	}
	return l, nil
}

func parseFormatLine(tag, value string) (HeaderLine, error) {
	s, err := structured(tag, value)
	if err != nil {
		return nil, err
	}
	l := &FormatLine{StructuredLine: s}
	l.Number, _ = s.Get("Number")
	l.Type, _ = s.Get("Type")
	l.Description, _ = s.Get("Description")

	if l.Type == "Flag" || !infoTypes[l.Type] {
		return nil, fmt.Errorf("parse %s line %s: invalid Type %q", tag, s.ID(), l.Type)
	}
	if !validNumber(l.Number) {
		return nil, fmt.Errorf("parse %s line %s: invalid Number %q", tag, s.ID(), l.Number)
	}
	return l, nil
}

func parseContigLine(tag, value string) (HeaderLine, error) {
	s, err := structured(tag, value)
	if err != nil {
		return nil, err
	}
	l := &ContigLine{StructuredLine: s}
	if v, ok := s.Get("length"); ok {
		l.Length, err = strconv.ParseInt(v, 10, 64)
		if err != nil || l.Length < 0 {
			return nil, fmt.Errorf("parse %s line %s: invalid length %q", tag, s.ID(), v)
		}
	}
	return l, nil
}
