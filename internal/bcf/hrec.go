package bcf

import (
	"errors"
	"strings"

	"github.com/inodb/vibe-bcf/internal/vcf"
)

// Kind classifies a raw header entry.
type Kind int

const (
	KindGeneric Kind = iota
	KindFilter
	KindInfo
	KindFormat
	KindContig
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindFilter:
		return "FILTER"
	case KindInfo:
		return "INFO"
	case KindFormat:
		return "FORMAT"
	case KindContig:
		return "contig"
	case KindStructured:
		return "structured"
	}
	return "generic"
}

// RawEntry is one "##" header line split into its parts. Structured
// entries carry their attributes as parallel Keys and Vals in source order;
// generic entries only have Key and Value.
type RawEntry struct {
	Kind  Kind
	Key   string
	Value string
	Keys  []string
	Vals  []string
}

// Get returns the value of a structured attribute.
func (e RawEntry) Get(key string) (string, bool) {
	for i, k := range e.Keys {
		if k == key {
			return e.Vals[i], true
		}
	}
	return "", false
}

var errUnterminated = errors.New("unterminated structured value")

func kindOf(key string) Kind {
	switch key {
	case "FILTER":
		return KindFilter
	case "INFO":
		return KindInfo
	case "FORMAT":
		return KindFormat
	case "contig":
		return KindContig
	}
	return KindStructured
}

// parseRawEntry splits a "##key=value" line. When a structured value is
// malformed the generic entry is returned together with the error.
func parseRawEntry(line string) (RawEntry, error) {
	body := strings.TrimPrefix(line, "##")
	key, value, _ := strings.Cut(body, "=")
	generic := RawEntry{Kind: KindGeneric, Key: key, Value: value}

	if !strings.HasPrefix(value, "<") {
		return generic, nil
	}
	if !strings.HasSuffix(value, ">") {
		return generic, errUnterminated
	}

	fields, err := vcf.SplitStructured(value[1 : len(value)-1])
	if err != nil {
		return generic, err
	}

	e := RawEntry{
		Kind: kindOf(key),
		Key:  key,
		Keys: make([]string, len(fields)),
		Vals: make([]string, len(fields)),
	}
	for i, f := range fields {
		e.Keys[i], e.Vals[i] = f.Key, f.Value
	}
	return e, nil
}

// Build turns a raw entry into a typed header line. Generic entries map
// directly to a GenericLine; structured entries are re-rendered and handed to
// the parser registered for their tag. The returned line is never nil; a
// non-nil error means a fallback line was produced.
func Build(raw RawEntry) (vcf.HeaderLine, error) {
	if raw.Kind == KindGeneric {
		return &vcf.GenericLine{Tag: raw.Key, Value: raw.Value}, nil
	}

	fields := make([]vcf.Field, len(raw.Keys))
	for i := range raw.Keys {
		fields[i] = vcf.Field{Key: raw.Keys[i], Value: raw.Vals[i]}
	}
	return vcf.ParseHeaderLine(raw.Key, vcf.JoinStructured(fields))
}
