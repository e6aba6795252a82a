package vcf

import (
	"fmt"
	"strings"
)

// Field is one key=value pair of a structured header line.
type Field struct {
	Key   string
	Value string
}

// SplitStructured splits the body of a structured header line (the text
// between '<' and '>') into ordered keys and unquoted values.
// Double-quoted values may contain commas and backslash-escaped quotes.
func SplitStructured(s string) ([]Field, error) {
	var fields []Field
	i := 0
	for i < len(s) {
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("missing '=' in %q", s[i:])
		}
		key := strings.TrimSpace(s[i : i+eq])
		if key == "" {
			return nil, fmt.Errorf("empty key at offset %d", i)
		}
		i += eq + 1

		var val string
		if i < len(s) && s[i] == '"' {
			var sb strings.Builder
			closed := false
			for i++; i < len(s); i++ {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					i++
					sb.WriteByte(s[i])
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				sb.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated quote in value of %s", key)
			}
			if i < len(s) && s[i] != ',' {
				return nil, fmt.Errorf("unexpected %q after quoted value of %s", s[i], key)
			}
			val = sb.String()
		} else {
			end := strings.IndexByte(s[i:], ',')
			if end < 0 {
				end = len(s) - i
			}
			val = s[i : i+end]
			i += end
		}

		fields = append(fields, Field{Key: key, Value: val})
		if i < len(s) {
			i++ // comma
		}
	}
	return fields, nil
}

// JoinStructured renders fields as a comma-separated key=value string in
// their original order. Values are quoted when they would not survive
// SplitStructured otherwise.
func JoinStructured(fields []Field) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f.Key)
		sb.WriteByte('=')
		sb.WriteString(quoteValue(f.Key, f.Value))
	}
	return sb.String()
}

func quoteValue(key, v string) string {
	if key != "Description" && !strings.ContainsAny(v, ",\"\\<>= \t") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}
