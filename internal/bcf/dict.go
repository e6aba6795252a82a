package bcf

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"
)

// Dict maps the integer ids used in records to header names. It is built
// once per file and never modified afterwards, so it may be read
// concurrently.
type Dict struct {
	contigs table
	strs    table
}

type table struct {
	names []string
	ids   map[string]int32
}

func newTable() table {
	return table{ids: make(map[string]int32)}
}

// add places name at idx, or at the next free position when idx is negative.
// A name already present keeps its first id.
func (t *table) add(name string, idx int) error {
	if id, ok := t.ids[name]; ok {
		if idx >= 0 && int(id) != idx {
			return fmt.Errorf("%s already has IDX=%d, ignoring IDX=%d", name, id, idx)
		}
		return nil
	}
	if idx < 0 {
		idx = len(t.names)
	}
	if idx < len(t.names) && t.names[idx] != "" {
		return fmt.Errorf("IDX=%d of %s is already taken by %s", idx, name, t.names[idx])
	}
	for len(t.names) <= idx {
		t.names = append(t.names, "")
	}
	t.names[idx] = name
	t.ids[name] = int32(idx)
	return nil
}

func (t *table) name(id int32) (string, bool) {
	if id < 0 || int(id) >= len(t.names) || t.names[id] == "" {
		return "", false
	}
	return t.names[id], true
}

func (t *table) id(name string) (int32, bool) {
	id, ok := t.ids[name]
	return id, ok
}

// idxSlack bounds how far an IDX attribute may point past the number of
// header lines.
const idxSlack = 1024

// newDict builds the contig and string dictionaries from raw header entries.
// Conflicting IDX attributes are logged and the entry is skipped.
func newDict(entries []RawEntry, logger *zap.Logger) *Dict {
	d := &Dict{contigs: newTable(), strs: newTable()}
	_ = d.strs.add("PASS", 0)

	// IDX may leave gaps, but never more than idxSlack past one id per line.
	maxIDX := len(entries) + idxSlack

	for _, e := range entries {
		var t *table
		switch e.Kind {
		case KindContig:
			t = &d.contigs
		case KindFilter, KindInfo, KindFormat:
			t = &d.strs
		default:
			continue
		}

		id, ok := e.Get("ID")
		if !ok || id == "" {
			continue
		}
		idx := -1
		if s, ok := e.Get("IDX"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 || n > maxIDX {
				logger.Warn("ignoring invalid IDX", zap.String("key", e.Key), zap.String("id", id), zap.String("idx", s))
			} else {
				idx = n
			}
		}
		if err := t.add(id, idx); err != nil {
			logger.Warn("conflicting header dictionary entry", zap.String("key", e.Key), zap.Error(err))
		}
	}
	return d
}

// ContigName resolves a CHROM id.
func (d *Dict) ContigName(id int32) (string, bool) { return d.contigs.name(id) }

// ContigID returns the id of a contig name.
func (d *Dict) ContigID(name string) (int32, bool) { return d.contigs.id(name) }

// StringName resolves a FILTER, INFO or FORMAT key id.
func (d *Dict) StringName(id int32) (string, bool) { return d.strs.name(id) }

// StringID returns the id of a FILTER, INFO or FORMAT key.
func (d *Dict) StringID(name string) (int32, bool) { return d.strs.id(name) }

// NContigs returns the size of the contig id space, gaps included.
func (d *Dict) NContigs() int { return len(d.contigs.names) }

// NStrings returns the size of the string id space, gaps included.
func (d *Dict) NStrings() int { return len(d.strs.names) }
