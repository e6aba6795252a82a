package bcf

import (
	"fmt"
	"io"

	"github.com/inodb/vibe-bcf/internal/bgzf"
)

// Index is an open CSI or TBI index. It is held for the lifetime of the
// File but not queried.
type Index struct {
	Format string // "CSI" or "TBI"
	r      *bgzf.Reader
}

// OpenIndex opens an index file and checks its magic.
func OpenIndex(path string) (*Index, error) {
	r, err := bgzf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		r.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotIndex, path)
	}

	var format string
	switch string(magic[:]) {
	case "CSI\x01":
		format = "CSI"
	case "TBI\x01":
		format = "TBI"
	default:
		r.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotIndex, path)
	}
	return &Index{Format: format, r: r}, nil
}

// Close releases the index. It is safe to call more than once.
func (x *Index) Close() error {
	if x.r == nil {
		return nil
	}
	err := x.r.Close()
	x.r = nil
	return err
}
