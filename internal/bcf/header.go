package bcf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/vcf"
)

// maxHeaderSize bounds l_text so a corrupt length cannot trigger a huge
// allocation.
const maxHeaderSize = 1 << 28

// readHeaderText reads the magic, l_text and the NUL-terminated header text.
func readHeaderText(r io.Reader) (string, error) {
	var magic [5]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", ErrNotBCF
		}
		return "", fmt.Errorf("read bcf magic: %w", err)
	}
	if !bytes.Equal(magic[:3], []byte("BCF")) {
		return "", ErrNotBCF
	}
	if magic[3] != 2 || (magic[4] != 1 && magic[4] != 2) {
		return "", fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, magic[3], magic[4])
	}

	var lbuf [4]byte
	if _, err := io.ReadFull(r, lbuf[:]); err != nil {
		return "", &DecodeError{Field: "l_text", Offset: 5, Msg: err.Error()}
	}
	n := binary.LittleEndian.Uint32(lbuf[:])
	if n > maxHeaderSize {
		return "", &DecodeError{Field: "l_text", Offset: 5, Msg: fmt.Sprintf("header length %d too large", n)}
	}

	text := make([]byte, n)
	if _, err := io.ReadFull(r, text); err != nil {
		return "", &DecodeError{Field: "header text", Offset: 9, Msg: err.Error()}
	}
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return string(text), nil
}

// header is everything decoded from the header blob.
type header struct {
	raw     []RawEntry
	lines   []vcf.HeaderLine
	samples []string
	dict    *Dict
}

// parseHeader classifies every meta line, builds the dictionaries and the
// typed header lines. Problems local to one line are logged, never fatal.
func parseHeader(text string, logger *zap.Logger) (*header, error) {
	meta, samples, err := vcf.ScanHeader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse bcf header: %w", err)
	}

	h := &header{
		raw:     make([]RawEntry, 0, len(meta)),
		lines:   make([]vcf.HeaderLine, 0, len(meta)),
		samples: samples,
	}
	for _, m := range meta {
		e, err := parseRawEntry(m)
		if err != nil {
			logger.Warn("malformed structured header line", zap.String("line", m), zap.Error(err))
		}
		h.raw = append(h.raw, e)
	}

	h.dict = newDict(h.raw, logger)

	for _, e := range h.raw {
		line, err := Build(e)
		if err != nil {
			logger.Warn("header line parsed with fallback", zap.String("key", e.Key), zap.Error(err))
		}
		h.lines = append(h.lines, line)
	}
	return h, nil
}
