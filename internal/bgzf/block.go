package bgzf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

const (
	// blockHeaderSize covers the fixed gzip header plus the 6-byte BC subfield.
	blockHeaderSize = 18
	blockFooterSize = 8

	// MaxBlockSize is the largest compressed or uncompressed BGZF block.
	MaxBlockSize = 1 << 16
)

// BlockError reports a malformed or corrupt BGZF block.
type BlockError struct {
	Offset int64 // compressed offset of the block
	Msg    string
	Err    error
}

func (e *BlockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bgzf block at offset %d: %s: %v", e.Offset, e.Msg, e.Err)
	}
	return fmt.Sprintf("bgzf block at offset %d: %s", e.Offset, e.Msg)
}

func (e *BlockError) Unwrap() error { return e.Err }

// rawBlock is one compressed block as read from the stream.
type rawBlock struct {
	offset  int64
	payload []byte // raw deflate data
	crc     uint32
	isize   uint32
}

// isBGZF reports whether h starts with a gzip member header carrying the
// BGZF "BC" extra subfield.
func isBGZF(h []byte) bool {
	if len(h) < blockHeaderSize {
		return false
	}
	if h[0] != 0x1f || h[1] != 0x8b || h[2] != 8 || h[3]&4 == 0 {
		return false
	}
	xlen := binary.LittleEndian.Uint16(h[10:12])
	return xlen >= 6 && h[12] == 'B' && h[13] == 'C' &&
		binary.LittleEndian.Uint16(h[14:16]) == 2
}

func isGzip(h []byte) bool {
	return len(h) >= 2 && h[0] == 0x1f && h[1] == 0x8b
}

// readRawBlock reads the next compressed block from src.
// Returns io.EOF only when src ends exactly on a block boundary.
func readRawBlock(src io.Reader, offset int64) (rawBlock, int64, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		if err == io.EOF {
			return rawBlock{}, 0, io.EOF
		}
		return rawBlock{}, 0, &BlockError{Offset: offset, Msg: "truncated header", Err: err}
	}
	if !isBGZF(hdr[:]) {
		return rawBlock{}, 0, &BlockError{Offset: offset, Msg: "invalid header"}
	}

	xlen := int(binary.LittleEndian.Uint16(hdr[10:12]))
	bsize := int(binary.LittleEndian.Uint16(hdr[16:18])) + 1
	rest := bsize - blockHeaderSize
	if rest < xlen-6+blockFooterSize {
		return rawBlock{}, 0, &BlockError{Offset: offset, Msg: fmt.Sprintf("block size %d too small", bsize)}
	}

	buf := make([]byte, rest)
	if _, err := io.ReadFull(src, buf); err != nil {
		return rawBlock{}, 0, &BlockError{Offset: offset, Msg: "truncated block", Err: err}
	}

	return rawBlock{
		offset:  offset,
		payload: buf[xlen-6 : rest-blockFooterSize],
		crc:     binary.LittleEndian.Uint32(buf[rest-8:]),
		isize:   binary.LittleEndian.Uint32(buf[rest-4:]),
	}, int64(bsize), nil
}

var flateReaders = sync.Pool{
	New: func() any { return flate.NewReader(nil) },
}

// inflate decompresses a raw block and verifies its CRC32 and length.
func inflate(b rawBlock) ([]byte, error) {
	if b.isize > MaxBlockSize {
		return nil, &BlockError{Offset: b.offset, Msg: fmt.Sprintf("uncompressed size %d exceeds limit", b.isize)}
	}
	out := make([]byte, b.isize)
	if b.isize == 0 {
		return out, nil
	}

	fr := flateReaders.Get().(io.ReadCloser)
	defer flateReaders.Put(fr)
	if err := fr.(flate.Resetter).Reset(bytes.NewReader(b.payload), nil); err != nil {
		return nil, &BlockError{Offset: b.offset, Msg: "reset inflater", Err: err}
	}
	if _, err := io.ReadFull(fr, out); err != nil {
		return nil, &BlockError{Offset: b.offset, Msg: "inflate", Err: err}
	}
	if got := crc32.ChecksumIEEE(out); got != b.crc {
		return nil, &BlockError{Offset: b.offset, Msg: fmt.Sprintf("crc mismatch: %08x != %08x", got, b.crc)}
	}
	return out, nil
}
