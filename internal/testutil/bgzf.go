package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// EOFMarker is the empty BGZF block that terminates a file.
var EOFMarker = []byte{
	0x1f, 0x8b, 0x08, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x06, 0x00,
	0x42, 0x43, 0x02, 0x00, 0x1b, 0x00, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// BGZF splits data into blocks of at most blockSize bytes, compresses each
// one and appends the EOF marker.
func BGZF(data []byte, blockSize int) []byte {
	if blockSize <= 0 {
		blockSize = 0xff00
	}
	var out bytes.Buffer
	for len(data) > 0 {
		n := min(blockSize, len(data))
		out.Write(BGZFBlock(data[:n]))
		data = data[n:]
	}
	out.Write(EOFMarker)
	return out.Bytes()
}

// BGZFBlock compresses data into a single BGZF block.
func BGZFBlock(data []byte) []byte {
	var cdata bytes.Buffer
	fw, err := flate.NewWriter(&cdata, flate.DefaultCompression)
	if err != nil {
		panic(err)
	}
	fw.Write(data)
	fw.Close()

	bsize := 18 + cdata.Len() + 8
	block := make([]byte, 0, bsize)
	block = append(block, 0x1f, 0x8b, 0x08, 0x04, 0, 0, 0, 0, 0, 0xff, 6, 0, 'B', 'C', 2, 0)
	block = binary.LittleEndian.AppendUint16(block, uint16(bsize-1))
	block = append(block, cdata.Bytes()...)
	block = binary.LittleEndian.AppendUint32(block, crc32.ChecksumIEEE(data))
	block = binary.LittleEndian.AppendUint32(block, uint32(len(data)))
	return block
}

// Gzip compresses data as a single ordinary gzip member.
func Gzip(data []byte) []byte {
	var out bytes.Buffer
	gw := gzip.NewWriter(&out)
	gw.Write(data)
	gw.Close()
	return out.Bytes()
}
