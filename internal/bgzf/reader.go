// Package bgzf reads BGZF-compressed streams, the blocked gzip variant used by
// BCF and its indexes. Plain gzip and uncompressed input are read transparently.
//
// Blocks can be inflated on a pool of background workers (see SetThreads).
// The pool is a read-ahead optimisation only: a Reader is not safe for
// concurrent use.
package bgzf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

var (
	// ErrInvalidThreads is returned by SetThreads for a negative count.
	ErrInvalidThreads = errors.New("bgzf: thread count must not be negative")

	// ErrClosed is returned when reading from a closed Reader.
	ErrClosed = errors.New("bgzf: reader closed")
)

type streamKind int

const (
	kindPlain streamKind = iota
	kindGzip
	kindBGZF
)

// Reader decompresses a BGZF, gzip or plain stream.
type Reader struct {
	src    *bufio.Reader
	closer io.Closer // nil when the caller owns the source (stdin, NewReader)
	kind   streamKind
	stream io.Reader // decoded stream for kindGzip and kindPlain

	threads  int
	offset   int64     // compressed offset of the next raw block
	leftover *rawBlock // read by a stopped pipeline, not yet inflated
	pipe     *pipeline
	pending  []workResult // drained from a stopped pipeline, in order

	cur    []byte
	err    error
	closed bool
	logger *zap.Logger
}

// Open opens path for reading. The path "-" reads standard input.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bgzf file: %w", err)
	}

	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader detects the compression of r and returns a Reader over it.
// Closing the returned Reader does not close r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, MaxBlockSize)
	rd := &Reader{src: br, logger: zap.NewNop()}

	// Short inputs are fine here: Peek returns whatever is available.
	magic, err := br.Peek(blockHeaderSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read bgzf header: %w", err)
	}

	switch {
	case isBGZF(magic):
		rd.kind = kindBGZF
	case isGzip(magic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		rd.kind = kindGzip
		rd.stream = gz
	default:
		rd.kind = kindPlain
		rd.stream = br
	}

	return rd, nil
}

// SetLogger sets the logger for debug messages.
func (r *Reader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Compressed reports whether the stream is BGZF or gzip compressed.
func (r *Reader) Compressed() bool {
	return r.kind != kindPlain
}

// IsBGZF reports whether the stream is block compressed.
func (r *Reader) IsBGZF() bool {
	return r.kind == kindBGZF
}

// Threads returns the configured number of inflate workers.
func (r *Reader) Threads() int {
	return r.threads
}

// SetThreads sets the number of background workers used to inflate blocks.
// Zero inflates synchronously in Read. It may be called at any point; blocks
// already read ahead are kept. For streams that are not BGZF the value is
// recorded but has no effect.
func (r *Reader) SetThreads(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, n)
	}
	if r.closed {
		return ErrClosed
	}
	if n == r.threads {
		return nil
	}
	if r.kind != kindBGZF {
		r.logger.Debug("threads ignored for non-BGZF stream", zap.Int("threads", n))
		r.threads = n
		return nil
	}

	r.stopPipeline()
	r.threads = n
	return nil
}

// stopPipeline halts background inflation, keeping every block already read.
func (r *Reader) stopPipeline() {
	if r.pipe == nil {
		return
	}
	r.pending = append(r.pending, r.pipe.stop()...)
	r.offset = r.pipe.offset
	r.leftover = r.pipe.leftover
	r.pipe = nil
}

// nextBlock returns the next inflated block, or io.EOF.
func (r *Reader) nextBlock() ([]byte, error) {
	if len(r.pending) > 0 {
		res := r.pending[0]
		r.pending = r.pending[1:]
		return res.Data, res.Err
	}

	if r.threads > 0 {
		if r.pipe == nil {
			r.pipe = startPipeline(r.src, r.offset, r.leftover, r.threads)
			r.leftover = nil
		}
		res, ok := <-r.pipe.out
		if !ok {
			// The producer hit end of stream; nothing is left behind.
			r.stopPipeline()
			return nil, io.EOF
		}
		return res.Data, res.Err
	}

	blk := r.leftover
	r.leftover = nil
	if blk == nil {
		b, n, err := readRawBlock(r.src, r.offset)
		if err != nil {
			return nil, err
		}
		r.offset += n
		blk = &b
	}
	return inflate(*blk)
}

// Read implements io.Reader over the decompressed stream.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	if r.kind != kindBGZF {
		return r.stream.Read(p)
	}
	if r.err != nil {
		return 0, r.err
	}

	for len(r.cur) == 0 {
		blk, err := r.nextBlock()
		if err != nil {
			r.err = err
			return 0, err
		}
		// Empty blocks, including the EOF marker, carry no data.
		r.cur = blk
	}

	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close stops background workers and closes the underlying file.
// It is safe to call more than once.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.pipe != nil {
		r.pipe.stop()
		r.pipe = nil
	}
	r.pending = nil
	r.cur = nil

	var err error
	if gz, ok := r.stream.(*gzip.Reader); ok {
		err = gz.Close()
	}
	if r.closer != nil {
		if cerr := r.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
