// Package bcf reads BCF2 variant files: the header dictionaries, typed
// header lines and a pull-based stream of decoded records.
package bcf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/bgzf"
	"github.com/inodb/vibe-bcf/internal/vcf"
)

// maxRecordSize bounds l_shared+l_indiv.
const maxRecordSize = 1 << 30

// noPass marks the PASS id cache as unset.
const noPass int32 = -1

type options struct {
	mode      string
	lazy      bool
	samples   Samples
	threads   int
	logger    *zap.Logger
	indexPath string
}

// Option configures Open and NewReader.
type Option func(*options)

// WithMode sets the open mode. Only "r" and "rb" are supported.
func WithMode(mode string) Option { return func(o *options) { o.mode = mode } }

// WithLazy defers FORMAT decoding until it is first accessed.
func WithLazy(lazy bool) Option { return func(o *options) { o.lazy = lazy } }

// WithSamples selects the active samples at open time.
func WithSamples(s Samples) Option { return func(o *options) { o.samples = s } }

// WithThreads sets the number of background decompression workers.
func WithThreads(n int) Option { return func(o *options) { o.threads = n } }

// WithLogger sets the logger for warnings. The default discards them.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithIndex opens a CSI or TBI index alongside the file.
func WithIndex(path string) Option { return func(o *options) { o.indexPath = path } }

// File is an open BCF file. Records are read with Next or All.
type File struct {
	stream *bgzf.Reader
	index  *Index
	header *vcf.Header
	raw    []RawEntry
	dict   *Dict

	allSamples []string
	samples    []string
	sampleIdx  []int

	passID atomic.Int32
	lazy   bool
	logger *zap.Logger

	started bool
	nread   int
	err     error

	closed    bool
	closeOnce sync.Once
	closeErr  error
}

// Open opens a BCF file. The path "-" reads standard input. No File is
// returned on error and everything opened so far is closed.
func Open(path string, opts ...Option) (*File, error) {
	o := newOptions(opts)
	if o.mode != "r" && o.mode != "rb" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, o.mode)
	}

	stream, err := bgzf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bcf file: %w", err)
	}
	f, err := newFile(stream, o)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("open bcf file %s: %w", path, err)
	}
	return f, nil
}

// NewReader reads a BCF stream from r.
func NewReader(r io.Reader, opts ...Option) (*File, error) {
	o := newOptions(opts)
	stream, err := bgzf.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("read bcf stream: %w", err)
	}
	f, err := newFile(stream, o)
	if err != nil {
		stream.Close()
		return nil, err
	}
	return f, nil
}

func newOptions(opts []Option) *options {
	o := &options{mode: "rb"}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func newFile(stream *bgzf.Reader, o *options) (*File, error) {
	stream.SetLogger(o.logger)
	if o.threads != 0 {
		if err := stream.SetThreads(o.threads); err != nil {
			return nil, err
		}
	}

	text, err := readHeaderText(stream)
	if err != nil {
		return nil, err
	}
	h, err := parseHeader(text, o.logger)
	if err != nil {
		return nil, err
	}

	f := &File{
		stream:     stream,
		raw:        h.raw,
		dict:       h.dict,
		allSamples: h.samples,
		lazy:       o.lazy,
		logger:     o.logger,
	}
	f.passID.Store(noPass)
	f.samples = h.samples
	f.sampleIdx = make([]int, len(h.samples))
	for i := range f.sampleIdx {
		f.sampleIdx[i] = i
	}
	f.header = vcf.NewHeader(h.lines, f.samples)

	if err := f.SetSamples(o.samples); err != nil {
		return nil, err
	}

	if o.indexPath != "" {
		idx, err := OpenIndex(o.indexPath)
		if err != nil {
			return nil, err
		}
		f.index = idx
	}

	f.logger.Debug("opened bcf file",
		zap.Int("header_lines", len(h.lines)),
		zap.Int("contigs", f.dict.NContigs()),
		zap.Int("samples", len(f.samples)),
		zap.Bool("lazy", f.lazy),
		zap.Bool("bgzf", stream.IsBGZF()),
	)
	return f, nil
}

// Header returns the typed header model. It is nil after Close.
func (f *File) Header() *vcf.Header { return f.header }

// Lines returns the header lines in file order.
func (f *File) Lines() []vcf.HeaderLine {
	if f.header == nil {
		return nil
	}
	return f.header.Lines
}

// RawEntries returns the classified "##" lines in file order.
func (f *File) RawEntries() []RawEntry { return f.raw }

// Dict returns the header dictionaries.
func (f *File) Dict() *Dict { return f.dict }

// Lazy reports whether FORMAT decoding is deferred.
func (f *File) Lazy() bool { return f.lazy }

// Index returns the index opened with WithIndex, or nil.
func (f *File) Index() *Index { return f.index }

// SetThreads changes the number of decompression workers. On error the
// previous setting stays in effect.
func (f *File) SetThreads(n int) error {
	if f.closed {
		return ErrClosed
	}
	if err := f.stream.SetThreads(n); err != nil {
		return fmt.Errorf("set threads: %w", err)
	}
	return nil
}

// PassID returns the cached string id of PASS, if it has been resolved.
func (f *File) PassID() (int32, bool) {
	id := f.passID.Load()
	return id, id != noPass
}

// cachePassID stores the PASS id. Only the first store takes effect.
func (f *File) cachePassID(id int32) {
	f.passID.CompareAndSwap(noPass, id)
}

// Next reads the next record.
// Returns nil, nil at the end of the file. A read or decode error is
// returned again by every later call.
func (f *File) Next() (*Record, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if f.err != nil {
		return nil, f.err
	}
	f.started = true

	rec, err := f.read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		f.err = err
		return nil, err
	}
	return rec, nil
}

func (f *File) read() (*Record, error) {
	var lens [8]byte
	if _, err := io.ReadFull(f.stream, lens[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, f.readError("record length", err)
	}
	f.nread++

	lShared := binary.LittleEndian.Uint32(lens[0:])
	lIndiv := binary.LittleEndian.Uint32(lens[4:])
	total := uint64(lShared) + uint64(lIndiv)
	if total > maxRecordSize {
		return nil, &DecodeError{Record: f.nread, Field: "record length", Msg: fmt.Sprintf("record of %d bytes too large", total)}
	}

	bufp := getBuffer(int(total))
	if _, err := io.ReadFull(f.stream, *bufp); err != nil {
		putBuffer(bufp)
		return nil, f.readError("record body", err)
	}

	rec, err := decode(f, bufp, int(lShared), f.lazy)
	if err != nil {
		putBuffer(bufp)
		var de *DecodeError
		if errors.As(err, &de) {
			de.Record = f.nread
		}
		return nil, err
	}
	return rec, nil
}

func (f *File) readError(field string, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &DecodeError{Record: f.nread, Field: field, Msg: "truncated record"}
	}
	return fmt.Errorf("read bcf record: %w", err)
}

// All iterates over the remaining records. Iteration stops after the first
// error, which is yielded with a nil record.
func (f *File) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := f.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if rec == nil || !yield(rec, nil) {
				return
			}
		}
	}
}

// Close releases the index, the header and the stream, in that order.
// It is safe to call more than once. Records read earlier stay usable.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		f.closed = true
		var errs []error
		if f.index != nil {
			errs = append(errs, f.index.Close())
			f.index = nil
		}
		f.header, f.raw = nil, nil
		if f.stream != nil {
			errs = append(errs, f.stream.Close())
			f.stream = nil
		}
		f.closeErr = errors.Join(errs...)
	})
	return f.closeErr
}
