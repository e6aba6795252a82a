package bgzf

import (
	"context"
	"io"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// workItem holds a compressed block ready for inflation.
type workItem struct {
	Seq   int
	Block rawBlock
	Err   error // read error, passed through in sequence order
}

// workResult holds the inflated output for a single block.
type workResult struct {
	Seq    int
	Offset int64
	Data   []byte
	Err    error
}

// parallelInflate inflates work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use orderedCollect to consume results in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func parallelInflate(items <-chan workItem, workers int) <-chan workResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan workResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res := workResult{Seq: item.Seq, Offset: item.Block.offset, Err: item.Err}
				if item.Err == nil {
					res.Data, res.Err = inflate(item.Block)
				}
				results <- res
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// orderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func orderedCollect(results <-chan workResult, fn func(workResult) error) error {
	pending := make(map[int]workResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// pipeline reads raw blocks on one goroutine, inflates them on a worker pool
// and delivers them in file order on out.
type pipeline struct {
	cancel context.CancelFunc
	g      *errgroup.Group
	out    chan workResult

	// Written by the producer goroutine, read only after wait.
	leftover *rawBlock
	offset   int64
	readErr  error
}

// startPipeline takes ownership of src until stop returns. first, when
// non-nil, is a block that was read by a previous pipeline but never
// dispatched.
func startPipeline(src io.Reader, offset int64, first *rawBlock, workers int) *pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &pipeline{
		cancel: cancel,
		g:      new(errgroup.Group),
		out:    make(chan workResult, 2*workers),
		offset: offset,
	}

	items := make(chan workItem, 2*workers)
	p.g.Go(func() error {
		defer close(items)
		for seq := 0; ; seq++ {
			var blk rawBlock
			if first != nil {
				blk, first = *first, nil
			} else {
				b, n, err := readRawBlock(src, p.offset)
				if err == io.EOF {
					return nil
				}
				if err != nil {
					select {
					case items <- workItem{Seq: seq, Err: err}:
					case <-ctx.Done():
						p.readErr = err
					}
					return nil
				}
				blk = b
				p.offset += n
			}
			select {
			case items <- workItem{Seq: seq, Block: blk}:
			case <-ctx.Done():
				p.leftover = &blk
				return nil
			}
		}
	})

	results := parallelInflate(items, workers)
	p.g.Go(func() error {
		defer close(p.out)
		return orderedCollect(results, func(r workResult) error {
			p.out <- r
			return nil
		})
	})

	return p
}

// stop cancels the producer and returns every result already dispatched,
// in order. The caller regains ownership of the source afterwards.
func (p *pipeline) stop() []workResult {
	p.cancel()
	var drained []workResult
	for r := range p.out {
		drained = append(drained, r)
	}
	_ = p.g.Wait()
	if p.readErr != nil {
		drained = append(drained, workResult{Err: p.readErr})
	}
	return drained
}
