package simdjson

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ParseNDStreamConcurrent is ParseNDStream generalized to parse multiple
// chunks in parallel while still emitting them on res in the order they
// were read - the "parse in several goroutines but keep output in order"
// the original ParseNDStream only ever left as a TODO. Each chunk is still
// a contiguous run of whole newline-delimited records (so a chunk's own
// ParsedJson.ndjson count is meaningful on its own), but up to concurrency
// chunks are parsed by worker goroutines at once, each an independent
// Parser so results.Tape/Strings are never shared across workers.
//
// ctx cancellation stops reading and stops workers from taking new chunks;
// a parse already running finishes first. The first error (from reading, parsing, or ctx) closes res after
// draining already-ordered results.
func ParseNDStreamConcurrent(ctx context.Context, r io.Reader, res chan<- Stream, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	const tmpSize = 10 << 20

	type job struct {
		seq  int
		data []byte
	}
	type outcome struct {
		seq   int
		value *ParsedJson
		err   error
	}

	jobs := make(chan job, concurrency)
	outcomes := make(chan outcome, concurrency)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	// Reader goroutine: splits the stream into whole-record chunks and
	// feeds them to the worker pool. It owns jobs and closes it when done
	// or on first error/cancellation.
	g.Go(func() error {
		defer close(jobs)
		buf := bufio.NewReaderSize(r, tmpSize)
		tmp := make([]byte, 0, tmpSize+1024)
		seq := 0
		for {
			chunk := tmp[:tmpSize]
			n, err := buf.Read(chunk)
			if err != nil && err != io.EOF {
				return fmt.Errorf("reading input: %w", err)
			}
			chunk = chunk[:n]
			if err != io.EOF {
				rest, rerr := buf.ReadBytes('\n')
				if rerr != nil && rerr != io.EOF {
					return fmt.Errorf("reading input: %w", rerr)
				}
				chunk = append(chunk, rest...)
			}
			if len(chunk) > 0 {
				owned := make([]byte, len(chunk))
				copy(owned, chunk)
				select {
				case jobs <- job{seq: seq, data: owned}:
					seq++
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if err != nil {
				if err == io.EOF {
					// Clean end of input: return nil so errgroup doesn't
					// cancel gctx and cut workers off from draining jobs
					// already queued. Completion is signaled downstream via
					// the final Stream{Error: io.EOF}.
					return nil
				}
				return err
			}
		}
	})

	// Worker goroutines: each owns its own internalParsedJson so parsing
	// genuinely runs concurrently, per spec's concurrent-NDJSON requirement.
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			var pj internalParsedJson
			pj.copyStrings = alwaysCopyStrings
			pj.maxDepth = defaultMaxDepth
			for {
				select {
				case j, ok := <-jobs:
					if !ok {
						return nil
					}
					if uint64(len(j.data)) > defaultHardCapacity {
						select {
						case outcomes <- outcome{seq: j.seq, err: ErrCapacity}:
						case <-gctx.Done():
						}
						return ErrCapacity
					}
					pj.ParsedJson = ParsedJson{}
					pj.initialize(len(j.data))
					err := pj.parseMessageNdjson(j.data)
					var out outcome
					if err != nil {
						out = outcome{seq: j.seq, err: fmt.Errorf("parsing input: %w", err)}
					} else {
						v := pj.ParsedJson
						out = outcome{seq: j.seq, value: &v}
					}
					select {
					case outcomes <- out:
					case <-gctx.Done():
						return gctx.Err()
					}
					if err != nil {
						return err
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	go func() {
		defer close(res)
		defer cancel()
		pending := map[int]outcome{}
		next := 0
		streamErr := error(nil)
		for o := range outcomes {
			pending[o.seq] = o
			for {
				o, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if o.err != nil {
					res <- Stream{Error: o.err}
					streamErr = o.err
					break
				}
				res <- Stream{Value: o.value}
			}
			if streamErr != nil {
				cancel()
				break
			}
		}
		if streamErr == nil {
			if err := g.Wait(); err != nil && err != io.EOF {
				res <- Stream{Error: err}
			} else {
				res <- Stream{Error: io.EOF}
			}
		}
	}()
}
