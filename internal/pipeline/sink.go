package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snapctl/snapctl/internal/codec"
	"github.com/snapctl/snapctl/internal/objectstore"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

// sinkResult summarizes a completed upload.
type sinkResult struct {
	ChunkCount int
	BytesOut   int64
}

type sinkOutcome struct {
	Result sinkResult
	Err    error
}

// chunkWriter is the io.WriteCloser the assembler stage writes the
// serialized dump into; it wraps an optional compressor over an io.Pipe
// so Write calls block until the chunker stage drains them — the
// pipeline's bounded-handoff backpressure at the byte-stream boundary
// (spec.md §5: "bounded byte channels ... typical capacity 4-16 buffers").
type chunkWriter struct {
	compressor io.WriteCloser
	pw         *io.PipeWriter
}

func (s *chunkWriter) Write(p []byte) (int, error) {
	if s.compressor != nil {
		return s.compressor.Write(p)
	}
	return s.pw.Write(p)
}

func (s *chunkWriter) Close() error {
	if s.compressor != nil {
		if err := s.compressor.Close(); err != nil {
			s.pw.CloseWithError(err)
			return err
		}
	}
	return s.pw.Close()
}

type chunkMsg struct {
	index int
	data  []byte
}

// newSink starts the chunk/encrypt/upload stages in the background,
// returning the writer the caller assembles the dump into and a channel
// that receives exactly one sinkOutcome once every chunk has either been
// durably uploaded or the run has failed. Chunk N is only ever handed to
// the object store after chunk N-1's Put returned (spec.md §5's ordering
// guarantee), since a single uploader goroutine drains the channel in
// order.
func newSink(ctx context.Context, store objectstore.Store, snapshotName string, compress bool, enc *codec.Encryptor, chunkSize int, bytesOutCounter *int64) (io.WriteCloser, <-chan sinkOutcome) {
	pr, pw := io.Pipe()

	dest := &chunkWriter{pw: pw}
	if compress {
		cw, err := codec.NewCompressWriter(pw)
		if err != nil {
			pw.CloseWithError(err)
		}
		dest.compressor = cw
	}

	out := make(chan sinkOutcome, 1)
	ch := make(chan chunkMsg, 8)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(ch)
		cr := codec.NewChunkReader(pr, chunkSize)
		idx := 0
		for {
			chunk, err := cr.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return snaperrors.New(snaperrors.KindCodec, fmt.Errorf("read chunk %d: %w", idx, err))
			}
			if enc != nil {
				chunk, err = enc.EncryptChunk(chunk)
				if err != nil {
					return err
				}
			}
			select {
			case ch <- chunkMsg{index: idx, data: chunk}:
			case <-gctx.Done():
				return gctx.Err()
			}
			idx++
		}
	})

	var result sinkResult
	g.Go(func() error {
		count := 0
		var total int64
		for msg := range ch {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if _, err := store.Put(gctx, catalog.ChunkKey(snapshotName, msg.index), bytes.NewReader(msg.data), int64(len(msg.data))); err != nil {
				return snaperrors.New(snaperrors.KindObjectStore, fmt.Errorf("upload chunk %d: %w", msg.index, err))
			}
			total += int64(len(msg.data))
			if bytesOutCounter != nil {
				atomic.StoreInt64(bytesOutCounter, total)
			}
			count++
		}
		result = sinkResult{ChunkCount: count, BytesOut: total}
		return nil
	})

	go func() {
		err := g.Wait()
		if err != nil {
			pr.CloseWithError(err)
		} else {
			pr.Close()
		}
		out <- sinkOutcome{Result: result, Err: err}
		close(out)
	}()

	return dest, out
}

// progressTicker reports (bytesIn, bytesOut) at a fixed interval until the
// returned stop function is called, per spec.md §4.6 ("reports progress
// ... at a fixed interval").
func progressTicker(ctx context.Context, interval time.Duration, bytesIn, bytesOut *int64, report func(in, out int64)) func() {
	if report == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-t.C:
				report(atomic.LoadInt64(bytesIn), atomic.LoadInt64(bytesOut))
			}
		}
	}()
	return func() { close(done) }
}
