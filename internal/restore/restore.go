// Package restore implements the inverse of internal/pipeline (spec.md
// §4.7): select a snapshot from the catalog, stream its chunks in order,
// decrypt and decompress, and either hand the reconstructed dump bytes to
// a caller-supplied writer or pipe them into the destination engine's
// native restore tool.
package restore

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/snapctl/snapctl/internal/codec"
	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/objectstore"
	"github.com/snapctl/snapctl/internal/objectstore/catalog"
	"github.com/snapctl/snapctl/internal/snaperrors"
)

// Options parameterizes a single restore run. Exactly one of Dest or
// Connection should be set: Dest receives the reconstructed dump bytes
// directly (standard output or a local file per `dump restore local`);
// Connection pipes them into the destination engine's native restore tool
// instead (`dump restore local` against a spawned container, or `dump
// restore remote`).
type Options struct {
	SnapshotName  string // exact name, or "latest"
	Store         objectstore.Store
	EncryptionKey string

	Dest       io.Writer
	Connection *engine.Connection

	ProgressInterval time.Duration
	OnProgress       func(bytesOut int64)
}

// Restore resolves opts.SnapshotName against the catalog and restores it.
// It returns the resolved catalog.Snapshot on success.
func Restore(ctx context.Context, opts Options) (catalog.Snapshot, error) {
	cat, _, err := catalog.Load(ctx, opts.Store)
	if err != nil {
		return catalog.Snapshot{}, snaperrors.New(snaperrors.KindObjectStore, err)
	}
	snap, ok := catalog.Find(cat, opts.SnapshotName)
	if !ok {
		return catalog.Snapshot{}, snaperrors.New(snaperrors.KindConfig,
			fmt.Errorf("restore: snapshot %q not found", opts.SnapshotName))
	}

	var dec *codec.Decryptor
	if snap.Encrypted {
		if opts.EncryptionKey == "" {
			return catalog.Snapshot{}, snaperrors.New(snaperrors.KindConfig,
				fmt.Errorf("restore: snapshot %q is encrypted but no encryption key was given", snap.Name))
		}
		salt, err := base64.StdEncoding.DecodeString(snap.KDFSalt)
		if err != nil {
			return catalog.Snapshot{}, snaperrors.New(snaperrors.KindConfig, fmt.Errorf("restore: invalid kdf_salt: %w", err))
		}
		key, err := codec.DeriveKey(opts.EncryptionKey, salt)
		if err != nil {
			return catalog.Snapshot{}, err
		}
		dec, err = codec.NewDecryptor(key)
		if err != nil {
			return catalog.Snapshot{}, err
		}
	}

	pr, pw := io.Pipe()
	fetchErr := make(chan error, 1)
	go func() { fetchErr <- fetchChunks(ctx, opts.Store, snap, dec, pw) }()

	var src io.Reader = pr
	if snap.Compressed {
		rc := codec.NewDecompressReader(pr)
		defer rc.Close()
		src = rc
	}

	var bytesOut int64
	stop := startProgress(ctx, opts.ProgressInterval, &bytesOut, opts.OnProgress)
	defer stop()
	src = &countingReader{r: src, n: &bytesOut}

	writeErr := writeReconstructed(ctx, src, opts)

	if err := <-fetchErr; err != nil {
		return catalog.Snapshot{}, err
	}
	if writeErr != nil {
		return catalog.Snapshot{}, writeErr
	}
	return snap, nil
}

// fetchChunks downloads snap's chunks in order, decrypting each as it
// arrives, and writes the plaintext stream into pw. Chunks are read in the
// order restore requires (spec.md §5: "Restore reads chunks in the same
// order" they were uploaded).
func fetchChunks(ctx context.Context, store objectstore.Store, snap catalog.Snapshot, dec *codec.Decryptor, pw *io.PipeWriter) error {
	for i := 0; i < snap.ChunkCount; i++ {
		select {
		case <-ctx.Done():
			werr := ctx.Err()
			pw.CloseWithError(werr)
			return werr
		default:
		}

		r, err := store.Get(ctx, catalog.ChunkKey(snap.Name, i))
		if err != nil {
			werr := snaperrors.New(snaperrors.KindObjectStore, fmt.Errorf("fetch chunk %d: %w", i, err))
			pw.CloseWithError(werr)
			return werr
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			werr := snaperrors.New(snaperrors.KindObjectStore, fmt.Errorf("read chunk %d: %w", i, err))
			pw.CloseWithError(werr)
			return werr
		}
		if dec != nil {
			data, err = dec.DecryptChunk(data)
			if err != nil {
				werr := snaperrors.New(snaperrors.KindCodec, fmt.Errorf("decrypt chunk %d: %w", i, err))
				pw.CloseWithError(werr)
				return werr
			}
		}
		if _, err := pw.Write(data); err != nil {
			// The reader side already failed and reported its own error;
			// nothing further to surface from this goroutine.
			return nil
		}
	}
	pw.Close()
	return nil
}

func writeReconstructed(ctx context.Context, src io.Reader, opts Options) error {
	if opts.Connection != nil {
		return pipeToRestoreTool(ctx, src, *opts.Connection)
	}
	if _, err := io.Copy(opts.Dest, src); err != nil {
		return snaperrors.New(snaperrors.KindDestination, err)
	}
	return nil
}

// pipeToRestoreTool runs the destination engine's native restore binary
// (psql, mysql, mongorestore) with src as its standard input, surfacing
// its exit code and captured standard error on failure (spec.md §4.7).
func pipeToRestoreTool(ctx context.Context, src io.Reader, conn engine.Connection) error {
	cmd, err := conn.RestoreCommand()
	if err != nil {
		return snaperrors.New(snaperrors.KindConfig, err)
	}
	cmd.Stdin = src
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return snaperrors.New(snaperrors.KindDestination, fmt.Errorf("start %s: %w", cmd.Path, err))
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return snaperrors.New(snaperrors.KindDestination,
				fmt.Errorf("%s: %w: %s", cmd.Path, err, strings.TrimSpace(stderr.String())))
		}
		return nil
	}
}

type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		atomic.AddInt64(c.n, int64(n))
	}
	return n, err
}

// startProgress reports bytesOut at a fixed interval until the returned
// stop function is called, mirroring the backup driver's progress ticker
// (internal/pipeline.progressTicker).
func startProgress(ctx context.Context, interval time.Duration, bytesOut *int64, report func(int64)) func() {
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
				report(atomic.LoadInt64(bytesOut))
			}
		}
	}()
	return func() { close(done) }
}
