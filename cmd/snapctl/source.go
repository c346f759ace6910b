package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/snapctl/snapctl/internal/engine"
	"github.com/snapctl/snapctl/internal/pipeline"
)

// resolveEngine picks the source engine for dump create: an explicit -s
// flag wins, otherwise it's inferred from the configured connection URI's
// scheme (postgres://, mysql://, mongodb://).
func resolveEngine(flagValue, connectionURI string) (engine.Engine, error) {
	if flagValue != "" {
		return engine.Parse(flagValue)
	}
	scheme, _, ok := strings.Cut(connectionURI, "://")
	if !ok {
		return 0, fmt.Errorf("cannot infer engine: pass -s or set source.connection_uri")
	}
	return engine.Parse(scheme)
}

// bufferedOpener reads r fully once and serves an independent reader over
// the buffered bytes on every call, so a single stdin/pipe source still
// supports the backup driver's multi-pass reopening when subsetting is
// configured.
func bufferedOpener(r io.Reader) (pipeline.SourceOpener, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil
}

// fileOpener reopens path fresh on every call.
func fileOpener(path string) pipeline.SourceOpener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		return f, nil
	}
}

// liveOpener runs conn's native dump tool and streams its standard output.
// It re-executes the tool on every call, since the backup driver reopens
// the source once per subsetting pass (internal/pipeline.SourceOpener).
func liveOpener(conn engine.Connection) pipeline.SourceOpener {
	return func(ctx context.Context) (io.ReadCloser, error) {
		cmd, err := conn.DumpCommand()
		if err != nil {
			return nil, err
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("dump command stdout pipe: %w", err)
		}
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
		}
		return &cmdReadCloser{stdout: stdout, cmd: cmd, stderr: &stderr}, nil
	}
}

// cmdReadCloser adapts a running dump-tool subprocess to io.ReadCloser,
// surfacing its captured stderr if it exits non-zero.
type cmdReadCloser struct {
	stdout io.ReadCloser
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

func (c *cmdReadCloser) Read(p []byte) (int, error) { return c.stdout.Read(p) }

func (c *cmdReadCloser) Close() error {
	c.stdout.Close()
	if err := c.cmd.Wait(); err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(c.stderr.String()))
	}
	return nil
}
