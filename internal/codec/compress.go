// Package codec implements the two optional codec stages of spec.md §4.4:
// streaming deflate compression and AES-256-GCM encryption, each operating
// on arbitrary byte boundaries rather than message boundaries.
package codec

import (
	"io"

	"github.com/klauspost/compress/flate"
)

// DefaultCompressionLevel is the fixed level spec.md §4.4 calls for ("a
// fixed compression level"); flate.DefaultCompression balances ratio and
// throughput for the streaming case.
const DefaultCompressionLevel = flate.DefaultCompression

// NewCompressWriter wraps w in a streaming deflate writer. Callers must
// Close it to flush the final block; one writer spans the whole snapshot
// (spec.md §4.4: "emits a single stream per snapshot ... not per chunk").
func NewCompressWriter(w io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(w, DefaultCompressionLevel)
}

// NewDecompressReader wraps r in a streaming deflate reader.
func NewDecompressReader(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}
