package mongoarchive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/snapctl/snapctl/internal/snaperrors"
)

// maxDocumentSize bounds a single BSON document to guard against a
// corrupted length prefix causing an unbounded allocation.
const maxDocumentSize = 16 << 20 // BSON's own 16 MiB document limit

// readRawDocument reads one length-prefixed BSON document (length field
// inclusive of itself) from r, returning the complete raw bytes including
// the 4-byte length header. A clean io.EOF before any byte of a new
// document is read signals the archive is exhausted; anything else short
// of a full document is a corrupt archive.
func readRawDocument(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, snaperrors.New(snaperrors.KindParse, fmt.Errorf("mongoarchive: corrupt archive: truncated length prefix: %w", err))
	}
	length := int32(binary.LittleEndian.Uint32(lenBuf[:]))
	if length < 5 || int(length) > maxDocumentSize {
		return nil, snaperrors.New(snaperrors.KindParse, fmt.Errorf("mongoarchive: corrupt archive: implausible document length %d", length))
	}

	buf := make([]byte, length)
	copy(buf[:4], lenBuf[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return nil, snaperrors.New(snaperrors.KindParse, fmt.Errorf("mongoarchive: corrupt archive: truncated document body: %w", err))
	}
	if buf[length-1] != 0x00 {
		return nil, snaperrors.New(snaperrors.KindParse, fmt.Errorf("mongoarchive: corrupt archive: document missing trailing null terminator"))
	}
	return buf, nil
}
