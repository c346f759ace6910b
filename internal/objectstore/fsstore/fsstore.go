// Package fsstore implements objectstore.Store against a local directory
// tree, for the non-S3 deployment spec.md §4.5 calls out ("Also supports a
// local filesystem backend").
package fsstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/snapctl/snapctl/internal/objectstore"
)

// Store is a directory-backed objectstore.Store. Keys are slash-separated
// paths relative to the base directory; Put creates any missing parent
// directories.
type Store struct {
	baseDir string
	mu      sync.Mutex
}

// New returns a Store rooted at baseDir, creating it if necessary.
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("fsstore: create base dir %s: %w", baseDir, err)
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(key))
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, r)
}

func (s *Store) put(key string, r io.Reader) (string, error) {
	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("fsstore: create parent dir for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".snapctl-upload-*")
	if err != nil {
		return "", fmt.Errorf("fsstore: create temp file for %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("fsstore: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("fsstore: close temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("fsstore: rename into place for %s: %w", key, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// PutIfMatch re-hashes the existing file (if any) under a process-local
// mutex before writing, which is atomic within this process but — like
// s3store's stat-then-put — not a true compare-and-swap across processes,
// the same documented single-writer limitation (spec.md §9).
func (s *Store) PutIfMatch(ctx context.Context, key string, ifMatchETag string, r io.Reader, size int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.stat(key)
	switch {
	case err == nil:
		if ifMatchETag == "" || current.ETag != ifMatchETag {
			return "", fmt.Errorf("fsstore: put %s: %w", key, objectstore.ErrPreconditionFailed)
		}
	case errors.Is(err, objectstore.ErrNotExist):
		if ifMatchETag != "" {
			return "", fmt.Errorf("fsstore: put %s: %w", key, objectstore.ErrPreconditionFailed)
		}
	default:
		return "", err
	}
	return s.put(key, r)
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("fsstore: get %s: %w", key, objectstore.ErrNotExist)
		}
		return nil, fmt.Errorf("fsstore: get %s: %w", key, err)
	}
	return f, nil
}

func (s *Store) Stat(ctx context.Context, key string) (objectstore.ObjectInfo, error) {
	return s.stat(key)
}

func (s *Store) stat(key string) (objectstore.ObjectInfo, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return objectstore.ObjectInfo{}, fmt.Errorf("fsstore: stat %s: %w", key, objectstore.ErrNotExist)
		}
		return objectstore.ObjectInfo{}, fmt.Errorf("fsstore: stat %s: %w", key, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return objectstore.ObjectInfo{}, fmt.Errorf("fsstore: stat %s: %w", key, err)
	}

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return objectstore.ObjectInfo{}, fmt.Errorf("fsstore: hash %s: %w", key, err)
	}
	return objectstore.ObjectInfo{
		Key:     key,
		ETag:    hex.EncodeToString(hasher.Sum(nil)),
		Size:    size,
		ModTime: stat.ModTime(),
	}, nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	root := s.path(prefix)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fsstore: list %s: %w", prefix, err)
	}

	var keys []string
	walkRoot := root
	if !info.IsDir() {
		walkRoot = filepath.Dir(root)
	}
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsstore: list %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("fsstore: delete %s: %w", key, err)
	}
	return nil
}
