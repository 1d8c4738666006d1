// Package disk stores documents as files under a data directory.
package disk

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"

	"h2olog/internal/storage"
)

const cacheSize = 1 << 20

type Store struct {
	mu     sync.Mutex
	d      *diskv.Diskv
	closed bool
}

// New opens (creating if needed) a diskv store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	d := diskv.New(diskv.Options{
		BasePath:          dir,
		TempDir:           filepath.Join(dir, ".tmp"),
		AdvancedTransform: keyToPathTransform,
		InverseTransform:  pathToKeyTransform,
		CacheSizeMax:      cacheSize,
		FilePerm:          0o600,
		PathPerm:          0o755,
	})
	return &Store{d: d}, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	if !s.d.Has(key) {
		return nil, false, nil
	}
	data, err := s.d.Read(key)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Put writes through a temp file that is renamed into place.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if err := s.d.WriteStream(key, bytes.NewReader(data), true); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Ping checks the data directory is still reachable.
func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(s.d.BasePath)
	return err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Documents live flat in the base directory as <key>.json.
func keyToPathTransform(key string) *diskv.PathKey {
	return &diskv.PathKey{FileName: key + ".json"}
}

func pathToKeyTransform(pk *diskv.PathKey) string {
	return strings.TrimSuffix(pk.FileName, ".json")
}
