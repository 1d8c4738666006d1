// Package memory is a process-local BlobStore used by tests and demos.
package memory

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"h2olog/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	blobs  map[string][]byte
	closed bool
}

func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// NewFromDir seeds the store with <key>.json files found in base.
// Missing files are ignored.
func NewFromDir(base string) *Store {
	s := New()
	for _, key := range []string{storage.KeyLogs, storage.KeySettings} {
		data, err := os.ReadFile(filepath.Join(base, key+".json"))
		if err != nil {
			continue
		}
		s.blobs[key] = data
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, storage.ErrClosed
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *Store) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	s.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
