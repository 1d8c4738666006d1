package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"h2olog/internal/core"
	"h2olog/internal/log"
	"h2olog/internal/storage"
)

// EntryStore owns the entry list. The list is kept newest first by
// insertion and is written back in full after every mutation.
type EntryStore struct {
	notifier

	mu      sync.RWMutex
	blobs   storage.BlobStore
	entries []core.LogEntry
	logger  *log.Logger
	now     func() time.Time
	newID   func() string
}

type EntryStoreOption func(*EntryStore)

// WithClock sets the time source used for entries without a timestamp.
func WithClock(now func() time.Time) EntryStoreOption {
	return func(s *EntryStore) { s.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) EntryStoreOption {
	return func(s *EntryStore) { s.newID = gen }
}

// NewEntryStore loads the persisted list. Unreadable or corrupt data
// yields an empty store and a warning; it never fails.
func NewEntryStore(ctx context.Context, blobs storage.BlobStore, logger *log.Logger, opts ...EntryStoreOption) *EntryStore {
	if logger == nil {
		logger = log.Discard()
	}
	s := &EntryStore{
		blobs:  blobs,
		logger: logger.WithComponent(log.ComponentEntries),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = s.load(ctx)
	return s
}

func (s *EntryStore) load(ctx context.Context) []core.LogEntry {
	data, ok, err := s.blobs.Get(ctx, storage.KeyLogs)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read entries, starting empty",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return []core.LogEntry{}
	}
	if !ok {
		return []core.LogEntry{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.WarnContext(ctx, "Stored entries are corrupt, starting empty",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return []core.LogEntry{}
	}

	entries := make([]core.LogEntry, 0, len(raw))
	for i, r := range raw {
		var e core.LogEntry
		if err := json.Unmarshal(r, &e); err != nil {
			s.logger.WarnContext(ctx, "Skipping unreadable entry", "index", i, log.FieldError, err)
			continue
		}
		if err := e.Validate(); err != nil {
			s.logger.WarnContext(ctx, "Skipping invalid entry", "index", i, log.FieldEntryID, e.ID, log.FieldError, err)
			continue
		}
		entries = append(entries, e)
	}
	s.logger.DebugContext(ctx, "Entries loaded", log.FieldEntryCount, len(entries))
	return entries
}

// persist must be called with s.mu held.
func (s *EntryStore) persist(ctx context.Context, entries []core.LogEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	if err := s.blobs.Put(ctx, storage.KeyLogs, data); err != nil {
		return fmt.Errorf("persist entries: %w", err)
	}
	return nil
}

// List returns a copy of all entries, newest first.
func (s *EntryStore) List(_ context.Context) []core.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Len returns the number of stored entries.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *EntryStore) Get(_ context.Context, id string) (core.LogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.entries, func(e core.LogEntry) bool { return e.ID == id })
	if i < 0 {
		return core.LogEntry{}, false
	}
	return s.entries[i], true
}

// Add validates the draft, assigns a fresh id and stores the entry at the
// front of the list. The entry is persisted before Add returns.
func (s *EntryStore) Add(ctx context.Context, d core.Draft) (core.LogEntry, error) {
	if err := d.Validate(); err != nil {
		return core.LogEntry{}, err
	}
	ts := d.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	e := core.LogEntry{
		ID:        s.newID(),
		Timestamp: ts,
		Type:      d.Type,
		Amount:    d.Amount,
		Note:      strings.TrimSpace(d.Note),
	}

	s.mu.Lock()
	next := make([]core.LogEntry, 0, len(s.entries)+1)
	next = append(next, e)
	next = append(next, s.entries...)
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return core.LogEntry{}, err
	}
	s.entries = next
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Entry recorded",
		log.NewFields().WithEntry(e.ID, string(e.Type), e.Amount).WithOperation(log.OpCreate).ToSlice()...)
	s.notify(Change{Kind: ChangeEntryAdded, EntryID: e.ID, Entry: &e, At: s.now()})
	return e, nil
}

// Delete removes the entry with the given id. Unknown ids are a no-op.
func (s *EntryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	i := slices.IndexFunc(s.entries, func(e core.LogEntry) bool { return e.ID == id })
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	next := slices.Delete(slices.Clone(s.entries), i, i+1)
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.entries = next
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Entry deleted", log.FieldEntryID, id, log.FieldOperation, log.OpDelete)
	s.notify(Change{Kind: ChangeEntryDeleted, EntryID: id, At: s.now()})
	return nil
}

// Clear removes every entry.
func (s *EntryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	n := len(s.entries)
	if err := s.persist(ctx, []core.LogEntry{}); err != nil {
		s.mu.Unlock()
		return err
	}
	s.entries = []core.LogEntry{}
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "All entries cleared", log.FieldEntryCount, n, log.FieldOperation, log.OpClear)
	s.notify(Change{Kind: ChangeEntriesCleared, At: s.now()})
	return nil
}
