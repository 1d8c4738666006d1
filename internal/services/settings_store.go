package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"h2olog/internal/core"
	"h2olog/internal/log"
	"h2olog/internal/storage"
)

// SettingsStore owns the preset lists offered by the entry form.
type SettingsStore struct {
	notifier

	mu       sync.RWMutex
	blobs    storage.BlobStore
	settings core.UserSettings
	logger   *log.Logger
	now      func() time.Time
}

// NewSettingsStore loads persisted settings, falling back to the defaults
// for anything missing or unreadable.
func NewSettingsStore(ctx context.Context, blobs storage.BlobStore, logger *log.Logger) *SettingsStore {
	if logger == nil {
		logger = log.Discard()
	}
	s := &SettingsStore{
		blobs:  blobs,
		logger: logger.WithComponent(log.ComponentSettings),
		now:    time.Now,
	}
	s.settings = s.load(ctx)
	return s
}

func (s *SettingsStore) load(ctx context.Context) core.UserSettings {
	defaults := core.DefaultSettings()

	data, ok, err := s.blobs.Get(ctx, storage.KeySettings)
	if err != nil {
		s.logger.WarnContext(ctx, "Could not read settings, using defaults",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return defaults
	}
	if !ok {
		return defaults
	}

	var loaded core.UserSettings
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.WarnContext(ctx, "Stored settings are corrupt, using defaults",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return defaults
	}
	if loaded.IntakePresets == nil {
		loaded.IntakePresets = defaults.IntakePresets
	}
	if loaded.OutputPresets == nil {
		loaded.OutputPresets = defaults.OutputPresets
	}
	return loaded.Normalize()
}

func (s *SettingsStore) persist(ctx context.Context, settings core.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.blobs.Put(ctx, storage.KeySettings, data); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}
	return nil
}

// Get returns a copy of the current settings.
func (s *SettingsStore) Get(_ context.Context) core.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// Presets returns the preset list for an entry type.
func (s *SettingsStore) Presets(ctx context.Context, kind core.EntryType) []int {
	return s.Get(ctx).Presets(kind)
}

// AddPreset inserts value into the list for kind, keeping it sorted.
// Non-positive and duplicate values leave the settings unchanged and
// return ErrInvalidPreset or ErrDuplicatePreset.
func (s *SettingsStore) AddPreset(ctx context.Context, kind core.EntryType, value int) (core.UserSettings, error) {
	if err := kind.Validate(); err != nil {
		return s.Get(ctx), err
	}
	if value <= 0 {
		return s.Get(ctx), core.ErrInvalidPreset
	}

	return s.update(ctx, kind, value, func(list []int) ([]int, error) {
		if slices.Contains(list, value) {
			return nil, core.ErrDuplicatePreset
		}
		next := append(slices.Clone(list), value)
		slices.Sort(next)
		return next, nil
	})
}

// RemovePreset deletes value from the list for kind. Absent values are a no-op.
func (s *SettingsStore) RemovePreset(ctx context.Context, kind core.EntryType, value int) (core.UserSettings, error) {
	if err := kind.Validate(); err != nil {
		return s.Get(ctx), err
	}

	return s.update(ctx, kind, value, func(list []int) ([]int, error) {
		if !slices.Contains(list, value) {
			return nil, nil
		}
		return slices.DeleteFunc(slices.Clone(list), func(v int) bool { return v == value }), nil
	})
}

// update applies fn to the list for kind. A nil list with a nil error
// means nothing changed.
func (s *SettingsStore) update(ctx context.Context, kind core.EntryType, value int, fn func([]int) ([]int, error)) (core.UserSettings, error) {
	s.mu.Lock()
	current := s.settings
	list, err := fn(current.Presets(kind))
	if err != nil || list == nil {
		s.mu.Unlock()
		return current.Clone(), err
	}

	next := current.Clone()
	if kind == core.Output {
		next.OutputPresets = list
	} else {
		next.IntakePresets = list
	}
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return current.Clone(), err
	}
	s.settings = next
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Presets updated",
		log.NewFields().WithPreset(string(kind), value).WithOperation(log.OpPersist).ToSlice()...)
	snapshot := next.Clone()
	s.notify(Change{Kind: ChangeSettingsUpdated, Settings: &snapshot, At: s.now()})
	return next.Clone(), nil
}
