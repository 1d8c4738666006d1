package services

import (
	"sync"
	"time"

	"h2olog/internal/core"
)

type ChangeKind string

const (
	ChangeEntryAdded      ChangeKind = "entry.added"
	ChangeEntryDeleted    ChangeKind = "entry.deleted"
	ChangeEntriesCleared  ChangeKind = "entries.cleared"
	ChangeSettingsUpdated ChangeKind = "settings.updated"
)

// Change describes a mutation that has already been persisted.
type Change struct {
	Kind     ChangeKind
	EntryID  string
	Entry    *core.LogEntry
	Settings *core.UserSettings
	At       time.Time
}

// Listener is called synchronously after a mutation. Listeners that do
// I/O hand the change to their own goroutine.
type Listener func(Change)

type notifier struct {
	mu        sync.Mutex
	next      int
	listeners map[int]Listener
}

// Subscribe registers l and returns a function that removes it.
func (n *notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.next
	n.next++
	n.listeners[id] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.listeners, id)
		})
	}
}

func (n *notifier) notify(c Change) {
	n.mu.Lock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.mu.Unlock()

	for _, l := range ls {
		l(c)
	}
}
