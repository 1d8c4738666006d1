package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"h2olog/internal/cache"
	"h2olog/internal/core"
)

// EntrySource is the read side of the entry store.
type EntrySource interface {
	List(ctx context.Context) []core.LogEntry
}

// State is what the insights view renders.
type State struct {
	Pending bool
	Result  *Result
}

// Service runs requests in the background, joins concurrent triggers for
// the same data and remembers successful results per data snapshot.
type Service struct {
	requester *Requester
	entries   EntrySource
	results   cache.Cache[Result]
	timeout   time.Duration

	group singleflight.Group

	mu      sync.Mutex
	pending bool
	latest  *Result
	wg      sync.WaitGroup
}

func NewService(requester *Requester, entries EntrySource, results cache.Cache[Result], timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{
		requester: requester,
		entries:   entries,
		results:   results,
		timeout:   timeout,
	}
}

// State returns the current pending flag and last result.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{Pending: s.pending}
	if s.latest != nil {
		r := *s.latest
		st.Result = &r
	}
	return st
}

// Trigger starts a request in the background unless one is running.
// It reports whether a new request was started.
func (s *Service) Trigger() bool {
	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return false
	}
	s.pending = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		res := s.Run(ctx)

		s.mu.Lock()
		s.pending = false
		s.latest = &res
		s.mu.Unlock()
	}()
	return true
}

// Wait blocks until background requests have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Run requests an insight synchronously. Identical concurrent calls share
// one upstream request.
func (s *Service) Run(ctx context.Context) Result {
	entries := s.entries.List(ctx)
	key := s.fingerprint(entries)

	if s.results != nil {
		if res, ok := s.results.Get(key); ok {
			return res
		}
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		res := s.requester.Generate(ctx, entries)
		if res.Status == StatusOK && s.results != nil {
			s.results.Set(key, res)
		}
		return res, nil
	})
	return v.(Result)
}

// fingerprint identifies the data a prompt would be built from.
func (s *Service) fingerprint(entries []core.LogEntry) string {
	if len(entries) > s.requester.maxEntries {
		entries = entries[:s.requester.maxEntries]
	}
	h := fnv.New64a()
	_ = json.NewEncoder(h).Encode(entries)
	fmt.Fprint(h, s.requester.language)
	return fmt.Sprintf("%x", h.Sum64())
}
