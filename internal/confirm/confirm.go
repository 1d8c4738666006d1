// Package confirm gates destructive actions behind a second, explicit
// decision. A request yields a short-lived single-use token; the action
// runs only when that token is confirmed.
package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"h2olog/internal/cache"
)

const (
	// StrongPhrase must be typed to confirm a strong request.
	StrongPhrase = "DELETE"

	DefaultTTL        = 5 * time.Minute
	defaultMaxPending = 64
)

type Action string

const (
	ActionDeleteEntry Action = "delete_entry"
	ActionClearAll    Action = "clear_all"
)

type Decision string

const (
	DecisionConfirm Decision = "confirm"
	DecisionCancel  Decision = "cancel"
)

var (
	ErrUnknownToken   = errors.New("confirmation expired or unknown")
	ErrPhraseMismatch = errors.New("confirmation phrase does not match")
	ErrBadDecision    = errors.New("decision must be confirm or cancel")
)

// Request is a pending destructive action.
type Request struct {
	Token     string
	Action    Action
	EntryID   string
	Strong    bool
	Message   string
	CreatedAt time.Time
}

// Outcome reports what Decide did.
type Outcome struct {
	Request   Request
	Performed bool
}

// Gate holds pending requests until they are decided or expire.
type Gate struct {
	pending  *cache.LRUCache[Request]
	newToken func() string
	now      func() time.Time
}

type Option func(*Gate)

// WithClock sets the time source for both creation stamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithTokens replaces the token generator.
func WithTokens(gen func() string) Option {
	return func(g *Gate) { g.newToken = gen }
}

func NewGate(ttl time.Duration, opts ...Option) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	g := &Gate{
		pending:  cache.NewLRUCache[Request](defaultMaxPending, ttl),
		newToken: uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.pending.WithClock(g.now)
	return g
}

// RequestDelete asks for confirmation before removing one entry.
func (g *Gate) RequestDelete(entryID, description string) Request {
	msg := "Delete this entry?"
	if description != "" {
		msg = fmt.Sprintf("Delete %s?", description)
	}
	return g.add(Request{Action: ActionDeleteEntry, EntryID: entryID, Message: msg})
}

// RequestClear asks for strong confirmation before removing everything.
func (g *Gate) RequestClear(count int) Request {
	return g.add(Request{
		Action:  ActionClearAll,
		Strong:  true,
		Message: fmt.Sprintf("Delete all %d entries? This cannot be undone.", count),
	})
}

func (g *Gate) add(r Request) Request {
	r.Token = g.newToken()
	r.CreatedAt = g.now()
	g.pending.Set(r.Token, r)
	return r
}

// Lookup returns a pending request without consuming it.
func (g *Gate) Lookup(token string) (Request, bool) {
	return g.pending.Get(token)
}

// Decide completes a request. Cancel discards it; confirm runs perform
// exactly once. A strong request whose phrase does not match stays
// pending so the user can retry.
func (g *Gate) Decide(ctx context.Context, token string, decision Decision, phrase string, perform func(context.Context, Request) error) (Outcome, error) {
	req, ok := g.pending.Get(token)
	if !ok {
		return Outcome{}, ErrUnknownToken
	}

	switch decision {
	case DecisionCancel:
		g.pending.Delete(token)
		return Outcome{Request: req}, nil
	case DecisionConfirm:
	default:
		return Outcome{Request: req}, ErrBadDecision
	}

	if req.Strong && strings.TrimSpace(phrase) != StrongPhrase {
		return Outcome{Request: req}, ErrPhraseMismatch
	}

	// A concurrent decision may have won the race.
	req, ok = g.pending.Take(token)
	if !ok {
		return Outcome{}, ErrUnknownToken
	}
	if err := perform(ctx, req); err != nil {
		return Outcome{Request: req}, err
	}
	return Outcome{Request: req, Performed: true}, nil
}

// CleanExpired drops expired requests; it makes Gate a cache.Cleaner.
func (g *Gate) CleanExpired() int {
	return g.pending.CleanExpired()
}

// Pending reports how many requests await a decision.
func (g *Gate) Pending() int {
	return g.pending.Size()
}

// ParseDecision maps form values to a Decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionConfirm:
		return DecisionConfirm, nil
	case DecisionCancel:
		return DecisionCancel, nil
	}
	return "", ErrBadDecision
}
