package confirm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"h2olog/internal/cache"
)

var _ cache.Cleaner = (*Gate)(nil)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate(t *testing.T) (*Gate, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	n := 0
	g := NewGate(DefaultTTL, WithClock(clk.Now), WithTokens(func() string {
		n++
		return fmt.Sprintf("tok-%d", n)
	}))
	return g, clk
}

func TestGate_ConfirmRunsOnce(t *testing.T) {
	g, _ := newTestGate(t)
	req := g.RequestDelete("e1", "250 ml intake")
	if req.Token != "tok-1" || req.Action != ActionDeleteEntry || req.Strong {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Message != "Delete 250 ml intake?" {
		t.Errorf("Message = %q", req.Message)
	}

	calls := 0
	perform := func(_ context.Context, r Request) error {
		calls++
		if r.EntryID != "e1" {
			t.Errorf("perform got entry %q", r.EntryID)
		}
		return nil
	}

	out, err := g.Decide(context.Background(), req.Token, DecisionConfirm, "", perform)
	if err != nil || !out.Performed {
		t.Fatalf("Decide = %+v, %v", out, err)
	}
	if _, err := g.Decide(context.Background(), req.Token, DecisionConfirm, "", perform); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("second Decide err = %v, want ErrUnknownToken", err)
	}
	if calls != 1 {
		t.Fatalf("perform called %d times", calls)
	}
}

func TestGate_CancelDoesNothing(t *testing.T) {
	g, _ := newTestGate(t)
	req := g.RequestDelete("e1", "")
	out, err := g.Decide(context.Background(), req.Token, DecisionCancel, "", func(context.Context, Request) error {
		t.Fatal("perform must not run on cancel")
		return nil
	})
	if err != nil || out.Performed {
		t.Fatalf("Decide = %+v, %v", out, err)
	}
	if g.Pending() != 0 {
		t.Fatalf("cancelled request still pending")
	}
}

func TestGate_StrongRequiresPhrase(t *testing.T) {
	g, _ := newTestGate(t)
	req := g.RequestClear(3)
	if !req.Strong || req.Action != ActionClearAll {
		t.Fatalf("unexpected request %+v", req)
	}

	performed := false
	perform := func(context.Context, Request) error { performed = true; return nil }

	for _, phrase := range []string{"", "delete", "DEL"} {
		if _, err := g.Decide(context.Background(), req.Token, DecisionConfirm, phrase, perform); !errors.Is(err, ErrPhraseMismatch) {
			t.Fatalf("phrase %q: err = %v, want ErrPhraseMismatch", phrase, err)
		}
	}
	if performed {
		t.Fatal("performed without phrase")
	}
	if _, ok := g.Lookup(req.Token); !ok {
		t.Fatal("mismatched phrase should keep the request pending")
	}

	out, err := g.Decide(context.Background(), req.Token, DecisionConfirm, " DELETE ", perform)
	if err != nil || !out.Performed || !performed {
		t.Fatalf("Decide = %+v, %v", out, err)
	}
}

func TestGate_Expiry(t *testing.T) {
	g, clk := newTestGate(t)
	req := g.RequestDelete("e1", "")

	clk.Advance(DefaultTTL + time.Second)
	if _, err := g.Decide(context.Background(), req.Token, DecisionConfirm, "", func(context.Context, Request) error {
		t.Fatal("expired request performed")
		return nil
	}); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}

func TestGate_CleanExpired(t *testing.T) {
	g, clk := newTestGate(t)
	g.RequestDelete("a", "")
	g.RequestDelete("b", "")
	clk.Advance(DefaultTTL / 2)
	g.RequestClear(2)
	clk.Advance(DefaultTTL/2 + time.Second)

	if removed := g.CleanExpired(); removed != 2 {
		t.Fatalf("CleanExpired = %d, want 2", removed)
	}
	if g.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1", g.Pending())
	}
}

func TestGate_PerformErrorConsumesToken(t *testing.T) {
	g, _ := newTestGate(t)
	req := g.RequestDelete("e1", "")
	boom := errors.New("disk full")
	out, err := g.Decide(context.Background(), req.Token, DecisionConfirm, "", func(context.Context, Request) error { return boom })
	if !errors.Is(err, boom) || out.Performed {
		t.Fatalf("Decide = %+v, %v", out, err)
	}
	if g.Pending() != 0 {
		t.Fatal("token should be single use even when the action fails")
	}
}

func TestGate_ConcurrentConfirm(t *testing.T) {
	g := NewGate(time.Minute)
	req := g.RequestDelete("e1", "")

	var performed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = g.Decide(context.Background(), req.Token, DecisionConfirm, "", func(context.Context, Request) error {
				performed.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()
	if n := performed.Load(); n != 1 {
		t.Fatalf("performed %d times, want 1", n)
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in      string
		want    Decision
		wantErr bool
	}{
		{"confirm", DecisionConfirm, false},
		{" Cancel ", DecisionCancel, false},
		{"yes", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDecision(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDecision(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := NewGate(0).Decide(context.Background(), "missing", DecisionConfirm, "", nil); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("err = %v, want ErrUnknownToken", err)
	}
}
