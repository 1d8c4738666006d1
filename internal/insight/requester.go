package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"h2olog/internal/core"
	"h2olog/internal/log"
)

// Fixed replies. Request never surfaces an error to the caller.
const (
	TextNotConfigured = "The insight service is not configured, so no analysis is available."
	TextNoData        = "There is no data to analyse yet. Start by recording what you drink and pass."
	TextFailure       = "Something went wrong while generating the analysis. Please try again later."
)

const (
	DefaultMaxEntries = 50
	DefaultLanguage   = "English"
)

type Status string

const (
	StatusOK            Status = "ok"
	StatusNotConfigured Status = "not_configured"
	StatusNoData        Status = "no_data"
	StatusFailed        Status = "failed"
)

// Result is the outcome of one request. Text is always displayable.
type Result struct {
	Status      Status
	Text        string
	Provider    string
	GeneratedAt time.Time
}

type RequesterConfig struct {
	MaxEntries int
	Language   string
	Location   *time.Location
}

type Requester struct {
	gen        Generator
	maxEntries int
	language   string
	loc        *time.Location
	logger     *log.Logger
	now        func() time.Time
}

// NewRequester builds a requester. A nil generator means no credential
// is configured.
func NewRequester(gen Generator, cfg RequesterConfig, logger *log.Logger) *Requester {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Requester{
		gen:        gen,
		maxEntries: cfg.MaxEntries,
		language:   cfg.Language,
		loc:        cfg.Location,
		logger:     logger.WithComponent(log.ComponentInsight),
		now:        time.Now,
	}
}

func (r *Requester) Configured() bool {
	return r.gen != nil
}

// Request returns the insight text for entries (newest first).
func (r *Requester) Request(ctx context.Context, entries []core.LogEntry) string {
	return r.Generate(ctx, entries).Text
}

// Generate is Request with the outcome spelled out.
func (r *Requester) Generate(ctx context.Context, entries []core.LogEntry) Result {
	if r.gen == nil {
		return Result{Status: StatusNotConfigured, Text: TextNotConfigured, GeneratedAt: r.now()}
	}
	if len(entries) == 0 {
		return Result{Status: StatusNoData, Text: TextNoData, GeneratedAt: r.now()}
	}

	prompt, err := r.Prompt(entries)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to build insight prompt", log.FieldError, err)
		return Result{Status: StatusFailed, Text: TextFailure, GeneratedAt: r.now()}
	}

	start := time.Now()
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Insight generation failed",
			log.FieldProvider, r.gen.Name(),
			log.FieldOperation, log.OpGenerate,
			log.FieldError, err)
		return Result{Status: StatusFailed, Text: TextFailure, Provider: r.gen.Name(), GeneratedAt: r.now()}
	}

	r.logger.InfoContext(ctx, "Insight generated",
		log.FieldProvider, r.gen.Name(),
		log.FieldEntryCount, min(len(entries), r.maxEntries),
		log.FieldDuration, time.Since(start).Milliseconds())
	return Result{Status: StatusOK, Text: text, Provider: r.gen.Name(), GeneratedAt: r.now()}
}

type promptEntry struct {
	Time   string  `json:"time"`
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

// Prompt renders the instruction sent to the generator.
func (r *Requester) Prompt(entries []core.LogEntry) (string, error) {
	recent := entries
	if len(recent) > r.maxEntries {
		recent = recent[:r.maxEntries]
	}
	rows := make([]promptEntry, len(recent))
	for i, e := range recent {
		rows[i] = promptEntry{
			Time:   e.Timestamp.In(r.loc).Format(time.RFC3339),
			Type:   string(e.Type),
			Amount: e.Amount,
			Note:   e.Note,
		}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode entries: %w", err)
	}

	return fmt.Sprintf(`Here is my daily log of fluid intake and urine output (most recent %d records, amounts in ml):
%s

Based on this data, give a short health recommendation (no more than 200 words).
Please consider:
1. Whether drinking is spread evenly across the day.
2. Whether intake and output are balanced. Intake should usually be slightly higher than urine output, since water is also lost through sweat and breathing.
3. Any special patterns suggested by the notes in the records.
4. Concrete, encouraging actions to take next.
Answer in %s, in the tone of a professional and friendly health coach.`, len(rows), data, r.language), nil
}
