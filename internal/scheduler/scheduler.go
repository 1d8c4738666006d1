// Package scheduler runs the daily digest of the previous day's log.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"h2olog/internal/amqp"
	"h2olog/internal/core"
	"h2olog/internal/log"
)

// DefaultSchedule runs five minutes after local midnight.
const DefaultSchedule = "5 0 * * *"

// SummarySource yields the summary of the day before today.
type SummarySource interface {
	Yesterday(ctx context.Context) core.DailySummary
}

// Sink receives the digest message, e.g. the broker publisher.
type Sink interface {
	Enqueue(msg *amqp.ChangeMessage)
}

type Scheduler struct {
	cron     *cron.Cron
	schedule string
	source   SummarySource
	sinks    []Sink
	logger   *log.Logger
}

// New validates schedule and prepares a scheduler running in loc.
func New(schedule string, loc *time.Location, source SummarySource, logger *log.Logger, sinks ...Sink) (*Scheduler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Discard()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("parse digest schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		source:   source,
		sinks:    sinks,
		logger:   logger.WithComponent(log.ComponentScheduler),
	}, nil
}

// Run schedules the digest and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.SendDigest(context.Background()) }); err != nil {
		return fmt.Errorf("schedule digest: %w", err)
	}
	s.logger.Info("Starting scheduler", "schedule", s.schedule)
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// SendDigest summarises yesterday, logs it and hands it to every sink.
func (s *Scheduler) SendDigest(ctx context.Context) core.DailySummary {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	sum := s.source.Yesterday(ctx)
	s.logger.InfoContext(ctx, "Daily digest",
		log.FieldDate, sum.Date.String(),
		"intake_ml", sum.TotalIntake,
		"output_ml", sum.TotalOutput,
		"balance_ml", sum.Balance(),
		"count_intake", sum.CountIntake,
		"count_output", sum.CountOutput)

	msg := amqp.NewDigestMessage(sum)
	for _, sink := range s.sinks {
		sink.Enqueue(msg)
	}
	return sum
}
