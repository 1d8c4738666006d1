package services

import (
	"context"
	"time"

	"h2olog/internal/core"
)

// Dashboard recomputes every view from a fresh entry snapshot. Nothing
// here is cached, so a view always reflects the last completed mutation.
type Dashboard struct {
	Entries  *EntryStore
	Settings *SettingsStore

	loc       *time.Location
	trendDays int
	lowIntake float64
	now       func() time.Time
}

type DashboardConfig struct {
	Location  *time.Location
	TrendDays int
	LowIntake float64
	Now       func() time.Time
}

// Overview is everything the main screen shows.
type Overview struct {
	Today    core.DailySummary
	Hint     core.Hint
	Series   []core.SeriesPoint
	MaxTotal float64
	Settings core.UserSettings
	Total    int
}

func NewDashboard(entries *EntryStore, settings *SettingsStore, cfg DashboardConfig) *Dashboard {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TrendDays <= 0 {
		cfg.TrendDays = 7
	}
	if cfg.LowIntake <= 0 {
		cfg.LowIntake = 1500
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Dashboard{
		Entries:   entries,
		Settings:  settings,
		loc:       cfg.Location,
		trendDays: cfg.TrendDays,
		lowIntake: cfg.LowIntake,
		now:       cfg.Now,
	}
}

func (d *Dashboard) Location() *time.Location { return d.loc }

func (d *Dashboard) TrendDays() int { return d.trendDays }

// Today is the calendar day containing the current instant.
func (d *Dashboard) Today() core.Date {
	return core.DateOf(d.now(), d.loc)
}

func (d *Dashboard) Overview(ctx context.Context) Overview {
	entries := d.Entries.List(ctx)
	today := core.SummarizeDay(entries, d.Today())
	series := core.TrailingSeries(entries, d.trendDays, d.now(), d.loc)
	return Overview{
		Today:    today,
		Hint:     core.IntakeHint(today, d.lowIntake),
		Series:   series,
		MaxTotal: core.MaxTotal(series),
		Settings: d.Settings.Get(ctx),
		Total:    len(entries),
	}
}

func (d *Dashboard) Summary(ctx context.Context, date core.Date) core.DailySummary {
	return core.SummarizeDay(d.Entries.List(ctx), date)
}

// Series returns a trailing trend of the given length; zero or negative
// lengths use the configured default.
func (d *Dashboard) Series(ctx context.Context, days int) []core.SeriesPoint {
	if days <= 0 {
		days = d.trendDays
	}
	return core.TrailingSeries(d.Entries.List(ctx), days, d.now(), d.loc)
}

func (d *Dashboard) History(ctx context.Context) []core.DayGroup {
	return core.GroupByDay(d.Entries.List(ctx), d.loc)
}

// Yesterday summarises the previous calendar day; used by the digest job.
func (d *Dashboard) Yesterday(ctx context.Context) core.DailySummary {
	return d.Summary(ctx, d.Today().AddDays(-1))
}

// Week totals the trailing trend window.
func (d *Dashboard) Week(ctx context.Context) core.RangeSummary {
	today := d.Today()
	return core.SummarizeRange(d.Entries.List(ctx), today.AddDays(-(d.trendDays - 1)), today)
}
