package http

import (
	"time"

	"h2olog/internal/confirm"
	"h2olog/internal/core"
	"h2olog/internal/insight"
	"h2olog/internal/services"
)

// page carries what the shared layout needs.
type page struct {
	Title  string
	Active string
	Error  string
	// Refresh reloads the page every few seconds while work is pending.
	Refresh bool
}

type summaryView struct {
	Intake      string
	Output      string
	CountIntake int
	CountOutput int
	Balance     string
	Negative    bool
	Percent     int
}

func newSummaryView(s core.DailySummary) summaryView {
	return summaryView{
		Intake:      core.FormatVolume(s.TotalIntake),
		Output:      core.FormatVolume(s.TotalOutput),
		CountIntake: s.CountIntake,
		CountOutput: s.CountOutput,
		Balance:     core.FormatVolume(s.Balance()),
		Negative:    s.Balance() < 0,
		Percent:     s.Percent(),
	}
}

type barView struct {
	Label        string
	Intake       string
	Output       string
	IntakeHeight int
	OutputHeight int
}

type overviewView struct {
	page
	Today       summaryView
	Hint        core.Hint
	Bars        []barView
	Total       int
	IntakeQuick []int
	OutputQuick []int
	TrendDays   int
}

func newOverviewView(ov services.Overview, today core.Date, trendDays int) overviewView {
	v := overviewView{
		page:        page{Title: "Today", Active: "overview"},
		Today:       newSummaryView(ov.Today),
		Hint:        ov.Hint,
		Total:       ov.Total,
		IntakeQuick: ov.Settings.IntakePresets,
		OutputQuick: ov.Settings.OutputPresets,
		TrendDays:   trendDays,
	}
	for _, p := range ov.Series {
		v.Bars = append(v.Bars, barView{
			Label:        p.Date.Format("Mon"),
			Intake:       core.FormatVolume(p.IntakeTotal),
			Output:       core.FormatVolume(p.OutputTotal),
			IntakeHeight: barHeight(p.IntakeTotal, ov.MaxTotal),
			OutputHeight: barHeight(p.OutputTotal, ov.MaxTotal),
		})
	}
	if len(v.Bars) > 0 {
		v.Bars[len(v.Bars)-1].Label = dayLabel(today, today)
	}
	return v
}

type entryView struct {
	ID     string
	Time   string
	Type   string
	Label  string
	Amount string
	Note   string
}

func newEntryView(e core.LogEntry, loc *time.Location) entryView {
	return entryView{
		ID:     e.ID,
		Time:   formatClock(e.Timestamp, loc),
		Type:   string(e.Type),
		Label:  e.Type.Label(),
		Amount: core.FormatVolume(e.Amount),
		Note:   e.Note,
	}
}

type dayView struct {
	Label   string
	Date    string
	Summary summaryView
	Entries []entryView
}

type historyView struct {
	page
	Days  []dayView
	Total int
}

func newHistoryView(groups []core.DayGroup, today core.Date, loc *time.Location) historyView {
	v := historyView{page: page{Title: "History", Active: "history"}}
	for _, g := range groups {
		dv := dayView{
			Label:   dayLabel(g.Date, today),
			Date:    g.Date.String(),
			Summary: newSummaryView(core.SummarizeDay(g.Entries, g.Date)),
		}
		for _, e := range g.Entries {
			dv.Entries = append(dv.Entries, newEntryView(e, loc))
		}
		v.Total += len(g.Entries)
		v.Days = append(v.Days, dv)
	}
	return v
}

type entryFormView struct {
	page
	Type    string
	Label   string
	Presets []int
	Amount  string
	Time    string
	Note    string
}

type confirmView struct {
	page
	Token   string
	Message string
	Strong  bool
	Phrase  string
}

func newConfirmView(req confirm.Request, errMsg string) confirmView {
	return confirmView{
		page:    page{Title: "Confirm", Active: "history", Error: errMsg},
		Token:   req.Token,
		Message: req.Message,
		Strong:  req.Strong,
		Phrase:  confirm.StrongPhrase,
	}
}

type insightView struct {
	page
	Configured  bool
	Pending     bool
	HasResult   bool
	Text        string
	Provider    string
	GeneratedAt string
	Failed      bool
}

func newInsightView(st insight.State, configured bool, loc *time.Location) insightView {
	v := insightView{
		page:       page{Title: "Insights", Active: "insights", Refresh: st.Pending},
		Configured: configured,
		Pending:    st.Pending,
	}
	if st.Result != nil {
		v.HasResult = true
		v.Text = st.Result.Text
		v.Provider = st.Result.Provider
		v.GeneratedAt = st.Result.GeneratedAt.In(loc).Format("2 Jan 15:04")
		v.Failed = st.Result.Status == insight.StatusFailed
	}
	return v
}

type presetGroup struct {
	Kind   string
	Label  string
	Values []int
}

type settingsView struct {
	page
	Groups []presetGroup
}

func newSettingsView(s core.UserSettings, errMsg string) settingsView {
	return settingsView{
		page: page{Title: "Settings", Active: "settings", Error: errMsg},
		Groups: []presetGroup{
			{Kind: string(core.Intake), Label: core.Intake.Label(), Values: s.IntakePresets},
			{Kind: string(core.Output), Label: core.Output.Label(), Values: s.OutputPresets},
		},
	}
}

type messageView struct {
	page
	Message string
}
