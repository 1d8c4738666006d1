// Package printers renders log data for the terminal.
package printers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"h2olog/internal/amqp"
	"h2olog/internal/core"
	"h2olog/internal/insight"
)

const barWidth = 30

type PrettyPrint struct {
	Out      io.Writer
	Location *time.Location
	ShowID   bool
}

// New writes to color.Output when out is nil.
func New(out io.Writer, loc *time.Location) *PrettyPrint {
	if out == nil {
		out = color.Output
	}
	if loc == nil {
		loc = time.Local
	}
	return &PrettyPrint{Out: out, Location: loc}
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.Out)
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)
	_, _ = t.Fprintln(pp.Out, title)
}

func (pp *PrettyPrint) TitleWithCount(title string, count int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	_, _ = t.Fprint(pp.Out, title)
	_, _ = c.Fprintf(pp.Out, " - %d", count)
	switch count {
	case 1:
		_, _ = c.Fprintln(pp.Out, " entry")
	default:
		_, _ = c.Fprintln(pp.Out, " entries")
	}
}

func (pp *PrettyPrint) Message(format string, args ...any) {
	_, _ = fmt.Fprintf(pp.Out, format+"\n", args...)
}

func (pp *PrettyPrint) Success(format string, args ...any) {
	_, _ = color.New(color.FgGreen).Fprintf(pp.Out, format+"\n", args...)
}

func (pp *PrettyPrint) Warn(format string, args ...any) {
	_, _ = color.New(color.FgYellow).Fprintf(pp.Out, format+"\n", args...)
}

// JSON writes v indented.
func (pp *PrettyPrint) JSON(v any) error {
	enc := json.NewEncoder(pp.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Summary prints one day's totals. A non-nil hint is printed below.
func (pp *PrettyPrint) Summary(s core.DailySummary, hint *core.Hint) {
	bold := color.New(color.Bold)
	in := color.New(color.FgCyan)
	out := color.New(color.FgYellow)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Intake"), in.Sprintf("%s ml", core.FormatVolume(s.TotalIntake)), fmt.Sprintf("(%d)", s.CountIntake))
	tbl.AddRow(bold.Sprint("Output"), out.Sprintf("%s ml", core.FormatVolume(s.TotalOutput)), fmt.Sprintf("(%d)", s.CountOutput))
	tbl.AddRow(bold.Sprint("Balance"), balance(s.Balance()), fmt.Sprintf("%d%% out", s.Percent()))
	tbl.RightAlign(1)
	_, _ = fmt.Fprintln(pp.Out, tbl)

	if hint != nil {
		c := color.New(color.FgGreen)
		if hint.Low {
			c = color.New(color.FgRed)
		}
		_, _ = c.Fprintln(pp.Out, hint.Message)
	}
}

func balance(v float64) string {
	s := core.FormatVolume(v) + " ml"
	if v < 0 {
		return color.New(color.FgRed).Sprint(s)
	}
	return color.New(color.FgCyan).Sprint(s)
}

// Entries prints entries in the order given.
func (pp *PrettyPrint) Entries(entries []core.LogEntry) {
	if len(entries) == 0 {
		f := color.New(color.Faint, color.Italic)
		_, _ = f.Fprint(pp.Out, " none\n\n")
		return
	}

	faint := color.New(color.FgHiYellow, color.Italic, color.Faint)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	for _, e := range entries {
		row := []any{}
		if pp.ShowID {
			row = append(row, faint.Sprint(e.ID))
		}
		row = append(row,
			e.Timestamp.In(pp.Location).Format("15:04"),
			kind(e.Type),
			core.FormatVolume(e.Amount)+" ml",
			e.Note,
		)
		tbl.AddRow(row...)
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
	pp.NewLine()
}

func kind(t core.EntryType) string {
	if t == core.Output {
		return color.New(color.FgYellow).Sprint(t.Label())
	}
	return color.New(color.FgCyan).Sprint(t.Label())
}

// History prints day groups newest first with a total line per day.
func (pp *PrettyPrint) History(groups []core.DayGroup, today core.Date) {
	if len(groups) == 0 {
		pp.Message("No entries yet.")
		return
	}
	faint := color.New(color.Faint)
	for _, g := range groups {
		pp.TitleWithCount(dayTitle(g.Date, today), len(g.Entries))
		s := core.SummarizeDay(g.Entries, g.Date)
		_, _ = faint.Fprintf(pp.Out, "in %s ml, out %s ml, balance %s ml\n",
			core.FormatVolume(s.TotalIntake), core.FormatVolume(s.TotalOutput), core.FormatVolume(s.Balance()))
		pp.Entries(g.Entries)
	}
}

func dayTitle(d, today core.Date) string {
	switch {
	case d.Equal(today):
		return "Today " + d.String()
	case d.Equal(today.AddDays(-1)):
		return "Yesterday " + d.String()
	}
	return d.Format("Monday") + " " + d.String()
}

// Series prints horizontal intake and output bars scaled to the
// largest day.
func (pp *PrettyPrint) Series(points []core.SeriesPoint) {
	top := core.MaxTotal(points)
	in := color.New(color.FgCyan)
	out := color.New(color.FgYellow)

	tbl := uitable.New()
	tbl.Separator = " "
	for _, p := range points {
		tbl.AddRow(p.Date.Format("Mon 02 Jan"), in.Sprint(bar(p.IntakeTotal, top)), core.FormatVolume(p.IntakeTotal))
		tbl.AddRow("", out.Sprint(bar(p.OutputTotal, top)), core.FormatVolume(p.OutputTotal))
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func bar(v, top float64) string {
	if top <= 0 || v <= 0 {
		return "·"
	}
	n := int(v*barWidth/top + 0.5)
	if n < 1 {
		n = 1
	}
	return strings.Repeat("█", n)
}

// Range prints the totals and daily averages of a span.
func (pp *PrettyPrint) Range(r core.RangeSummary) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("", "total", "per day")
	tbl.AddRow("Intake", core.FormatVolume(r.TotalIntake)+" ml", core.FormatVolume(round(r.AverageIntake()))+" ml")
	tbl.AddRow("Output", core.FormatVolume(r.TotalOutput)+" ml", core.FormatVolume(round(r.AverageOutput()))+" ml")
	tbl.RightAlign(1)
	tbl.RightAlign(2)
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func round(v float64) float64 {
	return float64(int64(v + 0.5))
}

func (pp *PrettyPrint) Presets(s core.UserSettings) {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Intake"), joinPresets(s.IntakePresets))
	tbl.AddRow(bold.Sprint("Output"), joinPresets(s.OutputPresets))
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func joinPresets(values []int) string {
	if len(values) == 0 {
		return color.New(color.Faint, color.Italic).Sprint("none")
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = core.FormatVolume(float64(v))
	}
	return strings.Join(parts, ", ") + " ml"
}

func (pp *PrettyPrint) Insight(r insight.Result) {
	c := color.New()
	switch r.Status {
	case insight.StatusFailed:
		c = color.New(color.FgRed)
	case insight.StatusNotConfigured, insight.StatusNoData:
		c = color.New(color.Faint)
	}
	_, _ = c.Fprintln(pp.Out, r.Text)
	if r.Provider != "" {
		_, _ = color.New(color.Faint).Fprintf(pp.Out, "%s, %s\n", r.Provider, r.GeneratedAt.In(pp.Location).Format("2 Jan 15:04"))
	}
}

// Change prints one broker message on a single line.
func (pp *PrettyPrint) Change(m *amqp.ChangeMessage) {
	ts := color.New(color.Faint).Sprint(m.Timestamp.In(pp.Location).Format("15:04:05"))
	k := color.New(color.Bold).Sprint(m.Kind)
	var detail string
	switch {
	case m.Entry != nil:
		detail = fmt.Sprintf("%s %s ml", m.Entry.Type.Label(), core.FormatVolume(m.Entry.Amount))
	case m.Digest != nil:
		detail = fmt.Sprintf("%s in %s ml, out %s ml", m.Digest.Date,
			core.FormatVolume(m.Digest.TotalIntake), core.FormatVolume(m.Digest.TotalOutput))
	case m.Settings != nil:
		detail = "intake " + joinPresets(m.Settings.IntakePresets) + ", output " + joinPresets(m.Settings.OutputPresets)
	case m.EntryID != "":
		detail = m.EntryID
	}
	_, _ = fmt.Fprintf(pp.Out, "%s %s %s\n", ts, k, detail)
}
