package core

import (
	"math"
	"slices"
	"time"
)

// DailySummary aggregates the entries of a single day. It is always
// derived from the entry list and never stored.
type DailySummary struct {
	Date        Date
	TotalIntake float64
	TotalOutput float64
	CountIntake int
	CountOutput int
}

// SeriesPoint is one day of a trailing trend.
type SeriesPoint struct {
	Date        Date
	IntakeTotal float64
	OutputTotal float64
}

// DayGroup holds the entries that fall on one day, in list order.
type DayGroup struct {
	Date    Date
	Entries []LogEntry
}

// RangeSummary totals entries over an inclusive span of days.
type RangeSummary struct {
	From        Date
	To          Date
	Days        int
	TotalIntake float64
	TotalOutput float64
	CountIntake int
	CountOutput int
}

// Balance is intake minus output. Negative values are meaningful.
func (s DailySummary) Balance() float64 {
	return s.TotalIntake - s.TotalOutput
}

// OutputRatio is output/intake clamped to [0, 1]; 0 when nothing was drunk.
func (s DailySummary) OutputRatio() float64 {
	if s.TotalIntake <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, s.TotalOutput/s.TotalIntake))
}

// Percent is OutputRatio scaled for progress bars.
func (s DailySummary) Percent() int {
	return int(math.Round(s.OutputRatio() * 100))
}

func (s *DailySummary) add(e LogEntry) {
	switch e.Type {
	case Intake:
		s.TotalIntake += e.Amount
		s.CountIntake++
	case Output:
		s.TotalOutput += e.Amount
		s.CountOutput++
	}
}

// SummarizeDay sums intake and output for the entries that fall on date.
func SummarizeDay(entries []LogEntry, date Date) DailySummary {
	s := DailySummary{Date: date}
	for _, e := range entries {
		if date.Contains(e.Timestamp) {
			s.add(e)
		}
	}
	return s
}

// SummarizeRange sums entries between from and to, both days included.
func SummarizeRange(entries []LogEntry, from, to Date) RangeSummary {
	if to.Before(from.Time) {
		from, to = to, from
	}
	r := RangeSummary{From: from, To: to}
	for d := from; !d.After(to.Time); d = d.AddDays(1) {
		r.Days++
	}
	start, end := from.Start(), to.End()
	for _, e := range entries {
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		switch e.Type {
		case Intake:
			r.TotalIntake += e.Amount
			r.CountIntake++
		case Output:
			r.TotalOutput += e.Amount
			r.CountOutput++
		}
	}
	return r
}

// AverageIntake is the mean daily intake over the range.
func (r RangeSummary) AverageIntake() float64 {
	if r.Days == 0 {
		return 0
	}
	return r.TotalIntake / float64(r.Days)
}

// AverageOutput is the mean daily output over the range.
func (r RangeSummary) AverageOutput() float64 {
	if r.Days == 0 {
		return 0
	}
	return r.TotalOutput / float64(r.Days)
}

// TrailingSeries returns days points, oldest first, ending with the day
// that contains ref. Days without entries are zero.
func TrailingSeries(entries []LogEntry, days int, ref time.Time, loc *time.Location) []SeriesPoint {
	if days <= 0 {
		return []SeriesPoint{}
	}
	last := DateOf(ref, loc)
	first := last.AddDays(-(days - 1))

	points := make([]SeriesPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		d := first.AddDays(i)
		points[i].Date = d
		index[d.String()] = i
	}
	for _, e := range entries {
		i, ok := index[DateOf(e.Timestamp, loc).String()]
		if !ok {
			continue
		}
		switch e.Type {
		case Intake:
			points[i].IntakeTotal += e.Amount
		case Output:
			points[i].OutputTotal += e.Amount
		}
	}
	return points
}

// MaxTotal is the largest single value in the series, used to scale charts.
func MaxTotal(points []SeriesPoint) float64 {
	var m float64
	for _, p := range points {
		m = math.Max(m, math.Max(p.IntakeTotal, p.OutputTotal))
	}
	return m
}

// GroupByDay buckets entries by local day. Groups are ordered newest day
// first and keep the incoming order inside each group.
func GroupByDay(entries []LogEntry, loc *time.Location) []DayGroup {
	var groups []DayGroup
	index := make(map[string]int)
	for _, e := range entries {
		d := DateOf(e.Timestamp, loc)
		key := d.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: d})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	// Backdated entries can make list order differ from day order.
	slices.SortStableFunc(groups, func(a, b DayGroup) int {
		return b.Date.Compare(a.Date.Time)
	})
	return groups
}

// Hint is the short advice shown beside today's totals.
type Hint struct {
	Low     bool
	Message string
}

// IntakeHint compares today's intake against the low threshold.
func IntakeHint(s DailySummary, lowThreshold float64) Hint {
	if s.TotalIntake < lowThreshold {
		return Hint{Low: true, Message: "Intake is low today. Try a glass of water now."}
	}
	return Hint{Message: "Good hydration today. Keep it up."}
}
