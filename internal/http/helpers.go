package http

import (
	"strings"
	"time"

	"h2olog/internal/core"
)

// sanitizeInput removes control characters except tab and newlines,
// and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// dayLabel names a day relative to today.
func dayLabel(d, today core.Date) string {
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDays(-1)):
		return "Yesterday"
	}
	if d.Year() == today.Year() {
		return d.Format("Mon 2 Jan")
	}
	return d.Format("Mon 2 Jan 2006")
}

// barHeight scales v against top for trend bars, keeping tiny non-zero
// values visible.
func barHeight(v, top float64) int {
	if top <= 0 || v <= 0 {
		return 0
	}
	h := int(v*100/top + 0.5)
	if h < 2 {
		h = 2
	}
	if h > 100 {
		h = 100
	}
	return h
}

func formatClock(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}
