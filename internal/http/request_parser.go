// Package http serves the web UI and the JSON API.
//
// This file holds the parsing of form and query values into domain
// values, so handlers only deal with validated input.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"h2olog/internal/core"
)

const (
	// timestamp layout of <input type="datetime-local">
	formTimeLayout = "2006-01-02T15:04"

	maxNoteLength = 500
	maxSeriesDays = 90
	maxBodyBytes  = 64 << 10
)

// ParseEntryDraft builds a draft from entry form values. A clicked preset
// button wins over the typed amount. An empty time field means now; a
// time is read in loc.
func ParseEntryDraft(values url.Values, loc *time.Location) (core.Draft, error) {
	t, err := core.ParseEntryType(sanitizeInput(values.Get("type")))
	if err != nil {
		return core.Draft{}, err
	}

	raw := sanitizeInput(values.Get("preset"))
	if raw == "" {
		raw = sanitizeInput(values.Get("amount"))
	}
	amount, err := core.ParseVolume(raw)
	if err != nil {
		return core.Draft{}, err
	}

	d := core.Draft{Type: t, Amount: amount}
	if raw := sanitizeInput(values.Get("time")); raw != "" {
		ts, err := parseFormTime(raw, loc)
		if err != nil {
			return core.Draft{}, err
		}
		d.Timestamp = ts
	}

	note := sanitizeInput(values.Get("note"))
	if len([]rune(note)) > maxNoteLength {
		return core.Draft{}, fmt.Errorf("note is longer than %d characters", maxNoteLength)
	}
	d.Note = note
	return d, nil
}

func parseFormTime(raw string, loc *time.Location) (time.Time, error) {
	if ts, err := time.ParseInLocation(formTimeLayout, raw, loc); err == nil {
		return ts, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

// ParsePresetForm reads the kind and value of a preset change.
func ParsePresetForm(values url.Values) (core.EntryType, int, error) {
	kind, err := core.ParseEntryType(sanitizeInput(values.Get("kind")))
	if err != nil {
		return "", 0, err
	}
	v, err := core.ParsePreset(sanitizeInput(values.Get("value")))
	if err != nil {
		return "", 0, err
	}
	return kind, v, nil
}

// ParseDateQuery reads ?date=YYYY-MM-DD, defaulting to today.
func ParseDateQuery(query url.Values, loc *time.Location, today core.Date) (core.Date, error) {
	raw := strings.TrimSpace(query.Get("date"))
	if raw == "" {
		return today, nil
	}
	return core.ParseDate(raw, loc)
}

// ParseDaysQuery reads ?days=N in [1, 90], defaulting to def.
func ParseDaysQuery(query url.Values, def int) (int, error) {
	raw := strings.TrimSpace(query.Get("days"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxSeriesDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxSeriesDays)
	}
	return n, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads at most 64 KiB of the body once.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Values flattens the parsed body so form parsers can consume JSON too.
func (p *RequestBodyParser) Values() url.Values {
	if p.jsonData == nil {
		if p.formData == nil {
			return url.Values{}
		}
		return p.formData
	}
	v := url.Values{}
	for k := range p.jsonData {
		v.Set(k, p.Get(k))
	}
	return v
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
