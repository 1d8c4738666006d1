package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
)

const (
	Intake EntryType = "intake"
	Output EntryType = "output"
)

// Legacy tags written by the browser version of the log.
const (
	legacyIntake = "water"
	legacyOutput = "urine"
)

type (
	// EntryType distinguishes fluid taken in from fluid passed out.
	EntryType string

	LogEntry struct {
		ID        string    `json:"id"`
		Timestamp time.Time `json:"timestamp"`
		Type      EntryType `json:"type"`
		Amount    float64   `json:"amount"` // millilitres
		Note      string    `json:"note,omitempty"`
	}

	// Draft is an entry before the store assigns it an identity.
	Draft struct {
		Type      EntryType
		Amount    float64
		Timestamp time.Time
		Note      string
	}

	UserSettings struct {
		IntakePresets []int `json:"intakePresets"`
		OutputPresets []int `json:"outputPresets"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid entry type")
	ErrInvalidPreset   = errors.New("invalid preset")
	ErrDuplicatePreset = errors.New("preset already exists")
	ErrInvalidDate     = errors.New("invalid date")
)

// ParseEntryType accepts the canonical names and the legacy ones.
func ParseEntryType(s string) (EntryType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Intake), legacyIntake:
		return Intake, nil
	case string(Output), legacyOutput:
		return Output, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t EntryType) Validate() error {
	if t != Intake && t != Output {
		return ErrInvalidType
	}
	return nil
}

// Label returns a human readable name for the entry type.
func (t EntryType) Label() string {
	switch t {
	case Intake:
		return "Intake"
	case Output:
		return "Output"
	}
	return string(t)
}

func (t *EntryType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseEntryType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ValidateAmount reports whether v is a usable volume in millilitres.
func ValidateAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e LogEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("entry id cannot be empty")
	}
	if e.Timestamp.IsZero() {
		return errors.New("entry timestamp cannot be zero")
	}
	if err := e.Type.Validate(); err != nil {
		return err
	}
	return ValidateAmount(e.Amount)
}

func (d Draft) Validate() error {
	if err := d.Type.Validate(); err != nil {
		return err
	}
	return ValidateAmount(d.Amount)
}

// DefaultSettings returns the preset lists offered before the user customises them.
func DefaultSettings() UserSettings {
	return UserSettings{
		IntakePresets: []int{100, 250, 500, 800},
		OutputPresets: []int{100, 200, 300, 400},
	}
}

// Presets returns the list for the given entry type.
func (s UserSettings) Presets(t EntryType) []int {
	if t == Output {
		return s.OutputPresets
	}
	return s.IntakePresets
}

// Clone returns a copy that shares no backing arrays with s.
func (s UserSettings) Clone() UserSettings {
	return UserSettings{
		IntakePresets: slices.Clone(s.IntakePresets),
		OutputPresets: slices.Clone(s.OutputPresets),
	}
}

// Normalize drops non-positive and repeated values and sorts each list.
func (s UserSettings) Normalize() UserSettings {
	return UserSettings{
		IntakePresets: normalizePresets(s.IntakePresets),
		OutputPresets: normalizePresets(s.OutputPresets),
	}
}

func normalizePresets(in []int) []int {
	out := make([]int, 0, len(in))
	for _, v := range in {
		if v > 0 && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

func (s *UserSettings) UnmarshalJSON(b []byte) error {
	var raw struct {
		IntakePresets []int `json:"intakePresets"`
		OutputPresets []int `json:"outputPresets"`
		WaterPresets  []int `json:"waterPresets"`
		UrinePresets  []int `json:"urinePresets"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.IntakePresets = raw.IntakePresets
	if s.IntakePresets == nil {
		s.IntakePresets = raw.WaterPresets
	}
	s.OutputPresets = raw.OutputPresets
	if s.OutputPresets == nil {
		s.OutputPresets = raw.UrinePresets
	}
	return nil
}
