package core

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"
	"time"
)

func TestParseEntryType(t *testing.T) {
	cases := []struct {
		in   string
		want EntryType
		ok   bool
	}{
		{"intake", Intake, true},
		{"OUTPUT", Output, true},
		{"water", Intake, true},
		{"urine", Output, true},
		{"coffee", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseEntryType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q expected ErrInvalidType, got %v", tc.in, err)
		}
	}
}

func TestDraftValidate(t *testing.T) {
	if err := (Draft{Type: Intake, Amount: 250}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []struct {
		d    Draft
		want error
	}{
		{Draft{Type: Intake, Amount: 0}, ErrInvalidAmount},
		{Draft{Type: Output, Amount: -10}, ErrInvalidAmount},
		{Draft{Type: Intake, Amount: math.NaN()}, ErrInvalidAmount},
		{Draft{Type: Intake, Amount: math.Inf(1)}, ErrInvalidAmount},
		{Draft{Type: "juice", Amount: 100}, ErrInvalidType},
	}
	for i, tc := range bads {
		if err := tc.d.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestLogEntryValidate(t *testing.T) {
	good := LogEntry{ID: "a", Timestamp: time.Now(), Type: Output, Amount: 300}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []LogEntry{
		{ID: "", Timestamp: time.Now(), Type: Output, Amount: 300},
		{ID: "a", Type: Output, Amount: 300},
		{ID: "a", Timestamp: time.Now(), Type: "x", Amount: 300},
		{ID: "a", Timestamp: time.Now(), Type: Output, Amount: 0},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLogEntryLegacyJSON(t *testing.T) {
	raw := `[{"id":"1","timestamp":"2025-03-01T08:00:00Z","type":"water","amount":250},
	         {"id":"2","timestamp":"2025-03-01T09:00:00Z","type":"urine","amount":180,"note":"am"}]`
	var entries []LogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entries[0].Type != Intake || entries[1].Type != Output {
		t.Fatalf("legacy tags not mapped: %+v", entries)
	}
	if entries[1].Note != "am" {
		t.Fatalf("note lost: %+v", entries[1])
	}

	out, err := json.Marshal(entries[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	_ = json.Unmarshal(out, &back)
	if back["type"] != "intake" {
		t.Fatalf("expected canonical tag on write, got %v", back["type"])
	}
	if _, ok := back["note"]; ok {
		t.Fatalf("empty note should be omitted: %s", out)
	}
}

func TestUserSettingsLegacyJSON(t *testing.T) {
	var s UserSettings
	if err := json.Unmarshal([]byte(`{"waterPresets":[500,100],"urinePresets":[200]}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !slices.Equal(s.IntakePresets, []int{500, 100}) || !slices.Equal(s.OutputPresets, []int{200}) {
		t.Fatalf("unexpected settings %+v", s)
	}

	s = UserSettings{}
	if err := json.Unmarshal([]byte(`{"intakePresets":[],"waterPresets":[1]}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.IntakePresets == nil || len(s.IntakePresets) != 0 {
		t.Fatalf("explicit empty list must win over legacy key, got %+v", s.IntakePresets)
	}
	if s.OutputPresets != nil {
		t.Fatalf("missing list should stay nil, got %+v", s.OutputPresets)
	}
}

func TestUserSettingsNormalize(t *testing.T) {
	s := UserSettings{IntakePresets: []int{500, 100, 500, -1, 0}, OutputPresets: nil}.Normalize()
	if !slices.Equal(s.IntakePresets, []int{100, 500}) {
		t.Fatalf("unexpected intake presets %v", s.IntakePresets)
	}
	if s.OutputPresets == nil || len(s.OutputPresets) != 0 {
		t.Fatalf("expected empty output presets, got %v", s.OutputPresets)
	}
}

func TestSettingsClone(t *testing.T) {
	a := DefaultSettings()
	b := a.Clone()
	b.IntakePresets[0] = 999
	if a.IntakePresets[0] == 999 {
		t.Fatalf("clone shares backing array")
	}
	if !slices.Equal(a.Presets(Output), []int{100, 200, 300, 400}) {
		t.Fatalf("unexpected output presets %v", a.Presets(Output))
	}
}
