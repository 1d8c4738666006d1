package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"h2olog/internal/core"
)

// Message kinds. Store changes reuse the store's change names.
const (
	KindEntryAdded      = "entry.added"
	KindEntryDeleted    = "entry.deleted"
	KindEntriesCleared  = "entries.cleared"
	KindSettingsUpdated = "settings.updated"
	KindDailyDigest     = "digest.daily"
)

// DigestPayload is the summary of one finished day.
type DigestPayload struct {
	Date        string  `json:"date"`
	TotalIntake float64 `json:"total_intake_ml"`
	TotalOutput float64 `json:"total_output_ml"`
	CountIntake int     `json:"count_intake"`
	CountOutput int     `json:"count_output"`
	Balance     float64 `json:"balance_ml"`
}

// ChangeMessage is published after every persisted mutation and once a
// day for the digest.
type ChangeMessage struct {
	Kind      string             `json:"kind"`
	EntryID   string             `json:"entry_id,omitempty"`
	Entry     *core.LogEntry     `json:"entry,omitempty"`
	Settings  *core.UserSettings `json:"settings,omitempty"`
	Digest    *DigestPayload     `json:"digest,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// NewChangeMessage creates a message of the given kind stamped with now.
func NewChangeMessage(kind string) *ChangeMessage {
	return &ChangeMessage{Kind: kind, Timestamp: time.Now()}
}

// NewDigestMessage wraps a day summary.
func NewDigestMessage(s core.DailySummary) *ChangeMessage {
	msg := NewChangeMessage(KindDailyDigest)
	msg.Digest = &DigestPayload{
		Date:        s.Date.String(),
		TotalIntake: s.TotalIntake,
		TotalOutput: s.TotalOutput,
		CountIntake: s.CountIntake,
		CountOutput: s.CountOutput,
		Balance:     s.Balance(),
	}
	return msg
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes a message and checks it carries a kind.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Kind == "" {
		return nil, errors.New("message has no kind")
	}
	return &msg, nil
}
