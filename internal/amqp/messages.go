package amqp

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncRequestMessage asks a worker to run one sync cycle.
type SyncRequestMessage struct {
	RequestID string    `json:"request_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncRequestMessage creates a request stamped with a fresh id
func NewSyncRequestMessage(source string) *SyncRequestMessage {
	return &SyncRequestMessage{
		RequestID: strings.ReplaceAll(uuid.NewString(), "-", ""),
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SyncRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncRequestMessageFromJSON creates a message from JSON bytes
func SyncRequestMessageFromJSON(data []byte) (*SyncRequestMessage, error) {
	var msg SyncRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CycleCompletedMessage summarises a finished sync cycle.
type CycleCompletedMessage struct {
	RequestID  string         `json:"request_id,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Budgets    int            `json:"budgets"`
	Failed     int            `json:"failed"`
	Notified   int            `json:"notified"`
	Changes    map[string]int `json:"changes,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// ToJSON converts the message to JSON bytes
func (m *CycleCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CycleCompletedMessageFromJSON creates a message from JSON bytes
func CycleCompletedMessageFromJSON(data []byte) (*CycleCompletedMessage, error) {
	var msg CycleCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
