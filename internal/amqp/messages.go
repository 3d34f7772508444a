package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ReloadMessage asks every dashboard process to drop its cached table.
// Version carries the storage import version when the reload follows an import.
type ReloadMessage struct {
	Reason    string    `json:"reason"`
	Source    string    `json:"source,omitempty"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReloadMessage creates a reload request stamped with the current time
func NewReloadMessage(reason, source, version string) *ReloadMessage {
	return &ReloadMessage{
		Reason:    reason,
		Source:    source,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReloadMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReloadMessageFromJSON decodes a message. A reload without a reason is rejected.
func ReloadMessageFromJSON(data []byte) (*ReloadMessage, error) {
	var msg ReloadMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Reason == "" {
		return nil, errors.New("reload message without reason")
	}
	return &msg, nil
}
