package amqp

import (
	"encoding/json"
	"time"

	"financas/internal/core"
)

// MonthGeneratedMessage announces that the rollover engine produced a
// new month. Consumers re-read the month from the store, so the
// payload carries only the keys.
type MonthGeneratedMessage struct {
	Source    core.MonthKey `json:"source"`
	Target    core.MonthKey `json:"target"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewMonthGeneratedMessage builds the event for one generation.
func NewMonthGeneratedMessage(source, target core.MonthKey) *MonthGeneratedMessage {
	return &MonthGeneratedMessage{
		Source:    source,
		Target:    target,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *MonthGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MonthGeneratedMessageFromJSON creates a message from JSON bytes
func MonthGeneratedMessageFromJSON(data []byte) (*MonthGeneratedMessage, error) {
	var msg MonthGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
