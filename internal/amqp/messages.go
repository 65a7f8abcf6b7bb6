package amqp

import (
	"encoding/json"
	"time"
)

// RatesImportedMessage announces an import run that changed stored rates.
// Consumers recompute what they derive from the listed months.
type RatesImportedMessage struct {
	RunID     string    `json:"run_id"`
	Months    []string  `json:"months"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRatesImportedMessage(runID string, months []string, rows int) *RatesImportedMessage {
	return &RatesImportedMessage{
		RunID:     runID,
		Months:    months,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RatesImportedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RatesImportedMessageFromJSON decodes a message body.
func RatesImportedMessageFromJSON(data []byte) (*RatesImportedMessage, error) {
	var msg RatesImportedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
