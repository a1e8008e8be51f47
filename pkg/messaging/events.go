package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Workflow events
	EventWorkflowTransitioned = "certificate.workflow.transitioned"

	// OCR events
	EventDocumentProcessed = "ocr.document.processed"
)

// Exchange names
const (
	ExchangeRegistryEvents = "registry.events"
)

// Event is the base event structure
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// WorkflowTransitionedEvent is published after a workflow transition commits
type WorkflowTransitionedEvent struct {
	CertificateType string    `json:"certificate_type"`
	CertificateID   int64     `json:"certificate_id"`
	FromState       *string   `json:"from_state,omitempty"`
	ToState         string    `json:"to_state"`
	TransitionType  string    `json:"transition_type"`
	PerformedBy     int64     `json:"performed_by"`
	PerformedAt     time.Time `json:"performed_at"`
}

// DocumentProcessedEvent is published after an OCR extraction completes
type DocumentProcessedEvent struct {
	Fingerprint    string  `json:"fingerprint"`
	FileName       string  `json:"file_name"`
	FileSize       int64   `json:"file_size"`
	Cached         bool    `json:"cached"`
	ProcessingTime float64 `json:"processing_time"`
	PagesProcessed int     `json:"pages_processed"`
}
