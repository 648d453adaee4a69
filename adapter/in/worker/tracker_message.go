package worker

import (
	"time"

	"github.com/google/uuid"
)

// Priority levels for job scheduling.
type Priority int

const (
	PriorityLow      Priority = 0
	PriorityNormal   Priority = 1
	PriorityHigh     Priority = 2
	PriorityCritical Priority = 3
)

// JobType represents the type of a job.
type JobType = string

const (
	// Pipeline jobs
	JobMessageProcess JobType = "message.process"

	// Maintenance jobs
	JobApplicationReinfer = "application.reinfer"
)

type Message struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Priority  Priority       `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
	Retries   int            `json:"retries"`
}

func NewMessage(jobType string, payload map[string]any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		Priority:  PriorityNormal,
		CreatedAt: time.Now(),
		Retries:   0,
	}
}

// NewPriorityMessage creates a message with specific priority.
func NewPriorityMessage(jobType string, payload map[string]any, priority Priority) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   payload,
		Priority:  priority,
		CreatedAt: time.Now(),
		Retries:   0,
	}
}

// IsPriority checks if message should go to priority queue.
func (m *Message) IsPriority() bool {
	return m.Priority >= PriorityHigh
}

// MessageProcessPayload carries one inbound email through the pipeline.
// UserID is a string so malformed producer input fails in the dispatcher,
// not during JSON decoding.
type MessageProcessPayload struct {
	MessageID  string    `json:"message_id"`
	UserID     string    `json:"user_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	BodyText   string    `json:"body_text,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// ReinferPayload asks for a full status recomputation of one application.
type ReinferPayload struct {
	UserID        string `json:"user_id"`
	ApplicationID string `json:"application_id"`
}
