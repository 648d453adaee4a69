package domain

import (
	"time"

	"github.com/google/uuid"
)

// InboundMessage is a raw email handed over by the mail collector.
// The pipeline treats it as read-only input; ordering of arrival is not
// guaranteed and must not be assumed.
type InboundMessage struct {
	ID         string    `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	BodyText   string    `json:"body_text,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
