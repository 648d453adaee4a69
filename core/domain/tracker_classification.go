package domain

// EventType represents the lifecycle signal detected in a message.
type EventType string

const (
	EventConfirmation      EventType = "confirmation"       // "thank you for applying"
	EventUnderReview       EventType = "under_review"       // application is being reviewed
	EventInterview         EventType = "interview"          // interview invite/schedule
	EventRejection         EventType = "rejection"          // not moving forward
	EventOffer             EventType = "offer"              // offer extended
	EventRecruiterOutreach EventType = "recruiter_outreach" // cold recruiter contact
	EventOtherJobRelated   EventType = "other_job_related"  // job related, no clear signal
)

// AutoCreateEligible reports whether an event of this type may spawn a new
// application without user confirmation.
func (t EventType) AutoCreateEligible() bool {
	switch t {
	case EventConfirmation, EventInterview, EventOffer, EventRejection, EventUnderReview:
		return true
	}
	return false
}

// ClassificationResult is the outcome of classifying one message.
// Created fresh per message, never mutated.
type ClassificationResult struct {
	IsJobRelated    bool      `json:"is_job_related"`
	EventType       EventType `json:"event_type,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"` // 0.0 - 1.0
	Explanation     string    `json:"explanation"`
}
