package domain

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus represents the lifecycle state of a tracked application.
type ApplicationStatus string

const (
	StatusUnknown            ApplicationStatus = "UNKNOWN"
	StatusApplied            ApplicationStatus = "APPLIED"
	StatusUnderReview        ApplicationStatus = "UNDER_REVIEW"
	StatusInterviewRequested ApplicationStatus = "INTERVIEW_REQUESTED"
	StatusInterviewCompleted ApplicationStatus = "INTERVIEW_COMPLETED"
	StatusOfferReceived      ApplicationStatus = "OFFER_RECEIVED"
	StatusRejected           ApplicationStatus = "REJECTED"
	StatusGhosted            ApplicationStatus = "GHOSTED"
)

// StatusPriority returns the rank used to order transitions. Higher wins;
// automatic inference never moves to a lower rank.
func (s ApplicationStatus) Priority() int {
	switch s {
	case StatusRejected, StatusOfferReceived:
		return 5
	case StatusInterviewCompleted:
		return 4
	case StatusInterviewRequested:
		return 3
	case StatusUnderReview:
		return 2
	case StatusApplied:
		return 1
	default: // UNKNOWN, GHOSTED
		return 0
	}
}

// IsTerminal reports whether the status resists further automatic change.
// The single allowed reversal is OFFER_RECEIVED -> REJECTED (offer rescinded).
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusOfferReceived
}

// ParseApplicationStatus validates a status string from an external caller.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch status := ApplicationStatus(s); status {
	case StatusUnknown, StatusApplied, StatusUnderReview, StatusInterviewRequested,
		StatusInterviewCompleted, StatusOfferReceived, StatusRejected, StatusGhosted:
		return status, true
	}
	return "", false
}

// StatusSource records who set the current status.
type StatusSource string

const (
	StatusSourceUser     StatusSource = "user"
	StatusSourceInferred StatusSource = "inferred"
)

// Application is the tracked record of one candidate-employer-role
// relationship. Created by the matcher on the first qualifying event (or by
// direct user action outside this module); status fields are mutated by the
// inference engine and by user overrides.
type Application struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	CompanyName string `json:"company_name"`
	JobTitle    string `json:"job_title"`
	Source      string `json:"source"` // sender domain that created it

	CurrentStatus    ApplicationStatus `json:"current_status"`
	StatusConfidence float64           `json:"status_confidence"`
	StatusSource     StatusSource      `json:"status_source"`

	SuggestedStatus     *ApplicationStatus `json:"suggested_status,omitempty"`
	SuggestedConfidence float64            `json:"suggested_confidence"`

	UserOverride bool `json:"user_override"`
	Archived     bool `json:"archived"`

	AppliedAt      *time.Time `json:"applied_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ApplicationFilter narrows application lookups in the store.
type ApplicationFilter struct {
	CompanyName *string
	JobTitle    *string
	Source      *string
	Archived    *bool
}
