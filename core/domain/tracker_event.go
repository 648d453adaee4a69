package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReasonCode explains why an event was left unassigned or a status change
// was blocked. These strings are stable; the triage surface depends on them.
type ReasonCode string

const (
	ReasonMissingIdentity     ReasonCode = "missing_identity"
	ReasonLowConfidence       ReasonCode = "low_confidence"
	ReasonNotConfidentCreate  ReasonCode = "not_confident_for_create"
	ReasonAmbiguousSender     ReasonCode = "ambiguous_sender"
	ReasonAmbiguousMatch      ReasonCode = "ambiguous_match"
	ReasonUserOverride        ReasonCode = "user_override"
	ReasonTerminalStatus      ReasonCode = "terminal"
	ReasonRegression          ReasonCode = "regression"
	ReasonSameStatus          ReasonCode = "same_status"
)

// ParseReasonCode validates a reason code string.
func ParseReasonCode(s string) (ReasonCode, bool) {
	switch code := ReasonCode(s); code {
	case ReasonMissingIdentity, ReasonLowConfidence, ReasonNotConfidentCreate,
		ReasonAmbiguousSender, ReasonAmbiguousMatch, ReasonUserOverride,
		ReasonTerminalStatus, ReasonRegression, ReasonSameStatus:
		return code, true
	}
	return "", false
}

// Event is one classified email mapped to a lifecycle signal. Immutable
// except for ApplicationID (set once on match, reassigned only by merge or
// repair) and the re-classification fields, which are overwritten in place
// when the message is reprocessed.
type Event struct {
	ID     int64     `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	MessageID string `json:"message_id"`

	DetectedType             EventType `json:"detected_type"`
	ConfidenceScore          float64   `json:"confidence_score"`
	ClassificationConfidence float64   `json:"classification_confidence"`

	Sender       string    `json:"sender"`
	Subject      string    `json:"subject"`
	Snippet      string    `json:"snippet"`
	InternalDate time.Time `json:"internal_date"`

	ApplicationID *uuid.UUID  `json:"application_id,omitempty"`
	ReasonCode    *ReasonCode `json:"reason_code,omitempty"`
	ReasonDetail  *string     `json:"reason_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MatchAction is the outcome of the matcher for one event.
type MatchAction string

const (
	MatchAttached   MatchAction = "attached"
	MatchCreated    MatchAction = "created"
	MatchUnassigned MatchAction = "unassigned"
)

// MatchResult describes what the matcher decided for an event.
type MatchResult struct {
	Action        MatchAction `json:"action"`
	ApplicationID *uuid.UUID  `json:"application_id,omitempty"`
	Reason        *ReasonCode `json:"reason,omitempty"`
	Detail        string      `json:"detail,omitempty"`
}
