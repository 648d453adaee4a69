package in

import (
	"context"

	"tracker_server/core/domain"
	"tracker_server/core/service/status"

	"github.com/google/uuid"
)

// ProcessResult is the full outcome of one pipeline invocation for one
// inbound message.
type ProcessResult struct {
	Event          *domain.Event                `json:"event,omitempty"`
	Classification *domain.ClassificationResult `json:"classification"`
	Identity       *domain.Identity             `json:"identity,omitempty"`
	Match          *domain.MatchResult          `json:"match,omitempty"`
	Status         *status.Outcome              `json:"status,omitempty"`
}

// ReinferResult reports a standalone status re-inference.
type ReinferResult struct {
	Inference *status.Inference  `json:"inference,omitempty"`
	Applied   bool               `json:"applied"`
	Suggested bool               `json:"suggested"`
	Blocked   bool               `json:"blocked"`
	Reason    *domain.ReasonCode `json:"reason,omitempty"`
}

type PipelineService interface {
	// ProcessMessage runs classify, extract, match and infer for one
	// message. Safe to call again for the same message id; reprocessing
	// recomputes the attachment and status from scratch.
	ProcessMessage(ctx context.Context, msg *domain.InboundMessage) (*ProcessResult, error)

	// ReinferApplication recomputes the status of one application from its
	// full event history, for use after merges or manual event edits.
	ReinferApplication(ctx context.Context, userID, applicationID uuid.UUID) (*ReinferResult, error)
}

type TrackerService interface {
	// Applications
	GetApplication(ctx context.Context, userID, applicationID uuid.UUID) (*domain.Application, error)
	ListApplications(ctx context.Context, userID uuid.UUID, filter *domain.ApplicationFilter) ([]*domain.Application, error)
	OverrideStatus(ctx context.Context, userID, applicationID uuid.UUID, newStatus domain.ApplicationStatus) (*domain.Application, error)
	ClearOverride(ctx context.Context, userID, applicationID uuid.UUID) (*domain.Application, error)
	AcceptSuggestion(ctx context.Context, userID, applicationID uuid.UUID) (*domain.Application, error)
	ArchiveApplication(ctx context.Context, userID, applicationID uuid.UUID) error

	// Events and triage
	ListApplicationEvents(ctx context.Context, userID, applicationID uuid.UUID) ([]*domain.Event, error)
	ListUnassignedEvents(ctx context.Context, userID uuid.UUID, reasons []domain.ReasonCode, limit int) ([]*domain.Event, error)
	AssignEvent(ctx context.Context, userID uuid.UUID, eventID int64, applicationID uuid.UUID) (*ReinferResult, error)
}
