// Package tracker implements the user-facing application and triage
// operations on top of the store and the inference pipeline.
package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
	"tracker_server/core/port/in"
	"tracker_server/core/port/out"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/logger"
)

// Service implements in.TrackerService.
type Service struct {
	store    out.Store
	pipeline in.PipelineService
	log      *logger.Logger
}

// NewService creates the tracker service.
func NewService(store out.Store, pipeline in.PipelineService, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		pipeline: pipeline,
		log:      log.WithField("component", "tracker"),
	}
}

func (s *Service) GetApplication(ctx context.Context, userID, applicationID uuid.UUID) (*domain.Application, error) {
	return s.ownedApplication(ctx, s.store, userID, applicationID)
}

func (s *Service) ListApplications(ctx context.Context, userID uuid.UUID, filter *domain.ApplicationFilter) ([]*domain.Application, error) {
	return s.store.Applications().Find(ctx, userID, filter)
}

// OverrideStatus pins the status the user chose. Manual corrections are
// sticky: inference stops changing currentStatus until the override is
// cleared.
func (s *Service) OverrideStatus(ctx context.Context, userID, applicationID uuid.UUID, newStatus domain.ApplicationStatus) (*domain.Application, error) {
	var updated *domain.Application
	err := s.store.WithinTx(ctx, func(tx out.Store) error {
		app, err := s.ownedApplication(ctx, tx, userID, applicationID)
		if err != nil {
			return err
		}

		app.CurrentStatus = newStatus
		app.StatusConfidence = 1.0
		app.StatusSource = domain.StatusSourceUser
		app.UserOverride = true
		app.SuggestedStatus = nil
		app.SuggestedConfidence = 0
		app.UpdatedAt = time.Now().UTC()
		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}
		updated = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]any{
		"application_id": applicationID,
		"status":         newStatus,
	}).Info("status overridden by user")
	return updated, nil
}

// ClearOverride releases a pinned status and immediately re-infers from
// the event history.
func (s *Service) ClearOverride(ctx context.Context, userID, applicationID uuid.UUID) (*domain.Application, error) {
	err := s.store.WithinTx(ctx, func(tx out.Store) error {
		app, err := s.ownedApplication(ctx, tx, userID, applicationID)
		if err != nil {
			return err
		}
		if !app.UserOverride {
			return nil
		}
		app.UserOverride = false
		app.UpdatedAt = time.Now().UTC()
		return tx.Applications().Update(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.pipeline.ReinferApplication(ctx, userID, applicationID); err != nil {
		return nil, err
	}
	return s.GetApplication(ctx, userID, applicationID)
}

// AcceptSuggestion promotes the pending suggestion to the current status.
// Accepting counts as a user decision, so the result is recorded with
// user provenance but does not pin future inference.
func (s *Service) AcceptSuggestion(ctx context.Context, userID, applicationID uuid.UUID) (*domain.Application, error) {
	var updated *domain.Application
	err := s.store.WithinTx(ctx, func(tx out.Store) error {
		app, err := s.ownedApplication(ctx, tx, userID, applicationID)
		if err != nil {
			return err
		}
		if app.SuggestedStatus == nil {
			return apperr.Conflict("application has no pending suggestion")
		}

		app.CurrentStatus = *app.SuggestedStatus
		app.StatusConfidence = app.SuggestedConfidence
		app.StatusSource = domain.StatusSourceUser
		app.SuggestedStatus = nil
		app.SuggestedConfidence = 0
		app.UpdatedAt = time.Now().UTC()
		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}
		updated = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) ArchiveApplication(ctx context.Context, userID, applicationID uuid.UUID) error {
	return s.store.WithinTx(ctx, func(tx out.Store) error {
		app, err := s.ownedApplication(ctx, tx, userID, applicationID)
		if err != nil {
			return err
		}
		if app.Archived {
			return nil
		}
		app.Archived = true
		app.UpdatedAt = time.Now().UTC()
		return tx.Applications().Update(ctx, app)
	})
}

func (s *Service) ListApplicationEvents(ctx context.Context, userID, applicationID uuid.UUID) ([]*domain.Event, error) {
	if _, err := s.ownedApplication(ctx, s.store, userID, applicationID); err != nil {
		return nil, err
	}
	return s.store.Events().ListByApplication(ctx, applicationID)
}

func (s *Service) ListUnassignedEvents(ctx context.Context, userID uuid.UUID, reasons []domain.ReasonCode, limit int) ([]*domain.Event, error) {
	if len(reasons) == 0 {
		return s.store.Events().ListUnassigned(ctx, userID, limit)
	}
	return s.store.Events().ListUnassignedByReasons(ctx, userID, reasons, limit)
}

// AssignEvent manually files an unassigned (or mis-assigned) event onto
// an application and re-infers both ends of the move.
func (s *Service) AssignEvent(ctx context.Context, userID uuid.UUID, eventID int64, applicationID uuid.UUID) (*in.ReinferResult, error) {
	var prevAppID *uuid.UUID
	err := s.store.WithinTx(ctx, func(tx out.Store) error {
		event, err := tx.Events().GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event == nil || event.UserID != userID {
			return apperr.NotFound("event")
		}
		if _, err := s.ownedApplication(ctx, tx, userID, applicationID); err != nil {
			return err
		}

		prevAppID = event.ApplicationID
		return tx.Events().SetApplication(ctx, eventID, &applicationID)
	})
	if err != nil {
		return nil, err
	}

	if prevAppID != nil && *prevAppID != applicationID {
		if _, err := s.pipeline.ReinferApplication(ctx, userID, *prevAppID); err != nil {
			return nil, err
		}
	}
	return s.pipeline.ReinferApplication(ctx, userID, applicationID)
}

func (s *Service) ownedApplication(ctx context.Context, store out.Store, userID, applicationID uuid.UUID) (*domain.Application, error) {
	app, err := store.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil || app.UserID != userID {
		return nil, apperr.NotFound("application")
	}
	return app, nil
}
