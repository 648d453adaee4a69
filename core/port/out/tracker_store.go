// Package out defines outbound ports (driven ports) for the application.
// These interfaces represent dependencies that the pipeline needs.
package out

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
)

// =============================================================================
// Application Store (PostgreSQL - applications + events)
// =============================================================================

// ApplicationRepository defines the outbound port for application persistence.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	Find(ctx context.Context, userID uuid.UUID, filter *domain.ApplicationFilter) ([]*domain.Application, error)
	// ListStale returns unarchived applications in waiting statuses whose
	// last activity predates cutoff, across all users. Used by the ghost
	// sweeper.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Application, error)
	Create(ctx context.Context, app *domain.Application) error
	Update(ctx context.Context, app *domain.Application) error
}

// EventRepository defines the outbound port for event persistence.
type EventRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Event, error)
	GetByMessageID(ctx context.Context, userID uuid.UUID, messageID string) (*domain.Event, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.Event, error)
	ListUnassigned(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Event, error)
	ListUnassignedByReasons(ctx context.Context, userID uuid.UUID, reasons []domain.ReasonCode, limit int) ([]*domain.Event, error)
	Insert(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	SetApplication(ctx context.Context, eventID int64, applicationID *uuid.UUID) error
}

// Store bundles the repositories behind one transactional boundary. All
// writes of one pipeline invocation run inside a single transaction, so
// "event inserted but status not recomputed" is never observable.
type Store interface {
	Applications() ApplicationRepository
	Events() EventRepository

	// WithinTx runs fn against a transaction-scoped Store. A nil error
	// commits; any error rolls back and is returned unchanged.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
