// Package memstore provides an in-memory Store implementation. It backs
// unit tests and local development without a database; semantics mirror the
// PostgreSQL adapter, including filter matching and snapshot isolation being
// absent (single-writer discipline is enforced by the pipeline, not here).
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
	"tracker_server/core/port/out"
)

// Store is an in-memory out.Store.
type Store struct {
	mu     sync.Mutex
	nextID int64

	apps   map[uuid.UUID]*domain.Application
	events map[int64]*domain.Event
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID: 1,
		apps:   make(map[uuid.UUID]*domain.Application),
		events: make(map[int64]*domain.Event),
	}
}

// Applications returns the application repository view.
func (s *Store) Applications() out.ApplicationRepository { return (*appRepo)(s) }

// Events returns the event repository view.
func (s *Store) Events() out.EventRepository { return (*eventRepo)(s) }

// WithinTx runs fn against the same store. The in-memory store has no real
// transactions; callers rely on the pipeline's per-application serialization.
func (s *Store) WithinTx(ctx context.Context, fn func(tx out.Store) error) error {
	return fn(s)
}

// =============================================================================
// Applications
// =============================================================================

type appRepo Store

func (r *appRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, nil
	}
	cp := *app
	return &cp, nil
}

func (r *appRepo) Find(ctx context.Context, userID uuid.UUID, filter *domain.ApplicationFilter) ([]*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []*domain.Application
	for _, app := range r.apps {
		if app.UserID != userID {
			continue
		}
		if filter != nil {
			if filter.Archived != nil && app.Archived != *filter.Archived {
				continue
			}
			if filter.CompanyName != nil && !strings.EqualFold(app.CompanyName, *filter.CompanyName) {
				continue
			}
			if filter.JobTitle != nil && !strings.EqualFold(app.JobTitle, *filter.JobTitle) {
				continue
			}
			if filter.Source != nil && !strings.EqualFold(app.Source, *filter.Source) {
				continue
			}
		}
		cp := *app
		result = append(result, &cp)
	}
	// Most recently active first, matching the SQL adapter's ORDER BY.
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivityAt.After(result[j].LastActivityAt)
	})
	return result, nil
}

func (r *appRepo) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 500
	}

	var result []*domain.Application
	for _, app := range r.apps {
		if app.Archived || app.UserOverride {
			continue
		}
		if app.CurrentStatus != domain.StatusApplied && app.CurrentStatus != domain.StatusUnderReview {
			continue
		}
		if !app.LastActivityAt.Before(cutoff) {
			continue
		}
		cp := *app
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastActivityAt.Before(result[j].LastActivityAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *appRepo) Create(ctx context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

func (r *appRepo) Update(ctx context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *app
	r.apps[app.ID] = &cp
	return nil
}

// =============================================================================
// Events
// =============================================================================

type eventRepo Store

func (r *eventRepo) GetByID(ctx context.Context, id int64) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	cp := *ev
	return &cp, nil
}

func (r *eventRepo) GetByMessageID(ctx context.Context, userID uuid.UUID, messageID string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.UserID == userID && ev.MessageID == messageID {
			cp := *ev
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *eventRepo) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.Event
	for _, ev := range r.events {
		if ev.ApplicationID != nil && *ev.ApplicationID == applicationID {
			cp := *ev
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InternalDate.Before(result[j].InternalDate)
	})
	return result, nil
}

func (r *eventRepo) ListUnassigned(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.Event
	for _, ev := range r.events {
		if ev.UserID == userID && ev.ApplicationID == nil {
			cp := *ev
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InternalDate.After(result[j].InternalDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *eventRepo) ListUnassignedByReasons(ctx context.Context, userID uuid.UUID, reasons []domain.ReasonCode, limit int) ([]*domain.Event, error) {
	wanted := make(map[domain.ReasonCode]bool, len(reasons))
	for _, reason := range reasons {
		wanted[reason] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.Event
	for _, ev := range r.events {
		if ev.UserID != userID || ev.ApplicationID != nil {
			continue
		}
		if len(wanted) > 0 && (ev.ReasonCode == nil || !wanted[*ev.ReasonCode]) {
			continue
		}
		cp := *ev
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].InternalDate.After(result[j].InternalDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *eventRepo) Insert(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event.ID == 0 {
		event.ID = r.nextID
		r.nextID++
	}
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *eventRepo) Update(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events[event.ID] = &cp
	return nil
}

func (r *eventRepo) SetApplication(ctx context.Context, eventID int64, applicationID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[eventID]
	if !ok {
		return nil
	}
	ev.ApplicationID = applicationID
	return nil
}
