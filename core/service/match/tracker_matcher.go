// Package match decides where a classified event belongs: attached to an
// existing application, seeding a new one, or left unassigned with a reason
// code. Ambiguity is a reported outcome, never a guess and never an error.
package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
	"tracker_server/core/port/out"
)

// =============================================================================
// Matcher Configuration
// =============================================================================

// Config holds the matcher thresholds. Immutable after startup; injected so
// tests can tighten or loosen them.
type Config struct {
	// ExactMatchThreshold gates the strict path on identity match confidence.
	ExactMatchThreshold float64

	// LooseCompanyThreshold and LooseClassificationThreshold gate the loose
	// fallback and auto-creation for auto-create-eligible event types.
	LooseCompanyThreshold        float64
	LooseClassificationThreshold float64

	// AmbiguousSenderCeiling marks identities whose domain signal is so weak
	// (free mail providers) that the sender itself is untrustworthy.
	AmbiguousSenderCeiling float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() *Config {
	return &Config{
		ExactMatchThreshold:          0.85,
		LooseCompanyThreshold:        0.80,
		LooseClassificationThreshold: 0.85,
		AmbiguousSenderCeiling:       0.30,
	}
}

// =============================================================================
// Matcher
// =============================================================================

// Matcher attaches events to applications. It is safe to call repeatedly
// for the same event id: attachment is idempotent by recompute, not by
// skip, so a re-classified event lands where its new classification says.
type Matcher struct {
	cfg *Config
}

// NewMatcher creates a matcher. A nil config falls back to defaults.
func NewMatcher(cfg *Config) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Matcher{cfg: cfg}
}

// Match runs the decision order for one event against the store. The store
// is expected to be transaction-scoped by the caller. The event row is
// updated in place (application id and reason fields).
func (m *Matcher) Match(ctx context.Context, store out.Store, event *domain.Event, id *domain.Identity) (*domain.MatchResult, error) {
	// 1. No company identity: nothing to match against.
	if !id.HasCompany() {
		return m.unassign(ctx, store, event, domain.ReasonMissingIdentity,
			"no company could be extracted from the message")
	}

	notArchived := false
	eligible := event.DetectedType.AutoCreateEligible()

	// 2. Strict path: confident identity, exact company/role/source match.
	if id.MatchConfidence >= m.cfg.ExactMatchThreshold {
		filter := &domain.ApplicationFilter{
			CompanyName: id.CompanyName,
			Archived:    &notArchived,
		}
		if id.HasRole() {
			filter.JobTitle = id.JobTitle
		}
		if id.SenderDomain != nil {
			filter.Source = id.SenderDomain
		}
		app, ambiguous, err := m.lookupOne(ctx, store, event.UserID, filter)
		if err != nil {
			return nil, err
		}
		if ambiguous {
			return m.unassign(ctx, store, event, domain.ReasonAmbiguousMatch,
				"multiple applications match the extracted identity")
		}
		if app != nil {
			return m.attach(ctx, store, event, app)
		}
	}

	// 3. Loose fallback: eligible event types with confident company and
	// classification may match on company alone (role when available). The
	// ambiguity rule is the same as on the strict path.
	if eligible &&
		id.CompanyConfidence >= m.cfg.LooseCompanyThreshold &&
		event.ClassificationConfidence >= m.cfg.LooseClassificationThreshold {

		filter := &domain.ApplicationFilter{
			CompanyName: id.CompanyName,
			Archived:    &notArchived,
		}
		if id.HasRole() {
			filter.JobTitle = id.JobTitle
		}
		app, ambiguous, err := m.lookupOne(ctx, store, event.UserID, filter)
		if err != nil {
			return nil, err
		}
		if app == nil && !ambiguous && id.HasRole() {
			// Retry without the role; an older application may predate role
			// extraction.
			filter.JobTitle = nil
			app, ambiguous, err = m.lookupOne(ctx, store, event.UserID, filter)
			if err != nil {
				return nil, err
			}
		}
		if ambiguous {
			return m.unassign(ctx, store, event, domain.ReasonAmbiguousMatch,
				"multiple applications match the extracted company")
		}
		if app != nil {
			return m.attach(ctx, store, event, app)
		}

		// 4. Nothing matched: seed a new application.
		return m.create(ctx, store, event, id)
	}

	// 5. Report exactly which gate failed; the triage surface shows this.
	if id.DomainConfidence <= m.cfg.AmbiguousSenderCeiling {
		return m.unassign(ctx, store, event, domain.ReasonAmbiguousSender,
			fmt.Sprintf("sender domain confidence %.2f is at or below the %.2f ambiguity ceiling",
				id.DomainConfidence, m.cfg.AmbiguousSenderCeiling))
	}
	if eligible {
		return m.unassign(ctx, store, event, domain.ReasonNotConfidentCreate,
			fmt.Sprintf("company confidence %.2f or classification confidence %.2f below create thresholds (%.2f / %.2f)",
				id.CompanyConfidence, event.ClassificationConfidence,
				m.cfg.LooseCompanyThreshold, m.cfg.LooseClassificationThreshold))
	}
	detail := fmt.Sprintf("match confidence %.2f below the %.2f exact-match threshold",
		id.MatchConfidence, m.cfg.ExactMatchThreshold)
	if id.MatchConfidence >= m.cfg.ExactMatchThreshold {
		detail = fmt.Sprintf("no existing application matched and event type %q is not auto-create eligible",
			event.DetectedType)
	}
	return m.unassign(ctx, store, event, domain.ReasonLowConfidence, detail)
}

// lookupOne is the single ambiguity-aware application lookup both matching
// paths share. More than one candidate is never silently resolved.
func (m *Matcher) lookupOne(ctx context.Context, store out.Store, userID uuid.UUID, filter *domain.ApplicationFilter) (*domain.Application, bool, error) {
	apps, err := store.Applications().Find(ctx, userID, filter)
	if err != nil {
		return nil, false, err
	}
	switch len(apps) {
	case 0:
		return nil, false, nil
	case 1:
		return apps[0], false, nil
	default:
		return nil, true, nil
	}
}

// attach binds the event to an existing application and bumps its activity.
func (m *Matcher) attach(ctx context.Context, store out.Store, event *domain.Event, app *domain.Application) (*domain.MatchResult, error) {
	event.ApplicationID = &app.ID
	event.ReasonCode = nil
	event.ReasonDetail = nil
	if err := store.Events().Update(ctx, event); err != nil {
		return nil, err
	}

	if event.InternalDate.After(app.LastActivityAt) {
		app.LastActivityAt = event.InternalDate
	}
	app.UpdatedAt = time.Now().UTC()
	if err := store.Applications().Update(ctx, app); err != nil {
		return nil, err
	}

	return &domain.MatchResult{
		Action:        domain.MatchAttached,
		ApplicationID: &app.ID,
	}, nil
}

// create seeds a new application from the event and attaches it.
func (m *Matcher) create(ctx context.Context, store out.Store, event *domain.Event, id *domain.Identity) (*domain.MatchResult, error) {
	now := time.Now().UTC()

	status := domain.StatusUnknown
	var appliedAt *time.Time
	if event.DetectedType == domain.EventConfirmation &&
		event.ClassificationConfidence >= m.cfg.LooseClassificationThreshold {
		status = domain.StatusApplied
		d := event.InternalDate
		appliedAt = &d
	}

	app := &domain.Application{
		ID:               uuid.New(),
		UserID:           event.UserID,
		CompanyName:      *id.CompanyName,
		CurrentStatus:    status,
		StatusConfidence: event.ClassificationConfidence,
		StatusSource:     domain.StatusSourceInferred,
		AppliedAt:        appliedAt,
		LastActivityAt:   event.InternalDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if id.HasRole() {
		app.JobTitle = *id.JobTitle
	}
	if id.SenderDomain != nil {
		app.Source = *id.SenderDomain
	}
	if err := store.Applications().Create(ctx, app); err != nil {
		return nil, err
	}

	event.ApplicationID = &app.ID
	event.ReasonCode = nil
	event.ReasonDetail = nil
	if err := store.Events().Update(ctx, event); err != nil {
		return nil, err
	}

	return &domain.MatchResult{
		Action:        domain.MatchCreated,
		ApplicationID: &app.ID,
	}, nil
}

// unassign records the reason on the event row and reports it. A previously
// attached event being reprocessed keeps its detachment explicit.
func (m *Matcher) unassign(ctx context.Context, store out.Store, event *domain.Event, reason domain.ReasonCode, detail string) (*domain.MatchResult, error) {
	event.ApplicationID = nil
	event.ReasonCode = &reason
	event.ReasonDetail = &detail
	if err := store.Events().Update(ctx, event); err != nil {
		return nil, err
	}
	return &domain.MatchResult{
		Action: domain.MatchUnassigned,
		Reason: &reason,
		Detail: detail,
	}, nil
}
