package match

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker_server/adapter/out/memstore"
	"tracker_server/core/domain"
)

func strPtr(s string) *string { return &s }

func testEvent(userID uuid.UUID, eventType domain.EventType, confidence float64) *domain.Event {
	return &domain.Event{
		ID:                       1,
		UserID:                   userID,
		MessageID:                "msg-1",
		DetectedType:             eventType,
		ConfidenceScore:          confidence,
		ClassificationConfidence: confidence,
		Sender:                   "jobs@acme.com",
		Subject:                  "test",
		InternalDate:             time.Now().UTC(),
	}
}

func testApp(userID uuid.UUID, company, role, source string) *domain.Application {
	return &domain.Application{
		ID:             uuid.New(),
		UserID:         userID,
		CompanyName:    company,
		JobTitle:       role,
		Source:         source,
		CurrentStatus:  domain.StatusApplied,
		StatusSource:   domain.StatusSourceInferred,
		LastActivityAt: time.Now().UTC().Add(-24 * time.Hour),
		CreatedAt:      time.Now().UTC().Add(-24 * time.Hour),
		UpdatedAt:      time.Now().UTC().Add(-24 * time.Hour),
	}
}

func confidentIdentity(company, role, domainName string) *domain.Identity {
	id := &domain.Identity{
		CompanyName:       strPtr(company),
		SenderDomain:      strPtr(domainName),
		CompanyConfidence: 0.95,
		DomainConfidence:  0.95,
		MatchConfidence:   0.90,
	}
	if role != "" {
		id.JobTitle = strPtr(role)
		id.RoleConfidence = 0.93
	}
	return id
}

// TestMatcherMissingIdentity tests the first gate.
func TestMatcherMissingIdentity(t *testing.T) {
	store := memstore.New()
	m := NewMatcher(nil)
	userID := uuid.New()

	event := testEvent(userID, domain.EventConfirmation, 0.93)
	if err := store.Events().Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	res, err := m.Match(context.Background(), store, event, &domain.Identity{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != domain.MatchUnassigned || *res.Reason != domain.ReasonMissingIdentity {
		t.Fatalf("got %+v, want unassigned/missing_identity", res)
	}
}

// TestMatcherExactAttach tests the strict path against one existing
// application, with and without a role signal.
func TestMatcherExactAttach(t *testing.T) {
	tests := []struct {
		name string
		role string
	}{
		{name: "with role", role: "Software Engineer"},
		{name: "without role signal", role: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			m := NewMatcher(nil)
			userID := uuid.New()

			app := testApp(userID, "Acme", "Software Engineer", "acme.com")
			if err := store.Applications().Create(context.Background(), app); err != nil {
				t.Fatal(err)
			}

			event := testEvent(userID, domain.EventRejection, 0.92)
			if err := store.Events().Insert(context.Background(), event); err != nil {
				t.Fatal(err)
			}

			res, err := m.Match(context.Background(), store, event, confidentIdentity("Acme", tt.role, "acme.com"))
			if err != nil {
				t.Fatal(err)
			}
			if res.Action != domain.MatchAttached {
				t.Fatalf("action = %s (%s), want attached", res.Action, res.Detail)
			}
			if *res.ApplicationID != app.ID {
				t.Errorf("attached to %s, want %s", res.ApplicationID, app.ID)
			}

			got, _ := store.Events().GetByID(context.Background(), event.ID)
			if got.ApplicationID == nil || *got.ApplicationID != app.ID {
				t.Errorf("event row not updated with application id")
			}
		})
	}
}

// TestMatcherAmbiguityNeverGuesses verifies more than one candidate is
// reported, never resolved silently: two open roles at the same company
// must not receive a role-less rejection.
func TestMatcherAmbiguityNeverGuesses(t *testing.T) {
	store := memstore.New()
	m := NewMatcher(nil)
	userID := uuid.New()

	company := "Embrace Psychiatric Wellness Center"
	for _, role := range []string{"Therapist", "Office Manager"} {
		if err := store.Applications().Create(context.Background(), testApp(userID, company, role, "embracewellness.com")); err != nil {
			t.Fatal(err)
		}
	}

	event := testEvent(userID, domain.EventRejection, 0.92)
	if err := store.Events().Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	res, err := m.Match(context.Background(), store, event, confidentIdentity(company, "", "embracewellness.com"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != domain.MatchUnassigned {
		t.Fatalf("action = %s, want unassigned", res.Action)
	}
	if *res.Reason != domain.ReasonAmbiguousMatch {
		t.Errorf("reason = %s, want ambiguous_match", *res.Reason)
	}
}

// TestMatcherLooseAttach tests the loose fallback when the source differs
// (employer switched from direct mail to an ATS).
func TestMatcherLooseAttach(t *testing.T) {
	store := memstore.New()
	m := NewMatcher(nil)
	userID := uuid.New()

	app := testApp(userID, "Globex", "Backend Engineer", "globex.io")
	if err := store.Applications().Create(context.Background(), app); err != nil {
		t.Fatal(err)
	}

	event := testEvent(userID, domain.EventInterview, 0.91)
	id := &domain.Identity{
		CompanyName:       strPtr("Globex"),
		SenderDomain:      strPtr("greenhouse.io"),
		CompanyConfidence: 0.85,
		DomainConfidence:  0.70,
		MatchConfidence:   0.70, // capped by the ATS domain
		IsATSDomain:       true,
	}
	if err := store.Events().Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	res, err := m.Match(context.Background(), store, event, id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Action != domain.MatchAttached || *res.ApplicationID != app.ID {
		t.Fatalf("got %+v (%s), want loose attach to %s", res, res.Detail, app.ID)
	}
}

// TestMatcherAutoCreate tests seeding a new application.
func TestMatcherAutoCreate(t *testing.T) {
	tests := []struct {
		name       string
		eventType  domain.EventType
		confidence float64
		wantStatus domain.ApplicationStatus
	}{
		{
			name:       "confident confirmation seeds APPLIED",
			eventType:  domain.EventConfirmation,
			confidence: 0.93,
			wantStatus: domain.StatusApplied,
		},
		{
			name:       "interview seeds UNKNOWN",
			eventType:  domain.EventInterview,
			confidence: 0.91,
			wantStatus: domain.StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			m := NewMatcher(nil)
			userID := uuid.New()

			event := testEvent(userID, tt.eventType, tt.confidence)
			if err := store.Events().Insert(context.Background(), event); err != nil {
				t.Fatal(err)
			}

			res, err := m.Match(context.Background(), store, event, confidentIdentity("Acme", "Software Engineer", "acme.com"))
			if err != nil {
				t.Fatal(err)
			}
			if res.Action != domain.MatchCreated {
				t.Fatalf("action = %s (%s), want created", res.Action, res.Detail)
			}

			app, _ := store.Applications().GetByID(context.Background(), *res.ApplicationID)
			if app == nil {
				t.Fatal("application not persisted")
			}
			if app.CurrentStatus != tt.wantStatus {
				t.Errorf("status = %s, want %s", app.CurrentStatus, tt.wantStatus)
			}
			if app.CompanyName != "Acme" || app.JobTitle != "Software Engineer" || app.Source != "acme.com" {
				t.Errorf("seeded fields wrong: %+v", app)
			}
			if tt.wantStatus == domain.StatusApplied && app.AppliedAt == nil {
				t.Errorf("appliedAt not set for confident confirmation")
			}
		})
	}
}

// TestMatcherUnassignedReasons tests the reason codes and their numeric
// detail strings.
func TestMatcherUnassignedReasons(t *testing.T) {
	tests := []struct {
		name       string
		eventType  domain.EventType
		confidence float64
		identity   *domain.Identity
		wantReason domain.ReasonCode
	}{
		{
			name:       "eligible but weak signals",
			eventType:  domain.EventUnderReview,
			confidence: 0.70,
			identity: &domain.Identity{
				CompanyName:       strPtr("Acme"),
				SenderDomain:      strPtr("acme.com"),
				CompanyConfidence: 0.75,
				DomainConfidence:  0.95,
				MatchConfidence:   0.75,
			},
			wantReason: domain.ReasonNotConfidentCreate,
		},
		{
			name:       "ineligible type with weak identity",
			eventType:  domain.EventRecruiterOutreach,
			confidence: 0.78,
			identity: &domain.Identity{
				CompanyName:       strPtr("Acme"),
				SenderDomain:      strPtr("agency.example"),
				CompanyConfidence: 0.75,
				DomainConfidence:  0.50,
				MatchConfidence:   0.50,
			},
			wantReason: domain.ReasonLowConfidence,
		},
		{
			name:       "free mail sender",
			eventType:  domain.EventConfirmation,
			confidence: 0.93,
			identity: &domain.Identity{
				CompanyName:       strPtr("Acme"),
				SenderDomain:      strPtr("gmail.com"),
				CompanyConfidence: 0.75,
				DomainConfidence:  0.30,
				MatchConfidence:   0.30,
			},
			wantReason: domain.ReasonAmbiguousSender,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			m := NewMatcher(nil)
			userID := uuid.New()

			event := testEvent(userID, tt.eventType, tt.confidence)
			event.ClassificationConfidence = tt.confidence
			if err := store.Events().Insert(context.Background(), event); err != nil {
				t.Fatal(err)
			}

			res, err := m.Match(context.Background(), store, event, tt.identity)
			if err != nil {
				t.Fatal(err)
			}
			if res.Action != domain.MatchUnassigned {
				t.Fatalf("action = %s, want unassigned", res.Action)
			}
			if *res.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s (%s)", *res.Reason, tt.wantReason, res.Detail)
			}
			if !strings.Contains(res.Detail, "0.") {
				t.Errorf("detail %q carries no numeric threshold", res.Detail)
			}

			got, _ := store.Events().GetByID(context.Background(), event.ID)
			if got.ReasonCode == nil || *got.ReasonCode != tt.wantReason {
				t.Errorf("reason not persisted on event row")
			}
		})
	}
}

// TestMatcherReprocessRecomputes verifies attachment is idempotent by
// recompute: a re-classified event moves to where its new identity points.
func TestMatcherReprocessRecomputes(t *testing.T) {
	store := memstore.New()
	m := NewMatcher(nil)
	userID := uuid.New()

	acme := testApp(userID, "Acme", "Software Engineer", "acme.com")
	globex := testApp(userID, "Globex", "Software Engineer", "globex.io")
	for _, app := range []*domain.Application{acme, globex} {
		if err := store.Applications().Create(context.Background(), app); err != nil {
			t.Fatal(err)
		}
	}

	event := testEvent(userID, domain.EventConfirmation, 0.93)
	if err := store.Events().Insert(context.Background(), event); err != nil {
		t.Fatal(err)
	}

	res, err := m.Match(context.Background(), store, event, confidentIdentity("Acme", "Software Engineer", "acme.com"))
	if err != nil || res.Action != domain.MatchAttached || *res.ApplicationID != acme.ID {
		t.Fatalf("first match: %+v, err=%v", res, err)
	}

	// Corrected identity points at Globex; re-matching must recompute.
	res, err = m.Match(context.Background(), store, event, confidentIdentity("Globex", "Software Engineer", "globex.io"))
	if err != nil || res.Action != domain.MatchAttached || *res.ApplicationID != globex.ID {
		t.Fatalf("re-match: %+v, err=%v", res, err)
	}

	got, _ := store.Events().GetByID(context.Background(), event.ID)
	if got.ApplicationID == nil || *got.ApplicationID != globex.ID {
		t.Errorf("event still attached to %v, want %s", got.ApplicationID, globex.ID)
	}
}
