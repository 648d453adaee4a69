package status

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
)

func statusEvent(id int64, eventType domain.EventType, confidence float64, subject string) *domain.Event {
	return &domain.Event{
		ID:                       id,
		DetectedType:             eventType,
		ConfidenceScore:          confidence,
		ClassificationConfidence: confidence,
		Subject:                  subject,
		InternalDate:             time.Now().UTC(),
	}
}

func activeApp(status domain.ApplicationStatus) *domain.Application {
	return &domain.Application{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		CompanyName:    "Acme",
		CurrentStatus:  status,
		StatusSource:   domain.StatusSourceInferred,
		LastActivityAt: time.Now().UTC(),
	}
}

func TestInferCandidateSelection(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name          string
		events        []*domain.Event
		wantStatus    domain.ApplicationStatus
		wantConf      float64
		wantSuggested bool
		wantEventIDs  []int64
	}{
		{
			name: "single confirmation",
			events: []*domain.Event{
				statusEvent(1, domain.EventConfirmation, 0.93, "Application received"),
			},
			wantStatus:   domain.StatusApplied,
			wantConf:     0.93,
			wantEventIDs: []int64{1},
		},
		{
			name: "rejection outranks earlier confirmation",
			events: []*domain.Event{
				statusEvent(1, domain.EventConfirmation, 0.93, "Application received"),
				statusEvent(2, domain.EventRejection, 0.92, "Update on your application"),
			},
			wantStatus:   domain.StatusRejected,
			wantConf:     0.92,
			wantEventIDs: []int64{2},
		},
		{
			name: "interview requested by default",
			events: []*domain.Event{
				statusEvent(1, domain.EventInterview, 0.91, "Interview availability"),
			},
			wantStatus:   domain.StatusInterviewRequested,
			wantConf:     0.91,
			wantEventIDs: []int64{1},
		},
		{
			name: "completion phrasing raises interview to completed",
			events: []*domain.Event{
				statusEvent(1, domain.EventInterview, 0.91, "Thank you for interviewing with Acme"),
			},
			wantStatus:   domain.StatusInterviewCompleted,
			wantConf:     0.91,
			wantEventIDs: []int64{1},
		},
		{
			name: "below-floor events are ignored",
			events: []*domain.Event{
				statusEvent(1, domain.EventConfirmation, 0.93, "Application received"),
				statusEvent(2, domain.EventOffer, 0.55, "maybe an offer"),
			},
			wantStatus:   domain.StatusApplied,
			wantConf:     0.93,
			wantEventIDs: []int64{1},
		},
		{
			name: "weak winner is suggestion only",
			events: []*domain.Event{
				statusEvent(1, domain.EventUnderReview, 0.85, "Your application is in review"),
			},
			wantStatus:    domain.StatusUnderReview,
			wantConf:      0.85,
			wantSuggested: true,
			wantEventIDs:  []int64{1},
		},
		{
			name: "repeat events keep the stronger confidence",
			events: []*domain.Event{
				statusEvent(1, domain.EventConfirmation, 0.80, "Application received"),
				statusEvent(2, domain.EventConfirmation, 0.93, "We received your application"),
			},
			wantStatus:   domain.StatusApplied,
			wantConf:     0.93,
			wantEventIDs: []int64{1, 2},
		},
	}

	engine := NewEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inf := engine.Infer(activeApp(domain.StatusUnknown), tt.events, now)
			if inf == nil {
				t.Fatal("no inference produced")
			}
			if inf.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", inf.Status, tt.wantStatus)
			}
			if inf.Confidence != tt.wantConf {
				t.Errorf("confidence = %.2f, want %.2f", inf.Confidence, tt.wantConf)
			}
			if inf.SuggestedOnly != tt.wantSuggested {
				t.Errorf("suggestedOnly = %v, want %v", inf.SuggestedOnly, tt.wantSuggested)
			}
			if len(inf.EventIDs) != len(tt.wantEventIDs) {
				t.Fatalf("eventIDs = %v, want %v", inf.EventIDs, tt.wantEventIDs)
			}
			for i, id := range tt.wantEventIDs {
				if inf.EventIDs[i] != id {
					t.Errorf("eventIDs = %v, want %v", inf.EventIDs, tt.wantEventIDs)
				}
			}
		})
	}
}

func TestInferNoSignal(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now().UTC()

	events := []*domain.Event{
		statusEvent(1, domain.EventRecruiterOutreach, 0.78, "Opportunity at Initech"),
	}
	app := activeApp(domain.StatusApplied)
	if inf := engine.Infer(app, events, now); inf != nil {
		t.Errorf("outreach produced inference %+v, want nil", inf)
	}
}

func TestInferGhosted(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now().UTC()

	tests := []struct {
		name     string
		status   domain.ApplicationStatus
		idleDays int
		want     bool
	}{
		{name: "applied and stale", status: domain.StatusApplied, idleDays: 25, want: true},
		{name: "under review and stale", status: domain.StatusUnderReview, idleDays: 22, want: true},
		{name: "applied but recent", status: domain.StatusApplied, idleDays: 10, want: false},
		{name: "rejected never ghosts", status: domain.StatusRejected, idleDays: 60, want: false},
		{name: "interview stage never ghosts", status: domain.StatusInterviewRequested, idleDays: 60, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := activeApp(tt.status)
			app.LastActivityAt = now.Add(-time.Duration(tt.idleDays) * 24 * time.Hour)

			inf := engine.Infer(app, nil, now)
			if !tt.want {
				if inf != nil {
					t.Fatalf("got %+v, want nil", inf)
				}
				return
			}
			if inf == nil {
				t.Fatal("no ghosted suggestion produced")
			}
			if inf.Status != domain.StatusGhosted || inf.Confidence != 0.75 || !inf.SuggestedOnly {
				t.Errorf("got %s/%.2f suggested=%v, want GHOSTED/0.75 suggested", inf.Status, inf.Confidence, inf.SuggestedOnly)
			}
		})
	}
}

func TestInferGhostedDespiteEventHistory(t *testing.T) {
	engine := NewEngine(nil)
	now := time.Now().UTC()

	// The confirmation that created the application keeps yielding an
	// APPLIED candidate forever; it must not mask ghosting once the
	// employer goes quiet.
	events := []*domain.Event{
		statusEvent(1, domain.EventConfirmation, 0.93, "Application received"),
	}

	t.Run("stale applied ghosts", func(t *testing.T) {
		app := activeApp(domain.StatusApplied)
		app.LastActivityAt = now.Add(-30 * 24 * time.Hour)

		inf := engine.Infer(app, events, now)
		if inf == nil {
			t.Fatal("no inference produced")
		}
		if inf.Status != domain.StatusGhosted || inf.Confidence != 0.75 || !inf.SuggestedOnly {
			t.Errorf("got %s/%.2f suggested=%v, want GHOSTED/0.75 suggested", inf.Status, inf.Confidence, inf.SuggestedOnly)
		}
	})

	t.Run("recent applied keeps event candidate", func(t *testing.T) {
		app := activeApp(domain.StatusApplied)

		inf := engine.Infer(app, events, now)
		if inf == nil || inf.Status != domain.StatusApplied {
			t.Fatalf("got %+v, want APPLIED", inf)
		}
	})

	t.Run("stale interview stage never ghosts", func(t *testing.T) {
		interview := []*domain.Event{
			statusEvent(1, domain.EventInterview, 0.91, "Interview invitation"),
		}
		app := activeApp(domain.StatusInterviewRequested)
		app.LastActivityAt = now.Add(-60 * 24 * time.Hour)

		inf := engine.Infer(app, interview, now)
		if inf == nil || inf.Status != domain.StatusInterviewRequested {
			t.Fatalf("got %+v, want INTERVIEW_REQUESTED", inf)
		}
	})
}

func TestApplyGuards(t *testing.T) {
	now := time.Now().UTC()
	engine := NewEngine(nil)

	tests := []struct {
		name       string
		app        func() *domain.Application
		inf        *Inference
		wantReason domain.ReasonCode
	}{
		{
			name: "user override freezes status",
			app: func() *domain.Application {
				a := activeApp(domain.StatusRejected)
				a.UserOverride = true
				a.StatusSource = domain.StatusSourceUser
				return a
			},
			inf:        &Inference{Status: domain.StatusApplied, Confidence: 0.93},
			wantReason: domain.ReasonUserOverride,
		},
		{
			name: "terminal status blocks forward change",
			app: func() *domain.Application {
				a := activeApp(domain.StatusRejected)
				a.StatusConfidence = 0.92
				return a
			},
			inf:        &Inference{Status: domain.StatusOfferReceived, Confidence: 0.93},
			wantReason: domain.ReasonTerminalStatus,
		},
		{
			name: "weak rescission stays blocked",
			app: func() *domain.Application {
				a := activeApp(domain.StatusOfferReceived)
				a.StatusConfidence = 0.95
				return a
			},
			inf:        &Inference{Status: domain.StatusRejected, Confidence: 0.92},
			wantReason: domain.ReasonTerminalStatus,
		},
		{
			name: "priority regression is blocked",
			app: func() *domain.Application {
				a := activeApp(domain.StatusInterviewCompleted)
				a.StatusConfidence = 0.91
				return a
			},
			inf:        &Inference{Status: domain.StatusApplied, Confidence: 0.93},
			wantReason: domain.ReasonRegression,
		},
		{
			name:       "same status is a no-op",
			app:        func() *domain.Application { return activeApp(domain.StatusApplied) },
			inf:        &Inference{Status: domain.StatusApplied, Confidence: 0.93},
			wantReason: domain.ReasonSameStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := tt.app()
			before := app.CurrentStatus

			out := engine.Apply(app, tt.inf, now)
			if !out.Blocked {
				t.Fatalf("not blocked: %+v", out)
			}
			if *out.Reason != tt.wantReason {
				t.Errorf("reason = %s, want %s", *out.Reason, tt.wantReason)
			}
			if app.CurrentStatus != before {
				t.Errorf("status changed to %s despite block", app.CurrentStatus)
			}
		})
	}
}

func TestApplyAutoAndSuggest(t *testing.T) {
	now := time.Now().UTC()
	engine := NewEngine(nil)

	t.Run("confident result auto-applies and clears suggestion", func(t *testing.T) {
		app := activeApp(domain.StatusApplied)
		s := domain.StatusUnderReview
		app.SuggestedStatus = &s
		app.SuggestedConfidence = 0.85

		out := engine.Apply(app, &Inference{Status: domain.StatusRejected, Confidence: 0.92}, now)
		if !out.Applied {
			t.Fatalf("not applied: %+v", out)
		}
		if app.CurrentStatus != domain.StatusRejected || app.StatusConfidence != 0.92 {
			t.Errorf("status = %s/%.2f, want REJECTED/0.92", app.CurrentStatus, app.StatusConfidence)
		}
		if app.StatusSource != domain.StatusSourceInferred {
			t.Errorf("statusSource = %s, want inferred", app.StatusSource)
		}
		if app.SuggestedStatus != nil || app.SuggestedConfidence != 0 {
			t.Errorf("suggestion not cleared: %v/%.2f", app.SuggestedStatus, app.SuggestedConfidence)
		}
	})

	t.Run("weak result only suggests", func(t *testing.T) {
		app := activeApp(domain.StatusApplied)

		out := engine.Apply(app, &Inference{Status: domain.StatusUnderReview, Confidence: 0.85, SuggestedOnly: true}, now)
		if !out.Suggested || out.Applied {
			t.Fatalf("got %+v, want suggested only", out)
		}
		if app.CurrentStatus != domain.StatusApplied {
			t.Errorf("currentStatus changed to %s", app.CurrentStatus)
		}
		if app.SuggestedStatus == nil || *app.SuggestedStatus != domain.StatusUnderReview || app.SuggestedConfidence != 0.85 {
			t.Errorf("suggestion = %v/%.2f, want UNDER_REVIEW/0.85", app.SuggestedStatus, app.SuggestedConfidence)
		}
	})

	t.Run("offer rescinded by stronger rejection", func(t *testing.T) {
		app := activeApp(domain.StatusOfferReceived)
		app.StatusConfidence = 0.90

		out := engine.Apply(app, &Inference{Status: domain.StatusRejected, Confidence: 0.92}, now)
		if !out.Applied {
			t.Fatalf("rescission blocked: %+v", out)
		}
		if app.CurrentStatus != domain.StatusRejected {
			t.Errorf("status = %s, want REJECTED", app.CurrentStatus)
		}
	})

	t.Run("ghosted suggestion allowed on applied", func(t *testing.T) {
		app := activeApp(domain.StatusApplied)

		out := engine.Apply(app, &Inference{Status: domain.StatusGhosted, Confidence: 0.75, SuggestedOnly: true}, now)
		if !out.Suggested {
			t.Fatalf("got %+v, want suggested", out)
		}
		if app.SuggestedStatus == nil || *app.SuggestedStatus != domain.StatusGhosted {
			t.Errorf("suggestion = %v, want GHOSTED", app.SuggestedStatus)
		}
	})

	t.Run("nil inference is a no-op", func(t *testing.T) {
		app := activeApp(domain.StatusApplied)
		out := engine.Apply(app, nil, now)
		if out.Applied || out.Suggested || out.Blocked {
			t.Errorf("got %+v, want empty outcome", out)
		}
	})
}
