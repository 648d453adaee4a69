package tracker

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker_server/adapter/out/memstore"
	"tracker_server/core/domain"
	"tracker_server/core/port/out"
	"tracker_server/core/service/pipeline"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/logger"
	"tracker_server/pkg/snowflake"
)

func newFixture(t *testing.T) (*Service, out.Store, *pipeline.Service) {
	t.Helper()
	store := memstore.New()
	ids, err := snowflake.NewGenerator(1)
	if err != nil {
		t.Fatal(err)
	}
	log := logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard})
	pipe := pipeline.NewService(store, ids, log, pipeline.Options{})
	return NewService(store, pipe, log), store, pipe
}

func seedApplication(t *testing.T, store out.Store, userID uuid.UUID, status domain.ApplicationStatus) *domain.Application {
	t.Helper()
	app := &domain.Application{
		ID:             uuid.New(),
		UserID:         userID,
		CompanyName:    "Acme",
		JobTitle:       "Software Engineer",
		Source:         "acme.com",
		CurrentStatus:  status,
		StatusSource:   domain.StatusSourceInferred,
		LastActivityAt: time.Now().UTC(),
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := store.Applications().Create(context.Background(), app); err != nil {
		t.Fatal(err)
	}
	return app
}

func TestOverrideStatusPinsAgainstInference(t *testing.T) {
	svc, store, pipe := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	app := seedApplication(t, store, userID, domain.StatusInterviewRequested)

	updated, err := svc.OverrideStatus(ctx, userID, app.ID, domain.StatusRejected)
	if err != nil {
		t.Fatal(err)
	}
	if updated.CurrentStatus != domain.StatusRejected || !updated.UserOverride {
		t.Fatalf("override not recorded: %+v", updated)
	}
	if updated.StatusSource != domain.StatusSourceUser || updated.StatusConfidence != 1.0 {
		t.Errorf("provenance = %s/%.2f, want user/1.00", updated.StatusSource, updated.StatusConfidence)
	}

	// A confident confirmation for the same application must not unpin it.
	res, err := pipe.ProcessMessage(ctx, &domain.InboundMessage{
		ID:         "m-1",
		UserID:     userID,
		Sender:     "jobs@acme.com",
		Subject:    "Thank you for applying to Acme for Software Engineer",
		Snippet:    "We received your application.",
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Match.Action != domain.MatchAttached {
		t.Fatalf("match = %+v, want attached", res.Match)
	}
	if res.Status == nil || !res.Status.Blocked || *res.Status.Reason != domain.ReasonUserOverride {
		t.Fatalf("status outcome = %+v, want blocked by user_override", res.Status)
	}

	got, _ := store.Applications().GetByID(ctx, app.ID)
	if got.CurrentStatus != domain.StatusRejected {
		t.Errorf("status = %s, want pinned REJECTED", got.CurrentStatus)
	}
}

func TestClearOverrideReinfers(t *testing.T) {
	svc, store, pipe := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	// A rejection event on record, but the user had pinned APPLIED.
	if _, err := pipe.ProcessMessage(ctx, &domain.InboundMessage{
		ID:         "m-1",
		UserID:     userID,
		Sender:     "jobs@acme.com",
		Subject:    "Thank you for applying to Acme for Software Engineer",
		Snippet:    "We received your application.",
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
	apps, _ := store.Applications().Find(ctx, userID, nil)
	if len(apps) != 1 {
		t.Fatalf("got %d applications, want 1", len(apps))
	}
	appID := apps[0].ID

	if _, err := pipe.ProcessMessage(ctx, &domain.InboundMessage{
		ID:         "m-2",
		UserID:     userID,
		Sender:     "jobs@acme.com",
		Subject:    "Your application for Software Engineer at Acme",
		Snippet:    "Unfortunately we will not be moving forward.",
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.OverrideStatus(ctx, userID, appID, domain.StatusApplied); err != nil {
		t.Fatal(err)
	}

	cleared, err := svc.ClearOverride(ctx, userID, appID)
	if err != nil {
		t.Fatal(err)
	}
	if cleared.UserOverride {
		t.Errorf("override still set")
	}
	if cleared.CurrentStatus != domain.StatusRejected {
		t.Errorf("status = %s, want re-inferred REJECTED", cleared.CurrentStatus)
	}
}

func TestAcceptSuggestion(t *testing.T) {
	svc, store, _ := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	app := seedApplication(t, store, userID, domain.StatusApplied)
	s := domain.StatusUnderReview
	app.SuggestedStatus = &s
	app.SuggestedConfidence = 0.85
	if err := store.Applications().Update(ctx, app); err != nil {
		t.Fatal(err)
	}

	updated, err := svc.AcceptSuggestion(ctx, userID, app.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.CurrentStatus != domain.StatusUnderReview || updated.StatusConfidence != 0.85 {
		t.Errorf("got %s/%.2f, want UNDER_REVIEW/0.85", updated.CurrentStatus, updated.StatusConfidence)
	}
	if updated.SuggestedStatus != nil {
		t.Errorf("suggestion not cleared")
	}
	if updated.UserOverride {
		t.Errorf("accepting a suggestion must not pin the status")
	}

	// No pending suggestion now.
	if _, err := svc.AcceptSuggestion(ctx, userID, app.ID); err == nil {
		t.Fatal("expected conflict for second accept")
	}
}

func TestAssignEventReinfersBothApplications(t *testing.T) {
	svc, store, pipe := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	// Rejection lands on Acme by mistake of the sender; the user moves it
	// to the Globex application.
	if _, err := pipe.ProcessMessage(ctx, &domain.InboundMessage{
		ID:         "m-1",
		UserID:     userID,
		Sender:     "jobs@acme.com",
		Subject:    "Thank you for applying to Acme for Software Engineer",
		Snippet:    "We received your application.",
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := pipe.ProcessMessage(ctx, &domain.InboundMessage{
		ID:         "m-2",
		UserID:     userID,
		Sender:     "jobs@acme.com",
		Subject:    "Your application for Software Engineer at Acme",
		Snippet:    "Unfortunately we will not be moving forward.",
		ReceivedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatal(err)
	}

	apps, _ := store.Applications().Find(ctx, userID, nil)
	if len(apps) != 1 {
		t.Fatalf("got %d applications, want 1", len(apps))
	}
	acme := apps[0]

	globex := &domain.Application{
		ID:             uuid.New(),
		UserID:         userID,
		CompanyName:    "Globex",
		Source:         "globex.io",
		CurrentStatus:  domain.StatusApplied,
		StatusSource:   domain.StatusSourceInferred,
		LastActivityAt: time.Now().UTC(),
	}
	if err := store.Applications().Create(ctx, globex); err != nil {
		t.Fatal(err)
	}

	events, _ := store.Events().ListByApplication(ctx, acme.ID)
	var rejectionID int64
	for _, ev := range events {
		if ev.DetectedType == domain.EventRejection {
			rejectionID = ev.ID
		}
	}
	if rejectionID == 0 {
		t.Fatal("rejection event not found")
	}

	res, err := svc.AssignEvent(ctx, userID, rejectionID, globex.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Inference.Status != domain.StatusRejected {
		t.Fatalf("reinfer after move = %+v, want applied REJECTED", res)
	}

	movedTo, _ := store.Applications().GetByID(ctx, globex.ID)
	if movedTo.CurrentStatus != domain.StatusRejected {
		t.Errorf("target status = %s, want REJECTED", movedTo.CurrentStatus)
	}
	// The source application keeps REJECTED: its remaining confirmation
	// event would mean APPLIED, but the regression guard blocks that.
	left, _ := store.Applications().GetByID(ctx, acme.ID)
	if left.CurrentStatus != domain.StatusRejected {
		t.Errorf("source status = %s, want REJECTED", left.CurrentStatus)
	}
}

func TestListUnassignedEventsByReason(t *testing.T) {
	svc, store, _ := newFixture(t)
	userID := uuid.New()
	ctx := context.Background()

	reasons := []domain.ReasonCode{domain.ReasonAmbiguousMatch, domain.ReasonLowConfidence}
	for i, reason := range reasons {
		r := reason
		if err := store.Events().Insert(ctx, &domain.Event{
			ID:           int64(i + 1),
			UserID:       userID,
			MessageID:    uuid.NewString(),
			DetectedType: domain.EventRejection,
			ReasonCode:   &r,
			InternalDate: time.Now().UTC(),
		}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.ListUnassignedEvents(ctx, userID, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d unassigned, want 2", len(all))
	}

	ambiguous, err := svc.ListUnassignedEvents(ctx, userID, []domain.ReasonCode{domain.ReasonAmbiguousMatch}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ambiguous) != 1 || *ambiguous[0].ReasonCode != domain.ReasonAmbiguousMatch {
		t.Fatalf("reason filter returned %+v", ambiguous)
	}
}

func TestForeignApplicationRejected(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()

	app := seedApplication(t, store, uuid.New(), domain.StatusApplied)

	_, err := svc.GetApplication(ctx, uuid.New(), app.ID)
	if err == nil {
		t.Fatal("expected not-found for foreign application")
	}
	if appErr := apperr.AsAppError(err); appErr == nil || appErr.Code != apperr.CodeNotFound {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}
