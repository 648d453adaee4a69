package pipeline

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker_server/adapter/out/memstore"
	"tracker_server/core/domain"
	"tracker_server/core/port/out"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/logger"
	"tracker_server/pkg/snowflake"
)

// fakeLedger is an in-memory ProcessedLedger.
type fakeLedger struct {
	entries map[string]*domain.ClassificationResult
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: make(map[string]*domain.ClassificationResult)}
}

func (f *fakeLedger) Get(_ context.Context, messageID string) (*domain.ClassificationResult, error) {
	return f.entries[messageID], nil
}

func (f *fakeLedger) Mark(_ context.Context, messageID string, result *domain.ClassificationResult, _ time.Duration) error {
	copied := *result
	f.entries[messageID] = &copied
	return nil
}

func (f *fakeLedger) Forget(_ context.Context, messageID string) error {
	delete(f.entries, messageID)
	return nil
}

// fakeBodies records Put calls and serves Get from memory.
type fakeBodies struct {
	bodies map[string]string
	puts   int
}

func newFakeBodies() *fakeBodies {
	return &fakeBodies{bodies: make(map[string]string)}
}

func (f *fakeBodies) Get(_ context.Context, messageID string) (*out.MessageBody, error) {
	text, ok := f.bodies[messageID]
	if !ok {
		return nil, nil
	}
	return &out.MessageBody{MessageID: messageID, BodyText: text}, nil
}

func (f *fakeBodies) Put(_ context.Context, body *out.MessageBody) error {
	f.bodies[body.MessageID] = body.BodyText
	f.puts++
	return nil
}

func (f *fakeBodies) Delete(_ context.Context, messageID string) error {
	delete(f.bodies, messageID)
	return nil
}

// fakeEnricher returns a fixed corroboration.
type fakeEnricher struct {
	result *out.EnrichedIdentity
	calls  int
}

func (f *fakeEnricher) Enrich(_ context.Context, _ *domain.InboundMessage) (*out.EnrichedIdentity, error) {
	f.calls++
	return f.result, nil
}

func newTestService(t *testing.T, store out.Store, opts Options) *Service {
	t.Helper()
	ids, err := snowflake.NewGenerator(1)
	if err != nil {
		t.Fatal(err)
	}
	log := logger.New(logger.Config{Level: logger.LevelError, Output: io.Discard})
	return NewService(store, ids, log, opts)
}

func inbound(userID uuid.UUID, messageID, sender, subject, snippet string) *domain.InboundMessage {
	return &domain.InboundMessage{
		ID:         messageID,
		UserID:     userID,
		Sender:     sender,
		Subject:    subject,
		Snippet:    snippet,
		ReceivedAt: time.Now().UTC(),
	}
}

func TestProcessMessageCreatesApplication(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, Options{})
	userID := uuid.New()

	res, err := svc.ProcessMessage(context.Background(), inbound(userID, "m-1",
		"no-reply@acme.com",
		"Thank you for applying to Acme for Software Engineer",
		"We received your application and will be in touch."))
	if err != nil {
		t.Fatal(err)
	}

	if res.Classification.EventType != domain.EventConfirmation {
		t.Fatalf("classified as %s, want confirmation", res.Classification.EventType)
	}
	if res.Match == nil || res.Match.Action != domain.MatchCreated {
		t.Fatalf("match = %+v, want created", res.Match)
	}

	app, err := store.Applications().GetByID(context.Background(), *res.Match.ApplicationID)
	if err != nil {
		t.Fatal(err)
	}
	if app.CompanyName != "Acme" || app.JobTitle != "Software Engineer" {
		t.Errorf("application = %q / %q, want Acme / Software Engineer", app.CompanyName, app.JobTitle)
	}
	if app.CurrentStatus != domain.StatusApplied {
		t.Errorf("status = %s, want APPLIED", app.CurrentStatus)
	}
	if res.Event == nil || res.Event.ApplicationID == nil {
		t.Errorf("event not attached: %+v", res.Event)
	}
}

func TestProcessMessageAttachesAndAdvancesStatus(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, Options{})
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.ProcessMessage(ctx, inbound(userID, "m-1",
		"no-reply@acme.com",
		"Thank you for applying to Acme for Software Engineer",
		"We received your application."))
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.ProcessMessage(ctx, inbound(userID, "m-2",
		"jobs@acme.com",
		"Update regarding your application for Software Engineer at Acme",
		"Unfortunately we will not be moving forward."))
	if err != nil {
		t.Fatal(err)
	}

	if second.Classification.EventType != domain.EventRejection {
		t.Fatalf("classified as %s, want rejection", second.Classification.EventType)
	}
	if second.Match.Action != domain.MatchAttached {
		t.Fatalf("match = %+v (%s), want attached", second.Match, second.Match.Detail)
	}
	if *second.Match.ApplicationID != *first.Match.ApplicationID {
		t.Fatalf("attached to a different application")
	}

	app, _ := store.Applications().GetByID(ctx, *first.Match.ApplicationID)
	if app.CurrentStatus != domain.StatusRejected {
		t.Errorf("status = %s, want REJECTED", app.CurrentStatus)
	}
	if second.Status == nil || !second.Status.Applied {
		t.Errorf("status outcome = %+v, want applied", second.Status)
	}
}

func TestProcessMessageNotJobRelated(t *testing.T) {
	store := memstore.New()
	ledger := newFakeLedger()
	svc := newTestService(t, store, Options{Ledger: ledger})
	userID := uuid.New()
	ctx := context.Background()

	msg := inbound(userID, "m-1", "news@techdigest.example",
		"Weekly digest: top engineering stories", "Your weekly roundup.")

	res, err := svc.ProcessMessage(ctx, msg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification.IsJobRelated {
		t.Fatal("digest classified as job related")
	}
	if res.Event != nil {
		t.Errorf("event row written for non-job mail")
	}
	if ledger.entries["m-1"] == nil {
		t.Errorf("processed message not recorded in ledger")
	}

	// Duplicate delivery is served from the ledger.
	res, err = svc.ProcessMessage(ctx, msg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification.IsJobRelated || res.Event != nil {
		t.Errorf("duplicate delivery reprocessed: %+v", res)
	}
}

func TestProcessMessageReprocessRecomputes(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, Options{})
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.ProcessMessage(ctx, inbound(userID, "m-1",
		"jobs@acme.com",
		"Thank you for applying to Acme for Software Engineer",
		"We received your application."))
	if err != nil {
		t.Fatal(err)
	}

	// The same message id re-delivered after a corrected classification:
	// what looked like a confirmation was a rejection.
	second, err := svc.ProcessMessage(ctx, inbound(userID, "m-1",
		"jobs@acme.com",
		"Your application for Software Engineer at Acme",
		"Unfortunately we have decided to move forward with other candidates."))
	if err != nil {
		t.Fatal(err)
	}

	if second.Event.ID != first.Event.ID {
		t.Fatalf("reprocessing created a second event row")
	}
	if second.Event.DetectedType != domain.EventRejection {
		t.Errorf("detected type = %s, want rejection", second.Event.DetectedType)
	}

	app, _ := store.Applications().GetByID(ctx, *first.Match.ApplicationID)
	if app.CurrentStatus != domain.StatusRejected {
		t.Errorf("status = %s, want REJECTED after recompute", app.CurrentStatus)
	}
}

func TestProcessMessageEnrichmentFillsWeakIdentity(t *testing.T) {
	store := memstore.New()
	enricher := &fakeEnricher{result: &out.EnrichedIdentity{
		CompanyName: "Initech",
		JobTitle:    "Software Engineer",
		Confidence:  0.90,
	}}
	svc := newTestService(t, store, Options{Enricher: enricher})
	userID := uuid.New()

	// ATS sender, no company anywhere in the text: extraction alone cannot
	// name the employer.
	res, err := svc.ProcessMessage(context.Background(), inbound(userID, "m-1",
		"no-reply@greenhouse.io",
		"Interview availability",
		"We would like to interview you. Please book a time."))
	if err != nil {
		t.Fatal(err)
	}

	if enricher.calls == 0 {
		t.Fatal("enricher never consulted")
	}
	if res.Match.Action != domain.MatchCreated {
		t.Fatalf("match = %+v (%s), want created", res.Match, res.Match.Detail)
	}
	app, _ := store.Applications().GetByID(context.Background(), *res.Match.ApplicationID)
	if app.CompanyName != "Initech" {
		t.Errorf("company = %q, want enriched Initech", app.CompanyName)
	}
	if res.Identity.CompanyConfidence > 0.85 {
		t.Errorf("enriched confidence %.2f above cap", res.Identity.CompanyConfidence)
	}
}

func TestProcessMessagePersistsInlineBody(t *testing.T) {
	store := memstore.New()
	bodies := newFakeBodies()
	svc := newTestService(t, store, Options{Bodies: bodies})
	userID := uuid.New()

	msg := inbound(userID, "m-1", "jobs@acme.com",
		"Thank you for applying to Acme for Software Engineer",
		"We received your application.")
	msg.BodyText = "Full text of the confirmation email."

	if _, err := svc.ProcessMessage(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if bodies.puts != 1 || bodies.bodies["m-1"] == "" {
		t.Errorf("inline body not persisted")
	}
}

func TestReinferApplication(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, Options{})
	userID := uuid.New()
	ctx := context.Background()

	app := &domain.Application{
		ID:             uuid.New(),
		UserID:         userID,
		CompanyName:    "Acme",
		CurrentStatus:  domain.StatusApplied,
		StatusSource:   domain.StatusSourceInferred,
		LastActivityAt: time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
	if err := store.Applications().Create(ctx, app); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ReinferApplication(ctx, userID, app.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Suggested {
		t.Fatalf("got %+v, want ghosted suggestion", res)
	}
	if res.Inference.Status != domain.StatusGhosted {
		t.Errorf("inferred %s, want GHOSTED", res.Inference.Status)
	}

	got, _ := store.Applications().GetByID(ctx, app.ID)
	if got.SuggestedStatus == nil || *got.SuggestedStatus != domain.StatusGhosted {
		t.Errorf("suggestion not persisted: %+v", got)
	}
	if got.CurrentStatus != domain.StatusApplied {
		t.Errorf("currentStatus changed to %s", got.CurrentStatus)
	}
}

func TestReinferGhostsApplicationWithEventHistory(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, Options{})
	userID := uuid.New()
	ctx := context.Background()

	// Auto-created the normal way, so the confirmation event stays in
	// the history and keeps producing an APPLIED candidate.
	msg := inbound(userID, "m-1",
		"no-reply@acme.com",
		"Thank you for applying to Acme for Software Engineer",
		"We received your application.")
	msg.ReceivedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)

	first, err := svc.ProcessMessage(ctx, msg)
	if err != nil {
		t.Fatal(err)
	}
	if first.Match == nil || first.Match.Action != domain.MatchCreated {
		t.Fatalf("match = %+v, want created", first.Match)
	}
	appID := *first.Match.ApplicationID

	res, err := svc.ReinferApplication(ctx, userID, appID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Suggested {
		t.Fatalf("got %+v, want ghosted suggestion", res)
	}
	if res.Inference.Status != domain.StatusGhosted {
		t.Errorf("inferred %s, want GHOSTED", res.Inference.Status)
	}

	got, _ := store.Applications().GetByID(ctx, appID)
	if got.CurrentStatus != domain.StatusApplied {
		t.Errorf("currentStatus changed to %s", got.CurrentStatus)
	}
	if got.SuggestedStatus == nil || *got.SuggestedStatus != domain.StatusGhosted {
		t.Errorf("suggestion not persisted: %+v", got)
	}
}

func TestReinferApplicationWrongUser(t *testing.T) {
	store := memstore.New()
	svc := newTestService(t, store, Options{})
	ctx := context.Background()

	app := &domain.Application{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		CompanyName:    "Acme",
		CurrentStatus:  domain.StatusApplied,
		LastActivityAt: time.Now().UTC(),
	}
	if err := store.Applications().Create(ctx, app); err != nil {
		t.Fatal(err)
	}

	_, err := svc.ReinferApplication(ctx, uuid.New(), app.ID)
	if err == nil {
		t.Fatal("expected not-found for foreign application")
	}
	if appErr := apperr.AsAppError(err); appErr == nil || appErr.Code != apperr.CodeNotFound {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}
