package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tracker_server/core/domain"
	"tracker_server/core/port/in"
	"tracker_server/core/port/out"
	"tracker_server/core/service/classify"
	"tracker_server/core/service/identity"
	"tracker_server/core/service/match"
	"tracker_server/core/service/status"
	"tracker_server/pkg/apperr"
	"tracker_server/pkg/logger"
	"tracker_server/pkg/snowflake"
)

const (
	// ledgerTTL bounds how long a processed message id is remembered.
	ledgerTTL = 30 * 24 * time.Hour

	// enrichmentCap is the ceiling for confidences coming from the
	// enricher; corroboration never outranks a structured subject match.
	enrichmentCap = 0.85

	// enrichBelow is the match confidence under which enrichment is tried.
	enrichBelow = 0.85
)

// Service runs the four pipeline stages for inbound messages and exposes
// standalone re-inference. It implements in.PipelineService.
type Service struct {
	store    out.Store
	bodies   out.BodyRepository   // optional
	ledger   out.ProcessedLedger  // optional
	enricher out.IdentityEnricher // optional

	classifier *classify.Classifier
	extractor  *identity.Extractor
	matcher    *match.Matcher
	engine     *status.Engine

	ids       *snowflake.Generator
	log       *logger.Logger
	locks     *keyedMutex
	ledgerTTL time.Duration
}

// Options carries the optional collaborators. The pipeline is fully
// functional with the zero value.
type Options struct {
	Bodies   out.BodyRepository
	Ledger   out.ProcessedLedger
	Enricher out.IdentityEnricher

	// LedgerTTL overrides how long processed message ids are remembered.
	LedgerTTL time.Duration
}

// NewService wires the pipeline. Nil stage services fall back to defaults.
func NewService(store out.Store, ids *snowflake.Generator, log *logger.Logger, opts Options) *Service {
	if opts.LedgerTTL <= 0 {
		opts.LedgerTTL = ledgerTTL
	}
	return &Service{
		store:      store,
		bodies:     opts.Bodies,
		ledger:     opts.Ledger,
		enricher:   opts.Enricher,
		classifier: classify.NewClassifier(nil),
		extractor:  identity.NewExtractor(nil),
		matcher:    match.NewMatcher(nil),
		engine:     status.NewEngine(nil),
		ids:        ids,
		log:        log.WithField("component", "pipeline"),
		locks:      newKeyedMutex(),
		ledgerTTL:  opts.LedgerTTL,
	}
}

// ProcessMessage runs classify, extract, match and infer for one message.
// Reprocessing the same message id recomputes attachment and status from
// scratch; only messages the ledger remembers as not job related are
// skipped, since classification is deterministic.
func (s *Service) ProcessMessage(ctx context.Context, msg *domain.InboundMessage) (*in.ProcessResult, error) {
	if msg == nil || msg.ID == "" {
		return nil, apperr.BadRequest("message id is required")
	}

	if s.ledger != nil {
		cached, err := s.ledger.Get(ctx, msg.ID)
		if err != nil {
			s.log.WithError(err).Warn("ledger lookup failed, reprocessing")
		} else if cached != nil && !cached.IsJobRelated {
			return &in.ProcessResult{Classification: cached}, nil
		}
	}

	classification := s.classifier.Classify(msg.Subject, msg.Snippet, msg.Sender)
	s.mark(ctx, msg.ID, &classification)
	if !classification.IsJobRelated {
		return &in.ProcessResult{Classification: &classification}, nil
	}

	body := s.loadBody(ctx, msg)
	id := s.extractor.Extract(msg.Subject, msg.Sender, msg.Snippet, body)
	s.enrich(ctx, msg, id)

	unlock := s.locks.Lock(msg.UserID.String())
	defer unlock()

	result := &in.ProcessResult{
		Classification: &classification,
		Identity:       id,
	}
	err := s.store.WithinTx(ctx, func(tx out.Store) error {
		event, prevAppID, err := s.upsertEvent(ctx, tx, msg, &classification)
		if err != nil {
			return err
		}
		result.Event = event

		matchResult, err := s.matcher.Match(ctx, tx, event, id)
		if err != nil {
			return err
		}
		result.Match = matchResult

		if matchResult.ApplicationID != nil {
			outcome, err := s.reinfer(ctx, tx, *matchResult.ApplicationID)
			if err != nil {
				return err
			}
			result.Status = outcome
		}

		// A reprocessed event may have moved; the application it left
		// behind needs its status recomputed too.
		if prevAppID != nil && (matchResult.ApplicationID == nil || *prevAppID != *matchResult.ApplicationID) {
			if _, err := s.reinfer(ctx, tx, *prevAppID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]any{
		"message_id": msg.ID,
		"event_type": classification.EventType,
		"action":     actionOf(result.Match),
	}).Info("message processed")
	return result, nil
}

// ReinferApplication recomputes one application's status from its full
// event history. Used after merges, manual event edits and triage actions.
func (s *Service) ReinferApplication(ctx context.Context, userID, applicationID uuid.UUID) (*in.ReinferResult, error) {
	unlock := s.locks.Lock(userID.String())
	defer unlock()

	var outcome *status.Outcome
	err := s.store.WithinTx(ctx, func(tx out.Store) error {
		app, err := tx.Applications().GetByID(ctx, applicationID)
		if err != nil {
			return err
		}
		if app == nil || app.UserID != userID {
			return apperr.NotFound("application")
		}
		outcome, err = s.reinferApp(ctx, tx, app)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &in.ReinferResult{}
	if outcome != nil {
		res.Inference = outcome.Inference
		res.Applied = outcome.Applied
		res.Suggested = outcome.Suggested
		res.Blocked = outcome.Blocked
		res.Reason = outcome.Reason
	}
	return res, nil
}

// upsertEvent inserts the event row on first sight and overwrites the
// re-classification fields in place on reprocessing. Returns the previous
// attachment so the caller can re-infer an abandoned application.
func (s *Service) upsertEvent(ctx context.Context, tx out.Store, msg *domain.InboundMessage, c *domain.ClassificationResult) (*domain.Event, *uuid.UUID, error) {
	event, err := tx.Events().GetByMessageID(ctx, msg.UserID, msg.ID)
	if err != nil {
		return nil, nil, err
	}

	if event == nil {
		event = &domain.Event{
			ID:                       s.ids.MustGenerate(),
			UserID:                   msg.UserID,
			MessageID:                msg.ID,
			DetectedType:             c.EventType,
			ConfidenceScore:          c.ConfidenceScore,
			ClassificationConfidence: c.ConfidenceScore,
			Sender:                   msg.Sender,
			Subject:                  msg.Subject,
			Snippet:                  msg.Snippet,
			InternalDate:             msg.ReceivedAt,
			CreatedAt:                time.Now().UTC(),
		}
		if err := tx.Events().Insert(ctx, event); err != nil {
			return nil, nil, err
		}
		return event, nil, nil
	}

	var prev *uuid.UUID
	if event.ApplicationID != nil {
		p := *event.ApplicationID
		prev = &p
	}
	event.DetectedType = c.EventType
	event.ConfidenceScore = c.ConfidenceScore
	event.ClassificationConfidence = c.ConfidenceScore
	event.Sender = msg.Sender
	event.Subject = msg.Subject
	event.Snippet = msg.Snippet
	event.InternalDate = msg.ReceivedAt
	if err := tx.Events().Update(ctx, event); err != nil {
		return nil, nil, err
	}
	return event, prev, nil
}

// reinfer loads the application and its events and applies the engine.
func (s *Service) reinfer(ctx context.Context, tx out.Store, applicationID uuid.UUID) (*status.Outcome, error) {
	app, err := tx.Applications().GetByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, apperr.NotFound("application")
	}
	return s.reinferApp(ctx, tx, app)
}

func (s *Service) reinferApp(ctx context.Context, tx out.Store, app *domain.Application) (*status.Outcome, error) {
	events, err := tx.Events().ListByApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inf := s.engine.Infer(app, events, now)
	outcome := s.engine.Apply(app, inf, now)

	if outcome.Applied || outcome.Suggested {
		if err := tx.Applications().Update(ctx, app); err != nil {
			return nil, err
		}
	}
	if outcome.Blocked {
		s.log.WithFields(map[string]any{
			"application_id": app.ID,
			"reason":         *outcome.Reason,
		}).Info("status change blocked")
	}
	return outcome, nil
}

// loadBody resolves the message body, preferring the inline text and
// falling back to the body store. Inline bodies are persisted so later
// reprocessing sees the same input.
func (s *Service) loadBody(ctx context.Context, msg *domain.InboundMessage) string {
	if msg.BodyText != "" {
		if s.bodies != nil {
			if err := s.bodies.Put(ctx, &out.MessageBody{MessageID: msg.ID, BodyText: msg.BodyText}); err != nil {
				s.log.WithError(err).Warn("body store write failed")
			}
		}
		return msg.BodyText
	}
	if s.bodies == nil {
		return ""
	}
	body, err := s.bodies.Get(ctx, msg.ID)
	if err != nil {
		s.log.WithError(err).Warn("body store read failed")
		return ""
	}
	if body == nil {
		return ""
	}
	return body.BodyText
}

// enrich merges corroborating fields from the enricher into a weak
// identity. Fields only fill gaps, confidences are capped, and a merge
// that would lower the match confidence is discarded wholesale.
func (s *Service) enrich(ctx context.Context, msg *domain.InboundMessage, id *domain.Identity) {
	if s.enricher == nil {
		return
	}
	if id.HasCompany() && id.MatchConfidence >= enrichBelow {
		return
	}

	enriched, err := s.enricher.Enrich(ctx, msg)
	if err != nil {
		s.log.WithError(err).Warn("enrichment failed, continuing without it")
		return
	}
	if enriched == nil {
		return
	}

	conf := enriched.Confidence
	if conf > enrichmentCap {
		conf = enrichmentCap
	}

	merged := *id
	if !merged.HasCompany() && enriched.CompanyName != "" {
		name := enriched.CompanyName
		merged.CompanyName = &name
		merged.CompanyConfidence = conf
	}
	if !merged.HasRole() && enriched.JobTitle != "" {
		title := enriched.JobTitle
		merged.JobTitle = &title
		merged.RoleConfidence = conf
	}
	identity.Rescore(&merged)
	if merged.MatchConfidence < id.MatchConfidence {
		return
	}
	*id = merged
}

func (s *Service) mark(ctx context.Context, messageID string, c *domain.ClassificationResult) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Mark(ctx, messageID, c, s.ledgerTTL); err != nil {
		s.log.WithError(err).Warn("ledger write failed")
	}
}

func actionOf(m *domain.MatchResult) string {
	if m == nil {
		return ""
	}
	return string(m.Action)
}
