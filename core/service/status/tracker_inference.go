package status

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"tracker_server/core/domain"
)

// Config holds the inference thresholds.
type Config struct {
	// CandidateFloor is the minimum classification confidence for an event
	// to produce a status candidate at all.
	CandidateFloor float64

	// AutoApplyThreshold separates auto-applied results from suggestions.
	AutoApplyThreshold float64

	// GhostedAfter is the inactivity window before a stale application is
	// suggested as ghosted.
	GhostedAfter time.Duration

	// GhostedConfidence is the fixed confidence of a ghosted suggestion.
	GhostedConfidence float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() *Config {
	return &Config{
		CandidateFloor:     0.70,
		AutoApplyThreshold: 0.90,
		GhostedAfter:       21 * 24 * time.Hour,
		GhostedConfidence:  0.75,
	}
}

// Inference is the computed status for one application.
type Inference struct {
	Status        domain.ApplicationStatus `json:"status"`
	Confidence    float64                  `json:"confidence"`
	Explanation   string                   `json:"explanation"`
	SuggestedOnly bool                     `json:"suggested_only"`
	EventIDs      []int64                  `json:"event_ids"`
}

// Outcome reports what applying an inference did to the application.
type Outcome struct {
	Applied   bool               `json:"applied"`
	Suggested bool               `json:"suggested"`
	Blocked   bool               `json:"blocked"`
	Reason    *domain.ReasonCode `json:"reason,omitempty"`
	Inference *Inference         `json:"inference,omitempty"`
}

// Engine derives an application's status from its attached events and
// applies it under the regression and override guards.
type Engine struct {
	cfg *Config
}

// NewEngine creates an engine. A nil config falls back to defaults.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// completionPhrases raise an interview event from requested to completed.
// They only appear after the interview happened.
var completionPhrases = []string{
	"thank you for interviewing",
	"thanks for interviewing",
	"thank you for taking the time to interview",
	"great speaking with you",
	"great talking with you",
	"it was a pleasure speaking with you",
	"following your interview",
	"following up on your interview",
	"after your interview",
}

// candidateFor maps one event to a status candidate, or "" when the event
// type carries no lifecycle signal (recruiter outreach, catch-alls).
func candidateFor(event *domain.Event) domain.ApplicationStatus {
	switch event.DetectedType {
	case domain.EventConfirmation:
		return domain.StatusApplied
	case domain.EventUnderReview:
		return domain.StatusUnderReview
	case domain.EventInterview:
		text := strings.ToLower(event.Subject + " " + event.Snippet)
		for _, phrase := range completionPhrases {
			if strings.Contains(text, phrase) {
				return domain.StatusInterviewCompleted
			}
		}
		return domain.StatusInterviewRequested
	case domain.EventRejection:
		return domain.StatusRejected
	case domain.EventOffer:
		return domain.StatusOfferReceived
	default:
		return ""
	}
}

// Infer computes the status for an application from its full event history.
// A best candidate that cannot move the status anymore (it already is the
// status, or would regress) leaves the application waiting, so a stale
// waiting application falls through to the ghosted suggestion. Returns nil
// when no event yields a candidate and the application is not stale enough
// to ghost.
func (e *Engine) Infer(app *domain.Application, events []*domain.Event, now time.Time) *Inference {
	type candidate struct {
		status     domain.ApplicationStatus
		confidence float64
		eventIDs   []int64
	}
	byStatus := make(map[domain.ApplicationStatus]*candidate)

	for _, event := range events {
		if event.ClassificationConfidence < e.cfg.CandidateFloor {
			continue
		}
		status := candidateFor(event)
		if status == "" {
			continue
		}
		c, ok := byStatus[status]
		if !ok {
			c = &candidate{status: status}
			byStatus[status] = c
		}
		c.eventIDs = append(c.eventIDs, event.ID)
		if event.ClassificationConfidence > c.confidence {
			c.confidence = event.ClassificationConfidence
		}
	}

	if len(byStatus) == 0 {
		return e.ghostedSuggestion(app, now)
	}

	candidates := make([]*candidate, 0, len(byStatus))
	for _, c := range byStatus {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		pi, pj := candidates[i].status.Priority(), candidates[j].status.Priority()
		if pi != pj {
			return pi > pj
		}
		return candidates[i].confidence > candidates[j].confidence
	})
	best := candidates[0]

	sort.Slice(best.eventIDs, func(i, j int) bool { return best.eventIDs[i] < best.eventIDs[j] })
	inf := &Inference{
		Status:        best.status,
		Confidence:    best.confidence,
		Explanation:   fmt.Sprintf("%d event(s) indicate %s, strongest at %.2f", len(best.eventIDs), best.status, best.confidence),
		SuggestedOnly: best.confidence < e.cfg.AutoApplyThreshold,
		EventIDs:      best.eventIDs,
	}

	if r := e.blockReason(app, inf); r != nil &&
		(*r == domain.ReasonSameStatus || *r == domain.ReasonRegression) {
		if ghost := e.ghostedSuggestion(app, now); ghost != nil {
			return ghost
		}
	}
	return inf
}

// ghostedSuggestion produces a GHOSTED suggestion for applications that
// went quiet while waiting on the employer.
func (e *Engine) ghostedSuggestion(app *domain.Application, now time.Time) *Inference {
	if app.CurrentStatus != domain.StatusApplied && app.CurrentStatus != domain.StatusUnderReview {
		return nil
	}
	idle := now.Sub(app.LastActivityAt)
	if idle < e.cfg.GhostedAfter {
		return nil
	}
	return &Inference{
		Status:        domain.StatusGhosted,
		Confidence:    e.cfg.GhostedConfidence,
		Explanation:   fmt.Sprintf("no activity for %d days while %s", int(idle.Hours()/24), app.CurrentStatus),
		SuggestedOnly: true,
	}
}

// Apply mutates the application according to the inference and the guards.
// Blocked attempts carry a reason and are not errors; the caller persists
// the application afterwards when Applied or Suggested is set.
func (e *Engine) Apply(app *domain.Application, inf *Inference, now time.Time) *Outcome {
	if inf == nil {
		return &Outcome{}
	}
	out := &Outcome{Inference: inf}

	if reason := e.blockReason(app, inf); reason != nil {
		out.Blocked = true
		out.Reason = reason
		return out
	}

	if inf.SuggestedOnly {
		s := inf.Status
		app.SuggestedStatus = &s
		app.SuggestedConfidence = inf.Confidence
		app.UpdatedAt = now
		out.Suggested = true
		return out
	}

	app.CurrentStatus = inf.Status
	app.StatusConfidence = inf.Confidence
	app.StatusSource = domain.StatusSourceInferred
	app.SuggestedStatus = nil
	app.SuggestedConfidence = 0
	app.UpdatedAt = now
	out.Applied = true
	return out
}

// blockReason evaluates the guards in order. A nil return means the change
// may proceed.
func (e *Engine) blockReason(app *domain.Application, inf *Inference) *domain.ReasonCode {
	reason := func(r domain.ReasonCode) *domain.ReasonCode { return &r }

	if inf.Status == app.CurrentStatus {
		return reason(domain.ReasonSameStatus)
	}
	if app.UserOverride {
		return reason(domain.ReasonUserOverride)
	}
	if app.CurrentStatus.IsTerminal() {
		// The one allowed reversal: a rescinded offer, when the new
		// evidence is at least as strong as what set the offer.
		if app.CurrentStatus == domain.StatusOfferReceived &&
			inf.Status == domain.StatusRejected &&
			inf.Confidence >= app.StatusConfidence {
			return nil
		}
		return reason(domain.ReasonTerminalStatus)
	}
	if inf.Status.Priority() < app.CurrentStatus.Priority() {
		// Ghosting on top of a waiting state is the only sanctioned
		// downgrade.
		if inf.Status == domain.StatusGhosted &&
			(app.CurrentStatus == domain.StatusApplied || app.CurrentStatus == domain.StatusUnderReview) {
			return nil
		}
		return reason(domain.ReasonRegression)
	}
	return nil
}
