// Package classify implements the rule-based job email classifier.
//
// Classification is a two-step decision:
//
//	Step 1: Denylist  → newsletter/promotional markers short-circuit to
//	                    "not job related", regardless of later signals.
//	Step 2: Rule list → ordered by precedence; the first rule with any
//	                    matching pattern wins.
//
// Rule ordering encodes precedence, not score: rejection and offer signals
// are checked before weaker catch-alls because employers routinely reuse
// confirmation language inside rejection emails.
package classify

import "tracker_server/core/domain"

// =============================================================================
// Rule Tables
// =============================================================================

// Rule maps a set of alternative text patterns to one event type with a
// fixed confidence. Patterns are lowercase substrings.
type Rule struct {
	Type        domain.EventType
	Confidence  float64
	Explanation string
	Patterns    []string
}

// RuleSet is the immutable, process-wide classifier configuration. It is
// loaded once at startup and injected read-only, so tests can substitute
// their own tables.
type RuleSet struct {
	// DenyPatterns mark bulk/promotional mail. Any hit wins over every rule.
	DenyPatterns []string

	// Rules are evaluated in order; rules are mutually exclusive by
	// construction, not by score.
	Rules []Rule
}

// DefaultRuleSet returns the built-in classification tables.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		DenyPatterns: []string{
			"unsubscribe from this newsletter",
			"newsletter",
			"weekly digest",
			"daily digest",
			"job alert",
			"jobs for you",
			"recommended jobs",
			"new jobs matching",
			"who's viewed your profile",
			"premium free for",
			"% off",
			"flash sale",
			"special offer just for you",
			"promotional",
			"webinar invitation",
			"career fair",
		},
		Rules: []Rule{
			{
				Type:        domain.EventOffer,
				Confidence:  0.93,
				Explanation: "offer language detected",
				Patterns: []string{
					"pleased to offer you",
					"excited to offer you",
					"offer of employment",
					"job offer",
					"extend an offer",
					"offer letter",
					"formal offer",
					"congratulations! we would like",
				},
			},
			{
				Type:        domain.EventRejection,
				Confidence:  0.92,
				Explanation: "rejection language detected",
				Patterns: []string{
					"unfortunately",
					"not moving forward",
					"not to move forward",
					"decided to move forward with other",
					"pursue other candidates",
					"will not be progressing",
					"no longer under consideration",
					"position has been filled",
					"regret to inform",
					"not selected",
					"unable to offer you",
				},
			},
			{
				Type:        domain.EventInterview,
				Confidence:  0.91,
				Explanation: "interview language detected",
				Patterns: []string{
					"schedule an interview",
					"schedule a call",
					"interview invitation",
					"invite you to interview",
					"would like to interview",
					"phone screen",
					"technical interview",
					"onsite interview",
					"final round",
					"interview availability",
					"book a time",
					"coding challenge",
					"online assessment",
					"take-home assignment",
				},
			},
			{
				Type:        domain.EventConfirmation,
				Confidence:  0.93,
				Explanation: "application confirmation detected",
				Patterns: []string{
					"thank you for applying",
					"thanks for applying",
					"application received",
					"we received your application",
					"we have received your application",
					"your application has been received",
					"application was sent",
					"successfully submitted",
					"application confirmation",
					"thank you for your application",
				},
			},
			{
				Type:        domain.EventUnderReview,
				Confidence:  0.85,
				Explanation: "review-in-progress language detected",
				Patterns: []string{
					"under review",
					"being reviewed",
					"currently reviewing",
					"reviewing your application",
					"application status update",
					"still in consideration",
					"shortlisted",
				},
			},
			{
				Type:        domain.EventRecruiterOutreach,
				Confidence:  0.78,
				Explanation: "recruiter outreach detected",
				Patterns: []string{
					"came across your profile",
					"your background caught",
					"i'm a recruiter",
					"we're hiring",
					"opportunity that might interest you",
					"exciting opportunity",
					"open role at",
					"are you open to",
					"talent acquisition reaching out",
				},
			},
			{
				Type:        domain.EventOtherJobRelated,
				Confidence:  0.60,
				Explanation: "generic job-related language detected",
				Patterns: []string{
					"your application",
					"your candidacy",
					"hiring process",
					"hiring team",
					"recruiting team",
					"talent acquisition",
					"job application",
					"our open position",
					"this position",
					"next steps in the process",
				},
			},
		},
	}
}
