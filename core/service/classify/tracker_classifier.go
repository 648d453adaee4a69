package classify

import (
	"strings"

	"tracker_server/core/domain"
)

// =============================================================================
// Classifier
// =============================================================================

// Classifier maps free text to a lifecycle event with a confidence. It is a
// pure function over its inputs: no I/O, deterministic, never errors.
type Classifier struct {
	rules *RuleSet
}

// NewClassifier creates a classifier over the given rule set. A nil rule
// set falls back to the defaults.
func NewClassifier(rules *RuleSet) *Classifier {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Classifier{rules: rules}
}

// Classify evaluates one message. The denylist always wins; otherwise the
// first rule with any matching pattern decides the event type.
func (c *Classifier) Classify(subject, snippet, sender string) domain.ClassificationResult {
	blob := normalize(subject + " " + snippet + " " + sender)

	for _, deny := range c.rules.DenyPatterns {
		if strings.Contains(blob, deny) {
			return domain.ClassificationResult{
				IsJobRelated:    false,
				ConfidenceScore: 0.95,
				Explanation:     "denylist match: " + deny,
			}
		}
	}

	for _, rule := range c.rules.Rules {
		for _, pattern := range rule.Patterns {
			if strings.Contains(blob, pattern) {
				return domain.ClassificationResult{
					IsJobRelated:    true,
					EventType:       rule.Type,
					ConfidenceScore: rule.Confidence,
					Explanation:     rule.Explanation + ": " + pattern,
				}
			}
		}
	}

	return domain.ClassificationResult{
		IsJobRelated:    false,
		ConfidenceScore: 0.0,
		Explanation:     "no job-related signal matched",
	}
}

// normalize lowercases and collapses whitespace so pattern matching sees one
// canonical form.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
