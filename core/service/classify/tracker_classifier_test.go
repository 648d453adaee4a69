package classify

import (
	"testing"

	"tracker_server/core/domain"
)

// TestClassifier tests the ordered rule evaluation.
func TestClassifier(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name           string
		subject        string
		snippet        string
		sender         string
		wantJobRelated bool
		wantType       domain.EventType
		wantMinScore   float64
	}{
		{
			name:           "application confirmation",
			subject:        "Thank you for applying to Acme for Software Engineer",
			snippet:        "We'll be in touch soon.",
			sender:         "jobs@acme.com",
			wantJobRelated: true,
			wantType:       domain.EventConfirmation,
			wantMinScore:   0.90,
		},
		{
			name:           "rejection",
			subject:        "Update on your application",
			snippet:        "Unfortunately we are not moving forward with your candidacy.",
			sender:         "jobs@acme.com",
			wantJobRelated: true,
			wantType:       domain.EventRejection,
			wantMinScore:   0.90,
		},
		{
			name:           "rejection wins over confirmation language",
			subject:        "Thank you for your interest in Acme",
			snippet:        "Unfortunately we have decided to move forward with other candidates.",
			sender:         "no-reply@acme.com",
			wantJobRelated: true,
			wantType:       domain.EventRejection,
			wantMinScore:   0.90,
		},
		{
			name:           "interview invite",
			subject:        "Next steps: schedule an interview",
			snippet:        "Please pick a slot that works for you.",
			sender:         "recruiting@globex.io",
			wantJobRelated: true,
			wantType:       domain.EventInterview,
			wantMinScore:   0.90,
		},
		{
			name:           "offer",
			subject:        "Your offer of employment at Initech",
			snippet:        "We are pleased to offer you the position.",
			sender:         "hr@initech.com",
			wantJobRelated: true,
			wantType:       domain.EventOffer,
			wantMinScore:   0.90,
		},
		{
			name:           "under review",
			subject:        "Application status update",
			snippet:        "Your application is under review by the hiring team.",
			sender:         "noreply@hired.example",
			wantJobRelated: true,
			wantType:       domain.EventUnderReview,
			wantMinScore:   0.80,
		},
		{
			name:           "recruiter outreach",
			subject:        "Exciting opportunity",
			snippet:        "I came across your profile and think you'd be a great fit.",
			sender:         "sam@agency.example",
			wantJobRelated: true,
			wantType:       domain.EventRecruiterOutreach,
			wantMinScore:   0.70,
		},
		{
			name:           "generic job related",
			subject:        "A note from the hiring team",
			snippet:        "Thanks for your patience during the hiring process.",
			sender:         "people@startup.example",
			wantJobRelated: true,
			wantType:       domain.EventOtherJobRelated,
			wantMinScore:   0.50,
		},
		{
			name:           "unrelated email",
			subject:        "Dinner on Friday?",
			snippet:        "Let me know if you can make it.",
			sender:         "friend@gmail.com",
			wantJobRelated: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject, tt.snippet, tt.sender)

			if got.IsJobRelated != tt.wantJobRelated {
				t.Fatalf("IsJobRelated = %v, want %v (%s)", got.IsJobRelated, tt.wantJobRelated, got.Explanation)
			}
			if !tt.wantJobRelated {
				return
			}
			if got.EventType != tt.wantType {
				t.Errorf("EventType = %s, want %s (%s)", got.EventType, tt.wantType, got.Explanation)
			}
			if got.ConfidenceScore < tt.wantMinScore {
				t.Errorf("ConfidenceScore = %.2f, want >= %.2f", got.ConfidenceScore, tt.wantMinScore)
			}
		})
	}
}

// TestClassifierDenylistWins verifies the denylist overrides any rule match,
// even when the text also carries strong job signals.
func TestClassifierDenylistWins(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name    string
		subject string
		snippet string
	}{
		{
			name:    "newsletter with offer language",
			subject: "Your weekly digest: companies pleased to offer you interviews",
			snippet: "Top picks this week.",
		},
		{
			name:    "job alert with confirmation language",
			subject: "New jobs matching Software Engineer",
			snippet: "Thank you for applying matters less than these 20 new roles.",
		},
		{
			name:    "promo",
			subject: "Flash sale: 50% off resume reviews",
			snippet: "Schedule an interview coach today.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.subject, tt.snippet, "noreply@example.com")
			if got.IsJobRelated {
				t.Errorf("IsJobRelated = true, want false (%s)", got.Explanation)
			}
		})
	}
}

// TestClassifierDeterministic verifies identical input yields identical
// output across repeated calls.
func TestClassifierDeterministic(t *testing.T) {
	c := NewClassifier(nil)

	first := c.Classify("Thank you for applying to Acme", "We received your application.", "jobs@acme.com")
	for i := 0; i < 50; i++ {
		got := c.Classify("Thank you for applying to Acme", "We received your application.", "jobs@acme.com")
		if got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

// TestClassifierCustomRules verifies rule tables are injectable.
func TestClassifierCustomRules(t *testing.T) {
	c := NewClassifier(&RuleSet{
		Rules: []Rule{
			{Type: domain.EventOffer, Confidence: 0.99, Explanation: "custom", Patterns: []string{"golden ticket"}},
		},
	})

	got := c.Classify("You found the golden ticket", "", "wonka@factory.example")
	if !got.IsJobRelated || got.EventType != domain.EventOffer {
		t.Fatalf("custom rule not applied: %+v", got)
	}

	got = c.Classify("Thank you for applying", "", "jobs@acme.com")
	if got.IsJobRelated {
		t.Fatalf("default rules leaked into custom set: %+v", got)
	}
}
