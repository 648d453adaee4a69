// Package identity derives (company, role, domain) tuples with per-field
// confidences from message text. Extraction never errors: a missing signal
// is a nil field with low confidence. Null is better than a guess.
package identity

// =============================================================================
// Extraction Tables
// =============================================================================

// Tables is the immutable extraction configuration. Loaded once at startup
// and injected read-only, so tests can substitute their own entries.
type Tables struct {
	// ATSDomains are applicant-tracking-system base domains. Mail from an
	// ATS never matches the employer's own domain by design, so these get a
	// fixed moderate domain confidence instead of a string comparison.
	ATSDomains map[string]bool

	// FreeMailDomains host personal mailboxes; a company derived from one
	// is untrustworthy.
	FreeMailDomains map[string]bool

	// MailPlatformPrefixes are subdomain labels that carry no identity
	// signal and are stripped before the base label is read.
	MailPlatformPrefixes []string

	// CompanyDenyPhrases are greeting-like or generic phrases that must not
	// become a company name ("Hi Shane", "Do Not Reply").
	CompanyDenyPhrases []string

	// GenericRoles are placeholders rejected during role extraction.
	GenericRoles map[string]bool
}

// DefaultTables returns the built-in extraction tables.
func DefaultTables() *Tables {
	return &Tables{
		ATSDomains: map[string]bool{
			"greenhouse":     true,
			"greenhouse-io":  true,
			"lever":          true,
			"hire":           true,
			"workday":        true,
			"myworkday":      true,
			"icims":          true,
			"smartrecruiters": true,
			"jobvite":        true,
			"ashbyhq":        true,
			"bamboohr":       true,
			"breezy":         true,
			"workable":       true,
			"recruitee":      true,
			"successfactors": true,
			"taleo":          true,
			"oraclecloud":    true,
			"paylocity":      true,
			"adp":            true,
			"rippling":       true,
			"dover":          true,
			"hireright":      true,
		},
		FreeMailDomains: map[string]bool{
			"gmail":      true,
			"googlemail": true,
			"yahoo":      true,
			"outlook":    true,
			"hotmail":    true,
			"live":       true,
			"aol":        true,
			"icloud":     true,
			"proton":     true,
			"protonmail": true,
			"mail":       true,
			"gmx":        true,
		},
		MailPlatformPrefixes: []string{
			"mail", "email", "e", "mx", "smtp", "mta", "bounce", "bounces",
			"notify", "notification", "notifications", "no-reply", "noreply",
			"news", "info", "hello", "talent", "careers", "jobs", "hr",
			"recruiting", "apply", "applications", "candidates", "us", "eu",
		},
		CompanyDenyPhrases: []string{
			"hi ", "hello", "hey ", "dear ", "greetings",
			"thank you", "thanks", "congratulations",
			"no reply", "no-reply", "noreply", "do not reply", "donotreply",
			"notification", "notifications", "alert", "update", "updates",
			"team", "support", "admin", "mailer", "daemon",
			"your application", "application", "interview", "important",
		},
		GenericRoles: map[string]bool{
			"position":    true,
			"role":        true,
			"job":         true,
			"opening":     true,
			"opportunity": true,
			"jr":          true,
			"sr":          true,
			"the":         true,
			"a":           true,
			"an":          true,
			"this":        true,
			"new":         true,
			"open":        true,
		},
	}
}
