package identity

import (
	"fmt"
	"regexp"
	"strings"

	"tracker_server/core/domain"
)

// =============================================================================
// Identity Extractor
// =============================================================================

// Confidence assigned per extraction path. Subject templates are the most
// trustworthy because both fields come from one unambiguous pattern;
// signatures are the noisiest.
const (
	confSubjectCompany = 0.95
	confSubjectRole    = 0.93
	confDisplayName    = 0.80
	confDomainLabel    = 0.85
	confSignature      = 0.85
	confBodyRole       = 0.85

	confDomainExact   = 0.95
	confDomainPartial = 0.85
	confDomainATS     = 0.70
	confDomainUnknown = 0.50
	confDomainFree    = 0.30

	// neutralRole stands in for role confidence when no role was found. It
	// is deliberately above the exact-match threshold: a missing role is
	// neutral evidence and must not block matching on its own.
	neutralRole = 0.90
)

// Structured subject templates. Both fields from one template get the
// highest confidence. Order matters: "applying to COMPANY for ROLE" must
// run before the generic "for ROLE at COMPANY".
var (
	subjApplyToForRe  = regexp.MustCompile(`(?i)(?:applying|application|applied)\s+(?:to|at|with)\s+([^,:;]+?)\s+for\s+(?:the\s+)?([^,:;]+)$`)
	subjRoleAtRe      = regexp.MustCompile(`(?i)\bfor\s+(?:the\s+)?([^,:;]+?)\s+at\s+([^,:;]+)$`)
	subjLabeledRoleRe = regexp.MustCompile(`(?i)\b(?:position|role)\s*:\s*([^,:;]+?)\s+at\s+([^,:;]+)$`)
	subjCompanyOnlyRe = regexp.MustCompile(`(?i)\b(?:application|applying|interview|offer|candidacy)\s+(?:at|with|to)\s+([^,:;]+)$`)
)

// Role-only patterns, applied to subject first, body second. The anchored
// "for the X position" form runs before the looser "application for X" so a
// sentence carrying both yields the tighter capture.
var rolePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bposition of\s+([^,.;:\n]+)`),
	regexp.MustCompile(`(?i)\bfor the\s+([^,.;:\n]+?)\s+(?:position|role|opening)\b`),
	regexp.MustCompile(`(?i)\bapplication for\s+(?:the\s+)?([^,.;:\n]+)`),
}

var trailingRoleNoiseRe = regexp.MustCompile(`(?i)\s+(position|role|opening|job)$`)

// Extractor derives identities from message text using injected tables.
// It has no I/O and never errors.
type Extractor struct {
	tables *Tables
}

// NewExtractor creates an extractor. A nil tables falls back to defaults.
func NewExtractor(tables *Tables) *Extractor {
	if tables == nil {
		tables = DefaultTables()
	}
	return &Extractor{tables: tables}
}

// Extract derives the identity for one message. First success wins per
// field; later steps only fill fields still missing.
func (e *Extractor) Extract(subject, sender, snippet, bodyText string) *domain.Identity {
	id := &domain.Identity{}
	var notes []string

	displayName, address := parseSender(sender)
	if dom := senderDomain(address); dom != "" {
		id.SenderDomain = &dom
	}

	// Step 1: structured subject templates (company and role together).
	if company, role, ok := e.matchSubject(subject); ok {
		id.CompanyName = &company
		id.CompanyConfidence = confSubjectCompany
		notes = append(notes, "company from subject template")
		if role != "" {
			id.JobTitle = &role
			id.RoleConfidence = confSubjectRole
			notes = append(notes, "role from subject template")
		}
	}

	// Step 2: company from sender display name or domain label.
	if !id.HasCompany() {
		if name := companyFromDisplayName(displayName, e.tables); name != "" {
			id.CompanyName = &name
			id.CompanyConfidence = confDisplayName
			notes = append(notes, "company from sender display name")
		}
	}
	if !id.HasCompany() && id.SenderDomain != nil {
		label := baseLabel(*id.SenderDomain, e.tables.MailPlatformPrefixes)
		if label != "" && !e.tables.ATSDomains[label] && !e.tables.FreeMailDomains[label] {
			name := titleFromLabel(label)
			if looksLikeCompany(name, e.tables.CompanyDenyPhrases) {
				id.CompanyName = &name
				id.CompanyConfidence = confDomainLabel
				notes = append(notes, "company from sender domain")
			}
		}
	}

	// Step 3: signature block, when a body is available.
	if !id.HasCompany() {
		body := bodyText
		if body == "" {
			body = snippet
		}
		if company := scanSignature(body, e.tables); company != "" {
			id.CompanyName = &company
			id.CompanyConfidence = confSignature
			notes = append(notes, "company from signature block")
		}
	}

	// Step 4: role, separately, when the subject template did not carry it.
	if !id.HasRole() {
		if role, src := e.extractRole(subject, snippet, bodyText); role != "" {
			id.JobTitle = &role
			id.RoleConfidence = confBodyRole
			notes = append(notes, "role from "+src)
		}
	}

	// Step 5: domain confidence against the extracted company.
	id.DomainConfidence, id.IsATSDomain = e.domainConfidence(id)
	if id.IsATSDomain {
		notes = append(notes, "ats sender domain")
	}

	id.MatchConfidence = matchConfidence(id)
	id.Explanation = strings.Join(notes, "; ")
	if id.Explanation == "" {
		id.Explanation = "no identity signal found"
	}
	return id
}

// matchSubject tries the structured subject templates.
func (e *Extractor) matchSubject(subject string) (company, role string, ok bool) {
	if m := subjApplyToForRe.FindStringSubmatch(subject); m != nil {
		company, role = cleanExtracted(m[1]), e.cleanRole(m[2])
		if looksLikeCompany(company, e.tables.CompanyDenyPhrases) {
			return company, role, true
		}
	}
	if m := subjLabeledRoleRe.FindStringSubmatch(subject); m != nil {
		company, role = cleanExtracted(m[2]), e.cleanRole(m[1])
		if looksLikeCompany(company, e.tables.CompanyDenyPhrases) {
			return company, role, true
		}
	}
	if m := subjRoleAtRe.FindStringSubmatch(subject); m != nil {
		company, role = cleanExtracted(m[2]), e.cleanRole(m[1])
		if looksLikeCompany(company, e.tables.CompanyDenyPhrases) {
			return company, role, true
		}
	}
	if m := subjCompanyOnlyRe.FindStringSubmatch(subject); m != nil {
		company = cleanExtracted(m[1])
		if looksLikeCompany(company, e.tables.CompanyDenyPhrases) {
			return company, "", true
		}
	}
	return "", "", false
}

// extractRole scans subject then body for role-only phrasing.
func (e *Extractor) extractRole(subject, snippet, bodyText string) (role, source string) {
	for _, re := range rolePatterns {
		if m := re.FindStringSubmatch(subject); m != nil {
			if r := e.cleanRole(m[1]); r != "" {
				return r, "subject"
			}
		}
	}
	body := bodyText
	if body == "" {
		body = snippet
	}
	for _, re := range rolePatterns {
		if m := re.FindStringSubmatch(body); m != nil {
			if r := e.cleanRole(m[1]); r != "" {
				return r, "body"
			}
		}
	}
	return "", ""
}

// cleanRole sanitizes an extracted role and rejects generic placeholders.
// Returns "" when the candidate is unusable.
func (e *Extractor) cleanRole(raw string) string {
	role := cleanExtracted(raw)
	role = trailingRoleNoiseRe.ReplaceAllString(role, "")
	role = strings.TrimSpace(role)

	if len(role) < 3 || len(role) > 60 {
		return ""
	}
	lower := strings.ToLower(role)
	if e.tables.GenericRoles[lower] {
		return ""
	}
	// Every word generic means the whole phrase is a placeholder
	// ("the open position").
	allGeneric := true
	for _, w := range strings.Fields(lower) {
		if !e.tables.GenericRoles[w] {
			allGeneric = false
			break
		}
	}
	if allGeneric {
		return ""
	}
	return role
}

// domainConfidence compares the company slug against the sender domain's
// base label. ATS domains never equal the employer's domain by design and
// get a fixed moderate floor instead.
func (e *Extractor) domainConfidence(id *domain.Identity) (float64, bool) {
	if id.SenderDomain == nil {
		return 0, false
	}
	label := baseLabel(*id.SenderDomain, e.tables.MailPlatformPrefixes)

	isATS := e.tables.ATSDomains[label]
	if !isATS {
		for _, l := range strings.Split(*id.SenderDomain, ".") {
			if e.tables.ATSDomains[l] {
				isATS = true
				break
			}
		}
	}
	if isATS {
		return confDomainATS, true
	}
	if e.tables.FreeMailDomains[label] {
		return confDomainFree, false
	}
	if !id.HasCompany() {
		return confDomainUnknown, false
	}

	companySlug := slugify(*id.CompanyName)
	domainSlug := slugify(label)
	switch {
	case companySlug == "" || domainSlug == "":
		return confDomainUnknown, false
	case companySlug == domainSlug:
		return confDomainExact, false
	case strings.Contains(companySlug, domainSlug) || strings.Contains(domainSlug, companySlug):
		return confDomainPartial, false
	default:
		return confDomainUnknown, false
	}
}

// matchConfidence is conjunctive: the minimum of company, role-or-neutral,
// and domain confidence. Any single weak signal caps the identity.
func matchConfidence(id *domain.Identity) float64 {
	roleConf := neutralRole
	if id.HasRole() {
		roleConf = id.RoleConfidence
	}
	min := id.CompanyConfidence
	if roleConf < min {
		min = roleConf
	}
	if id.DomainConfidence < min {
		min = id.DomainConfidence
	}
	if min < 0 {
		min = 0
	}
	return min
}

// Rescore recomputes MatchConfidence after identity fields changed, for
// callers that merge in corroborating fields from enrichment.
func Rescore(id *domain.Identity) {
	id.MatchConfidence = matchConfidence(id)
}

// Describe renders a short debug string for logs and triage output.
func Describe(id *domain.Identity) string {
	company, role := "-", "-"
	if id.HasCompany() {
		company = *id.CompanyName
	}
	if id.HasRole() {
		role = *id.JobTitle
	}
	return fmt.Sprintf("company=%q(%.2f) role=%q(%.2f) domain=%.2f match=%.2f",
		company, id.CompanyConfidence, role, id.RoleConfidence, id.DomainConfidence, id.MatchConfidence)
}
