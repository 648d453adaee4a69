package identity

import (
	"regexp"
	"strings"
)

// =============================================================================
// Text Normalization Helpers
// =============================================================================

var (
	displayNameRe = regexp.MustCompile(`^\s*"?([^"<]+?)"?\s*<[^>]+>\s*$`)
	addressRe     = regexp.MustCompile(`<([^>]+)>`)
	nonSlugRe     = regexp.MustCompile(`[^a-z0-9]+`)
	reqIDRe       = regexp.MustCompile(`(?i)[\(\[]?\s*(?:req|requisition|job)\s*(?:id)?\s*[#:]?\s*[A-Z0-9-]{3,}\s*[\)\]]?`)
)

// parseSender splits a raw sender header into display name and bare address.
// "Acme Recruiting <jobs@acme.com>" → ("Acme Recruiting", "jobs@acme.com").
func parseSender(sender string) (displayName, address string) {
	sender = strings.TrimSpace(sender)
	if m := addressRe.FindStringSubmatch(sender); m != nil {
		address = strings.ToLower(strings.TrimSpace(m[1]))
	} else if strings.Contains(sender, "@") {
		address = strings.ToLower(sender)
	}
	if m := displayNameRe.FindStringSubmatch(sender); m != nil {
		displayName = strings.TrimSpace(m[1])
	}
	return displayName, address
}

// senderDomain returns the domain part of an email address, lowercased.
func senderDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 || at == len(address)-1 {
		return ""
	}
	return strings.ToLower(address[at+1:])
}

// secondLevelTLDs are TLD pairs where the registrable label sits one level
// deeper ("acme.co.uk" → "acme").
var secondLevelTLDs = map[string]bool{
	"co": true, "com": true, "org": true, "net": true, "ac": true, "gov": true,
}

// baseLabel returns the registrable label of a domain with mail-platform
// prefixes stripped. "mail.acme.com" → "acme", "acme.co.uk" → "acme".
func baseLabel(domain string, platformPrefixes []string) string {
	labels := strings.Split(strings.ToLower(domain), ".")

	// Strip leading platform labels ("mail", "notifications", ...).
	for len(labels) > 2 {
		stripped := false
		for _, p := range platformPrefixes {
			if labels[0] == p {
				labels = labels[1:]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	if len(labels) < 2 {
		if len(labels) == 1 {
			return labels[0]
		}
		return ""
	}

	// Drop the TLD; handle "co.uk"-style second-level TLDs.
	idx := len(labels) - 2
	if idx > 0 && secondLevelTLDs[labels[idx]] && len(labels[len(labels)-1]) == 2 {
		idx--
	}
	return labels[idx]
}

// slugify lowers a name to a comparable slug: "Embrace Psychiatric Wellness
// Center" → "embracepsychiatricwellnesscenter".
func slugify(name string) string {
	return nonSlugRe.ReplaceAllString(strings.ToLower(name), "")
}

// cleanExtracted trims punctuation, req-id noise and excess whitespace from
// an extracted company or role string.
func cleanExtracted(s string) string {
	s = reqIDRe.ReplaceAllString(s, "")
	s = strings.Trim(s, " \t\r\n.,;:!?-–—\"'()[]")
	return strings.Join(strings.Fields(s), " ")
}

// looksLikeCompany rejects greeting-like or generic phrases that must not
// become a company name.
func looksLikeCompany(name string, denyPhrases []string) bool {
	if len(name) < 2 || len(name) > 80 {
		return false
	}
	lower := strings.ToLower(name)
	for _, phrase := range denyPhrases {
		if strings.HasPrefix(lower, phrase) || lower == strings.TrimSpace(phrase) {
			return false
		}
	}
	// A bare email address or URL is not a company.
	if strings.ContainsAny(name, "@/") {
		return false
	}
	return true
}

// Trailing org words on a display name carry no identity: "Acme Recruiting"
// is Acme, not a company called "Acme Recruiting".
var displayOrgSuffixRe = regexp.MustCompile(`(?i)\s+(recruiting|recruitment|careers?|talent( acquisition)?|hiring|hr|people|staffing|jobs|team)$`)

// companyFromDisplayName derives a company from a sender display name, or
// returns "" when the name is a greeting, a generic phrase or a plain
// person name.
func companyFromDisplayName(displayName string, tables *Tables) string {
	name := cleanExtracted(displayName)
	for {
		stripped := displayOrgSuffixRe.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = strings.TrimSpace(stripped)
	}
	if !looksLikeCompany(name, tables.CompanyDenyPhrases) {
		return ""
	}
	if personNameRe.MatchString(name) {
		return ""
	}
	return name
}

// titleFromLabel renders a domain label as a displayable company name:
// "embrace-wellness" → "Embrace Wellness".
func titleFromLabel(label string) string {
	parts := strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
