package identity

import (
	"regexp"
	"strings"
)

// =============================================================================
// Signature Block Scanning
// =============================================================================

// Closing markers that begin a signature block. Matched against the start
// of a trimmed line, case-insensitive.
var signOffs = []string{
	"best regards", "kind regards", "warm regards", "regards",
	"best wishes", "best,", "best\n", "sincerely", "thank you,",
	"thanks,", "cheers", "all the best",
}

// Title lines between the sender's name and the company. These are skipped,
// and also strengthen the guess that the following line is a company.
var signatureTitleRe = regexp.MustCompile(`(?i)^(talent acquisition|recruit(er|ing|ment)|human resources|hr |people (team|operations|ops)|hiring (team|manager)|sourcing|staffing|head of|director of|manager|coordinator|specialist|partner)`)

// personNameRe matches a plain two-or-three word person name line.
var personNameRe = regexp.MustCompile(`^[A-Z][a-z]+(?: [A-Z]\.?)?(?: [A-Z][a-z]+){1,2}$`)

var companySuffixRe = regexp.MustCompile(`(?i)\b(inc|llc|ltd|gmbh|corp|co|group|labs|technologies|solutions|center|centre|health|wellness)\b\.?$`)

// scanSignature walks the trailing lines of a body looking for a
// "sign-off / name / title / company" block and returns the company line,
// or "" when none is found. Signatures are noisy, so callers assign this
// path a lower confidence than structured subject patterns.
func scanSignature(body string, tables *Tables) string {
	lines := strings.Split(body, "\n")

	// Find the last sign-off within the trailing portion of the body.
	signOffIdx := -1
	start := len(lines) - 14
	if start < 0 {
		start = 0
	}
	for i := len(lines) - 1; i >= start; i-- {
		line := strings.ToLower(strings.TrimSpace(lines[i]))
		if line == "" {
			continue
		}
		for _, s := range signOffs {
			if strings.HasPrefix(line, s) {
				signOffIdx = i
				break
			}
		}
		if signOffIdx >= 0 {
			break
		}
	}
	if signOffIdx < 0 {
		return ""
	}

	sawTitle := false
	for i := signOffIdx + 1; i < len(lines) && i <= signOffIdx+6; i++ {
		line := cleanExtracted(lines[i])
		if line == "" {
			continue
		}

		if signatureTitleRe.MatchString(line) {
			sawTitle = true
			continue
		}
		// A person name right after the sign-off is the sender, not the
		// employer.
		if personNameRe.MatchString(line) && !companySuffixRe.MatchString(line) && !sawTitle {
			continue
		}
		// Contact lines carry no identity.
		if strings.ContainsAny(line, "@") || strings.Contains(line, "http") || looksLikePhone(line) {
			continue
		}
		if !looksLikeCompany(line, tables.CompanyDenyPhrases) {
			continue
		}
		return line
	}
	return ""
}

var phoneRe = regexp.MustCompile(`^[\d\s()+.-]{7,}$`)

func looksLikePhone(line string) bool {
	return phoneRe.MatchString(line)
}
