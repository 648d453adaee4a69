package domain

// Identity is the extracted (company, role, domain) tuple with per-field
// confidences. Absence of a signal is a nil field with low confidence,
// never an error.
type Identity struct {
	CompanyName  *string `json:"company_name,omitempty"`
	JobTitle     *string `json:"job_title,omitempty"`
	SenderDomain *string `json:"sender_domain,omitempty"`

	CompanyConfidence float64 `json:"company_confidence"`
	RoleConfidence    float64 `json:"role_confidence"`
	DomainConfidence  float64 `json:"domain_confidence"`

	// MatchConfidence is the minimum of company, role-or-neutral and domain
	// confidence. A single weak signal caps the whole identity.
	MatchConfidence float64 `json:"match_confidence"`

	IsATSDomain bool   `json:"is_ats_domain"`
	Explanation string `json:"explanation"`
}

// HasCompany reports whether a usable company name was extracted.
func (i *Identity) HasCompany() bool {
	return i.CompanyName != nil && *i.CompanyName != ""
}

// HasRole reports whether a usable job title was extracted.
func (i *Identity) HasRole() bool {
	return i.JobTitle != nil && *i.JobTitle != ""
}
