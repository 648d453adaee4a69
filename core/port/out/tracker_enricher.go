package out

import (
	"context"

	"tracker_server/core/domain"
)

// =============================================================================
// Identity Enricher (optional, LLM-backed)
// =============================================================================

// EnrichedIdentity carries corroborating identity fields from an external
// enrichment step. Fields are merged only when they raise confidence; the
// pipeline is fully functional when no enricher is configured.
type EnrichedIdentity struct {
	CompanyName string  `json:"company_name"`
	JobTitle    string  `json:"job_title"`
	Confidence  float64 `json:"confidence"`
}

// IdentityEnricher defines the outbound port for identity enrichment.
type IdentityEnricher interface {
	Enrich(ctx context.Context, msg *domain.InboundMessage) (*EnrichedIdentity, error)
}
