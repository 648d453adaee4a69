package out

import (
	"context"
	"time"

	"tracker_server/core/domain"
)

// =============================================================================
// Processed-Message Ledger (Redis)
// =============================================================================

// ProcessedLedger remembers which message ids the ingest loop has already
// run through the pipeline, together with the classification produced, so
// duplicate deliveries are skipped while explicit reprocessing stays
// possible. Classification is deterministic, so a cached result is always
// safe to reuse.
type ProcessedLedger interface {
	// Get returns the cached classification for a message id, or nil on miss.
	Get(ctx context.Context, messageID string) (*domain.ClassificationResult, error)

	// Mark records a processed message id with its classification.
	Mark(ctx context.Context, messageID string, result *domain.ClassificationResult, ttl time.Duration) error

	// Forget drops the entry so the next delivery reprocesses the message.
	Forget(ctx context.Context, messageID string) error
}
