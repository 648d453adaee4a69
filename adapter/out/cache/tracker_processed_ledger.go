// Package cache implements Redis-backed adapters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"tracker_server/core/domain"
)

const ledgerKeyPrefix = "tracker:processed:"

// ProcessedLedger implements out.ProcessedLedger on Redis. Entries map a
// message id to the classification it produced; classification is
// deterministic, so a cached entry is always safe to reuse.
type ProcessedLedger struct {
	client *redis.Client
}

// NewProcessedLedger creates a Redis-backed processed-message ledger.
func NewProcessedLedger(client *redis.Client) *ProcessedLedger {
	return &ProcessedLedger{client: client}
}

// Get returns the cached classification for a message id, or nil on miss.
func (l *ProcessedLedger) Get(ctx context.Context, messageID string) (*domain.ClassificationResult, error) {
	data, err := l.client.Get(ctx, ledgerKeyPrefix+messageID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger entry: %w", err)
	}

	var result domain.ClassificationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		// A corrupt entry only costs a reprocess.
		return nil, nil
	}
	return &result, nil
}

// Mark records a processed message id with its classification.
func (l *ProcessedLedger) Mark(ctx context.Context, messageID string, result *domain.ClassificationResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}
	if err := l.client.Set(ctx, ledgerKeyPrefix+messageID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return nil
}

// Forget drops the entry so the next delivery reprocesses the message.
func (l *ProcessedLedger) Forget(ctx context.Context, messageID string) error {
	if err := l.client.Del(ctx, ledgerKeyPrefix+messageID).Err(); err != nil {
		return fmt.Errorf("failed to drop ledger entry: %w", err)
	}
	return nil
}
