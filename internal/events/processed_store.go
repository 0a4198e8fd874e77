package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedStore records webhook events that were already handled, so
// provider redeliveries become harmless no-ops. Entries expire after the
// configured TTL since the provider stops retrying long before then.
type ProcessedStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProcessedStore(client *redis.Client, ttl time.Duration) *ProcessedStore {
	if client == nil {
		panic("events: redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ProcessedStore{client: client, ttl: ttl}
}

func key(provider, eventID string) string {
	return "processed:" + provider + ":" + eventID
}

// AlreadyProcessed checks if we've seen this provider event id.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, key(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed claims an event id for the provider, returning false if it
// was already claimed. SetNX makes the claim atomic under concurrent
// redeliveries.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, key(provider, eventID), "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}
