package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/enrollio/referral-backend/internal/model"
)

// Redis key prefix for cached referee lists
const refereeKeyPrefix = "referees:"

// RefereeCache keeps recently computed referee lists in redis so the
// statistics join is not re-run on every request. Entries are invalidated
// whenever a new referral edge names the referrer.
type RefereeCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRefereeCache constructs a RefereeCache with the given entry lifetime.
func NewRefereeCache(client *redis.Client, ttl time.Duration) *RefereeCache {
	return &RefereeCache{client: client, ttl: ttl}
}

// Get returns the cached referee list for a referrer, or (nil, false, nil)
// on a miss. A miss and an absent entry are indistinguishable on purpose.
func (c *RefereeCache) Get(ctx context.Context, referrerID int64) ([]model.User, bool, error) {
	raw, err := c.client.Get(ctx, c.key(referrerID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get referees: %w", err)
	}
	var referees []model.User
	if err := json.Unmarshal(raw, &referees); err != nil {
		// Treat a corrupt entry as a miss; it will be overwritten.
		return nil, false, nil
	}
	return referees, true, nil
}

// Set stores the referee list for a referrer with the configured TTL.
func (c *RefereeCache) Set(ctx context.Context, referrerID int64, referees []model.User) error {
	raw, err := json.Marshal(referees)
	if err != nil {
		return fmt.Errorf("marshal referees: %w", err)
	}
	if err := c.client.Set(ctx, c.key(referrerID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set referees: %w", err)
	}
	return nil
}

// Invalidate drops the cached list for a referrer.
func (c *RefereeCache) Invalidate(ctx context.Context, referrerID int64) error {
	if err := c.client.Del(ctx, c.key(referrerID)).Err(); err != nil {
		return fmt.Errorf("redis del referees: %w", err)
	}
	return nil
}

func (c *RefereeCache) key(referrerID int64) string {
	return fmt.Sprintf("%s%d", refereeKeyPrefix, referrerID)
}
