// Package cache keeps the active policy list per action in redis so that
// eligibility checks do not hit the database on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aman-churiwal/eligibility-engine/internal/models"
	"github.com/redis/go-redis/v9"
)

// Subset of storage.RedisClient the cache needs
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type PolicyCache struct {
	store  Store
	prefix string
	ttl    time.Duration
}

func NewPolicyCache(store Store, ttl time.Duration) *PolicyCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PolicyCache{
		store:  store,
		prefix: "policies:active:",
		ttl:    ttl,
	}
}

func (c *PolicyCache) key(actionType string) string {
	return fmt.Sprintf("%s%s", c.prefix, actionType)
}

// Returns the cached active policies for an action. ok is false on a miss.
func (c *PolicyCache) GetActive(ctx context.Context, actionType string) ([]models.Policy, bool, error) {
	data, err := c.store.Get(ctx, c.key(actionType))
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var policies []models.Policy
	if err := json.Unmarshal([]byte(data), &policies); err != nil {
		// corrupt entry, treat as a miss so it gets rewritten
		return nil, false, nil
	}
	return policies, true, nil
}

func (c *PolicyCache) SetActive(ctx context.Context, actionType string, policies []models.Policy) error {
	if policies == nil {
		policies = []models.Policy{}
	}
	data, err := json.Marshal(policies)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.key(actionType), data, c.ttl)
}

// Drops the cached lists for the given actions
func (c *PolicyCache) Invalidate(ctx context.Context, actionTypes ...string) error {
	keys := make([]string, 0, len(actionTypes))
	seen := make(map[string]struct{}, len(actionTypes))
	for _, action := range actionTypes {
		if _, dup := seen[action]; dup {
			continue
		}
		seen[action] = struct{}{}
		keys = append(keys, c.key(action))
	}
	return c.store.Del(ctx, keys...)
}
