package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ms-scheduling/internal/events"
	"ms-scheduling/internal/logger"
	"ms-scheduling/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	keyCalendarUsers   = "lookups:calendar_users"
	keyAccountManagers = "lookups:account_managers"
	keyEventTypes      = "lookups:event_types"
	keyStates          = "lookups:states"
)

// LookupCache serves the calendar reference lists from redis and falls back to Source on a miss.
type LookupCache struct {
	Client *redis.Client
	Source events.LookupSource
	TTL    time.Duration
	Logger *logger.Logger
}

func NewLookupCache(client *redis.Client, source events.LookupSource, ttl time.Duration, log *logger.Logger) *LookupCache {
	if log == nil {
		log = logger.Discard()
	}
	return &LookupCache{Client: client, Source: source, TTL: ttl, Logger: log}
}

func (c *LookupCache) GetCalendarUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := c.cached(ctx, keyCalendarUsers, &users, func() (interface{}, error) {
		return c.Source.GetCalendarUsers(ctx)
	})
	return users, err
}

func (c *LookupCache) GetAccountManagers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := c.cached(ctx, keyAccountManagers, &users, func() (interface{}, error) {
		return c.Source.GetAccountManagers(ctx)
	})
	return users, err
}

func (c *LookupCache) GetEventTypes(ctx context.Context) ([]*models.EventType, error) {
	var types []*models.EventType
	err := c.cached(ctx, keyEventTypes, &types, func() (interface{}, error) {
		return c.Source.GetEventTypes(ctx)
	})
	return types, err
}

func (c *LookupCache) GetStates(ctx context.Context) ([]*models.State, error) {
	var states []*models.State
	err := c.cached(ctx, keyStates, &states, func() (interface{}, error) {
		return c.Source.GetStates(ctx)
	})
	return states, err
}

// Invalidate drops every cached list.
func (c *LookupCache) Invalidate(ctx context.Context) error {
	return c.Client.Del(ctx, keyCalendarUsers, keyAccountManagers, keyEventTypes, keyStates).Err()
}

// cached decodes key into dst, or loads, stores and decodes a fresh value.
// A redis failure is logged and the source is used directly.
func (c *LookupCache) cached(ctx context.Context, key string, dst interface{}, load func() (interface{}, error)) error {
	raw, err := c.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, dst); err == nil {
			return nil
		}
		c.Logger.Warn("REDIS", fmt.Sprintf("discarding corrupt cache entry %s", key))
	case err != redis.Nil:
		c.Logger.Warn("REDIS", fmt.Sprintf("cache read %s failed: %v", key, err))
	}

	value, err := load()
	if err != nil {
		return err
	}
	raw, err = json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil {
		c.Logger.Warn("REDIS", fmt.Sprintf("cache write %s failed: %v", key, err))
	}
	return json.Unmarshal(raw, dst)
}
