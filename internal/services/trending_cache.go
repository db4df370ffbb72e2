package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const trendingCacheKey = "discovery:trending"

var ErrTrendingNotCached = errors.New("trending events not cached")

// TrendingSnapshot is the last trending set computed by the trending worker.
type TrendingSnapshot struct {
	EventIDs   []string  `json:"eventIds"`
	ComputedAt time.Time `json:"computedAt"`
}

// TrendingCache keeps the trending snapshot in Redis.
type TrendingCache struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewTrendingCache(client *redis.Client, ttl time.Duration) *TrendingCache {
	return &TrendingCache{Redis: client, TTL: ttl}
}

// Store replaces the snapshot.
func (c *TrendingCache) Store(ctx context.Context, snapshot TrendingSnapshot) error {
	if snapshot.EventIDs == nil {
		snapshot.EventIDs = []string{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("error encoding trending snapshot: %w", err)
	}
	if err := c.Redis.Set(ctx, trendingCacheKey, string(payload), c.TTL).Err(); err != nil {
		return fmt.Errorf("error storing trending snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot or ErrTrendingNotCached.
func (c *TrendingCache) Load(ctx context.Context) (TrendingSnapshot, error) {
	raw, err := c.Redis.Get(ctx, trendingCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return TrendingSnapshot{}, ErrTrendingNotCached
	}
	if err != nil {
		return TrendingSnapshot{}, fmt.Errorf("error loading trending snapshot: %w", err)
	}

	var snapshot TrendingSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return TrendingSnapshot{}, fmt.Errorf("error decoding trending snapshot: %w", err)
	}
	return snapshot, nil
}

// CheckConnection pings Redis for readiness probes.
func (c *TrendingCache) CheckConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
