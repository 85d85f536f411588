// Package cache stores computed leaderboards in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/points-service/internal/domain"
)

const leaderboardKeyPrefix = "leaderboard:"

// LeaderboardCache stores leaderboards per department. Every Invalidate starts a new
// generation; entries are stored under the generation read before computing them, so a
// leaderboard computed across an Invalidate is never served.
type LeaderboardCache interface {
	// Get returns the current generation and hit=false on a miss.
	Get(ctx context.Context, dept domain.Department) (entries []domain.LeaderboardEntry, generation int64, hit bool, err error)
	Set(ctx context.Context, dept domain.Department, generation int64, entries []domain.LeaderboardEntry) error
	Invalidate(ctx context.Context, dept domain.Department) error
}

type redisLeaderboardCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisLeaderboardCache returns a cache backed by client. A nil client yields a no-op cache.
func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration) LeaderboardCache {
	if client == nil {
		return NoopLeaderboardCache{}
	}
	return newRedisLeaderboardCache(client, ttl)
}

func newRedisLeaderboardCache(client redis.Cmdable, ttl time.Duration) LeaderboardCache {
	if ttl <= 0 {
		return NoopLeaderboardCache{}
	}
	return &redisLeaderboardCache{client: client, ttl: ttl}
}

func (c *redisLeaderboardCache) Get(ctx context.Context, dept domain.Department) ([]domain.LeaderboardEntry, int64, bool, error) {
	generation, err := c.generation(ctx, dept)
	if err != nil {
		return nil, 0, false, err
	}
	raw, err := c.client.Get(ctx, entriesKey(dept, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, generation, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, generation, false, err
	}
	return entries, generation, true, nil
}

func (c *redisLeaderboardCache) Set(ctx context.Context, dept domain.Department, generation int64, entries []domain.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, entriesKey(dept, generation), raw, c.ttl).Err()
}

func (c *redisLeaderboardCache) Invalidate(ctx context.Context, dept domain.Department) error {
	return c.client.Incr(ctx, generationKey(dept)).Err()
}

// generation reads the department counter; a missing counter is generation 0.
func (c *redisLeaderboardCache) generation(ctx context.Context, dept domain.Department) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(dept)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func generationKey(dept domain.Department) string {
	return leaderboardKeyPrefix + string(dept) + ":gen"
}

func entriesKey(dept domain.Department, generation int64) string {
	return leaderboardKeyPrefix + string(dept) + ":" + strconv.FormatInt(generation, 10)
}

// NoopLeaderboardCache never stores anything.
type NoopLeaderboardCache struct{}

func (NoopLeaderboardCache) Get(context.Context, domain.Department) ([]domain.LeaderboardEntry, int64, bool, error) {
	return nil, 0, false, nil
}

func (NoopLeaderboardCache) Set(context.Context, domain.Department, int64, []domain.LeaderboardEntry) error {
	return nil
}

func (NoopLeaderboardCache) Invalidate(context.Context, domain.Department) error {
	return nil
}
