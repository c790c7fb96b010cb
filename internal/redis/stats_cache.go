package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shrimbly/willienotwilly/internal/domain"
)

const (
	statsKeyPrefix = "rockbench:stats:"
	statsAllKey    = "rockbench:stats:_all"
)

// StatsCache implements domain.StatsCache with per-key TTLs. Entries are
// invalidated when a vote for the subject lands, so the table and the widget
// converge quickly after a submission.
type StatsCache struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewStatsCache creates a stats cache with the given entry TTL.
func NewStatsCache(rdb *goredis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

func (c *StatsCache) GetSubject(ctx context.Context, subject domain.Subject) (domain.VoteStats, bool, error) {
	raw, err := c.rdb.Get(ctx, subjectKey(subject)).Result()
	if errors.Is(err, goredis.Nil) {
		return domain.VoteStats{}, false, nil
	}
	if err != nil {
		return domain.VoteStats{}, false, fmt.Errorf("failed to read cached stats: %w", err)
	}

	var stats domain.VoteStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		// Corrupt entry: treat as a miss, the read path will refill it.
		return domain.VoteStats{}, false, nil
	}
	return stats, true, nil
}

func (c *StatsCache) SetSubject(ctx context.Context, stats domain.VoteStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.rdb.Set(ctx, subjectKey(stats.Subject), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}

func (c *StatsCache) GetAll(ctx context.Context) (map[domain.Subject]domain.VoteStats, bool, error) {
	raw, err := c.rdb.Get(ctx, statsAllKey).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached stats: %w", err)
	}

	var stats map[domain.Subject]domain.VoteStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, false, nil
	}
	return stats, true, nil
}

func (c *StatsCache) SetAll(ctx context.Context, stats map[domain.Subject]domain.VoteStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.rdb.Set(ctx, statsAllKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}

func (c *StatsCache) InvalidateSubject(ctx context.Context, subject domain.Subject) error {
	if err := c.rdb.Del(ctx, subjectKey(subject), statsAllKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached stats: %w", err)
	}
	return nil
}

func subjectKey(subject domain.Subject) string {
	return statsKeyPrefix + string(subject)
}
