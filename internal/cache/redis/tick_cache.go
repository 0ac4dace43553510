package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/divinefavor/internal/domain"
	"github.com/alanyoungcy/divinefavor/internal/service"
)

const (
	lastTickKey = "world:tick:last"
	lastTickTTL = 24 * time.Hour
)

// TickSummary is the compact record of a tick shared across instances.
type TickSummary struct {
	Year       int       `json:"year"`
	NextYear   int       `json:"next_year"`
	Evolved    bool      `json:"evolved"`
	Events     int       `json:"events"`
	BetsWon    int       `json:"bets_won"`
	BetsLost   int       `json:"bets_lost"`
	BetsExpiry int       `json:"bets_expired"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// TickCache stores the last tick summary in Redis and announces it on
// domain.ChannelTicks. It runs as a tick hook.
type TickCache struct {
	rdb *redis.Client
	now func() time.Time
}

// NewTickCache creates a TickCache.
func NewTickCache(c *Client) *TickCache {
	return &TickCache{rdb: c.rdb, now: time.Now}
}

// Name implements service.TickHook.
func (tc *TickCache) Name() string { return "tick_cache" }

// AfterTick implements service.TickHook.
func (tc *TickCache) AfterTick(ctx context.Context, res service.TickResult) error {
	data, err := json.Marshal(TickSummary{
		Year:       res.Year,
		NextYear:   res.NextYear,
		Evolved:    res.Evolved,
		Events:     len(res.Events),
		BetsWon:    res.Resolution.Won,
		BetsLost:   res.Resolution.Lost,
		BetsExpiry: res.Resolution.Expired,
		DurationMS: res.Duration.Milliseconds(),
		At:         tc.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("redis: marshal tick summary: %w", err)
	}

	pipe := tc.rdb.TxPipeline()
	pipe.Set(ctx, lastTickKey, data, lastTickTTL)
	pipe.Publish(ctx, domain.ChannelTicks, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: store tick summary: %w", err)
	}
	return nil
}

// Last returns the most recent summary, or domain.ErrNotFound.
func (tc *TickCache) Last(ctx context.Context) (TickSummary, error) {
	data, err := tc.rdb.Get(ctx, lastTickKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return TickSummary{}, domain.NotFound("tick summary", lastTickKey)
	}
	if err != nil {
		return TickSummary{}, fmt.Errorf("redis: get tick summary: %w", err)
	}
	var s TickSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return TickSummary{}, fmt.Errorf("redis: decode tick summary: %w", err)
	}
	return s, nil
}

var _ service.TickHook = (*TickCache)(nil)
