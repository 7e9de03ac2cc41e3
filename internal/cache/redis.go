// Package cache provides shared SlotCache implementations backed by Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/coaching-booking/internal/application"
	"github.com/example/coaching-booking/internal/availability"
)

const (
	defaultPrefix = "coaching:slots"
	defaultTTL    = 30 * time.Second
)

// RedisSlotCache stores slot lists in Redis so several API instances share
// one cache. Invalidation bumps a generation counter instead of scanning keys;
// entries written under older generations simply expire.
//
// Redis failures are logged and treated as cache misses.
type RedisSlotCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// Options configures a RedisSlotCache.
type Options struct {
	// Prefix namespaces every key. Defaults to "coaching:slots".
	Prefix string
	// TTL bounds how long an entry lives. Defaults to 30 seconds.
	TTL    time.Duration
	Logger *slog.Logger
}

// NewRedisSlotCache wraps an existing client.
func NewRedisSlotCache(client *redis.Client, opts Options) *RedisSlotCache {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &RedisSlotCache{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: opts.Logger.With("component", "RedisSlotCache"),
	}
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

type cachedSlot struct {
	Date     string `json:"date"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Override bool   `json:"override,omitempty"`
}

// Get returns the cached slots for key, if any, and the generation read.
// A failed generation lookup reports generation -1, which Store never writes.
func (c *RedisSlotCache) Get(ctx context.Context, key string) ([]application.Slot, int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "slot cache generation lookup failed", "error", err)
		return nil, -1, false
	}

	raw, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "slot cache read failed", "error", err, "key", key)
		return nil, gen, false
	}

	var stored []cachedSlot
	if err := json.Unmarshal(raw, &stored); err != nil {
		c.logger.WarnContext(ctx, "slot cache entry is corrupt", "error", err, "key", key)
		return nil, gen, false
	}

	slots := make([]application.Slot, 0, len(stored))
	for _, s := range stored {
		date, err := availability.ParseDate(s.Date)
		if err != nil {
			c.logger.WarnContext(ctx, "slot cache entry is corrupt", "error", err, "key", key)
			return nil, gen, false
		}
		slots = append(slots, application.Slot{
			Date:     date,
			Start:    availability.ClockTime(s.Start),
			End:      availability.ClockTime(s.End),
			Override: s.Override,
		})
	}
	return slots, gen, true
}

// Store caches slots under key for the configured TTL. The entry is written
// under the generation the caller read, so a write that loses a race with
// Invalidate lands in a generation no reader looks at.
func (c *RedisSlotCache) Store(ctx context.Context, key string, generation int64, slots []application.Slot) {
	if generation < 0 {
		return
	}
	current, err := c.generation(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "slot cache generation lookup failed", "error", err)
		return
	}
	if current != generation {
		return
	}

	stored := make([]cachedSlot, len(slots))
	for i, s := range slots {
		stored[i] = cachedSlot{
			Date:     availability.FormatDate(s.Date),
			Start:    int(s.Start),
			End:      int(s.End),
			Override: s.Override,
		}
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		c.logger.WarnContext(ctx, "slot cache encode failed", "error", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, c.entryKey(generation, key), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "slot cache write failed", "error", err, "key", key)
	}
}

// Invalidate drops every cached entry by moving to a new generation.
func (c *RedisSlotCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		c.logger.ErrorContext(ctx, "slot cache invalidation failed", "error", err)
	}
}

func (c *RedisSlotCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisSlotCache) generationKey() string {
	return c.prefix + ":gen"
}

func (c *RedisSlotCache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:v%d:%s", c.prefix, gen, key)
}

var _ application.SlotCache = (*RedisSlotCache)(nil)
