// Package livecount keeps per-stage open-unit counts in Redis so
// factory-floor dashboards can poll them without touching the main
// database. The cache is rebuilt from the store on startup and
// refreshed after every completion or undo; the store stays the
// source of truth.
package livecount

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"paneltrack/config"
	"paneltrack/metrics"
	"paneltrack/stage"
	"paneltrack/store"
)

type Cache struct {
	client *redis.Client
	db     *store.DB
	prefix string
}

// Open connects to Redis and rebuilds the counters from the store.
// Returns (nil, nil) when no Redis address is configured; callers
// treat a nil cache as disabled.
func Open(cfg *config.RedisConfig, db *store.DB, factory string) (*Cache, error) {
	if cfg.Address == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	c := &Cache{client: client, db: db, prefix: "paneltrack:" + factory}
	if err := c.Refresh(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) Close() error { return c.client.Close() }

func (c *Cache) stageKey(s stage.Stage) string {
	return fmt.Sprintf("%s:stage:%s:count", c.prefix, s)
}

// Refresh recomputes every stage counter from the store and publishes
// the result to Redis and the stage gauges.
func (c *Cache) Refresh(ctx context.Context) error {
	counts, err := c.db.StageCounts()
	if err != nil {
		return fmt.Errorf("stage counts: %w", err)
	}
	pipe := c.client.Pipeline()
	for _, s := range stage.Pipeline() {
		pipe.Set(ctx, c.stageKey(s), counts[s], 0)
		metrics.UnitsInStage.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write stage counts: %w", err)
	}
	return nil
}

// Counts reads the cached per-stage counters.
func (c *Cache) Counts(ctx context.Context) (map[stage.Stage]int, error) {
	counts := make(map[stage.Stage]int, len(stage.Pipeline()))
	for _, s := range stage.Pipeline() {
		val, err := c.client.Get(ctx, c.stageKey(s)).Result()
		if err == redis.Nil {
			counts[s] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("bad counter for %s: %q", s, val)
		}
		counts[s] = n
	}
	return counts, nil
}
