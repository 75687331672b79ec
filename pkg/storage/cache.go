package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertGuard deduplicates alerts through Redis so a fixture's
// half-time window produces at most one notification.
type AlertGuard struct {
	client *redis.Client
}

// AlertGuardConfig holds the Redis connection parameters.
type AlertGuardConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewAlertGuard connects to Redis and verifies the connection.
func NewAlertGuard(ctx context.Context, cfg AlertGuardConfig) (*AlertGuard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &AlertGuard{client: client}, nil
}

// FirstAlert reports whether this is the first alert for the key within
// the TTL. It claims the key atomically, so concurrent callers race
// safely.
func (g *AlertGuard) FirstAlert(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := g.client.SetNX(ctx, "alert:"+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim alert key: %w", err)
	}
	return ok, nil
}

// Close closes the Redis connection.
func (g *AlertGuard) Close() error {
	return g.client.Close()
}
