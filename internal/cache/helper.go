package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"devflow/internal/middleware"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var loads singleflight.Group

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(s, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// Aside serves key from Redis, falling back to fetch on a miss and storing
// the result for ttl. Concurrent misses on the same key share one fetch.
// Redis failures degrade to a direct fetch. fetch runs detached from the
// caller's cancellation.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var out T
	found, err := GetJSON(ctx, key, &out)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return out, nil
	}

	// The fill is shared by every waiter on key, so it outlives the caller
	// that started it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := loads.Do(key, func() (any, error) {
		fresh, err := fetch(shared)
		if err != nil {
			return fresh, err
		}
		if err := SetJSON(shared, key, fresh, ttl); err != nil {
			middleware.Logger.WarnContext(shared, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return fresh, nil
	})
	if err != nil {
		return out, err
	}
	return v.(T), nil
}
