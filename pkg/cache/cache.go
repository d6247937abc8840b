package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Expire(ctx context.Context, key string, expiration time.Duration) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// GetTyped retrieves a key and unmarshals it into T.
func GetTyped[T any](ctx context.Context, c Service, key string) (*T, error) {
	var raw string
	if err := c.Get(ctx, key, &raw); err != nil {
		return nil, err
	}

	var obj T
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}
