// Package cache stores serialized read models with a TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// PrefixContent namespaces cached content trees
const PrefixContent = "content:"

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is a JSON value store with expiry
type Cache interface {
	// Get decodes the value under key into dest, or returns ErrCacheMiss
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Nop is a cache that stores nothing
type Nop struct{}

func (Nop) Get(ctx context.Context, key string, dest interface{}) error { return ErrCacheMiss }

func (Nop) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (Nop) DeletePrefix(ctx context.Context, prefix string) error { return nil }

func (Nop) Close() error { return nil }
