package core

import (
	"context"
	"time"
)

// Cache stores derived read models (analytics results). Misses are reported with found=false.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Generation changes on every Purge. Readers key their entries by it so a result computed
	// before a purge is never served after it.
	Generation(ctx context.Context) (uint64, error)
	// Purge drops every cached entry; called after each write to the underlying records.
	Purge(ctx context.Context) error
}
