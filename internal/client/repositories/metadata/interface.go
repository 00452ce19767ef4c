// Package metadata is the client's local key/value cache. The session record
// lives here under common.SessionCacheKey.
package metadata

import (
	"context"
)

type Repository interface {
	// Get returns (nil, nil) for an absent key.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
