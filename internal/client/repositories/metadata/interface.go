// Package metadata is a small key/value store over the client database. The
// sync cursor and per-user mirror timestamps live here, outside the entity
// tables.
package metadata

import (
	"context"
)

// Repository stores opaque byte values by key. Get returns nil, nil for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
