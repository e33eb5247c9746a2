// Package metadata is the vault's key/value side table (table metadata).
// The wrapped data key lives here.
package metadata

import (
	"context"
)

type Repository interface {
	// Get fails with common.ErrorNotFound when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// PutIfAbsent reports whether value was written; an existing key is
	// never overwritten.
	PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
