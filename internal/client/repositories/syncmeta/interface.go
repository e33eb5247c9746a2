// Package syncmeta stores the single row of sync bookkeeping
// (table sync_metadata).
package syncmeta

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/client/models"
)

type Repository interface {
	// Get returns (nil, nil) when the row has never been written.
	Get(ctx context.Context) (*models.SyncMetadata, error)

	// Ensure creates the row with zero timestamps if it is missing and
	// returns the current value.
	Ensure(ctx context.Context) (*models.SyncMetadata, error)

	// Upsert writes m unconditionally and bumps the version.
	Upsert(ctx context.Context, m *models.SyncMetadata) error

	// CompareAndSwap writes m only if the stored version equals
	// m.Version. On mismatch it returns common.ErrVersionConflict.
	CompareAndSwap(ctx context.Context, m *models.SyncMetadata) error

	// TouchLocal sets last_local_update and marks the row Pending.
	TouchLocal(ctx context.Context, ts int64) error
}
