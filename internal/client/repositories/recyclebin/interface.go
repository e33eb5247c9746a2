package recyclebin

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/client/models"
)

// Repository describes operations on recycle bin entries.
type Repository interface {
	Insert(ctx context.Context, e *models.RecycleBinEntry) (int64, error)

	// GetAll returns entries, most recently deleted first.
	GetAll(ctx context.Context) ([]models.RecycleBinEntry, error)

	GetByID(ctx context.Context, id int64) (*models.RecycleBinEntry, error)

	// GetByOriginalID returns the latest snapshot of a deleted credential.
	GetByOriginalID(ctx context.Context, originalID int64) (*models.RecycleBinEntry, error)

	DeleteByID(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) error

	// PurgeOlderThan removes entries deleted before cutoff (epoch millis)
	// and returns how many were removed.
	PurgeOlderThan(ctx context.Context, cutoff int64) (int64, error)

	// TrimToLimit keeps only the newest limit entries.
	TrimToLimit(ctx context.Context, limit int) (int64, error)
}
