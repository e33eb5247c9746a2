// Package history persists the append-only password history
// (table password_history).
package history

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/client/models"
)

// Repository stores history entries exactly as given; callers encrypt the
// project name and password before Insert.
type Repository interface {
	Insert(ctx context.Context, e *models.HistoryEntry) (int64, error)

	// GetAll returns entries newest first.
	GetAll(ctx context.Context) ([]models.HistoryEntry, error)

	// GetByRecordID returns entries of one credential, newest first.
	GetByRecordID(ctx context.Context, recordID int64) ([]models.HistoryEntry, error)

	// TrimToLimit keeps only the newest limit entries.
	TrimToLimit(ctx context.Context, limit int) (int64, error)
}
