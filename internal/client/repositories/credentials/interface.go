package credentials

import (
	"context"

	"github.com/dmitrijs2005/passvault/internal/client/models"
)

// Repository describes CRUD and bulk operations for stored (encrypted)
// credential rows.
type Repository interface {
	// Insert stores a new row and returns the assigned id. c.ID is ignored.
	Insert(ctx context.Context, c *models.Credential) (int64, error)

	// Update overwrites the row with c.ID. Returns common.ErrorNotFound if
	// no such row exists.
	Update(ctx context.Context, c *models.Credential) error

	// DeleteByID removes the row. Returns common.ErrorNotFound if absent.
	DeleteByID(ctx context.Context, id int64) error

	// GetByID returns one row or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Credential, error)

	// GetAll returns every row, newest first.
	GetAll(ctx context.Context) ([]models.Credential, error)

	// InsertAll bulk-inserts rows. Rows with ID 0 get a fresh id, rows with
	// an existing id replace it.
	InsertAll(ctx context.Context, items []models.Credential) error

	// DeleteAll removes every row.
	DeleteAll(ctx context.Context) error

	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)
}
