package recyclebin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
)

const selectColumns = `id, original_id, deleted_time, login_data_json, delete_reason`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.RecycleBinEntry, error) {
	var e models.RecycleBinEntry
	var reason sql.NullString
	if err := s.Scan(&e.ID, &e.OriginalID, &e.DeletedTime, &e.LoginDataJSON, &reason); err != nil {
		return e, err
	}
	e.DeleteReason = reason.String
	return e, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.RecycleBinEntry) (int64, error) {
	var reason sql.NullString
	if e.DeleteReason != "" {
		reason = sql.NullString{String: e.DeleteReason, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recycle_bin_data (original_id, deleted_time, login_data_json, delete_reason) VALUES (?, ?, ?, ?)`,
		e.OriginalID, e.DeletedTime, e.LoginDataJSON, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to insert recycle bin entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.RecycleBinEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM recycle_bin_data ORDER BY deleted_time DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select recycle bin entries: %w", err)
	}
	defer rows.Close()

	result := make([]models.RecycleBinEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recycle bin row: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recycle bin rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.RecycleBinEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM recycle_bin_data WHERE id = ?`, id)
	return r.one(row, "recycle bin entry %d", id)
}

func (r *SQLiteRepository) GetByOriginalID(ctx context.Context, originalID int64) (*models.RecycleBinEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM recycle_bin_data WHERE original_id = ? ORDER BY deleted_time DESC, id DESC LIMIT 1`,
		originalID)
	return r.one(row, "recycle bin entry for credential %d", originalID)
}

func (r *SQLiteRepository) one(row *sql.Row, what string, id int64) (*models.RecycleBinEntry, error) {
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf(what+": %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return &e, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recycle_bin_data WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recycle bin entry: %w", err)
	}
	if err := dbx.AffectedOne(res); err != nil {
		return fmt.Errorf("recycle bin entry %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recycle_bin_data`); err != nil {
		return fmt.Errorf("failed to clear recycle bin: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PurgeOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recycle_bin_data WHERE deleted_time < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge recycle bin: %w", err)
	}
	return res.RowsAffected()
}

func (r *SQLiteRepository) TrimToLimit(ctx context.Context, limit int) (int64, error) {
	if limit < 0 {
		limit = 0
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM recycle_bin_data WHERE id NOT IN (
			SELECT id FROM recycle_bin_data ORDER BY deleted_time DESC, id DESC LIMIT ?
		)`, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to trim recycle bin: %w", err)
	}
	return res.RowsAffected()
}
