package history

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, e *models.HistoryEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO password_history (record_id, timestamp, project_name, generated_password, operation_type)
		VALUES (?, ?, ?, ?, ?)`,
		e.RecordID, e.Timestamp, e.ProjectName, e.Password, string(e.OperationType))
	if err != nil {
		return 0, fmt.Errorf("failed to insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.HistoryEntry, error) {
	return r.list(ctx, `SELECT id, record_id, timestamp, project_name, generated_password, operation_type
		FROM password_history ORDER BY timestamp DESC, id DESC`)
}

func (r *SQLiteRepository) GetByRecordID(ctx context.Context, recordID int64) ([]models.HistoryEntry, error) {
	return r.list(ctx, `SELECT id, record_id, timestamp, project_name, generated_password, operation_type
		FROM password_history WHERE record_id = ? ORDER BY timestamp DESC, id DESC`, recordID)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select history: %w", err)
	}
	defer rows.Close()

	result := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		var op string
		if err := rows.Scan(&e.ID, &e.RecordID, &e.Timestamp, &e.ProjectName, &e.Password, &op); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.OperationType = models.OperationType(op)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) TrimToLimit(ctx context.Context, limit int) (int64, error) {
	if limit < 0 {
		limit = 0
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM password_history WHERE id NOT IN (
			SELECT id FROM password_history ORDER BY timestamp DESC, id DESC LIMIT ?
		)`, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to trim history: %w", err)
	}
	return res.RowsAffected()
}
