package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
)

const selectColumns = `id, projectname, username, password, number, notes, custom_field_json, last_modified`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(s scanner) (models.Credential, error) {
	var c models.Credential
	err := s.Scan(&c.ID, &c.ProjectName, &c.Username, &c.Password, &c.Number, &c.Notes, &c.CustomFieldJSON, &c.LastModified)
	return c, err
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Credential) (int64, error) {
	query := `INSERT INTO login_data (projectname, username, password, number, notes, custom_field_json, last_modified)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		c.ProjectName, c.Username, c.Password, c.Number, c.Notes, c.CustomFieldJSON, c.LastModified)
	if err != nil {
		return 0, fmt.Errorf("failed to insert credential: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get inserted id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, c *models.Credential) error {
	query := `UPDATE login_data SET projectname = ?, username = ?, password = ?, number = ?,
				notes = ?, custom_field_json = ?, last_modified = ?
			WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		c.ProjectName, c.Username, c.Password, c.Number, c.Notes, c.CustomFieldJSON, c.LastModified, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return expectOneRow(res, c.ID)
}

// DeleteByID hard-deletes a row. The recycle bin snapshot is written by the
// caller in the same transaction.
func (r *SQLiteRepository) DeleteByID(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM login_data WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return expectOneRow(res, id)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Credential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM login_data WHERE id = ?`, id)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("credential %d: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return &c, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM login_data ORDER BY last_modified DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select credentials: %w", err)
	}
	defer rows.Close()

	result := make([]models.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credential rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) InsertAll(ctx context.Context, items []models.Credential) error {
	query := `INSERT INTO login_data (id, projectname, username, password, number, notes, custom_field_json, last_modified)
			VALUES (NULLIF(?, 0), ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET projectname = excluded.projectname,
				username = excluded.username,
				password = excluded.password,
				number = excluded.number,
				notes = excluded.notes,
				custom_field_json = excluded.custom_field_json,
				last_modified = excluded.last_modified`
	for i := range items {
		c := &items[i]
		if _, err := r.db.ExecContext(ctx, query,
			c.ID, c.ProjectName, c.Username, c.Password, c.Number, c.Notes, c.CustomFieldJSON, c.LastModified); err != nil {
			return fmt.Errorf("failed to insert credential #%d: %w", i, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM login_data`); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM login_data`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return n, nil
}

func expectOneRow(res sql.Result, id int64) error {
	if err := dbx.AffectedOne(res); err != nil {
		return fmt.Errorf("credential %d: %w", id, err)
	}
	return nil
}
