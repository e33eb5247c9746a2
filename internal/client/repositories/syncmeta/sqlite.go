package syncmeta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.SyncMetadata, error) {
	var m models.SyncMetadata
	err := r.db.QueryRowContext(ctx, `
		SELECT id, last_local_update, last_cloud_update, last_sync_time, sync_status, version
		FROM sync_metadata WHERE id = ?`, common.SyncMetadataID).
		Scan(&m.ID, &m.LastLocalUpdate, &m.LastCloudUpdate, &m.LastSyncTime, &m.SyncStatus, &m.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync metadata: %w", err)
	}
	return &m, nil
}

func (r *SQLiteRepository) Ensure(ctx context.Context) (*models.SyncMetadata, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (id, last_local_update, last_cloud_update, last_sync_time, sync_status, version)
		VALUES (?, 0, 0, 0, ?, 0)
		ON CONFLICT(id) DO NOTHING`, common.SyncMetadataID, common.SyncStatusIdle)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure sync metadata: %w", err)
	}
	return r.Get(ctx)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, m *models.SyncMetadata) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (id, last_local_update, last_cloud_update, last_sync_time, sync_status, version)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			last_local_update = excluded.last_local_update,
			last_cloud_update = excluded.last_cloud_update,
			last_sync_time    = excluded.last_sync_time,
			sync_status       = excluded.sync_status,
			version           = sync_metadata.version + 1`,
		common.SyncMetadataID, m.LastLocalUpdate, m.LastCloudUpdate, m.LastSyncTime, m.SyncStatus)
	if err != nil {
		return fmt.Errorf("failed to upsert sync metadata: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CompareAndSwap(ctx context.Context, m *models.SyncMetadata) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_metadata SET
			last_local_update = ?,
			last_cloud_update = ?,
			last_sync_time    = ?,
			sync_status       = ?,
			version           = version + 1
		WHERE id = ? AND version = ?`,
		m.LastLocalUpdate, m.LastCloudUpdate, m.LastSyncTime, m.SyncStatus, common.SyncMetadataID, m.Version)
	if err != nil {
		return fmt.Errorf("failed to update sync metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return common.ErrVersionConflict
	}
	m.Version++
	return nil
}

func (r *SQLiteRepository) TouchLocal(ctx context.Context, ts int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_metadata (id, last_local_update, last_cloud_update, last_sync_time, sync_status, version)
		VALUES (?, ?, 0, 0, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			last_local_update = excluded.last_local_update,
			sync_status       = excluded.sync_status,
			version           = sync_metadata.version + 1`,
		common.SyncMetadataID, ts, common.SyncStatusPending)
	if err != nil {
		return fmt.Errorf("failed to touch sync metadata: %w", err)
	}
	return nil
}
