package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/client/remote"
	"github.com/dmitrijs2005/passvault/internal/client/repositories/syncmeta"
	"github.com/dmitrijs2005/passvault/internal/client/settings"
	"github.com/dmitrijs2005/passvault/internal/client/status"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/filex"
	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/google/uuid"
)

// RecordStore is the part of the credential service the reconciler needs.
type RecordStore interface {
	// LoadAll returns decrypted records.
	LoadAll(ctx context.Context) ([]models.Credential, error)
	// ReplaceAll swaps the whole record set for items.
	ReplaceAll(ctx context.Context, items []models.Credential) error
	// Subscribe emits the stored record list after every change.
	Subscribe(ctx context.Context) <-chan []models.Credential
}

// Refresher reloads the decrypted cache.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TransportFactory builds a transport for the current settings.
type TransportFactory func(s settings.Settings) (remote.Transport, error)

// metaRetries bounds CompareAndSwap attempts on sync metadata.
const metaRetries = 3

type Options struct {
	// TempDir holds upload/download temp files; os.TempDir() when empty.
	TempDir  string
	Debounce time.Duration
}

type Reconciler struct {
	store     RecordStore
	cache     Refresher
	meta      syncmeta.Repository
	settings  *settings.Store
	transport TransportFactory
	notifier  status.Notifier
	logger    logging.Logger
	opts      Options

	now      func() time.Time
	skipNext atomic.Bool
}

func NewReconciler(
	store RecordStore,
	cache Refresher,
	meta syncmeta.Repository,
	st *settings.Store,
	transport TransportFactory,
	notifier status.Notifier,
	logger logging.Logger,
	opts Options,
) *Reconciler {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	return &Reconciler{
		store:     store,
		cache:     cache,
		meta:      meta,
		settings:  st,
		transport: transport,
		notifier:  notifier,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
	}
}

// SkipNextAutoBackup suppresses exactly one upcoming auto-backup.
func (r *Reconciler) SkipNextAutoBackup() {
	r.skipNext.Store(true)
}

func (r *Reconciler) fail(ctx context.Context, log logging.Logger, action Action, msg string, err error) Outcome {
	log.Error(ctx, msg, "action", action.String(), "error", err)
	r.notifier.Notify(fmt.Sprintf("%s: %v", msg, err), status.Error)
	return Outcome{Action: action, Err: err}
}

// PerformSyncIfNeeded compares the last local change with the newest
// remote backup and uploads, downloads or does nothing. It never panics;
// failures are returned in the Outcome and reported to the notifier. A
// failed transfer leaves sync metadata untouched.
func (r *Reconciler) PerformSyncIfNeeded(ctx context.Context) (out Outcome) {
	log := r.logger.With("sync_id", uuid.NewString())

	defer func() {
		if p := recover(); p != nil {
			out = r.fail(ctx, log, out.Action, "sync aborted", fmt.Errorf("panic: %v", p))
		}
	}()

	s := r.settings.Current()
	if !s.SyncConfigured() {
		log.Debug(ctx, "sync skipped, remote not configured")
		return Outcome{Action: ActionNone, Err: common.ErrSyncNotConfigured}
	}

	tr, err := r.transport(s)
	if err != nil {
		return r.fail(ctx, log, ActionNone, "remote unavailable", err)
	}

	meta, err := r.meta.Ensure(ctx)
	if err != nil {
		return r.fail(ctx, log, ActionNone, "read sync state failed", err)
	}

	ref, err := tr.LatestBackup(ctx)
	if err != nil {
		return r.fail(ctx, log, ActionNone, "remote unreachable", err)
	}

	var cloudTs *int64
	if ref != nil {
		cloudTs = &ref.Timestamp
	}
	localTs := meta.LastLocalUpdate
	action := Decide(localTs, cloudTs)
	log.Info(ctx, "sync decision", "action", action.String(), "local_ts", localTs, "cloud_ts", cloudTs)

	switch action {
	case ActionUpload:
		r.notifier.Notify("Uploading backup", status.Info)
		if err := r.upload(ctx, tr, remote.BackupName(localTs), s.ExportPassword); err != nil {
			return r.fail(ctx, log, action, "upload failed", err)
		}
		now := r.now().UnixMilli()
		err := r.updateMeta(ctx, func(m *models.SyncMetadata) {
			m.LastCloudUpdate = localTs
			m.LastSyncTime = now
			m.SyncStatus = common.SyncStatusUploaded
		})
		if err != nil {
			return r.fail(ctx, log, action, "record sync state failed", err)
		}
		r.notifier.Notify("Backup uploaded", status.Success)

	case ActionDownload:
		r.notifier.Notify("Downloading backup", status.Info)
		records, err := r.download(ctx, tr, ref.Path, s.ExportPassword)
		if err != nil {
			return r.fail(ctx, log, action, "download failed", err)
		}
		if err := r.replace(ctx, records, true); err != nil {
			return r.fail(ctx, log, action, "import failed", err)
		}
		now := r.now().UnixMilli()
		cloud := *cloudTs
		err = r.updateMeta(ctx, func(m *models.SyncMetadata) {
			m.LastLocalUpdate = cloud
			m.LastCloudUpdate = cloud
			m.LastSyncTime = now
			m.SyncStatus = common.SyncStatusDownloaded
		})
		if err != nil {
			return r.fail(ctx, log, action, "record sync state failed", err)
		}
		if err := r.cache.Refresh(ctx); err != nil {
			log.Warn(ctx, "cache refresh after import failed", "error", err)
		}
		r.notifier.Notify(fmt.Sprintf("Restored %d records from backup", len(records)), status.Success)

	case ActionNone:
		r.notifier.Notify("Already in sync", status.Info)

	case ActionNothingToSync:
		r.notifier.Notify("Nothing to sync yet", status.Info)
	}

	return Outcome{Action: action}
}

// RefreshAndSync reloads the cache and then reconciles.
func (r *Reconciler) RefreshAndSync(ctx context.Context) Outcome {
	if err := r.cache.Refresh(ctx); err != nil {
		r.logger.Warn(ctx, "cache refresh failed", "error", err)
	}
	return r.PerformSyncIfNeeded(ctx)
}

// updateMeta applies fn to the current sync metadata and writes it back
// with CompareAndSwap, retrying when another writer got there first.
func (r *Reconciler) updateMeta(ctx context.Context, fn func(m *models.SyncMetadata)) error {
	var err error
	for i := 0; i < metaRetries; i++ {
		var m *models.SyncMetadata
		m, err = r.meta.Ensure(ctx)
		if err != nil {
			return err
		}
		fn(m)
		err = r.meta.CompareAndSwap(ctx, m)
		if !errors.Is(err, common.ErrVersionConflict) {
			return err
		}
	}
	return err
}

// upload exports all records into a temp file and sends it to remotePath.
// The temp file is removed on every path.
func (r *Reconciler) upload(ctx context.Context, tr remote.Transport, remotePath, password string) error {
	records, err := r.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	data, err := Seal(records, password)
	if err != nil {
		return err
	}
	return filex.WithTempFile(r.opts.TempDir, "passvault-upload-*.json", func(path string) error {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return err
		}
		return tr.Upload(ctx, remotePath, path)
	})
}

func (r *Reconciler) download(ctx context.Context, tr remote.Transport, remotePath, password string) ([]models.Credential, error) {
	var data []byte
	err := filex.WithTempFile(r.opts.TempDir, "passvault-download-*.json", func(path string) error {
		if err := tr.Download(ctx, remotePath, path); err != nil {
			return err
		}
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Open(data, password)
}

// replace swaps the record set. With skipBackup the change it causes does
// not trigger an auto-backup.
func (r *Reconciler) replace(ctx context.Context, records []models.Credential, skipBackup bool) error {
	if skipBackup {
		r.skipNext.Store(true)
	}
	if err := r.store.ReplaceAll(ctx, records); err != nil {
		if skipBackup {
			r.skipNext.Store(false)
		}
		return err
	}
	return nil
}

// Export writes an envelope with every record to w. Unlike the automatic
// paths it returns errors to the caller.
func (r *Reconciler) Export(ctx context.Context, w io.Writer, password string) error {
	records, err := r.store.LoadAll(ctx)
	if err != nil {
		return err
	}
	data, err := Seal(records, password)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	r.notifier.Notify(fmt.Sprintf("Exported %d records", len(records)), status.Success)
	return nil
}

// Import replaces every record with the content of an envelope read from
// in. The result counts as a local change and is backed up as usual.
func (r *Reconciler) Import(ctx context.Context, in io.Reader, password string) (int, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return 0, fmt.Errorf("read backup: %w", err)
	}
	records, err := Open(data, password)
	if err != nil {
		return 0, err
	}
	if err := r.replace(ctx, records, false); err != nil {
		return 0, err
	}
	if err := r.meta.TouchLocal(ctx, r.now().UnixMilli()); err != nil {
		return 0, err
	}
	if err := r.cache.Refresh(ctx); err != nil {
		r.logger.Warn(ctx, "cache refresh after import failed", "error", err)
	}
	r.notifier.Notify(fmt.Sprintf("Imported %d records", len(records)), status.Success)
	return len(records), nil
}
