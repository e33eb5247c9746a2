package syncer

import (
	"context"
	"slices"
	"time"

	"github.com/dmitrijs2005/passvault/internal/client/models"
	"github.com/dmitrijs2005/passvault/internal/client/remote"
	"github.com/dmitrijs2005/passvault/internal/client/status"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/google/uuid"
)

// StartAutoBackup uploads a fresh backup whenever the record set settles
// after a change. Changes are debounced and identical lists are dropped.
// The list present at subscription time is taken as the baseline before
// this returns, so a change published right after (a download for
// instance) is always seen as a change. The returned channel is closed once
// ctx is cancelled and the loop has stopped.
func (r *Reconciler) StartAutoBackup(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	changes := r.store.Subscribe(ctx)

	var last []models.Credential
	select {
	case rows, ok := <-changes:
		if ok {
			last = rows
		}
	default:
	}

	go func() {
		defer close(done)

		var (
			pending []models.Credential
			timer   *time.Timer
			timerC  <-chan time.Time
		)
		stop := func() {
			if timer != nil {
				timer.Stop()
			}
		}
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return

			case rows, ok := <-changes:
				if !ok {
					return
				}
				pending = rows
				stop()
				timer = time.NewTimer(r.opts.Debounce)
				timerC = timer.C

			case <-timerC:
				timerC = nil
				skip := r.skipNext.CompareAndSwap(true, false)
				if slices.Equal(pending, last) {
					continue
				}
				last = pending
				if skip {
					r.logger.Debug(ctx, "auto-backup skipped after import")
					continue
				}
				r.autoBackup(ctx, pending)
			}
		}
	}()

	return done
}

// autoBackup uploads backup_<now> and marks local and cloud as equal.
// An empty vault is never backed up. Failures are reported and swallowed.
func (r *Reconciler) autoBackup(ctx context.Context, rows []models.Credential) {
	s := r.settings.Current()
	if len(rows) == 0 || !s.AutoBackup || !s.SyncConfigured() {
		return
	}
	log := r.logger.With("backup_id", uuid.NewString())

	tr, err := r.transport(s)
	if err != nil {
		r.fail(ctx, log, ActionUpload, "auto-backup failed", err)
		return
	}

	now := r.now().UnixMilli()
	if err := r.upload(ctx, tr, remote.BackupName(now), s.ExportPassword); err != nil {
		r.fail(ctx, log, ActionUpload, "auto-backup failed", err)
		return
	}
	err = r.updateMeta(ctx, func(m *models.SyncMetadata) {
		m.LastLocalUpdate = now
		m.LastCloudUpdate = now
		m.LastSyncTime = now
		m.SyncStatus = common.SyncStatusSuccess
	})
	if err != nil {
		r.fail(ctx, log, ActionUpload, "record sync state failed", err)
		return
	}
	log.Info(ctx, "auto-backup uploaded", "ts", now)
	r.notifier.Notify("Backup saved", status.Success)
}
