package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/passvault/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/passvault/internal/client/repositories/history"
	"github.com/dmitrijs2005/passvault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/passvault/internal/client/repositories/recyclebin"
	"github.com/dmitrijs2005/passvault/internal/client/repositories/syncmeta"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/filex"
	"github.com/gofrs/flock"
)

// Repositories groups every repository bound to the same handle.
type Repositories struct {
	Metadata    metadata.Repository
	Credentials credentials.Repository
	RecycleBin  recyclebin.Repository
	History     history.Repository
	SyncMeta    syncmeta.Repository
}

// NewRepositories binds all repositories to db, which may be *sql.DB or *sql.Tx.
func NewRepositories(db dbx.DBTX) *Repositories {
	return &Repositories{
		Metadata:    metadata.NewSQLiteRepository(db),
		Credentials: credentials.NewSQLiteRepository(db),
		RecycleBin:  recyclebin.NewSQLiteRepository(db),
		History:     history.NewSQLiteRepository(db),
		SyncMeta:    syncmeta.NewSQLiteRepository(db),
	}
}

// Vault is an open vault database.
type Vault struct {
	DB    *sql.DB
	Repos *Repositories

	path string
	lock *flock.Flock
}

// Open locks and opens the vault file dir/file, creating dir if needed.
// A second process opening the same vault gets common.ErrVaultLocked.
func Open(ctx context.Context, dir, file string) (*Vault, error) {
	if _, err := filex.EnsureDir(dir); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, file)

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock vault: %w", err)
	}
	if !ok {
		return nil, common.ErrVaultLocked
	}

	db, err := InitDatabase(ctx, DSN(path))
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open vault %s: %w", path, err)
	}

	return &Vault{
		DB:    db,
		Repos: NewRepositories(db),
		path:  path,
		lock:  lock,
	}, nil
}

// Path returns the database file path.
func (v *Vault) Path() string { return v.path }

// WithTx runs fn with repositories bound to a single transaction.
func (v *Vault) WithTx(ctx context.Context, fn func(ctx context.Context, r *Repositories) error) error {
	return dbx.WithTx(ctx, v.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewRepositories(tx))
	})
}

// Close closes the database and releases the file lock.
func (v *Vault) Close() error {
	err := v.DB.Close()
	if uerr := v.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}
