// Package remote moves encrypted backup files to and from a remote file
// store. Backups live under backup/ and carry their creation time in the
// file name, which is the only recency information the remote keeps.
package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/passvault/internal/client/settings"
	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/logging"
)

// BackupRef points at one backup file.
type BackupRef struct {
	// Path is relative to the remote root, e.g. backup/backup_1700000000000.json.
	Path      string
	Timestamp int64
}

// Transport is implemented by every backend. Methods never panic; every
// failure is an *Error.
type Transport interface {
	Upload(ctx context.Context, remotePath, localPath string) error
	Download(ctx context.Context, remotePath, destPath string) error
	Delete(ctx context.Context, remotePath string) error
	// LatestBackup returns (nil, nil) when there is no backup yet.
	LatestBackup(ctx context.Context) (*BackupRef, error)
}

// Error describes a failed transport operation.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Path: path, Err: err}
}

func notFound(op, path string, err error) error {
	return &Error{Op: op, Path: path, Err: fmt.Errorf("%w: %v", common.ErrorNotFound, err)}
}

// Config selects and parameterizes a backend.
type Config struct {
	Kind     string
	URL      string
	Account  string
	Password string
	Bucket   string
	Region   string
	Timeout  time.Duration
}

// ConfigFromSettings copies the remote part of s.
func ConfigFromSettings(s settings.Settings, timeout time.Duration) Config {
	return Config{
		Kind:     s.RemoteKind,
		URL:      s.ServerURL,
		Account:  s.Account,
		Password: s.Password,
		Bucket:   s.Bucket,
		Region:   s.Region,
		Timeout:  timeout,
	}
}

func (c Config) configured() bool {
	return settings.Settings{
		RemoteKind: c.Kind,
		ServerURL:  c.URL,
		Account:    c.Account,
		Password:   c.Password,
	}.SyncConfigured()
}

// New builds the backend named by cfg.Kind (webdav when empty). A blank
// URL, account or password yields common.ErrSyncNotConfigured.
func New(cfg Config, logger logging.Logger) (Transport, error) {
	if !cfg.configured() {
		return nil, common.ErrSyncNotConfigured
	}
	switch strings.ToLower(cfg.Kind) {
	case "", settings.KindWebDAV:
		return NewWebDAV(cfg, logger), nil
	case settings.KindS3:
		return NewS3(context.Background(), cfg, logger)
	case settings.KindMinio:
		return NewMinio(cfg, logger)
	case settings.KindDir:
		return NewDir(cfg.URL, logger), nil
	}
	return nil, fmt.Errorf("unknown remote kind %q", cfg.Kind)
}

// writeFile copies r into path, truncating it.
func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
