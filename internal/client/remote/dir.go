package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/passvault/internal/filex"
	"github.com/dmitrijs2005/passvault/internal/logging"
)

// Dir keeps backups in a local (or mounted) directory.
type Dir struct {
	root   string
	logger logging.Logger
}

func NewDir(root string, logger logging.Logger) *Dir {
	return &Dir{root: root, logger: logger}
}

func (d *Dir) abs(remotePath string) string {
	return filepath.Join(d.root, filepath.FromSlash(remotePath))
}

func (d *Dir) Upload(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return opError("upload", remotePath, err)
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return opError("upload", remotePath, err)
	}
	dst := d.abs(remotePath)
	if _, err := filex.EnsureDir(filepath.Dir(dst)); err != nil {
		return opError("upload", remotePath, err)
	}
	return opError("upload", remotePath, filex.WriteFileAtomic(dst, data, 0o600))
}

func (d *Dir) Download(ctx context.Context, remotePath, destPath string) error {
	if err := ctx.Err(); err != nil {
		return opError("download", remotePath, err)
	}
	f, err := os.Open(d.abs(remotePath))
	if errors.Is(err, os.ErrNotExist) {
		return notFound("download", remotePath, err)
	}
	if err != nil {
		return opError("download", remotePath, err)
	}
	defer f.Close()
	return opError("download", remotePath, writeFile(destPath, f))
}

func (d *Dir) Delete(ctx context.Context, remotePath string) error {
	err := os.Remove(d.abs(remotePath))
	if errors.Is(err, os.ErrNotExist) {
		return notFound("delete", remotePath, err)
	}
	return opError("delete", remotePath, err)
}

func (d *Dir) LatestBackup(ctx context.Context) (*BackupRef, error) {
	entries, err := os.ReadDir(d.abs(BackupDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, opError("list", BackupDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return latestOf(names), nil
}
