package remote

import (
	"context"
	"os"
	"path"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/studio-b12/gowebdav"
)

// WebDAV stores backups on a WebDAV share. gowebdav has no context
// support, so Config.Timeout bounds each request instead.
type WebDAV struct {
	client *gowebdav.Client
	logger logging.Logger
}

func NewWebDAV(cfg Config, logger logging.Logger) *WebDAV {
	c := gowebdav.NewClient(cfg.URL, cfg.Account, cfg.Password)
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	return &WebDAV{client: c, logger: logger}
}

func (w *WebDAV) Upload(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return opError("upload", remotePath, err)
	}

	// directory may already exist
	if err := w.client.MkdirAll(path.Dir(remotePath), 0o755); err != nil {
		w.logger.Debug(ctx, "webdav mkdir failed", "path", path.Dir(remotePath), "error", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return opError("upload", remotePath, err)
	}
	defer f.Close()

	return opError("upload", remotePath, w.client.WriteStream(remotePath, f, 0o644))
}

func (w *WebDAV) Download(ctx context.Context, remotePath, destPath string) error {
	if err := ctx.Err(); err != nil {
		return opError("download", remotePath, err)
	}
	rc, err := w.client.ReadStream(remotePath)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return notFound("download", remotePath, err)
		}
		return opError("download", remotePath, err)
	}
	defer rc.Close()

	return opError("download", remotePath, writeFile(destPath, rc))
}

func (w *WebDAV) Delete(ctx context.Context, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return opError("delete", remotePath, err)
	}
	err := w.client.Remove(remotePath)
	if err != nil && gowebdav.IsErrNotFound(err) {
		return notFound("delete", remotePath, err)
	}
	return opError("delete", remotePath, err)
}

func (w *WebDAV) LatestBackup(ctx context.Context) (*BackupRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, opError("list", BackupDir, err)
	}
	infos, err := w.client.ReadDir(BackupDir)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, opError("list", BackupDir, err)
	}

	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		if !fi.IsDir() {
			names = append(names, fi.Name())
		}
	}
	return latestOf(names), nil
}
