package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/passvault/internal/logging"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio stores backups in a MinIO bucket. Config.URL is http(s)://host:port.
type Minio struct {
	client *minio.Client
	bucket string
	logger logging.Logger
}

func NewMinio(cfg Config, logger logging.Logger) (*Minio, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("minio: invalid endpoint %q", cfg.URL)
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Account, cfg.Password, ""),
		Secure: u.Scheme == "https",
		Region: region,
	}
	if cfg.Timeout > 0 {
		opts.Transport = newHTTPClient(cfg.Timeout).Transport
	}

	client, err := minio.New(u.Host, opts)
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	return &Minio{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

func (m *Minio) Upload(ctx context.Context, remotePath, localPath string) error {
	info, err := m.client.FPutObject(ctx, m.bucket, remotePath, localPath, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return opError("upload", remotePath, err)
	}
	m.logger.Debug(ctx, "minio object stored", "path", remotePath, "size", info.Size)
	return nil
}

func (m *Minio) Download(ctx context.Context, remotePath, destPath string) error {
	obj, err := m.client.GetObject(ctx, m.bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return opError("download", remotePath, err)
	}
	defer obj.Close()

	// GetObject is lazy; Stat surfaces a missing key before anything is written.
	if _, err := obj.Stat(); err != nil {
		if isNoSuchKey(err) {
			return notFound("download", remotePath, err)
		}
		return opError("download", remotePath, err)
	}
	return opError("download", remotePath, writeFile(destPath, obj))
}

func (m *Minio) Delete(ctx context.Context, remotePath string) error {
	err := m.client.RemoveObject(ctx, m.bucket, remotePath, minio.RemoveObjectOptions{})
	return opError("delete", remotePath, err)
}

func (m *Minio) LatestBackup(ctx context.Context) (*BackupRef, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var names []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix: BackupDir + "/",
	}) {
		if obj.Err != nil {
			if isNoSuchKey(obj.Err) {
				return nil, nil
			}
			return nil, opError("list", BackupDir, obj.Err)
		}
		names = append(names, obj.Key)
	}
	return latestOf(names), nil
}
