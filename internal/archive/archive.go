// Package archive keeps copies of exported files in S3-compatible storage.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/JonMunkholm/dataprep/internal/config"
	"github.com/JonMunkholm/dataprep/internal/core"
)

// S3Archiver implements core.ExportArchiver.
type S3Archiver struct {
	put     func(ctx context.Context, key string, data []byte, contentType string) error
	bucket  string
	timeout time.Duration
	now     func() time.Time
}

// New connects to the endpoint and creates the bucket when missing.
func New(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	put := func(ctx context.Context, key string, data []byte, contentType string) error {
		_, err := client.PutObject(ctx, cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: contentType})
		return err
	}
	return newArchiver(put, cfg.Bucket, cfg.Timeout), nil
}

func newArchiver(put func(context.Context, string, []byte, string) error, bucket string, timeout time.Duration) *S3Archiver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &S3Archiver{put: put, bucket: bucket, timeout: timeout, now: time.Now}
}

// ArchiveExport uploads the exported bytes and returns the object key.
func (a *S3Archiver) ArchiveExport(ctx context.Context, sessionID, fileID string, res *core.ExportResult) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	key := ObjectKey(a.now(), sessionID, fileID, res.FileName)
	if err := a.put(ctx, key, res.Data, res.MIMEType); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", a.bucket, key, err)
	}
	return key, nil
}

// ObjectKey lays exports out as yyyy/mm/dd/session/file/name.
func ObjectKey(at time.Time, sessionID, fileID, fileName string) string {
	return path.Join(
		at.Format("2006"),
		at.Format("01"),
		at.Format("02"),
		sessionID,
		fileID,
		path.Base(fileName),
	)
}

var _ core.ExportArchiver = (*S3Archiver)(nil)
