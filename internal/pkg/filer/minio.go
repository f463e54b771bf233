package filer

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/rhemaflow/internal/pkg/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioOptions keeps object store settings
type MinioOptions struct {
	URL    string
	User   string
	Key    string
	Bucket string
	Secure bool
}

// Minio keeps media files in an S3 compatible object store
type Minio struct {
	client *minio.Client
	bucket string
}

// NewMinio creates minio filer, makes the bucket if it is missing
func NewMinio(ctx context.Context, opt MinioOptions) (*Minio, error) {
	if opt.URL == "" {
		return nil, errors.New("no URL")
	}
	if opt.Bucket == "" {
		return nil, errors.New("no bucket")
	}
	goapp.Log.Info().Str("url", opt.URL).Str("user", opt.User).Str("bucket", opt.Bucket).Msg("minio filer")
	client, err := minio.New(opt.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.User, opt.Key, ""),
		Secure: opt.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	ok, err := client.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !ok {
		goapp.Log.Info().Str("bucket", opt.Bucket).Msg("creating bucket")
		if err := client.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't create bucket: %w", err)
		}
	}
	return &Minio{client: client, bucket: opt.Bucket}, nil
}

// SaveFile uploads file
func (m *Minio) SaveFile(ctx context.Context, name string, r io.Reader, fileSize int64) error {
	info, err := m.client.PutObject(ctx, m.bucket, name, r, fileSize, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("can't save %s: %w", name, err)
	}
	goapp.Log.Debug().Str("file", name).Int64("bytes", info.Size).Msg("saved")
	return nil
}

// LoadFile opens the object, fails with not found if it is missing
func (m *Minio) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(name, err)
	}
	// GetObject is lazy, stat to find missing objects early
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapErr(name, err)
	}
	return obj, nil
}

// DeleteFile removes the object, a missing object is not an error
func (m *Minio) DeleteFile(ctx context.Context, name string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("can't delete %s: %w", name, err)
	}
	return nil
}

func mapErr(name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("no file '%s': %w", name, utils.ErrNotFound)
	}
	return fmt.Errorf("can't load %s: %w", name, err)
}

func isNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && errTest.StatusCode == http.StatusNotFound
}
