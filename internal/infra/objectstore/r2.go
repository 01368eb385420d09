package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/note-it-down/internal/domain/recording"
)

// singlePartLimit keeps short voice notes out of multipart uploads.
const singlePartLimit = 5 * 1024 * 1024

// S3Archive keeps recordings in an S3-compatible bucket such as Cloudflare R2.
type S3Archive struct {
	client *minio.Client
	bucket string
	logger *slog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

// S3Config carries bucket credentials.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
}

// NewS3Archive builds the minio client for the configured endpoint.
func NewS3Archive(cfg S3Config, logger *slog.Logger) (*S3Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	host, secure := endpointHost(cfg.Endpoint)
	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Archive{client: client, bucket: cfg.Bucket, logger: logger.With("component", "objectstore.s3")}, nil
}

func (s *S3Archive) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err == nil && exists {
			return
		}
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
			s.bucketErr = err
		}
	})
	return s.bucketErr
}

// Put implements recording.Archive.
func (s *S3Archive) Put(ctx context.Context, key string, body io.Reader, size int64, mimeType string) (recording.StoredObject, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return recording.StoredObject{}, fmt.Errorf("ensure bucket: %w", err)
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:      mimeType,
		DisableMultipart: size >= 0 && size < singlePartLimit,
	})
	if err != nil {
		return recording.StoredObject{}, err
	}
	s.logger.Debug("recording archived", "key", key, "bytes", info.Size)
	return recording.StoredObject{Key: key, Size: info.Size, MimeType: mimeType, ETag: info.ETag}, nil
}

// Get implements recording.Archive.
func (s *S3Archive) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}

// Delete implements recording.Archive.
func (s *S3Archive) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

var _ recording.Archive = (*S3Archive)(nil)

// endpointHost strips scheme and path, which minio.New rejects.
func endpointHost(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", true
	}
	if !strings.Contains(raw, "://") {
		return strings.SplitN(raw, "/", 2)[0], true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw, true
	}
	return u.Host, !strings.EqualFold(u.Scheme, "http")
}
