package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"musicbox/config"
	"musicbox/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 presigned URLs accept expiries between one second and seven days.
const (
	minSignTTL = time.Second
	maxSignTTL = 7 * 24 * time.Hour
)

// MinioStore 封装了 MinIO 客户端, talking to any S3-compatible endpoint.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	timeout    time.Duration
	now        func() time.Time
}

// NewMinioStore 创建一个新的 MinIO 客户端 from the loaded configuration.
// With a region configured no network call is made here.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("bucket name is not configured")
	}

	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.S3Endpoint, "https://"), "http://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	timeout := cfg.StorageTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	logger.Info("object store client created",
		logger.String("endpoint", endpoint),
		logger.String("region", cfg.S3Region),
		logger.String("bucket", cfg.S3Bucket),
		logger.Bool("ssl", cfg.S3UseSSL))

	return &MinioStore{
		client:     client,
		bucketName: cfg.S3Bucket,
		timeout:    timeout,
		now:        time.Now,
	}, nil
}

// Bucket returns the configured bucket name.
func (m *MinioStore) Bucket() string {
	return m.bucketName
}

// withTimeout bounds read-only calls; the caller's deadline wins if it is earlier.
func (m *MinioStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.timeout)
}

// Put streams r into the bucket. The caller's context governs the upload
// lifetime so a disconnecting client aborts the write.
func (m *MinioStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := m.client.PutObject(ctx, m.bucketName, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return wrapError(ctx, "put", key, err)
	}
	logger.Debug("object stored",
		logger.String("key", key),
		logger.Int64("size", info.Size),
		logger.String("etag", info.ETag))
	return nil
}

// List 列出存储桶中的所有对象. The minio-go iterator issues
// ListObjectsV2 requests until no continuation token remains.
func (m *MinioStore) List(ctx context.Context) ([]ObjectInfo, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel() // also stops the listing goroutine on early return

	var objects []ObjectInfo
	objectCh := m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, wrapError(ctx, "list", "", object.Err)
		}
		if strings.HasSuffix(object.Key, "/") {
			continue // folder marker
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}
	if err := ctx.Err(); err != nil {
		// the channel also closes when the deadline fires mid-listing
		return nil, wrapError(ctx, "list", "", err)
	}
	return objects, nil
}

// Sign produces a presigned GET URL valid for ttl.
func (m *MinioStore) Sign(ctx context.Context, key string, ttl time.Duration) (SignedURL, error) {
	if ttl < minSignTTL || ttl > maxSignTTL {
		return SignedURL{}, &StorageError{
			Op:   "sign",
			Key:  key,
			Kind: KindRejected,
			Err:  fmt.Errorf("ttl %s outside [%s, %s]", ttl, minSignTTL, maxSignTTL),
		}
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	issued := m.now()
	u, err := m.client.PresignedGetObject(ctx, m.bucketName, key, ttl, nil)
	if err != nil {
		return SignedURL{}, wrapError(ctx, "sign", key, err)
	}
	return SignedURL{
		URL:       u.String(),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}, nil
}

// Probe checks the bucket exists and fetches at most one key.
func (m *MinioStore) Probe(ctx context.Context) (ProbeResult, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	result := ProbeResult{
		Endpoint: m.client.EndpointURL().String(),
		Bucket:   m.bucketName,
	}
	start := m.now()

	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return result, wrapError(ctx, "probe", "", err)
	}
	result.Exists = exists
	if !exists {
		result.Latency = m.now().Sub(start)
		return result, &StorageError{Op: "probe", Kind: KindNotFound, Err: fmt.Errorf("存储桶 %s 不存在", m.bucketName)}
	}

	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{MaxKeys: 1}) {
		if object.Err != nil {
			return result, wrapError(ctx, "probe", "", object.Err)
		}
		result.SampleKey = object.Key
		break
	}
	result.Latency = m.now().Sub(start)
	return result, nil
}
