package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// SignedURL is a retrieval URL that stops working at ExpiresAt.
type SignedURL struct {
	URL       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the URL is usable at t. The window is
// [IssuedAt, ExpiresAt).
func (s SignedURL) ValidAt(t time.Time) bool {
	return !t.Before(s.IssuedAt) && t.Before(s.ExpiresAt)
}

// ProbeResult describes a connectivity check against the bucket.
type ProbeResult struct {
	Endpoint  string        `json:"endpoint"`
	Bucket    string        `json:"bucket"`
	Exists    bool          `json:"exists"`
	SampleKey string        `json:"sample_key,omitempty"`
	Latency   time.Duration `json:"latency_ns"`
}

// ObjectStore is the gateway to an S3-compatible bucket.
type ObjectStore interface {
	// Put uploads r under key, silently replacing an existing object.
	// size may be -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// List enumerates every object in the bucket, following pagination
	// until the store reports no more pages.
	List(ctx context.Context) ([]ObjectInfo, error)

	// Sign returns a GET URL for key that expires ttl from now.
	// It does not check that key exists.
	Sign(ctx context.Context, key string, ttl time.Duration) (SignedURL, error)

	// Probe checks that the bucket is reachable with the configured credentials.
	Probe(ctx context.Context) (ProbeResult, error)
}
