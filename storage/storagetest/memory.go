// Package storagetest provides an in-memory storage.ObjectStore for tests.
package storagetest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"
	"time"

	"musicbox/storage"
)

var _ storage.ObjectStore = (*MemoryStore)(nil)

// MemoryStore keeps objects in insertion order. Failures can be injected
// per operation; SignErrs fails signing of individual keys.
type MemoryStore struct {
	mu      sync.Mutex
	order   []string
	objects map[string][]byte
	types   map[string]string

	PutErr   error
	ListErr  error
	ProbeErr error
	SignErrs map[string]error

	// Now is the signing clock; defaults to time.Now.
	Now func() time.Time

	Puts  int
	Signs []SignCall
}

// SignCall records one Sign invocation.
type SignCall struct {
	Key string
	TTL time.Duration
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string][]byte),
		types:    make(map[string]string),
		SignErrs: make(map[string]error),
	}
}

// Seed adds objects without counting them as Puts.
func (m *MemoryStore) Seed(keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		m.store(key, []byte("seed:"+key), "")
	}
}

func (m *MemoryStore) store(key string, data []byte, contentType string) {
	if _, ok := m.objects[key]; !ok {
		m.order = append(m.order, key)
	}
	m.objects[key] = data
	m.types[key] = contentType
}

// Object returns the stored bytes for key.
func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// ContentType returns the content type recorded for key.
func (m *MemoryStore) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}

func (m *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return &storage.StorageError{Op: "put", Key: key, Kind: storage.KindNetwork, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &storage.StorageError{Op: "put", Key: key, Kind: storage.KindTimeout, Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	m.store(key, data, contentType)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.ObjectInfo, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, storage.ObjectInfo{
			Key:         key,
			Size:        int64(len(m.objects[key])),
			ContentType: m.types[key],
		})
	}
	return out, nil
}

func (m *MemoryStore) Sign(ctx context.Context, key string, ttl time.Duration) (storage.SignedURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Signs = append(m.Signs, SignCall{Key: key, TTL: ttl})
	if err := m.SignErrs[key]; err != nil {
		return storage.SignedURL{}, err
	}

	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	issued := now()
	expires := issued.Add(ttl)
	u := fmt.Sprintf("https://store.test/bucket/%s?X-Amz-Expires=%s",
		url.PathEscape(key), strconv.Itoa(int(ttl/time.Second)))
	return storage.SignedURL{URL: u, IssuedAt: issued, ExpiresAt: expires}, nil
}

func (m *MemoryStore) Probe(ctx context.Context) (storage.ProbeResult, error) {
	result := storage.ProbeResult{Endpoint: "memory://", Bucket: "test-bucket", Exists: true}
	if m.ProbeErr != nil {
		return result, m.ProbeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) > 0 {
		result.SampleKey = m.order[0]
	}
	return result, nil
}
