package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"musicbox/config"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const listPage = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
<Name>music</Name><Prefix></Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys>
<IsTruncated>%t</IsTruncated>%s%s
</ListBucketResult>`

func listContents(keys ...string) string {
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>2024-05-01T10:00:00.000Z</LastModified><ETag>&quot;abc&quot;</ETag></Contents>", k, len(k))
	}
	return b.String()
}

// fakeS3 serves just enough of the S3 API for the gateway.
type fakeS3 struct {
	mu       sync.Mutex
	pages    map[string]string // continuation token -> body
	listHits int
	puts     []*http.Request
	putErr   string
	delay    time.Duration
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-r.Context().Done():
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.puts = append(f.puts, r)
		if f.putErr != "" {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>denied</Message><Resource>%s</Resource><RequestId>1</RequestId></Error>`, f.putErr, r.URL.Path)
			return
		}
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		f.listHits++
		body, ok := f.pages[r.URL.Query().Get("continuation-token")]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

type MinioStoreTestSuite struct {
	suite.Suite
	fake   *fakeS3
	server *httptest.Server
	store  *MinioStore
}

func (s *MinioStoreTestSuite) SetupTest() {
	s.fake = &fakeS3{pages: map[string]string{}}
	s.server = httptest.NewServer(s.fake)

	cfg := &config.Config{
		S3Endpoint:     s.server.URL,
		S3Region:       "us-east-1",
		S3AccessKey:    "access",
		S3SecretKey:    "secret",
		S3Bucket:       "music",
		S3UseSSL:       false,
		StorageTimeout: 2 * time.Second,
	}
	var err error
	s.store, err = NewMinioStore(cfg)
	s.Require().NoError(err)
}

func (s *MinioStoreTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *MinioStoreTestSuite) TestListFollowsContinuationTokens() {
	s.fake.pages[""] = fmt.Sprintf(listPage, 2, true,
		"<NextContinuationToken>page-2</NextContinuationToken>", listContents("a.mp3", "b.txt"))
	s.fake.pages["page-2"] = fmt.Sprintf(listPage, 2, true,
		"<NextContinuationToken>page-3</NextContinuationToken>", listContents("c.ogg", "folder/"))
	s.fake.pages["page-3"] = fmt.Sprintf(listPage, 1, false, "", listContents("d.wav"))

	objects, err := s.store.List(context.Background())
	s.Require().NoError(err)

	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	s.Equal([]string{"a.mp3", "b.txt", "c.ogg", "d.wav"}, keys)
	s.Equal(3, s.fake.listHits)
	s.Equal(int64(len("a.mp3")), objects[0].Size)
}

func (s *MinioStoreTestSuite) TestListFailsWhole() {
	s.fake.pages[""] = fmt.Sprintf(listPage, 1, true,
		"<NextContinuationToken>missing</NextContinuationToken>", listContents("a.mp3"))

	objects, err := s.store.List(context.Background())
	s.Error(err)
	s.Nil(objects)

	var se *StorageError
	s.Require().ErrorAs(err, &se)
	s.Equal("list", se.Op)
}

func (s *MinioStoreTestSuite) TestListTimeout() {
	s.fake.delay = 500 * time.Millisecond
	s.store.timeout = 50 * time.Millisecond

	_, err := s.store.List(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, ErrTimeout)
}

func (s *MinioStoreTestSuite) TestPutSendsObject() {
	err := s.store.Put(context.Background(), "track_one.mp3", strings.NewReader("abc"), 3, "audio/mpeg")
	s.Require().NoError(err)

	s.Require().Len(s.fake.puts, 1)
	req := s.fake.puts[0]
	s.Equal("/music/track_one.mp3", req.URL.Path)
	s.Equal("audio/mpeg", req.Header.Get("Content-Type"))
}

func (s *MinioStoreTestSuite) TestPutAuthFailure() {
	s.fake.putErr = "AccessDenied"

	err := s.store.Put(context.Background(), "x.mp3", strings.NewReader("abc"), 3, "audio/mpeg")
	s.Require().Error(err)
	s.ErrorIs(err, ErrAuth)
	s.NotErrorIs(err, ErrNetwork)
}

func (s *MinioStoreTestSuite) TestProbe() {
	s.fake.pages[""] = fmt.Sprintf(listPage, 1, false, "", listContents("first.mp3"))

	result, err := s.store.Probe(context.Background())
	s.Require().NoError(err)
	s.True(result.Exists)
	s.Equal("music", result.Bucket)
	s.Equal("first.mp3", result.SampleKey)
}

func (s *MinioStoreTestSuite) TestProbeLatencyUsesStoreClock() {
	s.fake.pages[""] = fmt.Sprintf(listPage, 0, false, "", "")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	s.store.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}

	result, err := s.store.Probe(context.Background())
	s.Require().NoError(err)
	s.Equal(250*time.Millisecond, result.Latency)
	s.Empty(result.SampleKey)
}

func TestMinioStoreTestSuite(t *testing.T) {
	suite.Run(t, new(MinioStoreTestSuite))
}

func newOfflineStore(t *testing.T) *MinioStore {
	t.Helper()
	store, err := NewMinioStore(&config.Config{
		S3Endpoint:  "https://s3.filebase.com",
		S3Region:    "us-east-1",
		S3AccessKey: "access",
		S3SecretKey: "secret",
		S3Bucket:    "music",
		S3UseSSL:    true,
	})
	require.NoError(t, err)
	return store
}

func TestSignEmbedsExpiry(t *testing.T) {
	store := newOfflineStore(t)
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return issued }

	signed, err := store.Sign(context.Background(), "track_one.mp3", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(signed.URL)
	require.NoError(t, err)
	assert.Equal(t, "/music/track_one.mp3", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	assert.True(t, signed.ValidAt(issued))
	assert.True(t, signed.ValidAt(issued.Add(3599*time.Second)))
	assert.False(t, signed.ValidAt(issued.Add(3601*time.Second)))
	assert.False(t, signed.ValidAt(issued.Add(-time.Second)))
}

func TestSignRejectsTTLOutsideS3Range(t *testing.T) {
	store := newOfflineStore(t)

	for _, ttl := range []time.Duration{0, 500 * time.Millisecond, 8 * 24 * time.Hour} {
		_, err := store.Sign(context.Background(), "a.mp3", ttl)
		assert.ErrorIs(t, err, ErrRejected, "ttl %s", ttl)
	}
}

func TestNewMinioStoreRequiresBucket(t *testing.T) {
	_, err := NewMinioStore(&config.Config{S3Endpoint: "s3.filebase.com"})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, KindAuth},
		{"bad key", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, KindAuth},
		{"no bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, KindNotFound},
		{"too large", minio.ErrorResponse{Code: "EntityTooLarge"}, KindRejected},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), KindTimeout},
		{"other", errors.New("connection refused"), KindNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(context.Background(), tt.err))
		})
	}
}

func TestWrapErrorKeepsExistingStorageError(t *testing.T) {
	orig := &StorageError{Op: "sign", Kind: KindAuth, Err: errors.New("x")}
	assert.Same(t, orig, wrapError(context.Background(), "list", "", orig))
	assert.NoError(t, wrapError(context.Background(), "list", "", nil))
}
