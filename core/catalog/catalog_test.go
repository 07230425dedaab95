package catalog

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"musicbox/core/upload"
	"musicbox/storage"
	"musicbox/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestTitle(t *testing.T) {
	assert.Equal(t, "track one", Title("track_one.mp3"))
	assert.Equal(t, "my song live", Title("my-song_live.OGG"))
	assert.Equal(t, "a.b", Title("a.b.wav"))
	assert.Equal(t, "plain", Title("plain"))
}

type StorageProviderTestSuite struct {
	suite.Suite
	store    *storagetest.MemoryStore
	provider *StorageProvider
}

func (s *StorageProviderTestSuite) SetupTest() {
	s.store = storagetest.NewMemoryStore()
	s.provider = NewStorageProvider(s.store, DefaultURLTTL)
}

func (s *StorageProviderTestSuite) keys() []string {
	tracks, err := s.provider.BuildPlaylist(context.Background())
	s.Require().NoError(err)
	keys := make([]string, 0, len(tracks))
	for _, t := range tracks {
		keys = append(keys, t.Key)
	}
	return keys
}

func (s *StorageProviderTestSuite) TestFiltersToAudioAndKeepsOrder() {
	s.store.Seed("z.mp3", "cover.jpg", "b.WAV", "readme", "folder/a.ogg", "x.mp3.bak")

	s.Equal([]string{"z.mp3", "b.WAV", "folder/a.ogg"}, s.keys())
	for _, call := range s.store.Signs {
		s.Equal(time.Hour, call.TTL)
	}
	s.Len(s.store.Signs, 3)
}

func (s *StorageProviderTestSuite) TestNeverIncludesDisallowedKeys() {
	s.store.Seed("a.txt", "b.flac", "c.m4a", "mp3", ".wav.part")

	s.Empty(s.keys())
	s.Empty(s.store.Signs)
}

func (s *StorageProviderTestSuite) TestSkipsEntryWhoseSigningFails() {
	s.store.Seed("one.mp3", "two.mp3", "three.mp3", "four.mp3")
	s.store.SignErrs["two.mp3"] = &storage.StorageError{Op: "sign", Kind: storage.KindAuth, Err: errors.New("denied")}

	keys := s.keys()
	s.Len(keys, 3)
	s.Equal([]string{"one.mp3", "three.mp3", "four.mp3"}, keys)
}

func (s *StorageProviderTestSuite) TestListFailureReturnsNoPartialResult() {
	s.store.Seed("one.mp3")
	s.store.ListErr = &storage.StorageError{Op: "list", Kind: storage.KindTimeout, Err: context.DeadlineExceeded}

	tracks, err := s.provider.BuildPlaylist(context.Background())
	s.ErrorIs(err, storage.ErrTimeout)
	s.Nil(tracks)
}

func (s *StorageProviderTestSuite) TestEmptyBucket() {
	tracks, err := s.provider.BuildPlaylist(context.Background())
	s.Require().NoError(err)
	s.NotNil(tracks)
	s.Empty(tracks)
}

func (s *StorageProviderTestSuite) TestURLExpiryWindow() {
	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.store.Now = func() time.Time { return issued }
	s.store.Seed("track_one.mp3")

	tracks, err := s.provider.BuildPlaylist(context.Background())
	s.Require().NoError(err)
	s.Require().Len(tracks, 1)
	s.Require().NotNil(tracks[0].ExpiresAt)

	signed := storage.SignedURL{URL: tracks[0].PlaybackURL, IssuedAt: issued, ExpiresAt: *tracks[0].ExpiresAt}
	s.True(signed.ValidAt(issued.Add(3599 * time.Second)))
	s.False(signed.ValidAt(issued.Add(3601 * time.Second)))
}

func (s *StorageProviderTestSuite) TestUploadedTrackAppearsInPlaylist() {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "track_one.mp3")
	s.Require().NoError(err)
	_, _ = part.Write([]byte("audio"))
	s.Require().NoError(w.Close())
	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	s.Require().NoError(err)
	defer form.RemoveAll()

	_, err = upload.NewService(s.store, 0).Upload(context.Background(), true, form.File["file"][0])
	s.Require().NoError(err)

	tracks, err := s.provider.BuildPlaylist(context.Background())
	s.Require().NoError(err)
	s.Require().Len(tracks, 1)
	s.Equal("track_one.mp3", tracks[0].Key)
	s.Equal("track one", tracks[0].Title)
	s.Equal("track one", tracks[0].Name)
	s.NotEmpty(tracks[0].PlaybackURL)
}

func TestStorageProviderTestSuite(t *testing.T) {
	suite.Run(t, new(StorageProviderTestSuite))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(nil)
	tracks, err := p.BuildPlaylist(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Sample Track 1", tracks[0].Name)

	tracks[0].Name = "mutated"
	again, _ := p.BuildPlaylist(context.Background())
	assert.Equal(t, "Sample Track 1", again[0].Name)
}

func TestParseStatic(t *testing.T) {
	tracks, err := ParseStatic("intro_song.mp3|https://cdn.test/intro.mp3|Band; outro.ogg|/static/outro.ogg")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "intro song", tracks[0].Title)
	assert.Equal(t, "Band", tracks[0].Artist)
	assert.Equal(t, "/static/outro.ogg", tracks[1].PlaybackURL)

	empty, err := ParseStatic("  ")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseStatic("broken")
	assert.Error(t, err)
	_, err = ParseStatic("notes.txt|/x")
	assert.Error(t, err)
}
