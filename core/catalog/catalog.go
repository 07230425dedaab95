package catalog

import (
	"context"
	"path"
	"strings"
	"time"

	"musicbox/core/upload"
	"musicbox/logger"
	"musicbox/model"
	"musicbox/storage"
)

// DefaultURLTTL is the lifetime of each playback URL.
const DefaultURLTTL = time.Hour

// Provider builds the playlist served to clients.
type Provider interface {
	BuildPlaylist(ctx context.Context) ([]model.Track, error)
}

// Title derives a display title from an object key: the extension is
// dropped and '_' / '-' become spaces.
func Title(key string) string {
	base := strings.TrimSuffix(key, path.Ext(key))
	return strings.NewReplacer("_", " ", "-", " ").Replace(base)
}

// StorageProvider lists the live bucket and signs a URL per audio object.
type StorageProvider struct {
	store storage.ObjectStore
	ttl   time.Duration
}

func NewStorageProvider(store storage.ObjectStore, ttl time.Duration) *StorageProvider {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &StorageProvider{store: store, ttl: ttl}
}

// BuildPlaylist returns tracks in store listing order. A failed listing
// fails the whole call; a failed signature only drops that entry.
func (p *StorageProvider) BuildPlaylist(ctx context.Context) ([]model.Track, error) {
	objects, err := p.store.List(ctx)
	if err != nil {
		logger.Error("[Catalog] 获取音乐列表失败", logger.ErrorField(err))
		return nil, err
	}

	tracks := make([]model.Track, 0, len(objects))
	for _, obj := range objects {
		if !upload.IsAllowed(obj.Key) {
			continue
		}

		signed, err := p.store.Sign(ctx, obj.Key, p.ttl)
		if err != nil {
			logger.Warn("[Catalog] skipping track, signing failed",
				logger.String("key", obj.Key),
				logger.ErrorField(err))
			continue
		}

		title := Title(obj.Key)
		expires := signed.ExpiresAt
		tracks = append(tracks, model.Track{
			Key:         obj.Key,
			Name:        title,
			Title:       title,
			PlaybackURL: signed.URL,
			Size:        obj.Size,
			ExpiresAt:   &expires,
		})
	}

	logger.Debug("[Catalog] playlist built",
		logger.Int("objects", len(objects)),
		logger.Int("tracks", len(tracks)))
	return tracks, nil
}
