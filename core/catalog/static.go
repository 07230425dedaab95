package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musicbox/core/upload"
	"musicbox/model"
)

// defaultStaticTracks is the demo playlist served without a bucket.
var defaultStaticTracks = []model.Track{
	{
		Key:         "sample_track_1.mp3",
		Name:        "Sample Track 1",
		Title:       "Sample Track 1",
		Artist:      "Demo Artist",
		PlaybackURL: "/static/music/sample_track_1.mp3",
		Cover:       "/static/images/default-cover.jpg",
	},
	{
		Key:         "sample_track_2.mp3",
		Name:        "Sample Track 2",
		Title:       "Sample Track 2",
		Artist:      "Demo Artist",
		PlaybackURL: "/static/music/sample_track_2.mp3",
		Cover:       "/static/images/default-cover.jpg",
	},
}

// StaticProvider serves a fixed playlist and never touches the store.
type StaticProvider struct {
	tracks []model.Track
}

func NewStaticProvider(tracks []model.Track) *StaticProvider {
	if tracks == nil {
		tracks = defaultStaticTracks
	}
	return &StaticProvider{tracks: tracks}
}

// ParseStatic reads "key|url[|artist[|cover]]" entries separated by ';'.
// Blank input returns nil; NewStaticProvider then uses the demo list.
func ParseStatic(raw string) ([]model.Track, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var tracks []model.Track
	for i, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" || strings.TrimSpace(fields[1]) == "" {
			return nil, fmt.Errorf("static catalog entry %d: want key|url[|artist[|cover]]", i+1)
		}
		key := strings.TrimSpace(fields[0])
		if !upload.IsAllowed(key) {
			return nil, fmt.Errorf("static catalog entry %d: %q is not an audio file", i+1, key)
		}
		title := Title(key)
		t := model.Track{
			Key:         key,
			Name:        title,
			Title:       title,
			PlaybackURL: strings.TrimSpace(fields[1]),
		}
		if len(fields) > 2 {
			t.Artist = strings.TrimSpace(fields[2])
		}
		if len(fields) > 3 {
			t.Cover = strings.TrimSpace(fields[3])
		}
		tracks = append(tracks, t)
	}
	if len(tracks) == 0 {
		return nil, errors.New("static catalog has no entries")
	}
	return tracks, nil
}

// BuildPlaylist returns a copy so callers cannot mutate the fixed list.
func (p *StaticProvider) BuildPlaylist(context.Context) ([]model.Track, error) {
	out := make([]model.Track, len(p.tracks))
	copy(out, p.tracks)
	return out, nil
}
