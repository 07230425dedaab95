package model

import "time"

// Track is a playable entry derived from one bucket object.
// It is rebuilt on every catalog request and never persisted.
type Track struct {
	Key         string     `json:"key"`
	Name        string     `json:"name"` // same as Title, read by the browser player
	Title       string     `json:"title"`
	PlaybackURL string     `json:"url"`
	Size        int64      `json:"size"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // nil for tracks without a signed URL
	Artist      string     `json:"artist,omitempty"`
	Cover       string     `json:"cover,omitempty"`
}
