// Package cache provides the generic key-value persistence used for
// settings and download bookkeeping. Values are strings; structured data
// is stored as JSON.
package cache

import "context"

// Well-known keys.
const (
	// KeyDownloads holds the JSON download record list, most-recent first.
	KeyDownloads = "sausico:downloads"
	// KeyContentQuality holds the active quality tier name (LOW/MEDIUM/...).
	KeyContentQuality = "sausico:content_quality"
	// KeyLastPlayed holds the JSON last-played snapshot for cold-start restore.
	KeyLastPlayed = "sausico:last_played"
)

// Store is the key-value persistence contract. GetItem returns "" with a
// nil error when the key is absent.
type Store interface {
	GetItem(ctx context.Context, key string) (string, error)
	SetItem(ctx context.Context, key, value string) error
}
