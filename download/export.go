package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/storage"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeComponent makes one filename component filesystem-safe and caps
// it at 50 characters.
func sanitizeComponent(s string) string {
	s = unsafeFilenameChars.ReplaceAllString(s, "_")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// extensionForType infers a file extension from a declared media type.
func extensionForType(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"):
		return "m4a"
	case strings.Contains(ct, "aac"):
		return "aac"
	default:
		return "mp3"
	}
}

// exportFilename builds "<title> - <artist>.<ext>" from sanitized parts.
func exportFilename(title, artist, contentType string) string {
	if strings.TrimSpace(title) == "" {
		title = "Unknown"
	}
	return fmt.Sprintf("%s - %s.%s",
		sanitizeComponent(title),
		sanitizeComponent(artist),
		extensionForType(contentType))
}

// ExportTracks materializes the downloaded tracks to the export directory,
// sequentially, with a pacing delay between exports. Ids that are not
// downloaded are skipped; the first write failure aborts the rest.
func (m *Manager) ExportTracks(ctx context.Context, ids []string) error {
	records, err := m.Records(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(m.exportDir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create export dir: %w", ErrStoreFailure, err)
	}

	for i, id := range ids {
		rec := findRecord(records, id)
		if rec == nil {
			continue
		}

		data, contentType, err := m.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return fmt.Errorf("track %s: %w: %w", id, ErrStoreFailure, err)
		}

		filename := exportFilename(rec.Track.Title, rec.Track.PrimaryArtist(), contentType)
		path := filepath.Join(m.exportDir, filename)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("track %s: %w: %w", id, ErrStoreFailure, err)
		}

		logger.Info("exported track",
			logger.String("trackId", id),
			logger.String("file", path))

		if len(ids) > 1 && i < len(ids)-1 {
			time.Sleep(m.pacing)
		}
	}
	return nil
}
