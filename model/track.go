package model

import "strings"

// Artist is a contributing artist on a track.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is the album a track belongs to.
type Album struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ArtworkImage is one rendition of a track's cover art.
type ArtworkImage struct {
	URL     string `json:"url"`
	Quality string `json:"quality"` // e.g. "50x50", "150x150", "500x500"
}

// MediaSource holds the encrypted media reference returned by the catalog.
// The reference must be exchanged for actual stream URLs before playback.
type MediaSource struct {
	EncryptedURL string `json:"encryptedUrl"`
}

// Track represents an audio track resolved from the catalog.
type Track struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Artists  []Artist       `json:"artists"`
	Album    Album          `json:"album"`
	Images   []ArtworkImage `json:"images"`
	Duration float64        `json:"duration"` // nominal duration in seconds
	Media    *MediaSource   `json:"media,omitempty"`
}

// PrimaryArtist returns the first listed artist name, or "Unknown Artist".
func (t *Track) PrimaryArtist() string {
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		return t.Artists[0].Name
	}
	return "Unknown Artist"
}

// ArtistNames joins all artist names with ", ".
func (t *Track) ArtistNames() string {
	if len(t.Artists) == 0 {
		return "Unknown"
	}
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// ArtworkURL returns the largest available artwork rendition.
func (t *Track) ArtworkURL() string {
	if n := len(t.Images); n > 0 {
		return t.Images[n-1].URL
	}
	return ""
}
