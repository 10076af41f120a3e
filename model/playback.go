package model

// PlayerStatus is the transport state of the playback controller.
type PlayerStatus string

const (
	StatusIdle    PlayerStatus = "idle"
	StatusLoading PlayerStatus = "loading"
	StatusPlaying PlayerStatus = "playing"
	StatusPaused  PlayerStatus = "paused"
)

// RepeatMode controls the end-of-track decision.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// ParseRepeatMode normalizes a repeat mode string, defaulting to off.
func ParseRepeatMode(s string) RepeatMode {
	switch RepeatMode(s) {
	case RepeatOne:
		return RepeatOne
	case RepeatAll:
		return RepeatAll
	default:
		return RepeatOff
	}
}

// PlaybackState is the observable state owned by the playback controller.
// It is mutated only through controller operations or device event callbacks
// and published to a single registered observer.
type PlaybackState struct {
	Status         PlayerStatus `json:"status"`
	CurrentTrack   *Track       `json:"currentTrack"`
	UpcomingTracks []Track      `json:"upcomingTracks"`
	PositionMs     int64        `json:"positionMs"`
	DurationMs     int64        `json:"durationMs"`
	RepeatMode     RepeatMode   `json:"repeatMode"`
}

// LastPlayed is the snapshot persisted for cold-start restoration.
type LastPlayed struct {
	TrackID    string `json:"trackId"`
	PositionMs int64  `json:"positionMs"`
}
