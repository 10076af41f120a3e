package player

// NowPlaying is the metadata shown on the system media-control surface.
type NowPlaying struct {
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
}

// TransportHandler receives transport commands from the media-control
// surface; implementations route them back into the controller.
type TransportHandler interface {
	Play()
	Pause()
	Next()
	Previous()
	SeekTo(positionMs int64)
}

// MediaControls is the system media-control surface (lock screen /
// now-playing integration).
type MediaControls interface {
	SetMetadata(np NowPlaying)
	SetPositionState(positionMs, durationMs int64, rate float64)
	// SetTransportHandler registers the command sink; called once at
	// controller construction.
	SetTransportHandler(handler TransportHandler)
}

// NopControls is a MediaControls that does nothing, for hosts without a
// media-control surface.
type NopControls struct{}

func (NopControls) SetMetadata(NowPlaying)                 {}
func (NopControls) SetPositionState(int64, int64, float64) {}
func (NopControls) SetTransportHandler(TransportHandler)   {}
