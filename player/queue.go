package player

import (
	"context"

	"github.com/anuragpy07/Sausico/model"
)

// QueueState is the queue provider's view of playback.
type QueueState struct {
	CurrentTrack   *model.Track
	RepeatMode     model.RepeatMode
	UpcomingTracks []model.Track
}

// QueueProvider builds and extends the list of upcoming tracks. Its
// recommendation logic is external to this package; the controller only
// consumes the resulting lists and mirrors queue edits into it.
type QueueProvider interface {
	// SetQueue rebuilds the queue from a seed track, optionally honoring a
	// caller-supplied explicit list. Returns the full queue, seed first.
	SetQueue(ctx context.Context, seed *model.Track, explicit []model.Track) ([]model.Track, error)
	// ExtendQueue appends more tracks seeded from the given track id and
	// returns only the newly added ones (possibly empty).
	ExtendQueue(ctx context.Context, seedTrackID string) ([]model.Track, error)
	// OnTrackChanged informs the provider that playback moved to a track.
	OnTrackChanged(trackID string)
	// AddToQueue appends a track to the provider's mirrored queue.
	AddToQueue(track model.Track)
	// AddNextInQueue inserts a track right after the current one.
	AddNextInQueue(track model.Track)
	// SetRepeatMode updates the provider-held repeat mode.
	SetRepeatMode(mode model.RepeatMode)
	// GetState returns the provider's current view.
	GetState() QueueState
	// Clear resets the provider's state.
	Clear()
}
