// Package player owns playback orchestration: the transport state machine,
// the queue cursor, automatic advancement, and dynamic queue extension.
//
// One controller instance owns the observable state. Every public operation
// and every device event funnels through the same mutex, so queue and
// cursor mutations never interleave. Failures inside playback operations
// are logged and reflected as a status change, never returned to callers;
// playback is a background activity, not a user-facing action with
// success/failure semantics.
package player

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
)

const (
	// readAheadThreshold is how close the cursor may get to the end of the
	// known queue before a proactive extension is requested.
	readAheadThreshold = 2
	// restartThresholdMs: previous() restarts the current track instead of
	// moving back once this much has elapsed.
	restartThresholdMs = 3000

	progressInterval = time.Second
	updateBuffer     = 64
)

// Resolver resolves a track to a playable location.
type Resolver interface {
	Resolve(ctx context.Context, track *model.Track) (string, error)
}

// Controller is the playback state machine.
type Controller struct {
	device   Device
	resolver Resolver
	provider QueueProvider
	controls MediaControls
	settings cache.Store

	mu            sync.Mutex
	state         model.PlaybackState
	queue         []model.Track
	currentIndex  int
	wantsToPlay   bool
	lastStatus    model.PlayerStatus
	hasLastStatus bool
	tickerStop    chan struct{}
	closed        bool

	updates chan model.PlaybackState
}

// NewController wires the controller to its collaborators and registers
// the device event handler and transport command routing.
func NewController(device Device, resolver Resolver, provider QueueProvider, controls MediaControls, settings cache.Store) *Controller {
	c := &Controller{
		device:   device,
		resolver: resolver,
		provider: provider,
		controls: controls,
		settings: settings,
		state: model.PlaybackState{
			Status:         model.StatusIdle,
			RepeatMode:     model.RepeatOff,
			UpcomingTracks: []model.Track{},
		},
		updates: make(chan model.PlaybackState, updateBuffer),
	}
	device.SetEventHandler(c.handleDeviceEvent)
	controls.SetTransportHandler(transportRouter{c})
	return c
}

// Updates is the push-style state channel for the single observer. Slow
// consumption drops intermediate snapshots, never blocks playback.
func (c *Controller) Updates() <-chan model.PlaybackState {
	return c.updates
}

// State returns a snapshot of the current playback state.
func (c *Controller) State() model.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() model.PlaybackState {
	snap := c.state
	snap.UpcomingTracks = append([]model.Track(nil), c.state.UpcomingTracks...)
	return snap
}

func (c *Controller) notifyLocked() {
	if c.closed {
		return
	}
	select {
	case c.updates <- c.snapshotLocked():
	default:
	}
}

// updateStatusLocked publishes a status only when it changed since the
// last publication.
func (c *Controller) updateStatusLocked(status model.PlayerStatus) {
	if c.hasLastStatus && status == c.lastStatus {
		return
	}
	c.lastStatus = status
	c.hasLastStatus = true
	c.state.Status = status
	c.notifyLocked()
}

// Play starts playback of a track, rebuilding the queue from it. Failures
// are logged and reflected in the published status, never returned.
func (c *Controller) Play(ctx context.Context, track *model.Track, providedQueue []model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wantsToPlay = true
	c.state.CurrentTrack = track
	c.state.Status = model.StatusLoading
	c.lastStatus = model.StatusLoading
	c.hasLastStatus = true
	c.notifyLocked()

	fullQueue, err := c.provider.SetQueue(ctx, track, providedQueue)
	if err != nil {
		logger.Error("failed to build queue",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		return
	}
	c.queue = fullQueue
	c.currentIndex = 0

	c.loadAndPlayLocked(ctx, track)

	c.state.UpcomingTracks = c.upcomingLocked()
	c.notifyLocked()
}

// loadAndPlay resolves the track, hands it to the device, refreshes the
// media-control surface, and tops up the queue when the cursor is close to
// its end.
func (c *Controller) loadAndPlayLocked(ctx context.Context, track *model.Track) {
	url, err := c.resolver.Resolve(ctx, track)
	if err != nil {
		logger.Error("failed to resolve track",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		c.updateStatusLocked(model.StatusPaused)
		return
	}

	if err := c.device.Load(url); err != nil {
		logger.Error("failed to load track",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		c.updateStatusLocked(model.StatusPaused)
		return
	}

	c.controls.SetMetadata(NowPlaying{
		Title:      track.Title,
		Artist:     track.ArtistNames(),
		Album:      track.Album.Title,
		ArtworkURL: track.ArtworkURL(),
	})

	c.state.CurrentTrack = track
	c.state.Status = model.StatusLoading
	c.lastStatus = model.StatusLoading
	c.hasLastStatus = true
	c.state.PositionMs = 0
	c.state.DurationMs = int64(track.Duration * 1000)
	c.notifyLocked()

	if err := c.device.Play(); err != nil {
		logger.Error("failed to start playback",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		c.updateStatusLocked(model.StatusPaused)
		return
	}

	if c.currentIndex >= len(c.queue)-readAheadThreshold {
		c.maybeExtendQueueLocked(ctx, track.ID)
	}
}

// maybeExtendQueueLocked asks the queue provider for more tracks and
// reports whether any arrived.
func (c *Controller) maybeExtendQueueLocked(ctx context.Context, seedTrackID string) bool {
	newTracks, err := c.provider.ExtendQueue(ctx, seedTrackID)
	if err != nil {
		logger.Error("failed to extend queue",
			logger.String("seedTrackId", seedTrackID), logger.ErrorField(err))
		return false
	}
	if len(newTracks) == 0 {
		return false
	}
	c.queue = append(c.queue, newTracks...)
	c.state.UpcomingTracks = c.upcomingLocked()
	c.notifyLocked()
	return true
}

func (c *Controller) upcomingLocked() []model.Track {
	if c.currentIndex+1 >= len(c.queue) {
		return []model.Track{}
	}
	return append([]model.Track(nil), c.queue[c.currentIndex+1:]...)
}

// Resume resumes the device. Failures are logged, not propagated.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wantsToPlay = true
	if err := c.device.Play(); err != nil {
		logger.Error("resume failed", logger.ErrorField(err))
	}
}

// Pause pauses the device and persists the last-played snapshot. It cannot
// fail the controller, only the device.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wantsToPlay = false
	if err := c.device.Pause(); err != nil {
		logger.Error("pause failed", logger.ErrorField(err))
	}
	c.persistLastPlayedLocked()
}

// TogglePlayPause flips the play intent and acts on it.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wantsToPlay = !c.wantsToPlay
	if c.wantsToPlay {
		if err := c.device.Play(); err != nil {
			logger.Error("resume failed", logger.ErrorField(err))
		}
	} else {
		if err := c.device.Pause(); err != nil {
			logger.Error("pause failed", logger.ErrorField(err))
		}
	}
}

// Next advances to the next queue entry, extending the queue first when the
// cursor sits at the end of the known list.
func (c *Controller) Next(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextLocked(ctx)
}

func (c *Controller) nextLocked(ctx context.Context) {
	if c.currentIndex >= len(c.queue)-1 {
		st := c.provider.GetState()

		if st.CurrentTrack != nil {
			if c.maybeExtendQueueLocked(ctx, st.CurrentTrack.ID) {
				c.currentIndex++
				track := c.queue[c.currentIndex]
				c.state.UpcomingTracks = c.upcomingLocked()
				c.loadAndPlayLocked(ctx, &track)
				return
			}
		}

		if st.RepeatMode == model.RepeatAll && len(c.queue) > 0 {
			c.currentIndex = 0
			track := c.queue[0]
			c.state.UpcomingTracks = c.upcomingLocked()
			c.loadAndPlayLocked(ctx, &track)
		}
		return
	}

	c.currentIndex++
	track := c.queue[c.currentIndex]
	c.provider.OnTrackChanged(track.ID)
	c.state.UpcomingTracks = c.upcomingLocked()
	c.loadAndPlayLocked(ctx, &track)
}

// Previous restarts the current track when more than the restart threshold
// has elapsed, otherwise moves the cursor back one position.
func (c *Controller) Previous(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device.PositionMs() > restartThresholdMs {
		if err := c.device.SeekTo(0); err != nil {
			logger.Error("seek failed", logger.ErrorField(err))
		}
		return
	}
	if c.currentIndex > 0 {
		c.currentIndex--
		track := c.queue[c.currentIndex]
		c.provider.OnTrackChanged(track.ID)
		c.state.UpcomingTracks = c.upcomingLocked()
		c.loadAndPlayLocked(ctx, &track)
	}
}

// SeekTo moves the playback position. No state transition.
func (c *Controller) SeekTo(positionMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.device.SeekTo(positionMs); err != nil {
		logger.Error("seek failed", logger.ErrorField(err))
	}
}

// SetRepeatMode updates the provider-held mode and republishes it. Takes
// effect at the next end-of-track decision.
func (c *Controller) SetRepeatMode(mode model.RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider.SetRepeatMode(mode)
	c.state.RepeatMode = mode
	c.notifyLocked()
}

// Stop halts the device, clears all queue state, and publishes an idle
// snapshot.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.wantsToPlay = false
	c.persistLastPlayedLocked()
	if err := c.device.Stop(); err != nil {
		logger.Error("device stop failed", logger.ErrorField(err))
	}
	c.stopProgressLocked()
	c.queue = nil
	c.currentIndex = 0
	c.provider.Clear()

	c.state = model.PlaybackState{
		Status:         model.StatusIdle,
		RepeatMode:     c.state.RepeatMode,
		UpcomingTracks: []model.Track{},
	}
	c.lastStatus = model.StatusIdle
	c.hasLastStatus = true
	c.notifyLocked()
}

// AddToQueue appends a track to the tail of the queue.
func (c *Controller) AddToQueue(track model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, track)
	c.provider.AddToQueue(track)
	c.state.UpcomingTracks = c.upcomingLocked()
	c.notifyLocked()
}

// AddNextInQueue inserts a track right after the cursor.
func (c *Controller) AddNextInQueue(track model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	insert := c.currentIndex + 1
	if insert > len(c.queue) {
		insert = len(c.queue)
	}
	c.queue = append(c.queue[:insert], append([]model.Track{track}, c.queue[insert:]...)...)
	c.provider.AddNextInQueue(track)
	c.state.UpcomingTracks = c.upcomingLocked()
	c.notifyLocked()
}

// RestoreLastPlayedTrack rehydrates state after a cold start without
// auto-playing: the track is loaded and seeked, but left paused.
func (c *Controller) RestoreLastPlayedTrack(ctx context.Context, track *model.Track, positionMs int64) {
	if track == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fullQueue, err := c.provider.SetQueue(ctx, track, nil)
	if err != nil {
		logger.Error("failed to rebuild queue for restore",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		return
	}
	c.queue = fullQueue
	c.currentIndex = 0

	url, err := c.resolver.Resolve(ctx, track)
	if err != nil {
		logger.Error("failed to resolve restored track",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		return
	}
	if err := c.device.Load(url); err != nil {
		logger.Error("failed to load restored track",
			logger.String("trackId", track.ID), logger.ErrorField(err))
		return
	}
	if positionMs > 0 {
		if err := c.device.SeekTo(positionMs); err != nil {
			logger.Warn("failed to seek restored track", logger.ErrorField(err))
		}
	}

	c.controls.SetMetadata(NowPlaying{
		Title:      track.Title,
		Artist:     track.ArtistNames(),
		Album:      track.Album.Title,
		ArtworkURL: track.ArtworkURL(),
	})

	c.state.CurrentTrack = track
	c.state.UpcomingTracks = c.upcomingLocked()
	c.state.Status = model.StatusPaused
	c.lastStatus = model.StatusPaused
	c.hasLastStatus = true
	c.state.PositionMs = positionMs
	c.state.DurationMs = int64(track.Duration * 1000)
	c.notifyLocked()
}

// Close tears the controller down: the ticker stops, the device handler is
// unregistered, and the update channel closes.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.stopProgressLocked()
	c.device.SetEventHandler(nil)
	c.closed = true
	close(c.updates)
	return c.device.Close()
}

// handleDeviceEvent funnels device events through the controller mutex.
func (c *Controller) handleDeviceEvent(event DeviceEvent, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch event {
	case EventPlay:
		c.updateStatusLocked(model.StatusPlaying)
		c.startProgressLocked()
	case EventPause:
		c.updateStatusLocked(model.StatusPaused)
		c.stopProgressLocked()
	case EventWaiting:
		c.updateStatusLocked(model.StatusLoading)
	case EventCanPlay:
		if c.wantsToPlay {
			c.updateStatusLocked(model.StatusPlaying)
		}
	case EventEnded:
		c.handleTrackEndedLocked(context.Background())
	case EventLoadedMetadata:
		if d := c.device.DurationMs(); d > 0 {
			c.state.DurationMs = d
			c.notifyLocked()
		}
	case EventError:
		logger.Error("playback device error", logger.ErrorField(err))
		c.updateStatusLocked(model.StatusPaused)
	}
}

// handleTrackEnded drives the end-of-track decision.
func (c *Controller) handleTrackEndedLocked(ctx context.Context) {
	st := c.provider.GetState()

	if st.RepeatMode == model.RepeatOne {
		if err := c.device.SeekTo(0); err != nil {
			logger.Error("seek failed", logger.ErrorField(err))
		}
		c.wantsToPlay = true
		if err := c.device.Play(); err != nil {
			logger.Error("replay failed", logger.ErrorField(err))
		}
		return
	}

	if c.currentIndex < len(c.queue)-1 {
		c.nextLocked(ctx)
		return
	}
	if st.RepeatMode == model.RepeatAll && len(c.queue) > 0 {
		c.currentIndex = 0
		track := c.queue[0]
		c.state.UpcomingTracks = c.upcomingLocked()
		c.loadAndPlayLocked(ctx, &track)
		return
	}
	c.updateStatusLocked(model.StatusPaused)
}

// startProgressLocked begins the 1-second progress cadence. It is cancelled
// whenever playback is not actively running and restarted on resume.
func (c *Controller) startProgressLocked() {
	if c.tickerStop != nil {
		return
	}
	stop := make(chan struct{})
	c.tickerStop = stop
	go c.trackProgress(stop)
}

func (c *Controller) stopProgressLocked() {
	if c.tickerStop != nil {
		close(c.tickerStop)
		c.tickerStop = nil
	}
}

func (c *Controller) trackProgress(stop <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.state.Status == model.StatusPlaying {
				c.state.PositionMs = c.device.PositionMs()
				if d := c.device.DurationMs(); d > 0 {
					c.state.DurationMs = d
				}
				c.controls.SetPositionState(c.state.PositionMs, c.state.DurationMs, 1.0)
				c.notifyLocked()
			}
			c.mu.Unlock()
		}
	}
}

// persistLastPlayedLocked saves the cold-start restoration snapshot.
func (c *Controller) persistLastPlayedLocked() {
	if c.settings == nil || c.state.CurrentTrack == nil {
		return
	}
	snap := model.LastPlayed{
		TrackID:    c.state.CurrentTrack.ID,
		PositionMs: c.device.PositionMs(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.settings.SetItem(ctx, cache.KeyLastPlayed, string(data)); err != nil {
		logger.Warn("failed to persist last-played snapshot", logger.ErrorField(err))
	}
}

// LoadLastPlayed reads the persisted cold-start snapshot, if any.
func LoadLastPlayed(ctx context.Context, settings cache.Store) (*model.LastPlayed, error) {
	raw, err := settings.GetItem(ctx, cache.KeyLastPlayed)
	if err != nil || raw == "" {
		return nil, err
	}
	var snap model.LastPlayed
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// transportRouter routes media-control surface commands back into the
// controller's own operations.
type transportRouter struct {
	c *Controller
}

func (t transportRouter) Play()                   { t.c.Resume() }
func (t transportRouter) Pause()                  { t.c.Pause() }
func (t transportRouter) Next()                   { t.c.Next(context.Background()) }
func (t transportRouter) Previous()               { t.c.Previous(context.Background()) }
func (t transportRouter) SeekTo(positionMs int64) { t.c.SeekTo(positionMs) }
