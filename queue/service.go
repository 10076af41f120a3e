// Package queue implements the default queue provider. It mirrors the
// controller's queue state and sources extension tracks from the catalog's
// suggestion endpoint; the recommendation logic itself stays remote.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
	"github.com/anuragpy07/Sausico/player"
)

// defaultFill is how many suggestions seed a fresh queue or one extension.
const defaultFill = 10

// Recommender provides related tracks for a seed. Implemented by the
// catalog client.
type Recommender interface {
	GetSuggestions(ctx context.Context, trackID string, limit int) ([]model.Track, error)
}

// Service is the default QueueProvider.
type Service struct {
	rec Recommender

	mu       sync.Mutex
	current  *model.Track
	repeat   model.RepeatMode
	upcoming []model.Track
	seen     map[string]bool
}

// NewService creates a queue service backed by the given recommender.
func NewService(rec Recommender) *Service {
	return &Service{
		rec:  rec,
		seen: make(map[string]bool),
	}
}

// SetQueue rebuilds the queue from seed. When the caller supplies an
// explicit list it is used as-is; otherwise the recommender fills the
// queue. Returns the full queue, seed first.
func (s *Service) SetQueue(ctx context.Context, seed *model.Track, explicit []model.Track) ([]model.Track, error) {
	upcoming := explicit
	if len(upcoming) == 0 && s.rec != nil {
		suggested, err := s.rec.GetSuggestions(ctx, seed.ID, defaultFill)
		if err != nil {
			// A queue of just the seed is still playable.
			logger.Warn("failed to fetch queue suggestions",
				logger.String("seedTrackId", seed.ID), logger.ErrorField(err))
		} else {
			upcoming = suggested
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = seed
	s.seen = map[string]bool{seed.ID: true}
	s.upcoming = make([]model.Track, 0, len(upcoming))
	for _, t := range upcoming {
		if t.ID == seed.ID || s.seen[t.ID] {
			continue
		}
		s.seen[t.ID] = true
		s.upcoming = append(s.upcoming, t)
	}

	full := make([]model.Track, 0, len(s.upcoming)+1)
	full = append(full, *seed)
	full = append(full, s.upcoming...)
	return full, nil
}

// ExtendQueue fetches more suggestions for the seed, drops anything
// already queued, appends the rest, and returns only the new tracks.
func (s *Service) ExtendQueue(ctx context.Context, seedTrackID string) ([]model.Track, error) {
	if s.rec == nil {
		return nil, nil
	}
	suggested, err := s.rec.GetSuggestions(ctx, seedTrackID, defaultFill)
	if err != nil {
		return nil, fmt.Errorf("failed to extend queue from %s: %w", seedTrackID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]model.Track, 0, len(suggested))
	for _, t := range suggested {
		if s.seen[t.ID] {
			continue
		}
		s.seen[t.ID] = true
		s.upcoming = append(s.upcoming, t)
		added = append(added, t)
	}
	return added, nil
}

// OnTrackChanged moves the provider's cursor to the given track when it is
// part of the mirrored queue.
func (s *Service) OnTrackChanged(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.upcoming {
		if s.upcoming[i].ID == trackID {
			track := s.upcoming[i]
			s.current = &track
			s.upcoming = append([]model.Track(nil), s.upcoming[i+1:]...)
			return
		}
	}
	if s.current != nil && s.current.ID == trackID {
		return
	}
	logger.Debug("track change outside mirrored queue", logger.String("trackId", trackID))
}

// AddToQueue appends to the mirrored upcoming list.
func (s *Service) AddToQueue(track model.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[track.ID] = true
	s.upcoming = append(s.upcoming, track)
}

// AddNextInQueue prepends to the mirrored upcoming list.
func (s *Service) AddNextInQueue(track model.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[track.ID] = true
	s.upcoming = append([]model.Track{track}, s.upcoming...)
}

// SetRepeatMode updates the provider-held repeat mode.
func (s *Service) SetRepeatMode(mode model.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = mode
}

// GetState returns the provider's current view of playback.
func (s *Service) GetState() player.QueueState {
	s.mu.Lock()
	defer s.mu.Unlock()

	repeat := s.repeat
	if repeat == "" {
		repeat = model.RepeatOff
	}
	return player.QueueState{
		CurrentTrack:   s.current,
		RepeatMode:     repeat,
		UpcomingTracks: append([]model.Track(nil), s.upcoming...),
	}
}

// Clear resets all provider state.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.repeat = model.RepeatOff
	s.upcoming = nil
	s.seen = make(map[string]bool)
}

var _ player.QueueProvider = (*Service)(nil)
