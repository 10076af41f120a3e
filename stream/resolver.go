// Package stream decides where a track plays from: the local content store
// when the track is downloaded, otherwise a quality-tiered remote URL.
package stream

import (
	"context"
	"errors"
	"fmt"

	"github.com/anuragpy07/Sausico/cache"
	"github.com/anuragpy07/Sausico/catalog"
	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
)

var (
	// ErrNoStreamSource means no encrypted media reference could be obtained.
	ErrNoStreamSource = errors.New("no stream source available")
	// ErrNoStreamURL means resolution succeeded but the requested quality
	// tier has no URL.
	ErrNoStreamURL = errors.New("no stream url available")
)

// Catalog is the slice of the catalog API the resolver consumes.
type Catalog interface {
	GetTrackByID(ctx context.Context, id string) (*model.Track, error)
	ResolveStreamURLs(ctx context.Context, encryptedRef, edgeMode string, flag bool) ([]catalog.StreamURL, error)
}

// LocalSource answers whether a track has a locally playable copy and, if
// so, derives a handle to it. Implemented by the download manager.
type LocalSource interface {
	LocalURL(ctx context.Context, trackID string) (string, bool)
}

// Resolver resolves tracks to playable locations.
type Resolver struct {
	catalog  Catalog
	settings cache.Store
	local    LocalSource
}

// NewResolver creates a Resolver. local may be nil when no download cache
// is attached.
func NewResolver(cat Catalog, settings cache.Store, local LocalSource) *Resolver {
	return &Resolver{catalog: cat, settings: settings, local: local}
}

// ActiveQuality reads the configured quality tier, defaulting to MEDIUM
// when unset or unrecognized.
func (r *Resolver) ActiveQuality(ctx context.Context) model.QualityTier {
	val, err := r.settings.GetItem(ctx, cache.KeyContentQuality)
	if err != nil {
		logger.Warn("failed to read quality setting", logger.ErrorField(err))
		return model.QualityMedium
	}
	return model.ParseQualityTier(val)
}

// AttachLocalSource wires the download cache in after construction. The
// download manager itself resolves through this Resolver, so the two are
// built first and linked here during startup.
func (r *Resolver) AttachLocalSource(local LocalSource) {
	r.local = local
}

// SetActiveQuality persists the quality tier used for remote resolution.
func (r *Resolver) SetActiveQuality(ctx context.Context, tier model.QualityTier) error {
	return r.settings.SetItem(ctx, cache.KeyContentQuality, string(tier))
}

// SeedActiveQuality persists the configured default tier, but only when no
// quality setting exists yet; a previously chosen tier is never overwritten.
func (r *Resolver) SeedActiveQuality(ctx context.Context, fallback string) error {
	val, err := r.settings.GetItem(ctx, cache.KeyContentQuality)
	if err != nil {
		return err
	}
	if val != "" {
		return nil
	}
	return r.SetActiveQuality(ctx, model.ParseQualityTier(fallback))
}

// Resolve returns a playable location for the track. Downloaded tracks
// always win over remote streaming, regardless of the requested quality.
func (r *Resolver) Resolve(ctx context.Context, track *model.Track) (string, error) {
	if r.local != nil {
		if localURL, ok := r.local.LocalURL(ctx, track.ID); ok {
			logger.Debug("serving track from local store", logger.String("trackId", track.ID))
			return localURL, nil
		}
	}
	url, _, err := r.RemoteURL(ctx, track)
	return url, err
}

// RemoteURL resolves a quality-tiered remote stream URL for the track and
// reports the tier that was used. The download manager shares this path.
func (r *Resolver) RemoteURL(ctx context.Context, track *model.Track) (string, model.QualityTier, error) {
	quality := r.ActiveQuality(ctx)

	encrypted := ""
	if track.Media != nil {
		encrypted = track.Media.EncryptedURL
	}
	if encrypted == "" {
		// The caller may hold a partial track object; re-fetch for the
		// media reference.
		full, err := r.catalog.GetTrackByID(ctx, track.ID)
		if err != nil {
			return "", quality, fmt.Errorf("track %s: %w: %w", track.ID, ErrNoStreamSource, err)
		}
		if full.Media != nil {
			encrypted = full.Media.EncryptedURL
		}
	}
	if encrypted == "" {
		return "", quality, fmt.Errorf("track %s: %w", track.ID, ErrNoStreamSource)
	}

	urls, err := r.catalog.ResolveStreamURLs(ctx, encrypted, "edge", true)
	if err != nil {
		return "", quality, fmt.Errorf("track %s: %w: %w", track.ID, ErrNoStreamSource, err)
	}

	idx := quality.Index()
	if idx >= len(urls) || urls[idx].URL == "" {
		return "", quality, fmt.Errorf("track %s at tier %s: %w", track.ID, quality, ErrNoStreamURL)
	}

	logger.Debug("resolved remote stream",
		logger.String("trackId", track.ID),
		logger.String("quality", string(quality)))

	return urls[idx].URL, quality, nil
}
