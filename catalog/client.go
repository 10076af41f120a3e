// Package catalog is the client for the remote catalog/streaming API. It
// resolves track identifiers to metadata and exchanges encrypted media
// references for quality-tiered stream URLs.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
)

// ErrTrackNotFound is returned when the catalog has no track for an id.
var ErrTrackNotFound = fmt.Errorf("track not found")

// StreamURL is one entry of the quality-ordered stream URL array.
type StreamURL struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Client talks to the catalog API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// apiEnvelope is the common response wrapper of the catalog API.
type apiEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg,omitempty"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Code != 200 {
		return fmt.Errorf("API error: %s (code: %d)", envelope.Msg, envelope.Code)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// GetTrackByID fetches full track metadata, including the encrypted media
// reference when the catalog exposes one.
func (c *Client) GetTrackByID(ctx context.Context, id string) (*model.Track, error) {
	endpoint := fmt.Sprintf("%s/api/songs/%s", c.BaseURL, url.PathEscape(id))

	var tracks []model.Track
	if err := c.getJSON(ctx, endpoint, &tracks); err != nil {
		return nil, fmt.Errorf("failed to fetch track %s: %w", id, err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("track %s: %w", id, ErrTrackNotFound)
	}

	logger.Debug("fetched track from catalog",
		logger.String("trackId", id),
		logger.String("title", tracks[0].Title))

	return &tracks[0], nil
}

// ResolveStreamURLs exchanges an encrypted media reference for the
// quality-ordered array of stream URLs.
func (c *Client) ResolveStreamURLs(ctx context.Context, encryptedRef, edgeMode string, flag bool) ([]StreamURL, error) {
	params := url.Values{}
	params.Set("ref", encryptedRef)
	params.Set("edge", edgeMode)
	params.Set("flag", strconv.FormatBool(flag))
	endpoint := fmt.Sprintf("%s/api/songs/stream?%s", c.BaseURL, params.Encode())

	var urls []StreamURL
	if err := c.getJSON(ctx, endpoint, &urls); err != nil {
		return nil, fmt.Errorf("failed to resolve stream urls: %w", err)
	}

	logger.Debug("resolved stream urls", logger.Int("count", len(urls)))
	return urls, nil
}

// GetSuggestions fetches up to limit tracks related to the seed track. The
// recommendation logic lives entirely on the catalog side.
func (c *Client) GetSuggestions(ctx context.Context, trackID string, limit int) ([]model.Track, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/songs/%s/suggestions?%s", c.BaseURL, url.PathEscape(trackID), params.Encode())

	var tracks []model.Track
	if err := c.getJSON(ctx, endpoint, &tracks); err != nil {
		return nil, fmt.Errorf("failed to fetch suggestions for %s: %w", trackID, err)
	}
	return tracks, nil
}
