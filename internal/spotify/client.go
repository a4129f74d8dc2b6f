// Package spotify implements the primary metadata client backed by the
// provider web API using the client-credentials flow.
package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"tunebridge/internal/core"
)

const (
	// DefaultSearchLimit limits catalog search results when not configured
	DefaultSearchLimit = 10
)

// ErrDisabled is returned when no API credentials are configured.
var ErrDisabled = errors.New("spotify api is not configured")

// Client wraps the provider web API. Without credentials the client stays
// disabled and every call reports ErrDisabled, leaving the caller to fall
// back to scraping.
type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	guard  *TokenGuard
	api    *spotify.Client
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	c := &Client{
		config: config,
		logger: logger,
	}

	if config.ClientID == "" || config.ClientSecret == "" {
		logger.Warn("No API credentials configured, primary metadata lookups disabled")
		return c
	}

	c.guard = NewTokenGuard(config.ClientID, config.ClientSecret)
	c.api = spotify.New(oauth2.NewClient(context.Background(), c.guard))
	return c
}

// Enabled reports whether the client holds API credentials.
func (c *Client) Enabled() bool {
	return c.api != nil
}

// Tokens exposes the client's token guard. A disabled client has none.
func (c *Client) Tokens() *TokenGuard {
	return c.guard
}

// SearchTracks runs a catalog search for free text. No results is not an
// error: both come back empty.
func (c *Client) SearchTracks(ctx context.Context, text string) ([]spotify.FullTrack, error) {
	if c.api == nil {
		return nil, ErrDisabled
	}

	limit := c.config.SearchLimit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	results, err := c.api.Search(ctx, text, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		c.logger.Debug("Catalog search returned nothing", zap.String("query", text))
		return nil, nil
	}

	c.logger.Debug("Catalog search",
		zap.String("query", text),
		zap.Int("results", len(results.Tracks.Tracks)))
	return results.Tracks.Tracks, nil
}

// Track fetches a single track by ID.
func (c *Client) Track(ctx context.Context, id string) (*spotify.FullTrack, error) {
	if c.api == nil {
		return nil, ErrDisabled
	}

	track, err := c.api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get track %s: %w", id, err)
	}
	return track, nil
}

// Playlist fetches a playlist with its member tracks by ID.
func (c *Client) Playlist(ctx context.Context, id string) (*spotify.FullPlaylist, error) {
	if c.api == nil {
		return nil, ErrDisabled
	}

	playlist, err := c.api.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist %s: %w", id, err)
	}
	return playlist, nil
}

// Album fetches an album with its member tracks by ID.
func (c *Client) Album(ctx context.Context, id string) (*spotify.FullAlbum, error) {
	if c.api == nil {
		return nil, ErrDisabled
	}

	album, err := c.api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get album %s: %w", id, err)
	}
	return album, nil
}
