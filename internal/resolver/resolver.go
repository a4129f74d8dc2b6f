// Package resolver turns free-form queries into canonical tracks and
// playlists. Structured links go to the provider API first and fall back to
// the embed scraper, free text goes through catalog search. Metadata
// failures degrade to an empty result instead of an error, so callers only
// ever handle bridging failures.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"tunebridge/internal/core"
	"tunebridge/internal/normalize"
	"tunebridge/internal/scrape"
	"tunebridge/pkg/streamlink"
)

// API is the primary metadata source. A disabled API is skipped entirely.
type API interface {
	Enabled() bool
	SearchTracks(ctx context.Context, text string) ([]spotify.FullTrack, error)
	Track(ctx context.Context, id string) (*spotify.FullTrack, error)
	Playlist(ctx context.Context, id string) (*spotify.FullPlaylist, error)
	Album(ctx context.Context, id string) (*spotify.FullAlbum, error)
}

// Scraper recovers entities from public embed pages when the API cannot
// serve a query. A nil entity without error means the page has none.
type Scraper interface {
	FetchURL(ctx context.Context, rawURL string) (*scrape.Entity, error)
}

// TokenSource lets the resolver refresh API credentials before first use.
type TokenSource interface {
	Expired() bool
	Refresh(ctx context.Context) error
}

// Request is a single resolution ask.
type Request struct {
	Query     string
	Type      core.QueryType
	Requester string
}

// Result is what a resolution produces. Playlist is set only when the query
// named a collection; Tracks always holds the playable members, possibly
// none.
type Result struct {
	Playlist *core.Playlist `json:"playlist,omitempty"`
	Tracks   []*core.Track  `json:"tracks"`
}

// Empty reports whether the resolution found nothing.
func (r *Result) Empty() bool {
	return r.Playlist == nil && len(r.Tracks) == 0
}

type Resolver struct {
	logger  *zap.Logger
	api     API
	scraper Scraper
	tokens  TokenSource
	bridge  core.BridgeProvider
}

func New(
	api API,
	scraper Scraper,
	tokens TokenSource,
	bridge core.BridgeProvider,
	logger *zap.Logger,
) *Resolver {
	return &Resolver{
		logger:  logger,
		api:     api,
		scraper: scraper,
		tokens:  tokens,
		bridge:  bridge,
	}
}

// Resolve classifies the query and fetches canonical metadata for it. The
// returned error is reserved for future use: today every metadata failure
// degrades to an empty result, and only bridging a track can fail loudly.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return emptyResult(), nil
	}

	logger := r.logger.With(zap.String("resolveID", uuid.NewString()))

	queryType := req.Type
	if queryType == "" {
		queryType = core.QueryAuto
	}

	link := streamlink.Classify(query)
	if queryType == core.QueryAuto {
		queryType = typeForLink(link)
	}

	logger.Debug("Resolving query",
		zap.String("query", query),
		zap.String("type", string(queryType)),
		zap.String("service", link.Service))

	var result *Result
	if queryType == core.QuerySearch {
		result = r.resolveSearch(ctx, logger, query)
	} else {
		result = r.resolveLink(ctx, logger, link, query)
	}

	r.finish(result, req.Requester, queryType)
	return result, nil
}

// Stream bridges a track if it has not been bridged yet and opens its
// playable handle.
func (r *Resolver) Stream(ctx context.Context, track *core.Track) (*core.PlayableHandle, error) {
	if r.bridge == nil {
		return nil, errors.New("no bridge provider configured")
	}

	data, err := track.Bridge(ctx)
	if errors.Is(err, core.ErrNoBridge) {
		// The track was built outside a resolution, wire it up now.
		r.attachBridge(track)
		data, err = track.Bridge(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to bridge track %q: %w", track.Title, err)
	}

	return r.bridge.Stream(ctx, data)
}

// resolveSearch runs a catalog search. Searches have no scrape tier; a
// failed or empty search is the final empty outcome.
func (r *Resolver) resolveSearch(ctx context.Context, logger *zap.Logger, query string) *Result {
	if r.api == nil || !r.api.Enabled() {
		logger.Debug("Primary client disabled, search yields nothing")
		return emptyResult()
	}

	r.ensureToken(ctx, logger)

	tracks, err := r.api.SearchTracks(ctx, query)
	if err != nil {
		logger.Warn("Primary search failed", zap.Error(err))
		return emptyResult()
	}
	if tracks == nil {
		logger.Debug("Primary search found nothing", zap.String("query", query))
		return emptyResult()
	}

	members := make([]*core.Track, 0, len(tracks))
	for i := range tracks {
		members = append(members, normalize.TrackFromAPI(&tracks[i]))
	}
	return &Result{Tracks: members}
}

// resolveLink fetches a classified entity through the API, scraping the
// original query when the API is disabled, failed, or returned nothing.
func (r *Resolver) resolveLink(ctx context.Context, logger *zap.Logger, link streamlink.Link, query string) *Result {
	if !link.None() && r.api != nil && r.api.Enabled() {
		if payload := r.fetchPrimary(ctx, logger, link); payload != nil {
			return r.normalizePayload(logger, *payload)
		}
	}

	return r.resolveScraped(ctx, logger, query)
}

func (r *Resolver) resolveScraped(ctx context.Context, logger *zap.Logger, query string) *Result {
	entity, err := r.scraper.FetchURL(ctx, query)
	if err != nil {
		logger.Warn("Scrape fallback failed", zap.Error(err))
		return emptyResult()
	}
	if entity == nil {
		logger.Debug("Scrape fallback found nothing")
		return emptyResult()
	}

	return r.normalizePayload(logger, core.SourcePayload{
		Kind:    core.PayloadScraped,
		Payload: entity,
	})
}

func (r *Resolver) fetchPrimary(ctx context.Context, logger *zap.Logger, link streamlink.Link) *core.SourcePayload {
	r.ensureToken(ctx, logger)

	switch link.Kind {
	case streamlink.KindTrack:
		track, err := r.api.Track(ctx, link.ID)
		if err != nil {
			logger.Warn("Primary track lookup failed, falling back to scraper", zap.Error(err))
			return nil
		}
		if track == nil {
			return nil
		}
		return &core.SourcePayload{Kind: core.PayloadPrimary, Payload: track}

	case streamlink.KindPlaylist:
		playlist, err := r.api.Playlist(ctx, link.ID)
		if err != nil {
			logger.Warn("Primary playlist lookup failed, falling back to scraper", zap.Error(err))
			return nil
		}
		if playlist == nil {
			return nil
		}
		return &core.SourcePayload{Kind: core.PayloadPrimary, Payload: playlist}

	case streamlink.KindAlbum:
		album, err := r.api.Album(ctx, link.ID)
		if err != nil {
			logger.Warn("Primary album lookup failed, falling back to scraper", zap.Error(err))
			return nil
		}
		if album == nil {
			return nil
		}
		return &core.SourcePayload{Kind: core.PayloadPrimary, Payload: album}
	}

	return nil
}

func (r *Resolver) normalizePayload(logger *zap.Logger, payload core.SourcePayload) *Result {
	playlist, tracks, err := normalize.Normalize(payload)
	if err != nil {
		logger.Warn("Failed to normalize payload", zap.Error(err))
		return emptyResult()
	}
	return &Result{Playlist: playlist, Tracks: tracks}
}

// ensureToken refreshes the API token before first use. A failed refresh is
// not fatal here: the API call that follows fails on its own and triggers
// the scrape fallback.
func (r *Resolver) ensureToken(ctx context.Context, logger *zap.Logger) {
	if r.tokens == nil || !r.tokens.Expired() {
		return
	}
	if err := r.tokens.Refresh(ctx); err != nil {
		logger.Warn("Failed to refresh access token", zap.Error(err))
	}
}

// finish stamps request context onto every resolved track and hands each one
// its deferred bridge resolver. Bridging never runs here.
func (r *Resolver) finish(result *Result, requester string, queryType core.QueryType) {
	for _, track := range result.Tracks {
		track.Requester = requester
		track.QueryType = queryType
		r.attachBridge(track)
	}
}

func (r *Resolver) attachBridge(track *core.Track) {
	if r.bridge == nil {
		return
	}
	track.SetBridgeResolver(func(ctx context.Context) (*core.BridgeData, error) {
		data, err := r.bridge.Resolve(ctx, track)
		if err != nil {
			return nil, err
		}
		if track.Metadata != nil {
			track.Metadata.Bridge = data
		}
		if data != nil && track.Views == 0 {
			track.Views = data.Views
		}
		return data, nil
	})
}

func typeForLink(link streamlink.Link) core.QueryType {
	switch link.Kind {
	case streamlink.KindTrack:
		return core.QueryTrack
	case streamlink.KindPlaylist:
		return core.QueryPlaylist
	case streamlink.KindAlbum:
		return core.QueryAlbum
	default:
		return core.QuerySearch
	}
}

func emptyResult() *Result {
	return &Result{Tracks: []*core.Track{}}
}
