package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Source is the provider name stamped onto every resolved entity.
const Source = "spotify"

type QueryType string

const (
	// QueryAuto lets the classifier derive the type from the input string
	QueryAuto QueryType = "auto"
	// QueryTrack represents a single track lookup
	QueryTrack QueryType = "track"
	// QueryPlaylist represents a playlist lookup
	QueryPlaylist QueryType = "playlist"
	// QueryAlbum represents an album lookup
	QueryAlbum QueryType = "album"
	// QuerySearch represents a free-text catalog search
	QuerySearch QueryType = "search"
)

type PayloadKind string

const (
	// PayloadPrimary marks a payload returned by the provider web API
	PayloadPrimary PayloadKind = "primary"
	// PayloadScraped marks a payload recovered from an embed page
	PayloadScraped PayloadKind = "scraped"
)

// SourcePayload carries the raw provider response an entity was built from.
type SourcePayload struct {
	Kind    PayloadKind `json:"kind"`
	Payload any         `json:"payload,omitempty"`
}

// RawSource identifies the provider entity behind a Track. URL starts as the
// canonical provider URL and is overwritten once bridging discovers a
// directly playable one.
type RawSource struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
	URL  string `json:"url"`
}

// BridgeData is the playable stream metadata discovered for a Track.
type BridgeData struct {
	ID       string        `json:"id"`
	Title    string        `json:"title,omitempty"`
	URL      string        `json:"url"`
	Duration time.Duration `json:"duration,omitempty"`
	Views    int64         `json:"views,omitempty"`
}

// TrackMetadata pairs the provider payload with the bridge data resolved for
// playback. Bridge stays nil until the track's deferred resolver runs.
type TrackMetadata struct {
	Source SourcePayload `json:"source"`
	Bridge *BridgeData   `json:"bridge,omitempty"`
}

// PlayableHandle is the outcome of bridging: a direct stream URL, an opened
// byte stream, or both.
type PlayableHandle struct {
	URL    string
	Stream io.ReadCloser
}

type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Track is the canonical shape every resolution path converges on. Consumers
// must not need to know whether the API or the scraper produced it.
type Track struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
	Thumbnail   string    `json:"thumbnail"`
	DurationMS  int64     `json:"duration_ms"`
	Duration    string    `json:"duration"`
	Views       int64     `json:"views"`
	Requester   string    `json:"requester,omitempty"`
	Source      string    `json:"source"`
	QueryType   QueryType `json:"query_type"`

	Raw      *RawSource     `json:"raw"`
	Metadata *TrackMetadata `json:"metadata,omitempty"`

	// Playlist points back at the collection this track was resolved as part
	// of, nil for single tracks. A detached track stays fully usable.
	Playlist *Playlist `json:"-"`

	bridge *Lazy[*BridgeData]
}

// ErrNoBridge is returned when playback metadata is requested for a track
// that never had a bridge resolver attached.
var ErrNoBridge = errors.New("track has no bridge resolver")

// SetBridgeResolver installs the deferred resolver that populates
// Metadata.Bridge on first use.
func (t *Track) SetBridgeResolver(resolve func(ctx context.Context) (*BridgeData, error)) {
	t.bridge = NewLazy(resolve)
}

// Bridge returns the track's playable stream metadata, running the attached
// resolver on first call. Concurrent and repeated calls observe the same
// resolved value; a failed attempt may be retried.
func (t *Track) Bridge(ctx context.Context) (*BridgeData, error) {
	if t.bridge == nil {
		return nil, ErrNoBridge
	}
	return t.bridge.Force(ctx)
}

// Bridged reports whether the deferred resolver has already completed.
func (t *Track) Bridged() bool {
	return t.bridge != nil && t.bridge.Resolved()
}

// Playlist is the canonical shape for a resolved track collection. Type is
// "playlist" or "album". Tracks preserve provider order.
type Playlist struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Thumbnail   string        `json:"thumbnail"`
	URL         string        `json:"url"`
	Type        string        `json:"type"`
	Author      Author        `json:"author"`
	Tracks      []*Track      `json:"tracks"`
	Source      string        `json:"source"`
	Raw         SourcePayload `json:"-"`
}

// BridgeProvider turns canonical track metadata into a playable stream. It is
// the extension point for swapping playback backends.
type BridgeProvider interface {
	// Resolve discovers playable stream metadata for a track.
	Resolve(ctx context.Context, track *Track) (*BridgeData, error)
	// Stream opens a handle for previously resolved bridge data.
	Stream(ctx context.Context, data *BridgeData) (*PlayableHandle, error)
}
