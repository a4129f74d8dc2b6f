package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"tunebridge/internal/core"
)

const trackJSON = `{
	"id": "abc123",
	"name": "Night Drive",
	"duration_ms": 205000,
	"artists": [
		{"name": "Midnight Echo", "external_urls": {"spotify": "https://open.spotify.com/artist/art1"}}
	],
	"external_urls": {"spotify": "https://open.spotify.com/track/abc123"},
	"album": {
		"id": "alb1",
		"name": "City Lights",
		"images": [{"url": "https://i.scdn.co/image/cover640.jpg", "height": 640, "width": 640}],
		"external_urls": {"spotify": "https://open.spotify.com/album/alb1"}
	}
}`

const playlistJSON = `{
	"id": "pl1",
	"name": "Road Trip",
	"description": "Songs for the open road.",
	"owner": {
		"display_name": "listmaker",
		"external_urls": {"spotify": "https://open.spotify.com/user/listmaker"}
	},
	"images": [{"url": "https://i.scdn.co/image/pl640.jpg", "height": 640, "width": 640}],
	"external_urls": {"spotify": "https://open.spotify.com/playlist/pl1"},
	"tracks": {
		"items": [
			{"track": ` + trackJSON + `},
			{"track": {
				"id": "def456",
				"name": "Sunset Boulevard",
				"duration_ms": 198000,
				"artists": [{"name": "Midnight Echo"}],
				"external_urls": {"spotify": "https://open.spotify.com/track/def456"},
				"album": {"id": "alb1", "name": "City Lights"}
			}}
		],
		"limit": 100,
		"offset": 0,
		"total": 2
	}
}`

const albumJSON = `{
	"id": "alb1",
	"name": "City Lights",
	"artists": [
		{"name": "Midnight Echo", "external_urls": {"spotify": "https://open.spotify.com/artist/art1"}}
	],
	"images": [{"url": "https://i.scdn.co/image/cover640.jpg", "height": 640, "width": 640}],
	"external_urls": {"spotify": "https://open.spotify.com/album/alb1"},
	"tracks": {
		"items": [
			{
				"id": "abc123",
				"name": "Night Drive",
				"duration_ms": 205000,
				"artists": [{"name": "Midnight Echo"}],
				"external_urls": {"spotify": "https://open.spotify.com/track/abc123"}
			},
			{
				"id": "def456",
				"name": "Sunset Boulevard",
				"duration_ms": 198000,
				"artists": [{"name": "Midnight Echo"}],
				"external_urls": {"spotify": "https://open.spotify.com/track/def456"}
			}
		],
		"limit": 50,
		"offset": 0,
		"total": 2
	}
}`

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "nothing to find" {
			_, _ = w.Write([]byte(`{"tracks": {"items": [], "limit": 10, "offset": 0, "total": 0}}`))
			return
		}
		_, _ = w.Write([]byte(`{"tracks": {"items": [` + trackJSON + `], "limit": 10, "offset": 0, "total": 1}}`))
	})
	mux.HandleFunc("/tracks/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(trackJSON))
	})
	mux.HandleFunc("/playlists/pl1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(playlistJSON))
	})
	mux.HandleFunc("/albums/alb1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(albumJSON))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"status": 404, "message": "non existing id"}}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// newTestClient points an enabled client at a local fixture server, bypassing
// the token exchange.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	server := newAPIServer(t)
	c := NewClient(&core.SpotifyConfig{SearchLimit: 10}, zap.NewNop())
	c.api = spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/"))
	return c
}

func TestClient_Disabled(t *testing.T) {
	c := NewClient(&core.SpotifyConfig{}, zap.NewNop())

	if c.Enabled() {
		t.Error("Enabled() = true without credentials, want false")
	}
	if c.Tokens() != nil {
		t.Error("Tokens() != nil without credentials")
	}

	if _, err := c.SearchTracks(context.Background(), "anything"); !errors.Is(err, ErrDisabled) {
		t.Errorf("SearchTracks() error = %v, want ErrDisabled", err)
	}
	if _, err := c.Track(context.Background(), "abc123"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Track() error = %v, want ErrDisabled", err)
	}
	if _, err := c.Playlist(context.Background(), "pl1"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Playlist() error = %v, want ErrDisabled", err)
	}
	if _, err := c.Album(context.Background(), "alb1"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Album() error = %v, want ErrDisabled", err)
	}
}

func TestClient_Enabled(t *testing.T) {
	c := NewClient(&core.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}, zap.NewNop())

	if !c.Enabled() {
		t.Error("Enabled() = false with credentials, want true")
	}
	if c.Tokens() == nil {
		t.Error("Tokens() = nil with credentials, want guard")
	}
}

func TestClient_SearchTracks(t *testing.T) {
	c := newTestClient(t)

	tracks, err := c.SearchTracks(context.Background(), "night drive")
	if err != nil {
		t.Fatalf("SearchTracks() error = %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("SearchTracks() returned %d tracks, want 1", len(tracks))
	}

	track := tracks[0]
	if track.Name != "Night Drive" {
		t.Errorf("track.Name = %q, want %q", track.Name, "Night Drive")
	}
	if len(track.Artists) == 0 || track.Artists[0].Name != "Midnight Echo" {
		t.Errorf("track.Artists = %v, want Midnight Echo first", track.Artists)
	}
	if int(track.Duration) != 205000 {
		t.Errorf("track.Duration = %d, want 205000", track.Duration)
	}
}

func TestClient_SearchTracksEmpty(t *testing.T) {
	c := newTestClient(t)

	tracks, err := c.SearchTracks(context.Background(), "nothing to find")
	if err != nil {
		t.Fatalf("SearchTracks() error = %v", err)
	}
	if tracks != nil {
		t.Errorf("SearchTracks() = %v, want nil for no results", tracks)
	}
}

func TestClient_Track(t *testing.T) {
	c := newTestClient(t)

	track, err := c.Track(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if track.ID != spotify.ID("abc123") {
		t.Errorf("track.ID = %q, want %q", track.ID, "abc123")
	}
	if track.Album.Name != "City Lights" {
		t.Errorf("track.Album.Name = %q, want %q", track.Album.Name, "City Lights")
	}
	if len(track.Album.Images) == 0 {
		t.Error("track.Album.Images is empty, want cover image")
	}
}

func TestClient_TrackNotFound(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Track(context.Background(), "missing")
	if err == nil {
		t.Fatal("Track() error = nil for unknown id, want error")
	}
	if !strings.Contains(err.Error(), "failed to get track missing") {
		t.Errorf("Track() error = %v, want wrapped lookup failure", err)
	}
}

func TestClient_Playlist(t *testing.T) {
	c := newTestClient(t)

	playlist, err := c.Playlist(context.Background(), "pl1")
	if err != nil {
		t.Fatalf("Playlist() error = %v", err)
	}
	if playlist.Name != "Road Trip" {
		t.Errorf("playlist.Name = %q, want %q", playlist.Name, "Road Trip")
	}
	if playlist.Owner.DisplayName != "listmaker" {
		t.Errorf("playlist.Owner.DisplayName = %q, want %q", playlist.Owner.DisplayName, "listmaker")
	}
	if len(playlist.Tracks.Tracks) != 2 {
		t.Fatalf("playlist has %d tracks, want 2", len(playlist.Tracks.Tracks))
	}
	if playlist.Tracks.Tracks[1].Track.Name != "Sunset Boulevard" {
		t.Errorf("second track = %q, want %q", playlist.Tracks.Tracks[1].Track.Name, "Sunset Boulevard")
	}
}

func TestClient_Album(t *testing.T) {
	c := newTestClient(t)

	album, err := c.Album(context.Background(), "alb1")
	if err != nil {
		t.Fatalf("Album() error = %v", err)
	}
	if album.Name != "City Lights" {
		t.Errorf("album.Name = %q, want %q", album.Name, "City Lights")
	}
	if len(album.Tracks.Tracks) != 2 {
		t.Fatalf("album has %d tracks, want 2", len(album.Tracks.Tracks))
	}
	if album.Tracks.Tracks[0].Name != "Night Drive" {
		t.Errorf("first track = %q, want %q", album.Tracks.Tracks[0].Name, "Night Drive")
	}
}
