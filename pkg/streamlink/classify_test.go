package streamlink

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    Kind
		id      string
		service string
	}{
		{
			"Track URL",
			"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC",
			KindTrack, "4uLU6hMCjMI75M1A2tKUQC", "spotify",
		},
		{
			"Playlist URL",
			"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			KindPlaylist, "37i9dQZF1DXcBWIGoYBM5M", "spotify",
		},
		{
			"Album URL",
			"https://open.spotify.com/album/1DFixLWuPkv3KT3TnV35m3",
			KindAlbum, "1DFixLWuPkv3KT3TnV35m3", "spotify",
		},
		{
			"Locale-prefixed playlist URL",
			"https://open.spotify.com/intl-us/playlist/37i9dQZF1DXcBWIGoYBM5M",
			KindPlaylist, "37i9dQZF1DXcBWIGoYBM5M", "spotify",
		},
		{
			"Uppercase locale infix",
			"https://open.spotify.com/intl-DE/track/4uLU6hMCjMI75M1A2tKUQC",
			KindTrack, "4uLU6hMCjMI75M1A2tKUQC", "spotify",
		},
		{
			"User-scoped playlist URL",
			"https://open.spotify.com/user/spotify/playlist/37i9dQZF1DXcBWIGoYBM5M",
			KindPlaylist, "37i9dQZF1DXcBWIGoYBM5M", "spotify",
		},
		{
			"URL with query parameters",
			"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc123&utm_source=copy",
			KindTrack, "4uLU6hMCjMI75M1A2tKUQC", "spotify",
		},
		{
			"Other service label",
			"https://open.example.com/playlist/abc123",
			KindPlaylist, "abc123", "example",
		},
		{
			"Track URI",
			"spotify:track:4uLU6hMCjMI75M1A2tKUQC",
			KindTrack, "4uLU6hMCjMI75M1A2tKUQC", "spotify",
		},
		{
			"Album URI",
			"spotify:album:1DFixLWuPkv3KT3TnV35m3",
			KindAlbum, "1DFixLWuPkv3KT3TnV35m3", "spotify",
		},
		{
			"Surrounding whitespace",
			"  https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC  ",
			KindTrack, "4uLU6hMCjMI75M1A2tKUQC", "spotify",
		},
		{"Free text", "never gonna give you up rick astley", KindNone, "", ""},
		{"Non-provider URL", "https://example.com/track/123", KindNone, "", ""},
		{"HTTP scheme rejected", "http://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", KindNone, "", ""},
		{"Uppercase host rejected", "https://OPEN.SPOTIFY.COM/track/4uLU6hMCjMI75M1A2tKUQC", KindNone, "", ""},
		{"Unknown entity kind", "https://open.spotify.com/artist/4uLU6hMCjMI75M1A2tKUQC", KindNone, "", ""},
		{"Uppercase URI kind rejected", "spotify:TRACK:4uLU6hMCjMI75M1A2tKUQC", KindNone, "", ""},
		{"Empty input", "", KindNone, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := Classify(tt.input)

			if link.Kind != tt.kind {
				t.Errorf("Classify() kind = %q, want %q", link.Kind, tt.kind)
			}
			if link.ID != tt.id {
				t.Errorf("Classify() id = %q, want %q", link.ID, tt.id)
			}
			if link.Service != tt.service {
				t.Errorf("Classify() service = %q, want %q", link.Service, tt.service)
			}
			if (tt.kind == KindNone) != link.None() {
				t.Errorf("Classify() None() = %v for kind %q", link.None(), link.Kind)
			}
		})
	}
}

func TestWatchID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Short URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Mobile URL", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Music URL", "https://music.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"Playlist-only URL", "https://www.youtube.com/playlist?list=PL123", ""},
		{"Provider URL", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", ""},
		{"Not a URL", "never gonna give you up", ""},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WatchID(tt.input); got != tt.want {
				t.Errorf("WatchID() = %q, want %q", got, tt.want)
			}

			wantPlayable := tt.want != ""
			if got := IsPlayableURL(tt.input); got != wantPlayable {
				t.Errorf("IsPlayableURL() = %v, want %v", got, wantPlayable)
			}
		})
	}
}
