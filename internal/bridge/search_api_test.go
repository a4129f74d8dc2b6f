package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const searchResponseJSON = `{
	"items": [
		{"id": {"videoId": "vid1"}},
		{"id": {"videoId": "vid2"}},
		{"id": {"kind": "youtube#channel", "channelId": "chan1"}}
	]
}`

const videosResponseJSON = `{
	"items": [
		{
			"id": "vid1",
			"snippet": {"title": "Night Drive (Official Video)", "channelTitle": "Midnight Echo"},
			"contentDetails": {"duration": "PT3M25S"},
			"statistics": {"viewCount": "123456"}
		},
		{
			"id": "vid2",
			"snippet": {"title": "Night Drive acoustic cover", "channelTitle": "Somebody"},
			"contentDetails": {"duration": "PT3M10S"},
			"statistics": {"viewCount": "99"}
		}
	]
}`

func newTestAPISearcher(t *testing.T, searchBody string) *apiSearcher {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(videosResponseJSON))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	service, err := youtube.NewService(context.Background(), option.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("youtube.NewService() error = %v", err)
	}
	service.BasePath = server.URL + "/"
	return &apiSearcher{service: service}
}

func TestAPISearcher_Search(t *testing.T) {
	s := newTestAPISearcher(t, searchResponseJSON)

	candidates, err := s.Search(context.Background(), "night drive midnight echo", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("Search() returned %d candidates, want 2", len(candidates))
	}

	first := candidates[0]
	if first.ID != "vid1" {
		t.Errorf("candidate.ID = %q, want %q", first.ID, "vid1")
	}
	if first.Title != "Night Drive (Official Video)" {
		t.Errorf("candidate.Title = %q, want %q", first.Title, "Night Drive (Official Video)")
	}
	if first.Channel != "Midnight Echo" {
		t.Errorf("candidate.Channel = %q, want %q", first.Channel, "Midnight Echo")
	}
	if first.URL != watchURL("vid1") {
		t.Errorf("candidate.URL = %q, want %q", first.URL, watchURL("vid1"))
	}
	if first.Duration != 205*time.Second {
		t.Errorf("candidate.Duration = %v, want 3m25s", first.Duration)
	}
	if first.Views != 123456 {
		t.Errorf("candidate.Views = %d, want 123456", first.Views)
	}
}

func TestAPISearcher_SearchEmpty(t *testing.T) {
	s := newTestAPISearcher(t, `{"items": []}`)

	candidates, err := s.Search(context.Background(), "nothing to find", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if candidates != nil {
		t.Errorf("Search() = %v, want nil for no results", candidates)
	}
}

func TestIsoToDuration(t *testing.T) {
	tests := []struct {
		iso      string
		expected time.Duration
	}{
		{"PT3M25S", 205 * time.Second},
		{"PT45S", 45 * time.Second},
		{"PT1H2M5S", time.Hour + 2*time.Minute + 5*time.Second},
		{"P1DT1M", 24*time.Hour + time.Minute},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		if got := isoToDuration(tt.iso); got != tt.expected {
			t.Errorf("isoToDuration(%q) = %v, want %v", tt.iso, got, tt.expected)
		}
	}
}
