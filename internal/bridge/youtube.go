// Package bridge resolves canonical tracks to playable equivalents on a
// streamable service. The default provider searches YouTube, through the Data
// API when a key is configured and through yt-dlp otherwise.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tunebridge/internal/core"
	"tunebridge/internal/normalize"
	"tunebridge/pkg/fuzzy"
	"tunebridge/pkg/streamlink"
)

const (
	// DefaultSearchLimit caps equivalence search candidates when not configured
	DefaultSearchLimit = 5

	titleWeight    = 0.7
	combinedWeight = 0.3
)

// ErrNoMatch is returned when the streamable service has no equivalent for a
// track. Unlike metadata lookups this failure is surfaced to the caller,
// because a track that cannot be bridged cannot be played at all.
var ErrNoMatch = errors.New("no playable match found")

// Candidate is a single search hit on the streamable service.
type Candidate struct {
	ID       string
	Title    string
	Channel  string
	URL      string
	Duration time.Duration
	Views    int64
}

// Searcher finds candidates for an equivalence query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// StreamFunc opens a playable handle for a watch URL.
type StreamFunc func(ctx context.Context, url string) (*core.PlayableHandle, error)

// YouTube bridges canonical tracks onto YouTube videos. Tracks that already
// carry a watch URL pass through verbatim, everything else goes through an
// equivalence search scored on title, author and duration.
type YouTube struct {
	logger     *zap.Logger
	normalizer *fuzzy.Normalizer
	searcher   Searcher
	limit      int
	stream     StreamFunc
}

func NewYouTube(config *core.BridgeConfig, logger *zap.Logger) *YouTube {
	y := &YouTube{
		logger:     logger,
		normalizer: fuzzy.NewNormalizer(),
		limit:      config.SearchLimit,
		stream:     streamWithYTDL,
	}
	if y.limit <= 0 {
		y.limit = DefaultSearchLimit
	}

	if config.YouTubeAPIKey != "" {
		searcher, err := newAPISearcher(config.YouTubeAPIKey)
		if err != nil {
			logger.Warn("Data API unavailable, searching through yt-dlp", zap.Error(err))
		} else {
			y.searcher = searcher
		}
	}
	if y.searcher == nil {
		y.searcher = &ytdlSearcher{}
	}

	return y
}

// Resolve finds the playable equivalent for a track. The chosen URL is cached
// back onto the track's raw source so repeated resolutions skip the search.
func (y *YouTube) Resolve(ctx context.Context, track *core.Track) (*core.BridgeData, error) {
	if data := verbatimData(track); data != nil {
		y.logger.Debug("Track is already streamable", zap.String("url", data.URL))
		return data, nil
	}

	query := equivalenceQuery(track)
	candidates, err := y.searcher.Search(ctx, query, y.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", query, err)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoMatch, query)
	}

	best := y.bestCandidate(candidates, track)
	y.logger.Debug("Bridged track",
		zap.String("track", track.Title),
		zap.String("video", best.Title),
		zap.String("url", best.URL))

	data := &core.BridgeData{
		ID:       best.ID,
		Title:    best.Title,
		URL:      best.URL,
		Duration: best.Duration,
		Views:    best.Views,
	}

	if track.Raw != nil {
		track.Raw.URL = data.URL
	}
	return data, nil
}

// Stream opens the playable handle for already resolved bridge data.
func (y *YouTube) Stream(ctx context.Context, data *core.BridgeData) (*core.PlayableHandle, error) {
	if data == nil || data.URL == "" {
		return nil, errors.New("no resolved stream url")
	}
	return y.stream(ctx, data.URL)
}

// verbatimData short-circuits tracks that already point at the streamable
// service, either through a cached resolution or because the user pasted a
// watch URL in the first place.
func verbatimData(track *core.Track) *core.BridgeData {
	urls := []string{track.URL}
	if track.Raw != nil {
		urls = append([]string{track.Raw.URL}, urls...)
	}

	for _, u := range urls {
		if u == "" {
			continue
		}
		if id := streamlink.WatchID(u); id != "" {
			return &core.BridgeData{
				ID:       id,
				Title:    track.Title,
				URL:      u,
				Duration: time.Duration(track.DurationMS) * time.Millisecond,
				Views:    track.Views,
			}
		}
	}
	return nil
}

// equivalenceQuery builds the search text for a track. The author is left out
// when it is only a placeholder.
func equivalenceQuery(track *core.Track) string {
	if track.Author == "" || track.Author == normalize.UnknownArtist {
		return track.Title
	}
	return track.Title + " " + track.Author
}

func (y *YouTube) bestCandidate(candidates []Candidate, track *core.Track) *Candidate {
	normalizedTitle := y.normalizer.NormalizeTitle(track.Title)
	normalizedArtist := y.normalizer.NormalizeArtist(track.Author)
	want := time.Duration(track.DurationMS) * time.Millisecond

	best := &candidates[0]
	bestScore := -1.0
	for i := range candidates {
		score := y.scoreCandidate(&candidates[i], normalizedTitle, normalizedArtist, want)
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	return best
}

func (y *YouTube) scoreCandidate(candidate *Candidate, normalizedTitle, normalizedArtist string, want time.Duration) float64 {
	candidateTitle := y.normalizer.NormalizeTitle(candidate.Title)
	candidateChannel := y.normalizer.NormalizeArtist(candidate.Channel)

	titleSimilarity := y.normalizer.CalculateSimilarity(candidateTitle, normalizedTitle)
	combined := normalizedArtist + " " + normalizedTitle
	candidateCombined := candidateChannel + " " + candidateTitle
	combinedSimilarity := y.normalizer.CalculateSimilarity(candidateCombined, combined)

	score := titleWeight*titleSimilarity + combinedWeight*combinedSimilarity

	if want > 0 && candidate.Duration > 0 {
		score += 0.1 * y.normalizer.DurationTolerance(want, candidate.Duration)
	}

	return score
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
