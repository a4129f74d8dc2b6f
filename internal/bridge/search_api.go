package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/senseyeio/duration"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// apiSearcher queries the YouTube Data API. Search results only carry
// snippets, so durations and view counts come from a second batched lookup.
type apiSearcher struct {
	service *youtube.Service
}

func newAPISearcher(key string) (*apiSearcher, error) {
	service, err := youtube.NewService(context.Background(), option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	return &apiSearcher{service: service}, nil
}

func (s *apiSearcher) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	response, err := s.service.Search.List([]string{"snippet"}).
		Context(ctx).
		Q(query).
		MaxResults(int64(limit)).
		Type("video").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search videos: %w", err)
	}

	ids := make([]string, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	details, err := s.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Context(ctx).
		Id(ids...).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get video details: %w", err)
	}

	candidates := make([]Candidate, 0, len(details.Items))
	for _, video := range details.Items {
		candidate := Candidate{
			ID:  video.Id,
			URL: watchURL(video.Id),
		}
		if video.Snippet != nil {
			candidate.Title = video.Snippet.Title
			candidate.Channel = video.Snippet.ChannelTitle
		}
		if video.ContentDetails != nil {
			candidate.Duration = isoToDuration(video.ContentDetails.Duration)
		}
		if video.Statistics != nil {
			candidate.Views = int64(video.Statistics.ViewCount)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// isoToDuration converts the API's ISO 8601 durations, treating unparsable
// input as unknown.
func isoToDuration(iso string) time.Duration {
	d, err := duration.ParseISO8601(iso)
	if err != nil {
		return 0
	}
	return time.Duration(d.Y)*time.Hour*24*365 +
		time.Duration(d.M)*time.Hour*24*30 +
		time.Duration(d.W)*time.Hour*24*7 +
		time.Duration(d.D)*time.Hour*24 +
		time.Duration(d.TH)*time.Hour +
		time.Duration(d.TM)*time.Minute +
		time.Duration(d.TS)*time.Second
}
