package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/wader/goutubedl"

	"tunebridge/internal/core"
)

// ytdlSearcher shells out to yt-dlp for equivalence searches. It needs no API
// key, at the cost of slower lookups and no view counts in flat mode.
type ytdlSearcher struct{}

func (s *ytdlSearcher) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	result, err := goutubedl.New(ctx, fmt.Sprintf("ytsearch%d:%s", limit, query), goutubedl.Options{
		Type:         goutubedl.TypePlaylist,
		FlatPlaylist: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run yt-dlp search: %w", err)
	}

	candidates := make([]Candidate, 0, len(result.Info.Entries))
	for _, entry := range result.Info.Entries {
		if entry.ID == "" {
			continue
		}
		url := entry.WebpageURL
		if url == "" {
			url = watchURL(entry.ID)
		}
		channel := entry.Channel
		if channel == "" {
			channel = entry.Uploader
		}
		candidates = append(candidates, Candidate{
			ID:       entry.ID,
			Title:    entry.Title,
			Channel:  channel,
			URL:      url,
			Duration: time.Duration(entry.Duration * float64(time.Second)),
		})
	}
	return candidates, nil
}

// streamWithYTDL opens the best audio stream for a watch URL.
func streamWithYTDL(ctx context.Context, url string) (*core.PlayableHandle, error) {
	result, err := goutubedl.New(ctx, url, goutubedl.Options{
		Type: goutubedl.TypeSingle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect stream: %w", err)
	}

	download, err := result.Download(ctx, "bestaudio")
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	return &core.PlayableHandle{
		URL:    url,
		Stream: download,
	}, nil
}
