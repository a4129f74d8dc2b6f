// Package scrape recovers provider entities from public embed pages. It is
// the fallback path when the web API is unavailable, disabled, or returned
// nothing usable.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"tunebridge/internal/core"
	"tunebridge/internal/flood"
	"tunebridge/internal/store"
	"tunebridge/pkg/streamlink"
)

const (
	// commonUserAgent is the user agent string used for all embed requests.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// commonAcceptHeader is the accept header used for all embed requests.
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 3
	// maxPageBytes caps how much of an embed page is read.
	maxPageBytes = 2 << 20
	// bloomFalsePositiveRate tunes the payload cache's negative prefilter.
	bloomFalsePositiveRate = 0.001
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrNotScrapable is returned for inputs that cannot map to an embed page.
	ErrNotScrapable = errors.New("input is not a scrapable provider URL")
	// ErrThrottled is returned when the per-host request budget is exhausted.
	ErrThrottled = errors.New("scrape request budget exhausted")
	// ErrNoEntity is returned when an embed page carries no hydration payload.
	ErrNoEntity = errors.New("embed page carries no entity payload")
)

// nextDataRegex locates the hydration script embedded in the page.
var nextDataRegex = regexp.MustCompile(`(?s)<script id="__NEXT_DATA__" type="application/json"[^>]*>(.*?)</script>`)

// pageData mirrors the slice of the hydration payload we care about.
type pageData struct {
	Props struct {
		PageProps struct {
			State struct {
				Data struct {
					Entity *Entity `json:"entity"`
				} `json:"data"`
			} `json:"state"`
		} `json:"pageProps"`
	} `json:"props"`
}

// Scraper fetches embed pages politely: results and definite misses are
// cached, concurrent fetches of the same URL collapse into one request, and
// outbound traffic respects a per-host budget.
type Scraper struct {
	logger  *zap.Logger
	client  *http.Client
	cache   *store.PayloadCache[*Entity]
	gate    *flood.Gate
	group   singleflight.Group
	baseURL string // overrides the embed origin, for tests
}

// NewScraper creates a scraper with a bounded payload cache and per-host
// request budget taken from config.
func NewScraper(config *core.ScrapeConfig, logger *zap.Logger) *Scraper {
	return &Scraper{
		logger: logger,
		client: newHTTPClient(),
		cache:  store.NewPayloadCache[*Entity](config.CacheSize, bloomFalsePositiveRate),
		gate:   flood.New(config.RequestsPerMinute),
	}
}

// newHTTPClient creates a new HTTP client with standard settings and redirect validation.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// FetchURL resolves a public entity URL or URI through its embed page. A nil
// entity with a nil error means the provider definitively has no such entity.
func (s *Scraper) FetchURL(ctx context.Context, rawURL string) (*Entity, error) {
	embed, err := s.embedURL(rawURL)
	if err != nil {
		return nil, err
	}

	if entity, ok := s.cache.Get(embed); ok {
		s.logger.Debug("Embed cache hit", zap.String("url", embed))
		return entity, nil
	}
	if s.cache.KnownMiss(embed) {
		s.logger.Debug("Embed known miss", zap.String("url", embed))
		return nil, nil
	}

	value, err, _ := s.group.Do(embed, func() (interface{}, error) {
		// A concurrent fetch may have landed while we waited.
		if entity, ok := s.cache.Get(embed); ok {
			return entity, nil
		}

		entity, err := s.fetch(ctx, embed)
		if err != nil {
			return nil, err
		}
		if entity == nil {
			return nil, nil
		}
		return entity, nil
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return value.(*Entity), nil
}

func (s *Scraper) fetch(ctx context.Context, embed string) (*Entity, error) {
	host := hostOf(embed)
	if !s.gate.Allow(host) {
		s.logger.Warn("Scrape budget exhausted", zap.String("host", host))
		return nil, ErrThrottled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, embed, http.NoBody)
	if err != nil {
		return nil, err
	}

	// Set realistic browser headers.
	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		s.cache.MarkMiss(embed)
		s.logger.Debug("Embed entity not found", zap.String("url", embed))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read embed page: %w", err)
	}

	entity, err := extractEntity(body)
	if err != nil {
		return nil, err
	}

	s.cache.Put(embed, entity)
	s.logger.Debug("Embed entity fetched",
		zap.String("url", embed),
		zap.String("type", entity.Type),
		zap.Int("tracks", len(entity.TrackList)))
	return entity, nil
}

// CacheSize returns the number of cached embed payloads.
func (s *Scraper) CacheSize() int {
	return s.cache.Size()
}

// Stop releases the scraper's background resources.
func (s *Scraper) Stop() {
	s.gate.Stop()
}

func (s *Scraper) embedURL(rawURL string) (string, error) {
	embed, err := toEmbedURL(rawURL)
	if err != nil {
		return "", err
	}
	if s.baseURL != "" {
		u, err := url.Parse(embed)
		if err != nil {
			return "", err
		}
		return s.baseURL + u.Path, nil
	}
	return embed, nil
}

// toEmbedURL rewrites a public entity URL or URI to its embed page URL.
func toEmbedURL(rawURL string) (string, error) {
	if link := streamlink.Classify(rawURL); !link.None() {
		return fmt.Sprintf("https://open.%s.com/embed/%s/%s", link.Service, link.Kind, link.ID), nil
	}

	// The classifier found no usable ID. Provider URLs with unrecognized path
	// decorations can still work by grafting the embed prefix onto the path.
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" || !strings.HasPrefix(u.Host, "open.") {
		return "", ErrNotScrapable
	}
	if !strings.Contains(u.Path, "/embed/") {
		u.Path = "/embed" + u.Path
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// extractEntity pulls the hydration payload out of an embed page.
func extractEntity(page []byte) (*Entity, error) {
	matches := nextDataRegex.FindSubmatch(page)
	if len(matches) < 2 {
		return nil, ErrNoEntity
	}

	var data pageData
	if err := json.Unmarshal(matches[1], &data); err != nil {
		return nil, fmt.Errorf("failed to decode embed payload: %w", err)
	}

	entity := data.Props.PageProps.State.Data.Entity
	if entity == nil || entity.Type == "" {
		return nil, ErrNoEntity
	}
	return entity, nil
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return rawURL
}
