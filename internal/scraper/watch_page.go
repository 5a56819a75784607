package scraper

import (
	"context"
	"fmt"
	"net/url"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"github.com/samvad-hq/yt-bias-miner/pkg/httpclient"
)

const (
	defaultWatchURL  = "https://www.youtube.com/watch?v="
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/113.0.0.0 Safari/537.36"
)

// WatchPageSource reads recommendations from the ytInitialData blob embedded in the watch page.
type WatchPageSource struct {
	client httpclient.Client
	opts   Options
}

// NewWatchPageSource constructs a watch-page source.
func NewWatchPageSource(client httpclient.Client, opts Options) *WatchPageSource {
	return &WatchPageSource{client: client, opts: opts.withDefaults()}
}

// Recommendations fetches the watch page for videoID and parses its sidebar.
func (s *WatchPageSource) Recommendations(ctx context.Context, videoID string) ([]domain.Recommendation, error) {
	html, err := s.fetchHTML(ctx, videoID)
	if err != nil {
		return nil, err
	}
	data, err := extractInitialData(html)
	if err != nil {
		return nil, err
	}
	return parseRecommendations(data)
}

func (s *WatchPageSource) fetchHTML(ctx context.Context, videoID string) ([]byte, error) {
	target := s.opts.WatchURL + url.QueryEscape(videoID)
	resp, err := s.client.Get(ctx, target, map[string]string{
		"User-Agent":      s.opts.UserAgent,
		"Accept-Language": "en-US,en;q=0.9",
	})
	if err != nil {
		return nil, fmt.Errorf("http fetch %s: %w", videoID, err)
	}
	return checkBody(resp, "video page")
}
