// Package scraper samples the "up next" recommendations YouTube shows next to a video.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"github.com/samvad-hq/yt-bias-miner/pkg/httpclient"
)

const (
	KindWatchPage = "watch_page"
	KindInnertube = "innertube"

	// MaxBodyBytes caps a watch page or innertube response.
	MaxBodyBytes = 4 << 20
)

var (
	// ErrInitialDataNotFound means the watch page carried no ytInitialData script.
	ErrInitialDataNotFound = errors.New("could not find the ytInitialData script in the page")
	// ErrUnexpectedLayout means the recommendation tree was missing; the structure might have changed.
	ErrUnexpectedLayout = errors.New("failed to parse recommended videos, the structure might have changed")
)

// Source returns the recommendations shown for a video.
type Source interface {
	Recommendations(ctx context.Context, videoID string) ([]domain.Recommendation, error)
}

// Options tunes how sources talk to YouTube.
type Options struct {
	UserAgent     string
	WatchURL      string // prefix the video ID is appended to
	InnertubeURL  string
	ClientVersion string
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.UserAgent) == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.WatchURL == "" {
		o.WatchURL = defaultWatchURL
	}
	if o.InnertubeURL == "" {
		o.InnertubeURL = defaultInnertubeURL
	}
	if o.ClientVersion == "" {
		o.ClientVersion = defaultClientVersion
	}
	return o
}

// Builder constructs a Source for a kind.
type Builder func(client httpclient.Client, opts Options) Source

var builders = map[string]Builder{
	KindWatchPage: func(c httpclient.Client, o Options) Source { return NewWatchPageSource(c, o) },
	KindInnertube: func(c httpclient.Client, o Options) Source { return NewInnertubeSource(c, o) },
}

// Kinds lists the supported source kinds.
func Kinds() []string {
	out := make([]string, 0, len(builders))
	for k := range builders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewSource returns the source registered for kind.
func NewSource(kind string, client httpclient.Client, opts Options) (Source, error) {
	if client == nil {
		return nil, errors.New("scraper requires an http client")
	}
	key := strings.ToLower(strings.TrimSpace(kind))
	if key == "" {
		key = KindWatchPage
	}

	b := builders[key]
	if b == nil {
		return nil, fmt.Errorf("unknown recommendation source %q (known: %s)", kind, strings.Join(Kinds(), ", "))
	}
	return b(client, opts), nil
}

func checkBody(resp httpclient.Response, what string) ([]byte, error) {
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("failed to fetch %s, status code: %d", what, resp.StatusCode())
	}
	body := resp.Body()
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", what, MaxBodyBytes)
	}
	return body, nil
}
