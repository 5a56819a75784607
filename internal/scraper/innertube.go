package scraper

import (
	"context"
	"fmt"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"github.com/samvad-hq/yt-bias-miner/pkg/httpclient"
)

const (
	defaultInnertubeURL  = "https://www.youtube.com/youtubei/v1/next?prettyPrint=false"
	defaultClientVersion = "2.20250222.10.00"
)

type innertubeRequest struct {
	VideoID        string           `json:"videoId"`
	Context        innertubeContext `json:"context"`
	RacyCheckOk    bool             `json:"racyCheckOk"`
	ContentCheckOk bool             `json:"contentCheckOk"`
}

type innertubeContext struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

// InnertubeSource asks the internal /next endpoint for the watch-next feed.
// The JSON it returns has the same contents tree as ytInitialData.
type InnertubeSource struct {
	client httpclient.Client
	opts   Options
}

// NewInnertubeSource constructs an innertube source.
func NewInnertubeSource(client httpclient.Client, opts Options) *InnertubeSource {
	return &InnertubeSource{client: client, opts: opts.withDefaults()}
}

// Recommendations posts a WEB client request for videoID.
func (s *InnertubeSource) Recommendations(ctx context.Context, videoID string) ([]domain.Recommendation, error) {
	payload := innertubeRequest{
		VideoID: videoID,
		Context: innertubeContext{Client: innertubeClient{
			ClientName:    "WEB",
			ClientVersion: s.opts.ClientVersion,
			Hl:            "en",
			Gl:            "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
	headers := map[string]string{
		"User-Agent":               s.opts.UserAgent,
		"X-Youtube-Client-Name":    "1",
		"X-Youtube-Client-Version": s.opts.ClientVersion,
		"Origin":                   "https://www.youtube.com",
	}

	resp, err := s.client.Post(ctx, s.opts.InnertubeURL, headers, payload)
	if err != nil {
		return nil, fmt.Errorf("innertube next %s: %w", videoID, err)
	}
	body, err := checkBody(resp, "innertube next")
	if err != nil {
		return nil, err
	}
	return parseRecommendations(body)
}
