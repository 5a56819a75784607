package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samvad-hq/yt-bias-miner/pkg/httpclient"
)

type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient records the last request and returns a fixed response.
type stubHTTPClient struct {
	resp     httpclient.Response
	err      error
	url      string
	headers  map[string]string
	postBody any
}

func (s *stubHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	s.url, s.headers = url, headers
	return s.resp, s.err
}

func (s *stubHTTPClient) Post(_ context.Context, url string, headers map[string]string, body any) (httpclient.Response, error) {
	s.url, s.headers, s.postBody = url, headers, body
	return s.resp, s.err
}

const sampleInitialData = `{"contents":{"twoColumnWatchNextResults":{"secondaryResults":{"secondaryResults":{"results":[
 {"compactVideoRenderer":{"videoId":"r1","title":{"simpleText":"First"},
   "longBylineText":{"runs":[{"text":"Left News","navigationEndpoint":{"browseEndpoint":{"browseId":"UCleft"}}}]}}},
 {"continuationItemRenderer":{"trigger":"CONTINUATION_TRIGGER_ON_ITEM_SHOWN"}},
 {"compactVideoRenderer":{"videoId":"r2","title":{"simpleText":"Second; with semicolon"}}}
]}}}}}`

func watchPage(data string) []byte {
	return []byte(`<html><head><script>var other = 1;</script></head><body>
<script nonce="x">var ytInitialData = ` + data + `;</script>
<script>var ytInitialPlayerResponse = {};</script></body></html>`)
}

func TestParseRecommendationsKeepsOrderAndDefaults(t *testing.T) {
	recs, err := parseRecommendations([]byte(sampleInitialData))
	if err != nil {
		t.Fatalf("parseRecommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].VideoID != "r1" || recs[0].ChannelName != "Left News" || recs[0].ChannelID != "UCleft" {
		t.Fatalf("unexpected first recommendation %#v", recs[0])
	}
	if recs[1].Title != "Second; with semicolon" || recs[1].ChannelID != "" || recs[1].ChannelName != "" {
		t.Fatalf("unexpected second recommendation %#v", recs[1])
	}
}

func TestParseRecommendationsMissingTree(t *testing.T) {
	for _, data := range []string{
		`{}`,
		`{"contents":{"twoColumnWatchNextResults":{}}}`,
		`{"contents":{"twoColumnWatchNextResults":{"secondaryResults":{"secondaryResults":{}}}}}`,
	} {
		if _, err := parseRecommendations([]byte(data)); !errors.Is(err, ErrUnexpectedLayout) {
			t.Fatalf("expected ErrUnexpectedLayout for %s, got %v", data, err)
		}
	}
}

func TestExtractInitialDataCutsAtLastSemicolon(t *testing.T) {
	raw, err := extractInitialData(watchPage(sampleInitialData))
	if err != nil {
		t.Fatalf("extractInitialData: %v", err)
	}
	if !strings.HasPrefix(string(raw), "{") || !strings.HasSuffix(string(raw), "}") {
		t.Fatalf("unexpected payload boundaries: %.40q", raw)
	}

	if _, err := extractInitialData([]byte(`<html><script>var x = 1;</script></html>`)); !errors.Is(err, ErrInitialDataNotFound) {
		t.Fatalf("expected ErrInitialDataNotFound, got %v", err)
	}
}

func TestExtractInitialDataRejectsUnterminatedPayload(t *testing.T) {
	truncated := []byte(`<html><script>var ytInitialData = {"contents":{"twoColumnWatchNextResults":{"title":"a`)
	if _, err := extractInitialData(truncated); !errors.Is(err, ErrInitialDataNotFound) {
		t.Fatalf("expected ErrInitialDataNotFound for truncated payload, got %v", err)
	}

	noSemicolon := []byte(`<html><script>var ytInitialData = {"contents":{}}</script></html>`)
	if _, err := extractInitialData(noSemicolon); !errors.Is(err, ErrInitialDataNotFound) {
		t.Fatalf("expected ErrInitialDataNotFound without a terminator, got %v", err)
	}
}

func TestWatchPageSourceFetchesAndParses(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{body: watchPage(sampleInitialData), statusCode: 200}}
	src := NewWatchPageSource(client, Options{UserAgent: "ua-test"})

	recs, err := src.Recommendations(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if client.url != "https://www.youtube.com/watch?v=seed" {
		t.Fatalf("unexpected url %q", client.url)
	}
	if client.headers["User-Agent"] != "ua-test" {
		t.Fatalf("unexpected headers %#v", client.headers)
	}
}

func TestWatchPageSourceStatusError(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{statusCode: 429}}
	src := NewWatchPageSource(client, Options{})

	_, err := src.Recommendations(context.Background(), "seed")
	if err == nil || !strings.Contains(err.Error(), "status code: 429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestWatchPageSourceRejectsOversizedBody(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{body: make([]byte, MaxBodyBytes+1), statusCode: 200}}
	if _, err := NewWatchPageSource(client, Options{}).Recommendations(context.Background(), "seed"); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestInnertubeSourcePostsWebContext(t *testing.T) {
	client := &stubHTTPClient{resp: stubHTTPResponse{body: []byte(sampleInitialData), statusCode: 200}}
	src := NewInnertubeSource(client, Options{InnertubeURL: "http://innertube.test/next"})

	recs, err := src.Recommendations(context.Background(), "seed")
	if err != nil {
		t.Fatalf("Recommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	req, ok := client.postBody.(innertubeRequest)
	if !ok {
		t.Fatalf("unexpected payload type %T", client.postBody)
	}
	if req.VideoID != "seed" || req.Context.Client.ClientName != "WEB" {
		t.Fatalf("unexpected payload %#v", req)
	}
	if client.headers["X-Youtube-Client-Version"] != defaultClientVersion {
		t.Fatalf("unexpected headers %#v", client.headers)
	}
}

func TestNewSourceSelectsKind(t *testing.T) {
	client := &stubHTTPClient{}
	cases := map[string]string{
		"":           "*scraper.WatchPageSource",
		"watch_page": "*scraper.WatchPageSource",
		"INNERTUBE":  "*scraper.InnertubeSource",
	}
	for kind, want := range cases {
		src, err := NewSource(kind, client, Options{})
		if err != nil {
			t.Fatalf("NewSource(%q): %v", kind, err)
		}
		if got := typeName(src); got != want {
			t.Fatalf("NewSource(%q) = %s want %s", kind, got, want)
		}
	}

	if _, err := NewSource("carrier-pigeon", client, Options{}); err == nil || !strings.Contains(err.Error(), "innertube, watch_page") {
		t.Fatalf("expected error listing known kinds, got %v", err)
	}
	if _, err := NewSource(KindWatchPage, nil, Options{}); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func typeName(src Source) string {
	switch src.(type) {
	case *WatchPageSource:
		return "*scraper.WatchPageSource"
	case *InnertubeSource:
		return "*scraper.InnertubeSource"
	default:
		return "unknown"
	}
}
