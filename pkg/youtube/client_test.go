package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeAPI struct {
	t        *testing.T
	channels map[string]map[string]any
	pages    map[string]map[string]any // key: pageToken ("" for first)
	videos   map[string]map[string]any
	calls    map[string]int
	tokens   []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	return &fakeAPI{
		t:        t,
		channels: map[string]map[string]any{},
		pages:    map[string]map[string]any{},
		videos:   map[string]map[string]any{},
		calls:    map[string]int{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls[r.URL.Path]++
	q := r.URL.Query()
	ids := splitIDs(q["id"])

	var body map[string]any
	switch r.URL.Path {
	case "/youtube/v3/channels":
		items := []any{}
		for _, id := range ids {
			if ch, ok := f.channels[id]; ok {
				items = append(items, ch)
			}
		}
		body = map[string]any{"items": items, "pageInfo": map[string]any{"totalResults": len(items)}}
	case "/youtube/v3/playlistItems":
		if got := q.Get("maxResults"); got != "50" {
			f.t.Errorf("unexpected maxResults %q", got)
		}
		f.tokens = append(f.tokens, q.Get("pageToken"))
		page, ok := f.pages[q.Get("pageToken")]
		if !ok {
			http.Error(w, "unknown page", http.StatusNotFound)
			return
		}
		body = page
	case "/youtube/v3/videos":
		if len(ids) > idBatchSize {
			f.t.Errorf("batch too large: %d", len(ids))
		}
		items := []any{}
		for _, id := range ids {
			if v, ok := f.videos[id]; ok {
				items = append(items, v)
			}
		}
		body = map[string]any{"items": items}
	default:
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func splitIDs(raw []string) []string {
	var out []string
	for _, r := range raw {
		out = append(out, strings.Split(r, ",")...)
	}
	return out
}

func playlistItem(videoID, published string) map[string]any {
	return map[string]any{
		"id": "item-" + videoID,
		"snippet": map[string]any{
			"title":        "title " + videoID,
			"channelId":    "UC1",
			"channelTitle": "Channel One",
			"publishedAt":  published,
			"resourceId":   map[string]any{"videoId": videoID},
		},
	}
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts = append(opts, WithClientOptions(option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client())))
	client, err := NewClient(context.Background(), "test-key", opts...)
	require.NoError(t, err)
	return client
}

func TestChannelUploadPlaylist(t *testing.T) {
	api := newFakeAPI(t)
	api.channels["UC1"] = map[string]any{
		"id":             "UC1",
		"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU1"}},
	}
	client := newTestClient(t, api)

	playlist, err := client.ChannelUploadPlaylist(context.Background(), "UC1")
	require.NoError(t, err)
	assert.Equal(t, "UU1", playlist)

	_, err = client.ChannelUploadPlaylist(context.Background(), "UCmissing")
	assert.True(t, errors.Is(err, ErrChannelNotFound))
}

func TestVideosInTimeframeStopsAtOlderItems(t *testing.T) {
	api := newFakeAPI(t)
	api.pages[""] = map[string]any{
		"nextPageToken": "p2",
		"items": []any{
			playlistItem("future", "2024-03-14T08:00:00Z"),
			playlistItem("late", "2024-03-13T23:59:59Z"),
			playlistItem("mid", "2024-03-11T12:00:00Z"),
		},
	}
	api.pages["p2"] = map[string]any{
		"nextPageToken": "p3",
		"items": []any{
			playlistItem("first", "2024-03-10T00:00:00Z"),
			playlistItem("old", "2024-03-09T23:59:59Z"),
		},
	}
	client := newTestClient(t, api)

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	videos, err := client.VideosInTimeframe(context.Background(), "UU1", start, end)
	require.NoError(t, err)

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"late", "mid", "first"}, ids)
	assert.Equal(t, 2, api.calls["/youtube/v3/playlistItems"], "third page must not be requested")
	assert.Equal(t, "Channel One", videos[0].ChannelTitle)
}

func TestNewVideosFromPlaylistFailsafe(t *testing.T) {
	api := newFakeAPI(t)
	api.pages[""] = map[string]any{
		"nextPageToken": "p2",
		"items":         []any{playlistItem("a", "2024-03-14T08:00:00Z"), playlistItem("b", "2024-03-13T08:00:00Z")},
	}
	api.pages["p2"] = map[string]any{
		"items": []any{playlistItem("c", "2024-03-12T08:00:00Z")},
	}
	api.channels["UC1"] = map[string]any{
		"id":             "UC1",
		"contentDetails": map[string]any{"relatedPlaylists": map[string]any{"uploads": "UU1"}},
	}
	client := newTestClient(t, api)

	videos, err := client.NewVideosFromPlaylist(context.Background(), "UU1", 2)
	require.NoError(t, err)
	assert.Len(t, videos, 2)

	all, err := client.NewVideosFromPlaylist(context.Background(), "UU1", 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	last, err := client.LastVideos(context.Background(), "UC1", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "a", last[0].ID)
}

type recordedLog struct {
	msg string
	key string
	obj interface{}
}

type recordingLogger struct {
	warns []recordedLog
}

func (r *recordingLogger) InfoObj(string, string, interface{}) {}
func (r *recordingLogger) WarnObj(msg, key string, obj interface{}) {
	r.warns = append(r.warns, recordedLog{msg: msg, key: key, obj: obj})
}

func TestVideosInTimeframeFailsafeStopsPaging(t *testing.T) {
	api := newFakeAPI(t)
	api.pages[""] = map[string]any{
		"nextPageToken": "p2",
		"items":         []any{playlistItem("a", "2024-03-12T08:00:00Z"), playlistItem("b", "2024-03-12T07:00:00Z")},
	}
	api.pages["p2"] = map[string]any{
		"nextPageToken": "p3",
		"items":         []any{playlistItem("c", "2024-03-11T08:00:00Z"), playlistItem("d", "2024-03-11T07:00:00Z")},
	}
	api.pages["p3"] = map[string]any{
		"items": []any{playlistItem("e", "2024-03-10T08:00:00Z"), playlistItem("f", "2024-03-10T07:00:00Z")},
	}
	log := &recordingLogger{}
	client := newTestClient(t, api, WithMaxPlaylistVideos(2), WithLogger(log))

	start := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	videos, err := client.VideosInTimeframe(context.Background(), "UU1", start, end)
	require.NoError(t, err)

	assert.Len(t, videos, 4, "items from fetched pages are kept")
	assert.Equal(t, []string{"", "p2"}, api.tokens, "no page is fetched past the failsafe")
	require.Len(t, log.warns, 1)
	assert.Equal(t, "timeframe failsafe reached", log.warns[0].msg)
	assert.Equal(t, "playlist_failsafe", log.warns[0].key)
	fields := log.warns[0].obj.(map[string]any)
	assert.Equal(t, "UU1", fields["playlist_id"])
	assert.Equal(t, 4, fields["scanned"])
}

func TestChannelStatistics(t *testing.T) {
	api := newFakeAPI(t)
	api.channels["UC1"] = map[string]any{
		"id":         "UC1",
		"snippet":    map[string]any{"title": "One", "country": "US", "publishedAt": "2010-01-02T03:04:05Z"},
		"statistics": map[string]any{"subscriberCount": "1200", "viewCount": "99", "videoCount": "7"},
	}
	api.channels["UC2"] = map[string]any{
		"id":         "UC2",
		"snippet":    map[string]any{"title": "Two"},
		"statistics": map[string]any{"hiddenSubscriberCount": true},
	}
	client := newTestClient(t, api)
	ctx := context.Background()

	countries, err := client.CountryCodes(ctx, []string{"UC1", "UC2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"UC1": "US", "UC2": ""}, countries)

	subs, err := client.SubscriberCounts(ctx, []string{"UC1", "UC2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"UC1": 1200}, subs)

	info, err := client.ChannelInformation(ctx, "UC1")
	require.NoError(t, err)
	assert.Equal(t, "One", info.Title)
	assert.Equal(t, uint64(7), info.VideoCount)
	assert.Equal(t, 2010, info.PublishedAt.Year())

	deleted, err := client.IsChannelDeleted(ctx, "UCgone")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = client.IsChannelDeleted(ctx, "UC1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestVideoStatisticsBatches(t *testing.T) {
	api := newFakeAPI(t)
	ids := make([]string, 0, 120)
	for i := 0; i < 120; i++ {
		id := fmt.Sprintf("v%03d", i)
		ids = append(ids, id)
		api.videos[id] = map[string]any{
			"id":         id,
			"statistics": map[string]any{"viewCount": fmt.Sprint(i), "likeCount": "3", "commentCount": "1"},
		}
	}
	client := newTestClient(t, api)

	views, err := client.VideoViews(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, views, 120)
	assert.Equal(t, uint64(42), views["v042"])
	assert.Equal(t, 3, api.calls["/youtube/v3/videos"])

	engagement, err := client.LikesAndComments(context.Background(), []string{"v001", "missing"})
	require.NoError(t, err)
	assert.Len(t, engagement, 1)
	assert.Equal(t, uint64(3), engagement["v001"].Likes)
}

func TestLikesAndCommentsReportsHiddenCountersAsZero(t *testing.T) {
	api := newFakeAPI(t)
	api.videos["open"] = map[string]any{
		"id":         "open",
		"statistics": map[string]any{"viewCount": "10", "likeCount": "4", "commentCount": "2"},
	}
	api.videos["closed"] = map[string]any{
		"id":         "closed",
		"statistics": map[string]any{"viewCount": "10", "likeCount": "5"},
	}
	api.videos["hidden"] = map[string]any{
		"id":         "hidden",
		"statistics": map[string]any{"viewCount": "10"},
	}
	client := newTestClient(t, api)

	engagement, err := client.LikesAndComments(context.Background(), []string{"open", "closed", "hidden"})
	require.NoError(t, err)
	require.Len(t, engagement, 3)
	assert.Equal(t, uint64(2), engagement["open"].Comments)
	assert.Zero(t, engagement["closed"].Comments, "comments disabled")
	assert.Equal(t, uint64(5), engagement["closed"].Likes)
	assert.Zero(t, engagement["hidden"].Likes, "likes hidden")
}
