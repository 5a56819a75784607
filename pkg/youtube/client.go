// Package youtube wraps the YouTube Data API v3 calls the miner needs.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"
)

// ErrChannelNotFound is returned when the API reports no channel for an ID.
var ErrChannelNotFound = errors.New("youtube channel not found")

// Client is a YouTube Data API client authenticated with an API key.
type Client struct {
	svc     *yt.Service
	log     Logger
	maxScan int
	svcOpts []option.ClientOption
}

// NewClient creates a client for the given API key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		log:     noopLogger{},
		maxScan: defaultMaxPlaylistVideos,
	}
	for _, opt := range opts {
		opt(c)
	}

	svcOpts := append([]option.ClientOption{option.WithAPIKey(strings.TrimSpace(apiKey))}, c.svcOpts...)
	svc, err := yt.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// Page is one page of a playlist listing.
type Page struct {
	Videos        []domain.Video
	NextPageToken string
}

// ChannelUploadPlaylist returns the ID of the playlist holding every upload of a channel.
func (c *Client) ChannelUploadPlaylist(ctx context.Context, channelID string) (string, error) {
	resp, err := c.svc.Channels.List([]string{"contentDetails"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	details := resp.Items[0].ContentDetails
	if details == nil || details.RelatedPlaylists == nil || details.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("channel %s has no uploads playlist", channelID)
	}
	return details.RelatedPlaylists.Uploads, nil
}

// PlaylistPage fetches one page (up to 50 items) of a playlist.
func (c *Client) PlaylistPage(ctx context.Context, playlistID, pageToken string) (Page, error) {
	call := c.svc.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return Page{}, fmt.Errorf("list playlist %s: %w", playlistID, err)
	}

	page := Page{NextPageToken: resp.NextPageToken, Videos: make([]domain.Video, 0, len(resp.Items))}
	for _, item := range resp.Items {
		video, ok := c.toVideo(item)
		if !ok {
			continue
		}
		page.Videos = append(page.Videos, video)
	}
	return page, nil
}

// NewVideosFromPlaylist pages through a playlist, newest first, until the
// listing ends or at least maximum items were collected.
func (c *Client) NewVideosFromPlaylist(ctx context.Context, playlistID string, maximum int) ([]domain.Video, error) {
	if maximum <= 0 {
		maximum = defaultMaxPlaylistVideos
	}
	var (
		videos []domain.Video
		token  string
	)
	for {
		page, err := c.PlaylistPage(ctx, playlistID, token)
		if err != nil {
			return videos, err
		}
		videos = append(videos, page.Videos...)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
		if len(videos) >= maximum {
			c.log.WarnObj("playlist failsafe reached", "playlist_failsafe", map[string]any{
				"playlist_id": playlistID,
				"videos":      len(videos),
			})
			break
		}
	}
	return videos, nil
}

// VideosByChannelID returns up to maximum of the newest uploads of a channel.
func (c *Client) VideosByChannelID(ctx context.Context, channelID string, maximum int) ([]domain.Video, error) {
	if maximum <= 0 {
		maximum = defaultChannelVideos
	}
	playlist, err := c.ChannelUploadPlaylist(ctx, channelID)
	if err != nil {
		return nil, err
	}
	videos, err := c.NewVideosFromPlaylist(ctx, playlist, maximum)
	if err != nil {
		return nil, err
	}
	if len(videos) > maximum {
		videos = videos[:maximum]
	}
	return videos, nil
}

// LastVideos returns the n most recent uploads of a channel.
func (c *Client) LastVideos(ctx context.Context, channelID string, n int) ([]domain.Video, error) {
	if n <= 0 {
		n = pageSize
	}
	return c.VideosByChannelID(ctx, channelID, n)
}

// VideosInTimeframe returns playlist items published on the calendar days
// [start, end]. Upload playlists are ordered newest first, so the scan stops
// at the first item older than start.
func (c *Client) VideosInTimeframe(ctx context.Context, playlistID string, start, end time.Time) ([]domain.Video, error) {
	from, until := dayBounds(start, end)

	var (
		videos []domain.Video
		token  string
		seen   int
	)
	for {
		page, err := c.PlaylistPage(ctx, playlistID, token)
		if err != nil {
			return videos, err
		}
		for _, v := range page.Videos {
			seen++
			if v.PublishedAt.Before(from) {
				return videos, nil
			}
			if v.PublishedAt.Before(until) {
				videos = append(videos, v)
			}
		}
		if page.NextPageToken == "" {
			break
		}
		if seen > c.maxScan {
			c.log.WarnObj("timeframe failsafe reached", "playlist_failsafe", map[string]any{
				"playlist_id": playlistID,
				"scanned":     seen,
			})
			break
		}
		token = page.NextPageToken
	}
	return videos, nil
}

// ChannelVideosInTimeframe resolves the uploads playlist and scans it for the window.
func (c *Client) ChannelVideosInTimeframe(ctx context.Context, channelID string, start, end time.Time) ([]domain.Video, error) {
	playlist, err := c.ChannelUploadPlaylist(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return c.VideosInTimeframe(ctx, playlist, start, end)
}

// IsChannelDeleted reports whether the API no longer knows the channel.
func (c *Client) IsChannelDeleted(ctx context.Context, channelID string) (bool, error) {
	resp, err := c.svc.Channels.List([]string{"snippet"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("list channel %s: %w", channelID, err)
	}
	if resp.PageInfo == nil {
		return len(resp.Items) == 0, nil
	}
	return resp.PageInfo.TotalResults == 0, nil
}

// CountryCodes maps channel IDs to their declared country ("" when unset).
func (c *Client) CountryCodes(ctx context.Context, channelIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(channelIDs))
	err := forEachBatch(channelIDs, func(batch []string) error {
		resp, err := c.svc.Channels.List([]string{"snippet"}).Id(batch...).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("list channel snippets: %w", err)
		}
		for _, item := range resp.Items {
			country := ""
			if item.Snippet != nil {
				country = item.Snippet.Country
			}
			out[item.Id] = country
		}
		return nil
	})
	return out, err
}

// SubscriberCounts maps channel IDs to subscriber counts. Channels hiding the
// count are left out.
func (c *Client) SubscriberCounts(ctx context.Context, channelIDs []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(channelIDs))
	err := forEachBatch(channelIDs, func(batch []string) error {
		resp, err := c.svc.Channels.List([]string{"statistics"}).Id(batch...).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("list channel statistics: %w", err)
		}
		for _, item := range resp.Items {
			if item.Statistics == nil || item.Statistics.HiddenSubscriberCount {
				continue
			}
			out[item.Id] = item.Statistics.SubscriberCount
		}
		return nil
	})
	return out, err
}

// VideoViews maps video IDs to view counts.
func (c *Client) VideoViews(ctx context.Context, videoIDs []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(videoIDs))
	err := c.videoStatistics(ctx, videoIDs, func(item *yt.Video) {
		out[item.Id] = item.Statistics.ViewCount
	})
	return out, err
}

// LikesAndComments maps video IDs to their like and comment counters. The API
// omits a counter when the owner hides likes or disables comments, so those
// videos are reported with 0 rather than left out.
func (c *Client) LikesAndComments(ctx context.Context, videoIDs []string) (map[string]domain.Engagement, error) {
	out := make(map[string]domain.Engagement, len(videoIDs))
	err := c.videoStatistics(ctx, videoIDs, func(item *yt.Video) {
		out[item.Id] = domain.Engagement{
			Likes:    item.Statistics.LikeCount,
			Comments: item.Statistics.CommentCount,
		}
	})
	return out, err
}

func (c *Client) videoStatistics(ctx context.Context, videoIDs []string, fn func(*yt.Video)) error {
	return forEachBatch(videoIDs, func(batch []string) error {
		resp, err := c.svc.Videos.List([]string{"statistics"}).Id(batch...).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("list video statistics: %w", err)
		}
		for _, item := range resp.Items {
			if item.Id == "" || item.Statistics == nil {
				continue
			}
			fn(item)
		}
		return nil
	})
}

// ChannelInformation returns snippet and statistics for one channel.
func (c *Client) ChannelInformation(ctx context.Context, channelID string) (domain.ChannelInfo, error) {
	resp, err := c.svc.Channels.List([]string{"snippet", "statistics"}).Id(channelID).Context(ctx).Do()
	if err != nil {
		return domain.ChannelInfo{}, fmt.Errorf("list channel %s: %w", channelID, err)
	}
	if len(resp.Items) == 0 {
		return domain.ChannelInfo{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	item := resp.Items[0]
	info := domain.ChannelInfo{ID: item.Id}
	if s := item.Snippet; s != nil {
		info.Title = s.Title
		info.Description = s.Description
		info.Country = s.Country
		if ts, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			info.PublishedAt = ts
		}
	}
	if st := item.Statistics; st != nil {
		info.SubscriberCount = st.SubscriberCount
		info.HiddenSubscribers = st.HiddenSubscriberCount
		info.ViewCount = st.ViewCount
		info.VideoCount = st.VideoCount
	}
	return info, nil
}

func (c *Client) toVideo(item *yt.PlaylistItem) (domain.Video, bool) {
	if item == nil || item.Snippet == nil {
		return domain.Video{}, false
	}
	s := item.Snippet
	published, err := time.Parse(time.RFC3339, s.PublishedAt)
	if err != nil {
		c.log.WarnObj("playlist item has invalid publishedAt", "playlist_item", map[string]any{
			"item_id":      item.Id,
			"published_at": s.PublishedAt,
		})
		return domain.Video{}, false
	}

	video := domain.Video{
		Title:        s.Title,
		ChannelID:    s.ChannelId,
		ChannelTitle: s.ChannelTitle,
		PublishedAt:  published.UTC(),
	}
	if s.ResourceId != nil {
		video.ID = s.ResourceId.VideoId
	}
	return video, true
}

// dayBounds turns calendar days into [start 00:00, end+1 00:00) in UTC.
func dayBounds(start, end time.Time) (time.Time, time.Time) {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	until := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return from, until
}

func forEachBatch(ids []string, fn func([]string) error) error {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	for start := 0; start < len(clean); start += idBatchSize {
		end := min(start+idBatchSize, len(clean))
		if err := fn(clean[start:end]); err != nil {
			return err
		}
	}
	return nil
}
