package domain

import "time"

// Domain contains core models shared by the miner, storage and analysis layers.

// Outlet is a news channel with an editorial-lean classification.
type Outlet struct {
	ChannelID string `json:"channel_id"`
	Name      string `json:"name"`
	Bias      Bias   `json:"bias"`
}

// Video is an upload taken from a channel's uploads playlist.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
}

// Recommendation is a "next video" suggestion surfaced next to a seed video.
type Recommendation struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
}

// ChannelRecommendations maps a seed video ID to the recommendations sampled for it.
type ChannelRecommendations map[string][]Recommendation

// VideoCount returns the number of seed videos with sampled recommendations.
func (c ChannelRecommendations) VideoCount() int { return len(c) }

// Count returns the total number of recommendations across all seed videos.
func (c ChannelRecommendations) Count() int {
	total := 0
	for _, recs := range c {
		total += len(recs)
	}
	return total
}

// ChannelInfo is the channel metadata exposed by the Data API.
type ChannelInfo struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Country           string    `json:"country,omitempty"`
	PublishedAt       time.Time `json:"published_at"`
	SubscriberCount   uint64    `json:"subscriber_count"`
	HiddenSubscribers bool      `json:"hidden_subscribers"`
	ViewCount         uint64    `json:"view_count"`
	VideoCount        uint64    `json:"video_count"`
}

// Engagement holds like and comment counters for a video.
type Engagement struct {
	Likes    uint64 `json:"likes"`
	Comments uint64 `json:"comments"`
}

// VideoIDs returns the IDs of the given videos in order.
func VideoIDs(videos []Video) []string {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if v.ID != "" {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
