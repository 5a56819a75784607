package miner

import (
	"context"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"github.com/samvad-hq/yt-bias-miner/pkg/publishers"
)

// VideoSource lists a channel's uploads for a date range (YouTube Data API).
type VideoSource interface {
	ChannelVideosInTimeframe(ctx context.Context, channelID string, start, end time.Time) ([]domain.Video, error)
}

// RecommendationSource returns the recommendations shown next to a video.
type RecommendationSource interface {
	Recommendations(ctx context.Context, videoID string) ([]domain.Recommendation, error)
}

// OutletDirectory lists the classified channels to mine.
type OutletDirectory interface {
	IDs() []string
	Outlet(channelID string) (domain.Outlet, bool)
}

// Store caches per-channel results between runs.
type Store interface {
	LoadChannelVideos(ctx context.Context, channelID string) ([]domain.Video, bool, error)
	SaveChannelVideos(ctx context.Context, channelID string, videos []domain.Video) error
	LoadRecommendations(ctx context.Context, channelID string) (domain.ChannelRecommendations, bool, error)
	SaveRecommendations(ctx context.Context, channelID string, recs domain.ChannelRecommendations) error
}

// EventPublisher publishes mined channels downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
