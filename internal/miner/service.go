// Package miner collects channel uploads and the recommendations YouTube shows next to them.
package miner

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	"github.com/samvad-hq/yt-bias-miner/internal/logger"
	"github.com/samvad-hq/yt-bias-miner/pkg/publishers"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const progressEvery = 100

// Options tunes pacing and retries.
type Options struct {
	Attempts          int
	DelayMin          time.Duration
	DelayMax          time.Duration
	RequestsPerSecond float64
	Concurrency       int
	// Refresh ignores cached results and mines everything again.
	Refresh bool
}

// Deps are the collaborators a Service needs. Store, Publisher and Log are optional.
type Deps struct {
	Videos          VideoSource
	Recommendations RecommendationSource
	Outlets         OutletDirectory
	Store           Store
	Publisher       EventPublisher
	Log             logger.Logger
}

// Service coordinates mining across every outlet.
type Service struct {
	videos    VideoSource
	recs      RecommendationSource
	outlets   OutletDirectory
	store     Store
	publisher EventPublisher
	log       logger.Logger
	limiter   *rate.Limiter
	opts      Options

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	delay func() time.Duration
}

// NewService wires a miner.
func NewService(deps Deps, opts Options) (*Service, error) {
	if deps.Videos == nil || deps.Recommendations == nil || deps.Outlets == nil {
		return nil, errors.New("miner requires video source, recommendation source and outlet directory")
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = opts.DelayMin
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	s := &Service{
		videos:    deps.Videos,
		recs:      deps.Recommendations,
		outlets:   deps.Outlets,
		store:     deps.Store,
		publisher: deps.Publisher,
		log:       logger.Ensure(deps.Log),
		limiter:   rate.NewLimiter(limit, 1),
		opts:      opts,
		now:       time.Now,
		sleep:     sleepContext,
	}
	s.delay = s.randomDelay
	return s, nil
}

// MineChannelVideos returns the uploads of a channel inside the window
// (the last five days when the window is zero).
func (s *Service) MineChannelVideos(ctx context.Context, channelID string, window Window) ([]domain.Video, error) {
	window = window.orDefault(s.now())
	return s.videos.ChannelVideosInTimeframe(ctx, channelID, window.Start, window.End)
}

// MineChannelRecommendations samples recommendations for each video. Videos
// that keep failing after every attempt are left out. On cancellation the
// recommendations gathered so far are returned with the context error.
func (s *Service) MineChannelRecommendations(ctx context.Context, channelID string, videoIDs []string) (domain.ChannelRecommendations, error) {
	out := make(domain.ChannelRecommendations, len(videoIDs))
	total := len(videoIDs)

	for i, videoID := range videoIDs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if (i+1)%progressEvery == 0 {
			s.log.InfoObj("recommendation progress", "miner_progress", map[string]any{
				"channel_id": channelID,
				"processed":  i + 1,
				"total":      total,
			})
		}

		recs, err := s.fetchWithRetry(ctx, videoID)
		if err == nil {
			out[videoID] = recs
		} else if ctx.Err() != nil {
			return out, ctx.Err()
		}

		if i < total-1 {
			if err := s.sleep(ctx, s.delay()); err != nil {
				return out, err
			}
		}
	}
	return out, nil
}

func (s *Service) fetchWithRetry(ctx context.Context, videoID string) ([]domain.Recommendation, error) {
	var first, last error
	for attempt := 1; attempt <= s.opts.Attempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		recs, err := s.recs.Recommendations(ctx, videoID)
		if err == nil {
			return recs, nil
		}
		if first == nil {
			first = err
		}
		last = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	s.log.WarnObj("recommendation fetch failed", "recommendation_error", map[string]any{
		"video_id":    videoID,
		"attempts":    s.opts.Attempts,
		"first_error": first.Error(),
		"last_error":  last.Error(),
	})
	return nil, fmt.Errorf("fetch recommendations for %s: %w", videoID, last)
}

// MineVideos collects uploads for every outlet. A failing channel is logged
// and recorded with no videos.
func (s *Service) MineVideos(ctx context.Context, window Window) (map[string][]domain.Video, error) {
	window = window.orDefault(s.now())
	ids := s.outlets.IDs()

	var mu sync.Mutex
	out := make(map[string][]domain.Video, len(ids))
	err := s.forEachChannel(ctx, ids, func(ctx context.Context, channelID string) {
		videos := s.channelVideos(ctx, channelID, window)
		mu.Lock()
		out[channelID] = videos
		mu.Unlock()
	})
	return out, err
}

func (s *Service) channelVideos(ctx context.Context, channelID string, window Window) []domain.Video {
	meta := s.channelMeta(channelID)

	if s.store != nil && !s.opts.Refresh {
		videos, found, err := s.store.LoadChannelVideos(ctx, channelID)
		if err != nil {
			s.log.WarnObj("cached videos unreadable", "storage_error", withError(meta, err))
		} else if found {
			s.log.InfoObj("channel videos loaded from cache", "channel_videos", withCount(meta, "videos", len(videos)))
			return videos
		}
	}

	s.log.InfoObj("mining channel videos", "channel_videos", withWindow(meta, window))
	videos, err := s.MineChannelVideos(ctx, channelID, window)
	if err != nil {
		s.log.ErrorObj("channel video mining failed", "channel_error", withError(meta, err))
		return []domain.Video{}
	}
	if videos == nil {
		videos = []domain.Video{}
	}
	s.log.InfoObj("channel videos mined", "channel_videos", withCount(meta, "videos", len(videos)))

	if s.store != nil {
		if err := s.store.SaveChannelVideos(ctx, channelID, videos); err != nil {
			s.log.WarnObj("channel videos not cached", "storage_error", withError(meta, err))
		}
	}
	return videos
}

// MineRecommendationBias samples recommendations for every channel in
// channelVideos. Channels with a cached non-empty result are reused; freshly
// mined channels are saved and published. Failures yield an empty result.
func (s *Service) MineRecommendationBias(ctx context.Context, channelVideos map[string][]domain.Video) (map[string]domain.ChannelRecommendations, error) {
	ids := s.orderedChannels(channelVideos)

	var mu sync.Mutex
	out := make(map[string]domain.ChannelRecommendations, len(ids))
	err := s.forEachChannel(ctx, ids, func(ctx context.Context, channelID string) {
		recs := s.channelRecommendations(ctx, channelID, channelVideos[channelID])
		mu.Lock()
		out[channelID] = recs
		mu.Unlock()
	})
	return out, err
}

func (s *Service) channelRecommendations(ctx context.Context, channelID string, videos []domain.Video) domain.ChannelRecommendations {
	meta := s.channelMeta(channelID)

	if s.store != nil && !s.opts.Refresh {
		recs, found, err := s.store.LoadRecommendations(ctx, channelID)
		if err != nil {
			s.log.WarnObj("cached recommendations unreadable", "storage_error", withError(meta, err))
		} else if found {
			s.log.InfoObj("recommendation bias already exists", "channel_recommendations", withCount(meta, "videos", recs.VideoCount()))
			return recs
		}
	}

	s.log.InfoObj("mining recommendations", "channel_recommendations", withCount(meta, "videos", len(videos)))
	recs, err := s.MineChannelRecommendations(ctx, channelID, domain.VideoIDs(videos))
	if err != nil {
		s.log.ErrorObj("recommendation mining interrupted", "channel_error", withError(meta, err))
		return domain.ChannelRecommendations{}
	}

	if s.store != nil {
		if err := s.store.SaveRecommendations(ctx, channelID, recs); err != nil {
			s.log.WarnObj("recommendations not cached", "storage_error", withError(meta, err))
		}
	}
	s.publish(ctx, channelID, recs)

	s.log.InfoObj("channel recommendations mined", "channel_recommendations", map[string]any{
		"channel_id":      channelID,
		"channel_name":    meta["channel_name"],
		"videos":          recs.VideoCount(),
		"recommendations": recs.Count(),
	})
	return recs
}

func (s *Service) publish(ctx context.Context, channelID string, recs domain.ChannelRecommendations) {
	if s.publisher == nil || len(recs) == 0 {
		return
	}
	outlet, ok := s.outlets.Outlet(channelID)
	if !ok {
		outlet = domain.Outlet{ChannelID: channelID, Bias: domain.BiasUnclassified}
	}
	n, err := s.publisher.Publish(ctx, publishers.NewEvent(outlet, recs))
	if err != nil {
		s.log.ErrorObj("event publish failed", "publish_error", map[string]any{
			"channel_id": channelID,
			"delivered":  n,
			"error":      err.Error(),
		})
	}
}

// forEachChannel runs fn for every channel with bounded concurrency. It only
// fails when ctx is cancelled.
func (s *Service) forEachChannel(ctx context.Context, ids []string, fn func(context.Context, string)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// orderedChannels lists channelVideos keys in registry order, then any
// remaining keys sorted.
func (s *Service) orderedChannels(channelVideos map[string][]domain.Video) []string {
	ids := make([]string, 0, len(channelVideos))
	seen := make(map[string]bool, len(channelVideos))
	for _, id := range s.outlets.IDs() {
		if _, ok := channelVideos[id]; ok {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range channelVideos {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

func (s *Service) channelMeta(channelID string) map[string]any {
	meta := map[string]any{"channel_id": channelID}
	if o, ok := s.outlets.Outlet(channelID); ok {
		meta["channel_name"] = o.Name
		meta["bias"] = string(o.Bias)
	}
	return meta
}

func (s *Service) randomDelay() time.Duration {
	lo, hi := s.opts.DelayMin, s.opts.DelayMax
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func withError(meta map[string]any, err error) map[string]any {
	out := copyMeta(meta)
	out["error"] = err.Error()
	return out
}

func withCount(meta map[string]any, key string, n int) map[string]any {
	out := copyMeta(meta)
	out[key] = n
	return out
}

func withWindow(meta map[string]any, w Window) map[string]any {
	out := copyMeta(meta)
	out["window"] = w.String()
	return out
}

func copyMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	return out
}
