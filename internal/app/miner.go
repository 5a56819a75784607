package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/config"
	"github.com/samvad-hq/yt-bias-miner/internal/logger"
	"github.com/samvad-hq/yt-bias-miner/internal/miner"
	"github.com/samvad-hq/yt-bias-miner/internal/scraper"
	"github.com/samvad-hq/yt-bias-miner/internal/storage"
	"github.com/samvad-hq/yt-bias-miner/pkg/httpclient"
	"github.com/samvad-hq/yt-bias-miner/pkg/outlets"
	"github.com/samvad-hq/yt-bias-miner/pkg/publishers"
	"github.com/samvad-hq/yt-bias-miner/pkg/youtube"
)

// Options adjusts a single miner run.
type Options struct {
	// Refresh ignores cached videos and recommendations.
	Refresh bool
}

// Miner is the bias-miner runtime. It owns the outlet registry, the store and
// the publisher fanout, and drives the mining service on a schedule.
type Miner struct {
	cfg      *config.Config
	outlets  *outlets.Registry
	fanout   *publishers.Fanout
	service  *miner.Service
	store    storage.Store
	interval time.Duration
	log      logger.Logger
}

// NewMiner builds the runtime from config. It requires a YouTube Data API key.
func NewMiner(ctx context.Context, cfg *config.Config, log logger.Logger, opts Options) (*Miner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	registry, err := LoadOutlets(cfg, log)
	if err != nil {
		return nil, err
	}

	yt, err := NewYouTubeClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	source, err := NewRecommendationSource(cfg)
	if err != nil {
		return nil, err
	}

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	service, err := miner.NewService(miner.Deps{
		Videos:          yt,
		Recommendations: source,
		Outlets:         registry,
		Store:           store,
		Publisher:       fanout,
		Log:             log,
	}, miner.Options{
		Attempts:          cfg.RecommendationAttempts,
		DelayMin:          cfg.RequestDelayMin,
		DelayMax:          cfg.RequestDelayMax,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Concurrency:       cfg.ChannelConcurrency,
		Refresh:           opts.Refresh,
	})
	if err != nil {
		_ = store.Close()
		_ = fanout.Close()
		return nil, fmt.Errorf("init miner: %w", err)
	}

	return &Miner{
		cfg:      cfg,
		outlets:  registry,
		fanout:   fanout,
		service:  service,
		store:    store,
		interval: cfg.MineInterval,
		log:      log,
	}, nil
}

// LoadOutlets reads the outlet bias registry named by cfg.
func LoadOutlets(cfg *config.Config, log logger.Logger) (*outlets.Registry, error) {
	registry, err := outlets.LoadRegistry(cfg.OutletsFile)
	if err != nil {
		return nil, fmt.Errorf("load outlets registry: %w", err)
	}
	logger.Ensure(log).InfoObj("outlets registry loaded", "outlets_meta", map[string]any{
		"file":  cfg.OutletsFile,
		"count": registry.Len(),
	})
	return registry, nil
}

// NewYouTubeClient builds the Data API client from cfg.
func NewYouTubeClient(ctx context.Context, cfg *config.Config, log logger.Logger) (*youtube.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	client, err := youtube.NewClient(ctx, cfg.YouTubeAPIKey,
		youtube.WithLogger(logger.Ensure(log)),
		youtube.WithMaxPlaylistVideos(cfg.MaxPlaylistVideos),
	)
	if err != nil {
		return nil, fmt.Errorf("init youtube client: %w", err)
	}
	return client, nil
}

// NewRecommendationSource builds the configured recommendation scraper.
func NewRecommendationSource(cfg *config.Config) (scraper.Source, error) {
	source, err := scraper.NewSource(cfg.RecommendationSource, newScraperHTTPClient(cfg), scraper.Options{
		UserAgent: cfg.ScraperUserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("init recommendation source: %w", err)
	}
	return source, nil
}

func newScraperHTTPClient(cfg *config.Config) *httpclient.RestyClient {
	return httpclient.NewRestyClient(cfg.HTTPTimeout, httpclient.WithResponseBodyLimit(scraper.MaxBodyBytes))
}

func buildFanout(ctx context.Context, cfg *config.Config, log logger.Logger) (*publishers.Fanout, error) {
	if cfg.PublishersFile == "" {
		log.InfoObj("no publishers file configured; events disabled", "publishers_meta", map[string]any{"count": 0})
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	clients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(clients), nil
}

func openStore(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	path := cfg.StoragePath()
	store, err := storage.NewStore(cfg.StorageType, path, storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Ensure(log).InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     path,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})
	return store, nil
}

// MineOnce collects uploads for every outlet within window, then samples
// their recommendations.
func (m *Miner) MineOnce(ctx context.Context, window miner.Window) error {
	if m == nil || m.service == nil {
		return fmt.Errorf("miner is not initialized")
	}
	start := time.Now()
	m.log.InfoObj("mining started", "mine_meta", map[string]any{
		"outlets_count": m.outlets.Len(),
		"started_at":    start.UTC(),
	})

	videos, err := m.service.MineVideos(ctx, window)
	if err != nil {
		return fmt.Errorf("mine videos: %w", err)
	}
	videoCount := 0
	for _, list := range videos {
		videoCount += len(list)
	}

	recs, err := m.service.MineRecommendationBias(ctx, videos)
	if err != nil {
		return fmt.Errorf("mine recommendations: %w", err)
	}
	recCount := 0
	for _, r := range recs {
		recCount += r.Count()
	}

	m.log.InfoObj("mining completed", "mine_meta", map[string]any{
		"channels":        len(videos),
		"videos":          videoCount,
		"recommendations": recCount,
		"elapsed_ms":      time.Since(start).Milliseconds(),
	})
	return nil
}

// Run mines immediately and then on every interval tick until ctx is cancelled.
func (m *Miner) Run(ctx context.Context) error {
	if m == nil || m.service == nil {
		return fmt.Errorf("miner is not initialized")
	}
	if m.outlets.Len() == 0 {
		m.log.WarnObj("no outlets configured; miner idle", "outlets_file", m.cfg.OutletsFile)
		<-ctx.Done()
		return nil
	}

	m.log.InfoObj("miner loop starting", "miner_state", map[string]any{
		"outlets_count":    m.outlets.Len(),
		"publishers_count": m.fanout.Size(),
		"mine_interval":    m.interval.String(),
		"window_days":      m.cfg.WindowDays,
	})

	if err := m.MineOnce(ctx, m.window()); err != nil && !errors.Is(err, context.Canceled) {
		m.log.ErrorObj("initial mining failed", "error", err)
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.InfoObj("miner loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := m.MineOnce(ctx, m.window()); err != nil && !errors.Is(err, context.Canceled) {
				m.log.ErrorObj("scheduled mining failed", "error", err)
			}
		}
	}
}

func (m *Miner) window() miner.Window {
	return miner.LastDays(m.cfg.WindowDays, time.Now())
}

// Report writes the report artefacts for everything in the store.
func (m *Miner) Report(ctx context.Context, opts ReportOptions) (ReportPaths, error) {
	if m == nil || m.store == nil {
		return ReportPaths{}, fmt.Errorf("miner is not initialized")
	}
	if opts.Dir == "" {
		opts.Dir = m.cfg.ReportDir
	}
	return writeReports(ctx, m.store, m.outlets, opts, m.log)
}

// Close releases the store and publisher clients.
func (m *Miner) Close() error {
	if m == nil {
		return nil
	}
	var errs []error
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			m.log.ErrorObj("storage close failed", "error", err)
			errs = append(errs, err)
		}
	}
	if err := m.fanout.Close(); err != nil {
		m.log.ErrorObj("publisher close failed", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
