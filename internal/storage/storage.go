// Package storage caches mined channel videos and recommendations between runs.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

// Store persists mining results per channel. A Load reports found=false for
// missing, expired or empty entries.
type Store interface {
	Close() error
	LoadChannelVideos(ctx context.Context, channelID string) ([]domain.Video, bool, error)
	SaveChannelVideos(ctx context.Context, channelID string, videos []domain.Video) error
	LoadRecommendations(ctx context.Context, channelID string) (domain.ChannelRecommendations, bool, error)
	SaveRecommendations(ctx context.Context, channelID string, recs domain.ChannelRecommendations) error
	AllRecommendations(ctx context.Context) (map[string]domain.ChannelRecommendations, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	TypeNone   = "none"
	TypeBBolt  = "bbolt"
	TypeSQLite = "sqlite"
	TypeFile   = "file"

	defaultTTL             = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	if typ != "" && typ != TypeNone && typ != "disabled" && strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s storage requires a path", typ)
	}

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		return openBolt(path, opts)
	case TypeSQLite:
		return openSQLite(path, opts)
	case TypeFile:
		return openFileStore(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error { return nil }

func (noopStore) LoadChannelVideos(context.Context, string) ([]domain.Video, bool, error) {
	return nil, false, nil
}

func (noopStore) SaveChannelVideos(context.Context, string, []domain.Video) error { return nil }

func (noopStore) LoadRecommendations(context.Context, string) (domain.ChannelRecommendations, bool, error) {
	return nil, false, nil
}

func (noopStore) SaveRecommendations(context.Context, string, domain.ChannelRecommendations) error {
	return nil
}

func (noopStore) AllRecommendations(context.Context) (map[string]domain.ChannelRecommendations, error) {
	return map[string]domain.ChannelRecommendations{}, nil
}
