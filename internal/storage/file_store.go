package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
)

const (
	fileVideosDir = "channel_videos"
	fileBiasDir   = "channel_bias"
)

// fileStore writes one indented JSON document per channel:
// <root>/channel_videos/<id>.json and <root>/channel_bias/<id>.json.
// Entries expire by modification time.
type fileStore struct {
	root string
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

func openFileStore(root string, opts Options) (Store, error) {
	for _, dir := range []string{fileVideosDir, fileBiasDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}
	return &fileStore{root: root, ttl: opts.TTL, now: time.Now}, nil
}

func (f *fileStore) Close() error { return nil }

func (f *fileStore) LoadChannelVideos(_ context.Context, channelID string) ([]domain.Video, bool, error) {
	var videos []domain.Video
	found, err := f.read(fileVideosDir, channelID, &videos)
	if err != nil || !found || len(videos) == 0 {
		return nil, false, err
	}
	return videos, true, nil
}

func (f *fileStore) SaveChannelVideos(_ context.Context, channelID string, videos []domain.Video) error {
	if videos == nil {
		videos = []domain.Video{}
	}
	return f.write(fileVideosDir, channelID, videos)
}

func (f *fileStore) LoadRecommendations(_ context.Context, channelID string) (domain.ChannelRecommendations, bool, error) {
	var recs domain.ChannelRecommendations
	found, err := f.read(fileBiasDir, channelID, &recs)
	if err != nil || !found || len(recs) == 0 {
		return nil, false, err
	}
	return recs, true, nil
}

func (f *fileStore) SaveRecommendations(_ context.Context, channelID string, recs domain.ChannelRecommendations) error {
	if recs == nil {
		recs = domain.ChannelRecommendations{}
	}
	return f.write(fileBiasDir, channelID, recs)
}

func (f *fileStore) AllRecommendations(ctx context.Context) (map[string]domain.ChannelRecommendations, error) {
	entries, err := os.ReadDir(filepath.Join(f.root, fileBiasDir))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", fileBiasDir, err)
	}

	out := make(map[string]domain.ChannelRecommendations, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		channelID := strings.TrimSuffix(e.Name(), ".json")
		recs, found, err := f.LoadRecommendations(ctx, channelID)
		if err != nil {
			return nil, err
		}
		if found {
			out[channelID] = recs
		}
	}
	return out, nil
}

func (f *fileStore) path(dir, channelID string) (string, error) {
	name := filepath.Base(strings.TrimSpace(channelID))
	if name == "" || name == "." || name == ".." || name != strings.TrimSpace(channelID) {
		return "", fmt.Errorf("invalid channel id %q", channelID)
	}
	return filepath.Join(f.root, dir, name+".json"), nil
}

func (f *fileStore) read(dir, channelID string, dst any) (bool, error) {
	path, err := f.path(dir, channelID)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if f.now().Sub(info.ModTime()) >= f.ttl {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("remove expired %s: %w", path, err)
		}
		return false, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (f *fileStore) write(dir, channelID string, v any) error {
	path, err := f.path(dir, channelID)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
