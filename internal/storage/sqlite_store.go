package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS channel_videos (
	channel_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	video_id      TEXT NOT NULL,
	title         TEXT NOT NULL,
	owner_id      TEXT NOT NULL,
	owner_title   TEXT NOT NULL,
	published_at  TEXT NOT NULL,
	expires_at    INTEGER NOT NULL,
	PRIMARY KEY (channel_id, position)
);
CREATE TABLE IF NOT EXISTS recommendation_seeds (
	channel_id    TEXT NOT NULL,
	seed_video_id TEXT NOT NULL,
	expires_at    INTEGER NOT NULL,
	PRIMARY KEY (channel_id, seed_video_id)
);
CREATE TABLE IF NOT EXISTS recommendations (
	channel_id     TEXT NOT NULL,
	seed_video_id  TEXT NOT NULL,
	position       INTEGER NOT NULL,
	video_id       TEXT NOT NULL,
	title          TEXT NOT NULL,
	channel_name   TEXT NOT NULL,
	rec_channel_id TEXT NOT NULL,
	PRIMARY KEY (channel_id, seed_video_id, position)
);`

// sqliteStore keeps mining results in relational tables. Every row of a
// channel shares the expiry written by the last save.
type sqliteStore struct {
	db              *sql.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

func openSQLite(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	store := &sqliteStore{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadChannelVideos(ctx context.Context, channelID string) ([]domain.Video, bool, error) {
	if err := s.maybeCleanupExpired(ctx, s.now()); err != nil {
		return nil, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, owner_id, owner_title, published_at
		 FROM channel_videos WHERE channel_id = ? AND expires_at > ? ORDER BY position`,
		channelID, s.now().Unix(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("query channel videos: %w", err)
	}
	defer rows.Close()

	var videos []domain.Video
	for rows.Next() {
		var (
			v         domain.Video
			published string
		)
		if err := rows.Scan(&v.ID, &v.Title, &v.ChannelID, &v.ChannelTitle, &published); err != nil {
			return nil, false, fmt.Errorf("scan channel video: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, published); err == nil {
			v.PublishedAt = ts
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate channel videos: %w", err)
	}
	return videos, len(videos) > 0, nil
}

func (s *sqliteStore) SaveChannelVideos(ctx context.Context, channelID string, videos []domain.Video) error {
	expires := s.now().Add(s.ttl).Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM channel_videos WHERE channel_id = ?`, channelID); err != nil {
			return fmt.Errorf("clear channel videos: %w", err)
		}
		for i, v := range videos {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO channel_videos (channel_id, position, video_id, title, owner_id, owner_title, published_at, expires_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				channelID, i, v.ID, v.Title, v.ChannelID, v.ChannelTitle, v.PublishedAt.UTC().Format(time.RFC3339Nano), expires,
			); err != nil {
				return fmt.Errorf("insert channel video: %w", err)
			}
		}
		return nil
	})
}

func (s *sqliteStore) LoadRecommendations(ctx context.Context, channelID string) (domain.ChannelRecommendations, bool, error) {
	if err := s.maybeCleanupExpired(ctx, s.now()); err != nil {
		return nil, false, err
	}
	all, err := s.loadRecommendations(ctx, channelID)
	if err != nil {
		return nil, false, err
	}
	recs := all[channelID]
	return recs, len(recs) > 0, nil
}

func (s *sqliteStore) SaveRecommendations(ctx context.Context, channelID string, recs domain.ChannelRecommendations) error {
	expires := s.now().Add(s.ttl).Unix()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM recommendations WHERE channel_id = ?`,
			`DELETE FROM recommendation_seeds WHERE channel_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, channelID); err != nil {
				return fmt.Errorf("clear recommendations: %w", err)
			}
		}
		for seed, list := range recs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO recommendation_seeds (channel_id, seed_video_id, expires_at) VALUES (?, ?, ?)`,
				channelID, seed, expires,
			); err != nil {
				return fmt.Errorf("insert recommendation seed: %w", err)
			}
			for i, r := range list {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO recommendations (channel_id, seed_video_id, position, video_id, title, channel_name, rec_channel_id)
					 VALUES (?, ?, ?, ?, ?, ?, ?)`,
					channelID, seed, i, r.VideoID, r.Title, r.ChannelName, r.ChannelID,
				); err != nil {
					return fmt.Errorf("insert recommendation: %w", err)
				}
			}
		}
		return nil
	})
}

func (s *sqliteStore) AllRecommendations(ctx context.Context) (map[string]domain.ChannelRecommendations, error) {
	return s.loadRecommendations(ctx, "")
}

// loadRecommendations reads unexpired recommendations for one channel, or
// for every channel when channelID is empty.
func (s *sqliteStore) loadRecommendations(ctx context.Context, channelID string) (map[string]domain.ChannelRecommendations, error) {
	query := `SELECT s.channel_id, s.seed_video_id, r.video_id, r.title, r.channel_name, r.rec_channel_id
		FROM recommendation_seeds s
		LEFT JOIN recommendations r ON r.channel_id = s.channel_id AND r.seed_video_id = s.seed_video_id
		WHERE s.expires_at > ?`
	args := []any{s.now().Unix()}
	if channelID != "" {
		query += ` AND s.channel_id = ?`
		args = append(args, channelID)
	}
	query += ` ORDER BY s.channel_id, s.seed_video_id, r.position`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.ChannelRecommendations)
	for rows.Next() {
		var (
			channel, seed                          string
			videoID, title, channelName, recChanID sql.NullString
		)
		if err := rows.Scan(&channel, &seed, &videoID, &title, &channelName, &recChanID); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs := out[channel]
		if recs == nil {
			recs = domain.ChannelRecommendations{}
			out[channel] = recs
		}
		list := recs[seed]
		if list == nil {
			list = []domain.Recommendation{}
		}
		if videoID.Valid {
			list = append(list, domain.Recommendation{
				VideoID:     videoID.String,
				Title:       title.String,
				ChannelName: channelName.String,
				ChannelID:   recChanID.String,
			})
		}
		recs[seed] = list
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recommendations: %w", err)
	}
	return out, nil
}

func (s *sqliteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if err := s.maybeCleanupExpired(ctx, s.now()); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// maybeCleanupExpired deletes expired rows on the configured cadence.
func (s *sqliteStore) maybeCleanupExpired(ctx context.Context, now time.Time) error {
	last := time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	last = time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	cutoff := now.Unix()
	stmts := []string{
		`DELETE FROM channel_videos WHERE expires_at <= ?`,
		`DELETE FROM recommendations WHERE (channel_id, seed_video_id) IN
			(SELECT channel_id, seed_video_id FROM recommendation_seeds WHERE expires_at <= ?)`,
		`DELETE FROM recommendation_seeds WHERE expires_at <= ?`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt, cutoff); err != nil {
			return fmt.Errorf("cleanup expired rows: %w", err)
		}
	}
	s.lastCleanup.Store(now.Unix())
	return nil
}
