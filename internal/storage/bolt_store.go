package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samvad-hq/yt-bias-miner/internal/domain"
	bolt "go.etcd.io/bbolt"
)

const (
	videosBucket          = "channel_videos"
	recommendationsBucket = "recommendations"
	expiryValueBytes      = 8
)

var boltBuckets = []string{videosBucket, recommendationsBucket}

// boltStore keeps one JSON document per channel and bucket, prefixed with an
// 8-byte big-endian unix expiry.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	store := &boltStore{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *boltStore) LoadChannelVideos(_ context.Context, channelID string) ([]domain.Video, bool, error) {
	var videos []domain.Video
	found, err := b.get(videosBucket, channelID, &videos)
	if err != nil || !found || len(videos) == 0 {
		return nil, false, err
	}
	return videos, true, nil
}

func (b *boltStore) SaveChannelVideos(_ context.Context, channelID string, videos []domain.Video) error {
	return b.put(videosBucket, channelID, videos)
}

func (b *boltStore) LoadRecommendations(_ context.Context, channelID string) (domain.ChannelRecommendations, bool, error) {
	var recs domain.ChannelRecommendations
	found, err := b.get(recommendationsBucket, channelID, &recs)
	if err != nil || !found || len(recs) == 0 {
		return nil, false, err
	}
	return recs, true, nil
}

func (b *boltStore) SaveRecommendations(_ context.Context, channelID string, recs domain.ChannelRecommendations) error {
	return b.put(recommendationsBucket, channelID, recs)
}

func (b *boltStore) AllRecommendations(_ context.Context) (map[string]domain.ChannelRecommendations, error) {
	out := make(map[string]domain.ChannelRecommendations)
	if b == nil || b.db == nil {
		return out, nil
	}

	now := b.now()
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(recommendationsBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket missing", recommendationsBucket)
		}
		return bucket.ForEach(func(k, v []byte) error {
			payload, ok := unwrapValue(v, now)
			if !ok {
				return nil
			}
			var recs domain.ChannelRecommendations
			if err := json.Unmarshal(payload, &recs); err != nil {
				return fmt.Errorf("decode recommendations for %s: %w", k, err)
			}
			if len(recs) > 0 {
				out[string(k)] = recs
			}
			return nil
		})
	})
	return out, err
}

// get decodes the unexpired value for key into dst, deleting it when expired.
func (b *boltStore) get(bucketName, key string, dst any) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return false, err
	}

	var payload []byte
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("%s bucket missing", bucketName)
		}

		value := bucket.Get([]byte(key))
		if value == nil {
			return nil
		}
		data, ok := unwrapValue(value, now)
		if !ok {
			return bucket.Delete([]byte(key))
		}
		payload = append([]byte(nil), data...)
		return nil
	})
	if err != nil || payload == nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", bucketName, key, err)
	}
	return true, nil
}

func (b *boltStore) put(bucketName, key string, v any) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", bucketName, key, err)
	}
	buf := make([]byte, expiryValueBytes+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(now.Add(b.ttl).Unix()))
	copy(buf[expiryValueBytes:], payload)

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return fmt.Errorf("%s bucket missing", bucketName)
		}
		return bucket.Put([]byte(key), buf)
	})
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltBuckets {
			bucket := tx.Bucket([]byte(name))
			if bucket == nil {
				return fmt.Errorf("%s bucket missing", name)
			}

			cursor := bucket.Cursor()
			for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
				if _, ok := unwrapValue(v, now); !ok {
					if err := cursor.Delete(); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// unwrapValue returns the payload of a stored value if it has not expired.
func unwrapValue(value []byte, now time.Time) ([]byte, bool) {
	expiry, ok := decodeExpiry(value)
	if !ok || !expiry.After(now) {
		return nil, false
	}
	return value[expiryValueBytes:], true
}

// decodeExpiry decodes the expiry time from the stored byte slice prefix.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
