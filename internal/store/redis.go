package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/talkbridge/internal/ids"
	"github.com/eldtechnologies/talkbridge/internal/metrics"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

const transcriptTTL = 7 * 24 * time.Hour

// RedisStore archives transcripts in Redis, one sorted set per session
// scored by send time. Entries expire with the session's keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// transcriptKey returns the key for a session's message sorted set.
func transcriptKey(sessionID string) string {
	return fmt.Sprintf("transcript:%s:messages", sessionID)
}

// fingerprintsKey returns the key for the set of archived fingerprints.
func fingerprintsKey(sessionID string) string {
	return fmt.Sprintf("transcript:%s:fingerprints", sessionID)
}

// SaveMessage adds an entry unless its fingerprint is already archived.
func (s *RedisStore) SaveMessage(ctx context.Context, entry models.TranscriptEntry) error {
	start := time.Now()
	defer func() { metrics.ArchiveLatency.WithLabelValues("redis").Observe(time.Since(start).Seconds()) }()

	added, err := s.client.SAdd(ctx, fingerprintsKey(entry.SessionID), entry.Fingerprint).Result()
	if err != nil {
		return err
	}
	if added == 0 {
		return nil
	}

	if entry.ID == "" {
		entry.ID = ids.NewULID()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	key := transcriptKey(entry.SessionID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(entry.Timestamp.UnixMilli()),
		Member: string(data),
	})
	pipe.Expire(ctx, key, transcriptTTL)
	pipe.Expire(ctx, fingerprintsKey(entry.SessionID), transcriptTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		// let a retry store it
		s.client.SRem(ctx, fingerprintsKey(entry.SessionID), entry.Fingerprint)
		return err
	}
	return nil
}

// ListMessages returns a session's entries, oldest first.
func (s *RedisStore) ListMessages(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error) {
	start := time.Now()
	defer func() { metrics.ArchiveLatency.WithLabelValues("redis").Observe(time.Since(start).Seconds()) }()

	results, err := s.client.ZRange(ctx, transcriptKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]models.TranscriptEntry, 0, len(results))
	for _, data := range results {
		var e models.TranscriptEntry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
