package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Meru-dog/study-group-bot/internal/models"
)

const recordKey = "study-group-bot:daily-record"

// RedisStore keeps the record in Redis for deployments without a persistent
// filesystem.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ [STATE] Redis connection established")
	return &RedisStore{client: client}, nil
}

// Load fetches and decodes the record, or returns nil when the key is unset.
func (s *RedisStore) Load(ctx context.Context) (*models.DailyRecord, error) {
	data, err := s.client.Get(ctx, recordKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state from Redis: %w", err)
	}

	var rec models.DailyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode state from Redis: %w", err)
	}
	rec.EnsureMaps()
	return &rec, nil
}

// Save stores the record without expiry; the next day's announce overwrites it.
func (s *RedisStore) Save(ctx context.Context, rec *models.DailyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := s.client.Set(ctx, recordKey, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write state to Redis: %w", err)
	}
	return nil
}

// Ping checks Redis health.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
