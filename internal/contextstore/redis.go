package contextstore

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waffyhq/waffy-go/internal/config"
)

const keyPrefix = "ctx:" // ctx:<customer>:<business>

// RedisStore keeps conversation windows in Redis so context survives process
// restarts and is shared between workers.
//
// Graceful fallback: if Redis is unavailable, reads return no context and
// writes are dropped instead of blocking the pipeline.
type RedisStore struct {
	window Window
	client *redis.Client
}

// NewRedis connects to Redis and returns a context store backed by it.
// Returns nil if the URL is unset or the connection fails; callers fall back
// to the in-memory store.
func NewRedis(cfg config.RedisConfig, window Window) *RedisStore {
	if cfg.URL == "" {
		return nil
	}
	if window.Capacity == 0 {
		window = DefaultWindow()
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Context] invalid Redis URL: %v", err)
		return nil
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Context] Redis connection failed: %v", err)
		return nil
	}

	log.Println("[Context] Redis connected")
	return &RedisStore{window: window, client: client}
}

// Get returns the windowed context for a conversation, oldest-first.
// Any Redis error degrades to an empty context.
func (s *RedisStore) Get(ctx context.Context, customerID, businessID string, asOf int64) []string {
	raw, err := s.client.LRange(ctx, keyPrefix+key(customerID, businessID), 0, maxStored-1).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Context] read failed for %s: %v", customerID, err)
		}
		return nil
	}

	entries := make([]Entry, 0, len(raw))
	for _, line := range raw {
		var e Entry
		if json.Unmarshal([]byte(line), &e) == nil {
			entries = append(entries, e)
		}
	}
	return windowed(entries, s.window, asOf)
}

// Record appends a message to the conversation's history. Failures are logged
// and dropped.
func (s *RedisStore) Record(ctx context.Context, customerID, businessID, text string, ts int64) {
	k := keyPrefix + key(customerID, businessID)
	line, err := json.Marshal(Entry{Text: text, Timestamp: ts})
	if err != nil {
		return
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, k, line)
	pipe.LTrim(ctx, k, 0, maxStored-1)
	pipe.Expire(ctx, k, 4*s.window.Horizon)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[Context] record failed for %s: %v", customerID, err)
	}
}

// Clear removes all stored entries for the conversation.
func (s *RedisStore) Clear(ctx context.Context, customerID, businessID string) {
	if err := s.client.Del(ctx, keyPrefix+key(customerID, businessID)).Err(); err != nil {
		log.Printf("[Context] clear failed for %s: %v", customerID, err)
	}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	s.client.Close()
}
