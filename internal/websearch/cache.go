package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/studyforge/backend/internal/models"
)

// CacheEntry is one stored web-result set, keyed by the hash of the
// normalized query text.
type CacheEntry struct {
	Results    []models.WebHit `json:"results"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
	UsedCount  int             `json:"used_count"`
	LastUsedAt time.Time       `json:"last_used_at"`
}

// CacheStore is the shared mutable state of the gateway. Implementations
// must be safe for concurrent use; expiry is enforced at read time by the
// gateway, so stores never need a sweep for correctness.
//
// Bump increments the usage counter for an entry atomically; concurrent
// hits on the same key must not lose increments.
type CacheStore interface {
	Get(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, key string, entry *CacheEntry) error
	Bump(ctx context.Context, key string) (int, error)
}

const (
	redisKeyPrefix   = "websearch:cache:"
	redisUsageSuffix = ":uses"
)

// RedisStore persists cache entries in redis. Entries also carry a redis
// TTL matching the logical expiry so stale keys clean themselves up. The
// usage counter lives in a sibling key so hits can INCR it without
// rewriting the entry.
type RedisStore struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisStore(client *redis.Client, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}

	// The counter key owns the live usage count
	if uses, err := s.client.Get(ctx, redisKeyPrefix+key+redisUsageSuffix).Int(); err == nil {
		entry.UsedCount = uses
	}
	return &entry, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+key, data, ttl)
	pipe.Set(ctx, redisKeyPrefix+key+redisUsageSuffix, entry.UsedCount, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Bump(ctx context.Context, key string) (int, error) {
	uses, err := s.client.Incr(ctx, redisKeyPrefix+key+redisUsageSuffix).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump cache usage: %w", err)
	}
	return int(uses), nil
}

// MemoryStore is an in-process CacheStore used by tests and as a fallback
// when redis is not configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*CacheEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}

	copied := *entry
	return &copied, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, entry *CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries[key] = &copied
	return nil
}

func (s *MemoryStore) Bump(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	entry.UsedCount++
	entry.LastUsedAt = time.Now()
	return entry.UsedCount, nil
}

// Len reports the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
