package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"webgen_server/internal/types"
)

// Cache holds project records by id. Misses and backend failures look
// the same to callers.
type Cache interface {
	Get(ctx context.Context, id string) (*Project, bool)
	Set(ctx context.Context, p *Project)
	Delete(ctx context.Context, id string)
}

// LRUCache is an in-process cache with a per-entry TTL.
type LRUCache struct {
	lru *expirable.LRU[string, *Project]
}

func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	return &LRUCache{lru: expirable.NewLRU[string, *Project](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, id string) (*Project, bool) {
	p, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

func (c *LRUCache) Set(_ context.Context, p *Project) { c.lru.Add(p.ID, p.clone()) }

func (c *LRUCache) Delete(_ context.Context, id string) { c.lru.Remove(id) }

func (c *LRUCache) Len() int { return c.lru.Len() }

const redisKeyPrefix = "webgen:project:"

// RedisCache shares cached projects between replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// NewRedisClient parses redisURL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *RedisCache) Get(ctx context.Context, id string) (*Project, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis cache read failed", zap.String("project_id", id), zap.Error(err))
		}
		return nil, false
	}
	var p Project
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.String("project_id", id), zap.Error(err))
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Set(ctx context.Context, p *Project) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+p.ID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache write failed", zap.String("project_id", p.ID), zap.Error(err))
	}
}

func (c *RedisCache) Delete(ctx context.Context, id string) {
	if err := c.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		c.logger.Warn("redis cache delete failed", zap.String("project_id", id), zap.Error(err))
	}
}

// CachedStore reads projects through a cache and invalidates on writes.
type CachedStore struct {
	Store
	cache Cache
}

func NewCachedStore(inner Store, cache Cache) *CachedStore {
	return &CachedStore{Store: inner, cache: cache}
}

func (s *CachedStore) GetProject(ctx context.Context, id string) (*Project, error) {
	if p, ok := s.cache.Get(ctx, id); ok {
		return p, nil
	}
	p, err := s.Store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, p)
	return p, nil
}

func (s *CachedStore) SaveProject(ctx context.Context, p *Project) error {
	if err := s.Store.SaveProject(ctx, p); err != nil {
		return err
	}
	s.cache.Delete(ctx, p.ID)
	return nil
}

func (s *CachedStore) DeleteProject(ctx context.Context, id string) error {
	s.cache.Delete(ctx, id)
	return s.Store.DeleteProject(ctx, id)
}

func (s *CachedStore) UpdateProjectFiles(ctx context.Context, id string, files types.FileBundle, meta *types.GenerationMetadata) (*Project, error) {
	s.cache.Delete(ctx, id)
	p, err := s.Store.UpdateProjectFiles(ctx, id, files, meta)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, p)
	return p, nil
}
