package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/observability"
)

const keyPrefix = "docsapi:project:"

// Config sizes the cache layers
type Config struct {
	// Size is the number of projects kept in process
	Size int
	// LocalTTL bounds staleness of the in-process layer
	LocalTTL time.Duration
	// RedisTTL bounds staleness of the shared layer
	RedisTTL time.Duration
}

// DefaultConfig returns the default cache sizing
func DefaultConfig() Config {
	return Config{
		Size:     1024,
		LocalTTL: 30 * time.Second,
		RedisTTL: 5 * time.Minute,
	}
}

// Store decorates an api.Storage with a two level cache of projects by
// slug: an in-process expirable LRU in front of Redis. Writes through this
// Store invalidate both layers. Redis is optional; failures there fall back
// to the underlying store.
type Store struct {
	api.Storage

	local   *lru.LRU[string, *api.Project]
	redis   *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *observability.Logger
}

// New wraps storage. redisClient and metrics may be nil.
func New(storage api.Storage, redisClient *redis.Client, cfg Config, metrics *observability.Metrics, logger *observability.Logger) *Store {
	def := DefaultConfig()
	if cfg.Size <= 0 {
		cfg.Size = def.Size
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = def.LocalTTL
	}
	if cfg.RedisTTL <= 0 {
		cfg.RedisTTL = def.RedisTTL
	}
	return &Store{
		Storage: storage,
		local:   lru.NewLRU[string, *api.Project](cfg.Size, nil, cfg.LocalTTL),
		redis:   redisClient,
		ttl:     cfg.RedisTTL,
		metrics: metrics,
		logger:  logger,
	}
}

func key(slug string) string {
	return keyPrefix + slug
}

// GetProject serves from the cache, loading and filling on a miss
func (s *Store) GetProject(ctx context.Context, slug string) (*api.Project, error) {
	if p, ok := s.local.Get(slug); ok {
		s.metrics.RecordCache("local", true)
		return clone(p), nil
	}
	s.metrics.RecordCache("local", false)

	if p := s.getRedis(ctx, slug); p != nil {
		s.local.Add(slug, p)
		return clone(p), nil
	}

	p, err := s.Storage.GetProject(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.local.Add(slug, clone(p))
	s.setRedis(ctx, p)
	return p, nil
}

// UpdateProject writes through and invalidates the project
func (s *Store) UpdateProject(ctx context.Context, project *api.Project) error {
	if err := s.Storage.UpdateProject(ctx, project); err != nil {
		return err
	}
	s.Invalidate(ctx, project.Slug)
	return nil
}

// Invalidate drops slug from both layers
func (s *Store) Invalidate(ctx context.Context, slug string) {
	s.local.Remove(slug)
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, key(slug)).Err(); err != nil {
		s.warn(err, "Failed to invalidate cached project")
	}
}

func (s *Store) getRedis(ctx context.Context, slug string) *api.Project {
	if s.redis == nil {
		return nil
	}
	data, err := s.redis.Get(ctx, key(slug)).Bytes()
	if errors.Is(err, redis.Nil) {
		s.metrics.RecordCache("redis", false)
		return nil
	} else if err != nil {
		s.warn(err, "Project cache read failed")
		return nil
	}

	var p cachedProject
	if err := json.Unmarshal(data, &p); err != nil {
		// corrupt entry
		s.redis.Del(ctx, key(slug))
		s.metrics.RecordCache("redis", false)
		return nil
	}
	s.metrics.RecordCache("redis", true)
	return p.project()
}

func (s *Store) setRedis(ctx context.Context, p *api.Project) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(newCachedProject(p))
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key(p.Slug), data, s.ttl).Err(); err != nil {
		s.warn(err, "Project cache write failed")
	}
}

func (s *Store) warn(err error, msg string) {
	if s.logger != nil {
		s.logger.WithError(err).Warn(msg)
	}
}

func clone(p *api.Project) *api.Project {
	cp := *p
	cp.Users = append([]string(nil), p.Users...)
	return &cp
}

// cachedProject carries the fields api.Project hides from JSON
type cachedProject struct {
	api.Project
	Path          string `json:"path"`
	Skip          bool   `json:"skip"`
	Featured      bool   `json:"featured"`
	UseVirtualenv bool   `json:"use_virtualenv"`
}

func newCachedProject(p *api.Project) cachedProject {
	return cachedProject{
		Project:       *p,
		Path:          p.Path,
		Skip:          p.Skip,
		Featured:      p.Featured,
		UseVirtualenv: p.UseVirtualenv,
	}
}

func (c cachedProject) project() *api.Project {
	p := c.Project
	p.Path = c.Path
	p.Skip = c.Skip
	p.Featured = c.Featured
	p.UseVirtualenv = c.UseVirtualenv
	return &p
}

