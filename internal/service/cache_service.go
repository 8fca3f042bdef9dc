package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/spa-scheduler-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService wraps the cache repository with metrics and best-effort
// semantics: cache failures are logged and treated as misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	genMu    sync.Mutex
	allGen   uint64
	scopeGen map[string]uint64
}

// CacheStamp records the invalidation generation of a scope at one moment.
type CacheStamp struct {
	all   uint64
	scope uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{
		repo:       repo,
		metrics:    metrics,
		defaultTTL: defaultTTL,
		logger:     logger,
		enabled:    enabled,
		scopeGen:   make(map[string]uint64),
	}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get reports whether key was found and decoded into dest.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// Set stores value, falling back to the default TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.repo.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Stamp returns the current generation of scope. Take it before reading the
// data a cached value is computed from.
func (s *CacheService) Stamp(scope string) CacheStamp {
	if !s.Enabled() {
		return CacheStamp{}
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return CacheStamp{all: s.allGen, scope: s.scopeGen[scope]}
}

// SetIfCurrent stores value only if scope has not been invalidated since
// stamp was taken. An invalidation racing the write removes the key again.
func (s *CacheService) SetIfCurrent(ctx context.Context, scope string, stamp CacheStamp, key string, value interface{}, ttl time.Duration) bool {
	if !s.Enabled() || s.Stamp(scope) != stamp {
		return false
	}
	s.Set(ctx, key, value, ttl)
	if s.Stamp(scope) != stamp {
		s.deletePattern(ctx, key)
		return false
	}
	return true
}

// Invalidate removes cached values for pattern and moves every scope to a
// new generation.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	s.genMu.Lock()
	s.allGen++
	s.genMu.Unlock()
	s.deletePattern(ctx, pattern)
}

// InvalidateScope moves scope to a new generation and removes pattern.
func (s *CacheService) InvalidateScope(ctx context.Context, scope, pattern string) {
	if !s.Enabled() {
		return
	}
	s.genMu.Lock()
	s.scopeGen[scope]++
	s.genMu.Unlock()
	s.deletePattern(ctx, pattern)
}

func (s *CacheService) deletePattern(ctx context.Context, pattern string) {
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}
