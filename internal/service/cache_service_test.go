package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

type stubCacheRepo struct {
	getErr   error
	deleted  []string
	setKeys  []string
	ttl      time.Duration
	counters map[string]int64
	incrTTL  time.Duration
}

func (s *stubCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if n, ok := s.counters[key]; ok {
		*dest.(*int64) = n
		return nil
	}
	return s.getErr
}

func (s *stubCacheRepo) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.counters == nil {
		s.counters = map[string]int64{}
	}
	s.counters[key]++
	s.incrTTL = ttl
	return s.counters[key], nil
}

func (s *stubCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.setKeys = append(s.setKeys, key)
	s.ttl = ttl
	return nil
}

func (s *stubCacheRepo) Delete(ctx context.Context, keys ...string) error {
	s.deleted = append(s.deleted, keys...)
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	return nil
}

func TestCacheServiceMissAndHit(t *testing.T) {
	repo := &stubCacheRepo{getErr: appErrors.ErrCacheMiss}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	hit, err := svc.Get(ctx, "sessions:day:2025-03-03", &[]string{})
	require.NoError(t, err)
	assert.False(t, hit)

	repo.getErr = nil
	hit, err = svc.Get(ctx, "sessions:day:2025-03-03", &[]string{})
	require.NoError(t, err)
	assert.True(t, hit)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 0.001)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &stubCacheRepo{getErr: errors.New("connection refused")}
	svc := NewCacheService(repo, nil, 0, nil, true)

	hit, err := svc.Get(context.Background(), "k", &[]string{})
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDefaultTTLAndDelete(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, 5*time.Minute, nil, true)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	assert.Equal(t, 5*time.Minute, repo.ttl)

	require.NoError(t, svc.Delete(ctx, "a", "b"))
	assert.Equal(t, []string{"a", "b"}, repo.deleted)
}

func TestCacheServiceGenerations(t *testing.T) {
	repo := &stubCacheRepo{getErr: appErrors.ErrCacheMiss}
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	gen, err := svc.Generation(ctx, "sessions:gen:2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	gen, err = svc.Bump(ctx, "sessions:gen:2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	assert.Equal(t, minGenerationTTL, repo.incrTTL)

	gen, err = svc.Generation(ctx, "sessions:gen:2025-03-03")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	repo.getErr = errors.New("connection refused")
	_, err = svc.Generation(ctx, "sessions:gen:2025-03-04")
	assert.Error(t, err)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, 0, nil, false)
	ctx := context.Background()

	hit, err := svc.Get(ctx, "k", &[]string{})
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, svc.Set(ctx, "k", "v", 0))
	require.NoError(t, svc.Delete(ctx, "k"))
	gen, err := svc.Bump(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	assert.Empty(t, repo.counters)
	assert.Empty(t, repo.setKeys)
	assert.Empty(t, repo.deleted)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.NoError(t, nilSvc.Delete(ctx, "k"))
}
