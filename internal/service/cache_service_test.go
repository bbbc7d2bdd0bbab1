package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	svc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), false)
	require.False(t, svc.Enabled())

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Minute))

	var out string
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceNilReceiverIsSafe(t *testing.T) {
	var svc *CacheService
	assert.False(t, svc.Enabled())
}

func TestCacheServiceRoundTrip(t *testing.T) {
	svc := NewCacheService(&stubCacheRepo{}, nil, time.Minute, zap.NewNop(), true)

	var out string
	hit, err := svc.Get(context.Background(), "greeting", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "greeting", "hello", 0))

	hit, err = svc.Get(context.Background(), "greeting", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "hello", out)
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := &stubCacheRepo{}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	require.NoError(t, svc.Set(context.Background(), "analytics:survey:t1:s1", "payload", time.Minute))
	require.NoError(t, svc.Invalidate(context.Background(), "analytics:survey:*"))

	var out string
	hit, err := svc.Get(context.Background(), "analytics:survey:t1:s1", &out)
	require.NoError(t, err)
	assert.False(t, hit)
}
