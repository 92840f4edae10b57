package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/fraudlens-api/pkg/errors"
)

func TestCacheRepositoryRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewCacheRepository(client, nil)
	ctx := context.Background()

	var dest []string
	require.ErrorIs(t, repo.Get(ctx, "filter:v1:abc", &dest), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "filter:v1:abc", []string{"app-1"}, time.Minute))
	require.NoError(t, repo.Get(ctx, "filter:v1:abc", &dest))
	assert.Equal(t, []string{"app-1"}, dest)
	assert.Equal(t, time.Minute, mr.TTL("filter:v1:abc"))

	require.NoError(t, repo.Set(ctx, "filter:v2:def", []string{}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "filter:*"))
	assert.False(t, mr.Exists("filter:v1:abc"))
	assert.False(t, mr.Exists("filter:v2:def"))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []string
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", dest, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "*"))
}
