package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrendingCacheStoreAndLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTrendingCache(db, time.Hour)
	ctx := context.Background()

	snapshot := TrendingSnapshot{
		EventIDs:   []string{"e2", "e1"},
		ComputedAt: time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(snapshot)
	require.NoError(t, err)

	mock.ExpectSet(trendingCacheKey, string(payload), time.Hour).SetVal("OK")
	require.NoError(t, cache.Store(ctx, snapshot))

	mock.ExpectGet(trendingCacheKey).SetVal(string(payload))
	got, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot.EventIDs, got.EventIDs)
	assert.True(t, snapshot.ComputedAt.Equal(got.ComputedAt))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendingCacheStoreEmptySet(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTrendingCache(db, time.Minute)

	at := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	mock.ExpectSet(trendingCacheKey, `{"eventIds":[],"computedAt":"2025-01-05T10:00:00Z"}`, time.Minute).SetVal("OK")

	require.NoError(t, cache.Store(context.Background(), TrendingSnapshot{ComputedAt: at}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrendingCacheLoadMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewTrendingCache(db, time.Hour)

	mock.ExpectGet(trendingCacheKey).RedisNil()
	_, err := cache.Load(context.Background())
	assert.ErrorIs(t, err, ErrTrendingNotCached)

	mock.ExpectGet(trendingCacheKey).SetErr(errors.New("connection refused"))
	_, err = cache.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTrendingNotCached)

	mock.ExpectGet(trendingCacheKey).SetVal("{not json")
	_, err = cache.Load(context.Background())
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
