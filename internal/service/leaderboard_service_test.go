package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

type countingLeaderboardRepo struct {
	donorCalls int
	karmaCalls int
	lastLimit  int
}

func (r *countingLeaderboardRepo) TopDonors(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	r.donorCalls++
	r.lastLimit = limit
	return []models.LeaderboardEntry{{ID: uuid.New(), DisplayName: "Alice", TotalDonations: 3}}, nil
}

func (r *countingLeaderboardRepo) TopByKarma(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	r.karmaCalls++
	r.lastLimit = limit
	return []models.LeaderboardEntry{}, nil
}

func TestLeaderboardService_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	repo := &countingLeaderboardRepo{}
	svc := NewLeaderboardService(repo, NewCacheService(0, LeaderboardTTL))

	first, err := svc.Top(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	_, err = svc.Top(ctx, LeaderboardDonors, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.donorCalls)
	assert.Equal(t, defaultLeaderboard, repo.lastLimit)

	svc.Invalidate()
	_, err = svc.Top(ctx, LeaderboardDonors, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.donorCalls)
}

func TestLeaderboardService_LimitAndKind(t *testing.T) {
	ctx := context.Background()
	repo := &countingLeaderboardRepo{}
	svc := NewLeaderboardService(repo, NewCacheService(0, LeaderboardTTL))

	_, err := svc.Top(ctx, LeaderboardKarma, 500)
	require.NoError(t, err)
	assert.Equal(t, maxLeaderboardLimit, repo.lastLimit)
	assert.Equal(t, 1, repo.karmaCalls)

	_, err = svc.Top(ctx, "weekly", 10)
	assert.Equal(t, apperror.ErrCodeBadRequest, apperror.CodeOf(err))
}

func TestCacheService_ExpiresEntries(t *testing.T) {
	cache := NewCacheService(4, 50*time.Millisecond)

	cache.Set("k", 1)
	v, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	require.Eventually(t, func() bool {
		_, ok := cache.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestCacheService_InvalidateByPrefix(t *testing.T) {
	cache := NewCacheService(0, time.Minute)
	cache.Set(LeaderboardCacheKey(LeaderboardDonors, 10), "donors")
	cache.Set(LeaderboardCacheKey(LeaderboardKarma, 10), "karma")
	cache.Set("profile:1", "kept")

	cache.InvalidateByPrefix(leaderboardPrefix)

	_, ok := cache.Get(LeaderboardCacheKey(LeaderboardDonors, 10))
	assert.False(t, ok)
	_, ok = cache.Get(LeaderboardCacheKey(LeaderboardKarma, 10))
	assert.False(t, ok)
	v, ok := cache.Get("profile:1")
	require.True(t, ok)
	assert.Equal(t, "kept", v)
}
