package service

import (
	"context"
	"time"

	"github.com/ignatzorin/feedreach-backend/internal/models"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

const (
	// LeaderboardTTL время жизни закэшированного рейтинга.
	LeaderboardTTL      = time.Minute
	defaultLeaderboard  = 10
	maxLeaderboardLimit = 50

	LeaderboardDonors = "donors"
	LeaderboardKarma  = "karma"
)

// LeaderboardRepository источник рейтингов.
type LeaderboardRepository interface {
	TopDonors(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	TopByKarma(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// LeaderboardService отдаёт рейтинги пользователей с кэшированием на минуту.
type LeaderboardService struct {
	repo  LeaderboardRepository
	cache *CacheService
}

func NewLeaderboardService(repo LeaderboardRepository, cache *CacheService) *LeaderboardService {
	return &LeaderboardService{repo: repo, cache: cache}
}

// Top возвращает рейтинг kind ("donors" или "karma").
func (s *LeaderboardService) Top(ctx context.Context, kind string, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboard
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	var load func(context.Context, int) ([]models.LeaderboardEntry, error)
	switch kind {
	case "", LeaderboardDonors:
		kind, load = LeaderboardDonors, s.repo.TopDonors
	case LeaderboardKarma:
		load = s.repo.TopByKarma
	default:
		return nil, apperror.New(apperror.ErrCodeBadRequest, "неизвестный рейтинг")
	}

	value, err := s.cache.GetOrSet(LeaderboardCacheKey(kind, limit), func() (interface{}, error) {
		return load(ctx, limit)
	})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить рейтинг")
	}
	return value.([]models.LeaderboardEntry), nil
}

// Invalidate сбрасывает кэш рейтингов.
func (s *LeaderboardService) Invalidate() {
	s.cache.InvalidateByPrefix(leaderboardPrefix)
}
