package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"GameHub/internal/model"
	"GameHub/internal/repository/db"
	"GameHub/internal/repository/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// 写后延迟二删的间隔
	statsDoubleDeleteDelay = 500 * time.Millisecond
	// 没抢到锁时的退避
	defaultLockBackoff = 50 * time.Millisecond
)

type ReviewService struct {
	repo  *db.ReviewRepository
	games *db.GameRepository
	cache *redis.ReviewCacheRepository
	lock  *redis.DistLock

	lockBackoff time.Duration
}

func NewReviewService(conn *gorm.DB, cache *redis.ReviewCacheRepository, lock *redis.DistLock) *ReviewService {
	return &ReviewService{
		repo:  &db.ReviewRepository{DB: conn},
		games: &db.GameRepository{DB: conn},
		cache: cache,
		lock:  lock,

		lockBackoff: defaultLockBackoff,
	}
}

func (s *ReviewService) Create(ctx context.Context, who Identity, gameID uint64, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("Please select a rating")
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) < 10 {
		return nil, invalid("Comment must be at least 10 characters")
	}
	if _, err := s.games.FindByID(ctx, gameID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	// 预检查只是快速路径，唯一索引才是最终保证
	if reviewed, err := s.HasUserReviewed(ctx, gameID, who.UserID); err == nil && reviewed {
		return nil, ErrAlreadyReviewed
	}

	review := &model.Review{
		GameID:    gameID,
		UserID:    who.UserID,
		UserEmail: who.Email,
		Rating:    rating,
		Comment:   comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		switch {
		case errors.Is(err, db.ErrDuplicateReview):
			return nil, ErrAlreadyReviewed
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, gameID)
	return review, nil
}

// Delete 评论作者、版主或管理员可删除
func (s *ReviewService) Delete(ctx context.Context, who Identity, reviewID uint64) error {
	review, err := s.repo.DeleteWithPermission(ctx, reviewID, who.UserID, who.IsStaff())
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return ErrReviewNotFound
		case errors.Is(err, db.ErrPermissionDenied):
			return ErrForbidden
		}
		return err
	}
	s.invalidate(ctx, review.GameID)
	return nil
}

func (s *ReviewService) invalidate(ctx context.Context, gameID uint64) {
	if err := s.cache.InvalidateReviewers(ctx, gameID); err != nil {
		log.Printf("invalidate reviewer set game=%d: %v", gameID, err)
	}
	if err := s.cache.DeleteStats(ctx, gameID, statsDoubleDeleteDelay); err != nil {
		log.Printf("delete rating stats cache game=%d: %v", gameID, err)
	}
}

func (s *ReviewService) ListByGame(ctx context.Context, gameID uint64) ([]model.Review, error) {
	return s.repo.ListByGame(ctx, gameID)
}

func (s *ReviewService) ListByUser(ctx context.Context, userID uint64) ([]model.Review, error) {
	return s.repo.ListByUser(ctx, userID)
}

// HasUserReviewed 先查评论人集合，未命中回源并整体回填
func (s *ReviewService) HasUserReviewed(ctx context.Context, gameID, userID uint64) (bool, error) {
	if ok, hit, err := s.cache.HasReviewedCached(ctx, gameID, userID); err == nil && hit {
		return ok, nil
	}
	// 版本必须在读库之前取
	gen, genErr := s.cache.ReviewerGen(ctx, gameID)
	reviews, err := s.repo.ListByGame(ctx, gameID)
	if err != nil {
		return false, err
	}
	reviewers := make([]uint64, 0, len(reviews))
	found := false
	for _, r := range reviews {
		reviewers = append(reviewers, r.UserID)
		if r.UserID == userID {
			found = true
		}
	}
	if genErr != nil {
		log.Printf("read reviewer gen game=%d: %v", gameID, genErr)
		return found, nil
	}
	if _, err := s.cache.LoadReviewers(ctx, gameID, gen, reviewers); err != nil {
		log.Printf("warm reviewer set game=%d: %v", gameID, err)
	}
	return found, nil
}

// RatingStats 缓存未命中时只允许一个请求回源重建
func (s *ReviewService) RatingStats(ctx context.Context, gameID uint64) (redis.RatingStats, error) {
	if v, ok, err := s.cache.GetStatsCached(ctx, gameID); err == nil && ok {
		return v, nil
	}

	token := uuid.NewString()
	got, err := s.lock.Acquire(ctx, gameID, token)
	if err != nil {
		// redis 不可用，直接回源
		log.Printf("acquire rating lock game=%d: %v", gameID, err)
		return s.loadStats(ctx, gameID)
	}
	if got {
		defer func() {
			if err := s.lock.Release(ctx, gameID, token); err != nil {
				log.Printf("release rating lock game=%d: %v", gameID, err)
			}
		}()
		// 第二次检查
		if v, ok, err := s.cache.GetStatsCached(ctx, gameID); err == nil && ok {
			return v, nil
		}
		stats, err := s.loadStats(ctx, gameID)
		if err != nil {
			return redis.RatingStats{}, err
		}
		_ = s.cache.SetStats(ctx, gameID, stats)
		return stats, nil
	}

	// 没拿到锁，短暂退避后再读一次缓存
	time.Sleep(s.lockBackoff)
	if v, ok, err := s.cache.GetStatsCached(ctx, gameID); err == nil && ok {
		return v, nil
	}
	return s.loadStats(ctx, gameID)
}

func (s *ReviewService) loadStats(ctx context.Context, gameID uint64) (redis.RatingStats, error) {
	game, err := s.games.FindByID(ctx, gameID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return redis.RatingStats{}, ErrGameNotFound
		}
		return redis.RatingStats{}, err
	}
	return redis.RatingStats{Count: game.ReviewsCount, Average: game.AverageRating}, nil
}
