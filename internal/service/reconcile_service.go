package service

import (
	"context"
	"log"
	"time"

	"GameHub/internal/model"
	"GameHub/internal/repository/db"
	"GameHub/internal/repository/redis"

	"gorm.io/gorm"
)

// RatingReconciler 定时用评论表校准游戏的评分聚合字段
type RatingReconciler struct {
	repo      *db.GameRepository
	cache     *redis.ReviewCacheRepository
	batchSize int
	interval  time.Duration
}

func NewRatingReconciler(conn *gorm.DB, cache *redis.ReviewCacheRepository, interval time.Duration) *RatingReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RatingReconciler{
		repo:      &db.GameRepository{DB: conn},
		cache:     cache,
		batchSize: 500,
		interval:  interval,
	}
}

func (r *RatingReconciler) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.reconcileOnce(ctx)
		}
	}
}

// reconcileOnce 按 id 游标遍历全部游戏，返回修复的条数
func (r *RatingReconciler) reconcileOnce(ctx context.Context) int {
	fixed := 0
	var lastID uint64
	for {
		rows, next, err := r.repo.ReconcileList(ctx, r.batchSize, lastID)
		if err != nil {
			log.Printf("reconcile list err: %v", err)
			return fixed
		}
		if len(rows) == 0 {
			return fixed
		}
		for _, g := range rows {
			count, sum, err := r.repo.RealRating(ctx, g.ID)
			if err != nil {
				continue
			}
			if count == g.ReviewsCount && sum == g.RatingSum {
				continue
			}
			if err = r.repo.FixRating(ctx, g.ID, count, sum); err != nil {
				log.Printf("reconcile fix game=%d: %v", g.ID, err)
				continue
			}
			log.Printf("reconcile game=%d count %d->%d sum %d->%d avg=%.1f", g.ID, g.ReviewsCount, count, g.RatingSum, sum, model.RoundRating(sum, count))
			if r.cache != nil {
				_ = r.cache.DeleteStats(ctx, g.ID)
			}
			fixed++
		}
		lastID = next
	}
}
