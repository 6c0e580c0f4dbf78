package db

import (
	"context"
	"errors"

	"GameHub/internal/model"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	DB *gorm.DB
}

// Create 写评论并在同一事务内增量更新游戏评分
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReview
			}
			return err
		}
		res := tx.Model(&model.Game{}).
			Where("id = ?", review.GameID).
			UpdateColumns(map[string]any{
				"reviews_count": gorm.Expr("reviews_count + 1"),
				"rating_sum":    gorm.Expr("rating_sum + ?", review.Rating),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := refreshAverage(tx, review.GameID); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventReviewCreated, review.ID, review.UserID, map[string]any{
			"game_id": review.GameID,
			"rating":  review.Rating,
		})
	})
}

// DeleteWithPermission 评论作者或特权用户可删除；返回被删除的评论
func (r *ReviewRepository) DeleteWithPermission(ctx context.Context, id, operatorID uint64, privileged bool) (*model.Review, error) {
	var review model.Review
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, id).Error; err != nil {
			return err
		}
		q := tx.Where("id = ?", id)
		if !privileged {
			q = q.Where("user_id = ?", operatorID)
		}
		res := q.Delete(&model.Review{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrPermissionDenied
		}
		// 计数防负数，由对账兜底
		if err := tx.Model(&model.Game{}).
			Where("id = ?", review.GameID).
			UpdateColumns(map[string]any{
				"reviews_count": gorm.Expr("CASE WHEN reviews_count > 0 THEN reviews_count - 1 ELSE 0 END"),
				"rating_sum":    gorm.Expr("CASE WHEN rating_sum >= ? THEN rating_sum - ? ELSE 0 END", review.Rating, review.Rating),
			}).Error; err != nil {
			return err
		}
		if err := refreshAverage(tx, review.GameID); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return insertOutbox(tx, model.EventReviewDeleted, review.ID, operatorID, map[string]any{
			"game_id": review.GameID,
		})
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// refreshAverage 在同一事务中读取已加锁的计数并写回平均分
func refreshAverage(tx *gorm.DB, gameID uint64) error {
	var game model.Game
	if err := tx.Select("id", "reviews_count", "rating_sum").First(&game, gameID).Error; err != nil {
		return err
	}
	return tx.Model(&model.Game{}).Where("id = ?", gameID).
		UpdateColumn("average_rating", model.RoundRating(game.RatingSum, game.ReviewsCount)).Error
}

func (r *ReviewRepository) FindByID(ctx context.Context, id uint64) (*model.Review, error) {
	var review model.Review
	err := r.DB.WithContext(ctx).First(&review, id).Error
	return &review, err
}

func (r *ReviewRepository) ListByGame(ctx context.Context, gameID uint64) ([]model.Review, error) {
	var list []model.Review
	err := r.DB.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *ReviewRepository) ListByUser(ctx context.Context, userID uint64) ([]model.Review, error) {
	var list []model.Review
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *ReviewRepository) HasReviewed(ctx context.Context, gameID, userID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.Review{}).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		Count(&count).Error
	return count > 0, err
}
