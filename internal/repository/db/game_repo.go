package db

import (
	"context"
	"time"

	"GameHub/internal/model"

	"gorm.io/gorm"
)

type GameRepository struct {
	DB *gorm.DB
}

// RatingRow 对账用的聚合字段
type RatingRow struct {
	ID           uint64
	ReviewsCount int64
	RatingSum    int64
}

func (r *GameRepository) Create(ctx context.Context, game *model.Game) error {
	return r.DB.WithContext(ctx).Create(game).Error
}

func (r *GameRepository) FindByID(ctx context.Context, id uint64) (*model.Game, error) {
	var game model.Game
	err := r.DB.WithContext(ctx).First(&game, id).Error
	return &game, err
}

// List limit<=0 表示不分页
func (r *GameRepository) List(ctx context.Context, offset, limit int) ([]model.Game, error) {
	var list []model.Game
	q := r.DB.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

func (r *GameRepository) ListByAuthor(ctx context.Context, authorID uint64) ([]model.Game, error) {
	var list []model.Game
	err := r.DB.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// UpdateWithPermission 作者或特权用户才能更新，权限条件直接放在 WHERE 中
func (r *GameRepository) UpdateWithPermission(ctx context.Context, id, operatorID uint64, privileged bool, fields map[string]any) (int64, error) {
	if len(fields) == 0 {
		return r.countEditable(ctx, id, operatorID, privileged)
	}
	fields["updated_at"] = time.Now()
	q := r.DB.WithContext(ctx).Model(&model.Game{}).Where("id = ?", id)
	if !privileged {
		q = q.Where("author_id = ?", operatorID)
	}
	tx := q.Updates(fields)
	return tx.RowsAffected, tx.Error
}

func (r *GameRepository) countEditable(ctx context.Context, id, operatorID uint64, privileged bool) (int64, error) {
	var n int64
	q := r.DB.WithContext(ctx).Model(&model.Game{}).Where("id = ?", id)
	if !privileged {
		q = q.Where("author_id = ?", operatorID)
	}
	err := q.Count(&n).Error
	return n, err
}

// DeleteWithPermission 删除游戏并级联删除评论和会话，同一事务
func (r *GameRepository) DeleteWithPermission(ctx context.Context, id, operatorID uint64, privileged bool) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if !privileged {
			q = q.Where("author_id = ?", operatorID)
		}
		res := q.Delete(&model.Game{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		if err := tx.Where("game_id = ?", id).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("game_id = ?", id).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventGameDeleted, id, operatorID, nil)
	})
	return affected, err
}

// ReconcileList 按 id 分批读取聚合字段
func (r *GameRepository) ReconcileList(ctx context.Context, batchSize int, lastID uint64) ([]RatingRow, uint64, error) {
	var list []RatingRow
	if err := r.DB.WithContext(ctx).Model(&model.Game{}).
		Select("id", "reviews_count", "rating_sum").
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, lastID, err
	}
	if len(list) == 0 {
		return nil, lastID, nil
	}
	return list, list[len(list)-1].ID, nil
}

// RealRating 从评论表统计真实值
func (r *GameRepository) RealRating(ctx context.Context, gameID uint64) (int64, int64, error) {
	var row struct {
		Cnt int64
		Sum int64
	}
	err := r.DB.WithContext(ctx).Model(&model.Review{}).
		Select("COUNT(*) AS cnt, COALESCE(SUM(rating), 0) AS sum").
		Where("game_id = ?", gameID).
		Scan(&row).Error
	return row.Cnt, row.Sum, err
}

func (r *GameRepository) FixRating(ctx context.Context, gameID uint64, count, sum int64) error {
	return r.DB.WithContext(ctx).Model(&model.Game{}).Where("id = ?", gameID).
		UpdateColumns(map[string]any{
			"reviews_count":  count,
			"rating_sum":     sum,
			"average_rating": model.RoundRating(sum, count),
		}).Error
}
