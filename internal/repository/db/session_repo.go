package db

import (
	"context"
	"time"

	"GameHub/internal/model"

	"gorm.io/gorm"
)

type SessionRepository struct {
	DB *gorm.DB
}

// SessionMutation 在内存中修改会话，返回错误则放弃本次写入
type SessionMutation func(s *model.Session) error

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	return r.DB.WithContext(ctx).Create(s).Error
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint64) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *SessionRepository) List(ctx context.Context) ([]model.Session, error) {
	var list []model.Session
	err := r.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

func (r *SessionRepository) ListOpen(ctx context.Context) ([]model.Session, error) {
	var list []model.Session
	err := r.DB.WithContext(ctx).
		Where("status = ?", model.SessionOpen).
		Order("scheduled_time ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *SessionRepository) ListByGame(ctx context.Context, gameID uint64) ([]model.Session, error) {
	var list []model.Session
	err := r.DB.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *SessionRepository) ListByHost(ctx context.Context, hostID uint64) ([]model.Session, error) {
	var list []model.Session
	err := r.DB.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// UpdateVersioned 读-改-写，写入时校验 version；被并发修改则返回 ErrVersionConflict
func (r *SessionRepository) UpdateVersioned(ctx context.Context, id, actorID uint64, event string, mutate SessionMutation) (*model.Session, error) {
	var s model.Session
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, id).Error; err != nil {
			return err
		}
		expected := s.Version
		if err := mutate(&s); err != nil {
			return err
		}
		if err := updateIfVersion(tx, &s, expected); err != nil {
			return err
		}
		if event == "" {
			return nil
		}
		return insertOutbox(tx, event, s.ID, actorID, map[string]any{
			"players": len(s.CurrentPlayers),
			"status":  s.Status,
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func updateIfVersion(tx *gorm.DB, s *model.Session, expected uint64) error {
	now := time.Now()
	res := tx.Model(&model.Session{}).
		Where("id = ? AND version = ?", s.ID, expected).
		Updates(map[string]any{
			"title":           s.Title,
			"description":     s.Description,
			"max_players":     s.MaxPlayers,
			"scheduled_time":  s.ScheduledTime,
			"current_players": s.CurrentPlayers,
			"status":          s.Status,
			"version":         expected + 1,
			"updated_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	s.Version = expected + 1
	s.UpdatedAt = now
	return nil
}

// CloseWithPermission 主持人或特权用户关闭会话
func (r *SessionRepository) CloseWithPermission(ctx context.Context, id, operatorID uint64, privileged bool) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&model.Session{}).Where("id = ?", id)
		if !privileged {
			q = q.Where("host_id = ?", operatorID)
		}
		res := q.Updates(map[string]any{
			"status":     model.SessionClosed,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		return insertOutbox(tx, model.EventSessionClosed, id, operatorID, nil)
	})
	return affected, err
}

func (r *SessionRepository) DeleteWithPermission(ctx context.Context, id, operatorID uint64, privileged bool) (int64, error) {
	var affected int64
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("id = ?", id)
		if !privileged {
			q = q.Where("host_id = ?", operatorID)
		}
		res := q.Delete(&model.Session{})
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		if affected == 0 {
			return nil
		}
		return insertOutbox(tx, model.EventSessionDeleted, id, operatorID, nil)
	})
	return affected, err
}
