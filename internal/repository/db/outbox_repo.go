package db

import (
	"context"
	"encoding/json"
	"time"

	"GameHub/internal/model"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	DB *gorm.DB
}

// insertOutbox 必须使用业务事务的 tx
func insertOutbox(tx *gorm.DB, event string, aggregateID, actorID uint64, extra map[string]any) error {
	body := map[string]any{
		"event":      event,
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"id":         aggregateID,
		"actor":      actorID,
	}
	for k, v := range extra {
		body[k] = v
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tx.Create(&model.EventOutbox{
		EventType:   event,
		AggregateID: aggregateID,
		ActorID:     actorID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}).Error
}

// ListPending 按 id 顺序取待投递事件
func (r *OutboxRepository) ListPending(ctx context.Context, batchSize int) ([]model.EventOutbox, error) {
	var list []model.EventOutbox
	if err := r.DB.WithContext(ctx).
		Where("status = ?", model.OutboxPending).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EventOutbox{}).Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.EventOutbox{}).Where("id = ?", id).
		Update("status", model.OutboxSent).Error
}

// RequeueFailed 失败事件重新排队，超过 maxRetry 的留在失败状态
func (r *OutboxRepository) RequeueFailed(ctx context.Context, maxRetry int) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.EventOutbox{}).
		Where("status = ? AND retry < ?", model.OutboxFailed, maxRetry).
		Update("status", model.OutboxPending)
	return tx.RowsAffected, tx.Error
}
