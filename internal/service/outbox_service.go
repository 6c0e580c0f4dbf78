package service

import (
	"context"
	"log"
	"time"

	"GameHub/internal/model"
	"GameHub/internal/pkg"
	"GameHub/internal/repository/db"

	"gorm.io/gorm"
)

const outboxMaxRetry = 5

type Sender func(ctx context.Context, ob *model.EventOutbox) error

// OutboxRelayer 轮询 outbox 表，把领域事件投递出去
type OutboxRelayer struct {
	repo      *db.OutboxRepository
	batchSize int
	interval  time.Duration
	maxRetry  int
	sender    Sender
}

func NewOutboxRelayer(conn *gorm.DB, sender Sender, interval time.Duration) *OutboxRelayer {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelayer{
		repo:      &db.OutboxRepository{DB: conn},
		batchSize: 200,
		interval:  interval,
		maxRetry:  outboxMaxRetry,
		sender:    sender,
	}
}

func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.drainOnce(ctx)
		}
	}
}

// drainOnce 先把可重试的失败事件放回队列，再按 id 顺序投递一批
func (r *OutboxRelayer) drainOnce(ctx context.Context) int {
	if _, err := r.repo.RequeueFailed(ctx, r.maxRetry); err != nil {
		log.Printf("outbox requeue err: %v", err)
	}
	rows, err := r.repo.ListPending(ctx, r.batchSize)
	if err != nil {
		log.Printf("outbox query err: %v", err)
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			log.Printf("outbox send id=%d type=%s: %v", ob.ID, ob.EventType, err)
			_ = r.repo.MarkFailed(ctx, ob.ID)
			continue
		}
		_ = r.repo.MarkSent(ctx, ob.ID)
		sent++
	}
	return sent
}

// LogSender 未配置 Kafka 时使用
func LogSender(ctx context.Context, ob *model.EventOutbox) error {
	log.Printf("OUTBOX SEND type=%s id=%d actor=%d payload=%s", ob.EventType, ob.AggregateID, ob.ActorID, ob.Payload)
	return nil
}

// KafkaSender 以聚合 id 作为消息 key
func KafkaSender(p *pkg.KafkaProducer) Sender {
	return func(ctx context.Context, ob *model.EventOutbox) error {
		return p.Send(ctx, ob.EventType, pkg.MakeKeyFromID(ob.AggregateID), []byte(ob.Payload))
	}
}
