package model

import "time"

const (
	EventSessionJoined  = "session.joined"
	EventSessionLeft    = "session.left"
	EventSessionClosed  = "session.closed"
	EventSessionDeleted = "session.deleted"
	EventReviewCreated  = "review.created"
	EventReviewDeleted  = "review.deleted"
	EventGameDeleted    = "game.deleted"
)

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

// EventOutbox 领域事件表，和业务写入同一个事务
type EventOutbox struct {
	ID          uint64 `gorm:"primaryKey"`
	EventType   string `gorm:"size:32;not null"`
	AggregateID uint64 `gorm:"not null;index"`
	ActorID     uint64 `gorm:"not null"`
	Payload     string `gorm:"type:text;not null"`
	Status      int8   `gorm:"not null;default:0;index"`
	Retry       int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EventOutbox) TableName() string { return "event_outbox" }
