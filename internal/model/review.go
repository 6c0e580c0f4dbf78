package model

import (
	"math"
	"time"
)

type Review struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	GameID    uint64    `gorm:"not null;index;uniqueIndex:uk_game_user" json:"game_id"`
	UserID    uint64    `gorm:"not null;index;uniqueIndex:uk_game_user" json:"user_id"`
	UserEmail string    `gorm:"size:64" json:"user_email"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// RoundRating 保留一位小数
func RoundRating(sum, count int64) float64 {
	if count <= 0 {
		return 0
	}
	avg := float64(sum) / float64(count)
	return math.Round(avg*10) / 10
}
