package model

import (
	"time"

	"gorm.io/datatypes"
)

type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionFull   SessionStatus = "full"
	SessionClosed SessionStatus = "closed"
)

const (
	MinSessionPlayers = 2
	MaxSessionPlayers = 100
)

// Session 组队游戏会话，与登录态无关
type Session struct {
	ID             uint64                      `gorm:"primaryKey" json:"id"`
	GameID         uint64                      `gorm:"not null;index" json:"game_id"`
	GameTitle      string                      `gorm:"size:200" json:"game_title"`
	HostID         uint64                      `gorm:"not null;index" json:"host_id"`
	HostEmail      string                      `gorm:"size:64" json:"host_email"`
	Title          string                      `gorm:"size:200;not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	MaxPlayers     int                         `gorm:"not null" json:"max_players"`
	CurrentPlayers datatypes.JSONSlice[uint64] `json:"current_players"`
	ScheduledTime  time.Time                   `gorm:"index" json:"scheduled_time"`
	Status         SessionStatus               `gorm:"size:16;not null;index" json:"status"`
	Version        uint64                      `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (s *Session) HasPlayer(userID uint64) bool {
	for _, id := range s.CurrentPlayers {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Session) IsFull() bool {
	return len(s.CurrentPlayers) >= s.MaxPlayers
}
