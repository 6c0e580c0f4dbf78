package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"uniqueIndex;size:64;not null" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	DisplayName string    `gorm:"size:64" json:"display_name"`
	PhotoURL    string    `gorm:"size:512" json:"photo_url"`
	Role        Role      `gorm:"size:16;not null;default:'user'" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
