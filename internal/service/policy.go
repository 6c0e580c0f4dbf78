package service

import (
	"slices"

	"GameHub/internal/model"
)

// Identity 一次请求的调用者，由 middleware 解析后显式传入 service
type Identity struct {
	UserID      uint64     `json:"user_id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        model.Role `json:"role"`
	// Fallback 表示资料读取失败，使用的是未落库的默认身份
	Fallback bool `json:"fallback"`
}

func (i Identity) HasRole(roles ...model.Role) bool {
	return slices.Contains(roles, i.Role)
}

func (i Identity) IsAdmin() bool {
	return i.Role == model.RoleAdmin
}

// IsStaff 版主或管理员
func (i Identity) IsStaff() bool {
	return i.HasRole(model.RoleModerator, model.RoleAdmin)
}

func pageBounds(page, size int) (offset, limit int) {
	if size <= 0 {
		return 0, 0
	}
	if size > 100 {
		size = 100
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * size, size
}
