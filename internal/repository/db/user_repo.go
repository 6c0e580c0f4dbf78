package db

import (
	"context"
	"errors"

	"GameHub/internal/model"

	"gorm.io/gorm"
)

var ErrEmailTaken = errors.New("email already registered")

type UserRepository struct {
	DB *gorm.DB
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	err := r.DB.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]model.User, error) {
	var list []model.User
	err := r.DB.WithContext(ctx).Order("id asc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

// UpdateProfile 只更新传入的字段
func (r *UserRepository) UpdateProfile(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) UpdateRole(ctx context.Context, id uint64, role model.Role) (int64, error) {
	tx := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("role", role)
	return tx.RowsAffected, tx.Error
}

func (r *UserRepository) UpdatePassword(ctx context.Context, user *model.User, newPassword string) error {
	return r.DB.WithContext(ctx).Model(user).Update("password", newPassword).Error
}
