package repository

import (
	"context"

	"loyalty/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(ctx context.Context, u *models.BusinessUser) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.BusinessUser, error) {
	var u models.BusinessUser
	err := r.db.WithContext(ctx).Preload("Business").Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.BusinessUser, error) {
	var u models.BusinessUser
	err := r.db.WithContext(ctx).Preload("Business").Where("username = ?", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail matches case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.BusinessUser, error) {
	var u models.BusinessUser
	err := r.db.WithContext(ctx).Preload("Business").Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.BusinessUser{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

// UpdatePassword stores a new hash and invalidates outstanding sessions.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.db.WithContext(ctx).Model(&models.BusinessUser{}).Where("id = ?", id).Updates(map[string]interface{}{
		"password_hash":   hash,
		"session_version": gorm.Expr("session_version + 1"),
	}).Error
}

func (r *UserRepository) BumpSessionVersion(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&models.BusinessUser{}).Where("id = ?", id).
		Update("session_version", gorm.Expr("session_version + 1")).Error
}
