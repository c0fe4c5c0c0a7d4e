package repository

import (
	"context"

	"loyalty/internal/models"

	"gorm.io/gorm"
)

type BusinessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

func (r *BusinessRepository) WithTx(tx *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: tx}
}

func (r *BusinessRepository) Create(ctx context.Context, b *models.Business) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*models.Business, error) {
	var b models.Business
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BusinessRepository) NameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&models.Business{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *BusinessRepository) Update(ctx context.Context, b *models.Business, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(b).Updates(fields).Error
}
