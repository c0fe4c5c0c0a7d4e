package repository

import (
	"context"

	"loyalty/internal/models"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// ListByBusiness returns the most recent transactions recorded at the business's stations.
func (r *TransactionRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.WithContext(ctx).
		Joins("JOIN stations ON stations.id = transactions.station_id").
		Where("stations.business_id = ?", businessID).
		Order("transactions.created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *TransactionRepository) ListByCard(ctx context.Context, cardToken string) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.WithContext(ctx).Where("loyalty_card_token = ?", cardToken).Order("created_at ASC").Find(&list).Error
	return list, err
}
