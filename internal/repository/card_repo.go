package repository

import (
	"context"
	"errors"

	"loyalty/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

func (r *CardRepository) WithTx(tx *gorm.DB) *CardRepository {
	return &CardRepository{db: tx}
}

func (r *CardRepository) withOwner(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("BusinessCustomer").
		Preload("BusinessCustomer.Business").
		Preload("BusinessCustomer.Customer")
}

// GetByToken loads the card with its enrollment, business and customer.
func (r *CardRepository) GetByToken(ctx context.Context, token string) (*models.LoyaltyCard, error) {
	var card models.LoyaltyCard
	if err := r.withOwner(ctx).Where("token = ?", token).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// GetForUpdate reads the card row under an exclusive lock. Must run inside a
// transaction; the lock is released on commit or rollback.
func (r *CardRepository) GetForUpdate(ctx context.Context, token string) (*models.LoyaltyCard, error) {
	var card models.LoyaltyCard
	if err := r.lockByToken(ctx, token).Preload("BusinessCustomer").First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// lockByToken scopes to one card row with SELECT ... FOR UPDATE. SQLite has
// no row locks and its dialect drops the clause.
func (r *CardRepository) lockByToken(ctx context.Context, token string) *gorm.DB {
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("token = ?", token)
}

func (r *CardRepository) UpdateBalance(ctx context.Context, card *models.LoyaltyCard, balance uint) error {
	if err := r.db.WithContext(ctx).Model(card).Update("points_balance", balance).Error; err != nil {
		return err
	}
	card.PointsBalance = balance
	return nil
}

// FindOrCreateForEnrollment returns the single card of an enrollment.
func (r *CardRepository) FindOrCreateForEnrollment(ctx context.Context, businessCustomerID string) (*models.LoyaltyCard, bool, error) {
	db := r.db.WithContext(ctx)
	var card models.LoyaltyCard
	err := db.Where("business_customer_id = ?", businessCustomerID).First(&card).Error
	if err == nil {
		return &card, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	card = models.LoyaltyCard{BusinessCustomerID: businessCustomerID}
	if err := insert(db, &card); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}
		if err := db.Where("business_customer_id = ?", businessCustomerID).First(&card).Error; err != nil {
			return nil, false, err
		}
		return &card, false, nil
	}
	return &card, true, nil
}

// SetAuthTokenIfEmpty stores token only when the card has none yet and returns
// whichever token is persisted afterwards.
func (r *CardRepository) SetAuthTokenIfEmpty(ctx context.Context, cardToken, authToken string) (string, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.LoyaltyCard{}).
		Where("token = ? AND (apple_auth_token IS NULL OR apple_auth_token = '')", cardToken).
		Update("apple_auth_token", authToken).Error
	if err != nil {
		return "", err
	}

	var stored models.LoyaltyCard
	if err := db.Select("token", "apple_auth_token").Where("token = ?", cardToken).First(&stored).Error; err != nil {
		return "", err
	}
	return stored.AuthToken(), nil
}

func (r *CardRepository) ListByBusiness(ctx context.Context, businessID string) ([]models.LoyaltyCard, error) {
	var cards []models.LoyaltyCard
	err := r.db.WithContext(ctx).
		Joins("JOIN business_customers ON business_customers.id = loyalty_cards.business_customer_id").
		Where("business_customers.business_id = ?", businessID).
		Preload("BusinessCustomer").
		Preload("BusinessCustomer.Customer").
		Order("loyalty_cards.created_at DESC").
		Find(&cards).Error
	return cards, err
}

// GetInBusiness scopes a token lookup to one business; cards of other tenants
// are reported as not found.
func (r *CardRepository) GetInBusiness(ctx context.Context, businessID, token string) (*models.LoyaltyCard, error) {
	var card models.LoyaltyCard
	err := r.db.WithContext(ctx).
		Joins("JOIN business_customers ON business_customers.id = loyalty_cards.business_customer_id").
		Where("business_customers.business_id = ? AND loyalty_cards.token = ?", businessID, token).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}
