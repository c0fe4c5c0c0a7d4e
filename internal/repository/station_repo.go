package repository

import (
	"context"
	"time"

	"loyalty/internal/models"

	"gorm.io/gorm"
)

type StationRepository struct {
	db *gorm.DB
}

func NewStationRepository(db *gorm.DB) *StationRepository {
	return &StationRepository{db: db}
}

func (r *StationRepository) Create(ctx context.Context, s *models.Station) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *StationRepository) GetByID(ctx context.Context, id string) (*models.Station, error) {
	var s models.Station
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StationRepository) GetByAPIToken(ctx context.Context, token string) (*models.Station, error) {
	var s models.Station
	if err := r.db.WithContext(ctx).Where("api_token = ?", token).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StationRepository) ListByBusiness(ctx context.Context, businessID string) ([]models.Station, error) {
	var list []models.Station
	err := r.db.WithContext(ctx).
		Preload("PreparedLoyaltyCard").
		Preload("PreparedLoyaltyCard.BusinessCustomer").
		Preload("PreparedLoyaltyCard.BusinessCustomer.Customer").
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&list).Error
	return list, err
}

func (r *StationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Station{}).Where("public_slug = ?", slug).Count(&n).Error
	return n > 0, err
}

// Prepare points the station slot at cardToken, replacing any previous card.
func (r *StationRepository) Prepare(ctx context.Context, s *models.Station, cardToken string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(s).Updates(map[string]interface{}{
		"prepared_loyalty_card_token": cardToken,
		"prepared_at":                 at,
	}).Error
	if err != nil {
		return err
	}
	s.PreparedLoyaltyCardToken = &cardToken
	s.PreparedAt = &at
	return nil
}

// ClearPrepared empties the slot only if it still holds cardToken, so a pass
// prepared after the claim began is not lost.
func (r *StationRepository) ClearPrepared(ctx context.Context, stationID, cardToken string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Station{}).
		Where("id = ? AND prepared_loyalty_card_token = ?", stationID, cardToken).
		Updates(map[string]interface{}{
			"prepared_loyalty_card_token": nil,
			"prepared_at":                 nil,
		})
	return res.RowsAffected > 0, res.Error
}
