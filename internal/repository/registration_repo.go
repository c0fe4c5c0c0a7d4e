package repository

import (
	"context"
	"errors"
	"time"

	"loyalty/internal/models"

	"gorm.io/gorm"
)

type RegistrationRepository struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Upsert creates the registration or refreshes its push token. created reports
// whether a new row was inserted.
func (r *RegistrationRepository) Upsert(ctx context.Context, cardToken, deviceID, passType, pushToken string) (bool, error) {
	db := r.db.WithContext(ctx)
	key := "loyalty_card_token = ? AND device_library_identifier = ? AND pass_type_identifier = ?"

	var reg models.PassRegistration
	err := db.Where(key, cardToken, deviceID, passType).First(&reg).Error
	switch {
	case err == nil:
		return false, db.Model(&reg).Update("push_token", pushToken).Error
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	reg = models.PassRegistration{
		LoyaltyCardToken:        cardToken,
		DeviceLibraryIdentifier: deviceID,
		PassTypeIdentifier:      passType,
		PushToken:               pushToken,
	}
	if err := insert(db, &reg); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, err
		}
		// lost the insert race; the other request's row wins, ours refreshes it
		return false, db.Model(&models.PassRegistration{}).Where(key, cardToken, deviceID, passType).
			Update("push_token", pushToken).Error
	}
	return true, nil
}

func (r *RegistrationRepository) Delete(ctx context.Context, cardToken, deviceID, passType string) error {
	return r.db.WithContext(ctx).
		Where("loyalty_card_token = ? AND device_library_identifier = ? AND pass_type_identifier = ?", cardToken, deviceID, passType).
		Delete(&models.PassRegistration{}).Error
}

// ListByDevice returns the device's registrations with their cards loaded.
func (r *RegistrationRepository) ListByDevice(ctx context.Context, deviceID, passType string) ([]models.PassRegistration, error) {
	var list []models.PassRegistration
	err := r.db.WithContext(ctx).
		Preload("LoyaltyCard").
		Where("device_library_identifier = ? AND pass_type_identifier = ?", deviceID, passType).
		Find(&list).Error
	return list, err
}

func (r *RegistrationRepository) ListByCard(ctx context.Context, cardToken string) ([]models.PassRegistration, error) {
	var list []models.PassRegistration
	err := r.db.WithContext(ctx).Where("loyalty_card_token = ?", cardToken).Find(&list).Error
	return list, err
}

func (r *RegistrationRepository) TouchByCard(ctx context.Context, cardToken string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PassRegistration{}).
		Where("loyalty_card_token = ?", cardToken).
		Update("updated_at", at).Error
}
