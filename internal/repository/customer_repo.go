package repository

import (
	"context"
	"errors"

	"loyalty/internal/models"

	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) WithTx(tx *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: tx}
}

// FindOrCreateByPhone returns the customer owning phone, creating it with name
// when absent. A concurrent insert of the same phone is resolved by re-reading.
func (r *CustomerRepository) FindOrCreateByPhone(ctx context.Context, phone, name string) (*models.Customer, bool, error) {
	db := r.db.WithContext(ctx)
	var c models.Customer
	err := db.Where("phone_number = ?", phone).First(&c).Error
	if err == nil {
		return &c, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	c = models.Customer{Name: name, PhoneNumber: phone}
	if err := insert(db, &c); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}
		if err := db.Where("phone_number = ?", phone).First(&c).Error; err != nil {
			return nil, false, err
		}
		return &c, false, nil
	}
	return &c, true, nil
}

func (r *CustomerRepository) Rename(ctx context.Context, c *models.Customer, name string) error {
	if err := r.db.WithContext(ctx).Model(c).Update("name", name).Error; err != nil {
		return err
	}
	c.Name = name
	return nil
}

func (r *CustomerRepository) FindOrCreateEnrollment(ctx context.Context, businessID, customerID string) (*models.BusinessCustomer, bool, error) {
	db := r.db.WithContext(ctx)
	var bc models.BusinessCustomer
	err := db.Where("business_id = ? AND customer_id = ?", businessID, customerID).First(&bc).Error
	if err == nil {
		return &bc, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	bc = models.BusinessCustomer{BusinessID: businessID, CustomerID: customerID}
	if err := insert(db, &bc); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, err
		}
		if err := db.Where("business_id = ? AND customer_id = ?", businessID, customerID).First(&bc).Error; err != nil {
			return nil, false, err
		}
		return &bc, false, nil
	}
	return &bc, true, nil
}

func (r *CustomerRepository) GetEnrollment(ctx context.Context, businessID, id string) (*models.BusinessCustomer, error) {
	var bc models.BusinessCustomer
	err := r.db.WithContext(ctx).Preload("Customer").
		Where("id = ? AND business_id = ?", id, businessID).First(&bc).Error
	if err != nil {
		return nil, err
	}
	return &bc, nil
}

func (r *CustomerRepository) ListEnrollments(ctx context.Context, businessID string) ([]models.BusinessCustomer, error) {
	var list []models.BusinessCustomer
	err := r.db.WithContext(ctx).Preload("Customer").
		Where("business_id = ?", businessID).Order("created_at DESC").Find(&list).Error
	return list, err
}

// DeleteEnrollment removes the enrollment with its card history, then deletes
// the customer if no other business still references them.
func (r *CustomerRepository) DeleteEnrollment(ctx context.Context, bc *models.BusinessCustomer) (pruned bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tokens []string
		if err := tx.Model(&models.LoyaltyCard{}).Where("business_customer_id = ?", bc.ID).Pluck("token", &tokens).Error; err != nil {
			return err
		}
		if len(tokens) > 0 {
			if err := tx.Model(&models.Station{}).Where("prepared_loyalty_card_token IN ?", tokens).
				Updates(map[string]interface{}{"prepared_loyalty_card_token": nil, "prepared_at": nil}).Error; err != nil {
				return err
			}
			if err := tx.Where("loyalty_card_token IN ?", tokens).Delete(&models.PassRegistration{}).Error; err != nil {
				return err
			}
			if err := tx.Where("loyalty_card_token IN ?", tokens).Delete(&models.Transaction{}).Error; err != nil {
				return err
			}
			if err := tx.Where("token IN ?", tokens).Delete(&models.LoyaltyCard{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(bc).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&models.BusinessCustomer{}).Where("customer_id = ?", bc.CustomerID).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			if err := tx.Where("id = ?", bc.CustomerID).Delete(&models.Customer{}).Error; err != nil {
				return err
			}
			pruned = true
		}
		return nil
	})
	return pruned, err
}
