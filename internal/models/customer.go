package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a person shared across businesses, keyed by normalised phone.
type Customer struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	PhoneNumber string    `gorm:"uniqueIndex;size:20;not null" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Customer) TableName() string {
	return "customers"
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// BusinessCustomer enrolls a Customer at a Business and owns the LoyaltyCard.
type BusinessCustomer struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	BusinessID string    `gorm:"size:36;not null;uniqueIndex:idx_business_customer" json:"business_id"`
	CustomerID string    `gorm:"size:36;not null;uniqueIndex:idx_business_customer;index" json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`

	Business *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"business,omitempty"`
	Customer *Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT" json:"customer,omitempty"`
}

func (BusinessCustomer) TableName() string {
	return "business_customers"
}

func (bc *BusinessCustomer) BeforeCreate(tx *gorm.DB) error {
	if bc.ID == "" {
		bc.ID = uuid.NewString()
	}
	return nil
}
