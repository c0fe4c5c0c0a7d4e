package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Station is a point-of-sale terminal. The prepared card slot holds at most one
// card waiting to be claimed by a customer device.
type Station struct {
	ID                       string     `gorm:"primaryKey;size:36" json:"id"`
	BusinessID               string     `gorm:"size:36;not null;index" json:"business_id"`
	Name                     string     `gorm:"size:50;not null" json:"name"`
	APIToken                 string     `gorm:"uniqueIndex;size:64;not null" json:"api_token"`
	PublicSlug               string     `gorm:"uniqueIndex;size:80;not null" json:"public_slug"`
	PreparedLoyaltyCardToken *string    `gorm:"size:36;index" json:"prepared_loyalty_card_token"`
	PreparedAt               *time.Time `json:"prepared_at"`
	CreatedAt                time.Time  `json:"created_at"`

	Business            *Business    `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"-"`
	PreparedLoyaltyCard *LoyaltyCard `gorm:"foreignKey:PreparedLoyaltyCardToken;references:Token;constraint:OnDelete:SET NULL" json:"-"`
}

func (Station) TableName() string {
	return "stations"
}

func (s *Station) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s *Station) HasPreparedPass() bool {
	return s.PreparedLoyaltyCardToken != nil && *s.PreparedLoyaltyCardToken != ""
}
