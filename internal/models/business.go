package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Business is the tenant root. Rate changes only affect future settlements.
type Business struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	Name             string          `gorm:"uniqueIndex;size:100;not null" json:"name"`
	RewardRate       decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"reward_rate"`
	RedemptionPoints uint            `gorm:"not null" json:"redemption_points"`
	RedemptionRate   decimal.Decimal `gorm:"type:decimal(3,2);not null" json:"redemption_rate"`
	LogoURL          string          `gorm:"size:512" json:"logo_url"`
	PrimaryColor     string          `gorm:"size:7;not null;default:'#000000'" json:"primary_color"`
	BackgroundColor  string          `gorm:"size:7;not null;default:'#FFFFFF'" json:"background_color"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Business) TableName() string {
	return "businesses"
}

func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
