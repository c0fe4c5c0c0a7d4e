package models

import (
	"time"

	"loyalty/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LoyaltyCard is the points account for one enrollment. Token doubles as the
// wallet serial number and the QR payload.
type LoyaltyCard struct {
	Token              string    `gorm:"primaryKey;size:36" json:"token"`
	BusinessCustomerID string    `gorm:"uniqueIndex;size:36;not null" json:"business_customer_id"`
	PointsBalance      uint      `gorm:"not null;default:0" json:"points_balance"`
	WalletStatus       string    `gorm:"size:20;not null;default:'active'" json:"wallet_status"`
	ApplePassID        *string   `gorm:"size:128" json:"apple_pass_id"`
	GooglePassID       *string   `gorm:"size:128" json:"google_pass_id"`
	ApplePushToken     *string   `gorm:"size:256" json:"apple_push_token"`
	AppleAuthToken     *string   `gorm:"uniqueIndex;size:64" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	BusinessCustomer *BusinessCustomer `gorm:"foreignKey:BusinessCustomerID;constraint:OnDelete:CASCADE" json:"business_customer,omitempty"`
}

func (LoyaltyCard) TableName() string {
	return "loyalty_cards"
}

func (c *LoyaltyCard) BeforeCreate(tx *gorm.DB) error {
	if c.Token == "" {
		c.Token = uuid.NewString()
	}
	if c.WalletStatus == "" {
		c.WalletStatus = domain.WalletStatusActive
	}
	return nil
}

// AuthToken returns the wallet web-service secret or "" when not generated yet.
func (c *LoyaltyCard) AuthToken() string {
	if c.AppleAuthToken == nil {
		return ""
	}
	return *c.AppleAuthToken
}

// BusinessID is only valid when BusinessCustomer has been preloaded.
func (c *LoyaltyCard) BusinessID() string {
	if c.BusinessCustomer == nil {
		return ""
	}
	return c.BusinessCustomer.BusinessID
}
