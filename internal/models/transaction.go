package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is the immutable record of one settlement. LoyaltyCardToken is
// nil for guest checkouts.
type Transaction struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	LoyaltyCardToken *string   `gorm:"size:36;index" json:"loyalty_card_id"`
	StationID        string    `gorm:"size:36;not null;index" json:"station_id"`
	Amount           Money     `gorm:"type:decimal(10,2);not null" json:"amount"`
	FinalAmount      Money     `gorm:"type:decimal(10,2);not null" json:"final_amount"`
	PointsEarned     uint      `gorm:"not null;default:0" json:"points_earned"`
	PointsRedeemed   uint      `gorm:"not null;default:0" json:"points_redeemed"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`

	LoyaltyCard *LoyaltyCard `gorm:"foreignKey:LoyaltyCardToken;references:Token;constraint:OnDelete:CASCADE" json:"-"`
	Station     *Station     `gorm:"foreignKey:StationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
