package models

import "time"

// PassRegistration subscribes one device to push updates for one card's pass.
// UpdatedAt is bumped on every push attempt for the card.
type PassRegistration struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	LoyaltyCardToken        string    `gorm:"size:36;not null;uniqueIndex:idx_pass_registration" json:"loyalty_card_token"`
	DeviceLibraryIdentifier string    `gorm:"size:64;not null;uniqueIndex:idx_pass_registration;index" json:"device_library_identifier"`
	PassTypeIdentifier      string    `gorm:"size:128;not null;uniqueIndex:idx_pass_registration" json:"pass_type_identifier"`
	PushToken               string    `gorm:"size:256;not null" json:"push_token"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `gorm:"index" json:"updated_at"`

	LoyaltyCard *LoyaltyCard `gorm:"foreignKey:LoyaltyCardToken;references:Token;constraint:OnDelete:CASCADE" json:"-"`
}

func (PassRegistration) TableName() string {
	return "pass_registrations"
}
