package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BusinessUser is the staff account that owns a Business.
type BusinessUser struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	BusinessID     string    `gorm:"uniqueIndex;size:36;not null" json:"business_id"`
	Username       string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email          string    `gorm:"size:255;index" json:"email"`
	FirstName      string    `gorm:"size:150" json:"first_name"`
	LastName       string    `gorm:"size:150" json:"last_name"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	// SessionVersion invalidates issued session tokens when bumped (logout, password change).
	SessionVersion int       `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Business *Business `gorm:"foreignKey:BusinessID;constraint:OnDelete:CASCADE" json:"business,omitempty"`
}

func (BusinessUser) TableName() string {
	return "business_users"
}

func (u *BusinessUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName falls back to the username when no real name is set.
func (u *BusinessUser) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}
