package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"loyalty/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateBusiness inserts a business with the given program settings.
func CreateBusiness(t *testing.T, db *gorm.DB, name, rewardRate string, redemptionPoints uint, redemptionRate string) *models.Business {
	t.Helper()
	b := &models.Business{
		Name:             name,
		RewardRate:       decimal.RequireFromString(rewardRate),
		RedemptionPoints: redemptionPoints,
		RedemptionRate:   decimal.RequireFromString(redemptionRate),
		LogoURL:          "https://example.com/logo.png",
		PrimaryColor:     "#111111",
		BackgroundColor:  "#EEEEEE",
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("create business: %v", err)
	}
	return b
}

// CreateStation inserts a station with a random API token.
func CreateStation(t *testing.T, db *gorm.DB, business *models.Business, name string) *models.Station {
	t.Helper()
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("token: %v", err)
	}
	s := &models.Station{
		BusinessID: business.ID,
		Name:       name,
		APIToken:   hex.EncodeToString(buf),
		PublicSlug: name + "-" + uuid.NewString()[:8],
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}
	return s
}

// CreateCard enrolls a fresh customer at business and gives them a card
// holding balance points. The card is returned with its enrollment preloaded.
func CreateCard(t *testing.T, db *gorm.DB, business *models.Business, name, phone string, balance uint) *models.LoyaltyCard {
	t.Helper()
	customer := &models.Customer{Name: name, PhoneNumber: phone}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer: %v", err)
	}
	bc := &models.BusinessCustomer{BusinessID: business.ID, CustomerID: customer.ID}
	if err := db.Create(bc).Error; err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	card := &models.LoyaltyCard{BusinessCustomerID: bc.ID, PointsBalance: balance}
	if err := db.Create(card).Error; err != nil {
		t.Fatalf("create card: %v", err)
	}
	bc.Business = business
	bc.Customer = customer
	card.BusinessCustomer = bc
	return card
}
