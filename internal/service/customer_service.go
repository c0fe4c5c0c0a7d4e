package service

import (
	"context"
	"errors"
	"strings"

	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/pkg/errutil"
	"loyalty/pkg/phone"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CustomerService manages enrollments and the card listings of a business.
type CustomerService struct {
	db           *gorm.DB
	customerRepo *repository.CustomerRepository
	cardRepo     *repository.CardRepository
	txnRepo      *repository.TransactionRepository
	log          *zap.Logger
}

func NewCustomerService(db *gorm.DB, customerRepo *repository.CustomerRepository, cardRepo *repository.CardRepository, txnRepo *repository.TransactionRepository, log *zap.Logger) *CustomerService {
	return &CustomerService{db: db, customerRepo: customerRepo, cardRepo: cardRepo, txnRepo: txnRepo, log: log}
}

func (s *CustomerService) ListEnrollments(ctx context.Context, businessID string) ([]models.BusinessCustomer, error) {
	return s.customerRepo.ListEnrollments(ctx, businessID)
}

// Enroll adds a customer to the business without preparing a pass.
func (s *CustomerService) Enroll(ctx context.Context, businessID, name, rawPhone string) (*models.BusinessCustomer, error) {
	normalized := phone.Normalize(rawPhone)
	fields := map[string]string{}
	if normalized == "" {
		fields["phone_number"] = "Enter a valid phone number."
	}
	name = strings.TrimSpace(name)
	if name == "" {
		fields["customer_name"] = "This field may not be blank."
	}
	if len(fields) > 0 {
		return nil, errutil.Validation(fields)
	}

	var enrollment *models.BusinessCustomer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers := s.customerRepo.WithTx(tx)
		cust, _, err := customers.FindOrCreateByPhone(ctx, normalized, name)
		if err != nil {
			return err
		}
		enrollment, _, err = customers.FindOrCreateEnrollment(ctx, businessID, cust.ID)
		if err != nil {
			return err
		}
		if _, _, err := s.cardRepo.WithTx(tx).FindOrCreateForEnrollment(ctx, enrollment.ID); err != nil {
			return err
		}
		enrollment.Customer = cust
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Unenroll removes the enrollment and prunes the customer once no business
// references them.
func (s *CustomerService) Unenroll(ctx context.Context, businessID, enrollmentID string) error {
	bc, err := s.customerRepo.GetEnrollment(ctx, businessID, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errutil.NotFound("Not found.")
		}
		return err
	}
	pruned, err := s.customerRepo.DeleteEnrollment(ctx, bc)
	if err != nil {
		return err
	}
	if pruned {
		s.log.Info("customer pruned", zap.String("customer", bc.CustomerID))
	}
	return nil
}

func (s *CustomerService) ListCards(ctx context.Context, businessID string) ([]models.LoyaltyCard, error) {
	return s.cardRepo.ListByBusiness(ctx, businessID)
}

// QRPayload returns what the card's barcode encodes; cards of other
// businesses are reported as missing.
func (s *CustomerService) QRPayload(ctx context.Context, businessID, token string) (string, error) {
	card, err := s.cardRepo.GetInBusiness(ctx, businessID, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errutil.NotFound("Not found.")
		}
		return "", err
	}
	return card.Token, nil
}

func (s *CustomerService) RecentTransactions(ctx context.Context, businessID string, limit int) ([]models.Transaction, error) {
	return s.txnRepo.ListByBusiness(ctx, businessID, limit)
}
