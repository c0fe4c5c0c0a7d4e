package service

import (
	"context"
	"strconv"
	"time"

	"loyalty/internal/metrics"
	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/pkg/passkit"
)

// PassService owns the wallet artifacts of a card.
type PassService struct {
	cardRepo *repository.CardRepository
	builder  *passkit.Builder
	secret   string
	now      func() time.Time
}

func NewPassService(cardRepo *repository.CardRepository, builder *passkit.Builder, authTokenSecret string) *PassService {
	return &PassService{cardRepo: cardRepo, builder: builder, secret: authTokenSecret, now: time.Now}
}

func (s *PassService) PassTypeIdentifier() string {
	return s.builder.PassTypeIdentifier()
}

// EnsureAuthToken generates the card's wallet secret once. Concurrent callers
// all end up with the value that won the conditional update.
func (s *PassService) EnsureAuthToken(ctx context.Context, card *models.LoyaltyCard) (string, error) {
	if tok := card.AuthToken(); tok != "" {
		return tok, nil
	}
	candidate := passkit.GenerateAuthToken(s.secret, card.Token, s.now())
	stored, err := s.cardRepo.SetAuthTokenIfEmpty(ctx, card.Token, candidate)
	if err != nil {
		return "", err
	}
	card.AppleAuthToken = &stored
	return stored, nil
}

// Build renders the card's current state. card must have its enrollment,
// business and customer loaded.
func (s *PassService) Build(ctx context.Context, card *models.LoyaltyCard) (*passkit.Package, error) {
	authToken, err := s.EnsureAuthToken(ctx, card)
	if err != nil {
		return nil, err
	}
	view := passkit.Card{
		SerialNumber:        card.Token,
		AuthenticationToken: authToken,
		PointsBalance:       card.PointsBalance,
	}
	if bc := card.BusinessCustomer; bc != nil {
		if biz := bc.Business; biz != nil {
			view.BusinessName = biz.Name
			view.PrimaryColor = biz.PrimaryColor
			view.BackgroundColor = biz.BackgroundColor
			view.RewardRate = biz.RewardRate
			view.RedemptionPoints = biz.RedemptionPoints
			view.RedemptionRate = biz.RedemptionRate
		}
		if cust := bc.Customer; cust != nil {
			view.CustomerName = cust.Name
			view.CustomerPhone = cust.PhoneNumber
		}
	}

	pkg, err := s.builder.Build(ctx, view)
	if err != nil {
		return nil, err
	}
	metrics.PassBuilds.WithLabelValues(strconv.FormatBool(pkg.Signed)).Inc()
	return pkg, nil
}
