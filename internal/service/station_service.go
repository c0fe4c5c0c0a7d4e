package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"loyalty/internal/domain"
	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/internal/ws"
	"loyalty/pkg/errutil"
	"loyalty/pkg/phone"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrStationNotFound = errors.New("station not found")
	ErrStationToken    = errors.New("invalid station token")
	ErrNoPreparedPass  = errors.New("no pass prepared")
)

// IssueResult is everything the point of sale shows after preparing a pass.
type IssueResult struct {
	Customer         *models.Customer
	Enrollment       *models.BusinessCustomer
	Card             *models.LoyaltyCard
	Station          *models.Station
	PreparedPassURL  string
	AppleDownloadURL string
	GoogleClaimURL   string
}

// ClaimResult carries either a pkpass bundle (Apple) or the card token.
type ClaimResult struct {
	Card    *models.LoyaltyCard
	PKPass  []byte
	Cleared bool
}

type StationService struct {
	db           *gorm.DB
	stationRepo  *repository.StationRepository
	customerRepo *repository.CustomerRepository
	cardRepo     *repository.CardRepository
	passes       *PassService
	events       EventPublisher
	baseURL      string
	log          *zap.Logger
	now          func() time.Time
}

func NewStationService(
	db *gorm.DB,
	stationRepo *repository.StationRepository,
	customerRepo *repository.CustomerRepository,
	cardRepo *repository.CardRepository,
	passes *PassService,
	events EventPublisher,
	publicBaseURL string,
	log *zap.Logger,
) *StationService {
	return &StationService{
		db:           db,
		stationRepo:  stationRepo,
		customerRepo: customerRepo,
		cardRepo:     cardRepo,
		passes:       passes,
		events:       events,
		baseURL:      strings.TrimRight(publicBaseURL, "/"),
		log:          log,
		now:          time.Now,
	}
}

// ResolveByToken authenticates a point-of-sale terminal by its API token.
func (s *StationService) ResolveByToken(ctx context.Context, token string) (*models.Station, error) {
	if token == "" {
		return nil, ErrStationToken
	}
	st, err := s.stationRepo.GetByAPIToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationToken
		}
		return nil, err
	}
	return st, nil
}

func (s *StationService) List(ctx context.Context, businessID string) ([]models.Station, error) {
	return s.stationRepo.ListByBusiness(ctx, businessID)
}

// Create registers a terminal with a fresh API token and a unique public slug.
func (s *StationService) Create(ctx context.Context, businessID, name string) (*models.Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errutil.Validation(map[string]string{"name": "This field may not be blank."})
	}
	if len(name) > 50 {
		return nil, errutil.Validation(map[string]string{"name": "Ensure this field has no more than 50 characters."})
	}
	token, err := newAPIToken()
	if err != nil {
		return nil, err
	}
	publicSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}
	st := &models.Station{
		BusinessID: businessID,
		Name:       name,
		APIToken:   token,
		PublicSlug: publicSlug,
	}
	if err := s.stationRepo.Create(ctx, st); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errutil.Conflict("station slug already in use, retry", errutil.WithErr(err))
		}
		return nil, err
	}
	return st, nil
}

func (s *StationService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "station"
	}
	if len(base) > 70 {
		base = strings.Trim(base[:70], "-")
	}
	candidate := base
	for i := 1; ; i++ {
		exists, err := s.stationRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func newAPIToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Issue enrolls the customer identified by phone (creating whatever is
// missing) and parks their card in the station's prepared slot.
func (s *StationService) Issue(ctx context.Context, station *models.Station, name, rawPhone string) (*IssueResult, error) {
	normalized := phone.Normalize(rawPhone)
	if normalized == "" {
		return nil, errutil.Validation(map[string]string{"phone_number": "Enter a valid phone number."})
	}
	name = strings.TrimSpace(name)

	res := &IssueResult{Station: station}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers := s.customerRepo.WithTx(tx)
		cust, created, err := customers.FindOrCreateByPhone(ctx, normalized, name)
		if err != nil {
			return err
		}
		if !created && name != "" && cust.Name != name {
			if err := customers.Rename(ctx, cust, name); err != nil {
				return err
			}
		}
		enrollment, _, err := customers.FindOrCreateEnrollment(ctx, station.BusinessID, cust.ID)
		if err != nil {
			return err
		}
		card, _, err := s.cardRepo.WithTx(tx).FindOrCreateForEnrollment(ctx, enrollment.ID)
		if err != nil {
			return err
		}
		res.Customer, res.Enrollment, res.Card = cust, enrollment, card
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.passes.EnsureAuthToken(ctx, res.Card); err != nil {
		return nil, err
	}
	if err := s.stationRepo.Prepare(ctx, station, res.Card.Token, s.now().UTC()); err != nil {
		return nil, err
	}

	res.PreparedPassURL = s.PreparedPassURL(station)
	res.AppleDownloadURL = res.PreparedPassURL + "&platform=" + domain.PlatformApple
	res.GoogleClaimURL = res.PreparedPassURL + "&platform=" + domain.PlatformGoogle

	s.publish(station, domain.EventPassPrepared, map[string]string{
		"customer": res.Customer.Name,
		"token":    res.Card.Token,
	})
	return res, nil
}

func (s *StationService) PreparedPassURL(station *models.Station) string {
	return fmt.Sprintf("%s/api/stations/%s/prepared-pass/?token=%s",
		s.baseURL, url.PathEscape(station.ID), url.QueryEscape(station.APIToken))
}

// Claim hands the prepared card to the customer's device. The slot is only
// cleared if it still holds the card being claimed.
func (s *StationService) Claim(ctx context.Context, stationID, token, platform string, clear bool) (*ClaimResult, error) {
	st, err := s.stationRepo.GetByID(ctx, stationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(st.APIToken)) != 1 {
		return nil, ErrStationToken
	}
	if !st.HasPreparedPass() {
		return nil, ErrNoPreparedPass
	}
	card, err := s.cardRepo.GetByToken(ctx, *st.PreparedLoyaltyCardToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPreparedPass
		}
		return nil, err
	}

	res := &ClaimResult{Card: card}
	if strings.EqualFold(platform, domain.PlatformApple) {
		pkg, err := s.passes.Build(ctx, card)
		if err != nil {
			return nil, err
		}
		res.PKPass = pkg.Data
	}

	if clear {
		cleared, err := s.stationRepo.ClearPrepared(ctx, st.ID, card.Token)
		if err != nil {
			return nil, err
		}
		res.Cleared = cleared
	}
	s.publish(st, domain.EventPassClaimed, map[string]string{"token": card.Token, "platform": strings.ToLower(platform)})
	return res, nil
}

func (s *StationService) publish(st *models.Station, kind string, data interface{}) {
	if s.events == nil {
		return
	}
	s.events.Publish(st.BusinessID, ws.Event{Type: kind, StationID: st.ID, Data: data})
}
