package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"sort"
	"strings"
	"time"

	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/pkg/errutil"

	"gorm.io/gorm"
)

var (
	ErrUnknownPassType = errors.New("unknown pass type identifier")
	ErrPassAuth        = errors.New("invalid pass authentication")
)

// sinceLayouts are tried in order when parsing passesUpdatedSince.
var sinceLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// RegistrationService implements the wallet web-service device registry.
type RegistrationService struct {
	regRepo  *repository.RegistrationRepository
	cardRepo *repository.CardRepository
	passes   *PassService
	now      func() time.Time
}

func NewRegistrationService(regRepo *repository.RegistrationRepository, cardRepo *repository.CardRepository, passes *PassService) *RegistrationService {
	return &RegistrationService{regRepo: regRepo, cardRepo: cardRepo, passes: passes, now: time.Now}
}

func (s *RegistrationService) RequirePassType(passType string) error {
	if passType != s.passes.PassTypeIdentifier() {
		return ErrUnknownPassType
	}
	return nil
}

// AuthorizeCard loads the card behind serial and checks the ApplePass header
// value against its stored secret.
func (s *RegistrationService) AuthorizeCard(ctx context.Context, serial, authorization string) (*models.LoyaltyCard, error) {
	card, err := s.cardRepo.GetByToken(ctx, serial)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("Not found.")
		}
		return nil, err
	}
	const scheme = "ApplePass "
	if !strings.HasPrefix(authorization, scheme) {
		return nil, ErrPassAuth
	}
	presented := strings.TrimSpace(strings.TrimPrefix(authorization, scheme))
	expected, err := s.passes.EnsureAuthToken(ctx, card)
	if err != nil {
		return nil, err
	}
	if presented == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return nil, ErrPassAuth
	}
	return card, nil
}

func (s *RegistrationService) Register(ctx context.Context, card *models.LoyaltyCard, deviceID, passType, pushToken string) (bool, error) {
	if strings.TrimSpace(pushToken) == "" {
		return false, errutil.BadRequest("pushToken required")
	}
	return s.regRepo.Upsert(ctx, card.Token, deviceID, passType, pushToken)
}

func (s *RegistrationService) Unregister(ctx context.Context, card *models.LoyaltyCard, deviceID, passType string) error {
	return s.regRepo.Delete(ctx, card.Token, deviceID, passType)
}

// ListChangedSerials returns the serials registered on the device whose card
// changed strictly after since, plus the cursor for the next poll.
func (s *RegistrationService) ListChangedSerials(ctx context.Context, deviceID, passType, since string) ([]string, string, error) {
	regs, err := s.regRepo.ListByDevice(ctx, deviceID, passType)
	if err != nil {
		return nil, "", err
	}
	cutoff, hasCutoff := parseSince(since)

	var serials []string
	var latest time.Time
	seen := make(map[string]struct{}, len(regs))
	for _, reg := range regs {
		card := reg.LoyaltyCard
		if card == nil {
			continue
		}
		if _, dup := seen[card.Token]; dup {
			continue
		}
		if hasCutoff && !card.UpdatedAt.After(cutoff) {
			continue
		}
		seen[card.Token] = struct{}{}
		serials = append(serials, card.Token)
		if card.UpdatedAt.After(latest) {
			latest = card.UpdatedAt
		}
	}
	sort.Strings(serials)

	if latest.IsZero() {
		latest = s.now()
	}
	return serials, latest.UTC().Format(time.RFC3339Nano), nil
}

// parseSince accepts RFC 3339 with or without fractional seconds; a value
// without zone is taken as UTC. Anything unparseable disables filtering.
func parseSince(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
