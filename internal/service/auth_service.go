package service

import (
	"context"
	"errors"
	"strings"

	"loyalty/config"
	"loyalty/internal/auth"
	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/pkg/errutil"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameExists  = errors.New("username already taken")
	ErrBusinessExists  = errors.New("business name already taken")
	ErrInvalidCreds    = errors.New("invalid username or password")
	ErrWrongPassword   = errors.New("current password is incorrect")
	ErrSessionRevoked  = errors.New("session revoked")
	ErrPasswordTooWeak = errors.New("password too short")
)

const minPasswordLength = 8

type SignupInput struct {
	BusinessName     string
	RewardRate       decimal.Decimal
	RedemptionPoints uint
	RedemptionRate   decimal.Decimal
	LogoURL          string
	PrimaryColor     string
	BackgroundColor  string
	Username         string
	Email            string
	Password         string
}

type AuthService struct {
	cfg          *config.Config
	db           *gorm.DB
	userRepo     *repository.UserRepository
	businessRepo *repository.BusinessRepository
}

func NewAuthService(cfg *config.Config, db *gorm.DB, userRepo *repository.UserRepository, businessRepo *repository.BusinessRepository) *AuthService {
	return &AuthService{cfg: cfg, db: db, userRepo: userRepo, businessRepo: businessRepo}
}

// Signup creates a business and its owning staff account together.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*models.BusinessUser, error) {
	fields := ValidateProgram(in.RewardRate, in.RedemptionPoints, in.RedemptionRate, map[string]string{
		"primary_color":    in.PrimaryColor,
		"background_color": in.BackgroundColor,
	})
	if len(in.Password) < minPasswordLength {
		fields["password"] = "Ensure this field has at least 8 characters."
	}
	if len(fields) > 0 {
		return nil, errutil.Validation(fields)
	}

	taken, err := s.userRepo.UsernameTaken(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errutil.Validation(map[string]string{"username": ErrUsernameExists.Error()})
	}
	taken, err = s.businessRepo.NameTaken(ctx, in.BusinessName, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errutil.Validation(map[string]string{"business_name": ErrBusinessExists.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	biz := &models.Business{
		Name:             strings.TrimSpace(in.BusinessName),
		RewardRate:       in.RewardRate,
		RedemptionPoints: in.RedemptionPoints,
		RedemptionRate:   in.RedemptionRate,
		LogoURL:          in.LogoURL,
		PrimaryColor:     in.PrimaryColor,
		BackgroundColor:  in.BackgroundColor,
	}
	user := &models.BusinessUser{
		Username:     in.Username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.businessRepo.WithTx(tx).Create(ctx, biz); err != nil {
			return err
		}
		user.BusinessID = biz.ID
		return s.userRepo.WithTx(tx).Create(ctx, user)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errutil.Conflict("username or business already exists", errutil.WithErr(err))
	}
	if err != nil {
		return nil, err
	}
	user.Business = biz
	return user, nil
}

// Login accepts a username or, failing that, an email address.
func (s *AuthService) Login(ctx context.Context, login, password string) (*models.BusinessUser, string, error) {
	u, err := s.userRepo.GetByUsername(ctx, login)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u, err = s.userRepo.GetByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCreds
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCreds
	}
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.BusinessID, u.SessionVersion)
	if err != nil {
		return nil, "", err
	}
	return u, access, nil
}

// Authenticate resolves session claims to a live user.
func (s *AuthService) Authenticate(ctx context.Context, claims *auth.Claims) (*models.BusinessUser, error) {
	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if u.SessionVersion != claims.SessionVersion || u.BusinessID != claims.BusinessID {
		return nil, ErrSessionRevoked
	}
	return u, nil
}

func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.userRepo.BumpSessionVersion(ctx, userID)
}

// ChangePassword verifies the current password; all sessions end on success.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrWrongPassword
	}
	if len(newPassword) < minPasswordLength {
		return ErrPasswordTooWeak
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

// BusinessForToken validates a raw session token, as presented on websocket
// handshakes, and returns the business it is scoped to.
func (s *AuthService) BusinessForToken(ctx context.Context, token string) (string, error) {
	claims, err := auth.ParseAccessToken(&s.cfg.JWT, token)
	if err != nil {
		return "", err
	}
	u, err := s.Authenticate(ctx, claims)
	if err != nil {
		return "", err
	}
	return u.BusinessID, nil
}
