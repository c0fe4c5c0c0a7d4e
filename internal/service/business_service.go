package service

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/pkg/cloudinary"
	"loyalty/pkg/errutil"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrLogoUploadDisabled = errors.New("logo upload is not configured")

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// BusinessUpdate holds the fields a business may change about itself. Nil
// fields are left untouched.
type BusinessUpdate struct {
	Name             *string
	RewardRate       *decimal.Decimal
	RedemptionPoints *uint
	RedemptionRate   *decimal.Decimal
	LogoURL          *string
	PrimaryColor     *string
	BackgroundColor  *string
}

type BusinessService struct {
	repo  *repository.BusinessRepository
	logos cloudinary.Uploader
	log   *zap.Logger
}

// NewBusinessService accepts a nil uploader when logo hosting is not set up.
func NewBusinessService(repo *repository.BusinessRepository, logos cloudinary.Uploader, log *zap.Logger) *BusinessService {
	return &BusinessService{repo: repo, logos: logos, log: log}
}

func (s *BusinessService) Get(ctx context.Context, id string) (*models.Business, error) {
	return s.repo.GetByID(ctx, id)
}

// ValidateProgram checks loyalty rates and colors, keyed by request field.
func ValidateProgram(rewardRate decimal.Decimal, redemptionPoints uint, redemptionRate decimal.Decimal, colors map[string]string) map[string]string {
	fields := map[string]string{}
	switch {
	case rewardRate.IsNegative():
		fields["reward_rate"] = "Ensure this value is greater than or equal to 0."
	case rewardRate.GreaterThanOrEqual(decimal.NewFromInt(1000)):
		fields["reward_rate"] = "Ensure that there are no more than 6 digits in total."
	case !hasPlaces(rewardRate, 3):
		fields["reward_rate"] = "Ensure that there are no more than 3 decimal places."
	}
	if redemptionPoints == 0 {
		fields["redemption_points"] = "Ensure this value is greater than 0."
	}
	switch {
	case redemptionRate.IsNegative() || redemptionRate.GreaterThan(decimal.NewFromInt(1)):
		fields["redemption_rate"] = "Ensure this value is between 0 and 1."
	case !hasPlaces(redemptionRate, 2):
		fields["redemption_rate"] = "Ensure that there are no more than 2 decimal places."
	}
	for name, value := range colors {
		if value != "" && !hexColor.MatchString(value) {
			fields[name] = "Enter a color as #RRGGBB."
		}
	}
	return fields
}

// hasPlaces reports whether d fits in n decimal places. Trailing zeros do not count.
func hasPlaces(d decimal.Decimal, n int32) bool {
	return d.Equal(d.Truncate(n))
}

func (s *BusinessService) Update(ctx context.Context, id string, in BusinessUpdate) (*models.Business, error) {
	biz, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	reward, points, redemption := biz.RewardRate, biz.RedemptionPoints, biz.RedemptionRate
	if in.RewardRate != nil {
		reward = *in.RewardRate
	}
	if in.RedemptionPoints != nil {
		points = *in.RedemptionPoints
	}
	if in.RedemptionRate != nil {
		redemption = *in.RedemptionRate
	}
	colors := map[string]string{}
	if in.PrimaryColor != nil {
		colors["primary_color"] = *in.PrimaryColor
	}
	if in.BackgroundColor != nil {
		colors["background_color"] = *in.BackgroundColor
	}
	fields := ValidateProgram(reward, points, redemption, colors)

	updates := map[string]interface{}{
		"reward_rate":       reward,
		"redemption_points": points,
		"redemption_rate":   redemption,
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			fields["name"] = "This field may not be blank."
		case len(name) > 100:
			fields["name"] = "Ensure this field has no more than 100 characters."
		default:
			taken, err := s.repo.NameTaken(ctx, name, id)
			if err != nil {
				return nil, err
			}
			if taken {
				fields["name"] = ErrBusinessExists.Error()
			}
			updates["name"] = name
		}
	}
	if len(fields) > 0 {
		return nil, errutil.Validation(fields)
	}
	if in.LogoURL != nil {
		updates["logo_url"] = *in.LogoURL
	}
	if in.PrimaryColor != nil {
		updates["primary_color"] = strings.ToUpper(*in.PrimaryColor)
	}
	if in.BackgroundColor != nil {
		updates["background_color"] = strings.ToUpper(*in.BackgroundColor)
	}

	if err := s.repo.Update(ctx, biz, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// UploadLogo stores the image and points the business at it.
func (s *BusinessService) UploadLogo(ctx context.Context, id string, file io.Reader) (*models.Business, error) {
	if s.logos == nil {
		return nil, ErrLogoUploadDisabled
	}
	biz, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.logos.UploadLogo(ctx, file, "business-"+biz.ID)
	if err != nil {
		s.log.Error("logo upload failed", zap.String("business", biz.ID), zap.Error(err))
		return nil, errutil.Unavailable("Logo upload failed, try again later.", errutil.WithErr(err))
	}
	if err := s.repo.Update(ctx, biz, map[string]interface{}{"logo_url": url}); err != nil {
		return nil, err
	}
	biz.LogoURL = url
	return biz, nil
}
