package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"loyalty/internal/repository"
	"loyalty/internal/testutil"
	"loyalty/pkg/errutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	publicID string
	err      error
}

func (u *fakeUploader) UploadLogo(_ context.Context, file io.Reader, publicID string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	_, _ = io.ReadAll(file)
	u.publicID = publicID
	return "https://res.cloudinary.com/demo/image/upload/" + publicID + ".png", nil
}

func TestValidateProgram(t *testing.T) {
	ok := ValidateProgram(decimal.RequireFromString("1.5"), 100, decimal.RequireFromString("0.10"),
		map[string]string{"primary_color": "#A1B2C3"})
	assert.Empty(t, ok)

	bad := ValidateProgram(decimal.RequireFromString("-1"), 0, decimal.RequireFromString("1.01"),
		map[string]string{"primary_color": "blue", "background_color": ""})
	assert.Contains(t, bad, "reward_rate")
	assert.Contains(t, bad, "redemption_points")
	assert.Contains(t, bad, "redemption_rate")
	assert.Contains(t, bad, "primary_color")
	assert.NotContains(t, bad, "background_color")

	assert.Contains(t, ValidateProgram(decimal.NewFromInt(1000), 1, decimal.Zero, nil), "reward_rate")

	tooPrecise := ValidateProgram(decimal.RequireFromString("1.2345"), 100, decimal.RequireFromString("0.105"), nil)
	assert.Equal(t, "Ensure that there are no more than 3 decimal places.", tooPrecise["reward_rate"])
	assert.Equal(t, "Ensure that there are no more than 2 decimal places.", tooPrecise["redemption_rate"])

	assert.Empty(t, ValidateProgram(decimal.RequireFromString("1.500"), 100, decimal.RequireFromString("0.100"), nil))
}

func TestUpdateBusinessRejectsExtraPrecision(t *testing.T) {
	db := testutil.NewTestDB(t)
	biz := testutil.CreateBusiness(t, db, "Cafe", "1.000", 100, "0.10")
	svc := NewBusinessService(repository.NewBusinessRepository(db), nil, zap.NewNop())

	rate := decimal.RequireFromString("0.125")
	_, err := svc.Update(context.Background(), biz.ID, BusinessUpdate{RedemptionRate: &rate})
	be, ok := errutil.As(err)
	require.True(t, ok)
	assert.Contains(t, be.Fields, "redemption_rate")

	stored, err := repository.NewBusinessRepository(db).GetByID(context.Background(), biz.ID)
	require.NoError(t, err)
	assert.True(t, stored.RedemptionRate.Equal(decimal.RequireFromString("0.10")))
}

func TestUpdateBusiness(t *testing.T) {
	db := testutil.NewTestDB(t)
	biz := testutil.CreateBusiness(t, db, "Cafe", "1.000", 100, "0.10")
	testutil.CreateBusiness(t, db, "Bakery", "1.000", 100, "0.10")
	svc := NewBusinessService(repository.NewBusinessRepository(db), nil, zap.NewNop())
	ctx := context.Background()

	rate := decimal.RequireFromString("2.25")
	color := "#abcdef"
	updated, err := svc.Update(ctx, biz.ID, BusinessUpdate{RewardRate: &rate, PrimaryColor: &color})
	require.NoError(t, err)
	assert.True(t, updated.RewardRate.Equal(rate))
	assert.Equal(t, "#ABCDEF", updated.PrimaryColor)
	assert.Equal(t, uint(100), updated.RedemptionPoints)

	taken := "bakery"
	_, err = svc.Update(ctx, biz.ID, BusinessUpdate{Name: &taken})
	be, ok := errutil.As(err)
	require.True(t, ok)
	assert.Contains(t, be.Fields, "name")

	same := "Cafe"
	_, err = svc.Update(ctx, biz.ID, BusinessUpdate{Name: &same})
	assert.NoError(t, err)
}

func TestUploadLogo(t *testing.T) {
	db := testutil.NewTestDB(t)
	biz := testutil.CreateBusiness(t, db, "Cafe", "1.000", 100, "0.10")
	repo := repository.NewBusinessRepository(db)
	ctx := context.Background()

	_, err := NewBusinessService(repo, nil, zap.NewNop()).UploadLogo(ctx, biz.ID, strings.NewReader("png"))
	assert.ErrorIs(t, err, ErrLogoUploadDisabled)

	up := &fakeUploader{}
	updated, err := NewBusinessService(repo, up, zap.NewNop()).UploadLogo(ctx, biz.ID, strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "business-"+biz.ID, up.publicID)
	assert.Contains(t, updated.LogoURL, up.publicID)

	_, err = NewBusinessService(repo, &fakeUploader{err: errors.New("quota")}, zap.NewNop()).
		UploadLogo(ctx, biz.ID, strings.NewReader("png"))
	assert.Equal(t, http.StatusServiceUnavailable, errutil.StatusOf(err))
}
