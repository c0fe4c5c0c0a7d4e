package service

import (
	"context"
	"net/http"
	"testing"

	"loyalty/internal/auth"
	"loyalty/internal/repository"
	"loyalty/internal/testutil"
	"loyalty/pkg/errutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	db := testutil.NewTestDB(t)
	return NewAuthService(testConfig(), db, repository.NewUserRepository(db), repository.NewBusinessRepository(db))
}

func signupInput() SignupInput {
	return SignupInput{
		BusinessName:     "Corner Cafe",
		RewardRate:       decimal.RequireFromString("1.5"),
		RedemptionPoints: 100,
		RedemptionRate:   decimal.RequireFromString("0.10"),
		PrimaryColor:     "#112233",
		BackgroundColor:  "#FFFFFF",
		Username:         "owner",
		Email:            "Owner@Example.com",
		Password:         "s3cret-pass",
	}
}

func TestSignupAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)
	assert.Equal(t, "Corner Cafe", user.Business.Name)

	_, token, err := svc.Login(ctx, "owner", "s3cret-pass")
	require.NoError(t, err)
	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, token)
	require.NoError(t, err)
	assert.Equal(t, user.BusinessID, claims.BusinessID)

	byEmail, _, err := svc.Login(ctx, "owner@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, _, err = svc.Login(ctx, "owner", "nope")
	assert.ErrorIs(t, err, ErrInvalidCreds)
	_, _, err = svc.Login(ctx, "ghost", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCreds)
}

func TestSignupRejectsDuplicatesAndBadProgram(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	dup := signupInput()
	be, ok := errutil.As(func() error { _, err := svc.Signup(ctx, dup); return err }())
	require.True(t, ok)
	assert.Contains(t, be.Fields, "username")

	dup.Username = "other"
	dup.BusinessName = "corner cafe"
	be, ok = errutil.As(func() error { _, err := svc.Signup(ctx, dup); return err }())
	require.True(t, ok)
	assert.Contains(t, be.Fields, "business_name")

	bad := signupInput()
	bad.Username, bad.BusinessName = "x", "Y"
	bad.RedemptionRate = decimal.RequireFromString("1.5")
	bad.PrimaryColor = "red"
	bad.Password = "short"
	be, ok = errutil.As(func() error { _, err := svc.Signup(ctx, bad); return err }())
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, be.Code)
	assert.Contains(t, be.Fields, "redemption_rate")
	assert.Contains(t, be.Fields, "primary_color")
	assert.Contains(t, be.Fields, "password")
}

func TestPasswordChangeRevokesSessions(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, signupInput())
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "owner", "s3cret-pass")
	require.NoError(t, err)
	claims, err := auth.ParseAccessToken(&svc.cfg.JWT, token)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, claims)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "wrong", "new-password"), ErrWrongPassword)
	assert.ErrorIs(t, svc.ChangePassword(ctx, user.ID, "s3cret-pass", "short"), ErrPasswordTooWeak)
	require.NoError(t, svc.ChangePassword(ctx, user.ID, "s3cret-pass", "new-password"))

	_, err = svc.Authenticate(ctx, claims)
	assert.ErrorIs(t, err, ErrSessionRevoked)
	_, err = svc.BusinessForToken(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, fresh, err := svc.Login(ctx, "owner", "new-password")
	require.NoError(t, err)
	biz, err := svc.BusinessForToken(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, user.BusinessID, biz)

	require.NoError(t, svc.Logout(ctx, user.ID))
	_, err = svc.BusinessForToken(ctx, fresh)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}
