package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"loyalty/internal/models"
	"loyalty/internal/testutil"
	"loyalty/pkg/errutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeCard(t *testing.T) {
	f := newFixture(t)
	biz := testutil.CreateBusiness(t, f.db, "Cafe", "1.000", 100, "0.10")
	card := testutil.CreateCard(t, f.db, biz, "Ann", "+15550000001", 0)
	ctx := context.Background()

	secret, err := f.passes.EnsureAuthToken(ctx, card)
	require.NoError(t, err)

	got, err := f.regs.AuthorizeCard(ctx, card.Token, "ApplePass "+secret)
	require.NoError(t, err)
	assert.Equal(t, card.Token, got.Token)

	_, err = f.regs.AuthorizeCard(ctx, card.Token, "ApplePass wrong")
	assert.ErrorIs(t, err, ErrPassAuth)
	_, err = f.regs.AuthorizeCard(ctx, card.Token, secret)
	assert.ErrorIs(t, err, ErrPassAuth)
	_, err = f.regs.AuthorizeCard(ctx, card.Token, "ApplePass ")
	assert.ErrorIs(t, err, ErrPassAuth)

	_, err = f.regs.AuthorizeCard(ctx, "no-such-card", "ApplePass "+secret)
	assert.Equal(t, http.StatusNotFound, errutil.StatusOf(err))

	assert.NoError(t, f.regs.RequirePassType(testPassType))
	assert.ErrorIs(t, f.regs.RequirePassType("pass.other"), ErrUnknownPassType)
}

func TestRegisterAndUnregister(t *testing.T) {
	f := newFixture(t)
	biz := testutil.CreateBusiness(t, f.db, "Cafe", "1.000", 100, "0.10")
	card := testutil.CreateCard(t, f.db, biz, "Ann", "+15550000001", 0)
	ctx := context.Background()

	created, err := f.regs.Register(ctx, card, "device-1", testPassType, "push-a")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.regs.Register(ctx, card, "device-1", testPassType, "push-b")
	require.NoError(t, err)
	assert.False(t, created)

	var reg models.PassRegistration
	require.NoError(t, f.db.Where("device_library_identifier = ?", "device-1").First(&reg).Error)
	assert.Equal(t, "push-b", reg.PushToken)

	_, err = f.regs.Register(ctx, card, "device-1", testPassType, "  ")
	assert.Equal(t, http.StatusBadRequest, errutil.StatusOf(err))

	require.NoError(t, f.regs.Unregister(ctx, card, "device-1", testPassType))
	require.NoError(t, f.regs.Unregister(ctx, card, "device-1", testPassType))
	var n int64
	f.db.Model(&models.PassRegistration{}).Count(&n)
	assert.Zero(t, n)
}

func TestListChangedSerials(t *testing.T) {
	f := newFixture(t)
	biz := testutil.CreateBusiness(t, f.db, "Cafe", "1.000", 100, "0.10")
	card := testutil.CreateCard(t, f.db, biz, "Ann", "+15550000001", 0)
	other := testutil.CreateCard(t, f.db, biz, "Bob", "+15550000002", 0)
	ctx := context.Background()

	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Model(&models.LoyaltyCard{}).Where("token = ?", card.Token).
		UpdateColumn("updated_at", updated).Error)
	require.NoError(t, f.db.Model(&models.LoyaltyCard{}).Where("token = ?", other.Token).
		UpdateColumn("updated_at", updated.Add(-time.Hour)).Error)

	_, err := f.regs.Register(ctx, card, "device-1", testPassType, "push-a")
	require.NoError(t, err)
	_, err = f.regs.Register(ctx, other, "device-1", testPassType, "push-a")
	require.NoError(t, err)

	serials, cursor, err := f.regs.ListChangedSerials(ctx, "device-1", testPassType, updated.Add(-time.Second).Format(time.RFC3339))
	require.NoError(t, err)
	assert.Equal(t, []string{card.Token}, serials)
	assert.Equal(t, updated.Format(time.RFC3339Nano), cursor)

	serials, _, err = f.regs.ListChangedSerials(ctx, "device-1", testPassType, updated.Format(time.RFC3339Nano))
	require.NoError(t, err)
	assert.Empty(t, serials)

	serials, _, err = f.regs.ListChangedSerials(ctx, "device-1", testPassType, updated.Add(time.Second).Format("2006-01-02T15:04:05"))
	require.NoError(t, err)
	assert.Empty(t, serials)

	serials, _, err = f.regs.ListChangedSerials(ctx, "device-1", testPassType, "not-a-date")
	require.NoError(t, err)
	assert.Len(t, serials, 2)

	fixed := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.regs.now = func() time.Time { return fixed }
	serials, cursor, err = f.regs.ListChangedSerials(ctx, "unknown-device", testPassType, "")
	require.NoError(t, err)
	assert.Empty(t, serials)
	assert.Equal(t, fixed.Format(time.RFC3339Nano), cursor)
}

func TestParseSince(t *testing.T) {
	cases := map[string]bool{
		"2026-03-01T12:00:00Z":        true,
		"2026-03-01T12:00:00.123456Z": true,
		"2026-03-01T12:00:00+02:00":   true,
		"2026-03-01T12:00:00":         true,
		"2026-03-01T12:00:00.5":       true,
		"":                            false,
		"yesterday":                   false,
	}
	for raw, ok := range cases {
		_, got := parseSince(raw)
		assert.Equal(t, ok, got, raw)
	}
}
