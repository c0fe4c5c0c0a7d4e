package service

import (
	"context"
	"net/http"
	"testing"

	"loyalty/internal/models"
	"loyalty/internal/testutil"
	"loyalty/pkg/errutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollReusesCustomer(t *testing.T) {
	f := newFixture(t)
	biz := testutil.CreateBusiness(t, f.db, "Cafe", "1.000", 100, "0.10")
	ctx := context.Background()

	first, err := f.customers.Enroll(ctx, biz.ID, "Dana", "555 123 4567")
	require.NoError(t, err)
	second, err := f.customers.Enroll(ctx, biz.ID, "Dana", "+15551234567")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	cards, err := f.customers.ListCards(ctx, biz.ID)
	require.NoError(t, err)
	assert.Len(t, cards, 1)

	list, err := f.customers.ListEnrollments(ctx, biz.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUnenrollPrunesOrphanCustomer(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateBusiness(t, f.db, "A", "1.000", 100, "0.10")
	b := testutil.CreateBusiness(t, f.db, "B", "1.000", 100, "0.10")
	st := testutil.CreateStation(t, f.db, a, "front")
	ctx := context.Background()

	issued, err := f.stations.Issue(ctx, st, "Dana", "5551234567")
	require.NoError(t, err)
	atB, err := f.customers.Enroll(ctx, b.ID, "Dana", "5551234567")
	require.NoError(t, err)

	require.NoError(t, f.customers.Unenroll(ctx, a.ID, issued.Enrollment.ID))

	var stored models.Station
	require.NoError(t, f.db.First(&stored, "id = ?", st.ID).Error)
	assert.Nil(t, stored.PreparedLoyaltyCardToken)

	var n int64
	f.db.Model(&models.Customer{}).Count(&n)
	assert.Equal(t, int64(1), n, "customer still enrolled at B")

	require.NoError(t, f.customers.Unenroll(ctx, b.ID, atB.ID))
	f.db.Model(&models.Customer{}).Count(&n)
	assert.Zero(t, n)
	f.db.Model(&models.LoyaltyCard{}).Count(&n)
	assert.Zero(t, n)
}

func TestUnenrollOtherBusinessIsNotFound(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateBusiness(t, f.db, "A", "1.000", 100, "0.10")
	b := testutil.CreateBusiness(t, f.db, "B", "1.000", 100, "0.10")
	card := testutil.CreateCard(t, f.db, a, "Ann", "+15550000001", 0)

	err := f.customers.Unenroll(context.Background(), b.ID, card.BusinessCustomerID)
	assert.Equal(t, http.StatusNotFound, errutil.StatusOf(err))

	_, err = f.customers.QRPayload(context.Background(), b.ID, card.Token)
	assert.Equal(t, http.StatusNotFound, errutil.StatusOf(err))

	payload, err := f.customers.QRPayload(context.Background(), a.ID, card.Token)
	require.NoError(t, err)
	assert.Equal(t, card.Token, payload)
}
