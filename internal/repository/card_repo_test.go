package repository

import (
	"context"
	"strings"
	"testing"

	"loyalty/internal/models"
	"loyalty/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dryRunDB(t *testing.T, dialector gorm.Dialector) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(dialector, &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestLockByTokenSelectsForUpdate(t *testing.T) {
	pg := postgres.New(postgres.Config{DSN: "host=localhost user=loyalty dbname=loyalty sslmode=disable"})
	my := mysql.New(mysql.Config{
		DSN:                       "loyalty:loyalty@tcp(127.0.0.1:3306)/loyalty?parseTime=true",
		SkipInitializeWithVersion: true,
	})
	dialects := map[string]gorm.Dialector{"postgres": pg, "mysql": my}
	for name, dialector := range dialects {
		t.Run(name, func(t *testing.T) {
			db := dryRunDB(t, dialector)
			sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
				var card models.LoyaltyCard
				return NewCardRepository(tx).lockByToken(context.Background(), "card-1").First(&card)
			})
			assert.Contains(t, sql, "loyalty_cards")
			assert.Contains(t, sql, "card-1")
			assert.True(t, strings.HasSuffix(sql, "FOR UPDATE"), sql)
		})
	}
}

func TestGetForUpdateLoadsEnrollment(t *testing.T) {
	db := testutil.NewTestDB(t)
	biz := testutil.CreateBusiness(t, db, "Cafe", "1.000", 100, "0.10")
	card := testutil.CreateCard(t, db, biz, "Ann", "+15550000001", 12)

	var got *models.LoyaltyCard
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		got, err = NewCardRepository(tx).GetForUpdate(context.Background(), card.Token)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, uint(12), got.PointsBalance)
	require.NotNil(t, got.BusinessCustomer)
	assert.Equal(t, biz.ID, got.BusinessID())

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := NewCardRepository(tx).GetForUpdate(context.Background(), "missing")
		return err
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
