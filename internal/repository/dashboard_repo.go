package repository

import (
	"context"
	"time"

	"loyalty/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Window struct {
	From time.Time
	To   time.Time
}

type TransactionRow struct {
	ID             string
	CustomerName   *string
	StationName    string
	Amount         decimal.Decimal
	PointsEarned   uint
	PointsRedeemed uint
	CreatedAt      time.Time
}

type AmountRow struct {
	Amount    decimal.Decimal
	CreatedAt time.Time
}

type TopCustomerRow struct {
	Name   string `json:"name"`
	Visits int64  `json:"visits"`
	Points int64  `json:"points"`
}

// DashboardRepository runs the read-only aggregates behind the business dashboard.
type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

func (r *DashboardRepository) cards(ctx context.Context, businessID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.LoyaltyCard{}).
		Joins("JOIN business_customers ON business_customers.id = loyalty_cards.business_customer_id").
		Where("business_customers.business_id = ?", businessID)
}

func (r *DashboardRepository) cardTransactions(ctx context.Context, businessID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).
		Joins("JOIN loyalty_cards ON loyalty_cards.token = transactions.loyalty_card_token").
		Joins("JOIN business_customers ON business_customers.id = loyalty_cards.business_customer_id").
		Where("business_customers.business_id = ?", businessID)
}

func (r *DashboardRepository) stationTransactions(ctx context.Context, businessID string) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).
		Joins("JOIN stations ON stations.id = transactions.station_id").
		Where("stations.business_id = ?", businessID)
}

// CountCards counts the business's cards, limited to those created before
// createdBefore when it is non-zero.
func (r *DashboardRepository) CountCards(ctx context.Context, businessID string, createdBefore time.Time) (int64, error) {
	q := r.cards(ctx, businessID)
	if !createdBefore.IsZero() {
		q = q.Where("loyalty_cards.created_at < ?", createdBefore)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// CountRepeatCustomers counts enrollments with at least two transactions in w.
func (r *DashboardRepository) CountRepeatCustomers(ctx context.Context, businessID string, w Window) (int64, error) {
	var ids []string
	err := r.cardTransactions(ctx, businessID).
		Where("transactions.created_at >= ? AND transactions.created_at < ?", w.From, w.To).
		Group("business_customers.id").
		Having("COUNT(transactions.id) >= ?", 2).
		Pluck("business_customers.id", &ids).Error
	return int64(len(ids)), err
}

func (r *DashboardRepository) SumPointsRedeemed(ctx context.Context, businessID string, w Window) (int64, error) {
	var total struct{ Total int64 }
	err := r.cardTransactions(ctx, businessID).
		Select("COALESCE(SUM(transactions.points_redeemed), 0) AS total").
		Where("transactions.created_at >= ? AND transactions.created_at < ?", w.From, w.To).
		Scan(&total).Error
	return total.Total, err
}

func (r *DashboardRepository) CountRegistrationsTouched(ctx context.Context, businessID string, w Window) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.PassRegistration{}).
		Joins("JOIN loyalty_cards ON loyalty_cards.token = pass_registrations.loyalty_card_token").
		Joins("JOIN business_customers ON business_customers.id = loyalty_cards.business_customer_id").
		Where("business_customers.business_id = ?", businessID).
		Where("pass_registrations.updated_at >= ? AND pass_registrations.updated_at < ?", w.From, w.To).
		Count(&n).Error
	return n, err
}

// StationActivity returns the last transaction time per station. The latest
// row is matched by value so the driver scans a real timestamp column.
func (r *DashboardRepository) StationActivity(ctx context.Context, businessID string) (map[string]time.Time, error) {
	latest := r.stationTransactions(ctx, businessID).
		Select("transactions.station_id, MAX(transactions.created_at) AS last_at").
		Group("transactions.station_id")

	var rows []struct {
		StationID string
		CreatedAt time.Time
	}
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("transactions.station_id, transactions.created_at").
		Joins("JOIN (?) AS latest ON latest.station_id = transactions.station_id AND latest.last_at = transactions.created_at", latest).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	last := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		last[row.StationID] = row.CreatedAt
	}
	return last, nil
}

// AmountsSince returns settled amounts for day bucketing, oldest first.
func (r *DashboardRepository) AmountsSince(ctx context.Context, businessID string, since time.Time) ([]AmountRow, error) {
	var rows []AmountRow
	err := r.stationTransactions(ctx, businessID).
		Select("transactions.amount, transactions.created_at").
		Where("transactions.created_at >= ?", since).
		Order("transactions.created_at ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *DashboardRepository) RecentTransactions(ctx context.Context, businessID string, limit int) ([]TransactionRow, error) {
	var rows []TransactionRow
	err := r.stationTransactions(ctx, businessID).
		Select("transactions.id, customers.name AS customer_name, stations.name AS station_name, " +
			"transactions.amount, transactions.points_earned, transactions.points_redeemed, transactions.created_at").
		Joins("LEFT JOIN loyalty_cards ON loyalty_cards.token = transactions.loyalty_card_token").
		Joins("LEFT JOIN business_customers ON business_customers.id = loyalty_cards.business_customer_id").
		Joins("LEFT JOIN customers ON customers.id = business_customers.customer_id").
		Order("transactions.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// TopCustomers ranks enrollments by visit count.
func (r *DashboardRepository) TopCustomers(ctx context.Context, businessID string, limit int) ([]TopCustomerRow, error) {
	var rows []TopCustomerRow
	err := r.cardTransactions(ctx, businessID).
		Select("customers.name AS name, COUNT(transactions.id) AS visits, COALESCE(SUM(transactions.points_earned), 0) AS points").
		Joins("JOIN customers ON customers.id = business_customers.customer_id").
		Group("business_customers.id, customers.name").
		Order("visits DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
