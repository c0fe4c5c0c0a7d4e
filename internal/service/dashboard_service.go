package service

import (
	"context"
	"time"

	"loyalty/internal/domain"
	"loyalty/internal/models"
	"loyalty/internal/repository"

	"golang.org/x/sync/errgroup"
)

const (
	metricsWindow    = 7 * 24 * time.Hour
	revenueDays      = 90
	offlineAfter     = 12 * time.Hour
	recentTxnLimit   = 8
	topCustomerLimit = 5
)

type DashboardMetrics struct {
	ActiveLoyaltyCards     int64 `json:"active_loyalty_cards"`
	ActiveLoyaltyCardsPrev int64 `json:"active_loyalty_cards_prev"`
	RepeatCustomers        int64 `json:"repeat_customers"`
	RepeatCustomersPrev    int64 `json:"repeat_customers_prev"`
	PointsRedeemed7d       int64 `json:"points_redeemed_7d"`
	PointsRedeemedPrev     int64 `json:"points_redeemed_prev"`
	WalletPassInstalls     int64 `json:"wallet_pass_installs"`
	WalletPassPrev         int64 `json:"wallet_pass_prev"`
}

type PreparedSlot struct {
	Customer string `json:"customer"`
	Token    string `json:"token"`
}

type StationReadiness struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	PreparedSlot *PreparedSlot `json:"prepared_slot"`
	Updated      *time.Time    `json:"updated"`
}

type RevenuePoint struct {
	Date  string       `json:"date"`
	Total models.Money `json:"total"`
}

type RecentTransaction struct {
	ID             string       `json:"id"`
	Customer       string       `json:"customer"`
	Station        string       `json:"station"`
	Amount         models.Money `json:"amount"`
	PointsEarned   uint         `json:"points_earned"`
	PointsRedeemed uint         `json:"points_redeemed"`
	CreatedAt      time.Time    `json:"created_at"`
}

type DashboardDetail struct {
	StationReadiness   []StationReadiness          `json:"station_readiness"`
	RevenueTrend       []RevenuePoint              `json:"revenue_trend"`
	RecentTransactions []RecentTransaction         `json:"recent_transactions"`
	TopCustomers       []repository.TopCustomerRow `json:"top_customers"`
}

type DashboardService struct {
	repo        *repository.DashboardRepository
	stationRepo *repository.StationRepository
	now         func() time.Time
}

func NewDashboardService(repo *repository.DashboardRepository, stationRepo *repository.StationRepository) *DashboardService {
	return &DashboardService{repo: repo, stationRepo: stationRepo, now: time.Now}
}

// Metrics compares the last seven days with the seven before.
func (s *DashboardService) Metrics(ctx context.Context, businessID string) (*DashboardMetrics, error) {
	now := s.now().UTC()
	current := repository.Window{From: now.Add(-metricsWindow), To: now.Add(time.Second)}
	previous := repository.Window{From: current.From.Add(-metricsWindow), To: current.From}

	var m DashboardMetrics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		m.ActiveLoyaltyCards, err = s.repo.CountCards(gctx, businessID, time.Time{})
		return err
	})
	g.Go(func() (err error) {
		m.ActiveLoyaltyCardsPrev, err = s.repo.CountCards(gctx, businessID, current.From)
		return err
	})
	g.Go(func() (err error) {
		m.RepeatCustomers, err = s.repo.CountRepeatCustomers(gctx, businessID, current)
		return err
	})
	g.Go(func() (err error) {
		m.RepeatCustomersPrev, err = s.repo.CountRepeatCustomers(gctx, businessID, previous)
		return err
	})
	g.Go(func() (err error) {
		m.PointsRedeemed7d, err = s.repo.SumPointsRedeemed(gctx, businessID, current)
		return err
	})
	g.Go(func() (err error) {
		m.PointsRedeemedPrev, err = s.repo.SumPointsRedeemed(gctx, businessID, previous)
		return err
	})
	g.Go(func() (err error) {
		m.WalletPassInstalls, err = s.repo.CountRegistrationsTouched(gctx, businessID, current)
		return err
	})
	g.Go(func() (err error) {
		m.WalletPassPrev, err = s.repo.CountRegistrationsTouched(gctx, businessID, previous)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *DashboardService) Detail(ctx context.Context, businessID string) (*DashboardDetail, error) {
	now := s.now().UTC()

	stations, err := s.stationRepo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.StationActivity(ctx, businessID)
	if err != nil {
		return nil, err
	}
	amounts, err := s.repo.AmountsSince(ctx, businessID, now.AddDate(0, 0, -revenueDays))
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.RecentTransactions(ctx, businessID, recentTxnLimit)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.TopCustomers(ctx, businessID, topCustomerLimit)
	if err != nil {
		return nil, err
	}

	out := &DashboardDetail{
		StationReadiness:   make([]StationReadiness, 0, len(stations)),
		RevenueTrend:       revenueTrend(amounts),
		RecentTransactions: make([]RecentTransaction, 0, len(recent)),
		TopCustomers:       top,
	}
	if out.TopCustomers == nil {
		out.TopCustomers = []repository.TopCustomerRow{}
	}
	for i := range stations {
		out.StationReadiness = append(out.StationReadiness, readiness(&stations[i], activity, now))
	}
	for _, row := range recent {
		name := domain.GuestCustomerName
		if row.CustomerName != nil {
			name = *row.CustomerName
		}
		out.RecentTransactions = append(out.RecentTransactions, RecentTransaction{
			ID:             row.ID,
			Customer:       name,
			Station:        row.StationName,
			Amount:         models.NewMoney(row.Amount),
			PointsEarned:   row.PointsEarned,
			PointsRedeemed: row.PointsRedeemed,
			CreatedAt:      row.CreatedAt,
		})
	}
	return out, nil
}

// readiness marks a station offline when its latest prepared pass or sale is
// older than 12 hours. A never-used station counts as online.
func readiness(st *models.Station, activity map[string]time.Time, now time.Time) StationReadiness {
	r := StationReadiness{ID: st.ID, Name: st.Name, Status: domain.StationOnline}
	if card := st.PreparedLoyaltyCard; card != nil {
		slot := &PreparedSlot{Token: card.Token}
		if card.BusinessCustomer != nil && card.BusinessCustomer.Customer != nil {
			slot.Customer = card.BusinessCustomer.Customer.Name
		}
		r.PreparedSlot = slot
	}

	var ref *time.Time
	if st.PreparedAt != nil {
		ref = st.PreparedAt
	}
	if last, ok := activity[st.ID]; ok && (ref == nil || last.After(*ref)) {
		ref = &last
	}
	if ref != nil {
		r.Updated = ref
		if ref.Before(now.Add(-offlineAfter)) {
			r.Status = domain.StationOffline
		}
	}
	return r
}

func revenueTrend(rows []repository.AmountRow) []RevenuePoint {
	out := []RevenuePoint{}
	for _, row := range rows {
		day := row.CreatedAt.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Date == day {
			out[n-1].Total = models.NewMoney(out[n-1].Total.Add(row.Amount))
			continue
		}
		out = append(out, RevenuePoint{Date: day, Total: models.NewMoney(row.Amount)})
	}
	return out
}
