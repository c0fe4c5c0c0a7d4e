package service

import (
	"context"
	"errors"
	"time"

	"loyalty/internal/domain"
	"loyalty/internal/ledger"
	"loyalty/internal/metrics"
	"loyalty/internal/models"
	"loyalty/internal/repository"
	"loyalty/internal/ws"
	"loyalty/pkg/errutil"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier schedules a wallet refresh for a card. Implementations must not block.
type Notifier interface {
	Enqueue(cardToken string)
}

// EventPublisher receives station activity for live dashboards.
type EventPublisher interface {
	Publish(businessID string, ev ws.Event)
}

type SettleInput struct {
	LoyaltyCardToken *string
	Amount           decimal.Decimal
	Redeem           bool
}

type SettlementService struct {
	db           *gorm.DB
	businessRepo *repository.BusinessRepository
	cardRepo     *repository.CardRepository
	txnRepo      *repository.TransactionRepository
	notifier     Notifier
	events       EventPublisher
	lockTimeout  time.Duration
	log          *zap.Logger
}

func NewSettlementService(
	db *gorm.DB,
	businessRepo *repository.BusinessRepository,
	cardRepo *repository.CardRepository,
	txnRepo *repository.TransactionRepository,
	notifier Notifier,
	events EventPublisher,
	lockTimeout time.Duration,
	log *zap.Logger,
) *SettlementService {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &SettlementService{
		db:           db,
		businessRepo: businessRepo,
		cardRepo:     cardRepo,
		txnRepo:      txnRepo,
		notifier:     notifier,
		events:       events,
		lockTimeout:  lockTimeout,
		log:          log,
	}
}

// Settle records one visit at station. Card settlements serialise on the
// card row; guest checkouts touch no shared state and take no lock.
func (s *SettlementService) Settle(ctx context.Context, station *models.Station, in SettleInput) (*models.Transaction, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		metrics.Settlements.WithLabelValues("rejected").Inc()
		return nil, errutil.Validation(map[string]string{"amount": err.Error()})
	}

	if in.LoyaltyCardToken == nil || *in.LoyaltyCardToken == "" {
		txn := &models.Transaction{
			StationID:   station.ID,
			Amount:      models.NewMoney(in.Amount),
			FinalAmount: models.NewMoney(in.Amount.Round(2)),
		}
		if err := s.txnRepo.Create(ctx, txn); err != nil {
			metrics.Settlements.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.Settlements.WithLabelValues("guest").Inc()
		s.publish(station, txn)
		return txn, nil
	}

	biz, err := s.businessRepo.GetByID(ctx, station.BusinessID)
	if err != nil {
		return nil, err
	}
	rates := ledger.Rates{
		RewardRate:       biz.RewardRate,
		RedemptionPoints: biz.RedemptionPoints,
		RedemptionRate:   biz.RedemptionRate,
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	var txn *models.Transaction
	var res ledger.Result
	err = s.db.WithContext(lockCtx).Transaction(func(tx *gorm.DB) error {
		card, err := s.cardRepo.WithTx(tx).GetForUpdate(lockCtx, *in.LoyaltyCardToken)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errutil.Validation(map[string]string{"loyalty_card_id": "Invalid loyalty card."})
			}
			return err
		}
		if card.BusinessID() != station.BusinessID {
			return errutil.Forbidden("Cannot create a transaction for a loyalty card outside your business.")
		}

		res, err = ledger.Settle(in.Amount, rates, card.PointsBalance, in.Redeem)
		if err != nil {
			return errutil.Validation(map[string]string{"amount": err.Error()})
		}
		if err := s.cardRepo.WithTx(tx).UpdateBalance(lockCtx, card, res.NewBalance); err != nil {
			return err
		}

		token := card.Token
		txn = &models.Transaction{
			LoyaltyCardToken: &token,
			StationID:        station.ID,
			Amount:           models.NewMoney(in.Amount),
			FinalAmount:      models.NewMoney(res.FinalAmount),
			PointsEarned:     res.PointsEarned,
			PointsRedeemed:   res.PointsRedeemed,
		}
		return s.txnRepo.WithTx(tx).Create(lockCtx, txn)
	})
	if err != nil {
		if _, ok := errutil.As(err); ok {
			metrics.Settlements.WithLabelValues("rejected").Inc()
			return nil, err
		}
		if isLockContention(err) {
			metrics.Settlements.WithLabelValues("contended").Inc()
			s.log.Warn("settlement lock wait exceeded",
				zap.String("card", *in.LoyaltyCardToken), zap.Error(err))
			return nil, errutil.Unavailable("Loyalty card is busy, retry the transaction.", errutil.WithErr(err))
		}
		metrics.Settlements.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.Settlements.WithLabelValues("settled").Inc()
	metrics.PointsEarned.Add(float64(res.PointsEarned))
	metrics.PointsRedeemed.Add(float64(res.PointsRedeemed))

	if s.notifier != nil {
		s.notifier.Enqueue(*txn.LoyaltyCardToken)
	}
	s.publish(station, txn)
	return txn, nil
}

func (s *SettlementService) publish(station *models.Station, txn *models.Transaction) {
	if s.events == nil {
		return
	}
	s.events.Publish(station.BusinessID, ws.Event{
		Type:      domain.EventTransactionSettled,
		StationID: station.ID,
		Data:      txn,
	})
}

// isLockContention reports row-lock waits that ran out, deadlocks, and the
// bounded wait expiring on our side.
func isLockContention(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03", "40P01":
			return true
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213:
			return true
		}
	}
	return false
}
