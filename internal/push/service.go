// Package push tells wallets that a loyalty card changed.
package push

import (
	"context"
	"errors"
	"time"

	"loyalty/internal/metrics"
	"loyalty/internal/repository"
	"loyalty/pkg/apns"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sender delivers one pass-update notification to a device.
type Sender interface {
	SendPassUpdate(ctx context.Context, pushToken, serialNumber string) error
}

const sendConcurrency = 8

type Service struct {
	regRepo *repository.RegistrationRepository
	sender  Sender
	log     *zap.Logger
	now     func() time.Time
}

func NewService(regRepo *repository.RegistrationRepository, sender Sender, log *zap.Logger) *Service {
	return &Service{regRepo: regRepo, sender: sender, log: log, now: time.Now}
}

// Notify bumps every registration of the card and pushes to each device.
// Delivery is best effort: failures are logged and counted, never returned.
func (s *Service) Notify(ctx context.Context, cardToken string) {
	regs, err := s.regRepo.ListByCard(ctx, cardToken)
	if err != nil {
		s.log.Error("push: load registrations", zap.String("card", cardToken), zap.Error(err))
		return
	}
	if len(regs) == 0 {
		return
	}
	if err := s.regRepo.TouchByCard(ctx, cardToken, s.now().UTC()); err != nil {
		s.log.Error("push: touch registrations", zap.String("card", cardToken), zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sendConcurrency)
	for _, reg := range regs {
		if reg.PushToken == "" {
			continue
		}
		pushToken := reg.PushToken
		g.Go(func() error {
			err := s.sender.SendPassUpdate(gctx, pushToken, cardToken)
			switch {
			case err == nil:
				metrics.PushDeliveries.WithLabelValues("ok").Inc()
			case errors.Is(err, apns.ErrNotConfigured):
				metrics.PushDeliveries.WithLabelValues("skipped").Inc()
			default:
				metrics.PushDeliveries.WithLabelValues("failed").Inc()
				s.log.Warn("push: delivery failed",
					zap.String("card", cardToken),
					zap.String("device_token", truncate(pushToken)),
					zap.Error(err))
			}
			// never abort siblings
			return nil
		})
	}
	_ = g.Wait()
}

func truncate(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}
