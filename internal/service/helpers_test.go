package service

import (
	"sync"
	"testing"
	"time"

	"loyalty/config"
	"loyalty/internal/repository"
	"loyalty/internal/testutil"
	"loyalty/internal/ws"
	"loyalty/pkg/passkit"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testPassType = "pass.com.example.loyalty"

type recordingNotifier struct {
	mu     sync.Mutex
	tokens []string
}

func (n *recordingNotifier) Enqueue(cardToken string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tokens = append(n.tokens, cardToken)
}

func (n *recordingNotifier) Tokens() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.tokens...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ws.Event
}

func (p *recordingPublisher) Publish(_ string, ev ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	db         *gorm.DB
	notifier   *recordingNotifier
	events     *recordingPublisher
	passes     *PassService
	settlement *SettlementService
	stations   *StationService
	regs       *RegistrationService
	customers  *CustomerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	log := zap.NewNop()

	businessRepo := repository.NewBusinessRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	cardRepo := repository.NewCardRepository(db)
	stationRepo := repository.NewStationRepository(db)
	txnRepo := repository.NewTransactionRepository(db)
	regRepo := repository.NewRegistrationRepository(db)

	builder := passkit.NewBuilder(passkit.Config{
		PassTypeIdentifier: testPassType,
		TeamIdentifier:     "TEAM123456",
		WebServiceURL:      "https://loyalty.example.com/passkit",
		AssetDir:           t.TempDir(),
	}, nil, log)

	f := &fixture{
		db:       db,
		notifier: &recordingNotifier{},
		events:   &recordingPublisher{},
	}
	f.passes = NewPassService(cardRepo, builder, "test-secret")
	f.settlement = NewSettlementService(db, businessRepo, cardRepo, txnRepo, f.notifier, f.events, 5*time.Second, log)
	f.stations = NewStationService(db, stationRepo, customerRepo, cardRepo, f.passes, f.events, "https://loyalty.example.com/", log)
	f.regs = NewRegistrationService(regRepo, cardRepo, f.passes)
	f.customers = NewCustomerService(db, customerRepo, cardRepo, txnRepo, log)
	return f
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{AccessSecret: "secret", AccessExpiry: time.Hour, Issuer: "loyalty", CookieName: "session"},
	}
}
