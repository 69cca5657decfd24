package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/cache"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/logger"
	"invest-ledger/internal/storages"
	"invest-ledger/internal/storages/memory"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// testClock управляемые часы
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvents(_ context.Context, events []kafka.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	svc       *LedgerService
	store     *memory.MemoryStorage
	clock     *testClock
	publisher *recordingPublisher
	ctx       context.Context
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()
	log := logger.Discard()
	store := memory.New(log)
	publisher := &recordingPublisher{}
	clock := &testClock{now: t0}

	svc := NewLedgerService(store, cache.NewPackagesCache(time.Minute), publisher, settings, log)
	svc.SetClock(clock.Now)

	return &fixture{svc: svc, store: store, clock: clock, publisher: publisher, ctx: context.Background()}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (f *fixture) register(t *testing.T, username, referralCode string) *storages.User {
	t.Helper()
	user, err := f.svc.RegisterUser(f.ctx, RegisterInput{
		Username:     username,
		Password:     "secret123",
		ReferralCode: referralCode,
	})
	if err != nil {
		t.Fatalf("Failed to register %s: %v", username, err)
	}
	return user
}

func (f *fixture) user(t *testing.T, userID string) *storages.User {
	t.Helper()
	user, err := f.store.GetUserByID(f.ctx, userID)
	if err != nil {
		t.Fatalf("Failed to get user: %v", err)
	}
	return user
}

// setBalances задает балансы напрямую в хранилище
func (f *fixture) setBalances(t *testing.T, userID, balance, profit string) {
	t.Helper()
	user := f.user(t, userID)
	user.Balance = dec(balance)
	user.ProfitBalance = dec(profit)
	if err := f.store.UpdateUser(f.ctx, user); err != nil {
		t.Fatalf("Failed to update user: %v", err)
	}
}

func (f *fixture) boundedPackage(t *testing.T, min, max, percent string, days int) *storages.InvestmentPackage {
	t.Helper()
	pack, err := f.svc.CreatePackage(f.ctx, &storages.InvestmentPackage{
		Name:               "Bounded",
		Kind:               storages.PackageBounded,
		MinInvestment:      dec(min),
		MaxInvestment:      dec(max),
		DailyProfitPercent: dec(percent),
		DurationDays:       days,
	})
	if err != nil {
		t.Fatalf("Failed to create package: %v", err)
	}
	return pack
}

func (f *fixture) fixedPackage(t *testing.T, price, percent string) *storages.InvestmentPackage {
	t.Helper()
	pack, err := f.svc.CreatePackage(f.ctx, &storages.InvestmentPackage{
		Name:               "Fixed",
		Kind:               storages.PackageFixed,
		Price:              dec(price),
		DailyProfitPercent: dec(percent),
	})
	if err != nil {
		t.Fatalf("Failed to create package: %v", err)
	}
	return pack
}

func (f *fixture) transactions(t *testing.T, filter storages.TransactionFilter) []storages.Transaction {
	t.Helper()
	txs, err := f.svc.QueryTransactions(f.ctx, filter)
	if err != nil {
		t.Fatalf("Failed to query transactions: %v", err)
	}
	return txs
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("Expected %v, got %v", target, err)
	}
}

func expectAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("Expected %s %s, got %s", name, want, got)
	}
}
