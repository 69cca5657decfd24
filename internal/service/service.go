// Package service содержит бизнес-логику учета: начисление прибыли,
// инвестиции, заявки на пополнение и вывод, реферальные бонусы и
// административные операции. Каждая денежная операция выполняется
// одной транзакцией хранилища.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/cache"
	"invest-ledger/internal/config"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
)

// EventPublisher отправляет события журнала после фиксации транзакции
type EventPublisher interface {
	PublishLedgerEvents(ctx context.Context, events []kafka.LedgerEvent) error
}

// Settings бизнес-параметры учета
type Settings struct {
	MinWithdrawal        decimal.Decimal
	WithdrawalCooldown   time.Duration
	ReferralBonusPercent decimal.Decimal
	ReferralTrigger      string
	RecentTransactions   int
}

// SettingsFromConfig собирает Settings из конфигурации
func SettingsFromConfig(cfg config.LedgerConfig) Settings {
	return Settings{
		MinWithdrawal:        decimal.NewFromFloat(cfg.MinWithdrawal),
		WithdrawalCooldown:   cfg.WithdrawalCooldown,
		ReferralBonusPercent: decimal.NewFromFloat(cfg.ReferralBonusPercent),
		ReferralTrigger:      cfg.ReferralTrigger,
		RecentTransactions:   cfg.RecentTransactions,
	}
}

// DefaultSettings параметры по умолчанию
func DefaultSettings() Settings {
	return SettingsFromConfig(config.LedgerConfig{
		MinWithdrawal:        config.DefaultMinWithdrawal,
		WithdrawalCooldown:   config.DefaultWithdrawalCooldown,
		ReferralBonusPercent: config.DefaultReferralBonusPercent,
		ReferralTrigger:      config.DefaultReferralTrigger,
		RecentTransactions:   config.DefaultRecentTransactions,
	})
}

// LedgerService сервисный слой для бизнес-логики
type LedgerService struct {
	storage       storages.Storage
	packagesCache *cache.PackagesCache
	publisher     EventPublisher
	settings      Settings
	logger        *logrus.Logger
	now           func() time.Time
}

// NewLedgerService создает новый экземпляр сервиса.
// publisher и packagesCache могут быть nil.
func NewLedgerService(
	storage storages.Storage,
	packagesCache *cache.PackagesCache,
	publisher EventPublisher,
	settings Settings,
	logger *logrus.Logger,
) *LedgerService {
	if settings.RecentTransactions <= 0 {
		settings.RecentTransactions = config.DefaultRecentTransactions
	}
	return &LedgerService{
		storage:       storage,
		packagesCache: packagesCache,
		publisher:     publisher,
		settings:      settings,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock подменяет источник времени
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// publish отправляет события. Ошибка отправки не отменяет уже зафиксированную операцию.
func (s *LedgerService) publish(ctx context.Context, events []kafka.LedgerEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.PublishLedgerEvents(ctx, events); err != nil {
		s.logger.Warnf("Failed to publish %d ledger events: %v", len(events), err)
	}
}
