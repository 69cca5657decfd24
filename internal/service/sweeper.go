package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SweepResult итог обхода пользователей с открытыми позициями
type SweepResult struct {
	Users   int             `json:"users"`
	Updated int             `json:"updated"`
	Failed  int             `json:"failed"`
	Total   decimal.Decimal `json:"total"`
}

// RunAccrualSweep начисляет прибыль всем пользователям с открытыми позициями.
// Ошибка по одному пользователю не останавливает обход.
func (s *LedgerService) RunAccrualSweep(ctx context.Context) (*SweepResult, error) {
	userIDs, err := s.storage.ListUserIDsWithActiveInvestments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with investments: %w", err)
	}

	res := &SweepResult{Users: len(userIDs), Total: decimal.Zero}
	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		result, err := s.AccrueProfit(ctx, userID)
		if err != nil {
			s.logger.Warnf("Accrual sweep failed for user %s: %v", userID, err)
			res.Failed++
			continue
		}
		if result.Changed() {
			res.Updated++
			res.Total = res.Total.Add(result.Total)
		}
	}

	s.logger.Infof("Accrual sweep finished: Users=%d, Updated=%d, Failed=%d, Total=%s",
		res.Users, res.Updated, res.Failed, res.Total)
	return res, nil
}

// Sweeper периодически запускает обход начислений
type Sweeper struct {
	service  *LedgerService
	interval time.Duration
	logger   *logrus.Logger
}

// NewSweeper создает планировщик начислений
func NewSweeper(service *LedgerService, interval time.Duration, logger *logrus.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run выполняет обход сразу и затем по таймеру до отмены ctx
func (w *Sweeper) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("Accrual sweeper is disabled")
		return
	}

	w.logger.Infof("Accrual sweeper started, interval %s", w.interval)
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Accrual sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Sweeper) sweep(ctx context.Context) {
	if _, err := w.service.RunAccrualSweep(ctx); err != nil && ctx.Err() == nil {
		w.logger.Errorf("Accrual sweep failed: %v", err)
	}
}
