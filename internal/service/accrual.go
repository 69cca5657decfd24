package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"invest-ledger/internal/accrual"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
)

// AccrueProfit догоняет начисления пользователя и сохраняет их одной транзакцией.
// Если не прошло ни одного полного периода, хранилище не меняется.
func (s *LedgerService) AccrueProfit(ctx context.Context, userID string) (accrual.Result, error) {
	var result accrual.Result
	var events []kafka.LedgerEvent

	now := s.now()
	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		user, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}

		result, events, err = s.accrueLocked(ctx, repo, user, now)
		return err
	})
	if err != nil {
		return accrual.Result{}, err
	}

	if result.Changed() {
		s.logger.Infof("Profit accrued: UserID=%s, Periods=%d, Total=%s, Closed=%d",
			userID, result.Periods, result.Total, len(result.Closed))
	}
	s.publish(ctx, events)
	return result, nil
}

// accrueLocked рассчитывает и записывает начисления внутри уже открытой транзакции
func (s *LedgerService) accrueLocked(
	ctx context.Context,
	repo storages.Repositories,
	user *storages.User,
	now time.Time,
) (accrual.Result, []kafka.LedgerEvent, error) {
	exists, err := packageLookup(ctx, repo)
	if err != nil {
		return accrual.Result{}, nil, err
	}

	result := accrual.Calculate(user, exists, now)
	if !result.Changed() {
		return result, nil, nil
	}

	events := make([]kafka.LedgerEvent, 0, len(result.Profits)+len(result.Closed))
	for i := range result.Profits {
		tx := &result.Profits[i]
		tx.ID = uuid.NewString()
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return accrual.Result{}, nil, fmt.Errorf("failed to record profit: %w", err)
		}
		events = append(events, kafka.TransactionEvent(kafka.EventTransactionCreated, tx))
	}

	result.User.UpdatedAt = now
	if err := repo.UpdateUser(ctx, result.User); err != nil {
		return accrual.Result{}, nil, fmt.Errorf("failed to update user: %w", err)
	}

	for _, inv := range result.Closed {
		events = append(events, kafka.InvestmentClosedEvent(result.User.ID, inv))
	}
	return result, events, nil
}

func packageLookup(ctx context.Context, repo storages.Repositories) (accrual.PackageExists, error) {
	packages, err := repo.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	ids := make(map[string]struct{}, len(packages))
	for _, p := range packages {
		ids[p.ID] = struct{}{}
	}
	return func(packageID string) bool {
		_, ok := ids[packageID]
		return ok
	}, nil
}
