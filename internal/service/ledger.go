package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

var transactionTypes = map[string]bool{
	storages.TransactionTypeDeposit:       true,
	storages.TransactionTypeWithdrawal:    true,
	storages.TransactionTypeInvestment:    true,
	storages.TransactionTypeProfit:        true,
	storages.TransactionTypeReferralBonus: true,
}

var transactionStatuses = map[string]bool{
	storages.TransactionStatusPending:   true,
	storages.TransactionStatusCompleted: true,
	storages.TransactionStatusRejected:  true,
}

// RecordTransaction добавляет запись в журнал. Пустые id и дата заполняются.
// Балансы пользователя не меняются.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx *storages.Transaction) (*storages.Transaction, error) {
	if tx.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !transactionTypes[tx.Type] {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, tx.Type)
	}
	if tx.Status == "" {
		tx.Status = storages.TransactionStatusCompleted
		if tx.Type == storages.TransactionTypeDeposit || tx.Type == storages.TransactionTypeWithdrawal {
			tx.Status = storages.TransactionStatusPending
		}
	}
	if !transactionStatuses[tx.Status] {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrInvalidInput, tx.Status)
	}
	if tx.Amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}
	tx.Amount = pkg.RoundMoney(tx.Amount)

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Date.IsZero() {
		tx.Date = s.now()
	}

	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		if _, err := repo.GetUserByID(ctx, tx.UserID); err != nil {
			return notFound(err, "user")
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, []kafka.LedgerEvent{kafka.TransactionEvent(kafka.EventTransactionCreated, tx)})
	return tx, nil
}

// QueryTransactions возвращает записи журнала от новых к старым
func (s *LedgerService) QueryTransactions(ctx context.Context, filter storages.TransactionFilter) ([]storages.Transaction, error) {
	if filter.Type != "" && !transactionTypes[filter.Type] {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, filter.Type)
	}
	if filter.Status != "" && !transactionStatuses[filter.Status] {
		return nil, fmt.Errorf("%w: unknown transaction status %q", ErrInvalidInput, filter.Status)
	}
	if filter.Limit < 0 {
		filter.Limit = 0
	}

	txs, err := s.storage.ListTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}
