package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invest-ledger/internal/config"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

// RequestDeposit создает заявку на пополнение. Баланс меняется только после одобрения.
func (s *LedgerService) RequestDeposit(ctx context.Context, userID string, amount decimal.Decimal, proof, methodID string) (*storages.Transaction, error) {
	amount = pkg.RoundMoney(amount)
	if err := pkg.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if strings.TrimSpace(methodID) == "" {
		return nil, fmt.Errorf("%w: deposit method is required", ErrInvalidInput)
	}

	now := s.now()
	tx := &storages.Transaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		Type:            storages.TransactionTypeDeposit,
		Status:          storages.TransactionStatusPending,
		Amount:          amount,
		Date:            now,
		Proof:           proof,
		DepositMethodID: methodID,
	}

	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		if _, err := repo.GetUserByID(ctx, userID); err != nil {
			return notFound(err, "user")
		}
		if _, err := repo.GetDepositMethod(ctx, methodID); err != nil {
			return notFound(err, "deposit method")
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record deposit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Deposit requested: UserID=%s, Amount=%s, TxID=%s", userID, amount, tx.ID)
	s.publish(ctx, []kafka.LedgerEvent{kafka.TransactionEvent(kafka.EventTransactionCreated, tx)})
	return tx, nil
}

// ApproveDeposit зачисляет сумму заявки на баланс
func (s *LedgerService) ApproveDeposit(ctx context.Context, txID string) (*storages.Transaction, error) {
	return s.resolveRequest(ctx, txID, storages.TransactionTypeDeposit, true,
		func(ctx context.Context, repo storages.Repositories, user *storages.User, tx *storages.Transaction, now time.Time) ([]kafka.LedgerEvent, error) {
			completed, err := repo.ListTransactions(ctx, storages.TransactionFilter{
				UserID: user.ID,
				Type:   storages.TransactionTypeDeposit,
				Status: storages.TransactionStatusCompleted,
				Limit:  2,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to check previous deposits: %w", err)
			}

			user.Balance = user.Balance.Add(tx.Amount)

			if s.settings.ReferralTrigger != config.ReferralTriggerDeposit || !onlyTransaction(completed, tx.ID) {
				return nil, nil
			}
			return s.payReferralBonus(ctx, repo, user, tx.Amount, now)
		})
}

// RejectDeposit отклоняет заявку. Средства не зачислялись, баланс не меняется.
func (s *LedgerService) RejectDeposit(ctx context.Context, txID string) (*storages.Transaction, error) {
	return s.resolveRequest(ctx, txID, storages.TransactionTypeDeposit, false, nil)
}

// RequestWithdrawal создает заявку на вывод и сразу списывает сумму с баланса прибыли
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userID string, amount decimal.Decimal, walletAddress, methodID string) (*storages.Transaction, error) {
	amount = pkg.RoundMoney(amount)
	if err := pkg.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if amount.LessThan(s.settings.MinWithdrawal) {
		return nil, fmt.Errorf("%w: minimum withdrawal is %s", ErrBelowMinimum, s.settings.MinWithdrawal)
	}
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, fmt.Errorf("%w: wallet address is required", ErrInvalidInput)
	}
	if strings.TrimSpace(methodID) == "" {
		return nil, fmt.Errorf("%w: withdrawal method is required", ErrInvalidInput)
	}

	now := s.now()
	tx := &storages.Transaction{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Type:               storages.TransactionTypeWithdrawal,
		Status:             storages.TransactionStatusPending,
		Amount:             amount,
		Date:               now,
		WalletAddress:      walletAddress,
		WithdrawalMethodID: methodID,
	}

	var events []kafka.LedgerEvent
	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		user, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		if _, err := repo.GetWithdrawalMethod(ctx, methodID); err != nil {
			return notFound(err, "withdrawal method")
		}

		// Накопленная прибыль доступна к выводу сразу
		result, accrualEvents, err := s.accrueLocked(ctx, repo, user, now)
		if err != nil {
			return err
		}
		user = result.User
		events = accrualEvents

		if user.LastWithdrawal != nil && now.Sub(*user.LastWithdrawal) < s.settings.WithdrawalCooldown {
			next := user.LastWithdrawal.Add(s.settings.WithdrawalCooldown)
			return fmt.Errorf("%w: next withdrawal available at %s", ErrCooldownActive, next.Format(time.RFC3339))
		}
		if amount.GreaterThan(user.ProfitBalance) {
			return fmt.Errorf("%w: profit balance %s, requested %s", ErrInsufficientProfitBalance, user.ProfitBalance, amount)
		}

		user.ProfitBalance = user.ProfitBalance.Sub(amount)
		last := now
		user.LastWithdrawal = &last
		user.UpdatedAt = now
		if err := repo.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record withdrawal: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Withdrawal requested: UserID=%s, Amount=%s, TxID=%s", userID, amount, tx.ID)
	s.publish(ctx, append(events, kafka.TransactionEvent(kafka.EventTransactionCreated, tx)))
	return tx, nil
}

// ApproveWithdrawal подтверждает вывод. Сумма уже списана при создании заявки.
func (s *LedgerService) ApproveWithdrawal(ctx context.Context, txID string) (*storages.Transaction, error) {
	return s.resolveRequest(ctx, txID, storages.TransactionTypeWithdrawal, true,
		func(_ context.Context, _ storages.Repositories, user *storages.User, _ *storages.Transaction, now time.Time) ([]kafka.LedgerEvent, error) {
			last := now
			user.LastWithdrawal = &last
			return nil, nil
		})
}

// RejectWithdrawal отклоняет вывод, возвращает сумму на баланс прибыли
// и снимает ограничение по частоте, наложенное этой заявкой
func (s *LedgerService) RejectWithdrawal(ctx context.Context, txID string) (*storages.Transaction, error) {
	return s.resolveRequest(ctx, txID, storages.TransactionTypeWithdrawal, false,
		func(ctx context.Context, repo storages.Repositories, user *storages.User, tx *storages.Transaction, _ time.Time) ([]kafka.LedgerEvent, error) {
			user.ProfitBalance = user.ProfitBalance.Add(tx.Amount)

			last, err := lastWithdrawal(ctx, repo, user.ID)
			if err != nil {
				return nil, err
			}
			user.LastWithdrawal = last
			return nil, nil
		})
}

// lastWithdrawal возвращает время последнего неотклоненного вывода пользователя
func lastWithdrawal(ctx context.Context, repo storages.Repositories, userID string) (*time.Time, error) {
	txs, err := repo.ListTransactions(ctx, storages.TransactionFilter{
		UserID: userID,
		Type:   storages.TransactionTypeWithdrawal,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}

	var last *time.Time
	for _, tx := range txs {
		if tx.Status == storages.TransactionStatusRejected {
			continue
		}
		at := tx.Date
		if tx.Status == storages.TransactionStatusCompleted && tx.ResolvedAt != nil {
			at = *tx.ResolvedAt
		}
		if last == nil || at.After(*last) {
			t := at
			last = &t
		}
	}
	return last, nil
}

// resolveFunc применяет последствия решения по заявке к пользователю
type resolveFunc func(ctx context.Context, repo storages.Repositories, user *storages.User, tx *storages.Transaction, now time.Time) ([]kafka.LedgerEvent, error)

// resolveRequest переводит заявку из PENDING в конечный статус
func (s *LedgerService) resolveRequest(ctx context.Context, txID, txType string, approve bool, apply resolveFunc) (*storages.Transaction, error) {
	var resolved *storages.Transaction
	var events []kafka.LedgerEvent

	status := storages.TransactionStatusRejected
	event := kafka.EventTransactionRejected
	if approve {
		status = storages.TransactionStatusCompleted
		event = kafka.EventTransactionApproved
	}

	now := s.now()
	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		events = nil

		tx, err := repo.GetTransaction(ctx, txID)
		if err != nil {
			return notFound(err, "transaction")
		}
		if tx.Type != txType {
			return fmt.Errorf("%w: transaction %s is %s, expected %s", ErrWrongType, txID, tx.Type, txType)
		}
		if tx.Status != storages.TransactionStatusPending {
			return fmt.Errorf("%w: transaction %s is %s", ErrInvalidState, txID, tx.Status)
		}

		tx.Status = status
		resolvedAt := now
		tx.ResolvedAt = &resolvedAt
		if err := repo.UpdateTransactionStatus(ctx, tx); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		events = append(events, kafka.TransactionEvent(event, tx))

		if apply != nil {
			user, err := repo.GetUserByID(ctx, tx.UserID)
			if err != nil {
				return notFound(err, "user")
			}

			extra, err := apply(ctx, repo, user, tx, now)
			if err != nil {
				return err
			}

			user.UpdatedAt = now
			if err := repo.UpdateUser(ctx, user); err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
			events = append(events, extra...)
		}

		resolved = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("%s request %s: TxID=%s, Amount=%s", txType, strings.ToLower(status), txID, resolved.Amount)
	s.publish(ctx, events)
	return resolved, nil
}

// onlyTransaction сообщает, что в выборке есть только транзакция txID
func onlyTransaction(txs []storages.Transaction, txID string) bool {
	for _, tx := range txs {
		if tx.ID != txID {
			return false
		}
	}
	return true
}
