package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

// payReferralBonus начисляет бонус пригласившему пользователю.
// Бонус за одного приглашенного выплачивается не более одного раза.
func (s *LedgerService) payReferralBonus(
	ctx context.Context,
	repo storages.Repositories,
	referred *storages.User,
	amount decimal.Decimal,
	now time.Time,
) ([]kafka.LedgerEvent, error) {
	if referred.ReferredBy == "" || !s.settings.ReferralBonusPercent.IsPositive() {
		return nil, nil
	}

	paid, err := repo.ListTransactions(ctx, storages.TransactionFilter{
		UserID:        referred.ReferredBy,
		Type:          storages.TransactionTypeReferralBonus,
		RelatedUserID: referred.ID,
		Limit:         1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check referral bonus: %w", err)
	}
	if len(paid) > 0 {
		return nil, nil
	}

	referrer, err := repo.GetUserByID(ctx, referred.ReferredBy)
	if err != nil {
		if errors.Is(err, storages.ErrNotFound) {
			s.logger.Warnf("Referrer %s of user %s not found, skipping bonus", referred.ReferredBy, referred.ID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}

	bonus := pkg.Percent(amount, s.settings.ReferralBonusPercent)
	if !bonus.IsPositive() {
		return nil, nil
	}

	referrer.ProfitBalance = referrer.ProfitBalance.Add(bonus)
	referrer.UpdatedAt = now
	if err := repo.UpdateUser(ctx, referrer); err != nil {
		return nil, fmt.Errorf("failed to update referrer: %w", err)
	}

	tx := &storages.Transaction{
		ID:            uuid.NewString(),
		UserID:        referrer.ID,
		Type:          storages.TransactionTypeReferralBonus,
		Status:        storages.TransactionStatusCompleted,
		Amount:        bonus,
		Date:          now,
		RelatedUserID: referred.ID,
		Details:       "Referral bonus from " + referred.Username,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to record referral bonus: %w", err)
	}

	s.logger.Infof("Referral bonus paid: Referrer=%s, Referred=%s, Amount=%s", referrer.ID, referred.ID, bonus)
	return []kafka.LedgerEvent{kafka.TransactionEvent(kafka.EventTransactionCreated, tx)}, nil
}
