package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"invest-ledger/internal/config"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

// InvestInPackage открывает позицию в пакете
func (s *LedgerService) InvestInPackage(ctx context.Context, userID, packageID string, amount decimal.Decimal) (*storages.User, error) {
	amount = pkg.RoundMoney(amount)
	if err := pkg.ValidateAmount(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	var updated *storages.User
	var events []kafka.LedgerEvent

	now := s.now()
	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		user, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}

		pack, err := repo.GetPackage(ctx, packageID)
		if err != nil {
			return notFound(err, "package")
		}

		if err := validateInvestmentAmount(pack, amount); err != nil {
			return err
		}

		// Прибыль по уже открытым позициям начисляется до появления новой
		result, accrualEvents, err := s.accrueLocked(ctx, repo, user, now)
		if err != nil {
			return err
		}
		user = result.User
		events = accrualEvents

		if amount.GreaterThan(user.Balance) {
			return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientBalance, user.Balance, amount)
		}

		previous, err := repo.ListTransactions(ctx, storages.TransactionFilter{
			UserID: user.ID,
			Type:   storages.TransactionTypeInvestment,
			Limit:  1,
		})
		if err != nil {
			return fmt.Errorf("failed to check previous investments: %w", err)
		}

		if len(user.ActiveInvestments()) == 0 {
			start := now
			user.LastProfitCalculation = &start
		}

		user.Balance = user.Balance.Sub(amount)
		user.InvestedAmount = user.InvestedAmount.Add(amount)
		user.Investments = append(user.Investments, storages.Investment{
			ID:                 uuid.NewString(),
			PackageID:          pack.ID,
			PackageName:        pack.Name,
			Amount:             amount,
			DailyProfitPercent: pack.DailyProfitPercent,
			DurationDays:       pack.DurationDays,
			StartDate:          now,
			IsActive:           true,
		})
		user.UpdatedAt = now

		if err := repo.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		tx := &storages.Transaction{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Type:      storages.TransactionTypeInvestment,
			Status:    storages.TransactionStatusCompleted,
			Amount:    amount,
			Date:      now,
			PackageID: pack.ID,
			Details:   pack.Name,
		}
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to record investment: %w", err)
		}
		events = append(events, kafka.TransactionEvent(kafka.EventTransactionCreated, tx))

		if s.settings.ReferralTrigger == config.ReferralTriggerInvestment && len(previous) == 0 {
			bonusEvents, err := s.payReferralBonus(ctx, repo, user, amount, now)
			if err != nil {
				return err
			}
			events = append(events, bonusEvents...)
		}

		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Investment opened: UserID=%s, PackageID=%s, Amount=%s", userID, packageID, amount)
	s.publish(ctx, events)
	return updated, nil
}

func validateInvestmentAmount(pack *storages.InvestmentPackage, amount decimal.Decimal) error {
	switch pack.Kind {
	case storages.PackageBounded:
		if amount.LessThan(pack.MinInvestment) || amount.GreaterThan(pack.MaxInvestment) {
			return fmt.Errorf("%w: amount must be between %s and %s", ErrInvalidAmount, pack.MinInvestment, pack.MaxInvestment)
		}
	case storages.PackageFixed:
		if !amount.Equal(pack.Price) {
			return fmt.Errorf("%w: amount must equal package price %s", ErrInvalidAmount, pack.Price)
		}
	default:
		return fmt.Errorf("%w: unknown package kind %q", ErrInvalidInput, pack.Kind)
	}
	return nil
}

// GetInvestmentPackages возвращает каталог пакетов
func (s *LedgerService) GetInvestmentPackages(ctx context.Context) ([]storages.InvestmentPackage, error) {
	if s.packagesCache != nil {
		if packages, ok := s.packagesCache.Get(); ok {
			s.logger.Debug("Using cached investment packages")
			return packages, nil
		}
	}

	packages, err := s.storage.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	if s.packagesCache != nil {
		s.packagesCache.Set(packages)
	}
	return packages, nil
}

// CreatePackage добавляет пакет в каталог
func (s *LedgerService) CreatePackage(ctx context.Context, pack *storages.InvestmentPackage) (*storages.InvestmentPackage, error) {
	if err := normalizePackage(pack); err != nil {
		return nil, err
	}

	now := s.now()
	pack.ID = uuid.NewString()
	pack.CreatedAt = now
	pack.UpdatedAt = now

	if err := s.storage.CreatePackage(ctx, pack); err != nil {
		return nil, fmt.Errorf("failed to create package: %w", err)
	}
	s.invalidatePackages()

	s.logger.Infof("Package created: %s (%s)", pack.Name, pack.ID)
	return pack, nil
}

// UpdatePackage меняет пакет. Открытые позиции сохраняют свои процент и срок.
func (s *LedgerService) UpdatePackage(ctx context.Context, packageID string, pack *storages.InvestmentPackage) (*storages.InvestmentPackage, error) {
	if err := normalizePackage(pack); err != nil {
		return nil, err
	}

	existing, err := s.storage.GetPackage(ctx, packageID)
	if err != nil {
		return nil, notFound(err, "package")
	}

	pack.ID = existing.ID
	pack.CreatedAt = existing.CreatedAt
	pack.UpdatedAt = s.now()

	if err := s.storage.UpdatePackage(ctx, pack); err != nil {
		if errors.Is(err, storages.ErrNotFound) {
			return nil, notFound(err, "package")
		}
		return nil, fmt.Errorf("failed to update package: %w", err)
	}
	s.invalidatePackages()

	s.logger.Infof("Package updated: %s", pack.ID)
	return pack, nil
}

// DeletePackage удаляет пакет. Позиции в нем перестают приносить прибыль.
func (s *LedgerService) DeletePackage(ctx context.Context, packageID string) error {
	if err := s.storage.DeletePackage(ctx, packageID); err != nil {
		return notFound(err, "package")
	}
	s.invalidatePackages()

	s.logger.Infof("Package deleted: %s", packageID)
	return nil
}

func (s *LedgerService) invalidatePackages() {
	if s.packagesCache != nil {
		s.packagesCache.Invalidate()
	}
}

// normalizePackage проверяет форму пакета и обнуляет поля другого вида
func normalizePackage(pack *storages.InvestmentPackage) error {
	pack.Name = strings.TrimSpace(pack.Name)
	if pack.Name == "" {
		return fmt.Errorf("%w: package name is required", ErrInvalidInput)
	}
	if !pack.DailyProfitPercent.IsPositive() {
		return fmt.Errorf("%w: daily profit percent must be positive", ErrInvalidInput)
	}
	pack.DailyProfitPercent = pkg.RoundMoney(pack.DailyProfitPercent)

	switch pack.Kind {
	case storages.PackageBounded:
		if !pack.MinInvestment.IsPositive() || pack.MaxInvestment.LessThan(pack.MinInvestment) {
			return fmt.Errorf("%w: investment range is invalid", ErrInvalidInput)
		}
		if pack.DurationDays <= 0 || pack.DurationDays > storages.MaxDurationDays {
			return fmt.Errorf("%w: duration must be between 1 and %d days", ErrInvalidInput, storages.MaxDurationDays)
		}
		pack.MinInvestment = pkg.RoundMoney(pack.MinInvestment)
		pack.MaxInvestment = pkg.RoundMoney(pack.MaxInvestment)
		pack.Price = decimal.Zero
	case storages.PackageFixed:
		if !pack.Price.IsPositive() {
			return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		pack.Price = pkg.RoundMoney(pack.Price)
		pack.MinInvestment = decimal.Zero
		pack.MaxInvestment = decimal.Zero
		pack.DurationDays = 0
	default:
		return fmt.Errorf("%w: package kind must be %s or %s", ErrInvalidInput, storages.PackageBounded, storages.PackageFixed)
	}
	return nil
}
