package service

import (
	"errors"
	"fmt"

	"invest-ledger/internal/storages"
)

// Ошибки бизнес-правил. Проверяются через errors.Is.
var (
	ErrNotFound                  = errors.New("not found")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInvalidInput              = errors.New("invalid input")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientProfitBalance = errors.New("insufficient profit balance")
	ErrBelowMinimum              = errors.New("amount is below minimum")
	ErrCooldownActive            = errors.New("withdrawal cooldown is active")
	ErrDuplicateIdentity         = errors.New("username already exists")
	ErrWrongType                 = errors.New("wrong transaction type")
	ErrInvalidState              = errors.New("transaction is not pending")
	ErrInvalidCredentials        = errors.New("invalid username or password")
)

// notFound переводит storages.ErrNotFound в ErrNotFound с указанием сущности
func notFound(err error, entity string) error {
	if errors.Is(err, storages.ErrNotFound) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", entity, err)
}
