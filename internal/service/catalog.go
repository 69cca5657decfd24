package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

// ListDepositMethods возвращает способы пополнения
func (s *LedgerService) ListDepositMethods(ctx context.Context) ([]storages.DepositMethod, error) {
	methods, err := s.storage.ListDepositMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposit methods: %w", err)
	}
	return methods, nil
}

// CreateDepositMethod добавляет способ пополнения
func (s *LedgerService) CreateDepositMethod(ctx context.Context, name, address string) (*storages.DepositMethod, error) {
	method := &storages.DepositMethod{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Address: strings.TrimSpace(address),
	}
	if method.Name == "" || method.Address == "" {
		return nil, fmt.Errorf("%w: name and address are required", ErrInvalidInput)
	}

	if err := s.storage.CreateDepositMethod(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create deposit method: %w", err)
	}

	s.logger.Infof("Deposit method created: %s", method.Name)
	return method, nil
}

// UpdateDepositMethod меняет способ пополнения
func (s *LedgerService) UpdateDepositMethod(ctx context.Context, methodID, name, address string) (*storages.DepositMethod, error) {
	method := &storages.DepositMethod{
		ID:      methodID,
		Name:    strings.TrimSpace(name),
		Address: strings.TrimSpace(address),
	}
	if method.Name == "" || method.Address == "" {
		return nil, fmt.Errorf("%w: name and address are required", ErrInvalidInput)
	}

	if err := s.storage.UpdateDepositMethod(ctx, method); err != nil {
		return nil, notFound(err, "deposit method")
	}
	return method, nil
}

// DeleteDepositMethod удаляет способ пополнения
func (s *LedgerService) DeleteDepositMethod(ctx context.Context, methodID string) error {
	if err := s.storage.DeleteDepositMethod(ctx, methodID); err != nil {
		return notFound(err, "deposit method")
	}
	s.logger.Infof("Deposit method deleted: %s", methodID)
	return nil
}

// ListWithdrawalMethods возвращает способы вывода
func (s *LedgerService) ListWithdrawalMethods(ctx context.Context) ([]storages.WithdrawalMethod, error) {
	methods, err := s.storage.ListWithdrawalMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawal methods: %w", err)
	}
	return methods, nil
}

// CreateWithdrawalMethod добавляет способ вывода
func (s *LedgerService) CreateWithdrawalMethod(ctx context.Context, name string) (*storages.WithdrawalMethod, error) {
	method := &storages.WithdrawalMethod{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if method.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if err := s.storage.CreateWithdrawalMethod(ctx, method); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal method: %w", err)
	}

	s.logger.Infof("Withdrawal method created: %s", method.Name)
	return method, nil
}

// UpdateWithdrawalMethod меняет способ вывода
func (s *LedgerService) UpdateWithdrawalMethod(ctx context.Context, methodID, name string) (*storages.WithdrawalMethod, error) {
	method := &storages.WithdrawalMethod{ID: methodID, Name: strings.TrimSpace(name)}
	if method.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	if err := s.storage.UpdateWithdrawalMethod(ctx, method); err != nil {
		return nil, notFound(err, "withdrawal method")
	}
	return method, nil
}

// DeleteWithdrawalMethod удаляет способ вывода
func (s *LedgerService) DeleteWithdrawalMethod(ctx context.Context, methodID string) error {
	if err := s.storage.DeleteWithdrawalMethod(ctx, methodID); err != nil {
		return notFound(err, "withdrawal method")
	}
	s.logger.Infof("Withdrawal method deleted: %s", methodID)
	return nil
}

// CreatePasswordResetRequest регистрирует заявку на сброс пароля.
// Существование пользователя не проверяется, чтобы не раскрывать имена.
func (s *LedgerService) CreatePasswordResetRequest(ctx context.Context, username, contact string) (*storages.PasswordResetRequest, error) {
	req := &storages.PasswordResetRequest{
		ID:        uuid.NewString(),
		Username:  pkg.NormalizeUsername(username),
		Contact:   strings.TrimSpace(contact),
		Status:    storages.ResetStatusPending,
		CreatedAt: s.now(),
	}
	if req.Username == "" || req.Contact == "" {
		return nil, fmt.Errorf("%w: username and contact are required", ErrInvalidInput)
	}

	if err := s.storage.CreateResetRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create password reset request: %w", err)
	}

	s.logger.Infof("Password reset requested for user: %s", req.Username)
	return req, nil
}

// ListPasswordResetRequests возвращает заявки; пустой status - все
func (s *LedgerService) ListPasswordResetRequests(ctx context.Context, status string) ([]storages.PasswordResetRequest, error) {
	if status != "" && status != storages.ResetStatusPending && status != storages.ResetStatusResolved {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	requests, err := s.storage.ListResetRequests(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list password reset requests: %w", err)
	}
	return requests, nil
}

// ResolvePasswordResetRequest закрывает заявку.
// Непустой newPassword становится новым паролем пользователя.
func (s *LedgerService) ResolvePasswordResetRequest(ctx context.Context, requestID, newPassword string) (*storages.PasswordResetRequest, error) {
	var hashed string
	if newPassword != "" {
		if err := validatePassword(newPassword); err != nil {
			return nil, err
		}
		var err error
		if hashed, err = hashPassword(newPassword); err != nil {
			return nil, err
		}
	}

	var resolved *storages.PasswordResetRequest
	now := s.now()
	err := s.storage.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		req, err := repo.GetResetRequest(ctx, requestID)
		if err != nil {
			return notFound(err, "password reset request")
		}
		if req.Status != storages.ResetStatusPending {
			return fmt.Errorf("%w: password reset request %s is %s", ErrInvalidState, requestID, req.Status)
		}

		if hashed != "" {
			user, err := repo.GetUserByUsername(ctx, req.Username)
			if err != nil {
				if errors.Is(err, storages.ErrNotFound) {
					return notFound(err, "user")
				}
				return fmt.Errorf("failed to get user: %w", err)
			}
			user.PasswordHash = hashed
			user.UpdatedAt = now
			if err := repo.UpdateUser(ctx, user); err != nil {
				return fmt.Errorf("failed to update user: %w", err)
			}
		}

		req.Status = storages.ResetStatusResolved
		resolvedAt := now
		req.ResolvedAt = &resolvedAt
		if err := repo.UpdateResetRequest(ctx, req); err != nil {
			return fmt.Errorf("failed to update password reset request: %w", err)
		}

		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Password reset request resolved: %s", requestID)
	return resolved, nil
}
