package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
)

var _ storages.Storage = (*MemoryStorage)(nil)

func (s *MemoryStorage) CreateUser(ctx context.Context, user *storages.User) error {
	return s.write(ctx, func(r *repo) error {
		return r.CreateUser(ctx, user)
	})
}

func (s *MemoryStorage) GetUserByID(ctx context.Context, userID string) (*storages.User, error) {
	var result *storages.User
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetUserByID(ctx, userID)
		return err
	})
	return result, err
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*storages.User, error) {
	var result *storages.User
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetUserByUsername(ctx, username)
		return err
	})
	return result, err
}

func (s *MemoryStorage) GetUserByReferralCode(ctx context.Context, code string) (*storages.User, error) {
	var result *storages.User
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetUserByReferralCode(ctx, code)
		return err
	})
	return result, err
}

func (s *MemoryStorage) UpdateUser(ctx context.Context, user *storages.User) error {
	return s.write(ctx, func(r *repo) error {
		return r.UpdateUser(ctx, user)
	})
}

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]storages.User, error) {
	var result []storages.User
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListUsers(ctx)
		return err
	})
	return result, err
}

func (s *MemoryStorage) ListUserIDsWithActiveInvestments(ctx context.Context) ([]string, error) {
	var result []string
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListUserIDsWithActiveInvestments(ctx)
		return err
	})
	return result, err
}

func (s *MemoryStorage) CountUsers(ctx context.Context, role string) (int64, error) {
	var result int64
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.CountUsers(ctx, role)
		return err
	})
	return result, err
}

func (s *MemoryStorage) SumInvested(ctx context.Context) (decimal.Decimal, error) {
	var result decimal.Decimal
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.SumInvested(ctx)
		return err
	})
	return result, err
}

func (s *MemoryStorage) CreatePackage(ctx context.Context, pkg *storages.InvestmentPackage) error {
	return s.write(ctx, func(r *repo) error {
		return r.CreatePackage(ctx, pkg)
	})
}

func (s *MemoryStorage) GetPackage(ctx context.Context, packageID string) (*storages.InvestmentPackage, error) {
	var result *storages.InvestmentPackage
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetPackage(ctx, packageID)
		return err
	})
	return result, err
}

func (s *MemoryStorage) ListPackages(ctx context.Context) ([]storages.InvestmentPackage, error) {
	var result []storages.InvestmentPackage
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListPackages(ctx)
		return err
	})
	return result, err
}

func (s *MemoryStorage) UpdatePackage(ctx context.Context, pkg *storages.InvestmentPackage) error {
	return s.write(ctx, func(r *repo) error {
		return r.UpdatePackage(ctx, pkg)
	})
}

func (s *MemoryStorage) DeletePackage(ctx context.Context, packageID string) error {
	return s.write(ctx, func(r *repo) error {
		return r.DeletePackage(ctx, packageID)
	})
}

func (s *MemoryStorage) CreateTransaction(ctx context.Context, tx *storages.Transaction) error {
	return s.write(ctx, func(r *repo) error {
		return r.CreateTransaction(ctx, tx)
	})
}

func (s *MemoryStorage) GetTransaction(ctx context.Context, txID string) (*storages.Transaction, error) {
	var result *storages.Transaction
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetTransaction(ctx, txID)
		return err
	})
	return result, err
}

func (s *MemoryStorage) UpdateTransactionStatus(ctx context.Context, tx *storages.Transaction) error {
	return s.write(ctx, func(r *repo) error {
		return r.UpdateTransactionStatus(ctx, tx)
	})
}

func (s *MemoryStorage) ListTransactions(ctx context.Context, filter storages.TransactionFilter) ([]storages.Transaction, error) {
	var result []storages.Transaction
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListTransactions(ctx, filter)
		return err
	})
	return result, err
}

func (s *MemoryStorage) SumTransactions(ctx context.Context, filter storages.TransactionFilter) (decimal.Decimal, error) {
	var result decimal.Decimal
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.SumTransactions(ctx, filter)
		return err
	})
	return result, err
}

func (s *MemoryStorage) CreateDepositMethod(ctx context.Context, method *storages.DepositMethod) error {
	return s.write(ctx, func(r *repo) error {
		return r.CreateDepositMethod(ctx, method)
	})
}

func (s *MemoryStorage) GetDepositMethod(ctx context.Context, methodID string) (*storages.DepositMethod, error) {
	var result *storages.DepositMethod
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetDepositMethod(ctx, methodID)
		return err
	})
	return result, err
}

func (s *MemoryStorage) ListDepositMethods(ctx context.Context) ([]storages.DepositMethod, error) {
	var result []storages.DepositMethod
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListDepositMethods(ctx)
		return err
	})
	return result, err
}

func (s *MemoryStorage) UpdateDepositMethod(ctx context.Context, method *storages.DepositMethod) error {
	return s.write(ctx, func(r *repo) error {
		return r.UpdateDepositMethod(ctx, method)
	})
}

func (s *MemoryStorage) DeleteDepositMethod(ctx context.Context, methodID string) error {
	return s.write(ctx, func(r *repo) error {
		return r.DeleteDepositMethod(ctx, methodID)
	})
}

func (s *MemoryStorage) CreateWithdrawalMethod(ctx context.Context, method *storages.WithdrawalMethod) error {
	return s.write(ctx, func(r *repo) error {
		return r.CreateWithdrawalMethod(ctx, method)
	})
}

func (s *MemoryStorage) GetWithdrawalMethod(ctx context.Context, methodID string) (*storages.WithdrawalMethod, error) {
	var result *storages.WithdrawalMethod
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetWithdrawalMethod(ctx, methodID)
		return err
	})
	return result, err
}

func (s *MemoryStorage) ListWithdrawalMethods(ctx context.Context) ([]storages.WithdrawalMethod, error) {
	var result []storages.WithdrawalMethod
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListWithdrawalMethods(ctx)
		return err
	})
	return result, err
}

func (s *MemoryStorage) UpdateWithdrawalMethod(ctx context.Context, method *storages.WithdrawalMethod) error {
	return s.write(ctx, func(r *repo) error {
		return r.UpdateWithdrawalMethod(ctx, method)
	})
}

func (s *MemoryStorage) DeleteWithdrawalMethod(ctx context.Context, methodID string) error {
	return s.write(ctx, func(r *repo) error {
		return r.DeleteWithdrawalMethod(ctx, methodID)
	})
}

func (s *MemoryStorage) CreateResetRequest(ctx context.Context, req *storages.PasswordResetRequest) error {
	return s.write(ctx, func(r *repo) error {
		return r.CreateResetRequest(ctx, req)
	})
}

func (s *MemoryStorage) GetResetRequest(ctx context.Context, requestID string) (*storages.PasswordResetRequest, error) {
	var result *storages.PasswordResetRequest
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.GetResetRequest(ctx, requestID)
		return err
	})
	return result, err
}

func (s *MemoryStorage) ListResetRequests(ctx context.Context, status string) ([]storages.PasswordResetRequest, error) {
	var result []storages.PasswordResetRequest
	err := s.read(func(r *repo) error {
		var err error
		result, err = r.ListResetRequests(ctx, status)
		return err
	})
	return result, err
}

func (s *MemoryStorage) UpdateResetRequest(ctx context.Context, req *storages.PasswordResetRequest) error {
	return s.write(ctx, func(r *repo) error {
		return r.UpdateResetRequest(ctx, req)
	})
}
