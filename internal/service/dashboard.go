package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
)

// DashboardData данные личного кабинета
type DashboardData struct {
	User               *storages.User         `json:"user"`
	ActiveInvestments  []storages.Investment  `json:"activeInvestments"`
	RecentTransactions []storages.Transaction `json:"recentTransactions"`
	TotalProfit        decimal.Decimal        `json:"totalProfit"`
}

// AdminDashboardData сводка для администратора
type AdminDashboardData struct {
	TotalUsers            int64                  `json:"totalUsers"`
	TotalDeposits         decimal.Decimal        `json:"totalDeposits"`
	TotalWithdrawals      decimal.Decimal        `json:"totalWithdrawals"`
	NetInvested           decimal.Decimal        `json:"netInvested"`
	PendingDeposits       []storages.Transaction `json:"pendingDeposits"`
	PendingWithdrawals    []storages.Transaction `json:"pendingWithdrawals"`
	PendingPasswordResets int                    `json:"pendingPasswordResets"`
}

// GetDashboardData догоняет начисления и возвращает данные кабинета
func (s *LedgerService) GetDashboardData(ctx context.Context, userID string) (*DashboardData, error) {
	result, err := s.AccrueProfit(ctx, userID)
	if err != nil {
		return nil, err
	}
	user := result.User

	recent, err := s.storage.ListTransactions(ctx, storages.TransactionFilter{
		UserID: userID,
		Limit:  s.settings.RecentTransactions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}

	totalProfit, err := s.storage.SumTransactions(ctx, storages.TransactionFilter{
		UserID: userID,
		Type:   storages.TransactionTypeProfit,
		Status: storages.TransactionStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sum profit: %w", err)
	}

	active := user.ActiveInvestments()
	if active == nil {
		active = []storages.Investment{}
	}

	return &DashboardData{
		User:               user,
		ActiveInvestments:  active,
		RecentTransactions: recent,
		TotalProfit:        totalProfit,
	}, nil
}

// GetAdminDashboardData возвращает сводку по системе
func (s *LedgerService) GetAdminDashboardData(ctx context.Context) (*AdminDashboardData, error) {
	totalUsers, err := s.storage.CountUsers(ctx, storages.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	totalDeposits, err := s.storage.SumTransactions(ctx, storages.TransactionFilter{
		Type:   storages.TransactionTypeDeposit,
		Status: storages.TransactionStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}

	totalWithdrawals, err := s.storage.SumTransactions(ctx, storages.TransactionFilter{
		Type:   storages.TransactionTypeWithdrawal,
		Status: storages.TransactionStatusCompleted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	netInvested, err := s.storage.SumInvested(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum invested: %w", err)
	}

	pendingDeposits, err := s.storage.ListTransactions(ctx, storages.TransactionFilter{
		Type:   storages.TransactionTypeDeposit,
		Status: storages.TransactionStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending deposits: %w", err)
	}

	pendingWithdrawals, err := s.storage.ListTransactions(ctx, storages.TransactionFilter{
		Type:   storages.TransactionTypeWithdrawal,
		Status: storages.TransactionStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending withdrawals: %w", err)
	}

	resets, err := s.storage.ListResetRequests(ctx, storages.ResetStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list password resets: %w", err)
	}

	return &AdminDashboardData{
		TotalUsers:            totalUsers,
		TotalDeposits:         totalDeposits,
		TotalWithdrawals:      totalWithdrawals,
		NetInvested:           netInvested,
		PendingDeposits:       pendingDeposits,
		PendingWithdrawals:    pendingWithdrawals,
		PendingPasswordResets: len(resets),
	}, nil
}
