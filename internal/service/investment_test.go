package service

import (
	"testing"
	"time"

	"invest-ledger/internal/accrual"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/storages"
)

func TestAccrualThreeDays(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "1000", "0")
	pack := f.boundedPackage(t, "100", "10000", "5", 30)

	if _, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("1000")); err != nil {
		t.Fatalf("Failed to invest: %v", err)
	}

	f.clock.Advance(72*time.Hour + time.Hour)

	data, err := f.svc.GetDashboardData(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to get dashboard: %v", err)
	}
	expectAmount(t, "profit balance", data.User.ProfitBalance, "150")
	expectAmount(t, "total profit", data.TotalProfit, "150")
	if !data.User.LastProfitCalculation.Equal(t0.Add(72 * time.Hour)) {
		t.Fatalf("Expected cursor at t0+72h, got %v", data.User.LastProfitCalculation)
	}

	profits := f.transactions(t, storages.TransactionFilter{UserID: user.ID, Type: storages.TransactionTypeProfit})
	if len(profits) != 3 {
		t.Fatalf("Expected 3 profit transactions, got %d", len(profits))
	}
	for _, tx := range profits {
		expectAmount(t, "profit", tx.Amount, "50")
	}

	// Повторный вызов без прошедшего времени ничего не добавляет
	again, err := f.svc.GetDashboardData(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to get dashboard: %v", err)
	}
	expectAmount(t, "profit balance", again.User.ProfitBalance, "150")
	if n := len(f.transactions(t, storages.TransactionFilter{UserID: user.ID, Type: storages.TransactionTypeProfit})); n != 3 {
		t.Fatalf("Expected still 3 profit transactions, got %d", n)
	}
	if len(again.RecentTransactions) != 4 {
		t.Fatalf("Expected 4 recent transactions, got %d", len(again.RecentTransactions))
	}
	if again.RecentTransactions[0].Type != storages.TransactionTypeProfit {
		t.Fatalf("Expected newest transaction first, got %s", again.RecentTransactions[0].Type)
	}
	if f.publisher.count(kafka.EventTransactionCreated) != 4 {
		t.Fatalf("Expected 4 created events, got %d", f.publisher.count(kafka.EventTransactionCreated))
	}
}

func TestAccrueProfitNoPositionsIsNoop(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.clock.Advance(10 * accrual.Period)

	result, err := f.svc.AccrueProfit(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Changed() {
		t.Fatal("Expected no changes for user without positions")
	}

	_, err = f.svc.AccrueProfit(f.ctx, "missing")
	expectErr(t, err, ErrNotFound)
}

func TestInvestInsufficientBalance(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	pack := f.fixedPackage(t, "5", "1")

	_, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("5"))
	expectErr(t, err, ErrInsufficientBalance)

	stored := f.user(t, user.ID)
	expectAmount(t, "balance", stored.Balance, "0")
	if len(stored.Investments) != 0 {
		t.Fatal("Expected no positions after failed investment")
	}
	if n := len(f.transactions(t, storages.TransactionFilter{UserID: user.ID})); n != 0 {
		t.Fatalf("Expected no transactions, got %d", n)
	}
}

func TestInvestValidation(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "5000", "0")
	bounded := f.boundedPackage(t, "100", "1000", "2", 10)
	fixed := f.fixedPackage(t, "250", "1")

	tests := []struct {
		name      string
		userID    string
		packageID string
		amount    string
		want      error
	}{
		{"zero amount", user.ID, bounded.ID, "0", ErrInvalidAmount},
		{"negative amount", user.ID, bounded.ID, "-5", ErrInvalidAmount},
		{"below range", user.ID, bounded.ID, "99.99", ErrInvalidAmount},
		{"above range", user.ID, bounded.ID, "1000.01", ErrInvalidAmount},
		{"fixed price mismatch", user.ID, fixed.ID, "200", ErrInvalidAmount},
		{"missing package", user.ID, "missing", "100", ErrNotFound},
		{"missing user", "missing", bounded.ID, "100", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.InvestInPackage(f.ctx, tt.userID, tt.packageID, dec(tt.amount))
			expectErr(t, err, tt.want)
		})
	}

	expectAmount(t, "balance", f.user(t, user.ID).Balance, "5000")
}

func TestInvestMovesBalanceAndSnapshotsPackage(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "1000", "0")
	pack := f.fixedPackage(t, "400", "3")

	updated, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("400"))
	if err != nil {
		t.Fatalf("Failed to invest: %v", err)
	}
	expectAmount(t, "balance", updated.Balance, "600")
	expectAmount(t, "invested", updated.InvestedAmount, "400")
	if len(updated.Investments) != 1 || !updated.Investments[0].Perpetual() {
		t.Fatalf("Expected one perpetual position, got %+v", updated.Investments)
	}

	pack.DailyProfitPercent = dec("10")
	pack.Price = dec("400")
	if _, err := f.svc.UpdatePackage(f.ctx, pack.ID, pack); err != nil {
		t.Fatalf("Failed to update package: %v", err)
	}

	f.clock.Advance(accrual.Period)
	result, err := f.svc.AccrueProfit(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to accrue: %v", err)
	}
	expectAmount(t, "profit", result.Total, "12")

	investments := f.transactions(t, storages.TransactionFilter{UserID: user.ID, Type: storages.TransactionTypeInvestment})
	if len(investments) != 1 || investments[0].Status != storages.TransactionStatusCompleted {
		t.Fatalf("Expected one completed investment transaction, got %+v", investments)
	}
}

func TestDeletedPackageStopsProfit(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "1000", "0")
	pack := f.fixedPackage(t, "1000", "1")

	if _, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("1000")); err != nil {
		t.Fatalf("Failed to invest: %v", err)
	}
	if err := f.svc.DeletePackage(f.ctx, pack.ID); err != nil {
		t.Fatalf("Failed to delete package: %v", err)
	}

	f.clock.Advance(2 * accrual.Period)
	result, err := f.svc.AccrueProfit(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Expected accrual to succeed, got %v", err)
	}
	if !result.Total.IsZero() || result.Periods != 2 {
		t.Fatalf("Expected 2 empty periods, got %d periods total %s", result.Periods, result.Total)
	}

	expectErr(t, f.svc.DeletePackage(f.ctx, pack.ID), ErrNotFound)
}

func TestMaturityReturnsPrincipal(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "500", "0")
	pack := f.boundedPackage(t, "100", "1000", "10", 2)

	if _, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("500")); err != nil {
		t.Fatalf("Failed to invest: %v", err)
	}

	f.clock.Advance(3 * accrual.Period)
	data, err := f.svc.GetDashboardData(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to get dashboard: %v", err)
	}

	expectAmount(t, "balance", data.User.Balance, "500")
	expectAmount(t, "invested", data.User.InvestedAmount, "0")
	expectAmount(t, "profit balance", data.User.ProfitBalance, "100")
	if len(data.ActiveInvestments) != 0 {
		t.Fatalf("Expected no active positions, got %d", len(data.ActiveInvestments))
	}
	if f.publisher.count(kafka.EventInvestmentClosed) != 1 {
		t.Fatal("Expected one investment.closed event")
	}
}

func TestReinvestAfterMaturityResetsCursor(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "100", "0")
	pack := f.boundedPackage(t, "100", "1000", "1", 1)

	if _, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("100")); err != nil {
		t.Fatalf("Failed to invest: %v", err)
	}

	f.clock.Advance(5*accrual.Period + time.Hour)
	updated, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("100"))
	if err != nil {
		t.Fatalf("Failed to reinvest: %v", err)
	}

	if !updated.LastProfitCalculation.Equal(f.clock.Now()) {
		t.Fatalf("Expected cursor reset to new start, got %v", updated.LastProfitCalculation)
	}
	expectAmount(t, "profit balance", updated.ProfitBalance, "1")
	expectAmount(t, "balance", updated.Balance, "0")
	expectAmount(t, "invested", updated.InvestedAmount, "100")
}

func TestPackageValidationAndCache(t *testing.T) {
	f := newFixture(t, DefaultSettings())

	_, err := f.svc.CreatePackage(f.ctx, &storages.InvestmentPackage{Name: "Broken", Kind: storages.PackageBounded, MinInvestment: dec("100"), MaxInvestment: dec("50"), DailyProfitPercent: dec("1"), DurationDays: 5})
	expectErr(t, err, ErrInvalidInput)

	_, err = f.svc.CreatePackage(f.ctx, &storages.InvestmentPackage{Name: "NoPrice", Kind: storages.PackageFixed, DailyProfitPercent: dec("1")})
	expectErr(t, err, ErrInvalidInput)

	_, err = f.svc.CreatePackage(f.ctx, &storages.InvestmentPackage{Name: "Unknown", Kind: "OTHER", DailyProfitPercent: dec("1")})
	expectErr(t, err, ErrInvalidInput)

	packages, err := f.svc.GetInvestmentPackages(f.ctx)
	if err != nil || len(packages) != 0 {
		t.Fatalf("Expected empty catalog, got %v %v", packages, err)
	}

	f.fixedPackage(t, "100", "1")
	packages, err = f.svc.GetInvestmentPackages(f.ctx)
	if err != nil || len(packages) != 1 {
		t.Fatalf("Expected cache invalidated after create, got %v %v", packages, err)
	}

	_, err = f.svc.UpdatePackage(f.ctx, "missing", &storages.InvestmentPackage{Name: "X", Kind: storages.PackageFixed, Price: dec("1"), DailyProfitPercent: dec("1")})
	expectErr(t, err, ErrNotFound)
}

func TestLongDurationPackage(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	user := f.register(t, "alice", "")
	f.setBalances(t, user.ID, "1000", "0")

	_, err := f.svc.CreatePackage(f.ctx, &storages.InvestmentPackage{
		Name:               "Endless",
		Kind:               storages.PackageBounded,
		MinInvestment:      dec("100"),
		MaxInvestment:      dec("5000"),
		DailyProfitPercent: dec("5"),
		DurationDays:       storages.MaxDurationDays + 1,
	})
	expectErr(t, err, ErrInvalidInput)

	pack := f.boundedPackage(t, "100", "5000", "5", storages.MaxDurationDays)
	if _, err := f.svc.InvestInPackage(f.ctx, user.ID, pack.ID, dec("1000")); err != nil {
		t.Fatalf("Failed to invest: %v", err)
	}

	f.clock.Advance(25 * time.Hour)
	data, err := f.svc.GetDashboardData(f.ctx, user.ID)
	if err != nil {
		t.Fatalf("Failed to get dashboard: %v", err)
	}
	expectAmount(t, "balance", data.User.Balance, "0")
	expectAmount(t, "profit balance", data.User.ProfitBalance, "50")
	expectAmount(t, "invested", data.User.InvestedAmount, "1000")
	if len(data.ActiveInvestments) != 1 {
		t.Fatalf("Expected position to stay open, got %d active", len(data.ActiveInvestments))
	}
}
