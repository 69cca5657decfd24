package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/logger"
	"invest-ledger/internal/storages"
)

func newUser(id, username string) *storages.User {
	return &storages.User{
		ID:           id,
		Username:     username,
		Role:         storages.RoleUser,
		ReferralCode: "REF-" + id,
		Balance:      decimal.NewFromInt(100),
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	store := New(logger.Discard())
	ctx := context.Background()

	if err := store.CreateUser(ctx, newUser("u1", "Alice")); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	err := store.CreateUser(ctx, newUser("u2", "alice"))
	if !errors.Is(err, storages.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate for case-insensitive username, got %v", err)
	}

	u, err := store.GetUserByReferralCode(ctx, "REF-u1")
	if err != nil || u.ID != "u1" {
		t.Fatalf("Expected user u1 by referral code, got %v, %v", u, err)
	}
}

func TestWithTransactionRollback(t *testing.T) {
	store := New(logger.Discard())
	ctx := context.Background()
	store.CreateUser(ctx, newUser("u1", "alice"))

	failure := errors.New("boom")
	err := store.WithTransaction(ctx, func(ctx context.Context, repo storages.Repositories) error {
		user, err := repo.GetUserByID(ctx, "u1")
		if err != nil {
			return err
		}
		user.Balance = decimal.Zero
		if err := repo.UpdateUser(ctx, user); err != nil {
			return err
		}
		if err := repo.CreateTransaction(ctx, &storages.Transaction{ID: "t1", UserID: "u1"}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("Expected transaction error, got %v", err)
	}

	user, _ := store.GetUserByID(ctx, "u1")
	if !user.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("Expected balance to stay 100, got %s", user.Balance)
	}
	if _, err := store.GetTransaction(ctx, "t1"); !errors.Is(err, storages.ErrNotFound) {
		t.Fatalf("Expected rolled back transaction to be absent, got %v", err)
	}
}

func TestReturnedUserIsDetached(t *testing.T) {
	store := New(logger.Discard())
	ctx := context.Background()
	store.CreateUser(ctx, newUser("u1", "alice"))

	user, _ := store.GetUserByID(ctx, "u1")
	user.Balance = decimal.Zero
	user.Investments = append(user.Investments, storages.Investment{ID: "i1", IsActive: true})

	stored, _ := store.GetUserByID(ctx, "u1")
	if !stored.Balance.Equal(decimal.NewFromInt(100)) || len(stored.Investments) != 0 {
		t.Fatal("Expected stored user to be unaffected by caller mutations")
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	store := New(logger.Discard())
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	store.CreateTransaction(ctx, &storages.Transaction{ID: "a", UserID: "u1", Type: storages.TransactionTypeDeposit, Date: base})
	store.CreateTransaction(ctx, &storages.Transaction{ID: "b", UserID: "u1", Type: storages.TransactionTypeProfit, Date: base.Add(48 * time.Hour)})
	store.CreateTransaction(ctx, &storages.Transaction{ID: "c", UserID: "u2", Type: storages.TransactionTypeProfit, Date: base.Add(24 * time.Hour)})
	store.CreateTransaction(ctx, &storages.Transaction{ID: "d", UserID: "u1", Type: storages.TransactionTypeProfit, Date: base.Add(48 * time.Hour)})

	txs, err := store.ListTransactions(ctx, storages.TransactionFilter{UserID: "u1"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	want := []string{"d", "b", "a"}
	if len(txs) != len(want) {
		t.Fatalf("Expected %d transactions, got %d", len(want), len(txs))
	}
	for i, id := range want {
		if txs[i].ID != id {
			t.Fatalf("Position %d: expected %s, got %s", i, id, txs[i].ID)
		}
	}

	limited, _ := store.ListTransactions(ctx, storages.TransactionFilter{Type: storages.TransactionTypeProfit, Limit: 2})
	if len(limited) != 2 || limited[0].ID != "d" {
		t.Fatalf("Unexpected limited result: %+v", limited)
	}
}

func TestSumAndCount(t *testing.T) {
	store := New(logger.Discard())
	ctx := context.Background()

	u1 := newUser("u1", "alice")
	u1.InvestedAmount = decimal.NewFromInt(300)
	u2 := newUser("u2", "bob")
	u2.InvestedAmount = decimal.NewFromInt(200)
	admin := newUser("a1", "admin")
	admin.Role = storages.RoleAdmin
	store.CreateUser(ctx, u1)
	store.CreateUser(ctx, u2)
	store.CreateUser(ctx, admin)

	count, _ := store.CountUsers(ctx, storages.RoleUser)
	if count != 2 {
		t.Fatalf("Expected 2 users, got %d", count)
	}

	invested, _ := store.SumInvested(ctx)
	if !invested.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("Expected invested 500, got %s", invested)
	}

	store.CreateTransaction(ctx, &storages.Transaction{ID: "t1", Type: storages.TransactionTypeDeposit, Status: storages.TransactionStatusCompleted, Amount: decimal.NewFromInt(40)})
	store.CreateTransaction(ctx, &storages.Transaction{ID: "t2", Type: storages.TransactionTypeDeposit, Status: storages.TransactionStatusPending, Amount: decimal.NewFromInt(60)})

	sum, _ := store.SumTransactions(ctx, storages.TransactionFilter{Type: storages.TransactionTypeDeposit, Status: storages.TransactionStatusCompleted})
	if !sum.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("Expected completed deposits 40, got %s", sum)
	}
}

func TestUpdateTransactionStatusKeepsAmount(t *testing.T) {
	store := New(logger.Discard())
	ctx := context.Background()

	store.CreateTransaction(ctx, &storages.Transaction{ID: "t1", Status: storages.TransactionStatusPending, Amount: decimal.NewFromInt(10)})

	now := time.Now()
	err := store.UpdateTransactionStatus(ctx, &storages.Transaction{ID: "t1", Status: storages.TransactionStatusRejected, Amount: decimal.NewFromInt(999), ResolvedAt: &now})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tx, _ := store.GetTransaction(ctx, "t1")
	if tx.Status != storages.TransactionStatusRejected || !tx.Amount.Equal(decimal.NewFromInt(10)) || tx.ResolvedAt == nil {
		t.Fatalf("Unexpected transaction after update: %+v", tx)
	}
}
