package service

import (
	"errors"
	"strings"
	"testing"

	"invest-ledger/internal/storages"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t, DefaultSettings())

	user, err := f.svc.RegisterUser(f.ctx, RegisterInput{Username: "  Alice ", DisplayName: "Alice A", Password: "secret123"})
	if err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	if user.Username != "alice" || user.Role != storages.RoleUser || user.ReferralCode == "" {
		t.Fatalf("Unexpected user: %+v", user)
	}
	if !user.Balance.IsZero() || !user.ProfitBalance.IsZero() || !user.InvestedAmount.IsZero() {
		t.Fatal("Expected zero balances at registration")
	}

	_, err = f.svc.RegisterUser(f.ctx, RegisterInput{Username: "ALICE", Password: "another1"})
	expectErr(t, err, ErrDuplicateIdentity)

	_, err = f.svc.RegisterUser(f.ctx, RegisterInput{Username: "bob", Password: "123"})
	expectErr(t, err, ErrInvalidInput)

	_, err = f.svc.RegisterUser(f.ctx, RegisterInput{Username: "bob", Password: "secret123", ReferralCode: "NOPE"})
	expectErr(t, err, ErrNotFound)

	authed, err := f.svc.AuthenticateUser(f.ctx, "Alice", "secret123")
	if err != nil || authed.ID != user.ID {
		t.Fatalf("Expected successful login, got %v", err)
	}

	_, err = f.svc.AuthenticateUser(f.ctx, "alice", "wrong-password")
	expectErr(t, err, ErrInvalidCredentials)

	_, err = f.svc.AuthenticateUser(f.ctx, "nobody", "secret123")
	expectErr(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	f := newFixture(t, DefaultSettings())

	if err := f.svc.EnsureAdmin(f.ctx, "admin", ""); err != nil {
		t.Fatalf("Expected skip without password, got %v", err)
	}
	if _, err := f.store.GetUserByUsername(f.ctx, "admin"); err == nil {
		t.Fatal("Expected no admin without password")
	}

	if err := f.svc.EnsureAdmin(f.ctx, "admin", "adminpass"); err != nil {
		t.Fatalf("Failed to create admin: %v", err)
	}
	if err := f.svc.EnsureAdmin(f.ctx, "admin", "adminpass"); err != nil {
		t.Fatalf("Expected second call to be a no-op, got %v", err)
	}

	admin, err := f.svc.AuthenticateUser(f.ctx, "admin", "adminpass")
	if err != nil || admin.Role != storages.RoleAdmin {
		t.Fatalf("Expected admin login, got %v", err)
	}

	f.register(t, "carol", "")
	if err := f.svc.EnsureAdmin(f.ctx, "carol", "adminpass"); err == nil {
		t.Fatal("Expected error for non-admin user with admin name")
	}
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	f.register(t, "alice", "")

	_, err := f.svc.CreatePasswordResetRequest(f.ctx, "alice", "")
	expectErr(t, err, ErrInvalidInput)

	req, err := f.svc.CreatePasswordResetRequest(f.ctx, "Alice", "@alice")
	if err != nil {
		t.Fatalf("Failed to create reset request: %v", err)
	}

	pending, err := f.svc.ListPasswordResetRequests(f.ctx, storages.ResetStatusPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("Expected one pending request, got %v %v", pending, err)
	}

	_, err = f.svc.ResolvePasswordResetRequest(f.ctx, req.ID, "abc")
	expectErr(t, err, ErrInvalidInput)

	resolved, err := f.svc.ResolvePasswordResetRequest(f.ctx, req.ID, "newsecret")
	if err != nil {
		t.Fatalf("Failed to resolve: %v", err)
	}
	if resolved.Status != storages.ResetStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("Unexpected resolved request: %+v", resolved)
	}

	if _, err := f.svc.AuthenticateUser(f.ctx, "alice", "newsecret"); err != nil {
		t.Fatalf("Expected login with new password, got %v", err)
	}
	_, err = f.svc.AuthenticateUser(f.ctx, "alice", "secret123")
	expectErr(t, err, ErrInvalidCredentials)

	_, err = f.svc.ResolvePasswordResetRequest(f.ctx, req.ID, "")
	expectErr(t, err, ErrInvalidState)

	_, err = f.svc.ResolvePasswordResetRequest(f.ctx, "missing", "")
	expectErr(t, err, ErrNotFound)

	_, err = f.svc.ListPasswordResetRequests(f.ctx, "OTHER")
	expectErr(t, err, ErrInvalidInput)
}

func TestMethodsCatalog(t *testing.T) {
	f := newFixture(t, DefaultSettings())

	_, err := f.svc.CreateDepositMethod(f.ctx, "USDT", "")
	expectErr(t, err, ErrInvalidInput)

	method, err := f.svc.CreateDepositMethod(f.ctx, "USDT", "TXYZ")
	if err != nil {
		t.Fatalf("Failed to create method: %v", err)
	}
	if _, err := f.svc.UpdateDepositMethod(f.ctx, method.ID, "USDT TRC20", "TABC"); err != nil {
		t.Fatalf("Failed to update method: %v", err)
	}
	_, err = f.svc.UpdateDepositMethod(f.ctx, "missing", "X", "Y")
	expectErr(t, err, ErrNotFound)

	methods, err := f.svc.ListDepositMethods(f.ctx)
	if err != nil || len(methods) != 1 || methods[0].Address != "TABC" {
		t.Fatalf("Unexpected deposit methods: %v %v", methods, err)
	}

	if err := f.svc.DeleteDepositMethod(f.ctx, method.ID); err != nil {
		t.Fatalf("Failed to delete method: %v", err)
	}
	expectErr(t, f.svc.DeleteDepositMethod(f.ctx, method.ID), ErrNotFound)

	withdrawal, err := f.svc.CreateWithdrawalMethod(f.ctx, "BTC")
	if err != nil {
		t.Fatalf("Failed to create withdrawal method: %v", err)
	}
	if _, err := f.svc.UpdateWithdrawalMethod(f.ctx, withdrawal.ID, "Bitcoin"); err != nil {
		t.Fatalf("Failed to update withdrawal method: %v", err)
	}
	expectErr(t, f.svc.DeleteWithdrawalMethod(f.ctx, "missing"), ErrNotFound)
}

func TestPasswordLengthLimits(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	long := strings.Repeat("x", maxPasswordLength+1)

	_, err := f.svc.RegisterUser(f.ctx, RegisterInput{Username: "alice", Password: long})
	expectErr(t, err, ErrInvalidInput)

	user, err := f.svc.RegisterUser(f.ctx, RegisterInput{Username: "alice", Password: long[:maxPasswordLength]})
	if err != nil {
		t.Fatalf("Expected %d-byte password to be accepted, got %v", maxPasswordLength, err)
	}

	reset, err := f.svc.CreatePasswordResetRequest(f.ctx, user.Username, "alice@example.com")
	if err != nil {
		t.Fatalf("Failed to create reset request: %v", err)
	}
	_, err = f.svc.ResolvePasswordResetRequest(f.ctx, reset.ID, long)
	expectErr(t, err, ErrInvalidInput)

	_, err = hashPassword(long)
	expectErr(t, err, ErrInvalidInput)
}

func TestReferralCodeCollision(t *testing.T) {
	f := newFixture(t, DefaultSettings())

	codes := []string{"AAAAAAAA", "AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	original := newReferralCode
	newReferralCode = func() string {
		code := codes[0]
		if len(codes) > 1 {
			codes = codes[1:]
		}
		return code
	}
	t.Cleanup(func() { newReferralCode = original })

	alice := f.register(t, "alice", "")
	bob := f.register(t, "bob", "")
	if alice.ReferralCode != "AAAAAAAA" || bob.ReferralCode != "BBBBBBBB" {
		t.Fatalf("Expected regenerated code, got %s and %s", alice.ReferralCode, bob.ReferralCode)
	}

	codes = []string{"AAAAAAAA"}
	_, err := f.svc.RegisterUser(f.ctx, RegisterInput{Username: "carol", Password: "secret123"})
	if err == nil || errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("Expected generation failure distinct from duplicate username, got %v", err)
	}
}
