package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"invest-ledger/internal/api/middleware"
	"invest-ledger/internal/cache"
	"invest-ledger/internal/config"
	"invest-ledger/internal/logger"
	"invest-ledger/internal/service"
	"invest-ledger/internal/storages"
	"invest-ledger/internal/storages/memory"
)

type testAPI struct {
	router *gin.Engine
	svc    *service.LedgerService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logger.Discard()

	svc := service.NewLedgerService(
		memory.New(log),
		cache.NewPackagesCache(time.Minute),
		nil,
		service.DefaultSettings(),
		log,
	)
	if err := svc.EnsureAdmin(context.Background(), "admin", "adminpass"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	jwtMiddleware := middleware.NewJWTMiddleware("test-secret", log)
	router := SetupRouter(svc, jwtMiddleware, time.Hour, nil, config.RateLimitConfig{}, log, gin.TestMode)
	return &testAPI{router: router, svc: svc}
}

func (a *testAPI) call(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) expect(t *testing.T, w *httptest.ResponseRecorder, status int, out interface{}) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response: %v (%s)", err, w.Body.String())
		}
	}
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
	}
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/login", "", gin.H{
		"username": username,
		"password": password,
	}), http.StatusOK, &resp)
	if resp.Token == "" {
		t.Fatalf("empty token for %s", username)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	a.expect(t, a.call(t, http.MethodGet, "/health", "", nil), http.StatusOK, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	a := newTestAPI(t)

	var reg struct {
		User storages.User `json:"user"`
	}
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "Alice",
		"password": "secret1",
	}), http.StatusCreated, &reg)
	if reg.User.Username != "alice" || reg.User.Role != storages.RoleUser || reg.User.ReferralCode == "" {
		t.Fatalf("unexpected user %+v", reg.User)
	}

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "alice",
		"password": "secret2",
	}), http.StatusConflict, nil)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "bob",
		"password": "secret1",
		"referralCode": "NOPE0000",
	}), http.StatusNotFound, nil)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "carol",
		"password": "123",
	}), http.StatusBadRequest, nil)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "dave",
		"password": strings.Repeat("p", 73),
	}), http.StatusBadRequest, nil)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/login", "", gin.H{
		"username": "alice",
		"password": "wrong-password",
	}), http.StatusUnauthorized, nil)

	token := a.login(t, "alice", "secret1")

	var dash service.DashboardData
	a.expect(t, a.call(t, http.MethodGet, "/api/v1/dashboard", token, nil), http.StatusOK, &dash)
	if dash.User == nil || dash.User.Username != "alice" {
		t.Fatalf("unexpected dashboard %+v", dash)
	}

	a.expect(t, a.call(t, http.MethodGet, "/api/v1/dashboard", "", nil), http.StatusUnauthorized, nil)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	a := newTestAPI(t)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "alice",
		"password": "secret1",
	}), http.StatusCreated, nil)

	userToken := a.login(t, "alice", "secret1")
	a.expect(t, a.call(t, http.MethodGet, "/api/v1/admin/dashboard", userToken, nil), http.StatusForbidden, nil)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/accrual/sweep", userToken, nil), http.StatusForbidden, nil)

	adminToken := a.login(t, "admin", "adminpass")
	var dash service.AdminDashboardData
	a.expect(t, a.call(t, http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil), http.StatusOK, &dash)
	if dash.TotalUsers != 1 {
		t.Fatalf("expected 1 user, got %d", dash.TotalUsers)
	}
}

func TestDepositInvestFlow(t *testing.T) {
	a := newTestAPI(t)
	adminToken := a.login(t, "admin", "adminpass")

	var method storages.DepositMethod
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/deposit-methods", adminToken, gin.H{
		"name":    "USDT TRC20",
		"address": "TXYZ",
	}), http.StatusCreated, &method)

	var pack storages.InvestmentPackage
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/packages", adminToken, gin.H{
		"name":               "Starter",
		"kind":               storages.PackageBounded,
		"minInvestment":      "10",
		"maxInvestment":      "1000",
		"dailyProfitPercent": "1",
		"durationDays":       30,
	}), http.StatusCreated, &pack)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/packages", adminToken, gin.H{
		"name": "Broken",
		"kind": "OTHER",
	}), http.StatusBadRequest, nil)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/packages", adminToken, gin.H{
		"name":               "Endless",
		"kind":               storages.PackageBounded,
		"minInvestment":      "10",
		"maxInvestment":      "1000",
		"dailyProfitPercent": "1",
		"durationDays":       200000,
	}), http.StatusBadRequest, nil)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "alice",
		"password": "secret1",
	}), http.StatusCreated, nil)
	token := a.login(t, "alice", "secret1")

	var deposit storages.Transaction
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/deposits", token, gin.H{
		"amount":   "500",
		"proof":    "tx-hash",
		"methodId": method.ID,
	}), http.StatusCreated, &deposit)
	if deposit.Status != storages.TransactionStatusPending {
		t.Fatalf("expected pending deposit, got %s", deposit.Status)
	}

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/deposits", token, gin.H{
		"amount":   "0",
		"methodId": method.ID,
	}), http.StatusBadRequest, nil)

	var approved storages.Transaction
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/deposits/"+deposit.ID+"/approve", adminToken, nil), http.StatusOK, &approved)
	if approved.Status != storages.TransactionStatusCompleted {
		t.Fatalf("expected completed deposit, got %s", approved.Status)
	}
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/deposits/"+deposit.ID+"/reject", adminToken, nil), http.StatusConflict, nil)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/withdrawals/"+deposit.ID+"/approve", adminToken, nil), http.StatusBadRequest, nil)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/deposits/missing/approve", adminToken, nil), http.StatusNotFound, nil)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/investments", token, gin.H{
		"packageId": pack.ID,
		"amount":    "5",
	}), http.StatusBadRequest, nil)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/investments", token, gin.H{
		"packageId": "missing",
		"amount":    "100",
	}), http.StatusNotFound, nil)

	var invested struct {
		User storages.User `json:"user"`
	}
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/investments", token, gin.H{
		"packageId": pack.ID,
		"amount":    "100",
	}), http.StatusOK, &invested)
	if !invested.User.Balance.Equal(decimal.NewFromInt(400)) || !invested.User.InvestedAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected balances %s / %s", invested.User.Balance, invested.User.InvestedAmount)
	}

	var list struct {
		Transactions []storages.Transaction `json:"transactions"`
	}
	a.expect(t, a.call(t, http.MethodGet, "/api/v1/transactions", token, nil), http.StatusOK, &list)
	if len(list.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(list.Transactions))
	}

	a.expect(t, a.call(t, http.MethodGet, "/api/v1/admin/transactions?type=DEPOSIT&limit=x", adminToken, nil), http.StatusBadRequest, nil)
	a.expect(t, a.call(t, http.MethodGet, "/api/v1/admin/transactions?type=DEPOSIT", adminToken, nil), http.StatusOK, &list)
	if len(list.Transactions) != 1 || list.Transactions[0].ID != deposit.ID {
		t.Fatalf("unexpected filtered transactions %+v", list.Transactions)
	}

	var sweep service.SweepResult
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/accrual/sweep", adminToken, nil), http.StatusOK, &sweep)
	if sweep.Failed != 0 {
		t.Fatalf("unexpected sweep result %+v", sweep)
	}
}

func TestPasswordResetRoutes(t *testing.T) {
	a := newTestAPI(t)
	a.expect(t, a.call(t, http.MethodPost, "/api/v1/register", "", gin.H{
		"username": "alice",
		"password": "secret1",
	}), http.StatusCreated, nil)

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/password-resets", "", gin.H{
		"username": "alice",
		"contact":  "alice@example.com",
	}), http.StatusCreated, nil)

	adminToken := a.login(t, "admin", "adminpass")
	var pending struct {
		Requests []storages.PasswordResetRequest `json:"requests"`
	}
	a.expect(t, a.call(t, http.MethodGet, "/api/v1/admin/password-resets?status=PENDING", adminToken, nil), http.StatusOK, &pending)
	if len(pending.Requests) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending.Requests))
	}

	a.expect(t, a.call(t, http.MethodPost, "/api/v1/admin/password-resets/"+pending.Requests[0].ID+"/resolve", adminToken, gin.H{
		"newPassword": "brandnew",
	}), http.StatusOK, nil)

	a.login(t, "alice", "brandnew")
}
