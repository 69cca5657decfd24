package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"invest-ledger/internal/logger"
	"invest-ledger/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrInvalidAmount, http.StatusBadRequest},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrBelowMinimum, http.StatusBadRequest},
		{service.ErrInsufficientBalance, http.StatusBadRequest},
		{service.ErrInsufficientProfitBalance, http.StatusBadRequest},
		{service.ErrWrongType, http.StatusBadRequest},
		{service.ErrCooldownActive, http.StatusTooManyRequests},
		{service.ErrDuplicateIdentity, http.StatusConflict},
		{service.ErrInvalidState, http.StatusConflict},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", service.ErrCooldownActive), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, logger.Discard(), "approve deposit", errors.New("connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "Failed to approve deposit" {
		t.Fatalf("unexpected body %v", body)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, logger.Discard(), "withdraw", fmt.Errorf("%w: wait 2h", service.ErrCooldownActive))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}
