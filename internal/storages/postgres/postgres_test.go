package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"

	"invest-ledger/internal/storages"
)

func TestBuildFilter(t *testing.T) {
	where, args := buildFilter(storages.TransactionFilter{})
	if where != "" || len(args) != 0 {
		t.Fatalf("Expected empty filter, got %q %v", where, args)
	}

	where, args = buildFilter(storages.TransactionFilter{UserID: "u1", Status: storages.TransactionStatusPending})
	if where != " WHERE user_id = $1 AND status = $2" {
		t.Fatalf("Unexpected where clause: %q", where)
	}
	if len(args) != 2 || args[0] != "u1" || args[1] != storages.TransactionStatusPending {
		t.Fatalf("Unexpected args: %v", args)
	}
}

func TestMapError(t *testing.T) {
	if err := mapError(sql.ErrNoRows); !errors.Is(err, storages.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	dup := &pq.Error{Code: codeUniqueViolation, Constraint: "users_referral_code_key"}
	if err := mapError(dup); !errors.Is(err, storages.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	conflict := fmt.Errorf("failed to update user: %w", &pq.Error{Code: codeSerializationFailure})
	if !isRetryable(conflict) {
		t.Fatal("Expected serialization failure to be retryable")
	}

	if isRetryable(errors.New("insufficient balance")) {
		t.Fatal("Expected plain error not to be retryable")
	}
}

func TestSchemaKeepsMoneyPrecision(t *testing.T) {
	if strings.Contains(schema, "NUMERIC(10, 4)") {
		t.Fatalf("Schema still declares a 4-digit numeric column")
	}
	for _, table := range []string{"investments", "packages"} {
		stmt := "ALTER TABLE " + table + " ALTER COLUMN daily_profit_percent TYPE NUMERIC(20, 8);"
		if !strings.Contains(schema, stmt) {
			t.Fatalf("Schema does not widen %s.daily_profit_percent", table)
		}
	}
}
