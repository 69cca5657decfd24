package audit

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecimal128RoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("1234.56789012")

	got := FromDecimal128(ToDecimal128(amount))
	if !got.Equal(amount) {
		t.Fatalf("Expected %s, got %s", amount, got)
	}

	record := Record{Amount: ToDecimal128(decimal.NewFromInt(50))}
	if !record.DecimalAmount().Equal(decimal.NewFromInt(50)) {
		t.Fatalf("Expected 50, got %s", record.DecimalAmount())
	}
}
