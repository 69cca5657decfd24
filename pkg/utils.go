package pkg

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces количество знаков после запятой для денежных сумм
const MoneyPlaces = 8

// RoundMoney округляет сумму до MoneyPlaces знаков
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyPlaces)
}

// ValidateAmount проверяет, что сумма положительная
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	return nil
}

// Percent возвращает percent процентов от amount
func Percent(amount, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(percent).Div(decimal.NewFromInt(100)))
}

// NormalizeUsername приводит имя пользователя к нижнему регистру
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// FormatDuration форматирует duration в удобочитаемый формат
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.2fm", d.Minutes())
	}
	return fmt.Sprintf("%.2fh", d.Hours())
}

// FormatRate форматирует скорость обработки
func FormatRate(processed int64, duration time.Duration) string {
	if duration.Seconds() == 0 {
		return "0 msg/s"
	}
	return fmt.Sprintf("%.2f msg/s", float64(processed)/duration.Seconds())
}
