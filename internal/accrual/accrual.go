// Package accrual рассчитывает дневную прибыль по открытым позициям пользователя.
//
// Расчет идет дискретными периодами по 24 часа от курсора
// LastProfitCalculation (или от даты открытия самой ранней позиции).
// Каждый полный период дает не более одной транзакции PROFIT с суммой
// по всем позициям, открытым до конца периода. Позиции со сроком
// приносят прибыль не дольше DurationDays периодов и закрываются
// по достижении срока, возвращая тело вложения на основной баланс.
package accrual

import (
	"time"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
	"invest-ledger/pkg"
)

// Period длительность одного периода начисления
const Period = 24 * time.Hour

// PackageExists сообщает, существует ли пакет
type PackageExists func(packageID string) bool

// Result итог расчета. User - обновленная копия, исходный пользователь не меняется.
type Result struct {
	User    *storages.User
	Profits []storages.Transaction
	Closed  []storages.Investment
	Periods int
	Total   decimal.Decimal
}

// Changed сообщает, нужно ли сохранять результат
func (r Result) Changed() bool {
	return r.Periods > 0 || len(r.Closed) > 0
}

// Calculate догоняет начисления пользователя до момента now.
// Повторный вызов без прошедшего полного периода ничего не меняет.
func Calculate(user *storages.User, exists PackageExists, now time.Time) Result {
	u := user.Clone()
	res := Result{User: u, Total: decimal.Zero}

	active := u.ActiveInvestments()
	if len(active) == 0 {
		return res
	}

	cursor := earliestStart(active)
	if u.LastProfitCalculation != nil {
		cursor = *u.LastProfitCalculation
	}

	for now.Sub(cursor) >= Period {
		cursor = cursor.Add(Period)
		res.Periods++

		total := decimal.Zero
		for _, inv := range active {
			if earns(inv, cursor, exists) {
				total = total.Add(DailyProfit(inv))
			}
		}

		if total.IsPositive() {
			res.Profits = append(res.Profits, storages.Transaction{
				UserID: u.ID,
				Type:   storages.TransactionTypeProfit,
				Status: storages.TransactionStatusCompleted,
				Amount: total,
				Date:   cursor,
			})
			u.ProfitBalance = u.ProfitBalance.Add(total)
			res.Total = res.Total.Add(total)
		}
	}

	if res.Periods > 0 {
		c := cursor
		u.LastProfitCalculation = &c
	}

	for i := range u.Investments {
		inv := &u.Investments[i]
		if !inv.IsActive || inv.Perpetual() || now.Before(inv.MaturesAt()) {
			continue
		}
		closedAt := inv.MaturesAt()
		inv.IsActive = false
		inv.ClosedAt = &closedAt
		u.Balance = u.Balance.Add(inv.Amount)
		u.InvestedAmount = u.InvestedAmount.Sub(inv.Amount)
		res.Closed = append(res.Closed, *inv)
	}

	return res
}

// DailyProfit прибыль позиции за один период
func DailyProfit(inv storages.Investment) decimal.Decimal {
	return pkg.Percent(inv.Amount, inv.DailyProfitPercent)
}

// earns сообщает, приносит ли позиция прибыль за период, заканчивающийся в periodEnd
func earns(inv storages.Investment, periodEnd time.Time, exists PackageExists) bool {
	if exists != nil && !exists(inv.PackageID) {
		return false
	}
	if !inv.StartDate.Before(periodEnd) {
		return false
	}
	return inv.Perpetual() || !periodEnd.After(inv.MaturesAt())
}

func earliestStart(investments []storages.Investment) time.Time {
	earliest := investments[0].StartDate
	for _, inv := range investments[1:] {
		if inv.StartDate.Before(earliest) {
			earliest = inv.StartDate
		}
	}
	return earliest
}
