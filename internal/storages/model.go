package storages

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role определяет роли пользователей
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User представляет пользователя системы вместе с его позициями
type User struct {
	ID                    string          `json:"id"`
	Username              string          `json:"username"`
	DisplayName           string          `json:"displayName"`
	Phone                 string          `json:"phone,omitempty"`
	PasswordHash          string          `json:"-"`
	Role                  string          `json:"role"`
	Balance               decimal.Decimal `json:"balance"`
	ProfitBalance         decimal.Decimal `json:"profitBalance"`
	InvestedAmount        decimal.Decimal `json:"investedAmount"`
	ReferralCode          string          `json:"referralCode"`
	ReferredBy            string          `json:"referredBy,omitempty"`
	ReferredUserIDs       []string        `json:"referredUsers"`
	LastWithdrawal        *time.Time      `json:"lastWithdrawal,omitempty"`
	LastProfitCalculation *time.Time      `json:"lastProfitCalculationDate,omitempty"`
	Investments           []Investment    `json:"investments"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// Clone возвращает глубокую копию пользователя
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.ReferredUserIDs = append([]string(nil), u.ReferredUserIDs...)
	c.Investments = make([]Investment, len(u.Investments))
	for i := range u.Investments {
		c.Investments[i] = u.Investments[i].clone()
	}
	c.LastWithdrawal = cloneTime(u.LastWithdrawal)
	c.LastProfitCalculation = cloneTime(u.LastProfitCalculation)
	return &c
}

// ActiveInvestments возвращает открытые позиции
func (u *User) ActiveInvestments() []Investment {
	var active []Investment
	for _, inv := range u.Investments {
		if inv.IsActive {
			active = append(active, inv)
		}
	}
	return active
}

// Виды инвестиционных пакетов
const (
	// PackageBounded пакет с диапазоном суммы и сроком
	PackageBounded = "BOUNDED"
	// PackageFixed пакет с фиксированной ценой без срока
	PackageFixed = "FIXED"

	// MaxDurationDays предельный срок пакета, 100 лет
	MaxDurationDays = 36500
)

// InvestmentPackage представляет инвестиционный пакет
type InvestmentPackage struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Kind               string          `json:"kind"`
	MinInvestment      decimal.Decimal `json:"minInvestment"`
	MaxInvestment      decimal.Decimal `json:"maxInvestment"`
	Price              decimal.Decimal `json:"price"`
	DailyProfitPercent decimal.Decimal `json:"dailyProfitPercent"`
	DurationDays       int             `json:"durationDays"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Investment позиция пользователя в пакете. Процент и срок фиксируются при открытии.
type Investment struct {
	ID                 string          `json:"id"`
	PackageID          string          `json:"packageId"`
	PackageName        string          `json:"packageName"`
	Amount             decimal.Decimal `json:"amount"`
	DailyProfitPercent decimal.Decimal `json:"dailyProfitPercent"`
	DurationDays       int             `json:"durationDays"`
	StartDate          time.Time       `json:"startDate"`
	IsActive           bool            `json:"isActive"`
	ClosedAt           *time.Time      `json:"closedAt,omitempty"`
}

func (i Investment) clone() Investment {
	i.ClosedAt = cloneTime(i.ClosedAt)
	return i
}

// Perpetual сообщает, что у позиции нет срока
func (i Investment) Perpetual() bool {
	return i.DurationDays <= 0
}

// MaturesAt возвращает момент окончания срока позиции
func (i Investment) MaturesAt() time.Time {
	return i.StartDate.UTC().AddDate(0, 0, i.DurationDays)
}

// TransactionType определяет типы транзакций
const (
	TransactionTypeDeposit       = "DEPOSIT"
	TransactionTypeWithdrawal    = "WITHDRAWAL"
	TransactionTypeInvestment    = "INVESTMENT"
	TransactionTypeProfit        = "PROFIT"
	TransactionTypeReferralBonus = "REFERRAL_BONUS"
)

// TransactionStatus определяет статусы транзакций
const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusRejected  = "REJECTED"
)

// Transaction запись журнала операций
type Transaction struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"userId"`
	Type               string          `json:"type"`
	Status             string          `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	Date               time.Time       `json:"date"`
	Proof              string          `json:"proof,omitempty"`
	WalletAddress      string          `json:"walletAddress,omitempty"`
	DepositMethodID    string          `json:"depositMethodId,omitempty"`
	WithdrawalMethodID string          `json:"withdrawalMethodId,omitempty"`
	PackageID          string          `json:"packageId,omitempty"`
	RelatedUserID      string          `json:"relatedUserId,omitempty"`
	Details            string          `json:"details,omitempty"`
	ResolvedAt         *time.Time      `json:"resolvedAt,omitempty"`
}

// Clone возвращает копию транзакции
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	return &c
}

// TransactionFilter параметры выборки транзакций
type TransactionFilter struct {
	UserID        string
	Type          string
	Status        string
	RelatedUserID string
	Limit         int
}

// Match проверяет, подходит ли транзакция под фильтр
func (f TransactionFilter) Match(tx *Transaction) bool {
	if f.UserID != "" && tx.UserID != f.UserID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.RelatedUserID != "" && tx.RelatedUserID != f.RelatedUserID {
		return false
	}
	return true
}

// DepositMethod способ пополнения
type DepositMethod struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// WithdrawalMethod способ вывода
type WithdrawalMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PasswordResetStatus определяет статусы заявок на сброс пароля
const (
	ResetStatusPending  = "PENDING"
	ResetStatusResolved = "RESOLVED"
)

// PasswordResetRequest заявка на сброс пароля
type PasswordResetRequest struct {
	ID         string     `json:"id"`
	Username   string     `json:"username"`
	Contact    string     `json:"contact"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
