package kafka

import (
	"time"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
)

// Названия событий журнала
const (
	EventTransactionCreated  = "transaction.created"
	EventTransactionApproved = "transaction.approved"
	EventTransactionRejected = "transaction.rejected"
	EventInvestmentClosed    = "investment.closed"
)

// LedgerEvent сообщение о зафиксированном изменении в журнале
type LedgerEvent struct {
	Event         string          `json:"event"`
	TransactionID string          `json:"transaction_id,omitempty"`
	InvestmentID  string          `json:"investment_id,omitempty"`
	UserID        string          `json:"user_id"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TransactionEvent строит событие по транзакции
func TransactionEvent(event string, tx *storages.Transaction) LedgerEvent {
	return LedgerEvent{
		Event:         event,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Type:          tx.Type,
		Status:        tx.Status,
		Amount:        tx.Amount,
		Timestamp:     tx.Date,
	}
}

// InvestmentClosedEvent строит событие о закрытии позиции по сроку
func InvestmentClosedEvent(userID string, inv storages.Investment) LedgerEvent {
	ts := inv.MaturesAt()
	if inv.ClosedAt != nil {
		ts = *inv.ClosedAt
	}
	return LedgerEvent{
		Event:        EventInvestmentClosed,
		InvestmentID: inv.ID,
		UserID:       userID,
		Type:         storages.TransactionTypeInvestment,
		Status:       storages.TransactionStatusCompleted,
		Amount:       inv.Amount,
		Timestamp:    ts,
	}
}
