package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record событие журнала, сохраненное для аудита
type Record struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Event         string               `bson:"event" json:"event"`
	TransactionID string               `bson:"transaction_id" json:"transaction_id,omitempty"`
	InvestmentID  string               `bson:"investment_id" json:"investment_id,omitempty"`
	UserID        string               `bson:"user_id" json:"user_id"`
	Type          string               `bson:"type" json:"type"`
	Status        string               `bson:"status" json:"status"`
	Amount        primitive.Decimal128 `bson:"amount" json:"amount"`
	Timestamp     time.Time            `bson:"timestamp" json:"timestamp"`
	ProcessedAt   time.Time            `bson:"processed_at" json:"processed_at"`
	Partition     int                  `bson:"partition" json:"partition"`
	Offset        int64                `bson:"offset" json:"offset"`
}

// DecimalAmount возвращает сумму как decimal
func (r Record) DecimalAmount() decimal.Decimal {
	return FromDecimal128(r.Amount)
}

// EventStats агрегаты по одному типу события
type EventStats struct {
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Statistics статистика сохраненных событий
type Statistics struct {
	TotalEvents     int64                 `json:"total_events"`
	ByEvent         map[string]EventStats `json:"by_event"`
	LastProcessedAt time.Time             `json:"last_processed_at"`
}

// ToDecimal128 переводит decimal в BSON Decimal128
func ToDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

// FromDecimal128 переводит BSON Decimal128 в decimal
func FromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
