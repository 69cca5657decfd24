package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
)

const transactionColumns = `id, user_id, type, status, amount, date, proof, wallet_address,
	deposit_method_id, withdrawal_method_id, package_id, related_user_id, details, resolved_at`

func scanTransaction(row rowScanner) (*storages.Transaction, error) {
	var tx storages.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Type,
		&tx.Status,
		&tx.Amount,
		&tx.Date,
		&tx.Proof,
		&tx.WalletAddress,
		&tx.DepositMethodID,
		&tx.WithdrawalMethodID,
		&tx.PackageID,
		&tx.RelatedUserID,
		&tx.Details,
		&tx.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateTransaction добавляет запись в журнал
func (r *repo) CreateTransaction(ctx context.Context, tx *storages.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.UserID,
		tx.Type,
		tx.Status,
		tx.Amount,
		tx.Date,
		tx.Proof,
		tx.WalletAddress,
		tx.DepositMethodID,
		tx.WithdrawalMethodID,
		tx.PackageID,
		tx.RelatedUserID,
		tx.Details,
		tx.ResolvedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create transaction: %v", err)
		return fmt.Errorf("failed to create transaction: %w", mapError(err))
	}

	r.logger.Infof("Created transaction: ID=%s, Type=%s, Status=%s, User=%s", tx.ID, tx.Type, tx.Status, tx.UserID)
	return nil
}

// GetTransaction возвращает транзакцию по ID
func (r *repo) GetTransaction(ctx context.Context, txID string) (*storages.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if r.lock {
		query += ` FOR UPDATE`
	}

	tx, err := scanTransaction(r.q.QueryRowContext(ctx, query, txID))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", mapError(err))
	}
	return tx, nil
}

// UpdateTransactionStatus обновляет статус транзакции
func (r *repo) UpdateTransactionStatus(ctx context.Context, tx *storages.Transaction) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE transactions SET status = $1, resolved_at = $2 WHERE id = $3`,
		tx.Status, tx.ResolvedAt, tx.ID,
	)
	if err != nil {
		r.logger.Errorf("Failed to update transaction status: %v", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("failed to update transaction status: %w", storages.ErrNotFound)
	}

	r.logger.Debugf("Updated transaction %s status to %s", tx.ID, tx.Status)
	return nil
}

// buildFilter собирает условие WHERE для фильтра
func buildFilter(filter storages.TransactionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("user_id", filter.UserID)
	add("type", filter.Type)
	add("status", filter.Status)
	add("related_user_id", filter.RelatedUserID)

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// ListTransactions возвращает транзакции от новых к старым
func (r *repo) ListTransactions(ctx context.Context, filter storages.TransactionFilter) ([]storages.Transaction, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + transactionColumns + ` FROM transactions` + where + ` ORDER BY date DESC, seq DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Errorf("Failed to query transactions: %v", err)
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := []storages.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			r.logger.Errorf("Failed to scan transaction: %v", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}

	if err = rows.Err(); err != nil {
		r.logger.Errorf("Error iterating transactions: %v", err)
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// SumTransactions суммирует транзакции, подходящие под фильтр
func (r *repo) SumTransactions(ctx context.Context, filter storages.TransactionFilter) (decimal.Decimal, error) {
	where, args := buildFilter(filter)

	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM transactions`+where, args...).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}
