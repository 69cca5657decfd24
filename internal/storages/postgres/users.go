package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
)

const userColumns = `id, username, display_name, phone, password_hash, role, balance, profit_balance,
	invested_amount, referral_code, referred_by, referred_users, last_withdrawal,
	last_profit_calculation, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*storages.User, error) {
	var user storages.User
	var referred pq.StringArray
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.Balance,
		&user.ProfitBalance,
		&user.InvestedAmount,
		&user.ReferralCode,
		&user.ReferredBy,
		&referred,
		&user.LastWithdrawal,
		&user.LastProfitCalculation,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.ReferredUserIDs = []string(referred)
	return &user, nil
}

// CreateUser создает нового пользователя вместе с его позициями
func (r *repo) CreateUser(ctx context.Context, user *storages.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Balance,
		user.ProfitBalance,
		user.InvestedAmount,
		user.ReferralCode,
		user.ReferredBy,
		pq.StringArray(user.ReferredUserIDs),
		user.LastWithdrawal,
		user.LastProfitCalculation,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create user: %v", err)
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}

	if err := r.saveInvestments(ctx, user); err != nil {
		return err
	}

	r.logger.Infof("Created user: %s (ID: %s)", user.Username, user.ID)
	return nil
}

// getUser читает пользователя по условию и подгружает позиции
func (r *repo) getUser(ctx context.Context, where string, arg interface{}) (*storages.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	if r.lock {
		query += ` FOR UPDATE`
	}

	user, err := scanUser(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		err = mapError(err)
		if err != storages.ErrNotFound {
			r.logger.Errorf("Failed to get user: %v", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	investments, err := r.loadInvestments(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Investments = investments
	return user, nil
}

// GetUserByID возвращает пользователя по ID
func (r *repo) GetUserByID(ctx context.Context, userID string) (*storages.User, error) {
	return r.getUser(ctx, `id = $1`, userID)
}

// GetUserByUsername возвращает пользователя по имени без учета регистра
func (r *repo) GetUserByUsername(ctx context.Context, username string) (*storages.User, error) {
	return r.getUser(ctx, `LOWER(username) = LOWER($1)`, username)
}

// GetUserByReferralCode возвращает владельца реферального кода
func (r *repo) GetUserByReferralCode(ctx context.Context, code string) (*storages.User, error) {
	return r.getUser(ctx, `referral_code = $1`, code)
}

// UpdateUser сохраняет состояние пользователя и его позиций
func (r *repo) UpdateUser(ctx context.Context, user *storages.User) error {
	query := `
		UPDATE users
		SET username = $2, display_name = $3, phone = $4, password_hash = $5, role = $6,
			balance = $7, profit_balance = $8, invested_amount = $9, referred_by = $10,
			referred_users = $11, last_withdrawal = $12, last_profit_calculation = $13, updated_at = $14
		WHERE id = $1
	`

	user.UpdatedAt = time.Now().UTC()
	result, err := r.q.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.DisplayName,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Balance,
		user.ProfitBalance,
		user.InvestedAmount,
		user.ReferredBy,
		pq.StringArray(user.ReferredUserIDs),
		user.LastWithdrawal,
		user.LastProfitCalculation,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to update user: %v", err)
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("failed to update user: %w", storages.ErrNotFound)
	}

	if err := r.saveInvestments(ctx, user); err != nil {
		return err
	}

	r.logger.Debugf("Updated user %s: balance=%s profit=%s invested=%s",
		user.ID, user.Balance, user.ProfitBalance, user.InvestedAmount)
	return nil
}

// saveInvestments записывает позиции пользователя (upsert по ID)
func (r *repo) saveInvestments(ctx context.Context, user *storages.User) error {
	query := `
		INSERT INTO investments (id, user_id, package_id, package_name, amount, daily_profit_percent,
			duration_days, start_date, is_active, closed_at, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE
		SET is_active = EXCLUDED.is_active, closed_at = EXCLUDED.closed_at, position = EXCLUDED.position
	`

	for i, inv := range user.Investments {
		_, err := r.q.ExecContext(ctx, query,
			inv.ID,
			user.ID,
			inv.PackageID,
			inv.PackageName,
			inv.Amount,
			inv.DailyProfitPercent,
			inv.DurationDays,
			inv.StartDate,
			inv.IsActive,
			inv.ClosedAt,
			i,
		)
		if err != nil {
			r.logger.Errorf("Failed to save investment %s: %v", inv.ID, err)
			return fmt.Errorf("failed to save investment: %w", mapError(err))
		}
	}
	return nil
}

// loadInvestments читает позиции пользователя в порядке открытия
func (r *repo) loadInvestments(ctx context.Context, userID string) ([]storages.Investment, error) {
	query := `
		SELECT id, package_id, package_name, amount, daily_profit_percent, duration_days,
			start_date, is_active, closed_at
		FROM investments
		WHERE user_id = $1
		ORDER BY position
	`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		r.logger.Errorf("Failed to query investments: %v", err)
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	investments := []storages.Investment{}
	for rows.Next() {
		var inv storages.Investment
		err := rows.Scan(
			&inv.ID,
			&inv.PackageID,
			&inv.PackageName,
			&inv.Amount,
			&inv.DailyProfitPercent,
			&inv.DurationDays,
			&inv.StartDate,
			&inv.IsActive,
			&inv.ClosedAt,
		)
		if err != nil {
			r.logger.Errorf("Failed to scan investment: %v", err)
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, inv)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investments: %w", err)
	}
	return investments, nil
}

// ListUsers возвращает всех пользователей с позициями
func (r *repo) ListUsers(ctx context.Context) ([]storages.User, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		r.logger.Errorf("Failed to query users: %v", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	users := []storages.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	rows.Close()

	for i := range users {
		investments, err := r.loadInvestments(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Investments = investments
	}
	return users, nil
}

// ListUserIDsWithActiveInvestments возвращает пользователей с открытыми позициями
func (r *repo) ListUserIDsWithActiveInvestments(ctx context.Context) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT DISTINCT user_id FROM investments WHERE is_active ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active investors: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountUsers считает пользователей с указанной ролью (пустая роль - всех)
func (r *repo) CountUsers(ctx context.Context, role string) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE $1 = '' OR role = $1`, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// SumInvested возвращает сумму вложенных средств по всем пользователям
func (r *repo) SumInvested(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(invested_amount), 0) FROM users`).Scan(&total)
	if err != nil && err != sql.ErrNoRows {
		return decimal.Zero, fmt.Errorf("failed to sum invested amount: %w", err)
	}
	return total, nil
}
