package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"invest-ledger/internal/storages"
)

const packageColumns = `id, name, kind, min_investment, max_investment, price,
	daily_profit_percent, duration_days, created_at, updated_at`

func scanPackage(row rowScanner) (*storages.InvestmentPackage, error) {
	var pkg storages.InvestmentPackage
	err := row.Scan(
		&pkg.ID,
		&pkg.Name,
		&pkg.Kind,
		&pkg.MinInvestment,
		&pkg.MaxInvestment,
		&pkg.Price,
		&pkg.DailyProfitPercent,
		&pkg.DurationDays,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// checkAffected возвращает ErrNotFound, если запрос не затронул ни одной строки
func checkAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, storages.ErrNotFound)
	}
	return nil
}

// CreatePackage создает инвестиционный пакет
func (r *repo) CreatePackage(ctx context.Context, pkg *storages.InvestmentPackage) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO packages (`+packageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		pkg.ID, pkg.Name, pkg.Kind, pkg.MinInvestment, pkg.MaxInvestment, pkg.Price,
		pkg.DailyProfitPercent, pkg.DurationDays, pkg.CreatedAt, pkg.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to create package: %v", err)
		return fmt.Errorf("failed to create package: %w", mapError(err))
	}
	return nil
}

// GetPackage возвращает пакет по ID
func (r *repo) GetPackage(ctx context.Context, packageID string) (*storages.InvestmentPackage, error) {
	pkg, err := scanPackage(r.q.QueryRowContext(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, packageID))
	if err != nil {
		return nil, fmt.Errorf("failed to get package: %w", mapError(err))
	}
	return pkg, nil
}

// ListPackages возвращает все пакеты
func (r *repo) ListPackages(ctx context.Context) ([]storages.InvestmentPackage, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+packageColumns+` FROM packages ORDER BY created_at, id`)
	if err != nil {
		r.logger.Errorf("Failed to query packages: %v", err)
		return nil, fmt.Errorf("failed to query packages: %w", err)
	}
	defer rows.Close()

	pkgs := []storages.InvestmentPackage{}
	for rows.Next() {
		pkg, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		pkgs = append(pkgs, *pkg)
	}
	return pkgs, rows.Err()
}

// UpdatePackage обновляет пакет. Открытые позиции не меняются.
func (r *repo) UpdatePackage(ctx context.Context, pkg *storages.InvestmentPackage) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE packages
		SET name = $2, kind = $3, min_investment = $4, max_investment = $5, price = $6,
			daily_profit_percent = $7, duration_days = $8, updated_at = $9
		WHERE id = $1
	`,
		pkg.ID, pkg.Name, pkg.Kind, pkg.MinInvestment, pkg.MaxInvestment, pkg.Price,
		pkg.DailyProfitPercent, pkg.DurationDays, pkg.UpdatedAt,
	)
	if err != nil {
		r.logger.Errorf("Failed to update package: %v", err)
		return fmt.Errorf("failed to update package: %w", err)
	}
	return checkAffected(result, "failed to update package")
}

// DeletePackage удаляет пакет
func (r *repo) DeletePackage(ctx context.Context, packageID string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM packages WHERE id = $1`, packageID)
	if err != nil {
		return fmt.Errorf("failed to delete package: %w", err)
	}
	return checkAffected(result, "failed to delete package")
}

// CreateDepositMethod создает способ пополнения
func (r *repo) CreateDepositMethod(ctx context.Context, method *storages.DepositMethod) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO deposit_methods (id, name, address) VALUES ($1, $2, $3)`,
		method.ID, method.Name, method.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to create deposit method: %w", mapError(err))
	}
	return nil
}

// GetDepositMethod возвращает способ пополнения по ID
func (r *repo) GetDepositMethod(ctx context.Context, methodID string) (*storages.DepositMethod, error) {
	var m storages.DepositMethod
	err := r.q.QueryRowContext(ctx, `SELECT id, name, address FROM deposit_methods WHERE id = $1`, methodID).
		Scan(&m.ID, &m.Name, &m.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit method: %w", mapError(err))
	}
	return &m, nil
}

// ListDepositMethods возвращает способы пополнения
func (r *repo) ListDepositMethods(ctx context.Context) ([]storages.DepositMethod, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, address FROM deposit_methods ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deposit methods: %w", err)
	}
	defer rows.Close()

	methods := []storages.DepositMethod{}
	for rows.Next() {
		var m storages.DepositMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Address); err != nil {
			return nil, fmt.Errorf("failed to scan deposit method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// UpdateDepositMethod обновляет способ пополнения
func (r *repo) UpdateDepositMethod(ctx context.Context, method *storages.DepositMethod) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE deposit_methods SET name = $2, address = $3 WHERE id = $1`,
		method.ID, method.Name, method.Address,
	)
	if err != nil {
		return fmt.Errorf("failed to update deposit method: %w", err)
	}
	return checkAffected(result, "failed to update deposit method")
}

// DeleteDepositMethod удаляет способ пополнения
func (r *repo) DeleteDepositMethod(ctx context.Context, methodID string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM deposit_methods WHERE id = $1`, methodID)
	if err != nil {
		return fmt.Errorf("failed to delete deposit method: %w", err)
	}
	return checkAffected(result, "failed to delete deposit method")
}

// CreateWithdrawalMethod создает способ вывода
func (r *repo) CreateWithdrawalMethod(ctx context.Context, method *storages.WithdrawalMethod) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO withdrawal_methods (id, name) VALUES ($1, $2)`,
		method.ID, method.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal method: %w", mapError(err))
	}
	return nil
}

// GetWithdrawalMethod возвращает способ вывода по ID
func (r *repo) GetWithdrawalMethod(ctx context.Context, methodID string) (*storages.WithdrawalMethod, error) {
	var m storages.WithdrawalMethod
	err := r.q.QueryRowContext(ctx, `SELECT id, name FROM withdrawal_methods WHERE id = $1`, methodID).
		Scan(&m.ID, &m.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal method: %w", mapError(err))
	}
	return &m, nil
}

// ListWithdrawalMethods возвращает способы вывода
func (r *repo) ListWithdrawalMethods(ctx context.Context) ([]storages.WithdrawalMethod, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name FROM withdrawal_methods ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal methods: %w", err)
	}
	defer rows.Close()

	methods := []storages.WithdrawalMethod{}
	for rows.Next() {
		var m storages.WithdrawalMethod
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// UpdateWithdrawalMethod обновляет способ вывода
func (r *repo) UpdateWithdrawalMethod(ctx context.Context, method *storages.WithdrawalMethod) error {
	result, err := r.q.ExecContext(ctx, `UPDATE withdrawal_methods SET name = $2 WHERE id = $1`, method.ID, method.Name)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal method: %w", err)
	}
	return checkAffected(result, "failed to update withdrawal method")
}

// DeleteWithdrawalMethod удаляет способ вывода
func (r *repo) DeleteWithdrawalMethod(ctx context.Context, methodID string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM withdrawal_methods WHERE id = $1`, methodID)
	if err != nil {
		return fmt.Errorf("failed to delete withdrawal method: %w", err)
	}
	return checkAffected(result, "failed to delete withdrawal method")
}

// CreateResetRequest сохраняет заявку на сброс пароля
func (r *repo) CreateResetRequest(ctx context.Context, req *storages.PasswordResetRequest) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_resets (id, username, contact, status, created_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.Username, req.Contact, req.Status, req.CreatedAt, req.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to create reset request: %w", mapError(err))
	}
	return nil
}

// GetResetRequest возвращает заявку по ID
func (r *repo) GetResetRequest(ctx context.Context, requestID string) (*storages.PasswordResetRequest, error) {
	var req storages.PasswordResetRequest
	err := r.q.QueryRowContext(ctx, `
		SELECT id, username, contact, status, created_at, resolved_at
		FROM password_resets WHERE id = $1
	`, requestID).Scan(&req.ID, &req.Username, &req.Contact, &req.Status, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get reset request: %w", mapError(err))
	}
	return &req, nil
}

// ListResetRequests возвращает заявки, новые первыми
func (r *repo) ListResetRequests(ctx context.Context, status string) ([]storages.PasswordResetRequest, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, username, contact, status, created_at, resolved_at
		FROM password_resets
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query reset requests: %w", err)
	}
	defer rows.Close()

	requests := []storages.PasswordResetRequest{}
	for rows.Next() {
		var req storages.PasswordResetRequest
		if err := rows.Scan(&req.ID, &req.Username, &req.Contact, &req.Status, &req.CreatedAt, &req.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan reset request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// UpdateResetRequest обновляет статус заявки
func (r *repo) UpdateResetRequest(ctx context.Context, req *storages.PasswordResetRequest) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE password_resets SET status = $2, resolved_at = $3 WHERE id = $1`,
		req.ID, req.Status, req.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update reset request: %w", err)
	}
	return checkAffected(result, "failed to update reset request")
}
