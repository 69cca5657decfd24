package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/storages"
)

// SQLSTATE коды, которые обрабатываются отдельно
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Config содержит конфигурацию для подключения к PostgreSQL
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxRetries       int
}

// querier общий интерфейс *sql.DB и *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// repo реализует storages.Repositories поверх querier.
// Внутри транзакции строки пользователей читаются с блокировкой FOR UPDATE.
type repo struct {
	q      querier
	lock   bool
	logger *logrus.Logger
}

var _ storages.Repositories = (*repo)(nil)

// PostgresStorage реализует интерфейс Storage для PostgreSQL
type PostgresStorage struct {
	*repo
	db        *sql.DB
	txRetries int
	logger    *logrus.Logger
}

var _ storages.Storage = (*PostgresStorage)(nil)

// New создает новое подключение к PostgreSQL
func New(cfg *Config, logger *logrus.Logger) (*PostgresStorage, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL")

	retries := cfg.TxRetries
	if retries < 1 {
		retries = 1
	}

	storage := &PostgresStorage{
		repo:      &repo{q: db, logger: logger},
		db:        db,
		txRetries: retries,
		logger:    logger,
	}

	if err := storage.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// schema создает таблицы и приводит типы колонок к текущим
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id VARCHAR(36) PRIMARY KEY,
	username VARCHAR(100) NOT NULL,
	display_name VARCHAR(200) NOT NULL DEFAULT '',
	phone VARCHAR(50) NOT NULL DEFAULT '',
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(10) NOT NULL DEFAULT 'USER',
	balance NUMERIC(20, 8) NOT NULL DEFAULT 0,
	profit_balance NUMERIC(20, 8) NOT NULL DEFAULT 0,
	invested_amount NUMERIC(20, 8) NOT NULL DEFAULT 0,
	referral_code VARCHAR(32) UNIQUE NOT NULL,
	referred_by VARCHAR(36) NOT NULL DEFAULT '',
	referred_users TEXT[] NOT NULL DEFAULT '{}',
	last_withdrawal TIMESTAMPTZ,
	last_profit_calculation TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK (balance >= 0),
	CHECK (profit_balance >= 0),
	CHECK (invested_amount >= 0)
);

CREATE TABLE IF NOT EXISTS investments (
	id VARCHAR(36) PRIMARY KEY,
	user_id VARCHAR(36) NOT NULL REFERENCES users(id),
	package_id VARCHAR(36) NOT NULL,
	package_name VARCHAR(200) NOT NULL DEFAULT '',
	amount NUMERIC(20, 8) NOT NULL,
	daily_profit_percent NUMERIC(20, 8) NOT NULL,
	duration_days INTEGER NOT NULL DEFAULT 0,
	start_date TIMESTAMPTZ NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	closed_at TIMESTAMPTZ,
	position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS packages (
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(200) NOT NULL,
	kind VARCHAR(10) NOT NULL,
	min_investment NUMERIC(20, 8) NOT NULL DEFAULT 0,
	max_investment NUMERIC(20, 8) NOT NULL DEFAULT 0,
	price NUMERIC(20, 8) NOT NULL DEFAULT 0,
	daily_profit_percent NUMERIC(20, 8) NOT NULL,
	duration_days INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transactions (
	seq BIGSERIAL UNIQUE,
	id VARCHAR(36) PRIMARY KEY,
	user_id VARCHAR(36) NOT NULL,
	type VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	amount NUMERIC(20, 8) NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	proof TEXT NOT NULL DEFAULT '',
	wallet_address VARCHAR(255) NOT NULL DEFAULT '',
	deposit_method_id VARCHAR(36) NOT NULL DEFAULT '',
	withdrawal_method_id VARCHAR(36) NOT NULL DEFAULT '',
	package_id VARCHAR(36) NOT NULL DEFAULT '',
	related_user_id VARCHAR(36) NOT NULL DEFAULT '',
	details TEXT NOT NULL DEFAULT '',
	resolved_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS deposit_methods (
	seq BIGSERIAL UNIQUE,
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(200) NOT NULL,
	address VARCHAR(255) NOT NULL
);

CREATE TABLE IF NOT EXISTS withdrawal_methods (
	seq BIGSERIAL UNIQUE,
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(200) NOT NULL
);

CREATE TABLE IF NOT EXISTS password_resets (
	id VARCHAR(36) PRIMARY KEY,
	username VARCHAR(100) NOT NULL,
	contact VARCHAR(200) NOT NULL DEFAULT '',
	status VARCHAR(20) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
);

ALTER TABLE investments ALTER COLUMN daily_profit_percent TYPE NUMERIC(20, 8);
ALTER TABLE packages ALTER COLUMN daily_profit_percent TYPE NUMERIC(20, 8);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(LOWER(username));
CREATE INDEX IF NOT EXISTS idx_investments_user ON investments(user_id, position);
CREATE INDEX IF NOT EXISTS idx_investments_active ON investments(is_active);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions(type, status);
CREATE INDEX IF NOT EXISTS idx_transactions_related ON transactions(related_user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date DESC, seq DESC);
`

// initSchema создает необходимые таблицы, если они не существуют
func (s *PostgresStorage) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.logger.Info("Database schema initialized")
	return nil
}

// WithTransaction выполняет fn в сериализуемой транзакции.
// При конфликте сериализации транзакция повторяется.
func (s *PostgresStorage) WithTransaction(ctx context.Context, fn storages.TxFunc) error {
	var err error
	for attempt := 1; attempt <= s.txRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		s.logger.Warnf("Attempt %d/%d: serialization conflict, retrying: %v", attempt, s.txRetries, err)
	}
	return err
}

func (s *PostgresStorage) runTx(ctx context.Context, fn storages.TxFunc) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		s.logger.Errorf("Failed to begin transaction: %v", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &repo{q: tx, lock: true, logger: s.logger}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Errorf("Failed to commit transaction: %v", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
	}
	return false
}

// mapError переводит ошибки драйвера в ошибки хранилища
func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storages.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation {
		return fmt.Errorf("%w: %s", storages.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// Close закрывает соединение с базой данных
func (s *PostgresStorage) Close() error {
	if s.db != nil {
		s.logger.Info("Closing database connection")
		return s.db.Close()
	}
	return nil
}

// Ping проверяет соединение с базой данных
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
