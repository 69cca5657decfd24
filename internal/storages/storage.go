package storages

import (
	"context"

	"github.com/shopspring/decimal"
)

// Users операции с пользователями и их позициями
type Users interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*User, error)
	// UpdateUser сохраняет балансы, курсоры и все позиции пользователя
	UpdateUser(ctx context.Context, user *User) error
	ListUsers(ctx context.Context) ([]User, error)
	ListUserIDsWithActiveInvestments(ctx context.Context) ([]string, error)
	CountUsers(ctx context.Context, role string) (int64, error)
	SumInvested(ctx context.Context) (decimal.Decimal, error)
}

// Packages операции с инвестиционными пакетами
type Packages interface {
	CreatePackage(ctx context.Context, pkg *InvestmentPackage) error
	GetPackage(ctx context.Context, packageID string) (*InvestmentPackage, error)
	ListPackages(ctx context.Context) ([]InvestmentPackage, error)
	UpdatePackage(ctx context.Context, pkg *InvestmentPackage) error
	DeletePackage(ctx context.Context, packageID string) error
}

// Transactions журнал операций. Записи не удаляются.
type Transactions interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, txID string) (*Transaction, error)
	// UpdateTransactionStatus меняет только статус и время решения
	UpdateTransactionStatus(ctx context.Context, tx *Transaction) error
	// ListTransactions возвращает записи от новых к старым
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	SumTransactions(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error)
}

// Methods способы пополнения и вывода
type Methods interface {
	CreateDepositMethod(ctx context.Context, method *DepositMethod) error
	GetDepositMethod(ctx context.Context, methodID string) (*DepositMethod, error)
	ListDepositMethods(ctx context.Context) ([]DepositMethod, error)
	UpdateDepositMethod(ctx context.Context, method *DepositMethod) error
	DeleteDepositMethod(ctx context.Context, methodID string) error

	CreateWithdrawalMethod(ctx context.Context, method *WithdrawalMethod) error
	GetWithdrawalMethod(ctx context.Context, methodID string) (*WithdrawalMethod, error)
	ListWithdrawalMethods(ctx context.Context) ([]WithdrawalMethod, error)
	UpdateWithdrawalMethod(ctx context.Context, method *WithdrawalMethod) error
	DeleteWithdrawalMethod(ctx context.Context, methodID string) error
}

// ResetRequests заявки на сброс пароля
type ResetRequests interface {
	CreateResetRequest(ctx context.Context, req *PasswordResetRequest) error
	GetResetRequest(ctx context.Context, requestID string) (*PasswordResetRequest, error)
	ListResetRequests(ctx context.Context, status string) ([]PasswordResetRequest, error)
	UpdateResetRequest(ctx context.Context, req *PasswordResetRequest) error
}

// Repositories набор репозиториев, доступных внутри транзакции
type Repositories interface {
	Users
	Packages
	Transactions
	Methods
	ResetRequests
}

// TxFunc выполняется внутри транзакции хранилища
type TxFunc func(ctx context.Context, repo Repositories) error

// Storage определяет интерфейс для работы с хранилищем данных
type Storage interface {
	Repositories

	// WithTransaction выполняет fn атомарно: либо все изменения применяются, либо ни одно.
	// Внутри fn нужно использовать только переданный repo.
	WithTransaction(ctx context.Context, fn TxFunc) error

	// Health check
	Ping(ctx context.Context) error
	Close() error
}
