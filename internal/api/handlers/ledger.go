package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/service"
	"invest-ledger/internal/storages"
)

// LedgerHandler обработчик операций пользователя
type LedgerHandler struct {
	service *service.LedgerService
	logger  *logrus.Logger
}

// NewLedgerHandler создает новый обработчик операций пользователя
func NewLedgerHandler(service *service.LedgerService, logger *logrus.Logger) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		logger:  logger,
	}
}

// InvestRequest запрос на открытие позиции
type InvestRequest struct {
	PackageID string          `json:"packageId" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
}

// DepositRequest заявка на пополнение
type DepositRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Proof    string          `json:"proof"`
	MethodID string          `json:"methodId" binding:"required"`
}

// WithdrawalRequest заявка на вывод
type WithdrawalRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"walletAddress" binding:"required"`
	MethodID      string          `json:"methodId" binding:"required"`
}

// GetDashboard возвращает данные личного кабинета
// @Summary Get dashboard
// @Description Accrue elapsed profit and return balances, positions and recent transactions
// @Tags ledger
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.DashboardData
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/dashboard [get]
func (h *LedgerHandler) GetDashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	data, err := h.service.GetDashboardData(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "get dashboard", err)
		return
	}

	c.JSON(http.StatusOK, data)
}

// GetPackages возвращает каталог пакетов
// @Summary Get investment packages
// @Tags ledger
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/packages [get]
func (h *LedgerHandler) GetPackages(c *gin.Context) {
	packages, err := h.service.GetInvestmentPackages(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get packages", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// Invest открывает позицию в пакете
// @Summary Invest in package
// @Tags ledger
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body InvestRequest true "Investment data"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/investments [post]
func (h *LedgerHandler) Invest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req InvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.service.InvestInPackage(c.Request.Context(), userID, req.PackageID, req.Amount)
	if err != nil {
		respondError(c, h.logger, "invest", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Investment opened successfully",
		"user":    user,
	})
}

// RequestDeposit создает заявку на пополнение
// @Summary Request deposit
// @Tags ledger
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body DepositRequest true "Deposit data"
// @Success 201 {object} storages.Transaction
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/deposits [post]
func (h *LedgerHandler) RequestDeposit(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tx, err := h.service.RequestDeposit(c.Request.Context(), userID, req.Amount, req.Proof, req.MethodID)
	if err != nil {
		respondError(c, h.logger, "request deposit", err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// RequestWithdrawal создает заявку на вывод
// @Summary Request withdrawal
// @Description Debits the profit balance immediately and creates a pending withdrawal
// @Tags ledger
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body WithdrawalRequest true "Withdrawal data"
// @Success 201 {object} storages.Transaction
// @Failure 400 {object} map[string]string
// @Failure 429 {object} map[string]string
// @Router /api/v1/withdrawals [post]
func (h *LedgerHandler) RequestWithdrawal(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	tx, err := h.service.RequestWithdrawal(c.Request.Context(), userID, req.Amount, req.WalletAddress, req.MethodID)
	if err != nil {
		respondError(c, h.logger, "request withdrawal", err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// GetTransactions возвращает журнал пользователя
// @Summary Get own transactions
// @Tags ledger
// @Security BearerAuth
// @Produce json
// @Param type query string false "Transaction type"
// @Param status query string false "Transaction status"
// @Param limit query int false "Max records"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/transactions [get]
func (h *LedgerHandler) GetTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	filter, ok := bindFilter(c)
	if !ok {
		return
	}
	filter.UserID = userID

	txs, err := h.service.QueryTransactions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "get transactions", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// GetDepositMethods возвращает способы пополнения
// @Summary Get deposit methods
// @Tags ledger
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/deposit-methods [get]
func (h *LedgerHandler) GetDepositMethods(c *gin.Context) {
	methods, err := h.service.ListDepositMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get deposit methods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// GetWithdrawalMethods возвращает способы вывода
// @Summary Get withdrawal methods
// @Tags ledger
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/withdrawal-methods [get]
func (h *LedgerHandler) GetWithdrawalMethods(c *gin.Context) {
	methods, err := h.service.ListWithdrawalMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get withdrawal methods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// bindFilter читает параметры выборки журнала из query
func bindFilter(c *gin.Context) (storages.TransactionFilter, bool) {
	filter := storages.TransactionFilter{
		UserID: c.Query("user_id"),
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: limit must be a non-negative integer"})
			return filter, false
		}
		filter.Limit = n
	}
	return filter, true
}
