package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/service"
	"invest-ledger/internal/storages"
)

// AdminHandler обработчик административных операций
type AdminHandler struct {
	service *service.LedgerService
	logger  *logrus.Logger
}

// NewAdminHandler создает новый обработчик административных операций
func NewAdminHandler(service *service.LedgerService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger,
	}
}

// PackageRequest данные инвестиционного пакета
type PackageRequest struct {
	Name               string          `json:"name" binding:"required"`
	Kind               string          `json:"kind" binding:"required,oneof=BOUNDED FIXED"`
	MinInvestment      decimal.Decimal `json:"minInvestment"`
	MaxInvestment      decimal.Decimal `json:"maxInvestment"`
	Price              decimal.Decimal `json:"price"`
	DailyProfitPercent decimal.Decimal `json:"dailyProfitPercent"`
	DurationDays       int             `json:"durationDays" binding:"min=0,max=36500"`
}

func (r PackageRequest) toPackage() *storages.InvestmentPackage {
	return &storages.InvestmentPackage{
		Name:               r.Name,
		Kind:               r.Kind,
		MinInvestment:      r.MinInvestment,
		MaxInvestment:      r.MaxInvestment,
		Price:              r.Price,
		DailyProfitPercent: r.DailyProfitPercent,
		DurationDays:       r.DurationDays,
	}
}

// DepositMethodRequest данные способа пополнения
type DepositMethodRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address" binding:"required"`
}

// WithdrawalMethodRequest данные способа вывода
type WithdrawalMethodRequest struct {
	Name string `json:"name" binding:"required"`
}

// ResolveResetRequest решение по заявке на сброс пароля
type ResolveResetRequest struct {
	NewPassword string `json:"newPassword" binding:"omitempty,min=6,max=72"`
}

// GetDashboard возвращает сводку по системе
// @Summary Admin dashboard
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.AdminDashboardData
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/dashboard [get]
func (h *AdminHandler) GetDashboard(c *gin.Context) {
	data, err := h.service.GetAdminDashboardData(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "get admin dashboard", err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// resolve выполняет решение по заявке с id из пути
func (h *AdminHandler) resolve(c *gin.Context, action string, fn func(ctx context.Context, txID string) (*storages.Transaction, error)) {
	tx, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, action, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// ApproveDeposit одобряет пополнение
// @Summary Approve deposit
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} storages.Transaction
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/admin/deposits/{id}/approve [post]
func (h *AdminHandler) ApproveDeposit(c *gin.Context) {
	h.resolve(c, "approve deposit", h.service.ApproveDeposit)
}

// RejectDeposit отклоняет пополнение
// @Summary Reject deposit
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} storages.Transaction
// @Router /api/v1/admin/deposits/{id}/reject [post]
func (h *AdminHandler) RejectDeposit(c *gin.Context) {
	h.resolve(c, "reject deposit", h.service.RejectDeposit)
}

// ApproveWithdrawal одобряет вывод
// @Summary Approve withdrawal
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} storages.Transaction
// @Router /api/v1/admin/withdrawals/{id}/approve [post]
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	h.resolve(c, "approve withdrawal", h.service.ApproveWithdrawal)
}

// RejectWithdrawal отклоняет вывод и возвращает средства
// @Summary Reject withdrawal
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} storages.Transaction
// @Router /api/v1/admin/withdrawals/{id}/reject [post]
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	h.resolve(c, "reject withdrawal", h.service.RejectWithdrawal)
}

// ListPackages возвращает каталог пакетов
// @Summary List packages
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/packages [get]
func (h *AdminHandler) ListPackages(c *gin.Context) {
	packages, err := h.service.GetInvestmentPackages(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list packages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

// CreatePackage добавляет пакет
// @Summary Create package
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body PackageRequest true "Package data"
// @Success 201 {object} storages.InvestmentPackage
// @Failure 400 {object} map[string]string
// @Router /api/v1/admin/packages [post]
func (h *AdminHandler) CreatePackage(c *gin.Context) {
	var req PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	pack, err := h.service.CreatePackage(c.Request.Context(), req.toPackage())
	if err != nil {
		respondError(c, h.logger, "create package", err)
		return
	}
	c.JSON(http.StatusCreated, pack)
}

// UpdatePackage меняет пакет
// @Summary Update package
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Package ID"
// @Param request body PackageRequest true "Package data"
// @Success 200 {object} storages.InvestmentPackage
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/packages/{id} [put]
func (h *AdminHandler) UpdatePackage(c *gin.Context) {
	var req PackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	pack, err := h.service.UpdatePackage(c.Request.Context(), c.Param("id"), req.toPackage())
	if err != nil {
		respondError(c, h.logger, "update package", err)
		return
	}
	c.JSON(http.StatusOK, pack)
}

// DeletePackage удаляет пакет
// @Summary Delete package
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Package ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/admin/packages/{id} [delete]
func (h *AdminHandler) DeletePackage(c *gin.Context) {
	if err := h.service.DeletePackage(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete package", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDepositMethods возвращает способы пополнения
// @Summary List deposit methods
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/deposit-methods [get]
func (h *AdminHandler) ListDepositMethods(c *gin.Context) {
	methods, err := h.service.ListDepositMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list deposit methods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// CreateDepositMethod добавляет способ пополнения
// @Summary Create deposit method
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body DepositMethodRequest true "Method data"
// @Success 201 {object} storages.DepositMethod
// @Router /api/v1/admin/deposit-methods [post]
func (h *AdminHandler) CreateDepositMethod(c *gin.Context) {
	var req DepositMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	method, err := h.service.CreateDepositMethod(c.Request.Context(), req.Name, req.Address)
	if err != nil {
		respondError(c, h.logger, "create deposit method", err)
		return
	}
	c.JSON(http.StatusCreated, method)
}

// UpdateDepositMethod меняет способ пополнения
// @Summary Update deposit method
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Method ID"
// @Param request body DepositMethodRequest true "Method data"
// @Success 200 {object} storages.DepositMethod
// @Router /api/v1/admin/deposit-methods/{id} [put]
func (h *AdminHandler) UpdateDepositMethod(c *gin.Context) {
	var req DepositMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	method, err := h.service.UpdateDepositMethod(c.Request.Context(), c.Param("id"), req.Name, req.Address)
	if err != nil {
		respondError(c, h.logger, "update deposit method", err)
		return
	}
	c.JSON(http.StatusOK, method)
}

// DeleteDepositMethod удаляет способ пополнения
// @Summary Delete deposit method
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 204
// @Router /api/v1/admin/deposit-methods/{id} [delete]
func (h *AdminHandler) DeleteDepositMethod(c *gin.Context) {
	if err := h.service.DeleteDepositMethod(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete deposit method", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListWithdrawalMethods возвращает способы вывода
// @Summary List withdrawal methods
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/withdrawal-methods [get]
func (h *AdminHandler) ListWithdrawalMethods(c *gin.Context) {
	methods, err := h.service.ListWithdrawalMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list withdrawal methods", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// CreateWithdrawalMethod добавляет способ вывода
// @Summary Create withdrawal method
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body WithdrawalMethodRequest true "Method data"
// @Success 201 {object} storages.WithdrawalMethod
// @Router /api/v1/admin/withdrawal-methods [post]
func (h *AdminHandler) CreateWithdrawalMethod(c *gin.Context) {
	var req WithdrawalMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	method, err := h.service.CreateWithdrawalMethod(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.logger, "create withdrawal method", err)
		return
	}
	c.JSON(http.StatusCreated, method)
}

// UpdateWithdrawalMethod меняет способ вывода
// @Summary Update withdrawal method
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Method ID"
// @Param request body WithdrawalMethodRequest true "Method data"
// @Success 200 {object} storages.WithdrawalMethod
// @Router /api/v1/admin/withdrawal-methods/{id} [put]
func (h *AdminHandler) UpdateWithdrawalMethod(c *gin.Context) {
	var req WithdrawalMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	method, err := h.service.UpdateWithdrawalMethod(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		respondError(c, h.logger, "update withdrawal method", err)
		return
	}
	c.JSON(http.StatusOK, method)
}

// DeleteWithdrawalMethod удаляет способ вывода
// @Summary Delete withdrawal method
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Method ID"
// @Success 204
// @Router /api/v1/admin/withdrawal-methods/{id} [delete]
func (h *AdminHandler) DeleteWithdrawalMethod(c *gin.Context) {
	if err := h.service.DeleteWithdrawalMethod(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, "delete withdrawal method", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListUsers возвращает всех пользователей
// @Summary List users
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "list users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListTransactions возвращает журнал с фильтром
// @Summary List transactions
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param user_id query string false "User ID"
// @Param type query string false "Transaction type"
// @Param status query string false "Transaction status"
// @Param limit query int false "Max records"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/transactions [get]
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	txs, err := h.service.QueryTransactions(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, "list transactions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// ListPasswordResets возвращает заявки на сброс пароля
// @Summary List password reset requests
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Param status query string false "PENDING or RESOLVED"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/password-resets [get]
func (h *AdminHandler) ListPasswordResets(c *gin.Context) {
	requests, err := h.service.ListPasswordResetRequests(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.logger, "list password resets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ResolvePasswordReset закрывает заявку на сброс пароля
// @Summary Resolve password reset request
// @Tags admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param request body ResolveResetRequest false "New password"
// @Success 200 {object} storages.PasswordResetRequest
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/admin/password-resets/{id}/resolve [post]
func (h *AdminHandler) ResolvePasswordReset(c *gin.Context) {
	var req ResolveResetRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}
	}

	resolved, err := h.service.ResolvePasswordResetRequest(c.Request.Context(), c.Param("id"), req.NewPassword)
	if err != nil {
		respondError(c, h.logger, "resolve password reset", err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}

// RunAccrualSweep запускает начисление прибыли всем пользователям
// @Summary Run accrual sweep
// @Tags admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} service.SweepResult
// @Router /api/v1/admin/accrual/sweep [post]
func (h *AdminHandler) RunAccrualSweep(c *gin.Context) {
	res, err := h.service.RunAccrualSweep(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "run accrual sweep", err)
		return
	}
	c.JSON(http.StatusOK, res)
}
