package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"invest-ledger/internal/api/handlers"
	"invest-ledger/internal/api/middleware"
	"invest-ledger/internal/config"
	"invest-ledger/internal/service"
	"invest-ledger/internal/storages"
)

// SetupRouter настраивает и возвращает роутер с всеми эндпоинтами
func SetupRouter(
	ledgerService *service.LedgerService,
	jwtMiddleware *middleware.JWTMiddleware,
	jwtExpiration time.Duration,
	rdb *redis.Client,
	rateCfg config.RateLimitConfig,
	logger *logrus.Logger,
	ginMode string,
) *gin.Engine {
	gin.SetMode(ginMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authHandler := handlers.NewAuthHandler(ledgerService, jwtMiddleware, jwtExpiration, logger)
	ledgerHandler := handlers.NewLedgerHandler(ledgerService, logger)
	adminHandler := handlers.NewAdminHandler(ledgerService, logger)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(rateCfg, rdb, logger))
	{
		// Public routes (без авторизации)
		v1.POST("/register", authHandler.Register)
		v1.POST("/login", authHandler.Login)
		v1.POST("/password-resets", authHandler.RequestPasswordReset)

		authorized := v1.Group("")
		authorized.Use(jwtMiddleware.Auth())
		{
			authorized.GET("/dashboard", ledgerHandler.GetDashboard)
			authorized.GET("/packages", ledgerHandler.GetPackages)
			authorized.POST("/investments", ledgerHandler.Invest)
			authorized.POST("/deposits", ledgerHandler.RequestDeposit)
			authorized.POST("/withdrawals", ledgerHandler.RequestWithdrawal)
			authorized.GET("/transactions", ledgerHandler.GetTransactions)
			authorized.GET("/deposit-methods", ledgerHandler.GetDepositMethods)
			authorized.GET("/withdrawal-methods", ledgerHandler.GetWithdrawalMethods)
		}

		admin := v1.Group("/admin")
		admin.Use(jwtMiddleware.Auth(), jwtMiddleware.RequireRole(storages.RoleAdmin))
		{
			admin.GET("/dashboard", adminHandler.GetDashboard)

			admin.POST("/deposits/:id/approve", adminHandler.ApproveDeposit)
			admin.POST("/deposits/:id/reject", adminHandler.RejectDeposit)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)

			admin.GET("/packages", adminHandler.ListPackages)
			admin.POST("/packages", adminHandler.CreatePackage)
			admin.PUT("/packages/:id", adminHandler.UpdatePackage)
			admin.DELETE("/packages/:id", adminHandler.DeletePackage)

			admin.GET("/deposit-methods", adminHandler.ListDepositMethods)
			admin.POST("/deposit-methods", adminHandler.CreateDepositMethod)
			admin.PUT("/deposit-methods/:id", adminHandler.UpdateDepositMethod)
			admin.DELETE("/deposit-methods/:id", adminHandler.DeleteDepositMethod)

			admin.GET("/withdrawal-methods", adminHandler.ListWithdrawalMethods)
			admin.POST("/withdrawal-methods", adminHandler.CreateWithdrawalMethod)
			admin.PUT("/withdrawal-methods/:id", adminHandler.UpdateWithdrawalMethod)
			admin.DELETE("/withdrawal-methods/:id", adminHandler.DeleteWithdrawalMethod)

			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/transactions", adminHandler.ListTransactions)

			admin.GET("/password-resets", adminHandler.ListPasswordResets)
			admin.POST("/password-resets/:id/resolve", adminHandler.ResolvePasswordReset)

			admin.POST("/accrual/sweep", adminHandler.RunAccrualSweep)
		}
	}

	return router
}
