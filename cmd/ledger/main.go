package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"invest-ledger/internal/api"
	"invest-ledger/internal/api/middleware"
	"invest-ledger/internal/cache"
	"invest-ledger/internal/config"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/logger"
	"invest-ledger/internal/service"
	"invest-ledger/internal/storages"
	"invest-ledger/internal/storages/memory"
	"invest-ledger/internal/storages/postgres"
)

// @title Investment Ledger API
// @version 1.0
// @description API for investment accounts: deposits, withdrawals, packages and daily profit accrual

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level, "ledger")
	log.Info("Starting invest-ledger service...")
	log.Infof("Configuration loaded from: %s", *configPath)

	storage, err := openStorage(cfg, log)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("Storage ping failed: %v", err)
	}
	cancel()
	log.Infof("Storage ready: %s", cfg.Storage.Backend)

	packagesCache := cache.NewPackagesCache(cfg.Cache.PackagesTTL)
	log.Info("Packages cache initialized")

	// Интерфейсная переменная остается nil, если Kafka выключена
	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.EventThreshold, log)
		defer producer.Close()
		publisher = producer
	} else {
		log.Info("Kafka publishing disabled")
	}

	rdb := cache.NewRedisClient(cfg.Redis, log)
	if rdb != nil {
		defer rdb.Close()
	}

	ledgerService := service.NewLedgerService(
		storage,
		packagesCache,
		publisher,
		service.SettingsFromConfig(cfg.Ledger),
		log,
	)
	log.Info("Ledger service initialized")

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := ledgerService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		cancel()
		log.Fatalf("Failed to ensure admin account: %v", err)
	}
	cancel()

	jwtMiddleware := middleware.NewJWTMiddleware(cfg.JWT.Secret, log)

	router := api.SetupRouter(
		ledgerService,
		jwtMiddleware,
		cfg.JWT.Expiration,
		rdb,
		cfg.RateLimit,
		log,
		cfg.Server.GinMode,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		service.NewSweeper(ledgerService, cfg.Ledger.AccrualSweepInterval, log).Run(sweepCtx)
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("HTTP server is listening on port %s", cfg.Server.HTTPPort)
		log.Infof("Swagger documentation available at: http://localhost:%s/swagger/index.html", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	<-done
	log.Info("Shutting down server...")

	stopSweep()
	<-sweeperDone

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// openStorage подключает хранилище, выбранное в конфигурации
func openStorage(cfg *config.Config, log *logrus.Logger) (storages.Storage, error) {
	if cfg.Storage.Backend == config.BackendMemory {
		return memory.New(log), nil
	}

	storage, err := postgres.New(&postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		TxRetries:       cfg.Database.TxRetries,
	}, log)
	if err != nil {
		return nil, err
	}
	return storage, nil
}
