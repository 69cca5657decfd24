package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"invest-ledger/internal/audit"
	"invest-ledger/internal/audit/mongodb"
	"invest-ledger/internal/config"
	"invest-ledger/internal/kafka"
	"invest-ledger/internal/logger"
	"invest-ledger/pkg"
)

func main() {
	configPath := flag.String("c", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.ValidateNotifier(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger.Level, cfg.Kafka.ServiceName)
	log.Infof("Starting %s service...", cfg.Kafka.ServiceName)
	log.Infof("Configuration loaded from: %s", *configPath)

	storage, err := mongodb.New(&mongodb.Config{
		URI:         cfg.MongoDB.URI,
		Database:    cfg.MongoDB.Database,
		Collection:  cfg.MongoDB.Collection,
		Timeout:     cfg.MongoDB.Timeout,
		MaxPoolSize: cfg.MongoDB.MaxPoolSize,
		MinPoolSize: cfg.MongoDB.MinPoolSize,
	}, log)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := storage.Close(ctx); err != nil {
			log.Warnf("Failed to close MongoDB: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := storage.Ping(ctx); err != nil {
		cancel()
		log.Fatalf("MongoDB ping failed: %v", err)
	}
	cancel()
	log.Info("MongoDB connection established")

	consumer := kafka.NewConsumer(&kafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		Topic:         cfg.Kafka.Topic,
		GroupID:       cfg.Kafka.GroupID,
		Partition:     cfg.Kafka.Partition,
		MinBytes:      cfg.Kafka.MinBytes,
		MaxBytes:      cfg.Kafka.MaxBytes,
		MaxWait:       cfg.Kafka.MaxWait,
		BatchSize:     cfg.Processing.BatchSize,
		Workers:       cfg.Processing.Workers,
		FlushInterval: cfg.Processing.FlushInterval,
		RetryAttempts: cfg.Processing.RetryAttempts,
		RetryDelay:    cfg.Processing.RetryDelay,
	}, storage, log)
	defer consumer.Close()

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- consumer.Start(ctx)
	}()

	if cfg.Kafka.StatsPeriod > 0 {
		statsTicker := time.NewTicker(cfg.Kafka.StatsPeriod)
		defer statsTicker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-statsTicker.C:
					printStatistics(log, consumer, storage)
				}
			}
		}()
	}

	log.Info("Service is running. Press Ctrl+C to stop...")

	select {
	case <-sigChan:
		log.Info("Received shutdown signal...")
	case err := <-consumerErr:
		if err != nil {
			log.Errorf("Consumer error: %v", err)
		}
		// consumer уже завершился
		consumerErr <- nil
	}

	log.Info("Shutting down service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Processing.MaxProcessingTime)
	defer shutdownCancel()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded, forcing exit")
	case err := <-consumerErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("Consumer shutdown error: %v", err)
		}
	}

	printFinalStatistics(log, consumer, storage)

	log.Info("Service stopped gracefully")
}

// printStatistics выводит текущую статистику
func printStatistics(log *logrus.Logger, consumer *kafka.Consumer, storage audit.Storage) {
	stats := consumer.GetStatistics()
	log.Infof("Consumer Statistics: Processed=%d, Failed=%d, Rate=%.2f msg/s, Uptime=%s",
		stats.MessagesProcessed,
		stats.MessagesFailed,
		stats.ProcessingRate,
		pkg.FormatDuration(stats.Uptime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	storageStats, err := storage.GetStatistics(ctx)
	if err != nil {
		log.Warnf("Failed to get storage statistics: %v", err)
		return
	}

	log.Infof("Storage Statistics: Total=%d, EventTypes=%d", storageStats.TotalEvents, len(storageStats.ByEvent))
}

// printFinalStatistics выводит итоговую статистику перед завершением
func printFinalStatistics(log *logrus.Logger, consumer *kafka.Consumer, storage audit.Storage) {
	log.Info("=== Final Statistics ===")

	stats := consumer.GetStatistics()
	log.Infof("Total Messages Processed: %d", stats.MessagesProcessed)
	log.Infof("Total Messages Failed: %d", stats.MessagesFailed)
	log.Infof("Average Processing Rate: %s", pkg.FormatRate(stats.MessagesProcessed, stats.Uptime))
	log.Infof("Total Uptime: %s", pkg.FormatDuration(stats.Uptime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	storageStats, err := storage.GetStatistics(ctx)
	if err != nil {
		log.Warnf("Failed to get final storage statistics: %v", err)
		return
	}

	log.Infof("Total Events in DB: %d", storageStats.TotalEvents)
	for event, s := range storageStats.ByEvent {
		log.Infof("  %s: count=%d, amount=%s", event, s.Count, s.TotalAmount)
	}
	log.Info("========================")
}
