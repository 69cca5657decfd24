package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/audit"
)

// messageReader часть kafka.Reader, используемая consumer
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer читает события журнала и сохраняет их в хранилище аудита
type Consumer struct {
	reader        messageReader
	storage       audit.Storage
	logger        *logrus.Logger
	batchSize     int
	workers       int
	flushInterval time.Duration
	retryAttempts int
	retryDelay    time.Duration

	mu                sync.RWMutex
	messagesProcessed int64
	messagesFailed    int64
	startTime         time.Time
}

// Config конфигурация consumer
type Config struct {
	Brokers       []string
	Topic         string
	GroupID       string
	Partition     int
	MinBytes      int
	MaxBytes      int
	MaxWait       time.Duration
	BatchSize     int
	Workers       int
	FlushInterval time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// NewConsumer создает новый Kafka consumer
func NewConsumer(cfg *Config, storage audit.Storage, logger *logrus.Logger) *Consumer {
	readerConfig := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		Logger:      kafka.LoggerFunc(logger.Debugf),
		ErrorLogger: kafka.LoggerFunc(logger.Errorf),
	}
	// Partition нельзя задавать вместе с GroupID
	if cfg.GroupID == "" {
		readerConfig.Partition = cfg.Partition
	}

	logger.Infof("Kafka consumer initialized: Topic=%s, GroupID=%s, Brokers=%v",
		cfg.Topic, cfg.GroupID, cfg.Brokers)

	return newConsumer(kafka.NewReader(readerConfig), cfg, storage, logger)
}

func newConsumer(reader messageReader, cfg *Config, storage audit.Storage, logger *logrus.Logger) *Consumer {
	return &Consumer{
		reader:        reader,
		storage:       storage,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		workers:       cfg.Workers,
		flushInterval: cfg.FlushInterval,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
		startTime:     time.Now(),
	}
}

// Start запускает чтение и обработку до отмены ctx
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer...")

	messages := make(chan kafka.Message, c.batchSize*2)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.processMessages(ctx, messages, workerID)
		}(i)
	}

	go func() {
		defer close(messages)
		c.readMessages(ctx, messages)
	}()

	wg.Wait()

	c.logger.Info("Kafka consumer stopped")
	return nil
}

// readMessages читает сообщения из Kafka
func (c *Consumer) readMessages(ctx context.Context, messages chan<- kafka.Message) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Stopping message reading...")
				return
			}
			c.logger.Errorf("Failed to fetch message: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		select {
		case messages <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// processMessages собирает пакеты и сохраняет их по размеру или по таймеру
func (c *Consumer) processMessages(ctx context.Context, messages <-chan kafka.Message, workerID int) {
	batch := make([]audit.Record, 0, c.batchSize)
	kafkaMessages := make([]kafka.Message, 0, c.batchSize)

	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	flush := func(flushCtx context.Context) {
		if len(batch) == 0 {
			return
		}
		c.flushBatch(flushCtx, batch, kafkaMessages)
		batch = batch[:0]
		kafkaMessages = kafkaMessages[:0]
	}

	for {
		select {
		case <-ctx.Done():
			// ctx уже отменен, остаток пакета сохраняем с отдельным таймаутом
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(drainCtx)
			cancel()
			return

		case <-ticker.C:
			flush(ctx)

		case msg, ok := <-messages:
			if !ok {
				flush(ctx)
				return
			}

			record, err := c.parseMessage(msg)
			if err != nil {
				c.logger.Errorf("Worker %d: Failed to parse message: %v", workerID, err)
				c.incrementFailed()
				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.Errorf("Worker %d: Failed to commit failed message: %v", workerID, err)
				}
				continue
			}

			batch = append(batch, *record)
			kafkaMessages = append(kafkaMessages, msg)

			if len(batch) >= c.batchSize {
				flush(ctx)
			}
		}
	}
}

// parseMessage парсит сообщение Kafka в запись аудита
func (c *Consumer) parseMessage(msg kafka.Message) (*audit.Record, error) {
	var event LedgerEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	if event.Event == "" || event.UserID == "" {
		return nil, fmt.Errorf("invalid message: event and user_id are required")
	}

	if event.TransactionID == "" && event.InvestmentID == "" {
		return nil, fmt.Errorf("invalid message: transaction_id or investment_id is required")
	}

	return &audit.Record{
		Event:         event.Event,
		TransactionID: event.TransactionID,
		InvestmentID:  event.InvestmentID,
		UserID:        event.UserID,
		Type:          event.Type,
		Status:        event.Status,
		Amount:        audit.ToDecimal128(event.Amount),
		Timestamp:     event.Timestamp,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
	}, nil
}

// flushBatch сохраняет пакет с повторами и коммитит сообщения
func (c *Consumer) flushBatch(ctx context.Context, batch []audit.Record, messages []kafka.Message) {
	start := time.Now()

	var err error
	var saved int
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		saved, err = c.storage.SaveBatch(ctx, batch)
		if err == nil {
			break
		}

		c.logger.Warnf("Attempt %d/%d: Failed to save batch: %v", attempt+1, c.retryAttempts, err)

		if attempt < c.retryAttempts-1 {
			time.Sleep(c.retryDelay)
		}
	}

	if err != nil {
		c.logger.Errorf("Failed to save batch after %d attempts: %v", c.retryAttempts, err)
		c.incrementFailed()
		return
	}

	if err := c.reader.CommitMessages(ctx, messages...); err != nil {
		c.logger.Errorf("Failed to commit messages: %v", err)
		return
	}

	c.incrementProcessed(int64(len(batch)))

	duration := time.Since(start)
	c.logger.Infof("Flushed batch: size=%d, saved=%d, duration=%v", len(batch), saved, duration)
}

func (c *Consumer) incrementProcessed(count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesProcessed += count
}

func (c *Consumer) incrementFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messagesFailed++
}

// Statistics статистика работы consumer
type Statistics struct {
	MessagesProcessed int64
	MessagesFailed    int64
	ProcessingRate    float64
	Uptime            time.Duration
}

// GetStatistics возвращает статистику обработки
func (c *Consumer) GetStatistics() Statistics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	uptime := time.Since(c.startTime)
	var rate float64
	if uptime > 0 {
		rate = float64(c.messagesProcessed) / uptime.Seconds()
	}

	return Statistics{
		MessagesProcessed: c.messagesProcessed,
		MessagesFailed:    c.messagesFailed,
		ProcessingRate:    rate,
		Uptime:            uptime,
	}
}

// Close закрывает consumer
func (c *Consumer) Close() error {
	c.logger.Info("Closing Kafka consumer")
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
