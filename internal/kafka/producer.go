package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// messageWriter часть kafka.Writer, используемая producer
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer Kafka producer для событий журнала
type Producer struct {
	writer    messageWriter
	threshold decimal.Decimal
	logger    *logrus.Logger
}

// NewProducer создает новый Kafka producer.
// События с суммой ниже threshold не отправляются (0 - отправлять все).
func NewProducer(brokers []string, topic string, threshold float64, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger:  kafka.LoggerFunc(logger.Errorf),
	}

	logger.Infof("Kafka producer initialized for topic: %s", topic)

	return newProducer(writer, threshold, logger)
}

func newProducer(writer messageWriter, threshold float64, logger *logrus.Logger) *Producer {
	return &Producer{
		writer:    writer,
		threshold: decimal.NewFromFloat(threshold),
		logger:    logger,
	}
}

// PublishLedgerEvents отправляет события в Kafka.
// Ключ сообщения - пользователь, поэтому события одного пользователя идут в одну партицию.
func (p *Producer) PublishLedgerEvents(ctx context.Context, events []LedgerEvent) error {
	messages, err := p.buildMessages(events)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Errorf("Failed to send messages to Kafka: %v", err)
		return fmt.Errorf("failed to send messages: %w", err)
	}

	p.logger.Debugf("Sent %d ledger events to Kafka", len(messages))
	return nil
}

func (p *Producer) buildMessages(events []LedgerEvent) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event.Amount.LessThan(p.threshold) {
			p.logger.Debugf("Event amount %s is below threshold %s, skipping", event.Amount, p.threshold)
			continue
		}

		value, err := json.Marshal(event)
		if err != nil {
			p.logger.Errorf("Failed to marshal Kafka message: %v", err)
			return nil, fmt.Errorf("failed to marshal message: %w", err)
		}

		messages = append(messages, kafka.Message{
			Key:   []byte("user_" + event.UserID),
			Value: value,
			Time:  time.Now(),
		})
	}
	return messages, nil
}

// Close закрывает Kafka producer
func (p *Producer) Close() error {
	if p.writer != nil {
		p.logger.Info("Closing Kafka producer")
		return p.writer.Close()
	}
	return nil
}
