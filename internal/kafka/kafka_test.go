package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"invest-ledger/internal/audit"
	"invest-ledger/internal/logger"
	"invest-ledger/internal/storages"
)

// fakeWriter запоминает отправленные сообщения
type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader отдает заранее заданные сообщения, затем ждет отмены
type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

// fakeAudit хранит записи в памяти
type fakeAudit struct {
	mu      sync.Mutex
	records []audit.Record
	fails   int
}

func (s *fakeAudit) SaveBatch(_ context.Context, records []audit.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return 0, errors.New("mongo unavailable")
	}
	s.records = append(s.records, records...)
	return len(records), nil
}

func (s *fakeAudit) ListByUser(context.Context, string, int) ([]audit.Record, error) { return nil, nil }
func (s *fakeAudit) ListRecent(context.Context, int) ([]audit.Record, error)         { return nil, nil }
func (s *fakeAudit) GetStatistics(context.Context) (*audit.Statistics, error)        { return &audit.Statistics{}, nil }
func (s *fakeAudit) Ping(context.Context) error                                      { return nil }
func (s *fakeAudit) Close(context.Context) error                                     { return nil }

func (s *fakeAudit) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func testEvent(id string, amount int64) LedgerEvent {
	tx := &storages.Transaction{
		ID:     id,
		UserID: "u1",
		Type:   storages.TransactionTypeDeposit,
		Status: storages.TransactionStatusCompleted,
		Amount: decimal.NewFromInt(amount),
		Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	return TransactionEvent(EventTransactionApproved, tx)
}

func encode(t *testing.T, event LedgerEvent) kafka.Message {
	value, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return kafka.Message{Value: value}
}

func TestProducerThreshold(t *testing.T) {
	writer := &fakeWriter{}
	producer := newProducer(writer, 100, logger.Discard())

	err := producer.PublishLedgerEvents(context.Background(), []LedgerEvent{testEvent("t1", 50), testEvent("t2", 150)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(writer.messages) != 1 {
		t.Fatalf("Expected 1 message above threshold, got %d", len(writer.messages))
	}
	if string(writer.messages[0].Key) != "user_u1" {
		t.Fatalf("Expected key user_u1, got %s", writer.messages[0].Key)
	}

	var decoded LedgerEvent
	if err := json.Unmarshal(writer.messages[0].Value, &decoded); err != nil {
		t.Fatalf("Failed to decode message: %v", err)
	}
	if decoded.TransactionID != "t2" || !decoded.Amount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("Unexpected event: %+v", decoded)
	}
}

func TestProducerWriteError(t *testing.T) {
	producer := newProducer(&fakeWriter{err: errors.New("broker down")}, 0, logger.Discard())
	if err := producer.PublishLedgerEvents(context.Background(), []LedgerEvent{testEvent("t1", 1)}); err == nil {
		t.Fatal("Expected error when broker is down")
	}
}

func TestParseMessage(t *testing.T) {
	consumer := newConsumer(&fakeReader{}, &Config{BatchSize: 1, Workers: 1}, &fakeAudit{}, logger.Discard())

	record, err := consumer.parseMessage(encode(t, testEvent("t1", 75)))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if record.TransactionID != "t1" || !record.DecimalAmount().Equal(decimal.NewFromInt(75)) {
		t.Fatalf("Unexpected record: %+v", record)
	}

	if _, err := consumer.parseMessage(kafka.Message{Value: []byte("not json")}); err == nil {
		t.Fatal("Expected error for malformed message")
	}

	if _, err := consumer.parseMessage(encode(t, LedgerEvent{Event: EventTransactionCreated})); err == nil {
		t.Fatal("Expected error for message without user")
	}
}

func TestFlushBatchRetries(t *testing.T) {
	reader := &fakeReader{}
	store := &fakeAudit{fails: 1}
	consumer := newConsumer(reader, &Config{BatchSize: 10, Workers: 1, RetryAttempts: 2, RetryDelay: time.Millisecond}, store, logger.Discard())

	record, _ := consumer.parseMessage(encode(t, testEvent("t1", 10)))
	consumer.flushBatch(context.Background(), []audit.Record{*record}, []kafka.Message{{Offset: 1}})

	if store.count() != 1 || reader.committedCount() != 1 {
		t.Fatalf("Expected batch saved and committed after retry, got %d saved %d committed", store.count(), reader.committedCount())
	}
	if stats := consumer.GetStatistics(); stats.MessagesProcessed != 1 {
		t.Fatalf("Expected 1 processed message, got %d", stats.MessagesProcessed)
	}
}

func TestConsumerStart(t *testing.T) {
	reader := &fakeReader{}
	for i, id := range []string{"t1", "t2", "t3"} {
		msg := encode(t, testEvent(id, int64(i+1)))
		msg.Offset = int64(i)
		reader.pending = append(reader.pending, msg)
	}
	reader.pending = append(reader.pending, kafka.Message{Value: []byte("{}")})

	store := &fakeAudit{}
	cfg := &Config{BatchSize: 3, Workers: 1, FlushInterval: time.Hour, RetryAttempts: 1, RetryDelay: time.Millisecond}
	consumer := newConsumer(reader, cfg, store, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for reader.committedCount() < 4 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Expected clean stop, got %v", err)
	}
	if store.count() != 3 {
		t.Fatalf("Expected 3 stored records, got %d", store.count())
	}
	stats := consumer.GetStatistics()
	if stats.MessagesProcessed != 3 || stats.MessagesFailed != 1 {
		t.Fatalf("Unexpected statistics: %+v", stats)
	}
}
