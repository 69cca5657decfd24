package memory

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"invest-ledger/internal/storages"
)

// MemoryStorage хранит данные в памяти процесса.
// Транзакция работает с копией состояния, которая заменяет текущее только при успехе.
type MemoryStorage struct {
	mu     sync.Mutex
	state  *state
	logger *logrus.Logger
}

// New создает пустое хранилище в памяти
func New(logger *logrus.Logger) *MemoryStorage {
	logger.Info("Using in-memory storage")
	return &MemoryStorage{
		state:  newState(),
		logger: logger,
	}
}

// WithTransaction выполняет fn над копией состояния и фиксирует ее при отсутствии ошибки
func (s *MemoryStorage) WithTransaction(ctx context.Context, fn storages.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.state.clone()
	if err := fn(ctx, &repo{st: draft}); err != nil {
		s.logger.Debugf("Memory transaction rolled back: %v", err)
		return err
	}

	s.state = draft
	return nil
}

// read выполняет операцию чтения над текущим состоянием
func (s *MemoryStorage) read(fn func(r *repo) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&repo{st: s.state})
}

// write выполняет одиночную операцию как отдельную транзакцию
func (s *MemoryStorage) write(ctx context.Context, fn func(r *repo) error) error {
	return s.WithTransaction(ctx, func(_ context.Context, r storages.Repositories) error {
		return fn(r.(*repo))
	})
}

// Ping всегда успешен
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает
func (s *MemoryStorage) Close() error {
	return nil
}
