package audit

import "context"

// Storage определяет интерфейс хранилища журнала аудита
type Storage interface {
	// SaveBatch сохраняет пакет записей. Уже сохраненные события пропускаются.
	SaveBatch(ctx context.Context, records []Record) (int, error)

	// ListByUser возвращает события пользователя, новые первыми
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)

	// ListRecent возвращает последние обработанные события
	ListRecent(ctx context.Context, limit int) ([]Record, error)

	// GetStatistics возвращает статистику по типам событий
	GetStatistics(ctx context.Context) (*Statistics, error)

	// Health check
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
