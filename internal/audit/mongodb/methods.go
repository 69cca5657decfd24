package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"invest-ledger/internal/audit"
)

const duplicateKeyCode = 11000

// SaveBatch сохраняет пакет событий. Дубликаты (повторная доставка) не считаются ошибкой.
func (s *MongoStorage) SaveBatch(ctx context.Context, records []audit.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	documents := make([]interface{}, len(records))
	now := time.Now()
	for i := range records {
		records[i].ProcessedAt = now
		documents[i] = records[i]
	}

	result, err := s.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	if err == nil {
		s.logger.Debugf("Saved batch of %d audit records", len(result.InsertedIDs))
		return len(result.InsertedIDs), nil
	}

	duplicates, ok := onlyDuplicates(err)
	if !ok {
		s.logger.Errorf("Failed to save audit batch: %v", err)
		return 0, fmt.Errorf("failed to save audit batch: %w", err)
	}

	inserted := len(records) - duplicates
	s.logger.Infof("Saved batch of %d audit records, skipped %d duplicates", inserted, duplicates)
	return inserted, nil
}

// onlyDuplicates проверяет, что все ошибки пакетной вставки - дубликаты ключа
func onlyDuplicates(err error) (int, bool) {
	var bulkErr mongo.BulkWriteException
	if !errors.As(err, &bulkErr) || bulkErr.WriteConcernError != nil {
		return 0, false
	}
	for _, we := range bulkErr.WriteErrors {
		if we.Code != duplicateKeyCode {
			return 0, false
		}
	}
	return len(bulkErr.WriteErrors), true
}

// ListByUser возвращает события пользователя
func (s *MongoStorage) ListByUser(ctx context.Context, userID string, limit int) ([]audit.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	return s.find(ctx, bson.M{"user_id": userID}, opts)
}

// ListRecent возвращает последние обработанные события
func (s *MongoStorage) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "processed_at", Value: -1}}).
		SetLimit(int64(limit))

	return s.find(ctx, bson.M{}, opts)
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]audit.Record, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		s.logger.Errorf("Failed to query audit records: %v", err)
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		s.logger.Errorf("Failed to decode audit records: %v", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}
	return records, nil
}

// GetStatistics возвращает статистику по типам событий
func (s *MongoStorage) GetStatistics(ctx context.Context) (*audit.Statistics, error) {
	pipeline := []bson.M{
		{
			"$group": bson.M{
				"_id":            "$event",
				"count":          bson.M{"$sum": 1},
				"total_amount":   bson.M{"$sum": "$amount"},
				"last_processed": bson.M{"$max": "$processed_at"},
			},
		},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		s.logger.Errorf("Failed to get statistics: %v", err)
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Event         string               `bson:"_id"`
		Count         int64                `bson:"count"`
		TotalAmount   primitive.Decimal128 `bson:"total_amount"`
		LastProcessed time.Time            `bson:"last_processed"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		s.logger.Errorf("Failed to decode statistics: %v", err)
		return nil, fmt.Errorf("failed to decode statistics: %w", err)
	}

	stats := &audit.Statistics{ByEvent: make(map[string]audit.EventStats, len(results))}
	for _, r := range results {
		stats.TotalEvents += r.Count
		stats.ByEvent[r.Event] = audit.EventStats{
			Count:       r.Count,
			TotalAmount: audit.FromDecimal128(r.TotalAmount),
		}
		if r.LastProcessed.After(stats.LastProcessedAt) {
			stats.LastProcessedAt = r.LastProcessed
		}
	}

	return stats, nil
}
