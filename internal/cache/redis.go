package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"invest-ledger/internal/config"
)

// NewRedisClient подключается к Redis.
// Возвращает nil, если сервер недоступен: ограничение частоты запросов тогда отключается.
func NewRedisClient(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("Redis is unavailable at %s: %v", cfg.Addr, err)
		_ = client.Close()
		return nil
	}

	logger.Infof("Connected to Redis at %s", cfg.Addr)
	return client
}
