package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Поддерживаемые хранилища
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// События, за которые начисляется реферальный бонус
const (
	ReferralTriggerDeposit    = "deposit"
	ReferralTriggerInvestment = "investment"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Admin      AdminConfig
	Cache      CacheConfig
	Kafka      KafkaConfig
	MongoDB    MongoDBConfig
	Processing ProcessingConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Ledger     LedgerConfig
	Logger     LoggerConfig
}

// ServerConfig содержит конфигурацию сервера
type ServerConfig struct {
	HTTPPort string
	GinMode  string
}

// StorageConfig определяет, какое хранилище использовать
type StorageConfig struct {
	Backend string
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxRetries       int
}

// JWTConfig содержит конфигурацию JWT
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// AdminConfig учетные данные администратора, создаваемого при старте
type AdminConfig struct {
	Username string
	Password string
}

// CacheConfig содержит конфигурацию кеша
type CacheConfig struct {
	PackagesTTL time.Duration
}

// KafkaConfig содержит конфигурацию Kafka
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	Topic          string
	EventThreshold float64
	GroupID        string
	Partition      int
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	ServiceName    string
	StatsPeriod    time.Duration
}

// MongoDBConfig содержит конфигурацию MongoDB для журнала событий
type MongoDBConfig struct {
	URI         string
	Database    string
	Collection  string
	Timeout     time.Duration
	MaxPoolSize uint64
	MinPoolSize uint64
}

// ProcessingConfig содержит конфигурацию обработки событий
type ProcessingConfig struct {
	BatchSize         int
	Workers           int
	FlushInterval     time.Duration
	MaxProcessingTime time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// RedisConfig содержит конфигурацию Redis
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig параметры token bucket
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// LedgerConfig содержит бизнес-параметры учета
type LedgerConfig struct {
	MinWithdrawal        float64
	WithdrawalCooldown   time.Duration
	ReferralBonusPercent float64
	ReferralTrigger      string
	AccrualSweepInterval time.Duration
	RecentTransactions   int
}

// LoggerConfig содержит конфигурацию логгера
type LoggerConfig struct {
	Level string
}

// Load загружает конфигурацию из файла окружения
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		if err := godotenv.Load(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg := &Config{}

	// Server
	cfg.Server.HTTPPort = getEnv("HTTP_PORT", DefaultHTTPPort)
	cfg.Server.GinMode = getEnv("GIN_MODE", DefaultGinMode)

	// Storage
	cfg.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", DefaultStorageBackend))

	// Database
	cfg.Database.Host = getEnv("DB_HOST", DefaultDBHost)
	cfg.Database.Port = getEnvInt("DB_PORT", DefaultDBPort)
	cfg.Database.User = getEnv("DB_USER", DefaultDBUser)
	cfg.Database.Password = getEnv("DB_PASSWORD", DefaultDBPassword)
	cfg.Database.DBName = getEnv("DB_NAME", DefaultDBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", DefaultDBSSLMode)
	cfg.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", DefaultDBMaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", DefaultDBMaxIdleConns)
	cfg.Database.ConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", DefaultDBConnMaxLifetime)
	cfg.Database.TxRetries = getEnvInt("DB_TX_RETRIES", DefaultDBTxRetries)

	// JWT
	cfg.JWT.Secret = getEnv("JWT_SECRET", DefaultJWTSecret)
	cfg.JWT.Expiration = getEnvDuration("JWT_EXPIRATION", DefaultJWTExpiration)

	// Admin
	cfg.Admin.Username = getEnv("ADMIN_USERNAME", DefaultAdminUsername)
	cfg.Admin.Password = getEnv("ADMIN_PASSWORD", "")

	// Cache
	cfg.Cache.PackagesTTL = getEnvDuration("CACHE_PACKAGES_TTL", DefaultCachePackagesTTL)

	// Kafka
	cfg.Kafka.Enabled = getEnvBool("KAFKA_ENABLED", DefaultKafkaEnabled)
	cfg.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", DefaultKafkaBrokers))
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", DefaultKafkaTopic)
	cfg.Kafka.EventThreshold = getEnvFloat("KAFKA_EVENT_THRESHOLD", DefaultKafkaEventThreshold)
	cfg.Kafka.GroupID = getEnv("KAFKA_GROUP_ID", DefaultKafkaGroupID)
	cfg.Kafka.Partition = getEnvInt("KAFKA_PARTITION", DefaultKafkaPartition)
	cfg.Kafka.MinBytes = getEnvInt("KAFKA_MIN_BYTES", DefaultKafkaMinBytes)
	cfg.Kafka.MaxBytes = getEnvInt("KAFKA_MAX_BYTES", DefaultKafkaMaxBytes)
	cfg.Kafka.MaxWait = getEnvDuration("KAFKA_MAX_WAIT", DefaultKafkaMaxWait)
	cfg.Kafka.ServiceName = getEnv("SERVICE_NAME", DefaultNotifierServiceName)
	cfg.Kafka.StatsPeriod = getEnvDuration("STATS_PERIOD", DefaultNotifierStatsPeriod)

	// MongoDB
	cfg.MongoDB.URI = getEnv("MONGO_URI", DefaultMongoURI)
	cfg.MongoDB.Database = getEnv("MONGO_DATABASE", DefaultMongoDatabase)
	cfg.MongoDB.Collection = getEnv("MONGO_COLLECTION", DefaultMongoCollection)
	cfg.MongoDB.Timeout = getEnvDuration("MONGO_TIMEOUT", DefaultMongoTimeout)
	cfg.MongoDB.MaxPoolSize = uint64(getEnvInt("MONGO_MAX_POOL_SIZE", DefaultMongoMaxPoolSize))
	cfg.MongoDB.MinPoolSize = uint64(getEnvInt("MONGO_MIN_POOL_SIZE", DefaultMongoMinPoolSize))

	// Processing
	cfg.Processing.BatchSize = getEnvInt("BATCH_SIZE", DefaultBatchSize)
	cfg.Processing.Workers = getEnvInt("WORKERS", DefaultWorkers)
	cfg.Processing.FlushInterval = getEnvDuration("FLUSH_INTERVAL", DefaultFlushInterval)
	cfg.Processing.MaxProcessingTime = getEnvDuration("MAX_PROCESSING_TIME", DefaultMaxProcessingTime)
	cfg.Processing.RetryAttempts = getEnvInt("RETRY_ATTEMPTS", DefaultRetryAttempts)
	cfg.Processing.RetryDelay = getEnvDuration("RETRY_DELAY", DefaultRetryDelay)

	// Redis
	cfg.Redis.Addr = getEnv("REDIS_ADDR", DefaultRedisAddr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", DefaultRedisDB)

	// Rate limit
	cfg.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", DefaultRateLimitEnabled)
	cfg.RateLimit.Capacity = getEnvInt("RATE_LIMIT_CAPACITY", DefaultRateLimitCapacity)
	cfg.RateLimit.RefillTokens = getEnvInt("RATE_LIMIT_REFILL_TOKENS", DefaultRateLimitRefillTokens)
	cfg.RateLimit.RefillInterval = getEnvDuration("RATE_LIMIT_REFILL_INTERVAL", DefaultRateLimitRefillInterval)
	cfg.RateLimit.TTL = getEnvDuration("RATE_LIMIT_TTL", DefaultRateLimitTTL)
	cfg.RateLimit.Prefix = getEnv("RATE_LIMIT_PREFIX", DefaultRateLimitPrefix)

	// Ledger
	cfg.Ledger.MinWithdrawal = getEnvFloat("MIN_WITHDRAWAL", DefaultMinWithdrawal)
	cfg.Ledger.WithdrawalCooldown = getEnvDuration("WITHDRAWAL_COOLDOWN", DefaultWithdrawalCooldown)
	cfg.Ledger.ReferralBonusPercent = getEnvFloat("REFERRAL_BONUS_PERCENT", DefaultReferralBonusPercent)
	cfg.Ledger.ReferralTrigger = strings.ToLower(getEnv("REFERRAL_TRIGGER", DefaultReferralTrigger))
	cfg.Ledger.AccrualSweepInterval = getEnvDuration("ACCRUAL_SWEEP_INTERVAL", DefaultAccrualSweepInterval)
	cfg.Ledger.RecentTransactions = getEnvInt("RECENT_TRANSACTIONS", DefaultRecentTransactions)

	// Logger
	cfg.Logger.Level = getEnv("LOG_LEVEL", DefaultLogLevel)

	return cfg, nil
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat получает переменную окружения типа float64
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения типа duration
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool получает булеву переменную окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Validate проверяет корректность конфигурации сервиса учета
func (c *Config) Validate() error {
	if c.Server.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND: %s", c.Storage.Backend)
	}

	if c.JWT.Secret == "" || c.JWT.Secret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET must be set to a secure value")
	}

	if c.Ledger.MinWithdrawal < 0 {
		return fmt.Errorf("MIN_WITHDRAWAL must not be negative")
	}

	if c.Ledger.ReferralBonusPercent < 0 || c.Ledger.ReferralBonusPercent > 100 {
		return fmt.Errorf("REFERRAL_BONUS_PERCENT must be between 0 and 100")
	}

	if c.Ledger.ReferralTrigger != ReferralTriggerDeposit && c.Ledger.ReferralTrigger != ReferralTriggerInvestment {
		return fmt.Errorf("unsupported REFERRAL_TRIGGER: %s", c.Ledger.ReferralTrigger)
	}

	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	return nil
}

// ValidateNotifier проверяет конфигурацию сервиса журнала событий
func (c *Config) ValidateNotifier() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required")
	}

	if c.MongoDB.URI == "" {
		return fmt.Errorf("MONGO_URI is required")
	}

	if c.Processing.BatchSize <= 0 || c.Processing.Workers <= 0 {
		return fmt.Errorf("BATCH_SIZE and WORKERS must be positive")
	}

	if c.Processing.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS must be positive")
	}

	if _, err := logrus.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logger.Level)
	}

	return nil
}
