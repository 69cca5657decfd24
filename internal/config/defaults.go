package config

import "time"

// Server defaults
const (
	DefaultHTTPPort = "8080"
	DefaultGinMode  = "release"
	DefaultLogLevel = "info"
)

// Storage defaults
const (
	DefaultStorageBackend = BackendPostgres
)

// Database defaults
const (
	DefaultDBHost            = "localhost"
	DefaultDBPort            = 5432
	DefaultDBUser            = "ledger_user"
	DefaultDBPassword        = "ledger_password"
	DefaultDBName            = "ledger_db"
	DefaultDBSSLMode         = "disable"
	DefaultDBMaxOpenConns    = 25
	DefaultDBMaxIdleConns    = 5
	DefaultDBConnMaxLifetime = 5 * time.Minute
	DefaultDBTxRetries       = 3
)

// JWT defaults
const (
	DefaultJWTSecret     = "change-me-in-production"
	DefaultJWTExpiration = 24 * time.Hour
)

// Admin bootstrap defaults
const (
	DefaultAdminUsername = "admin"
)

// Cache defaults
const (
	DefaultCachePackagesTTL = 5 * time.Minute
)

// Kafka defaults
const (
	DefaultKafkaEnabled         = true
	DefaultKafkaBrokers         = "localhost:9092"
	DefaultKafkaTopic           = "ledger-events"
	DefaultKafkaEventThreshold  = 0.0
	DefaultKafkaGroupID         = "ledger-notifier-group"
	DefaultKafkaPartition       = 0
	DefaultKafkaMinBytes        = 1
	DefaultKafkaMaxBytes        = 10485760 // 10MB
	DefaultKafkaMaxWait         = 500 * time.Millisecond
	DefaultNotifierServiceName  = "ledger-notifier"
	DefaultNotifierStatsPeriod  = 30 * time.Second
)

// MongoDB defaults
const (
	DefaultMongoURI         = "mongodb://localhost:27017"
	DefaultMongoDatabase    = "ledger_audit"
	DefaultMongoCollection  = "ledger_events"
	DefaultMongoTimeout     = 10 * time.Second
	DefaultMongoMaxPoolSize = 100
	DefaultMongoMinPoolSize = 10
)

// Processing defaults
const (
	DefaultBatchSize         = 100
	DefaultWorkers           = 4
	DefaultFlushInterval     = 5 * time.Second
	DefaultMaxProcessingTime = 30 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryDelay        = 1 * time.Second
)

// Redis and rate limit defaults
const (
	DefaultRedisAddr               = "localhost:6379"
	DefaultRedisDB                 = 0
	DefaultRateLimitEnabled        = true
	DefaultRateLimitCapacity       = 60
	DefaultRateLimitRefillTokens   = 1
	DefaultRateLimitRefillInterval = time.Second
	DefaultRateLimitTTL            = 10 * time.Minute
	DefaultRateLimitPrefix         = "rl"
)

// Ledger defaults
const (
	DefaultMinWithdrawal        = 10.0
	DefaultWithdrawalCooldown   = 24 * time.Hour
	DefaultReferralBonusPercent = 5.0
	DefaultReferralTrigger      = ReferralTriggerDeposit
	DefaultAccrualSweepInterval = time.Hour
	DefaultRecentTransactions   = 5
)
