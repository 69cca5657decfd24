package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Ledger.MinWithdrawal != DefaultMinWithdrawal {
		t.Fatalf("Expected min withdrawal %.2f, got %.2f", DefaultMinWithdrawal, cfg.Ledger.MinWithdrawal)
	}
	if cfg.Ledger.WithdrawalCooldown != 24*time.Hour {
		t.Fatalf("Expected cooldown 24h, got %v", cfg.Ledger.WithdrawalCooldown)
	}
	if cfg.Ledger.ReferralTrigger != ReferralTriggerDeposit {
		t.Fatalf("Expected referral trigger %q, got %q", ReferralTriggerDeposit, cfg.Ledger.ReferralTrigger)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != DefaultKafkaBrokers {
		t.Fatalf("Unexpected brokers: %v", cfg.Kafka.Brokers)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.env")
	content := "STORAGE_BACKEND=memory\nKAFKA_BROKERS=k1:9092, k2:9092\nREFERRAL_TRIGGER=Investment\nMIN_WITHDRAWAL=25\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	for _, key := range []string{"STORAGE_BACKEND", "KAFKA_BROKERS", "REFERRAL_TRIGGER", "MIN_WITHDRAWAL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Storage.Backend != BackendMemory {
		t.Fatalf("Expected memory backend, got %s", cfg.Storage.Backend)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("Unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Ledger.ReferralTrigger != ReferralTriggerInvestment {
		t.Fatalf("Expected investment trigger, got %s", cfg.Ledger.ReferralTrigger)
	}
	if cfg.Ledger.MinWithdrawal != 25 {
		t.Fatalf("Expected min withdrawal 25, got %.2f", cfg.Ledger.MinWithdrawal)
	}
}

func TestValidate(t *testing.T) {
	cfg, _ := Load("")

	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for default JWT secret")
	}

	cfg.JWT.Secret = "a-real-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cfg.Ledger.ReferralTrigger = "signup"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for unknown referral trigger")
	}

	cfg.Ledger.ReferralTrigger = ReferralTriggerDeposit
	cfg.Storage.Backend = "sqlite"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Expected error for unknown storage backend")
	}
}

func TestValidateNotifier(t *testing.T) {
	cfg, _ := Load("")
	if err := cfg.ValidateNotifier(); err != nil {
		t.Fatalf("Expected valid notifier config, got %v", err)
	}

	cfg.Processing.Workers = 0
	if err := cfg.ValidateNotifier(); err == nil {
		t.Fatal("Expected error for zero workers")
	}
}
