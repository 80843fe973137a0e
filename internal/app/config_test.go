package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected http addr: %s", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected memory storage by default, got %s", cfg.StorageDriver)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must be valid: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("FULFILLMENT_HTTP_ADDR", ":18080")
	t.Setenv("FULFILLMENT_STORAGE_DRIVER", StorageDriverPostgres)
	t.Setenv("FULFILLMENT_POSTGRES_DSN", "postgres://localhost/fulfillment")
	t.Setenv("FULFILLMENT_OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("FULFILLMENT_OUTBOX_BATCH_SIZE", "10")

	cfg := FromEnv()

	if cfg.HTTPAddr != ":18080" {
		t.Errorf("http addr override lost: %s", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != StorageDriverPostgres {
		t.Errorf("storage driver override lost: %s", cfg.StorageDriver)
	}
	if cfg.OutboxPollInterval != 250*time.Millisecond {
		t.Errorf("poll interval override lost: %s", cfg.OutboxPollInterval)
	}
	if cfg.OutboxBatchSize != 10 {
		t.Errorf("batch size override lost: %d", cfg.OutboxBatchSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config must be valid: %v", err)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("FULFILLMENT_OUTBOX_POLL_INTERVAL", "not-a-duration")
	t.Setenv("FULFILLMENT_OUTBOX_BATCH_SIZE", "-5")

	cfg := FromEnv()

	if cfg.OutboxPollInterval != time.Second {
		t.Errorf("expected default poll interval, got %s", cfg.OutboxPollInterval)
	}
	if cfg.OutboxBatchSize != 100 {
		t.Errorf("expected default batch size, got %d", cfg.OutboxBatchSize)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	if err := cfg.Validate(); err == nil {
		t.Error("postgres driver without DSN must not validate")
	}

	cfg = DefaultConfig()
	cfg.StorageDriver = "cassandra"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown storage driver must not validate")
	}

	cfg = DefaultConfig()
	cfg.HTTPAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("empty http addr must not validate")
	}
}
