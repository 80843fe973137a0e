package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	// StorageDriver выбирает хранилище: memory для разработки и демо,
	// postgres для постоянного хранения.
	StorageDriver string
	PostgresDSN   string

	// KafkaBrokers — список брокеров через запятую; пустое значение
	// отключает публикацию событий.
	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	IdempotencyCleanupInterval time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:                   ":8080",
		MetricsAddr:                ":9090",
		StorageDriver:              StorageDriverMemory,
		OutboxPollInterval:         time.Second,
		OutboxBatchSize:            100,
		OutboxMaxAttempts:          3,
		IdempotencyCleanupInterval: 10 * time.Minute,
	}
}

// FromEnv читает конфигурацию из переменных окружения поверх дефолтов.
func FromEnv() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("FULFILLMENT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("FULFILLMENT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.StorageDriver = envString("FULFILLMENT_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = envString("FULFILLMENT_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.KafkaBrokers = envString("FULFILLMENT_KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.OutboxPollInterval = envDuration("FULFILLMENT_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("FULFILLMENT_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("FULFILLMENT_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.IdempotencyCleanupInterval = envDuration("FULFILLMENT_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)

	return cfg
}

// Validate проверяет согласованность конфигурации до старта сервиса.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return fmt.Errorf("FULFILLMENT_POSTGRES_DSN is required for storage driver %q", StorageDriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q (use %s|%s)", c.StorageDriver, StorageDriverMemory, StorageDriverPostgres)
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("http addr must not be empty")
	}
	return nil
}

func envString(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
