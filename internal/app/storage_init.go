package app

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/domain"
	"github.com/verdantis/fulfillment/internal/storage/memory"
	"github.com/verdantis/fulfillment/internal/storage/postgres"
)

// storageSet объединяет репозитории выбранного драйвера хранилища.
type storageSet struct {
	Orders      domain.OrderRepository
	Outbox      domain.OutboxRepository
	Idempotency domain.IdempotencyRepository

	// store заполняется только для postgres-драйвера.
	store *postgres.Store
}

// Close освобождает ресурсы хранилища.
func (s *storageSet) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Ping проверяет доступность хранилища; для memory-драйвера всегда ok.
func (s *storageSet) Ping() error {
	if s.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.store.Ping(ctx)
}

// initStorage собирает репозитории по драйверу из конфигурации. Для
// postgres дополнительно применяются миграции схемы.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*storageSet, error) {
	if cfg.StorageDriver != StorageDriverPostgres {
		logger.Info("Using in-memory storage")
		return &storageSet{
			Orders:      memory.NewOrderRepository(),
			Outbox:      memory.NewOutboxRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
		}, nil
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Info("Using postgres storage")
	return &storageSet{
		Orders:      postgres.NewOrderRepository(store),
		Outbox:      postgres.NewOutboxRepository(store),
		Idempotency: postgres.NewIdempotencyRepository(store),
		store:       store,
	}, nil
}
