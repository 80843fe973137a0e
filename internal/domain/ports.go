package domain

import (
	"context"
	"time"
)

// InventoryService описывает взаимодействие со складским контуром.
// Физическое изменение остатков — забота внешнего сервиса; здесь важен
// только контракт атомарности.
type InventoryService interface {
	// Reserve резервирует все позиции заказа атомарно: либо резерв
	// получают все, либо ни одна. Нехватка любой позиции —
	// ErrInsufficientStock без частичных резервов.
	Reserve(ctx context.Context, orderID string, items []OrderItem) error
	// Release снимает резерв. Идемпотентен: снятие незарезервированного
	// заказа — no-op, а не ошибка.
	Release(ctx context.Context, orderID string, items []OrderItem) error
}

// PaymentService описывает взаимодействие с платёжным провайдером.
// Провайдер непрозрачен: сервис видит только approve/decline.
type PaymentService interface {
	// Verify возвращает актуальный статус оплаты заказа у провайдера.
	Verify(ctx context.Context, orderID string) (PaymentStatus, error)
	// Refund инициирует возврат средств по заказу.
	Refund(ctx context.Context, orderID string, amountMinor int64) (PaymentStatus, error)
}

// OrganizationDirectory отдаёт отображаемые имена организаций для
// обогащения списков заказов.
type OrganizationDirectory interface {
	DisplayName(ctx context.Context, organizationID string) string
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
