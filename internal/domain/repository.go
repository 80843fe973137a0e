package domain

import (
	"context"
	"time"
)

// OrderFilter задаёт параметры выборки заказов. Пустые поля не
// ограничивают результат.
type OrderFilter struct {
	// Status фильтрует по точному статусу; пустое значение — все статусы.
	Status OrderStatus
	// Statuses позволяет выбрать несколько статусов сразу (экспедиционная
	// очередь); имеет приоритет над Status.
	Statuses []OrderStatus
	// Origin ограничивает выборку источником заказа; пустое значение —
	// оба контура.
	Origin OrderOrigin
	// OrganizationID ограничивает выборку организацией-владельцем.
	OrganizationID string
	// Search — подстрочный поиск без учёта регистра по имени покупателя
	// и описанию.
	Search string
	// CreatedFrom/CreatedTo — включительный диапазон по дате создания.
	CreatedFrom time.Time
	CreatedTo   time.Time
	// OldestFirst сортирует по возрастанию created_at (FIFO для
	// экспедиции); по умолчанию свежие заказы идут первыми.
	OldestFirst bool
	// Limit ограничивает размер выборки, если > 0.
	Limit int
}

// OrderRepository описывает требования к хранилищу заказов.
// Все методы уважают таймаут контекста вызывающей стороны.
type OrderRepository interface {
	// Create сохраняет новый заказ вместе с начальной историей.
	// Возвращает ErrOrderVersionConflict, если ID уже занят.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ c историей или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id string) (Order, error)
	// List возвращает заказы, удовлетворяющие фильтру.
	List(ctx context.Context, filter OrderFilter) ([]Order, error)
	// Save применяет обновления к заказу атомарно: запись фиксируется,
	// только если сохранённая версия совпадает с прочитанной
	// (optimistic compare-and-swap). Новые записи History дописываются
	// в той же транзакции; уже сохранённый префикс не трогается.
	Save(ctx context.Context, order Order) error
}
