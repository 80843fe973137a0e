package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка неизвестного или пустого origin.
	ErrOriginInvalid = errors.New("order origin is invalid")
	// Ошибка отсутствующей организации-владельца.
	ErrOrganizationRequired = errors.New("organization_id is required")
	// Ошибка отсутствующего поставщика у marketplace-заказа.
	ErrCounterpartyRequired = errors.New("counterparty_id is required for marketplace orders")
	// Ошибка заполненного counterparty у прямой покупки: контрагент пациентского
	// заказа — сама платформа.
	ErrCounterpartyNotAllowed = errors.New("counterparty_id is not allowed for patient orders")
	// Ошибка отсутствия хотя бы одного товара в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отсутствующего идентификатора товара в позиции.
	ErrItemProductRequired = errors.New("item product_ref is required")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item unit price must be non-negative")
	// Ошибка несоответствия subtotal и сумм позиций.
	ErrAmountMismatch = errors.New("order subtotal does not match items sum")
	// Ошибка несоответствия total формуле subtotal + tax + shipping - discount.
	ErrTotalMismatch = errors.New("order total does not match amounts breakdown")
	// Ошибка отрицательной итоговой суммы заказа.
	ErrAmountNegative = errors.New("order total must be non-negative")

	// ErrInvalidItems возвращается движком при некорректном составе заказа.
	ErrInvalidItems = errors.New("invalid order items")
	// ErrInvalidTransition возвращается при запрещённом переходе статуса.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidState возвращается, когда не выполнено предусловие
	// вспомогательной операции (например, назначение трекинга).
	ErrInvalidState = errors.New("operation is not valid in current order state")
	// ErrInsufficientStock — склад не смог зарезервировать все позиции;
	// резерв атомарен, частичных резервов не остаётся.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrForbidden — нарушение организационного скоупа или роли.
	ErrForbidden = errors.New("actor is not allowed to act on this order")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о проигрыше конкурентной записи.
	ErrOrderVersionConflict = errors.New("order version conflict")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// Ошибки idempotency-контура.
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyAlreadyExists    = errors.New("idempotency key already exists")
	ErrIdempotencyHashMismatch        = errors.New("idempotency key is used with different request payload")
)

// InvalidTransitionError описывает отказ таблицы переходов. Пара
// from/to и код причины отдаются клиенту как есть, чтобы UI мог
// объяснить отказ без повторного вывода правил.
type InvalidTransitionError struct {
	From   OrderStatus
	To     OrderStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transition %s -> %s is not allowed: %s", e.From, e.To, e.Reason)
}

// Is делает ошибку совместимой с errors.Is(err, ErrInvalidTransition).
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// InvalidItemsError агрегирует замечания валидации при создании заказа.
type InvalidItemsError struct {
	Issues []error
}

func (e *InvalidItemsError) Error() string {
	return fmt.Sprintf("invalid order items: %v", errors.Join(e.Issues...))
}

func (e *InvalidItemsError) Is(target error) bool {
	return target == ErrInvalidItems
}

// StateError уточняет причину отказа ErrInvalidState.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "invalid order state: " + e.Reason
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// StorageError отделяет инфраструктурные сбои хранилища от доменных
// отказов: её следует ретраить на транспортной границе, а не
// интерпретировать как бизнес-ошибку.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsStorageError проверяет, относится ли ошибка к сбоям хранилища.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
