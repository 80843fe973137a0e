package inventory

import (
	"context"
	"sync"

	"github.com/verdantis/fulfillment/internal/domain"
)

// MockService — конфигурируемая заглушка InventoryService. Умеет вести
// учёт остатков по ProductRef, чтобы проверять атомарность резерва: при
// нехватке любой позиции ни одна не резервируется.
type MockService struct {
	ReserveErr error
	ReleaseErr error

	mu sync.Mutex
	// stock — доступные остатки; nil означает бесконечный склад.
	stock map[string]int32
	// reservations хранит зарезервированные позиции по заказам и делает
	// Release идемпотентным.
	reservations map[string][]domain.OrderItem

	ReserveCalls int
	ReleaseCalls int
}

// NewMockService возвращает mock с бесконечным складом.
func NewMockService() *MockService {
	return &MockService{reservations: make(map[string][]domain.OrderItem)}
}

// SetStock задаёт доступный остаток товара.
func (m *MockService) SetStock(productRef string, qty int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock == nil {
		m.stock = make(map[string]int32)
	}
	m.stock[productRef] = qty
}

// Reserve резервирует все позиции атомарно либо возвращает
// ErrInsufficientStock, не трогая остатки.
func (m *MockService) Reserve(_ context.Context, orderID string, items []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReserveCalls++
	if m.ReserveErr != nil {
		return m.ReserveErr
	}

	// Повторный резерв того же заказа замещает предыдущий: ретрай после
	// конфликта версий не должен списывать остатки дважды.
	if _, ok := m.reservations[orderID]; ok {
		m.releaseLocked(orderID)
	}

	if m.stock != nil {
		for _, item := range items {
			if m.stock[item.ProductRef] < item.Qty {
				return domain.ErrInsufficientStock
			}
		}
		for _, item := range items {
			m.stock[item.ProductRef] -= item.Qty
		}
	}

	reserved := make([]domain.OrderItem, len(items))
	copy(reserved, items)
	m.reservations[orderID] = reserved
	return nil
}

// Release снимает резерв заказа; повторное снятие — no-op.
func (m *MockService) Release(_ context.Context, orderID string, _ []domain.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCalls++
	if m.ReleaseErr != nil {
		return m.ReleaseErr
	}
	m.releaseLocked(orderID)
	return nil
}

// Reserved сообщает, держит ли заказ резерв (используется в тестах).
func (m *MockService) Reserved(orderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.reservations[orderID]
	return ok
}

// Stock возвращает текущий остаток товара (используется в тестах).
func (m *MockService) Stock(productRef string) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stock == nil {
		return 0
	}
	return m.stock[productRef]
}

func (m *MockService) releaseLocked(orderID string) {
	items, ok := m.reservations[orderID]
	if !ok {
		return
	}
	if m.stock != nil {
		for _, item := range items {
			m.stock[item.ProductRef] += item.Qty
		}
	}
	delete(m.reservations, orderID)
}

var _ domain.InventoryService = (*MockService)(nil)
