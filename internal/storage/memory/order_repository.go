package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/verdantis/fulfillment/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ, если ID ещё не занят.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderVersionConflict
	}
	// Сохраняем глубокую копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = cloneOrder(order)
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// List возвращает заказы по фильтру, свежие первыми (или FIFO для
// OldestFirst).
func (r *orderRepositoryInMemory) List(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if !matchesFilter(order, filter) {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			if filter.OldestFirst {
				return result[i].CreatedAt.Before(result[j].CreatedAt)
			}
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// Save перезаписывает заказ, проверяя версию (optimistic locking).
func (r *orderRepositoryInMemory) Save(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if current.Version != order.Version {
		return domain.ErrOrderVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	order.Version++
	r.items[order.ID] = cloneOrder(order)
	return nil
}

func matchesFilter(order domain.Order, filter domain.OrderFilter) bool {
	if filter.OrganizationID != "" && order.OrganizationID != filter.OrganizationID {
		return false
	}
	if filter.Origin != "" && order.Origin != filter.Origin {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if order.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	} else if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(order.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(order.Description), needle) {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && order.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && order.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func cloneOrder(order domain.Order) domain.Order {
	clone := order
	if order.Items != nil {
		clone.Items = make([]domain.OrderItem, len(order.Items))
		copy(clone.Items, order.Items)
	}
	if order.History != nil {
		clone.History = make([]domain.StatusChange, len(order.History))
		copy(clone.History, order.History)
	}
	if order.Tracking != nil {
		tracking := *order.Tracking
		clone.Tracking = &tracking
	}
	if order.ShippedAt != nil {
		shippedAt := *order.ShippedAt
		clone.ShippedAt = &shippedAt
	}
	return clone
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
