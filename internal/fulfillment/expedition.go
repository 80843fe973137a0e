package fulfillment

import (
	"context"

	"github.com/verdantis/fulfillment/internal/domain"
)

// expeditionStatuses — статусы, в которых заказ ждёт действий экспедиции:
// оплаченные ещё не взяты в сборку и уже собираемые.
var expeditionStatuses = []domain.OrderStatus{
	domain.OrderStatusPaymentConfirmed,
	domain.OrderStatusInPreparation,
}

// ListExpeditionReady возвращает экспедиционную очередь организации:
// заказы, готовые к сборке и отгрузке, старые первыми (FIFO). Очередь
// смешивает прямые покупки и marketplace-заказы; IsPatientOrder
// позволяет экспедиции различать их без второго запроса.
func (e *Engine) ListExpeditionReady(ctx context.Context, organizationID string, actor domain.Actor) ([]OrderSummary, error) {
	if actor.Role == domain.RolePatient {
		return nil, domain.ErrForbidden
	}
	if actor.Role != domain.RolePlatformAdmin {
		if actor.OrganizationID == "" {
			return nil, domain.ErrForbidden
		}
		organizationID = actor.OrganizationID
	}

	orders, err := e.orders.List(ctx, domain.OrderFilter{
		Statuses:       expeditionStatuses,
		OrganizationID: organizationID,
		OldestFirst:    true,
	})
	if err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.SetExpeditionQueueSize(len(orders))
	}
	return e.summarize(ctx, orders), nil
}
