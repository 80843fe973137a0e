package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/domain"
	"github.com/verdantis/fulfillment/internal/metrics"
)

// Коды причин, попадающих в аудит-историю заказа.
const (
	HistoryReasonOrderCreated   = "order_created"
	HistoryReasonRoleNotAllowed = "role_not_allowed"
	HistoryReasonInsufficient   = "insufficient_stock"
)

// Типы событий, публикуемых через transactional outbox.
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderShipped       = "order.shipped"
	EventOrderRefunded      = "order.refunded"

	outboxAggregateOrder = "order"
)

// Engine — ядро исполнения заказов: создание, переходы статусов,
// трекинг и выборки. Каждая мутация проходит через optimistic
// compare-and-swap репозитория; при конфликте движок один раз
// перечитывает заказ и повторяет попытку.
type Engine struct {
	orders     domain.OrderRepository
	outbox     domain.OutboxRepository
	directory  domain.OrganizationDirectory
	dispatcher *Dispatcher
	metrics    *metrics.FulfillmentMetrics
	logger     *log.Entry
}

// NewEngine создаёт движок. outbox, directory и metrics опциональны.
func NewEngine(
	orders domain.OrderRepository,
	dispatcher *Dispatcher,
	outbox domain.OutboxRepository,
	directory domain.OrganizationDirectory,
	m *metrics.FulfillmentMetrics,
	logger *log.Entry,
) *Engine {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Engine{
		orders:     orders,
		outbox:     outbox,
		directory:  directory,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger.WithField("component", "fulfillment_engine"),
	}
}

// ItemInput — позиция создаваемого заказа.
type ItemInput struct {
	ProductRef     string
	Qty            int32
	UnitPriceMinor int64
}

// CreateOrderInput — параметры создания заказа.
type CreateOrderInput struct {
	Origin         domain.OrderOrigin
	OrganizationID string
	// CounterpartyID обязателен для marketplace-заказов и запрещён для
	// прямых покупок.
	CounterpartyID string
	CustomerName   string
	Description    string
	Items          []ItemInput
	TaxMinor       int64
	ShippingMinor  int64
	DiscountMinor  int64
}

// TransitionRequest — параметры запроса на смену статуса.
type TransitionRequest struct {
	OrderID string
	Target  domain.OrderStatus
	Actor   domain.Actor
	// Reason обязателен для отмены, для остальных переходов опционален.
	Reason string
	// Tracking позволяет назначить трекинг атомарно с переходом в shipped.
	Tracking *domain.Tracking
}

// OrderSummary — заказ, обогащённый данными справочника организаций.
type OrderSummary struct {
	Order            domain.Order
	OrganizationName string
	CounterpartyName string
	IsPatientOrder   bool
}

// CreateOrder создаёт заказ: marketplace-заказ рождается черновиком,
// прямая покупка пациента сразу попадает в pending.
func (e *Engine) CreateOrder(ctx context.Context, in CreateOrderInput, actor domain.Actor) (domain.Order, error) {
	if !actor.CanAccess(in.OrganizationID) {
		return domain.Order{}, domain.ErrForbidden
	}
	if in.Origin == domain.OriginMarketplace && actor.Role == domain.RolePatient {
		// Маркетплейс — межорганизационный контур, пациентам он недоступен.
		return domain.Order{}, domain.ErrForbidden
	}
	if in.Origin == domain.OriginPatientPurchase && actor.Role != domain.RolePatient {
		// Прямую покупку оформляет сам пациент, не персонал.
		return domain.Order{}, domain.ErrForbidden
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(in.Items))
	var subtotal int64
	for _, item := range in.Items {
		items = append(items, domain.OrderItem{
			ID:             uuid.NewString(),
			ProductRef:     item.ProductRef,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			CreatedAt:      now,
		})
		subtotal += int64(item.Qty) * item.UnitPriceMinor
	}

	status := domain.OrderStatusPending
	if in.Origin == domain.OriginMarketplace {
		status = domain.OrderStatusDraft
	}

	order := domain.Order{
		ID:             uuid.NewString(),
		Number:         generateOrderNumber(now),
		Origin:         in.Origin,
		OrganizationID: in.OrganizationID,
		CounterpartyID: in.CounterpartyID,
		CustomerName:   in.CustomerName,
		Description:    in.Description,
		Items:          items,
		Amounts: domain.Amounts{
			SubtotalMinor: subtotal,
			TaxMinor:      in.TaxMinor,
			ShippingMinor: in.ShippingMinor,
			DiscountMinor: in.DiscountMinor,
			TotalMinor:    subtotal + in.TaxMinor + in.ShippingMinor - in.DiscountMinor,
		},
		Status:        status,
		PaymentStatus: domain.PaymentStatusPending,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	order.AppendHistory(domain.StatusChange{
		To:         status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Reason:     HistoryReasonOrderCreated,
		OccurredAt: now,
	})

	if issues := order.ValidateInvariants(); len(issues) != 0 {
		return domain.Order{}, &domain.InvalidItemsError{Issues: issues}
	}

	if err := e.orders.Create(ctx, order); err != nil {
		return domain.Order{}, err
	}

	if e.metrics != nil {
		e.metrics.RecordOrderCreated()
	}
	e.enqueueEvent(order, EventOrderCreated, domain.StatusChange{To: status, ActorID: actor.ID, ActorRole: actor.Role, OccurredAt: now})
	e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"number":   order.Number,
		"origin":   order.Origin,
		"status":   order.Status,
	}).Info("Order created")

	return order, nil
}

// TransitionStatus применяет запрошенный переход статуса: сверяет
// таблицу переходов и роль актёра, исполняет сайд-эффекты целевого
// статуса и атомарно фиксирует результат вместе с записью истории.
// Запрос текущего статуса — идемпотентный no-op.
func (e *Engine) TransitionStatus(ctx context.Context, req TransitionRequest) (domain.Order, error) {
	started := time.Now()
	order, err := e.transitionOnce(ctx, req, true)
	if err != nil && e.metrics != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			e.metrics.RecordInsufficientStock()
		case errors.Is(err, domain.ErrInvalidTransition):
			// Причина уже записана внутри попытки.
		}
	}
	if err == nil && e.metrics != nil {
		e.metrics.RecordTransitionDuration(string(req.Target), time.Since(started))
	}
	return order, err
}

// transitionOnce выполняет одну попытку перехода; retry разрешает один
// внутренний повтор при конфликте версий.
func (e *Engine) transitionOnce(ctx context.Context, req TransitionRequest, retry bool) (domain.Order, error) {
	order, err := e.orders.Get(ctx, req.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !req.Actor.CanAccess(order.OrganizationID) {
		// Скоуп-отказы не аудитируются: актёр не вправе видеть заказ,
		// след в его истории раскрыл бы сам факт существования.
		return domain.Order{}, domain.ErrForbidden
	}

	if order.Status == req.Target {
		// Идемпотентный повтор: состояние не меняется, история не растёт.
		return order, nil
	}
	decision := Decide(order.Status, req.Target)
	if !decision.Allowed {
		if e.metrics != nil {
			e.metrics.RecordTransitionDenied(decision.Reason)
		}
		transitionErr := &domain.InvalidTransitionError{From: order.Status, To: req.Target, Reason: decision.Reason}
		if err := e.auditFailure(ctx, &order, req, decision.Reason, retry); err != nil {
			return domain.Order{}, err
		}
		return domain.Order{}, transitionErr
	}
	if !decision.AllowsRole(req.Actor.Role) {
		if e.metrics != nil {
			e.metrics.RecordTransitionDenied(HistoryReasonRoleNotAllowed)
		}
		if err := e.auditFailure(ctx, &order, req, HistoryReasonRoleNotAllowed, retry); err != nil {
			return domain.Order{}, err
		}
		return domain.Order{}, domain.ErrForbidden
	}

	now := time.Now().UTC()
	in := effectInput{actor: req.Actor, reason: req.Reason, tracking: req.Tracking, now: now}
	if err := e.dispatcher.Apply(ctx, &order, req.Target, in); err != nil {
		var stateErr *domain.StateError
		switch {
		case errors.Is(err, domain.ErrInsufficientStock):
			if auditErr := e.auditFailure(ctx, &order, req, HistoryReasonInsufficient, retry); auditErr != nil {
				return domain.Order{}, auditErr
			}
		case errors.As(err, &stateErr):
			if auditErr := e.auditFailure(ctx, &order, req, stateErr.Reason, retry); auditErr != nil {
				return domain.Order{}, auditErr
			}
		}
		return domain.Order{}, err
	}

	from := order.Status
	order.Status = req.Target
	change := domain.StatusChange{
		From:       from,
		To:         req.Target,
		ActorID:    req.Actor.ID,
		ActorRole:  req.Actor.Role,
		Reason:     req.Reason,
		OccurredAt: now,
	}
	order.AppendHistory(change)

	if err := e.orders.Save(ctx, order); err != nil {
		if domain.IsVersionConflict(err) {
			if e.metrics != nil {
				e.metrics.RecordVersionConflict()
			}
			if retry {
				e.logger.WithField("order_id", order.ID).Warn("Version conflict on transition, retrying once")
				return e.transitionOnce(ctx, req, false)
			}
		}
		return domain.Order{}, err
	}
	order.Version++

	if e.metrics != nil {
		e.metrics.RecordTransition(string(req.Target))
	}
	e.enqueueEvent(order, eventTypeFor(req.Target), change)
	e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     from,
		"to":       req.Target,
		"actor_id": req.Actor.ID,
	}).Info("Order status changed")

	return order, nil
}

// auditFailure дописывает в историю запись о неуспешной попытке: To
// равен текущему статусу, Reason — коду отказа.
func (e *Engine) auditFailure(ctx context.Context, order *domain.Order, req TransitionRequest, reason string, retry bool) error {
	order.AppendHistory(domain.StatusChange{
		From:      order.Status,
		To:        order.Status,
		ActorID:   req.Actor.ID,
		ActorRole: req.Actor.Role,
		Reason:    reason,
	})
	if err := e.orders.Save(ctx, *order); err != nil {
		if domain.IsVersionConflict(err) && retry {
			if e.metrics != nil {
				e.metrics.RecordVersionConflict()
			}
			fresh, getErr := e.orders.Get(ctx, order.ID)
			if getErr != nil {
				return getErr
			}
			fresh.AppendHistory(domain.StatusChange{
				From:      fresh.Status,
				To:        fresh.Status,
				ActorID:   req.Actor.ID,
				ActorRole: req.Actor.Role,
				Reason:    reason,
			})
			return e.orders.Save(ctx, fresh)
		}
		return err
	}
	return nil
}

// AttachTracking назначает трекинг заказу на стадии подготовки. Для
// назначения атомарно с отгрузкой используется TransitionRequest.Tracking.
func (e *Engine) AttachTracking(ctx context.Context, orderID string, tracking domain.Tracking, actor domain.Actor) (domain.Order, error) {
	if tracking.CarrierCode == "" || tracking.TrackingNumber == "" {
		return domain.Order{}, &domain.StateError{Reason: StateReasonTrackingRequired}
	}

	for attempt := 0; ; attempt++ {
		order, err := e.orders.Get(ctx, orderID)
		if err != nil {
			return domain.Order{}, err
		}
		if !actor.CanAccess(order.OrganizationID) {
			return domain.Order{}, domain.ErrForbidden
		}
		if actor.Role == domain.RolePatient {
			return domain.Order{}, domain.ErrForbidden
		}
		if order.Status != domain.OrderStatusInPreparation {
			return domain.Order{}, &domain.StateError{Reason: "tracking_not_assignable_in_status_" + string(order.Status)}
		}

		trackingCopy := tracking
		order.Tracking = &trackingCopy
		order.UpdatedAt = time.Now().UTC()

		err = e.orders.Save(ctx, order)
		if domain.IsVersionConflict(err) && attempt == 0 {
			if e.metrics != nil {
				e.metrics.RecordVersionConflict()
			}
			continue
		}
		if err != nil {
			return domain.Order{}, err
		}
		order.Version++
		e.logger.WithFields(log.Fields{
			"order_id":        order.ID,
			"carrier_code":    tracking.CarrierCode,
			"tracking_number": tracking.TrackingNumber,
		}).Info("Tracking assigned")
		return order, nil
	}
}

// GetOrder возвращает заказ с историей, соблюдая организационный скоуп.
func (e *Engine) GetOrder(ctx context.Context, orderID string, actor domain.Actor) (domain.Order, error) {
	order, err := e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.CanAccess(order.OrganizationID) {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// ListOrders возвращает заказы по фильтру. Для не-администраторов фильтр
// принудительно ограничивается организацией актёра.
func (e *Engine) ListOrders(ctx context.Context, filter domain.OrderFilter, actor domain.Actor) ([]OrderSummary, error) {
	if actor.Role != domain.RolePlatformAdmin {
		if actor.OrganizationID == "" {
			return nil, domain.ErrForbidden
		}
		filter.OrganizationID = actor.OrganizationID
	}

	orders, err := e.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return e.summarize(ctx, orders), nil
}

func (e *Engine) summarize(ctx context.Context, orders []domain.Order) []OrderSummary {
	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summary := OrderSummary{
			Order:          order,
			IsPatientOrder: order.Origin == domain.OriginPatientPurchase,
		}
		if e.directory != nil {
			summary.OrganizationName = e.directory.DisplayName(ctx, order.OrganizationID)
			if order.CounterpartyID != "" {
				summary.CounterpartyName = e.directory.DisplayName(ctx, order.CounterpartyID)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// enqueueEvent кладёт событие в outbox. Сбой постановки не откатывает
// уже зафиксированную операцию, а только логируется.
func (e *Engine) enqueueEvent(order domain.Order, eventType string, change domain.StatusChange) {
	if e.outbox == nil {
		return
	}

	payload, err := json.Marshal(orderEventPayload{
		OrderID:        order.ID,
		Number:         order.Number,
		Origin:         string(order.Origin),
		OrganizationID: order.OrganizationID,
		From:           string(change.From),
		To:             string(change.To),
		ActorID:        change.ActorID,
		ActorRole:      string(change.ActorRole),
		Reason:         change.Reason,
		OccurredAt:     change.OccurredAt,
	})
	if err != nil {
		e.logger.WithError(err).WithField("order_id", order.ID).Error("Failed to marshal outbox event")
		return
	}

	if _, err := e.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: outboxAggregateOrder,
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"event_type": eventType,
		}).Error("Failed to enqueue outbox event")
		return
	}
	if e.metrics != nil {
		e.metrics.RecordOutboxEvent()
	}
}

type orderEventPayload struct {
	OrderID        string    `json:"order_id"`
	Number         string    `json:"number"`
	Origin         string    `json:"origin"`
	OrganizationID string    `json:"organization_id"`
	From           string    `json:"from,omitempty"`
	To             string    `json:"to"`
	ActorID        string    `json:"actor_id"`
	ActorRole      string    `json:"actor_role"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func eventTypeFor(target domain.OrderStatus) string {
	switch target {
	case domain.OrderStatusCancelled:
		return EventOrderCancelled
	case domain.OrderStatusShipped:
		return EventOrderShipped
	case domain.OrderStatusRefunded:
		return EventOrderRefunded
	default:
		return EventOrderStatusChanged
	}
}

// generateOrderNumber собирает человекочитаемый номер: FLF-<дата>-<суффикс>.
func generateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("FLF-%s-%s", now.Format("20060102"), suffix)
}
