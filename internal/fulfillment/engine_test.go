package fulfillment

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/domain"
	"github.com/verdantis/fulfillment/internal/service/directory"
	"github.com/verdantis/fulfillment/internal/service/inventory"
	"github.com/verdantis/fulfillment/internal/service/payment"
	"github.com/verdantis/fulfillment/internal/storage/memory"
)

type testEnv struct {
	engine    *Engine
	orders    domain.OrderRepository
	inventory *inventory.MockService
	payments  *payment.MockService
	outbox    interface {
		domain.OutboxRepository
		AllPending() []domain.OutboxMessage
	}
}

func newTestEnv() *testEnv {
	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := log.NewEntry(logger)

	orders := memory.NewOrderRepository()
	outbox := memory.NewOutboxRepository()
	inv := inventory.NewMockService()
	pay := payment.NewMockService()
	dir := directory.NewStaticDirectory(map[string]string{
		"org-1": "Green Valley Association",
		"org-2": "Coastal Growers",
	})

	return &testEnv{
		engine:    NewEngine(orders, NewDispatcher(inv, pay, entry), outbox, dir, nil, entry),
		orders:    orders,
		inventory: inv,
		payments:  pay,
		outbox:    outbox,
	}
}

var (
	operator = domain.Actor{ID: "op-1", Role: domain.RoleOperator, OrganizationID: "org-1"}
	patient  = domain.Actor{ID: "pat-1", Role: domain.RolePatient, OrganizationID: "org-1"}
	admin    = domain.Actor{ID: "adm-1", Role: domain.RolePlatformAdmin}
)

func marketplaceInput() CreateOrderInput {
	return CreateOrderInput{
		Origin:         domain.OriginMarketplace,
		OrganizationID: "org-1",
		CounterpartyID: "org-2",
		CustomerName:   "Green Valley Association",
		Description:    "monthly resupply",
		Items: []ItemInput{
			{ProductRef: "flower-a", Qty: 2, UnitPriceMinor: 10},
			{ProductRef: "oil-b", Qty: 1, UnitPriceMinor: 5},
		},
		TaxMinor:      5,
		ShippingMinor: 3,
		DiscountMinor: 2,
	}
}

func seedOrder(t *testing.T, repo domain.OrderRepository, status domain.OrderStatus) domain.Order {
	t.Helper()

	now := time.Now().UTC()
	order := domain.Order{
		ID:             "order-1",
		Number:         "FLF-20260901-SEED01",
		Origin:         domain.OriginMarketplace,
		OrganizationID: "org-1",
		CounterpartyID: "org-2",
		CustomerName:   "Green Valley Association",
		Status:         status,
		PaymentStatus:  domain.PaymentStatusPending,
		Items: []domain.OrderItem{
			{ID: "item-1", ProductRef: "flower-a", Qty: 2, UnitPriceMinor: 10, CreatedAt: now},
			{ID: "item-2", ProductRef: "oil-b", Qty: 1, UnitPriceMinor: 5, CreatedAt: now},
		},
		Amounts: domain.Amounts{
			SubtotalMinor: 25,
			TaxMinor:      5,
			ShippingMinor: 3,
			DiscountMinor: 2,
			TotalMinor:    31,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.AppendHistory(domain.StatusChange{To: status, ActorID: "seed", ActorRole: domain.RoleOperator, Reason: HistoryReasonOrderCreated, OccurredAt: now})

	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestCreateOrder_MarketplaceDraft(t *testing.T) {
	env := newTestEnv()

	order, err := env.engine.CreateOrder(context.Background(), marketplaceInput(), operator)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.Status != domain.OrderStatusDraft {
		t.Fatalf("expected draft status, got %s", order.Status)
	}
	if order.Amounts.SubtotalMinor != 25 || order.Amounts.TotalMinor != 31 {
		t.Fatalf("unexpected amounts: %+v", order.Amounts)
	}
	if !strings.HasPrefix(order.Number, "FLF-") {
		t.Fatalf("unexpected order number %q", order.Number)
	}
	if len(order.History) != 1 || order.History[0].Reason != HistoryReasonOrderCreated {
		t.Fatalf("expected single creation history entry, got %+v", order.History)
	}
	if order.Version != 1 {
		t.Fatalf("expected version 1, got %d", order.Version)
	}

	events := env.outbox.AllPending()
	if len(events) != 1 || events[0].EventType != EventOrderCreated {
		t.Fatalf("expected order.created outbox event, got %+v", events)
	}
}

func TestCreateOrder_PatientPending(t *testing.T) {
	env := newTestEnv()

	in := marketplaceInput()
	in.Origin = domain.OriginPatientPurchase
	in.CounterpartyID = ""
	in.CustomerName = "Jordan Reyes"

	order, err := env.engine.CreateOrder(context.Background(), in, patient)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("patient purchase must start pending, got %s", order.Status)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	env := newTestEnv()

	in := marketplaceInput()
	in.Items = nil
	if _, err := env.engine.CreateOrder(context.Background(), in, operator); !errors.Is(err, domain.ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for empty items, got %v", err)
	}

	in = marketplaceInput()
	in.Items[0].Qty = 0
	if _, err := env.engine.CreateOrder(context.Background(), in, operator); !errors.Is(err, domain.ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for zero qty, got %v", err)
	}

	in = marketplaceInput()
	in.CounterpartyID = ""
	if _, err := env.engine.CreateOrder(context.Background(), in, operator); !errors.Is(err, domain.ErrInvalidItems) {
		t.Fatalf("expected ErrInvalidItems for missing counterparty, got %v", err)
	}
}

func TestCreateOrder_Scope(t *testing.T) {
	env := newTestEnv()

	foreign := domain.Actor{ID: "op-2", Role: domain.RoleOperator, OrganizationID: "org-2"}
	in := marketplaceInput()
	if _, err := env.engine.CreateOrder(context.Background(), in, foreign); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign operator, got %v", err)
	}

	if _, err := env.engine.CreateOrder(context.Background(), in, patient); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for patient creating marketplace order, got %v", err)
	}

	// Прямая покупка — только от имени пациента.
	patientIn := marketplaceInput()
	patientIn.Origin = domain.OriginPatientPurchase
	patientIn.CounterpartyID = ""
	if _, err := env.engine.CreateOrder(context.Background(), patientIn, operator); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for operator creating patient purchase, got %v", err)
	}
}

func TestTransition_Lifecycle(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusDraft)
	ctx := context.Background()

	steps := []domain.OrderStatus{
		domain.OrderStatusPending,
		domain.OrderStatusApproved,
		domain.OrderStatusPaymentConfirmed,
	}
	for _, target := range steps {
		if _, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: target, Actor: operator}); err != nil {
			t.Fatalf("transition to %s: %v", target, err)
		}
	}

	current, err := env.orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if current.Status != domain.OrderStatusPaymentConfirmed {
		t.Fatalf("expected payment_confirmed, got %s", current.Status)
	}
	if !current.StockReserved {
		t.Fatal("expected stock to be reserved after payment confirmation")
	}
	if current.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("expected paid payment status, got %s", current.PaymentStatus)
	}
	if len(current.History) != 4 {
		t.Fatalf("expected 4 history entries (creation + 3 transitions), got %d", len(current.History))
	}

	// Идемпотентный повтор текущего статуса: ни истории, ни версии.
	repeat, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusPaymentConfirmed, Actor: operator})
	if err != nil {
		t.Fatalf("idempotent repeat: %v", err)
	}
	if len(repeat.History) != 4 || repeat.Version != current.Version {
		t.Fatalf("no-op must not change order, got history=%d version=%d", len(repeat.History), repeat.Version)
	}

	// Отмена после оплаты: резерв снимается, причина фиксируется.
	cancelled, err := env.engine.TransitionStatus(ctx, TransitionRequest{
		OrderID: order.ID,
		Target:  domain.OrderStatusCancelled,
		Actor:   operator,
		Reason:  "customer_request",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled || cancelled.StockReserved {
		t.Fatalf("expected cancelled order without reservation, got %+v", cancelled)
	}
	if cancelled.CancelReason != "customer_request" {
		t.Fatalf("expected cancel reason, got %q", cancelled.CancelReason)
	}
	if len(cancelled.History) != 5 {
		t.Fatalf("expected 5 history entries after cancel, got %d", len(cancelled.History))
	}
	if env.inventory.Reserved(order.ID) {
		t.Fatal("reservation must be released on cancel")
	}
}

func TestTransition_BackwardDeniedAndAudited(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusPaymentConfirmed)
	ctx := context.Background()

	_, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusApproved, Actor: operator})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var transitionErr *domain.InvalidTransitionError
	if !errors.As(err, &transitionErr) || transitionErr.Reason != ReasonTransitionNotAllowed {
		t.Fatalf("unexpected denial detail: %v", err)
	}

	current, _ := env.orders.Get(ctx, order.ID)
	if current.Status != domain.OrderStatusPaymentConfirmed {
		t.Fatalf("status must not change, got %s", current.Status)
	}
	last := current.LastHistory()
	if last == nil || last.To != domain.OrderStatusPaymentConfirmed || last.Reason != ReasonTransitionNotAllowed {
		t.Fatalf("expected audited failed attempt, got %+v", last)
	}
}

func TestTransition_RoleDenied(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusPending)
	ctx := context.Background()

	_, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusApproved, Actor: patient})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	current, _ := env.orders.Get(ctx, order.ID)
	last := current.LastHistory()
	if last == nil || last.Reason != HistoryReasonRoleNotAllowed {
		t.Fatalf("expected role_not_allowed audit entry, got %+v", last)
	}
}

func TestTransition_AdminOverrideCancel(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusShipped)
	ctx := context.Background()

	_, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusCancelled, Actor: operator, Reason: "lost in transit"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("operator must not cancel a shipped order, got %v", err)
	}

	cancelled, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusCancelled, Actor: admin, Reason: "lost in transit"})
	if err != nil {
		t.Fatalf("admin override cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestTransition_CancelWithoutReason(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusPending)

	// Причина отмены опциональна: без неё переход проходит, а в заказе
	// остаётся пустой cancelReason.
	cancelled, err := env.engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusCancelled, Actor: operator})
	if err != nil {
		t.Fatalf("cancel without reason: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.CancelReason != "" {
		t.Fatalf("expected empty cancel reason, got %q", cancelled.CancelReason)
	}
	if len(cancelled.History) != 2 {
		t.Fatalf("expected history entry for the cancel, got %d", len(cancelled.History))
	}
}

func TestTransition_DeliveredCancelDenied(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusDelivered)

	// Доставленный заказ не отменяется даже администратором: доступен
	// только возврат.
	_, err := env.engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusCancelled, Actor: admin, Reason: "late complaint"})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	current, _ := env.orders.Get(context.Background(), order.ID)
	if current.Status != domain.OrderStatusDelivered {
		t.Fatalf("status must not change, got %s", current.Status)
	}
}

func TestTransition_InsufficientStockAtomic(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusApproved)
	ctx := context.Background()

	// Первой позиции хватает, второй нет: ни одна не должна списаться.
	env.inventory.SetStock("flower-a", 10)
	env.inventory.SetStock("oil-b", 0)

	_, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusPaymentConfirmed, Actor: operator})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if env.inventory.Stock("flower-a") != 10 {
		t.Fatalf("partial reservation leaked: flower-a stock %d", env.inventory.Stock("flower-a"))
	}

	current, _ := env.orders.Get(ctx, order.ID)
	if current.Status != domain.OrderStatusApproved || current.StockReserved {
		t.Fatalf("order must stay approved without reservation, got %+v", current)
	}
	last := current.LastHistory()
	if last == nil || last.Reason != HistoryReasonInsufficient {
		t.Fatalf("expected insufficient_stock audit entry, got %+v", last)
	}
}

func TestTransition_PaymentNotConfirmed(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusApproved)
	env.payments.VerifyStatus = domain.PaymentStatusFailed

	_, err := env.engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusPaymentConfirmed, Actor: operator})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	current, _ := env.orders.Get(context.Background(), order.ID)
	if current.Status != domain.OrderStatusApproved {
		t.Fatalf("status must not change, got %s", current.Status)
	}
	last := current.LastHistory()
	if last == nil || last.Reason != StateReasonPaymentNotConfirmed {
		t.Fatalf("expected payment_not_confirmed audit entry, got %+v", last)
	}
}

func TestTransition_ShippedRequiresTracking(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusInPreparation)
	ctx := context.Background()

	_, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusShipped, Actor: operator})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState without tracking, got %v", err)
	}

	shipped, err := env.engine.TransitionStatus(ctx, TransitionRequest{
		OrderID:  order.ID,
		Target:   domain.OrderStatusShipped,
		Actor:    operator,
		Tracking: &domain.Tracking{CarrierCode: "dhl", TrackingNumber: "JJD0099"},
	})
	if err != nil {
		t.Fatalf("ship with inline tracking: %v", err)
	}
	if shipped.Tracking == nil || shipped.Tracking.TrackingNumber != "JJD0099" {
		t.Fatalf("expected tracking on order, got %+v", shipped.Tracking)
	}
	if shipped.ShippedAt == nil {
		t.Fatal("expected ShippedAt to be set")
	}
}

func TestAttachTracking(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusInPreparation)
	ctx := context.Background()
	tracking := domain.Tracking{CarrierCode: "dhl", TrackingNumber: "JJD0099"}

	updated, err := env.engine.AttachTracking(ctx, order.ID, tracking, operator)
	if err != nil {
		t.Fatalf("attach tracking: %v", err)
	}
	if updated.Tracking == nil || updated.Tracking.CarrierCode != "dhl" {
		t.Fatalf("expected tracking assigned, got %+v", updated.Tracking)
	}

	// Трекинг переживает последующую отгрузку без повторной передачи.
	shipped, err := env.engine.TransitionStatus(ctx, TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusShipped, Actor: operator})
	if err != nil {
		t.Fatalf("ship after staged tracking: %v", err)
	}
	if shipped.Tracking == nil || shipped.Tracking.TrackingNumber != "JJD0099" {
		t.Fatalf("staged tracking lost: %+v", shipped.Tracking)
	}
}

func TestAttachTracking_Preconditions(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusPending)
	ctx := context.Background()
	tracking := domain.Tracking{CarrierCode: "dhl", TrackingNumber: "JJD0099"}

	if _, err := env.engine.AttachTracking(ctx, order.ID, tracking, operator); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState outside preparation, got %v", err)
	}
	if _, err := env.engine.AttachTracking(ctx, order.ID, domain.Tracking{}, operator); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for empty tracking, got %v", err)
	}
	if _, err := env.engine.AttachTracking(ctx, order.ID, tracking, patient); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for patient, got %v", err)
	}
}

func TestTransition_Refund(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusDelivered)

	refunded, err := env.engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusRefunded, Actor: operator})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected refunded payment status, got %s", refunded.PaymentStatus)
	}
	if env.payments.RefundCalls != 1 {
		t.Fatalf("expected one refund call, got %d", env.payments.RefundCalls)
	}
}

func TestTransition_ScopeForbiddenWithoutAudit(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusPending)
	foreign := domain.Actor{ID: "op-2", Role: domain.RoleOperator, OrganizationID: "org-2"}

	_, err := env.engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusApproved, Actor: foreign})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	current, _ := env.orders.Get(context.Background(), order.ID)
	if len(current.History) != 1 {
		t.Fatalf("scope denials must not be audited, history=%d", len(current.History))
	}
}

// conflictingOrders подсовывает заданное число конфликтов версий перед
// тем, как пропустить запись.
type conflictingOrders struct {
	domain.OrderRepository
	conflicts int
}

func (r *conflictingOrders) Save(ctx context.Context, order domain.Order) error {
	if r.conflicts > 0 {
		r.conflicts--
		return domain.ErrOrderVersionConflict
	}
	return r.OrderRepository.Save(ctx, order)
}

func TestTransition_RetriesOnceOnConflict(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusDraft)

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := log.NewEntry(logger)

	flaky := &conflictingOrders{OrderRepository: env.orders, conflicts: 1}
	engine := NewEngine(flaky, NewDispatcher(env.inventory, env.payments, entry), nil, nil, nil, entry)

	updated, err := engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusPending, Actor: operator})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending after retry, got %s", updated.Status)
	}

	stuck := &conflictingOrders{OrderRepository: env.orders, conflicts: 2}
	engine = NewEngine(stuck, NewDispatcher(env.inventory, env.payments, entry), nil, nil, nil, entry)
	_, err = engine.TransitionStatus(context.Background(), TransitionRequest{OrderID: order.ID, Target: domain.OrderStatusApproved, Actor: operator})
	if !domain.IsVersionConflict(err) {
		t.Fatalf("expected surfaced version conflict after retry budget, got %v", err)
	}
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv()
	order := seedOrder(t, env.orders, domain.OrderStatusPending)
	ctx := context.Background()

	got, err := env.engine.GetOrder(ctx, order.ID, operator)
	if err != nil || got.ID != order.ID {
		t.Fatalf("get order: %v", err)
	}

	foreign := domain.Actor{ID: "op-2", Role: domain.RoleOperator, OrganizationID: "org-2"}
	if _, err := env.engine.GetOrder(ctx, order.ID, foreign); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := env.engine.GetOrder(ctx, "missing", operator); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListOrders_ScopeForced(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.engine.CreateOrder(ctx, marketplaceInput(), operator); err != nil {
		t.Fatalf("create org-1 order: %v", err)
	}
	foreignIn := marketplaceInput()
	foreignIn.OrganizationID = "org-2"
	foreignIn.CounterpartyID = "org-1"
	if _, err := env.engine.CreateOrder(ctx, foreignIn, admin); err != nil {
		t.Fatalf("create org-2 order: %v", err)
	}

	// Фильтр по чужой организации принудительно сводится к своей.
	summaries, err := env.engine.ListOrders(ctx, domain.OrderFilter{OrganizationID: "org-2"}, operator)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Order.OrganizationID != "org-1" {
		t.Fatalf("expected only org-1 orders, got %+v", summaries)
	}
	if summaries[0].OrganizationName != "Green Valley Association" {
		t.Fatalf("expected directory enrichment, got %q", summaries[0].OrganizationName)
	}

	all, err := env.engine.ListOrders(ctx, domain.OrderFilter{}, admin)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin must see both organizations, got %d", len(all))
	}
}
