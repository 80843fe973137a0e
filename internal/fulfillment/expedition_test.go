package fulfillment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verdantis/fulfillment/internal/domain"
)

func seedExpeditionOrder(t *testing.T, repo domain.OrderRepository, id, orgID string, origin domain.OrderOrigin, status domain.OrderStatus, createdAt time.Time) {
	t.Helper()

	counterparty := ""
	if origin == domain.OriginMarketplace {
		counterparty = "org-2"
	}
	order := domain.Order{
		ID:             id,
		Number:         "FLF-20260901-" + id,
		Origin:         origin,
		OrganizationID: orgID,
		CounterpartyID: counterparty,
		CustomerName:   "customer " + id,
		Status:         status,
		PaymentStatus:  domain.PaymentStatusPaid,
		Items: []domain.OrderItem{
			{ID: id + "-item", ProductRef: "flower-a", Qty: 1, UnitPriceMinor: 10, CreatedAt: createdAt},
		},
		Amounts:   domain.Amounts{SubtotalMinor: 10, TotalMinor: 10},
		Version:   1,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := repo.Create(context.Background(), order); err != nil {
		t.Fatalf("seed order %s: %v", id, err)
	}
}

func TestListExpeditionReady(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	// Очередь: оплаченные и собираемые заказы org-1, старые первыми.
	seedExpeditionOrder(t, env.orders, "late", "org-1", domain.OriginMarketplace, domain.OrderStatusPaymentConfirmed, base.Add(2*time.Hour))
	seedExpeditionOrder(t, env.orders, "early", "org-1", domain.OriginPatientPurchase, domain.OrderStatusInPreparation, base)
	seedExpeditionOrder(t, env.orders, "mid", "org-1", domain.OriginMarketplace, domain.OrderStatusInPreparation, base.Add(time.Hour))

	// Шум: не те статусы и чужая организация.
	seedExpeditionOrder(t, env.orders, "pending", "org-1", domain.OriginMarketplace, domain.OrderStatusPending, base)
	seedExpeditionOrder(t, env.orders, "shipped", "org-1", domain.OriginMarketplace, domain.OrderStatusShipped, base)
	seedExpeditionOrder(t, env.orders, "foreign", "org-2", domain.OriginMarketplace, domain.OrderStatusInPreparation, base)

	queue, err := env.engine.ListExpeditionReady(ctx, "", operator)
	if err != nil {
		t.Fatalf("list expedition queue: %v", err)
	}
	if len(queue) != 3 {
		t.Fatalf("expected 3 queue entries, got %d", len(queue))
	}
	for i, wantID := range []string{"early", "mid", "late"} {
		if queue[i].Order.ID != wantID {
			t.Fatalf("expected FIFO order [early mid late], got %s at %d", queue[i].Order.ID, i)
		}
	}
	if !queue[0].IsPatientOrder {
		t.Fatal("patient purchase must be flagged for expedition staff")
	}
	if queue[1].IsPatientOrder {
		t.Fatal("marketplace order must not be flagged as patient order")
	}
	if queue[1].CounterpartyName == "" {
		t.Fatal("expected counterparty enrichment for marketplace order")
	}
}

func TestListExpeditionReady_Scope(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	seedExpeditionOrder(t, env.orders, "own", "org-1", domain.OriginMarketplace, domain.OrderStatusInPreparation, base)
	seedExpeditionOrder(t, env.orders, "foreign", "org-2", domain.OriginMarketplace, domain.OrderStatusInPreparation, base)

	// Оператор получает только свою организацию, что бы ни запросил.
	queue, err := env.engine.ListExpeditionReady(ctx, "org-2", operator)
	if err != nil {
		t.Fatalf("list expedition queue: %v", err)
	}
	if len(queue) != 1 || queue[0].Order.ID != "own" {
		t.Fatalf("expected only own organization, got %+v", queue)
	}

	if _, err := env.engine.ListExpeditionReady(ctx, "org-1", patient); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for patient, got %v", err)
	}

	adminQueue, err := env.engine.ListExpeditionReady(ctx, "org-2", admin)
	if err != nil {
		t.Fatalf("admin queue: %v", err)
	}
	if len(adminQueue) != 1 || adminQueue[0].Order.ID != "foreign" {
		t.Fatalf("admin must see requested organization, got %+v", adminQueue)
	}
}
