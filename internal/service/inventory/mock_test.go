package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/verdantis/fulfillment/internal/domain"
)

func TestMockService(t *testing.T) {
	mock := NewMockService()
	if mock == nil {
		t.Fatal("expected non-nil mock")
	}

	ctx := context.Background()
	items := []domain.OrderItem{{ID: "i-1", ProductRef: "flower-a", Qty: 1, UnitPriceMinor: 100}}

	if err := mock.Reserve(ctx, "o-1", items); err != nil {
		t.Fatalf("unexpected reserve error: %v", err)
	}
	if !mock.Reserved("o-1") {
		t.Fatal("expected reservation to be held")
	}
	if err := mock.Release(ctx, "o-1", items); err != nil {
		t.Fatalf("unexpected release error: %v", err)
	}
	if mock.Reserved("o-1") {
		t.Fatal("expected reservation to be released")
	}
	if mock.ReserveCalls != 1 || mock.ReleaseCalls != 1 {
		t.Fatalf("unexpected call counters: reserve=%d release=%d", mock.ReserveCalls, mock.ReleaseCalls)
	}

	mock.ReserveErr = errors.New("reserve failed")
	mock.ReleaseErr = errors.New("release failed")
	if err := mock.Reserve(ctx, "o-2", items); err == nil {
		t.Fatal("expected reserve error")
	}
	if err := mock.Release(ctx, "o-2", items); err == nil {
		t.Fatal("expected release error")
	}
}

func TestMockService_AtomicReserve(t *testing.T) {
	mock := NewMockService()
	mock.SetStock("flower-a", 5)
	mock.SetStock("oil-b", 0)

	ctx := context.Background()
	items := []domain.OrderItem{
		{ID: "i-1", ProductRef: "flower-a", Qty: 2, UnitPriceMinor: 10},
		{ID: "i-2", ProductRef: "oil-b", Qty: 1, UnitPriceMinor: 5},
	}

	err := mock.Reserve(ctx, "o-1", items)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// Нехватка одной позиции не должна списывать другие.
	if got := mock.Stock("flower-a"); got != 5 {
		t.Errorf("expected flower-a stock untouched (5), got %d", got)
	}
	if mock.Reserved("o-1") {
		t.Error("failed reserve must not leave a reservation")
	}
}

func TestMockService_ReReserveReplacesReservation(t *testing.T) {
	mock := NewMockService()
	mock.SetStock("flower-a", 4)

	ctx := context.Background()
	items := []domain.OrderItem{{ID: "i-1", ProductRef: "flower-a", Qty: 3, UnitPriceMinor: 10}}

	if err := mock.Reserve(ctx, "o-1", items); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}
	// Повторный резерв того же заказа не списывает остатки второй раз.
	if err := mock.Reserve(ctx, "o-1", items); err != nil {
		t.Fatalf("repeated reserve failed: %v", err)
	}

	if got := mock.Stock("flower-a"); got != 1 {
		t.Errorf("expected stock 1 after single effective reservation, got %d", got)
	}
}

func TestMockService_ReleaseIdempotent(t *testing.T) {
	mock := NewMockService()
	mock.SetStock("flower-a", 2)

	ctx := context.Background()
	items := []domain.OrderItem{{ID: "i-1", ProductRef: "flower-a", Qty: 2, UnitPriceMinor: 10}}

	if err := mock.Reserve(ctx, "o-1", items); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := mock.Release(ctx, "o-1", items); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if err := mock.Release(ctx, "o-1", items); err != nil {
		t.Fatalf("repeated release must be a no-op: %v", err)
	}

	if got := mock.Stock("flower-a"); got != 2 {
		t.Errorf("expected stock restored to 2, got %d", got)
	}
}
