package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/verdantis/fulfillment/internal/domain"
)

func validOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:             "order-1",
		Number:         "FLF-20260901-A1B2C3",
		Origin:         domain.OriginMarketplace,
		OrganizationID: "org-1",
		CounterpartyID: "org-2",
		Status:         domain.OrderStatusDraft,
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
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrder_ValidateInvariants_OK(t *testing.T) {
	order := validOrder()
	if errs := order.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation issues, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_SubtotalMismatch(t *testing.T) {
	order := validOrder()
	order.Amounts.SubtotalMinor = 24
	order.Amounts.TotalMinor = 30

	errs := order.ValidateInvariants()
	if !containsErr(errs, domain.ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_TotalFormula(t *testing.T) {
	order := validOrder()
	order.Amounts.TotalMinor = 999

	errs := order.ValidateInvariants()
	if !containsErr(errs, domain.ErrTotalMismatch) {
		t.Fatalf("expected ErrTotalMismatch, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_Counterparty(t *testing.T) {
	order := validOrder()
	order.CounterpartyID = ""
	if errs := order.ValidateInvariants(); !containsErr(errs, domain.ErrCounterpartyRequired) {
		t.Fatalf("expected ErrCounterpartyRequired, got %v", errs)
	}

	patient := validOrder()
	patient.Origin = domain.OriginPatientPurchase
	if errs := patient.ValidateInvariants(); !containsErr(errs, domain.ErrCounterpartyNotAllowed) {
		t.Fatalf("expected ErrCounterpartyNotAllowed, got %v", errs)
	}
}

func TestOrder_ValidateInvariants_Items(t *testing.T) {
	order := validOrder()
	order.Items = nil
	order.Amounts = domain.Amounts{}
	if errs := order.ValidateInvariants(); !containsErr(errs, domain.ErrItemsRequired) {
		t.Fatalf("expected ErrItemsRequired, got %v", errs)
	}

	order = validOrder()
	order.Items[0].Qty = 0
	if errs := order.ValidateInvariants(); !containsErr(errs, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected ErrItemQtyInvalid, got %v", errs)
	}
}

func TestOrder_AppendHistory(t *testing.T) {
	order := validOrder()
	before := order.UpdatedAt

	order.AppendHistory(domain.StatusChange{
		From:      domain.OrderStatusDraft,
		To:        domain.OrderStatusPending,
		ActorID:   "actor-1",
		ActorRole: domain.RoleOperator,
	})

	if len(order.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(order.History))
	}
	last := order.LastHistory()
	if last == nil || last.To != domain.OrderStatusPending {
		t.Fatalf("unexpected last history entry: %+v", last)
	}
	if last.OccurredAt.IsZero() {
		t.Fatal("expected OccurredAt to be filled")
	}
	if !order.UpdatedAt.After(before) && !order.UpdatedAt.Equal(last.OccurredAt) {
		t.Fatalf("expected UpdatedAt to advance, got %v", order.UpdatedAt)
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	if !domain.OrderStatusCancelled.Terminal() || !domain.OrderStatusRefunded.Terminal() {
		t.Fatal("cancelled and refunded must be terminal")
	}
	if domain.OrderStatusDelivered.Terminal() {
		t.Fatal("delivered keeps the refund edge and is not terminal")
	}
}

func TestActor_CanAccess(t *testing.T) {
	operator := domain.Actor{ID: "a1", Role: domain.RoleOperator, OrganizationID: "org-1"}
	if !operator.CanAccess("org-1") {
		t.Fatal("operator must access own organization")
	}
	if operator.CanAccess("org-2") {
		t.Fatal("operator must not access foreign organization")
	}

	admin := domain.Actor{ID: "a2", Role: domain.RolePlatformAdmin}
	if !admin.CanAccess("org-2") {
		t.Fatal("platform admin is not scoped")
	}
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
