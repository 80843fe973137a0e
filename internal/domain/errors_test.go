package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/verdantis/fulfillment/internal/domain"
)

func TestInvalidTransitionError_Is(t *testing.T) {
	err := &domain.InvalidTransitionError{
		From:   domain.OrderStatusPaymentConfirmed,
		To:     domain.OrderStatusApproved,
		Reason: "transition_not_allowed",
	}

	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatal("expected errors.Is match for ErrInvalidTransition")
	}
	if errors.Is(err, domain.ErrInvalidState) {
		t.Fatal("unexpected match for ErrInvalidState")
	}
}

func TestInvalidItemsError_Is(t *testing.T) {
	err := &domain.InvalidItemsError{Issues: []error{domain.ErrItemQtyInvalid}}
	if !errors.Is(err, domain.ErrInvalidItems) {
		t.Fatal("expected errors.Is match for ErrInvalidItems")
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &domain.StorageError{Op: "orders.save", Err: cause}

	if !errors.Is(err, cause) {
		t.Fatal("expected unwrap to reach the cause")
	}
	if !domain.IsStorageError(fmt.Errorf("wrapped: %w", err)) {
		t.Fatal("expected IsStorageError through wrapping")
	}
	if domain.IsStorageError(domain.ErrOrderNotFound) {
		t.Fatal("domain errors are not storage errors")
	}
}

func TestIsVersionConflict(t *testing.T) {
	if !domain.IsVersionConflict(fmt.Errorf("save: %w", domain.ErrOrderVersionConflict)) {
		t.Fatal("expected version conflict match through wrapping")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("not-found is not a version conflict")
	}
}
