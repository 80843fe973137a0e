package fulfillment

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/verdantis/fulfillment/internal/domain"
)

// Коды причин StateError, возникающих в сайд-эффектах.
const (
	StateReasonPaymentNotConfirmed = "payment_not_confirmed"
	StateReasonTrackingRequired    = "tracking_required"
	StateReasonRefundDeclined      = "refund_declined"
)

// effectInput — данные запроса, нужные сайд-эффектам целевого статуса.
type effectInput struct {
	actor    domain.Actor
	reason   string
	tracking *domain.Tracking
	now      time.Time
}

type effectFunc func(ctx context.Context, order *domain.Order, in effectInput) error

// Dispatcher исполняет сайд-эффекты целевых статусов до фиксации перехода.
// Ошибка эффекта отменяет весь переход: заказ не сохраняется, статус не
// меняется.
type Dispatcher struct {
	inventory domain.InventoryService
	payments  domain.PaymentService
	logger    *log.Entry
	effects   map[domain.OrderStatus]effectFunc
}

// NewDispatcher создаёт диспетчер с зарегистрированными эффектами.
func NewDispatcher(inventory domain.InventoryService, payments domain.PaymentService, logger *log.Entry) *Dispatcher {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	d := &Dispatcher{
		inventory: inventory,
		payments:  payments,
		logger:    logger.WithField("component", "fulfillment_dispatcher"),
	}
	d.effects = map[domain.OrderStatus]effectFunc{
		domain.OrderStatusPaymentConfirmed: d.confirmPayment,
		domain.OrderStatusShipped:          d.ship,
		domain.OrderStatusCancelled:        d.cancel,
		domain.OrderStatusRefunded:         d.refund,
	}
	return d
}

// Apply выполняет эффект целевого статуса, мутируя заказ in-memory.
// Статусы без эффекта проходят насквозь.
func (d *Dispatcher) Apply(ctx context.Context, order *domain.Order, target domain.OrderStatus, in effectInput) error {
	effect, ok := d.effects[target]
	if !ok {
		return nil
	}
	return effect(ctx, order, in)
}

// confirmPayment сверяет оплату с провайдером и атомарно резервирует
// все позиции заказа.
func (d *Dispatcher) confirmPayment(ctx context.Context, order *domain.Order, _ effectInput) error {
	if order.PaymentStatus != domain.PaymentStatusPaid {
		status, err := d.payments.Verify(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("verify payment for order %s: %w", order.ID, err)
		}
		order.PaymentStatus = status
		if status != domain.PaymentStatusPaid {
			d.logger.WithFields(log.Fields{
				"order_id":       order.ID,
				"payment_status": status,
			}).Warn("Payment is not confirmed by provider")
			return &domain.StateError{Reason: StateReasonPaymentNotConfirmed}
		}
	}

	if err := d.inventory.Reserve(ctx, order.ID, order.Items); err != nil {
		return err
	}
	order.StockReserved = true

	d.logger.WithField("order_id", order.ID).Info("Payment confirmed, stock reserved")
	return nil
}

// ship требует назначенный трекинг: заранее, на стадии подготовки, либо
// атомарно в том же запросе.
func (d *Dispatcher) ship(_ context.Context, order *domain.Order, in effectInput) error {
	tracking := order.Tracking
	if in.tracking != nil {
		tracking = in.tracking
	}
	if tracking == nil || tracking.CarrierCode == "" || tracking.TrackingNumber == "" {
		return &domain.StateError{Reason: StateReasonTrackingRequired}
	}

	order.Tracking = tracking
	shippedAt := in.now
	order.ShippedAt = &shippedAt

	d.logger.WithFields(log.Fields{
		"order_id":        order.ID,
		"carrier_code":    tracking.CarrierCode,
		"tracking_number": tracking.TrackingNumber,
	}).Info("Order shipped")
	return nil
}

// cancel снимает складской резерв (идемпотентно) и фиксирует причину отмены.
func (d *Dispatcher) cancel(ctx context.Context, order *domain.Order, in effectInput) error {
	if order.StockReserved {
		if err := d.inventory.Release(ctx, order.ID, order.Items); err != nil {
			return fmt.Errorf("release stock for order %s: %w", order.ID, err)
		}
		order.StockReserved = false
	}
	order.CancelReason = in.reason

	d.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"reason":   in.reason,
	}).Info("Order cancelled")
	return nil
}

// refund инициирует возврат полной суммы у провайдера. Складской резерв
// не трогаем: для delivered-заказов физический возврат товара — отдельный
// внешний процесс.
func (d *Dispatcher) refund(ctx context.Context, order *domain.Order, _ effectInput) error {
	status, err := d.payments.Refund(ctx, order.ID, order.Amounts.TotalMinor)
	if err != nil {
		return fmt.Errorf("refund order %s: %w", order.ID, err)
	}
	if status != domain.PaymentStatusRefunded {
		return &domain.StateError{Reason: StateReasonRefundDeclined}
	}
	order.PaymentStatus = domain.PaymentStatusRefunded

	d.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"amount_minor": order.Amounts.TotalMinor,
	}).Info("Order refunded")
	return nil
}
