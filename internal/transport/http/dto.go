package http

import (
	"time"

	"github.com/verdantis/fulfillment/internal/domain"
	"github.com/verdantis/fulfillment/internal/fulfillment"
)

// itemRequest — позиция заказа в теле запроса на создание.
type itemRequest struct {
	ProductRef     string `json:"product_ref"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
}

// createOrderRequest — тело запроса на создание заказа. OrganizationID
// опционален: по умолчанию берётся организация актёра.
type createOrderRequest struct {
	OrganizationID string        `json:"organization_id,omitempty"`
	CounterpartyID string        `json:"counterparty_id,omitempty"`
	CustomerName   string        `json:"customer_name,omitempty"`
	Description    string        `json:"description,omitempty"`
	Items          []itemRequest `json:"items"`
	TaxMinor       int64         `json:"tax_minor"`
	ShippingMinor  int64         `json:"shipping_minor"`
	DiscountMinor  int64         `json:"discount_minor"`
}

// transitionRequest — тело запроса на смену статуса.
type transitionRequest struct {
	Status   string           `json:"status"`
	Reason   string           `json:"reason,omitempty"`
	Tracking *trackingRequest `json:"tracking,omitempty"`
}

// trackingRequest — данные отгрузки.
type trackingRequest struct {
	CarrierCode       string     `json:"carrier_code"`
	TrackingNumber    string     `json:"tracking_number"`
	URL               string     `json:"url,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

func (t *trackingRequest) toDomain() domain.Tracking {
	tracking := domain.Tracking{
		CarrierCode:    t.CarrierCode,
		TrackingNumber: t.TrackingNumber,
		URL:            t.URL,
	}
	if t.EstimatedDelivery != nil {
		tracking.EstimatedDelivery = *t.EstimatedDelivery
	}
	return tracking
}

type itemView struct {
	ID             string    `json:"id"`
	ProductRef     string    `json:"product_ref"`
	Qty            int32     `json:"qty"`
	UnitPriceMinor int64     `json:"unit_price_minor"`
	CreatedAt      time.Time `json:"created_at"`
}

type amountsView struct {
	SubtotalMinor int64 `json:"subtotal_minor"`
	TaxMinor      int64 `json:"tax_minor"`
	ShippingMinor int64 `json:"shipping_minor"`
	DiscountMinor int64 `json:"discount_minor"`
	TotalMinor    int64 `json:"total_minor"`
}

type trackingView struct {
	CarrierCode       string     `json:"carrier_code"`
	TrackingNumber    string     `json:"tracking_number"`
	URL               string     `json:"url,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

type historyView struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// orderView — представление заказа в ответах API.
type orderView struct {
	ID             string        `json:"id"`
	Number         string        `json:"number"`
	Origin         string        `json:"origin"`
	OrganizationID string        `json:"organization_id"`
	CounterpartyID string        `json:"counterparty_id,omitempty"`
	CustomerName   string        `json:"customer_name,omitempty"`
	Description    string        `json:"description,omitempty"`
	Items          []itemView    `json:"items"`
	Amounts        amountsView   `json:"amounts"`
	Status         string        `json:"status"`
	PaymentStatus  string        `json:"payment_status"`
	StockReserved  bool          `json:"stock_reserved"`
	Tracking       *trackingView `json:"tracking,omitempty"`
	CancelReason   string        `json:"cancel_reason,omitempty"`
	ShippedAt      *time.Time    `json:"shipped_at,omitempty"`
	History        []historyView `json:"history"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// summaryView — заказ, обогащённый именами организаций для списков.
type summaryView struct {
	orderView
	OrganizationName string `json:"organization_name,omitempty"`
	CounterpartyName string `json:"counterparty_name,omitempty"`
	IsPatientOrder   bool   `json:"is_patient_order"`
}

func newOrderView(order domain.Order) orderView {
	items := make([]itemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, itemView{
			ID:             item.ID,
			ProductRef:     item.ProductRef,
			Qty:            item.Qty,
			UnitPriceMinor: item.UnitPriceMinor,
			CreatedAt:      item.CreatedAt,
		})
	}

	history := make([]historyView, 0, len(order.History))
	for _, change := range order.History {
		history = append(history, historyView{
			From:       string(change.From),
			To:         string(change.To),
			ActorID:    change.ActorID,
			ActorRole:  string(change.ActorRole),
			Reason:     change.Reason,
			OccurredAt: change.OccurredAt,
		})
	}

	view := orderView{
		ID:             order.ID,
		Number:         order.Number,
		Origin:         string(order.Origin),
		OrganizationID: order.OrganizationID,
		CounterpartyID: order.CounterpartyID,
		CustomerName:   order.CustomerName,
		Description:    order.Description,
		Items:          items,
		Amounts: amountsView{
			SubtotalMinor: order.Amounts.SubtotalMinor,
			TaxMinor:      order.Amounts.TaxMinor,
			ShippingMinor: order.Amounts.ShippingMinor,
			DiscountMinor: order.Amounts.DiscountMinor,
			TotalMinor:    order.Amounts.TotalMinor,
		},
		Status:        string(order.Status),
		PaymentStatus: string(order.PaymentStatus),
		StockReserved: order.StockReserved,
		CancelReason:  order.CancelReason,
		ShippedAt:     order.ShippedAt,
		History:       history,
		Version:       order.Version,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}

	if order.Tracking != nil {
		tracking := &trackingView{
			CarrierCode:    order.Tracking.CarrierCode,
			TrackingNumber: order.Tracking.TrackingNumber,
			URL:            order.Tracking.URL,
		}
		if !order.Tracking.EstimatedDelivery.IsZero() {
			estimated := order.Tracking.EstimatedDelivery
			tracking.EstimatedDelivery = &estimated
		}
		view.Tracking = tracking
	}

	return view
}

func newSummaryView(summary fulfillment.OrderSummary) summaryView {
	return summaryView{
		orderView:        newOrderView(summary.Order),
		OrganizationName: summary.OrganizationName,
		CounterpartyName: summary.CounterpartyName,
		IsPatientOrder:   summary.IsPatientOrder,
	}
}

func newSummaryViews(summaries []fulfillment.OrderSummary) []summaryView {
	views := make([]summaryView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, newSummaryView(summary))
	}
	return views
}
