package domain

import "time"

// OrderOrigin определяет, каким путём заказ попал в систему.
type OrderOrigin string

const (
	// OriginPatientPurchase — прямая покупка пациентом у ассоциации.
	OriginPatientPurchase OrderOrigin = "patient_purchase"
	// OriginMarketplace — B2B-заказ между организациями через маркетплейс.
	OriginMarketplace OrderOrigin = "marketplace"
)

// Valid проверяет, что origin относится к поддерживаемым значениям.
func (o OrderOrigin) Valid() bool {
	return o == OriginPatientPurchase || o == OriginMarketplace
}

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusDraft — черновик маркетплейс-заказа до явной отправки поставщику.
	OrderStatusDraft OrderStatus = "draft"
	// OrderStatusPending — заказ отправлен и ожидает подтверждения.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusApproved — заказ подтверждён, ожидается оплата.
	OrderStatusApproved OrderStatus = "approved"
	// OrderStatusPaymentConfirmed — оплата подтверждена, товар зарезервирован.
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	// OrderStatusInPreparation — заказ собирается на складе.
	OrderStatusInPreparation OrderStatus = "in_preparation"
	// OrderStatusShipped — заказ передан перевозчику.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен получателю.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён до завершения цикла.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — деньги возвращены покупателю.
	OrderStatusRefunded OrderStatus = "refunded"
)

// Valid проверяет, что статус относится к известным значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusApproved,
		OrderStatusPaymentConfirmed, OrderStatusInPreparation,
		OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRefunded:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что у статуса нет исходящих переходов. delivered
// не терминален: остаётся пост-доставочный возврат delivered → refunded.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// PaymentStatus описывает состояние оплаты заказа. Значение меняется
// только платёжным сайд-эффектом, никогда напрямую из запроса клиента.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// OrderItem представляет одну позицию заказа. Позиции неизменяемы после
// создания: поддерживаемый путь правок — отмена и создание нового заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и аудита.
	ID string
	// ProductRef — внешний идентификатор товара.
	ProductRef string
	// Qty — количество единиц товара.
	Qty int32
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	// CreatedAt фиксирует момент добавления позиции в заказ.
	CreatedAt time.Time
}

// Amounts — денежная сводка заказа, вычисляется один раз при создании
// и никогда не пересчитывается молча.
type Amounts struct {
	SubtotalMinor int64
	TaxMinor      int64
	ShippingMinor int64
	DiscountMinor int64
	TotalMinor    int64
}

// Tracking хранит данные отгрузки. Назначается на стадии подготовки либо
// атомарно вместе с переходом в shipped.
type Tracking struct {
	CarrierCode       string
	TrackingNumber    string
	URL               string
	EstimatedDelivery time.Time
}

// StatusChange — одна запись append-only истории статусов заказа.
// Неуспешные попытки тоже записываются: у них To равен текущему статусу,
// а Reason описывает причину отказа.
type StatusChange struct {
	From       OrderStatus
	To         OrderStatus
	ActorID    string
	ActorRole  Role
	Reason     string
	OccurredAt time.Time
}

// Order агрегирует состояние заказа, его позиции и историю статусов.
type Order struct {
	ID string
	// Number — человекочитаемый код заказа, генерируется один раз при
	// создании и неизменяем.
	Number string
	Origin OrderOrigin
	// OrganizationID — организация-владелец; все чтения и записи
	// ограничены этим значением, кроме актёров с ролью platform_admin.
	OrganizationID string
	// CounterpartyID заполняется только для marketplace-заказов
	// (организация-поставщик).
	CounterpartyID string
	CustomerName   string
	Description    string
	Items          []OrderItem
	Amounts        Amounts
	Status         OrderStatus
	PaymentStatus  PaymentStatus
	StockReserved  bool
	Tracking       *Tracking
	CancelReason   string
	ShippedAt      *time.Time
	History        []StatusChange
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if !o.Origin.Valid() {
		errs = append(errs, ErrOriginInvalid)
	}
	if o.OrganizationID == "" {
		errs = append(errs, ErrOrganizationRequired)
	}
	if o.Origin == OriginMarketplace && o.CounterpartyID == "" {
		errs = append(errs, ErrCounterpartyRequired)
	}
	if o.Origin == OriginPatientPurchase && o.CounterpartyID != "" {
		errs = append(errs, ErrCounterpartyNotAllowed)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}

	// Сверяем subtotal с суммой позиций: qty * unit price.
	var calc int64
	for _, item := range o.Items {
		if item.ProductRef == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.UnitPriceMinor
	}
	if calc != o.Amounts.SubtotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.Amounts.TotalMinor != o.Amounts.SubtotalMinor+o.Amounts.TaxMinor+o.Amounts.ShippingMinor-o.Amounts.DiscountMinor {
		errs = append(errs, ErrTotalMismatch)
	}
	if o.Amounts.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}

	return errs
}

// AppendHistory добавляет запись истории и продвигает UpdatedAt.
func (o *Order) AppendHistory(change StatusChange) {
	if change.OccurredAt.IsZero() {
		change.OccurredAt = time.Now().UTC()
	}
	o.History = append(o.History, change)
	o.UpdatedAt = change.OccurredAt
}

// LastHistory возвращает последнюю запись истории или nil для пустой истории.
func (o *Order) LastHistory() *StatusChange {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}
