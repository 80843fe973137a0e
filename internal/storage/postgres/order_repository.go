package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verdantis/fulfillment/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

const orderColumns = `
	id, number, origin, organization_id, counterparty_id, customer_name, description,
	subtotal_minor, tax_minor, shipping_minor, discount_minor, total_minor,
	status, payment_status, stock_reserved,
	carrier_code, tracking_number, tracking_url, estimated_delivery,
	cancel_reason, shipped_at, version, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "orders.create", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		carrierCode, trackingNumber, trackingURL sql.NullString
		estimatedDelivery                        sql.NullTime
	)
	if order.Tracking != nil {
		carrierCode = sql.NullString{String: order.Tracking.CarrierCode, Valid: true}
		trackingNumber = sql.NullString{String: order.Tracking.TrackingNumber, Valid: true}
		trackingURL = sql.NullString{String: order.Tracking.URL, Valid: true}
		if !order.Tracking.EstimatedDelivery.IsZero() {
			estimatedDelivery = sql.NullTime{Time: order.Tracking.EstimatedDelivery, Valid: true}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
	`,
		order.ID, order.Number, string(order.Origin), order.OrganizationID,
		order.CounterpartyID, order.CustomerName, order.Description,
		order.Amounts.SubtotalMinor, order.Amounts.TaxMinor, order.Amounts.ShippingMinor,
		order.Amounts.DiscountMinor, order.Amounts.TotalMinor,
		string(order.Status), string(order.PaymentStatus), order.StockReserved,
		carrierCode, trackingNumber, trackingURL, estimatedDelivery,
		order.CancelReason, order.ShippedAt, order.Version, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderVersionConflict
		}
		return &domain.StorageError{Op: "orders.create", Err: err}
	}

	for _, item := range order.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_ref, qty, unit_price_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			item.ID, order.ID, item.ProductRef, item.Qty, item.UnitPriceMinor, item.CreatedAt,
		); err != nil {
			return &domain.StorageError{Op: "orders.create_item", Err: err}
		}
	}

	if err = insertHistoryTail(ctx, tx, order.ID, 0, order.History); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return &domain.StorageError{Op: "orders.create", Err: err}
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, &domain.StorageError{Op: "orders.get", Err: err}
	}

	if err := r.loadDetails(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.OrganizationID != "" {
		conditions = append(conditions, "organization_id = "+arg(filter.OrganizationID))
	}
	if filter.Origin != "" {
		conditions = append(conditions, "origin = "+arg(string(filter.Origin)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			placeholders = append(placeholders, arg(string(status)))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ",")+")")
	} else if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(string(filter.Status)))
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		p := arg(pattern)
		conditions = append(conditions, "(LOWER(customer_name) LIKE "+p+" OR LOWER(description) LIKE "+p+")")
	}
	if !filter.CreatedFrom.IsZero() {
		conditions = append(conditions, "created_at >= "+arg(filter.CreatedFrom))
	}
	if !filter.CreatedTo.IsZero() {
		conditions = append(conditions, "created_at <= "+arg(filter.CreatedTo))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	if filter.OldestFirst {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "orders.list", Err: err}
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "orders.list", Err: err}
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "orders.list", Err: err}
	}

	for i := range orders {
		if err := r.loadDetails(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

// Save фиксирует изменения через optimistic CAS: UPDATE проходит, только
// если версия в базе совпадает с прочитанной. Новый хвост истории
// дописывается в той же транзакции; сохранённый префикс не трогается.
func (r *orderRepository) Save(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "orders.save", Err: err}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var (
		carrierCode, trackingNumber, trackingURL sql.NullString
		estimatedDelivery                        sql.NullTime
	)
	if order.Tracking != nil {
		carrierCode = sql.NullString{String: order.Tracking.CarrierCode, Valid: true}
		trackingNumber = sql.NullString{String: order.Tracking.TrackingNumber, Valid: true}
		trackingURL = sql.NullString{String: order.Tracking.URL, Valid: true}
		if !order.Tracking.EstimatedDelivery.IsZero() {
			estimatedDelivery = sql.NullTime{Time: order.Tracking.EstimatedDelivery, Valid: true}
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    payment_status = $2,
		    stock_reserved = $3,
		    carrier_code = $4,
		    tracking_number = $5,
		    tracking_url = $6,
		    estimated_delivery = $7,
		    cancel_reason = $8,
		    shipped_at = $9,
		    version = version + 1,
		    updated_at = $10
		WHERE id = $11
		  AND version = $12
	`,
		string(order.Status), string(order.PaymentStatus), order.StockReserved,
		carrierCode, trackingNumber, trackingURL, estimatedDelivery,
		order.CancelReason, order.ShippedAt, order.UpdatedAt,
		order.ID, order.Version,
	)
	if err != nil {
		return &domain.StorageError{Op: "orders.save", Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "orders.save", Err: err}
	}
	if affected == 0 {
		exists, checkErr := orderExistsTx(ctx, tx, order.ID)
		if checkErr != nil {
			err = checkErr
			return err
		}
		err = domain.ErrOrderVersionConflict
		if !exists {
			err = domain.ErrOrderNotFound
		}
		return err
	}

	var savedCount int
	if err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM order_status_history WHERE order_id = $1
	`, order.ID).Scan(&savedCount); err != nil {
		return &domain.StorageError{Op: "orders.save_history", Err: err}
	}
	if err = insertHistoryTail(ctx, tx, order.ID, savedCount, order.History); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return &domain.StorageError{Op: "orders.save", Err: err}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order                                    domain.Order
		origin, status, paymentStatus            string
		carrierCode, trackingNumber, trackingURL sql.NullString
		estimatedDelivery, shippedAt             sql.NullTime
	)

	if err := row.Scan(
		&order.ID, &order.Number, &origin, &order.OrganizationID,
		&order.CounterpartyID, &order.CustomerName, &order.Description,
		&order.Amounts.SubtotalMinor, &order.Amounts.TaxMinor, &order.Amounts.ShippingMinor,
		&order.Amounts.DiscountMinor, &order.Amounts.TotalMinor,
		&status, &paymentStatus, &order.StockReserved,
		&carrierCode, &trackingNumber, &trackingURL, &estimatedDelivery,
		&order.CancelReason, &shippedAt, &order.Version, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.Origin = domain.OrderOrigin(origin)
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	if carrierCode.Valid || trackingNumber.Valid {
		order.Tracking = &domain.Tracking{
			CarrierCode:    carrierCode.String,
			TrackingNumber: trackingNumber.String,
			URL:            trackingURL.String,
		}
		if estimatedDelivery.Valid {
			order.Tracking.EstimatedDelivery = estimatedDelivery.Time
		}
	}
	if shippedAt.Valid {
		t := shippedAt.Time
		order.ShippedAt = &t
	}

	return order, nil
}

func (r *orderRepository) loadDetails(ctx context.Context, order *domain.Order) error {
	items, err := r.loadItems(ctx, order.ID)
	if err != nil {
		return err
	}
	order.Items = items

	history, err := r.loadHistory(ctx, order.ID)
	if err != nil {
		return err
	}
	order.History = history
	return nil
}

func (r *orderRepository) loadItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_ref, qty, unit_price_minor, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, &domain.StorageError{Op: "orders.load_items", Err: err}
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductRef, &item.Qty, &item.UnitPriceMinor, &item.CreatedAt); err != nil {
			return nil, &domain.StorageError{Op: "orders.load_items", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "orders.load_items", Err: err}
	}

	return items, nil
}

func (r *orderRepository) loadHistory(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT from_status, to_status, actor_id, actor_role, reason, occurred_at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY seq ASC
	`, orderID)
	if err != nil {
		return nil, &domain.StorageError{Op: "orders.load_history", Err: err}
	}
	defer rows.Close()

	history := make([]domain.StatusChange, 0)
	for rows.Next() {
		var (
			change         domain.StatusChange
			from, to, role string
		)
		if err := rows.Scan(&from, &to, &change.ActorID, &role, &change.Reason, &change.OccurredAt); err != nil {
			return nil, &domain.StorageError{Op: "orders.load_history", Err: err}
		}
		change.From = domain.OrderStatus(from)
		change.To = domain.OrderStatus(to)
		change.ActorRole = domain.Role(role)
		history = append(history, change)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "orders.load_history", Err: err}
	}

	return history, nil
}

func insertHistoryTail(ctx context.Context, tx *sql.Tx, orderID string, savedCount int, history []domain.StatusChange) error {
	for i := savedCount; i < len(history); i++ {
		change := history[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_status_history (
				order_id, seq, from_status, to_status, actor_id, actor_role, reason, occurred_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			orderID, i+1, string(change.From), string(change.To),
			change.ActorID, string(change.ActorRole), change.Reason, change.OccurredAt,
		); err != nil {
			return &domain.StorageError{Op: "orders.save_history", Err: err}
		}
	}
	return nil
}

func orderExistsTx(ctx context.Context, tx *sql.Tx, orderID string) (bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1`, orderID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, &domain.StorageError{Op: "orders.exists", Err: err}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
