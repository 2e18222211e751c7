package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

const orderColumns = `id, user_id, order_number, total_price, status, snap_token, redirect_url, created_at, updated_at`

func (r *Repository) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) GetOrderWithItems(ctx context.Context, orderID int64) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 15
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query orders by user: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) SetPaymentSession(ctx context.Context, orderID int64, token, redirectURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET snap_token = $2, redirect_url = $3, updated_at = NOW() WHERE id = $1`,
		orderID, token, redirectURL)
	if err != nil {
		return fmt.Errorf("set payment session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set payment session rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *Repository) ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = $1 AND created_at <= NOW() - $2::interval
		 ORDER BY created_at LIMIT $3`,
		domain.OrderStatusPending, intervalArg(age), limit)
	if err != nil {
		return nil, fmt.Errorf("query pending orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *Repository) ListPendingWithoutSession(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE status = $1 AND snap_token IS NULL AND created_at <= NOW() - $2::interval
		 ORDER BY created_at LIMIT $3`,
		domain.OrderStatusPending, intervalArg(olderThan), limit)
	if err != nil {
		return nil, fmt.Errorf("query sessionless orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		if err := r.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// CreateOrder inserts the order row and its item snapshots. A duplicate
// order number surfaces as ErrDuplicateOrderNumber so the caller can retry
// with a regenerated one.
func (t *pgTx) CreateOrder(ctx context.Context, order *domain.Order) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (user_id, order_number, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		order.UserID, order.OrderNumber, order.TotalPrice, order.Status).
		Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := t.tx.QueryRowContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			order.ID, item.ProductID, item.ProductName, item.Quantity, item.Price).
			Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	return scanOrder(row)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		orderID, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (t *pgTx) RecordNotification(ctx context.Context, rec *NotificationRecord) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO payment_notifications (payload_hash, order_number, transaction_status, signature_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (payload_hash) DO NOTHING`,
		rec.PayloadHash, rec.OrderNumber, rec.TransactionStatus, rec.SignatureKey, rec.Payload)
	if err != nil {
		return false, fmt.Errorf("record notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record notification rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price
		FROM order_items WHERE order_id = $1 ORDER BY id`, order.ID)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("row iteration error: %w", err)
	}
	return nil
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	var (
		order       domain.Order
		snapToken   sql.NullString
		redirectURL sql.NullString
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.TotalPrice,
		&order.Status,
		&snapToken,
		&redirectURL,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	order.SnapToken = snapToken.String
	order.RedirectURL = redirectURL.String
	return &order, nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var (
			order       domain.Order
			snapToken   sql.NullString
			redirectURL sql.NullString
		)
		if err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.OrderNumber,
			&order.TotalPrice,
			&order.Status,
			&snapToken,
			&redirectURL,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		order.SnapToken = snapToken.String
		order.RedirectURL = redirectURL.String
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func intervalArg(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
