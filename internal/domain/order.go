package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancel"
	OrderStatusExpired   OrderStatus = "expired"
)

// IsTerminal reports whether no further status transition is allowed.
// Pending is the only non-terminal status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled || s == OrderStatusExpired
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// MapTransactionStatus translates the gateway's transaction-status vocabulary
// into an order status. Transitional or unrecognized statuses map to pending,
// which the reconciler treats as a no-op.
func MapTransactionStatus(transactionStatus, fraudStatus string) OrderStatus {
	switch transactionStatus {
	case "settlement":
		return OrderStatusPaid
	case "capture":
		if fraudStatus == "challenge" {
			return OrderStatusPending
		}
		return OrderStatusPaid
	case "cancel", "deny":
		return OrderStatusCancelled
	case "expire":
		return OrderStatusExpired
	default:
		return OrderStatusPending
	}
}

// OrderItem snapshots product id, quantity and unit price at order time.
// It never follows later product price changes.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal is price * quantity in exact decimal arithmetic.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	OrderNumber string          `json:"order_number"` // used as order_id towards the gateway
	TotalPrice  decimal.Decimal `json:"total_price"`
	Status      OrderStatus     `json:"status"`
	SnapToken   string          `json:"snap_token,omitempty"`
	RedirectURL string          `json:"redirect_url,omitempty"`
	Items       []OrderItem     `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasPaymentSession reports whether the gateway session was persisted.
func (o *Order) HasPaymentSession() bool {
	return o.SnapToken != ""
}

// PaymentSession is what the gateway hands back when a payment page is
// created for an order.
type PaymentSession struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}
