package repository

import (
	"context"
	"errors"
	"time"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrCartItemNotFound     = errors.New("cart item not found")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// NotificationRecord is one row of the idempotency ledger. PayloadHash is
// the dedup key; an existing row with the same hash means the notification
// was already processed.
type NotificationRecord struct {
	PayloadHash       string
	OrderNumber       string
	TransactionStatus string
	SignatureKey      string
	Payload           []byte
}

// ProductFilter narrows and orders catalog listings. SortBy and SortDir are
// whitelisted by the implementation; anything else falls back to defaults.
type ProductFilter struct {
	Query    string
	MinPrice string
	MaxPrice string
	SortBy   string
	SortDir  string
	Limit    int
	Offset   int
}

// Tx exposes the operations that must run inside a single database
// transaction. Lock-for-update reads stay locked until the enclosing
// transaction commits or rolls back.
type Tx interface {
	GetUserCart(ctx context.Context, userID int64) (*domain.Cart, error)
	GetProductForUpdate(ctx context.Context, productID int64) (*domain.Product, error)
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	CreateOrder(ctx context.Context, order *domain.Order) error
	ClearCart(ctx context.Context, userID int64) error
	GetOrderForUpdate(ctx context.Context, orderID int64) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	// RecordNotification appends to the idempotency ledger. It reports
	// false when a record with the same payload hash already exists.
	RecordNotification(ctx context.Context, rec *NotificationRecord) (bool, error)
}

type Store interface {
	// InTx runs fn inside a transaction, committing on nil and rolling
	// back on error.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetUserCart(ctx context.Context, userID int64) (*domain.Cart, error)
	UpsertCartItem(ctx context.Context, userID, productID int64, quantity int) error
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error

	GetProduct(ctx context.Context, productID int64) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetOrderWithItems(ctx context.Context, orderID int64) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.Order, error)
	SetPaymentSession(ctx context.Context, orderID int64, token, redirectURL string) error
	ListPendingOlderThan(ctx context.Context, age time.Duration, limit int) ([]*domain.Order, error)
	ListPendingWithoutSession(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Order, error)

	// TryAdvisoryLock acquires a session-level advisory lock, used to keep
	// scheduled sweeps from overlapping. The returned release func must be
	// called when done; ok is false when another session holds the lock.
	TryAdvisoryLock(ctx context.Context, key int64) (release func(), ok bool, err error)

	RunMigrations(*Credentials) error
	Close() error
}
