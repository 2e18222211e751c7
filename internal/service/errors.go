package service

import (
	"errors"
	"fmt"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/repository"
)

var (
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidSignature = errors.New("notification signature mismatch")
	ErrAmountMismatch   = errors.New("notification gross amount does not match order total")

	// ErrPaymentSessionFailed means the order was committed but the
	// gateway call for its payment session failed. The order stays
	// pending; the session recovery poller closes the gap.
	ErrPaymentSessionFailed = errors.New("payment session could not be created")
)

// OutOfStockError names the product that sank the whole checkout.
type OutOfStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %q is out of stock: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// IsPermanentRejection classifies reconciler outcomes for the queue
// worker: permanent rejections are terminal and must never be retried,
// anything else is treated as a transient infrastructure failure.
func IsPermanentRejection(err error) bool {
	return errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, repository.ErrOrderNotFound)
}
