package midtrans

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

// Signature computes the notification signature the way the gateway
// documents it: sha512 over the plain concatenation of order id, status
// code, gross amount and the merchant server key. No separators.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the expected signature from the notification
// fields and compares it byte-for-byte against the supplied one.
func VerifySignature(n *domain.PaymentNotification, serverKey string) bool {
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
