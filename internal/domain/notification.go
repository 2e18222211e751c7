package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// PaymentNotification is the inbound webhook payload from the payment
// gateway. Field names follow the gateway's wire format bit-exactly, they
// participate in signature verification.
type PaymentNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status,omitempty"`
}

// Hash returns the dedup-ledger key: a sha256 over the canonical JSON
// encoding of the payload. Identical redeliveries hash identically.
func (n *PaymentNotification) Hash() string {
	raw, _ := json.Marshal(n)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Valid reports whether all fields required for processing are present.
// fraud_status is optional.
func (n *PaymentNotification) Valid() bool {
	return n.OrderID != "" &&
		n.StatusCode != "" &&
		n.GrossAmount != "" &&
		n.SignatureKey != "" &&
		n.TransactionStatus != ""
}
