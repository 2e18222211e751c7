package midtrans

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/saulsanto22/payment-gateway-simple-api/internal/domain"
)

const (
	SandboxBaseURL    = "https://app.sandbox.midtrans.com"
	ProductionBaseURL = "https://app.midtrans.com"
)

type Config struct {
	ServerKey    string
	IsProduction bool
	Timeout      time.Duration
}

// Client talks to the Midtrans Snap API. Calls go through a circuit
// breaker so a struggling gateway fails fast instead of tying up checkout
// requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serverKey  string
	breaker    *gobreaker.CircuitBreaker[*domain.PaymentSession]
}

func NewClient(cfg Config) *Client {
	baseURL := SandboxBaseURL
	if cfg.IsProduction {
		baseURL = ProductionBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*domain.PaymentSession](gobreaker.Settings{
		Name:    "midtrans-snap",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		serverKey:  cfg.ServerKey,
		breaker:    breaker,
	}
}

type transactionDetails struct {
	OrderID     string      `json:"order_id"`
	GrossAmount json.Number `json:"gross_amount"`
}

type itemDetail struct {
	ID       string      `json:"id"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
	Name     string      `json:"name"`
}

type customerDetails struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

type snapRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	ItemDetails        []itemDetail       `json:"item_details"`
	CustomerDetails    customerDetails    `json:"customer_details"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreateTransaction requests a Snap payment session for the order. The
// order number is the gateway-facing transaction key. Amounts go out at
// the stored two-decimal precision: the gateway echoes gross_amount back
// in settlement notifications and reconciliation compares it against the
// stored total, so truncating here would reject every legitimate
// settlement for a fractional total.
func (c *Client) CreateTransaction(ctx context.Context, order *domain.Order, customer *domain.User) (*domain.PaymentSession, error) {
	items := make([]itemDetail, len(order.Items))
	for i, item := range order.Items {
		items[i] = itemDetail{
			ID:       fmt.Sprint(item.ProductID),
			Price:    json.Number(item.Price.StringFixed(2)),
			Quantity: item.Quantity,
			Name:     item.ProductName,
		}
	}

	payload := snapRequest{
		TransactionDetails: transactionDetails{
			OrderID:     order.OrderNumber,
			GrossAmount: json.Number(order.TotalPrice.StringFixed(2)),
		},
		ItemDetails: items,
		CustomerDetails: customerDetails{
			FirstName: customer.Name,
			Email:     customer.Email,
		},
	}

	return c.breaker.Execute(func() (*domain.PaymentSession, error) {
		return c.postTransaction(ctx, &payload)
	})
}

func (c *Client) postTransaction(ctx context.Context, payload *snapRequest) (*domain.PaymentSession, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal snap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build snap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snap request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snap response: %w", err)
	}

	var parsed snapResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse snap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		if len(parsed.ErrorMessages) > 0 {
			return nil, fmt.Errorf("snap returned %d: %s", resp.StatusCode, parsed.ErrorMessages[0])
		}
		return nil, fmt.Errorf("snap returned %d", resp.StatusCode)
	}

	return &domain.PaymentSession{
		Token:       parsed.Token,
		RedirectURL: parsed.RedirectURL,
	}, nil
}
