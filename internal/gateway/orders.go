package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/araliya/storefront/pkg/errors"
	"github.com/araliya/storefront/pkg/httpclient"

	"github.com/araliya/storefront/internal/domain"
)

// maxReceiptPDFBytes caps receipt downloads proxied through the gateway.
const maxReceiptPDFBytes = 10 << 20

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CreateOrderResult is what the order service returns for a newly submitted
// order. PaymentData is an opaque map destined for the payment processor's
// checkout form; the storefront never interprets it.
type CreateOrderResult struct {
	OrderID     string            `json:"orderId"`
	PaymentData map[string]string `json:"paymentData"`
}

// OrderGateway calls the external order service on behalf of the storefront,
// forwarding the caller's bearer token on every request.
type OrderGateway struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewOrderGateway creates a gateway for the order service at baseURL.
func NewOrderGateway(client HTTPDoer, baseURL string, logger *slog.Logger) *OrderGateway {
	return &OrderGateway{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

// CreateOrder submits the cart snapshot to POST /api/orders and returns the
// order ID plus the opaque payment payload.
func (g *OrderGateway) CreateOrder(ctx context.Context, token string, items []domain.LineItem, totalAmount int64) (*CreateOrderResult, error) {
	payload := struct {
		Items       []domain.LineItem `json:"items"`
		TotalAmount int64             `json:"totalAmount"`
	}{
		Items:       items,
		TotalAmount: totalAmount,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal create order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "order-service")
	}

	var result CreateOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode create order response: %w", err)
	}
	if result.OrderID == "" {
		return nil, fmt.Errorf("order service returned no order id")
	}

	g.logger.InfoContext(ctx, "order created",
		slog.String("order_id", result.OrderID),
		slog.Int64("total_amount", totalAmount),
	)

	return &result, nil
}

// GetOrder fetches the order record from GET /api/orders/:orderId. Any
// failure to reach or read the order surfaces as OrderLookupFailed so the
// caller can distinguish it from a definitive order state.
func (g *OrderGateway) GetOrder(ctx context.Context, token, orderID string) (*domain.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/orders/"+orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("create get order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.OrderLookupFailed(orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.OrderLookupFailed(orderID, httpclient.ParseResponseError(resp, "order-service"))
	}

	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, apperrors.OrderLookupFailed(orderID, fmt.Errorf("decode order response: %w", err))
	}
	if order.OrderID == "" {
		order.OrderID = orderID
	}

	return &order, nil
}

// SendReceiptEmail proxies POST /api/orders/:orderId/send-email.
func (g *OrderGateway) SendReceiptEmail(ctx context.Context, token, orderID, email string) error {
	payload := struct {
		Email string `json:"email"`
	}{Email: email}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/orders/"+orderID+"/send-email", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create send email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return httpclient.ParseResponseError(resp, "order-service")
	}

	g.logger.InfoContext(ctx, "receipt email requested",
		slog.String("order_id", orderID),
	)

	return nil
}

// DownloadReceiptPDF proxies GET /api/orders/:orderId/generate-pdf and
// returns the binary body with its content type.
func (g *OrderGateway) DownloadReceiptPDF(ctx context.Context, token, orderID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/orders/"+orderID+"/generate-pdf", nil)
	if err != nil {
		return nil, "", fmt.Errorf("create receipt pdf request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("call order service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", httpclient.ParseResponseError(resp, "order-service")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptPDFBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read receipt pdf: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}

	return data, contentType, nil
}
