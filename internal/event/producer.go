package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/araliya/storefront/pkg/kafka"
	"github.com/araliya/storefront/pkg/logger"

	"github.com/araliya/storefront/internal/domain"
)

// Kafka topic constants for storefront domain events.
const (
	TopicCartUpdated       = "storefront.cart.updated"
	TopicCartCleared       = "storefront.cart.cleared"
	TopicCheckoutSubmitted = "storefront.checkout.submitted"
	TopicOrderReconciled   = "storefront.order.reconciled"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	UserID      string         `json:"user_id"`
	Items       []LineItemData `json:"items"`
	ItemCount   int            `json:"item_count"`
	TotalAmount int64          `json:"total_amount"`
	Currency    string         `json:"currency"`
}

// LineItemData is the item payload within cart and checkout events.
type LineItemData struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// CheckoutSubmittedData is the payload for a checkout.submitted event.
type CheckoutSubmittedData struct {
	UserID      string         `json:"user_id"`
	OrderID     string         `json:"order_id"`
	Items       []LineItemData `json:"items"`
	TotalAmount int64          `json:"total_amount"`
	Currency    string         `json:"currency"`
}

// OrderReconciledData is the payload for an order.reconciled event.
type OrderReconciledData struct {
	UserID      string `json:"user_id"`
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	CartCleared bool   `json:"cart_cleared"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// publish wraps data in the standard envelope, tags it with the request
// correlation ID when one is present, and sends it.
func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

func lineItemData(items []domain.LineItem) []LineItemData {
	out := make([]LineItemData, len(items))
	for i, item := range items {
		out[i] = LineItemData{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Size:        item.Size,
			Price:       item.Price,
			Quantity:    item.Quantity,
		}
	}
	return out
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		UserID:      cart.UserID,
		Items:       lineItemData(cart.Items),
		ItemCount:   cart.ItemCount(),
		TotalAmount: cart.TotalAmount(),
		Currency:    cart.Currency,
	}

	if err := p.publish(ctx, TopicCartUpdated, cart.UserID, AggregateTypeCart, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("user_id", cart.UserID),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event. Reason distinguishes an
// explicit user clear from a paid-order reconciliation.
func (p *Producer) PublishCartCleared(ctx context.Context, userID, reason string) error {
	data := CartClearedData{UserID: userID, Reason: reason}

	if err := p.publish(ctx, TopicCartCleared, userID, AggregateTypeCart, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)

	return nil
}

// PublishCheckoutSubmitted publishes a checkout.submitted event.
func (p *Producer) PublishCheckoutSubmitted(ctx context.Context, userID, orderID string, cart *domain.Cart) error {
	data := CheckoutSubmittedData{
		UserID:      userID,
		OrderID:     orderID,
		Items:       lineItemData(cart.Items),
		TotalAmount: cart.TotalAmount(),
		Currency:    cart.Currency,
	}

	if err := p.publish(ctx, TopicCheckoutSubmitted, orderID, AggregateTypeOrder, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published checkout.submitted event",
		slog.String("user_id", userID),
		slog.String("order_id", orderID),
	)

	return nil
}

// PublishOrderReconciled publishes an order.reconciled event.
func (p *Producer) PublishOrderReconciled(ctx context.Context, userID string, result *domain.ReconciliationResult) error {
	data := OrderReconciledData{
		UserID:      userID,
		OrderID:     result.Order.OrderID,
		Status:      result.Order.Status,
		CartCleared: result.CartCleared,
	}

	if err := p.publish(ctx, TopicOrderReconciled, result.Order.OrderID, AggregateTypeOrder, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.reconciled event",
		slog.String("order_id", result.Order.OrderID),
		slog.String("status", result.Order.Status),
	)

	return nil
}
