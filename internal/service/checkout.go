package service

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/araliya/storefront/pkg/errors"

	"github.com/araliya/storefront/internal/domain"
	"github.com/araliya/storefront/internal/event"
	"github.com/araliya/storefront/internal/gateway"
)

// CircuitOpenFallback is the fallback for the order-service circuit breaker.
// When the circuit is open it returns a structured error with a retry hint
// instead of letting the raw ErrCircuitOpen propagate.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("order service is temporarily unavailable, please retry after 30 seconds")
}

// inflightGuard tracks users with an outstanding checkout. Entries expire so
// an abandoned payment redirect cannot lock a user out forever.
type inflightGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
	hold    time.Duration
}

func newInflightGuard(hold time.Duration) *inflightGuard {
	return &inflightGuard{
		entries: make(map[string]time.Time),
		hold:    hold,
	}
}

// acquire reserves the user's checkout slot. It returns false if a
// non-expired reservation already exists.
func (g *inflightGuard) acquire(userID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, ok := g.entries[userID]; ok && now.Before(expiry) {
		return false
	}
	g.entries[userID] = now.Add(g.hold)
	return true
}

// release frees the user's checkout slot.
func (g *inflightGuard) release(userID string) {
	g.mu.Lock()
	delete(g.entries, userID)
	g.mu.Unlock()
}

// CheckoutService coordinates order submission and the payment hand-off.
// Prepare is phase one: it submits the cart snapshot to the order service
// and returns a redirect descriptor. Navigating to the payment processor is
// the caller's explicit second phase; the cart is never mutated here.
type CheckoutService struct {
	carts       *CartService
	orders      *gateway.OrderGateway
	producer    *event.Producer
	logger      *slog.Logger
	checkoutURL string
	inflight    *inflightGuard
}

// NewCheckoutService creates a new checkout service. checkoutURL is the
// payment processor endpoint the redirect descriptor targets; holdTTL bounds
// how long a prepared checkout blocks further submissions for the same user.
func NewCheckoutService(
	carts *CartService,
	orders *gateway.OrderGateway,
	producer *event.Producer,
	logger *slog.Logger,
	checkoutURL string,
	holdTTL time.Duration,
) *CheckoutService {
	return &CheckoutService{
		carts:       carts,
		orders:      orders,
		producer:    producer,
		logger:      logger,
		checkoutURL: checkoutURL,
		inflight:    newInflightGuard(holdTTL),
	}
}

// Prepare submits the user's cart to the order service and returns the
// payment redirect descriptor. Any failure leaves the cart exactly as it
// was; a second Prepare while one is outstanding is rejected with a
// conflict, never queued or silently dropped.
func (s *CheckoutService) Prepare(ctx context.Context, userID, token string) (*domain.CheckoutRedirect, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if token == "" {
		return nil, apperrors.AuthRequired("login is required to check out")
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	if !s.inflight.acquire(userID, time.Now().UTC()) {
		return nil, apperrors.Conflict("a checkout is already in progress for this user")
	}

	result, err := s.orders.CreateOrder(ctx, token, cart.Items, cart.TotalAmount())
	if err != nil {
		s.inflight.release(userID)
		return nil, err
	}

	redirect := &domain.CheckoutRedirect{
		OrderID:     result.OrderID,
		CheckoutURL: s.checkoutURL,
		Method:      http.MethodPost,
		Fields:      result.PaymentData,
	}

	if err := s.producer.PublishCheckoutSubmitted(ctx, userID, result.OrderID, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout.submitted event",
			slog.String("user_id", userID),
			slog.String("order_id", result.OrderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "checkout prepared",
		slog.String("user_id", userID),
		slog.String("order_id", result.OrderID),
		slog.Int64("total_amount", cart.TotalAmount()),
		slog.Int("item_count", cart.ItemCount()),
	)

	return redirect, nil
}

// ReleaseHold frees the user's in-flight checkout slot. Called when
// reconciliation observes the order in a terminal state.
func (s *CheckoutService) ReleaseHold(userID string) {
	s.inflight.release(userID)
}
