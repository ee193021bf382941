package service

import (
	"context"
	"log/slog"

	apperrors "github.com/araliya/storefront/pkg/errors"

	"github.com/araliya/storefront/internal/domain"
	"github.com/araliya/storefront/internal/event"
	"github.com/araliya/storefront/internal/gateway"
)

// clearReasonOrderPaid marks cart.cleared events emitted by reconciliation.
const clearReasonOrderPaid = "order_paid"

// ReconcileService resolves an order after the payment redirect returns and
// reconciles the cart against the observed status: a paid order clears the
// cart, anything else leaves it intact.
type ReconcileService struct {
	carts    *CartService
	checkout *CheckoutService
	orders   *gateway.OrderGateway
	producer *event.Producer
	logger   *slog.Logger
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(
	carts *CartService,
	checkout *CheckoutService,
	orders *gateway.OrderGateway,
	producer *event.Producer,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		carts:    carts,
		checkout: checkout,
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// Resolve fetches the order and reconciles the cart. Lookup failures surface
// as the distinct OrderLookupFailed condition with the cart untouched, so
// the caller can retry without losing anything. Re-resolving a paid order
// whose cart was already cleared is a safe no-op with CartCleared false.
func (s *ReconcileService) Resolve(ctx context.Context, userID, token, orderID string) (*domain.ReconciliationResult, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if token == "" {
		return nil, apperrors.AuthRequired("login is required to view orders")
	}
	if orderID == "" {
		return nil, apperrors.InvalidInput("order id is required")
	}

	order, err := s.orders.GetOrder(ctx, token, orderID)
	if err != nil {
		return nil, err
	}

	if !domain.IsValidStatus(order.Status) {
		s.logger.WarnContext(ctx, "order has unrecognized status",
			slog.String("order_id", orderID),
			slog.String("status", order.Status),
		)
	}

	result := &domain.ReconciliationResult{Order: order}

	if order.IsPaid() {
		cleared, err := s.clearCartOnce(ctx, userID)
		if err != nil {
			// The order is definitively paid; a failed clear must not mask
			// that. Surface the status and let a later resolve retry.
			s.logger.ErrorContext(ctx, "failed to clear cart for paid order",
				slog.String("user_id", userID),
				slog.String("order_id", orderID),
				slog.String("error", err.Error()),
			)
		} else {
			result.CartCleared = cleared
		}
	}

	if order.IsTerminal() {
		s.checkout.ReleaseHold(userID)
	}

	if err := s.producer.PublishOrderReconciled(ctx, userID, result); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.reconciled event",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order resolved",
		slog.String("user_id", userID),
		slog.String("order_id", orderID),
		slog.String("status", order.Status),
		slog.Bool("cart_cleared", result.CartCleared),
	)

	return result, nil
}

// clearCartOnce clears the cart only if it still has items, reporting
// whether this call performed the clear.
func (s *ReconcileService) clearCartOnce(ctx context.Context, userID string) (bool, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return false, err
	}
	if cart.IsEmpty() {
		return false, nil
	}
	if err := s.carts.ClearCart(ctx, userID, clearReasonOrderPaid); err != nil {
		return false, err
	}
	return true, nil
}
