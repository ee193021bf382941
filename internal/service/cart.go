package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/araliya/storefront/pkg/errors"

	"github.com/araliya/storefront/internal/domain"
	"github.com/araliya/storefront/internal/event"
	"github.com/araliya/storefront/internal/repository"
)

// Currency is the shop's single trading currency; prices are int64 cents.
const Currency = "LKR"

// AddItemInput holds the parameters for adding an item to the cart.
type AddItemInput struct {
	ProductID   string `json:"productId" validate:"required"`
	ProductName string `json:"productName" validate:"required"`
	Size        string `json:"size" validate:"required"`
	Price       int64  `json:"price" validate:"required,gte=0"`
	Quantity    int    `json:"quantity" validate:"required,gte=1"`
	Image       string `json:"image"`
}

// CartService implements the business logic for cart operations.
type CartService struct {
	repo     repository.CartRepository
	producer *event.Producer
	logger   *slog.Logger
	cartTTL  time.Duration
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, producer *event.Producer, logger *slog.Logger, cartTTL time.Duration) *CartService {
	return &CartService{
		repo:     repo,
		producer: producer,
		logger:   logger,
		cartTTL:  cartTTL,
	}
}

// GetCart retrieves the cart for a user. A missing slot yields an empty
// cart, and so does a corrupt one: the failure is logged and the user starts
// fresh rather than seeing an error they cannot act on.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.newEmptyCart(userID), nil
		}
		if errors.Is(err, repository.ErrCorruptCart) {
			s.logger.WarnContext(ctx, "discarding corrupt cart data",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			return s.newEmptyCart(userID), nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	return cart, nil
}

// AddItem adds an item to the user's cart. If an entry with the same product
// and size exists, only its quantity grows; price and product fields stay as
// first added. Uses optimistic locking against concurrent cart writes.
func (s *CartService) AddItem(ctx context.Context, userID string, input AddItemInput) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.Size == "" {
		return nil, apperrors.InvalidInput("size is required")
	}
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version

	if i := cart.FindItemIndex(input.ProductID, input.Size); i >= 0 {
		// Merge is cumulative only: the entry keeps the price, name and
		// image it was first added with. No upper bound here; stock limits
		// are the order service's concern.
		cart.Items[i].Quantity += input.Quantity
	} else {
		cart.Items = append(cart.Items, domain.LineItem{
			ProductID:   input.ProductID,
			ProductName: input.ProductName,
			Size:        input.Size,
			Price:       input.Price,
			Quantity:    input.Quantity,
			Image:       input.Image,
		})
	}

	if err := s.persist(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("user_id", userID),
		slog.String("product_id", input.ProductID),
		slog.String("size", input.Size),
		slog.Int("quantity", input.Quantity),
	)

	return cart, nil
}

// SetItemQuantity sets the quantity of an existing entry. Quantities below 1
// are rejected before anything is persisted; removal is a separate operation.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, productID, size string, quantity int) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if size == "" {
		return nil, apperrors.InvalidInput("size is required")
	}
	if quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version

	i := cart.FindItemIndex(productID, size)
	if i < 0 {
		return nil, apperrors.NotFound("cart item", productID+"/"+size)
	}
	cart.Items[i].Quantity = quantity

	if err := s.persist(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.String("size", size),
		slog.Int("quantity", quantity),
	)

	return cart, nil
}

// RemoveItem removes an entry from the cart. Removing an absent entry is an
// idempotent no-op: the cart is returned unchanged and nothing is persisted.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID, size string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if size == "" {
		return nil, apperrors.InvalidInput("size is required")
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expectedVersion := cart.Version

	i := cart.FindItemIndex(productID, size)
	if i < 0 {
		return cart, nil
	}
	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)

	if err := s.persist(ctx, cart, expectedVersion); err != nil {
		return nil, err
	}

	s.publishCartUpdated(ctx, cart)

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("user_id", userID),
		slog.String("product_id", productID),
		slog.String("size", size),
	)

	return cart, nil
}

// ClearCart empties the user's slot. Reason is carried on the emitted event
// to distinguish an explicit clear from a paid-order reconciliation.
func (s *CartService) ClearCart(ctx context.Context, userID, reason string) error {
	if userID == "" {
		return apperrors.InvalidInput("user id is required")
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	if err := s.producer.PublishCartCleared(ctx, userID, reason); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("user_id", userID),
		slog.String("reason", reason),
	)

	return nil
}

// persist stamps timestamps and writes the cart with an optimistic version
// check, translating a lost race into a conflict the client can retry.
func (s *CartService) persist(ctx context.Context, cart *domain.Cart, expectedVersion int) error {
	now := time.Now().UTC()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.cartTTL)

	ok, err := s.repo.SaveIfVersion(ctx, cart, expectedVersion)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if !ok {
		return apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return nil
}

func (s *CartService) publishCartUpdated(ctx context.Context, cart *domain.Cart) {
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", cart.UserID),
			slog.String("error", err.Error()),
		)
	}
}

// newEmptyCart creates a new empty cart for the given user.
func (s *CartService) newEmptyCart(userID string) *domain.Cart {
	now := time.Now().UTC()
	return &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		Items:     []domain.LineItem{},
		Currency:  Currency,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cartTTL),
	}
}
