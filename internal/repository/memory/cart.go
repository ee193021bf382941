package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "github.com/araliya/storefront/pkg/errors"

	"github.com/araliya/storefront/internal/domain"
	"github.com/araliya/storefront/internal/repository"
)

// CartRepository is an in-memory implementation of repository.CartRepository
// for tests and local development. Carts are stored as JSON blobs so the
// copy semantics match the Redis implementation.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[string][]byte),
	}
}

// Get retrieves a cart by user ID.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	data, ok := r.carts[userID]
	r.mu.RUnlock()

	if !ok {
		return nil, apperrors.NotFound("cart", userID)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrCorruptCart, err)
	}
	return &cart, nil
}

// SaveIfVersion persists the cart only if the stored version still equals
// expectedVersion. An absent slot counts as version 0.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := 0
	if data, ok := r.carts[cart.UserID]; ok {
		var stored domain.Cart
		if err := json.Unmarshal(data, &stored); err == nil {
			current = stored.Version
		}
	}
	if current != expectedVersion {
		return false, nil
	}

	cart.Version = expectedVersion + 1
	data, err := json.Marshal(cart)
	if err != nil {
		cart.Version = expectedVersion
		return false, fmt.Errorf("marshal cart: %w", err)
	}
	r.carts[cart.UserID] = data
	return true, nil
}

// Delete removes a cart by user ID. Deleting an absent slot is a no-op.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	delete(r.carts, userID)
	r.mu.Unlock()
	return nil
}

// SetRaw stores a raw blob in the user's slot, bypassing marshalling.
// Test hook for exercising corrupt-data handling.
func (r *CartRepository) SetRaw(userID string, data []byte) {
	r.mu.Lock()
	r.carts[userID] = data
	r.mu.Unlock()
}
