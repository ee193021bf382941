package repository

import (
	"context"
	"errors"

	"github.com/araliya/storefront/internal/domain"
)

// ErrCorruptCart signals that the persisted cart blob could not be decoded.
// Callers treat the slot as empty rather than surfacing the failure.
var ErrCorruptCart = errors.New("cart data is corrupt")

// CartRepository defines the interface for cart persistence operations.
// The cart occupies a single slot per user and is overwritten wholesale.
type CartRepository interface {
	// Get retrieves a cart by its user ID.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// SaveIfVersion persists the cart only if the stored version still equals
	// expectedVersion, incrementing the version on success. It returns false
	// when another writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// Delete removes a cart from the store by the user ID.
	Delete(ctx context.Context, userID string) error
}
