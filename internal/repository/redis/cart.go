package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/araliya/storefront/pkg/errors"

	"github.com/araliya/storefront/internal/domain"
	"github.com/araliya/storefront/internal/repository"
)

const keyPrefix = "cart:"

// saveIfVersionScript atomically compares the version stored inside the
// current cart blob with the expected one and overwrites the slot only on a
// match. An absent or undecodable slot counts as version 0, so a corrupt
// blob is overwritten rather than wedging the cart forever.
var saveIfVersionScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
local ver = 0
if cur then
  local ok, decoded = pcall(cjson.decode, cur)
  if ok and type(decoded) == 'table' and decoded['version'] then
    ver = decoded['version']
  end
end
if ver ~= tonumber(ARGV[2]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by user ID from Redis. A blob that fails to decode
// is reported as repository.ErrCorruptCart so the caller can degrade to an
// empty cart.
func (r *CartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	key := keyPrefix + userID

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("cart", userID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("%w: %s", repository.ErrCorruptCart, err)
	}

	return &cart, nil
}

// SaveIfVersion persists the cart only if the stored version still equals
// expectedVersion. On success the stored version becomes expectedVersion+1.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error) {
	key := keyPrefix + cart.UserID

	cart.Version = expectedVersion + 1
	data, err := json.Marshal(cart)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	res, err := saveIfVersionScript.Run(ctx, r.client,
		[]string{key},
		string(data), expectedVersion, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis save cart if version: %w", err)
	}
	if res != 1 {
		// Restore the caller's view so a retry starts from a clean state.
		cart.Version = expectedVersion
		return false, nil
	}

	return true, nil
}

// Delete removes a cart from Redis by user ID.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	key := keyPrefix + userID

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}

	return nil
}
