package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/cart"
)

type cartEntry struct {
	cart      cart.Cart
	expiresAt time.Time
}

// InMemoryCartStore keeps carts in process memory. Carts are lost on restart
// and are not shared between instances.
type InMemoryCartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]cartEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewInMemoryCartStore creates an in-memory cart store
func NewInMemoryCartStore(ttl time.Duration) *InMemoryCartStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &InMemoryCartStore{
		carts: make(map[uuid.UUID]cartEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Load returns a copy of the stored cart, or an empty one
func (s *InMemoryCartStore) Load(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[userID]
	if !ok || s.now().After(e.expiresAt) {
		delete(s.carts, userID)
		return cart.New(userID), nil
	}
	c := copyCart(e.cart)
	return &c, nil
}

// Save stores a copy of the cart and refreshes its expiry
func (s *InMemoryCartStore) Save(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[c.UserID] = cartEntry{
		cart:      copyCart(*c),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Delete removes the cart
func (s *InMemoryCartStore) Delete(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, userID)
	return nil
}

func copyCart(c cart.Cart) cart.Cart {
	lines := make([]cart.Line, len(c.Lines))
	copy(lines, c.Lines)
	c.Lines = lines
	return c
}

var _ cart.Store = (*InMemoryCartStore)(nil)
