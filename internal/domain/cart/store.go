package cart

import (
	"context"

	"github.com/google/uuid"
)

// Store keeps one cart per user for the lifetime of a session. Load returns an
// empty cart when none is stored.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}
