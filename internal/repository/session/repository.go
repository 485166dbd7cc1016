package session

import (
	"context"
	"time"

	"ai-shopping-gateway/internal/domain"
)

// Repository persists cart sessions keyed by token. Get must treat an
// expired row exactly like a missing one.
type Repository interface {
	Create(ctx context.Context, sess domain.CartSession) error
	Get(ctx context.Context, token string) (*domain.CartSession, error)
	SaveCart(ctx context.Context, token string, items []domain.LineItem, coupons []string, expiresAt time.Time) error
	SaveBuyer(ctx context.Context, token string, buyer domain.BuyerContext, expiresAt time.Time) error
	// Delete is idempotent: deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes only rows whose expiry has already passed;
	// safe to run concurrently with any other operation.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
