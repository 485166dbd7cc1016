package apikey

import (
	"context"
	"time"

	"ai-shopping-gateway/internal/domain"
)

// CreateInput carries the columns set on insert. SecretHash is the sha256
// hex digest of the plaintext secret; the plaintext never reaches storage.
type CreateInput struct {
	Label          string
	SecretHash     string
	Tier           domain.Tier
	RateLimitRead  int
	RateLimitWrite int
}

// Repository persists API credentials.
type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.APIKey, error)
	GetBySecretHash(ctx context.Context, hash string) (*domain.APIKey, error)
	List(ctx context.Context) ([]domain.APIKey, error)
	TouchLastUsed(ctx context.Context, id int64, at time.Time) error
	Revoke(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
