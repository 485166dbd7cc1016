package ratebucket

import (
	"context"
	"time"
)

// Bucket is one (credential, operation-class) token bucket row.
type Bucket struct {
	APIKeyID   int64
	Class      string
	Tokens     int
	LastRefill time.Time
}

// Repository persists rate buckets. ConsumeOne must be atomic with respect
// to the read-modify-write of the token count: two concurrent requests may
// not both spend the last token.
type Repository interface {
	Get(ctx context.Context, apiKeyID int64, class string) (*Bucket, error)
	// Create inserts a new bucket; returns false when the row already
	// exists (a concurrent request created it first).
	Create(ctx context.Context, b Bucket) (bool, error)
	// ConsumeOne refills the bucket by `refill` tokens (capped at limit)
	// and consumes one, in a single guarded statement. Returns false when
	// the bucket had no token left after refill.
	ConsumeOne(ctx context.Context, apiKeyID int64, class string, limit, refill int, refillAt time.Time) (bool, error)
	// DeleteIdle removes buckets whose last refill is before cutoff.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error)
}
