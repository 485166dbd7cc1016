package domain

import "time"

// OpClass partitions operations for permission checks and rate buckets.
type OpClass string

const (
	ClassRead  OpClass = "read"
	ClassWrite OpClass = "write"
)

// Tier is the permission level attached to an API credential.
type Tier string

const (
	TierRead      Tier = "read"
	TierReadWrite Tier = "read_write"
	TierFull      Tier = "full"
)

// Valid reports whether t is one of the closed set of tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierRead, TierReadWrite, TierFull:
		return true
	}
	return false
}

// Authorizes reports whether the tier permits the given operation class.
// full and read_write authorize both classes; read authorizes only reads.
func (t Tier) Authorizes(class OpClass) bool {
	switch t {
	case TierFull, TierReadWrite:
		return class == ClassRead || class == ClassWrite
	case TierRead:
		return class == ClassRead
	}
	return false
}

// APIKey is a caller credential. The secret is stored only as a one-way
// hash; the plaintext is shown to the operator exactly once at creation.
type APIKey struct {
	ID             int64      `json:"id"`
	Label          string     `json:"label"`
	SecretHash     string     `json:"-"`
	Tier           Tier       `json:"permissions"`
	RateLimitRead  int        `json:"rate_limit_read"`
	RateLimitWrite int        `json:"rate_limit_write"`
	Revoked        bool       `json:"is_revoked"`
	LastUsed       *time.Time `json:"last_used,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RateOverride returns the per-credential limit for a class, 0 when unset.
func (k *APIKey) RateOverride(class OpClass) int {
	if class == ClassWrite {
		return k.RateLimitWrite
	}
	return k.RateLimitRead
}
