// Package ratelimit enforces per-credential, per-class token buckets with
// lazy minute-granularity refill. Buckets live in postgres so every gateway
// replica shares one budget per credential.
package ratelimit

import (
	"context"
	"errors"
	"time"

	"ai-shopping-gateway/internal/domain"
	bucketrepo "ai-shopping-gateway/internal/repository/ratebucket"
)

const refillWindow = time.Minute

// Limits are the store-wide defaults, overridable per credential.
type Limits struct {
	Read  int
	Write int
}

// Result is the outcome of one rate check. When Limit is 0 the credential
// is unlimited and the remaining fields are meaningless.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type Service struct {
	repo     bucketrepo.Repository
	defaults Limits
	now      func() time.Time
}

func New(repo bucketrepo.Repository, defaults Limits) *Service {
	return &Service{repo: repo, defaults: defaults, now: time.Now}
}

// Check spends one token from the credential's bucket for the given class.
//
/// A fresh bucket is seeded with limit-1 tokens: the request that creates
// it counts against the budget. Refill is lazy, whole elapsed windows at
// a time, capped at the limit. A denial reports when the next window opens.
func (s *Service) Check(ctx context.Context, key *domain.APIKey, class domain.OpClass) (*Result, error) {
	limit := key.RateOverride(class)
	if limit <= 0 {
		limit = s.defaultFor(class)
	}
	if limit <= 0 {
		return &Result{Allowed: true, Limit: 0}, nil
	}

	now := s.now().UTC()

	b, err := s.repo.Get(ctx, key.ID, string(class))
	if errors.Is(err, domain.ErrNotFound) {
		created, err := s.repo.Create(ctx, bucketrepo.Bucket{
			APIKeyID:   key.ID,
			Class:      string(class),
			Tokens:     limit - 1,
			LastRefill: now,
		})
		if err != nil {
			return nil, err
		}
		if created {
			return &Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: now.Add(refillWindow)}, nil
		}
		// Lost the creation race; the other request's row is authoritative.
		if b, err = s.repo.Get(ctx, key.ID, string(class)); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	elapsed := int(now.Sub(b.LastRefill) / refillWindow)
	refill := 0
	if elapsed > 0 {
		refill = elapsed * limit
	}
	tokens := b.Tokens + refill
	if tokens > limit {
		tokens = limit
	}
	if tokens <= 0 {
		return &Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: b.LastRefill.Add(refillWindow)}, nil
	}

	ok, err := s.repo.ConsumeOne(ctx, key.ID, string(class), limit, refill, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent request spent the last token between our read and
		// the guarded update.
		return &Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: b.LastRefill.Add(refillWindow)}, nil
	}
	return &Result{Allowed: true, Limit: limit, Remaining: tokens - 1, ResetAt: now.Add(refillWindow)}, nil
}

// PurgeIdle drops buckets untouched for longer than maxIdle.
func (s *Service) PurgeIdle(ctx context.Context, maxIdle time.Duration) (int64, error) {
	return s.repo.DeleteIdle(ctx, s.now().UTC().Add(-maxIdle))
}

func (s *Service) defaultFor(class domain.OpClass) int {
	if class == domain.ClassWrite {
		return s.defaults.Write
	}
	return s.defaults.Read
}
