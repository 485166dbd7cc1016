// Package pricing turns a stored cart session into authoritative totals.
// Totals are never persisted with the session: every read reprices against
// the live catalog, so price changes, stock changes, and coupon expiry are
// reflected the moment they happen.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ai-shopping-gateway/internal/commerce"
	"ai-shopping-gateway/internal/domain"
)

type Service struct {
	engine  commerce.Engine
	timeout time.Duration
	logger  *log.Logger
}

func New(engine commerce.Engine, timeout time.Duration, logger *log.Logger) *Service {
	return &Service{engine: engine, timeout: timeout, logger: logger}
}

// PriceSession prices the session's current contents in exactly one engine
// pricing pass. Lines whose product has vanished, gone out of stock, or
// become unpurchasable are dropped from the result (the stored session is
// untouched); coupons that no longer validate are ignored the same way.
// Engine failures and timeouts surface as domain.ErrUpstream.
func (s *Service) PriceSession(ctx context.Context, sess *domain.CartSession) (*domain.Totals, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items := make([]domain.LineItem, 0, len(sess.Items))
	for _, it := range sess.Items {
		p, err := s.engine.FindProduct(ctx, it.ProductID, it.VariationID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logf("pricing: dropping line %s, product %d gone", it.Key, it.ProductID)
				continue
			}
			return nil, upstream(err)
		}
		if !p.Purchasable || !p.InStock {
			s.logf("pricing: dropping line %s, product %d not sellable", it.Key, it.ProductID)
			continue
		}
		items = append(items, it)
	}

	coupons := make([]string, 0, len(sess.Coupons))
	for _, code := range sess.Coupons {
		ok, err := s.engine.ValidateCoupon(ctx, code)
		if err != nil {
			return nil, upstream(err)
		}
		if !ok {
			s.logf("pricing: ignoring coupon %q, no longer valid", code)
			continue
		}
		coupons = append(coupons, code)
	}

	totals, err := s.engine.PriceCart(ctx, commerce.PriceInput{
		Items:   items,
		Buyer:   sess.Buyer,
		Coupons: coupons,
	})
	if err != nil {
		return nil, upstream(err)
	}
	return totals, nil
}

func (s *Service) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

func upstream(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: commerce engine timed out", domain.ErrUpstream)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
}
