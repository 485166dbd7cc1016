// Package session manages token-addressed cart sessions: minting, line-item
// mutation, coupon and buyer-context updates, and expiry. Every mutation
// slides the session's expiry forward by the configured TTL.
package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"ai-shopping-gateway/internal/domain"
	sessrepo "ai-shopping-gateway/internal/repository/session"
)

const tokenLen = 48

type Service struct {
	repo sessrepo.Repository
	ttl  time.Duration
	now  func() time.Time
}

func New(repo sessrepo.Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl, now: time.Now}
}

// Create mints a fresh session bound to the creating credential.
func (s *Service) Create(ctx context.Context, apiKeyID int64) (*domain.CartSession, error) {
	token, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}
	now := s.now().UTC()
	sess := domain.CartSession{
		Token:     token,
		APIKeyID:  apiKeyID,
		Items:     []domain.LineItem{},
		Coupons:   []string{},
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Get resolves a token. Expired sessions are indistinguishable from absent
// ones: both return domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, token string) (*domain.CartSession, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.Get(ctx, token)
}

// AddItem appends a line or, when the derived item key already exists in the
// cart, increments that line's quantity.
func (s *Service) AddItem(ctx context.Context, token string, productID, variationID int64, options map[string]string, quantity int) (*domain.CartSession, error) {
	if productID <= 0 {
		return nil, domain.Validationf("product_id", "a positive product id is required")
	}
	if quantity <= 0 {
		return nil, domain.Validationf("quantity", "quantity must be at least 1")
	}
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	key := domain.ItemKey(productID, variationID, options)
	found := false
	for i := range sess.Items {
		if sess.Items[i].Key == key {
			sess.Items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		sess.Items = append(sess.Items, domain.LineItem{
			Key:         key,
			ProductID:   productID,
			VariationID: variationID,
			Options:     options,
			Quantity:    quantity,
		})
	}
	return s.saveCart(ctx, sess)
}

// ReplaceItems swaps the entire line-item set, rederiving every key.
func (s *Service) ReplaceItems(ctx context.Context, token string, items []domain.LineItem) (*domain.CartSession, error) {
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	replaced := make([]domain.LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return nil, domain.Validationf("product_id", "a positive product id is required")
		}
		if it.Quantity <= 0 {
			continue
		}
		it.Key = domain.ItemKey(it.ProductID, it.VariationID, it.Options)
		replaced = append(replaced, it)
	}
	sess.Items = replaced
	return s.saveCart(ctx, sess)
}

// UpdateItemQuantity sets an existing line's quantity; zero removes the line.
func (s *Service) UpdateItemQuantity(ctx context.Context, token, itemKey string, quantity int) (*domain.CartSession, error) {
	if quantity < 0 {
		return nil, domain.Validationf("quantity", "quantity cannot be negative")
	}
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range sess.Items {
		if sess.Items[i].Key == itemKey {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("cart item %q: %w", itemKey, domain.ErrNotFound)
	}
	if quantity == 0 {
		sess.Items = append(sess.Items[:idx], sess.Items[idx+1:]...)
	} else {
		sess.Items[idx].Quantity = quantity
	}
	return s.saveCart(ctx, sess)
}

// RemoveItem drops a line by key.
func (s *Service) RemoveItem(ctx context.Context, token, itemKey string) (*domain.CartSession, error) {
	return s.UpdateItemQuantity(ctx, token, itemKey, 0)
}

// ApplyCoupon records a code on the session. Codes are a unique set;
// re-applying an existing code is a no-op that still slides expiry.
func (s *Service) ApplyCoupon(ctx context.Context, token, code string) (*domain.CartSession, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.Validationf("coupon", "a coupon code is required")
	}
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	present := false
	for _, c := range sess.Coupons {
		if strings.EqualFold(c, code) {
			present = true
			break
		}
	}
	if !present {
		sess.Coupons = append(sess.Coupons, code)
	}
	return s.saveCart(ctx, sess)
}

// RemoveCoupon drops a code from the session, matching case-insensitively.
func (s *Service) RemoveCoupon(ctx context.Context, token, code string) (*domain.CartSession, error) {
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	kept := sess.Coupons[:0]
	removed := false
	for _, c := range sess.Coupons {
		if strings.EqualFold(c, code) {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return nil, fmt.Errorf("coupon %q: %w", code, domain.ErrNotFound)
	}
	sess.Coupons = kept
	return s.saveCart(ctx, sess)
}

// BuyerPatch is a partial buyer-context update; nil fields are left alone.
type BuyerPatch struct {
	BillingAddress  *domain.Address
	ShippingAddress *domain.Address
	ShippingMethod  *string
	PaymentMethod   *string
}

// SetBuyer merges a patch into the session's buyer context.
func (s *Service) SetBuyer(ctx context.Context, token string, patch BuyerPatch) (*domain.CartSession, error) {
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if patch.BillingAddress != nil {
		sess.Buyer.BillingAddress = patch.BillingAddress
	}
	if patch.ShippingAddress != nil {
		sess.Buyer.ShippingAddress = patch.ShippingAddress
	}
	if patch.ShippingMethod != nil {
		sess.Buyer.ShippingMethod = *patch.ShippingMethod
	}
	if patch.PaymentMethod != nil {
		sess.Buyer.PaymentMethod = *patch.PaymentMethod
	}
	sess.ExpiresAt = s.now().UTC().Add(s.ttl)
	if err := s.repo.SaveBuyer(ctx, sess.Token, sess.Buyer, sess.ExpiresAt); err != nil {
		return nil, err
	}
	return sess, nil
}

// EmptyCart clears items and coupons but keeps the session and its buyer
// context alive.
func (s *Service) EmptyCart(ctx context.Context, token string) (*domain.CartSession, error) {
	sess, err := s.repo.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	sess.Items = []domain.LineItem{}
	sess.Coupons = []string{}
	return s.saveCart(ctx, sess)
}

// Delete removes a session. Deleting a missing or expired token succeeds.
func (s *Service) Delete(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}

// SweepExpired removes every session whose expiry has passed.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().UTC())
}

func (s *Service) saveCart(ctx context.Context, sess *domain.CartSession) (*domain.CartSession, error) {
	sess.ExpiresAt = s.now().UTC().Add(s.ttl)
	sess.UpdatedAt = s.now().UTC()
	if err := s.repo.SaveCart(ctx, sess.Token, sess.Items, sess.Coupons, sess.ExpiresAt); err != nil {
		return nil, err
	}
	return sess, nil
}

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomToken() (string, error) {
	buf := make([]byte, tokenLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(buf), nil
}
