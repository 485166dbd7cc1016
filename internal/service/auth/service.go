// Package auth is the credential gate: Bearer secrets are looked up by
// one-way hash, checked for revocation, and authorized against a closed
// permission tier.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"ai-shopping-gateway/internal/domain"
	keyrepo "ai-shopping-gateway/internal/repository/apikey"
)

const (
	secretPrefix = "ais_"
	secretLen    = 48
)

type Service struct {
	repo   keyrepo.Repository
	logger *log.Logger
	now    func() time.Time
}

func New(repo keyrepo.Repository, logger *log.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// GeneratedKey is returned from Generate. Secret is the only place the
// plaintext ever appears; it cannot be recovered later.
type GeneratedKey struct {
	Key    domain.APIKey
	Secret string
}

// Generate mints a new credential and stores only the secret's hash.
func (s *Service) Generate(ctx context.Context, label string, tier domain.Tier, rateRead, rateWrite int) (*GeneratedKey, error) {
	if !tier.Valid() {
		tier = domain.TierRead
	}
	secret, err := randomSecret()
	if err != nil {
		return nil, fmt.Errorf("mint secret: %w", err)
	}
	key, err := s.repo.Create(ctx, keyrepo.CreateInput{
		Label:          strings.TrimSpace(label),
		SecretHash:     HashSecret(secret),
		Tier:           tier,
		RateLimitRead:  rateRead,
		RateLimitWrite: rateWrite,
	})
	if err != nil {
		return nil, err
	}
	return &GeneratedKey{Key: *key, Secret: secret}, nil
}

// Authenticate resolves a Bearer secret to its credential. Unknown and
// revoked secrets both report ErrUnauthenticated. The last-used touch is
// best-effort: a failure is logged, never surfaced.
func (s *Service) Authenticate(ctx context.Context, secret string) (*domain.APIKey, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, domain.ErrUnauthenticated
	}
	key, err := s.repo.GetBySecretHash(ctx, HashSecret(secret))
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	if key.Revoked {
		return nil, domain.ErrUnauthenticated
	}
	if err := s.repo.TouchLastUsed(ctx, key.ID, s.now().UTC()); err != nil && s.logger != nil {
		s.logger.Printf("touch last_used for key %d: %v", key.ID, err)
	}
	return key, nil
}

// Authorize checks the credential's tier against the operation class and
// names both tiers in the denial so the caller can self-correct.
func (s *Service) Authorize(key *domain.APIKey, class domain.OpClass) error {
	if key == nil {
		return domain.ErrUnauthenticated
	}
	if !key.Tier.Authorizes(class) {
		return fmt.Errorf("%w: this operation requires %q permission, credential has %q", domain.ErrForbidden, class, key.Tier)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.APIKey, error) {
	return s.repo.List(ctx)
}

func (s *Service) Revoke(ctx context.Context, id int64) error {
	return s.repo.Revoke(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// HashSecret returns the hex sha256 digest used for storage and lookup.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomSecret() (string, error) {
	buf := make([]byte, secretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = secretAlphabet[int(b)%len(secretAlphabet)]
	}
	return secretPrefix + string(buf), nil
}
