package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-shopping-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, sess domain.CartSession) error {
	cartData, err := domain.MarshalCartData(sess.Items, sess.Coupons)
	if err != nil {
		return err
	}
	buyerData, err := json.Marshal(sess.Buyer)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO cart_sessions (token, api_key_id, cart_data, customer_data, expires_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err = r.pool.Exec(ctx, q, sess.Token, sess.APIKeyID, cartData, buyerData, sess.ExpiresAt)
	return err
}

func (r *postgresRepo) Get(ctx context.Context, token string) (*domain.CartSession, error) {
	const q = `
SELECT token, api_key_id, cart_data, customer_data, expires_at, created_at, updated_at
FROM cart_sessions
WHERE token = $1 AND expires_at > now()
`
	var sess domain.CartSession
	var cartData, buyerData []byte
	err := r.pool.QueryRow(ctx, q, token).Scan(
		&sess.Token,
		&sess.APIKeyID,
		&cartData,
		&buyerData,
		&sess.ExpiresAt,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	sess.Items, sess.Coupons, err = domain.UnmarshalCartData(cartData)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(buyerData, &sess.Buyer); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *postgresRepo) SaveCart(ctx context.Context, token string, items []domain.LineItem, coupons []string, expiresAt time.Time) error {
	cartData, err := domain.MarshalCartData(items, coupons)
	if err != nil {
		return err
	}
	const q = `
UPDATE cart_sessions
SET cart_data = $2, expires_at = $3, updated_at = now()
WHERE token = $1 AND expires_at > now()
`
	cmd, err := r.pool.Exec(ctx, q, token, cartData, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) SaveBuyer(ctx context.Context, token string, buyer domain.BuyerContext, expiresAt time.Time) error {
	buyerData, err := json.Marshal(buyer)
	if err != nil {
		return err
	}
	const q = `
UPDATE cart_sessions
SET customer_data = $2, expires_at = $3, updated_at = now()
WHERE token = $1 AND expires_at > now()
`
	cmd, err := r.pool.Exec(ctx, q, token, buyerData, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_sessions WHERE token = $1`, token)
	return err
}

func (r *postgresRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM cart_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
