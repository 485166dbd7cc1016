package apikey

import (
	"context"
	"errors"
	"time"

	"ai-shopping-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const keyColumns = `id, label, secret_hash, permissions, rate_limit_read, rate_limit_write, is_revoked, last_used, created_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.APIKey, error) {
	const q = `
INSERT INTO api_keys (label, secret_hash, permissions, rate_limit_read, rate_limit_write)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + keyColumns
	row := r.pool.QueryRow(ctx, q, in.Label, in.SecretHash, string(in.Tier), in.RateLimitRead, in.RateLimitWrite)
	key, err := scanKey(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return key, nil
}

func (r *postgresRepo) GetBySecretHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM api_keys WHERE secret_hash = $1 LIMIT 1`
	key, err := scanKey(r.pool.QueryRow(ctx, q, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return key, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.APIKey, error) {
	const q = `SELECT ` + keyColumns + ` FROM api_keys ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.APIKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *key)
	}
	return out, rows.Err()
}

func (r *postgresRepo) TouchLastUsed(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_keys SET last_used = $1 WHERE id = $2`, at, id)
	return err
}

func (r *postgresRepo) Revoke(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE api_keys SET is_revoked = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanKey(row pgx.Row) (*domain.APIKey, error) {
	var key domain.APIKey
	var tier string
	var lastUsed *time.Time
	if err := row.Scan(
		&key.ID,
		&key.Label,
		&key.SecretHash,
		&tier,
		&key.RateLimitRead,
		&key.RateLimitWrite,
		&key.Revoked,
		&lastUsed,
		&key.CreatedAt,
	); err != nil {
		return nil, err
	}
	key.Tier = domain.Tier(tier)
	key.LastUsed = lastUsed
	return &key, nil
}
