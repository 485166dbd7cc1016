package ratebucket

import (
	"context"
	"errors"

	"ai-shopping-gateway/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Get(ctx context.Context, apiKeyID int64, class string) (*Bucket, error) {
	const q = `
SELECT api_key_id, class, tokens, last_refill
FROM rate_buckets
WHERE api_key_id = $1 AND class = $2
`
	var b Bucket
	if err := r.pool.QueryRow(ctx, q, apiKeyID, class).Scan(&b.APIKeyID, &b.Class, &b.Tokens, &b.LastRefill); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *postgresRepo) Create(ctx context.Context, b Bucket) (bool, error) {
	const q = `
INSERT INTO rate_buckets (api_key_id, class, tokens, last_refill)
VALUES ($1, $2, $3, $4)
ON CONFLICT (api_key_id, class) DO NOTHING
`
	cmd, err := r.pool.Exec(ctx, q, b.APIKeyID, b.Class, b.Tokens, b.LastRefill)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// ConsumeOne performs refill and consume in one statement; the WHERE guard
// keeps the row from going negative under concurrent consumers.
func (r *postgresRepo) ConsumeOne(ctx context.Context, apiKeyID int64, class string, limit, refill int, refillAt time.Time) (bool, error) {
	const q = `
UPDATE rate_buckets
SET tokens = LEAST($3, tokens + $4) - 1,
    last_refill = CASE WHEN $4 > 0 THEN $5 ELSE last_refill END
WHERE api_key_id = $1 AND class = $2 AND LEAST($3, tokens + $4) > 0
`
	cmd, err := r.pool.Exec(ctx, q, apiKeyID, class, limit, refill, refillAt)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *postgresRepo) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM rate_buckets WHERE last_refill < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
