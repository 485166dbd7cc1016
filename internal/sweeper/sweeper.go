// Package sweeper runs the periodic housekeeping pass: expired cart
// sessions and long-idle rate buckets. Deletes are filter-by-expiry only,
// so the pass is safe to interleave with any concurrent request.
package sweeper

import (
	"context"
	"log"
	"time"

	"ai-shopping-gateway/internal/service/ratelimit"
	"ai-shopping-gateway/internal/service/session"
)

const bucketMaxIdle = 24 * time.Hour

type Sweeper struct {
	sessions *session.Service
	rate     *ratelimit.Service
	interval time.Duration
	logger   *log.Logger
}

func New(sessions *session.Service, rate *ratelimit.Service, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{sessions: sessions, rate: rate, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sessions, err := s.sessions.SweepExpired(ctx)
	if err != nil {
		s.logger.Printf("sweep expired sessions: %v", err)
	}
	buckets, err := s.rate.PurgeIdle(ctx, bucketMaxIdle)
	if err != nil {
		s.logger.Printf("purge idle rate buckets: %v", err)
	}
	if sessions > 0 || buckets > 0 {
		s.logger.Printf("sweep removed %d expired sessions, %d idle rate buckets", sessions, buckets)
	}
}
