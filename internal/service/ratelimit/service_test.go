package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ai-shopping-gateway/internal/domain"
	bucketrepo "ai-shopping-gateway/internal/repository/ratebucket"
)

// memBuckets mirrors the guarded-update semantics of the postgres repo.
type memBuckets struct {
	rows map[string]*bucketrepo.Bucket
}

func newMemBuckets() *memBuckets {
	return &memBuckets{rows: map[string]*bucketrepo.Bucket{}}
}

func bkey(id int64, class string) string {
	return fmt.Sprintf("%d/%s", id, class)
}

func (m *memBuckets) Get(ctx context.Context, apiKeyID int64, class string) (*bucketrepo.Bucket, error) {
	b, ok := m.rows[bkey(apiKeyID, class)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memBuckets) Create(ctx context.Context, b bucketrepo.Bucket) (bool, error) {
	k := bkey(b.APIKeyID, b.Class)
	if _, ok := m.rows[k]; ok {
		return false, nil
	}
	m.rows[k] = &b
	return true, nil
}

func (m *memBuckets) ConsumeOne(ctx context.Context, apiKeyID int64, class string, limit, refill int, refillAt time.Time) (bool, error) {
	b, ok := m.rows[bkey(apiKeyID, class)]
	if !ok {
		return false, nil
	}
	tokens := b.Tokens + refill
	if tokens > limit {
		tokens = limit
	}
	if tokens <= 0 {
		return false, nil
	}
	b.Tokens = tokens - 1
	if refill > 0 {
		b.LastRefill = refillAt
	}
	return true, nil
}

func (m *memBuckets) DeleteIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for k, b := range m.rows {
		if b.LastRefill.Before(cutoff) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func testKey(read, write int) *domain.APIKey {
	return &domain.APIKey{ID: 7, Tier: domain.TierFull, RateLimitRead: read, RateLimitWrite: write}
}

func TestCheckAllowsExactlyLimitPerWindow(t *testing.T) {
	svc := New(newMemBuckets(), Limits{Read: 3, Write: 3})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	key := testKey(0, 0)

	for i := 0; i < 3; i++ {
		res, err := svc.Check(context.Background(), key, domain.ClassRead)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
		if want := 3 - 1 - i; res.Remaining != want {
			t.Fatalf("request %d remaining = %d, want %d", i+1, res.Remaining, want)
		}
	}

	res, err := svc.Check(context.Background(), key, domain.ClassRead)
	if err != nil {
		t.Fatalf("check over limit: %v", err)
	}
	if res.Allowed {
		t.Fatal("request 4 allowed, want denied")
	}
	if want := now.Add(time.Minute); !res.ResetAt.Equal(want) {
		t.Fatalf("reset at %v, want %v", res.ResetAt, want)
	}
}

func TestCheckRefillsAfterWindow(t *testing.T) {
	svc := New(newMemBuckets(), Limits{Read: 2, Write: 2})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	key := testKey(0, 0)

	for i := 0; i < 2; i++ {
		if res, _ := svc.Check(context.Background(), key, domain.ClassRead); !res.Allowed {
			t.Fatalf("warmup request %d denied", i+1)
		}
	}
	if res, _ := svc.Check(context.Background(), key, domain.ClassRead); res.Allowed {
		t.Fatal("exhausted bucket allowed a request")
	}

	now = now.Add(61 * time.Second)
	res, err := svc.Check(context.Background(), key, domain.ClassRead)
	if err != nil {
		t.Fatalf("check after refill: %v", err)
	}
	if !res.Allowed {
		t.Fatal("refilled bucket denied a request")
	}
	if res.Remaining != 1 {
		t.Fatalf("remaining after refill = %d, want 1 (refill caps at limit)", res.Remaining)
	}
}

func TestCheckZeroLimitIsUnlimited(t *testing.T) {
	repo := newMemBuckets()
	svc := New(repo, Limits{Read: 0, Write: 0})
	key := testKey(0, 0)

	for i := 0; i < 500; i++ {
		res, err := svc.Check(context.Background(), key, domain.ClassWrite)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !res.Allowed || res.Limit != 0 {
			t.Fatalf("unlimited check %d: %+v", i, res)
		}
	}
	if len(repo.rows) != 0 {
		t.Fatal("unlimited credential created a bucket row")
	}
}

func TestCheckCredentialOverrideWins(t *testing.T) {
	svc := New(newMemBuckets(), Limits{Read: 100, Write: 100})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	key := testKey(0, 1) // one write per minute

	res, err := svc.Check(context.Background(), key, domain.ClassWrite)
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if !res.Allowed || res.Limit != 1 || res.Remaining != 0 {
		t.Fatalf("first write result = %+v", res)
	}
	if res, _ := svc.Check(context.Background(), key, domain.ClassWrite); res.Allowed {
		t.Fatal("second write allowed despite override of 1")
	}
}

func TestCheckClassesHaveSeparateBuckets(t *testing.T) {
	svc := New(newMemBuckets(), Limits{Read: 1, Write: 1})
	key := testKey(0, 0)

	if res, _ := svc.Check(context.Background(), key, domain.ClassRead); !res.Allowed {
		t.Fatal("first read denied")
	}
	if res, _ := svc.Check(context.Background(), key, domain.ClassRead); res.Allowed {
		t.Fatal("second read allowed")
	}
	// Exhausted read budget must not affect writes.
	if res, _ := svc.Check(context.Background(), key, domain.ClassWrite); !res.Allowed {
		t.Fatal("write denied after read exhaustion")
	}
}

func TestPurgeIdle(t *testing.T) {
	repo := newMemBuckets()
	svc := New(repo, Limits{Read: 5, Write: 5})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	key := testKey(0, 0)

	if _, err := svc.Check(context.Background(), key, domain.ClassRead); err != nil {
		t.Fatal(err)
	}
	now = now.Add(48 * time.Hour)
	n, err := svc.PurgeIdle(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d buckets, want 1", n)
	}
}
