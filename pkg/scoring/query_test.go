package scoring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/OFFIS-RIT/ris/pkg/oracle"
)

func TestQueryBacksOffBetweenAttempts(t *testing.T) {
	q := querier{timeout: time.Second, retries: 2, backoff: 5 * time.Millisecond}
	calls := 0
	start := time.Now()
	_, err := query(context.Background(), q, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errFlaky{}
	})
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	// 5ms + 10ms between the three attempts
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("expected at least 15ms of backoff, got %s", elapsed)
	}
}

func TestQueryDoesNotRetryUnknownEntity(t *testing.T) {
	q := querier{timeout: time.Second, retries: 3, backoff: time.Hour}
	calls := 0
	_, err := query(context.Background(), q, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("%w: x", oracle.ErrUnknownEntity)
	})
	if !errors.Is(err, oracle.ErrUnknownEntity) {
		t.Fatalf("expected ErrUnknownEntity, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestOptionsQuerier(t *testing.T) {
	opts := DefaultOptions()
	q := opts.querier()
	if q.timeout != opts.QueryTimeout || q.retries != opts.QueryRetries || q.backoff != opts.QueryBackoff {
		t.Fatalf("expected querier to mirror options, got %+v", q)
	}
	if opts.QueryBackoff <= 0 {
		t.Fatalf("expected a positive default backoff, got %s", opts.QueryBackoff)
	}
}
