package sweeplock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ttl), mr
}

func TestAcquireIsExclusive(t *testing.T) {
	locker, _ := newLocker(t, time.Minute)
	ctx := context.Background()

	lease, ok, err := locker.Acquire(ctx, "no_activity")
	if err != nil || !ok {
		t.Fatalf("first acquire must succeed: %v %v", ok, err)
	}

	_, ok, err = locker.Acquire(ctx, "no_activity")
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatalf("second acquire must be refused while the lease is held")
	}

	// A different sweep is an independent lease.
	_, ok, err = locker.Acquire(ctx, "dump_to_cold_call")
	if err != nil || !ok {
		t.Fatalf("unrelated sweep must acquire: %v %v", ok, err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	_, ok, err = locker.Acquire(ctx, "no_activity")
	if err != nil || !ok {
		t.Fatalf("acquire after release must succeed: %v %v", ok, err)
	}
}

func TestStaleHolderCannotReleaseNewLease(t *testing.T) {
	locker, mr := newLocker(t, time.Minute)
	ctx := context.Background()

	stale, ok, err := locker.Acquire(ctx, "no_activity")
	if err != nil || !ok {
		t.Fatalf("acquire: %v %v", ok, err)
	}

	// The holder stalls past its ttl and another replica takes over.
	mr.FastForward(2 * time.Minute)
	_, ok, err = locker.Acquire(ctx, "no_activity")
	if err != nil || !ok {
		t.Fatalf("acquire after expiry must succeed: %v %v", ok, err)
	}

	if err := stale.Release(ctx); err != nil {
		t.Fatalf("stale release must be a no-op, not an error: %v", err)
	}
	_, ok, err = locker.Acquire(ctx, "no_activity")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatalf("stale holder must not free the new lease")
	}
}
