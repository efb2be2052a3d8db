// Package sweeplock provides a redis lease so at most one scheduler replica
// runs a given sweep at a time.
package sweeplock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if the caller still owns it, so a
// slow holder cannot free a lease a newer holder re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker hands out sweep leases backed by redis SET NX.
type Locker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// New creates a locker. The ttl bounds how long a crashed holder can block
// the sweep; it should comfortably exceed one sweep run.
func New(client redis.UniversalClient, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

// Lease is one held lock.
type Lease struct {
	locker *Locker
	key    string
	token  string
}

// Acquire tries to take the lease for a sweep. ok=false means another
// holder has it; the caller skips this tick, it never queues.
func (l *Locker) Acquire(ctx context.Context, sweep string) (*Lease, bool, error) {
	key := "sweeplock:" + sweep
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{locker: l, key: key, token: token}, true, nil
}

// Release frees the lease if still owned.
func (le *Lease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, le.locker.client, []string{le.key}, le.token).Err()
}
