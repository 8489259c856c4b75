package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work that shares a key across server replicas,
// such as two submissions of the same idempotent run request.
type DistributedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// The lock expires after ttl even if never released.
	// The returned UnlockFunc MUST be called to release it early.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
