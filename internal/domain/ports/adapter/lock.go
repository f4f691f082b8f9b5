package adapter

import (
	"context"
	"time"
)

// Locker is a best-effort mutual exclusion primitive keyed by string.
// The redemption flow uses it to serialize near-simultaneous redemptions
// by the same user; correctness does not depend on it (the store's
// conditional writes do), it only avoids wasted conflict retries.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
