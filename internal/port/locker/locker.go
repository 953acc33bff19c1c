package locker

import "context"

// AdvisoryLocker serialises critical sections keyed by an int64.
// The context passed to fn may carry the lock's own storage transaction;
// repository calls inside fn must use that context, not the outer one.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}
