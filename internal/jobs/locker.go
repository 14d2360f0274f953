package jobs

import "context"

// Locker serializes work on one job. Lock blocks until the lock is held or
// ctx is done; the returned func releases it and is safe to call twice.
type Locker interface {
	Lock(ctx context.Context, jobID string) (func(), error)
}
