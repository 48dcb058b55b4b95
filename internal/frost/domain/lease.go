package frost

import (
	"context"
	"time"
)

// AcquireResult reports a lease attempt. When Acquired is false, ExpiresAt
// carries the competing holder's expiry for caller visibility.
type AcquireResult struct {
	Acquired  bool
	ExpiresAt time.Time
}

// Lease is a per-zone advisory lock preventing overlapping prediction runs.
// Acquisition must be a single atomic read-modify-write against the zone's
// lock record: an unexpired lock denies the attempt, otherwise the lock is
// written with expiry now+leaseFor. There is no release operation; leases
// expire naturally, so leaseFor must exceed the worst-case downstream job
// runtime plus margin.
type Lease interface {
	Acquire(ctx context.Context, zoneID string, leaseFor time.Duration) (AcquireResult, error)
}
