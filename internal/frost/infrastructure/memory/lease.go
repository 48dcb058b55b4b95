package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	frost "agrisense-cloud/internal/frost/domain"
)

// Lease is an in-process implementation of the zone run lease. The mutex
// makes the read-then-conditionally-write atomic per process.
type Lease struct {
	mu    sync.Mutex
	locks map[string]time.Time
	clock func() time.Time
}

// LeaseOption configures the lease.
type LeaseOption func(*Lease)

// WithNow overrides the time source.
func WithNow(now func() time.Time) LeaseOption {
	return func(l *Lease) {
		if now != nil {
			l.clock = now
		}
	}
}

// NewLease constructs an in-memory lease.
func NewLease(opts ...LeaseOption) *Lease {
	lease := &Lease{
		locks: make(map[string]time.Time),
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(lease)
	}
	return lease
}

// Acquire implements frost.Lease.
func (l *Lease) Acquire(_ context.Context, zoneID string, leaseFor time.Duration) (frost.AcquireResult, error) {
	if l == nil {
		return frost.AcquireResult{}, errors.New("memory lease: nil lease")
	}
	if zoneID == "" {
		return frost.AcquireResult{}, errors.New("memory lease: empty zone id")
	}
	if leaseFor <= 0 {
		return frost.AcquireResult{}, errors.New("memory lease: non-positive lease duration")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.locks[zoneID]; ok && expiry.After(now) {
		return frost.AcquireResult{Acquired: false, ExpiresAt: expiry}, nil
	}
	expiry := now.Add(leaseFor)
	l.locks[zoneID] = expiry
	return frost.AcquireResult{Acquired: true, ExpiresAt: expiry}, nil
}
