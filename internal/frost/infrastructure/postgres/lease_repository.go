package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	frost "agrisense-cloud/internal/frost/domain"
)

// LeaseRepository implements the zone run lease over a Postgres lock table.
// Acquisition is a single conditional upsert: the ON CONFLICT update only
// fires while the stored expiry is in the past, and the conflict resolution
// locks the competing row, so concurrent attempts for the same zone serialize
// and exactly one wins even when no lock row exists yet.
type LeaseRepository struct {
	db    *sql.DB
	clock func() time.Time
}

// LeaseOption configures the repository.
type LeaseOption func(*LeaseRepository)

// WithNow overrides the time source.
func WithNow(now func() time.Time) LeaseOption {
	return func(r *LeaseRepository) {
		if now != nil {
			r.clock = now
		}
	}
}

// NewLeaseRepository constructs a lease repository.
func NewLeaseRepository(db *sql.DB, opts ...LeaseOption) *LeaseRepository {
	repo := &LeaseRepository{
		db:    db,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Acquire implements frost.Lease.
func (r *LeaseRepository) Acquire(ctx context.Context, zoneID string, leaseFor time.Duration) (frost.AcquireResult, error) {
	if r == nil || r.db == nil {
		return frost.AcquireResult{}, errors.New("lease repo: nil db")
	}
	if zoneID == "" {
		return frost.AcquireResult{}, errors.New("lease repo: empty zone id")
	}
	if leaseFor <= 0 {
		return frost.AcquireResult{}, errors.New("lease repo: non-positive lease duration")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return frost.AcquireResult{}, err
	}

	now := r.clock()
	newExpiry := now.Add(leaseFor)

	// A plain SELECT ... FOR UPDATE cannot fence the first acquisition: with
	// no lock row there is nothing to lock, and two transactions both reach
	// the upsert. The WHERE on the conflict update re-evaluates against the
	// committed row after any wait, so a loser sees the winner's fresh expiry
	// and updates nothing.
	var granted time.Time
	err = tx.QueryRowContext(ctx, `
INSERT INTO zone_run_locks (zone_id, expires_at, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (zone_id)
DO UPDATE SET expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at
WHERE zone_run_locks.expires_at <= $3
RETURNING expires_at`, zoneID, newExpiry, now).Scan(&granted)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return frost.AcquireResult{}, err
		}
		return frost.AcquireResult{Acquired: true, ExpiresAt: granted.UTC()}, nil
	case errors.Is(err, sql.ErrNoRows):
		// Denied. The conflicting row is locked by this transaction, so the
		// competing expiry read here is the one that beat us.
		var competing time.Time
		if err := tx.QueryRowContext(ctx, `
SELECT expires_at FROM zone_run_locks WHERE zone_id = $1`, zoneID).Scan(&competing); err != nil {
			_ = tx.Rollback()
			return frost.AcquireResult{}, err
		}
		if err := tx.Commit(); err != nil {
			return frost.AcquireResult{}, err
		}
		return frost.AcquireResult{Acquired: false, ExpiresAt: competing.UTC()}, nil
	default:
		_ = tx.Rollback()
		return frost.AcquireResult{}, err
	}
}
