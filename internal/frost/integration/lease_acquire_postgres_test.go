package integration_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	frost "agrisense-cloud/internal/frost/domain"
	leaserepo "agrisense-cloud/internal/frost/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openLeaseDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.ExecContext(context.Background(), `
CREATE TABLE IF NOT EXISTS zone_run_locks (
	zone_id    TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`); err != nil {
		t.Fatalf("ensure lock table: %v", err)
	}
	return db
}

func cleanZone(t *testing.T, db *sql.DB, zoneID string) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(),
		`DELETE FROM zone_run_locks WHERE zone_id = $1`, zoneID); err != nil {
		t.Fatalf("clean zone row: %v", err)
	}
}

func TestLeaseAcquire_Postgres_ConcurrentFirstAcquisition(t *testing.T) {
	db := openLeaseDB(t)
	zoneID := "zone-it-lease-concurrent"
	cleanZone(t, db, zoneID)

	repo := leaserepo.NewLeaseRepository(db)
	ctx := context.Background()

	const attempts = 16
	results := make([]frost.AcquireResult, attempts)
	errs := make([]error, attempts)

	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = repo.Acquire(ctx, zoneID, 5*time.Minute)
		}(i)
	}
	start.Done()
	done.Wait()

	var winnerExpiry time.Time
	acquired := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("acquire %d: %v", i, errs[i])
		}
		if results[i].Acquired {
			acquired++
			winnerExpiry = results[i].ExpiresAt
		}
	}
	if acquired != 1 {
		t.Fatalf("acquired by %d of %d concurrent attempts, want exactly 1", acquired, attempts)
	}
	for i := 0; i < attempts; i++ {
		if !results[i].Acquired && !results[i].ExpiresAt.Equal(winnerExpiry) {
			t.Fatalf("denied attempt %d reported expiry %v, want winner's %v",
				i, results[i].ExpiresAt, winnerExpiry)
		}
	}
}

func TestLeaseAcquire_Postgres_DeniedWhileHeldThenExpires(t *testing.T) {
	db := openLeaseDB(t)
	zoneID := "zone-it-lease-expiry"
	cleanZone(t, db, zoneID)

	base := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	now := base
	repo := leaserepo.NewLeaseRepository(db, leaserepo.WithNow(func() time.Time { return now }))
	ctx := context.Background()

	first, err := repo.Acquire(ctx, zoneID, 10*time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !first.Acquired || !first.ExpiresAt.Equal(base.Add(10*time.Minute)) {
		t.Fatalf("first = %+v", first)
	}

	now = base.Add(5 * time.Minute)
	second, err := repo.Acquire(ctx, zoneID, 10*time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if second.Acquired {
		t.Fatal("second acquire must be denied while the lease is held")
	}
	if !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Fatalf("denied expiry = %v, want holder's %v", second.ExpiresAt, first.ExpiresAt)
	}

	now = base.Add(11 * time.Minute)
	third, err := repo.Acquire(ctx, zoneID, 10*time.Minute)
	if err != nil {
		t.Fatalf("third acquire: %v", err)
	}
	if !third.Acquired || !third.ExpiresAt.Equal(now.Add(10*time.Minute)) {
		t.Fatalf("third = %+v, want reacquired after expiry", third)
	}
}
