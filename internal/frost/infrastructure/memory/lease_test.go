package memory

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLeaseMutualExclusion(t *testing.T) {
	now := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	lease := NewLease(WithNow(func() time.Time { return now }))

	const attempts = 32
	var wg sync.WaitGroup
	acquired := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := lease.Acquire(context.Background(), "zone-1", 10*time.Minute)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			acquired <- result.Acquired
		}()
	}
	wg.Wait()
	close(acquired)

	winners := 0
	for ok := range acquired {
		if ok {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestLeaseExpiryAllowsReacquire(t *testing.T) {
	now := time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC)
	lease := NewLease(WithNow(func() time.Time { return now }))

	first, err := lease.Acquire(context.Background(), "zone-1", 10*time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if !first.Acquired {
		t.Fatal("first acquire should win")
	}

	held, err := lease.Acquire(context.Background(), "zone-1", 10*time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if held.Acquired {
		t.Fatal("unexpired lease must deny")
	}
	if !held.ExpiresAt.Equal(first.ExpiresAt) {
		t.Fatalf("denial should report the competing expiry: %v vs %v", held.ExpiresAt, first.ExpiresAt)
	}

	now = now.Add(10*time.Minute + time.Second)
	again, err := lease.Acquire(context.Background(), "zone-1", 10*time.Minute)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !again.Acquired {
		t.Fatal("expired lease should be reacquirable")
	}
}

func TestLeaseIsPerZone(t *testing.T) {
	lease := NewLease()
	a, err := lease.Acquire(context.Background(), "zone-1", time.Minute)
	if err != nil || !a.Acquired {
		t.Fatalf("zone-1 acquire: %v %v", a, err)
	}
	b, err := lease.Acquire(context.Background(), "zone-2", time.Minute)
	if err != nil || !b.Acquired {
		t.Fatalf("zone-2 acquire: %v %v", b, err)
	}
}

func TestLeaseValidatesArguments(t *testing.T) {
	lease := NewLease()
	if _, err := lease.Acquire(context.Background(), "", time.Minute); err == nil {
		t.Fatal("empty zone id should error")
	}
	if _, err := lease.Acquire(context.Background(), "zone-1", 0); err == nil {
		t.Fatal("non-positive duration should error")
	}
}
