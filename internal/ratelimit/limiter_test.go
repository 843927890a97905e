package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock advances only when the test says so.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLimiter_BurstThenReject(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 5, RefillPerSecond: 1, Now: clock.Now})

	for i := 0; i < 5; i++ {
		if err := l.Allow("client-a"); err != nil {
			t.Fatalf("Allow() request %d = %v, want nil", i+1, err)
		}
	}

	if err := l.Allow("client-a"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Allow() after burst = %v, want ErrRateLimited", err)
	}
}

func TestLimiter_RefillRestoresFullBurst(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 3, RefillPerSecond: 1, Now: clock.Now})

	for i := 0; i < 3; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("Allow() request %d = %v, want nil", i+1, err)
		}
	}
	if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow() after burst = %v, want ErrRateLimited", err)
	}

	// Capacity/RefillPerSecond seconds of quiet refills the bucket completely.
	clock.Advance(3 * time.Second)

	for i := 0; i < 3; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("Allow() after refill, request %d = %v, want nil", i+1, err)
		}
	}
	if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Allow() after second burst = %v, want ErrRateLimited", err)
	}
}

func TestLimiter_PartialRefill(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 2, RefillPerSecond: 2, Now: clock.Now})

	for i := 0; i < 2; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("Allow() request %d = %v, want nil", i+1, err)
		}
	}

	// Half a second at 2 tokens/sec yields exactly one token.
	clock.Advance(500 * time.Millisecond)

	if err := l.Allow("k"); err != nil {
		t.Fatalf("Allow() after partial refill = %v, want nil", err)
	}
	if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Allow() beyond partial refill = %v, want ErrRateLimited", err)
	}
}

func TestLimiter_ZeroElapsedAddsNoTokens(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 1, RefillPerSecond: 10, Now: clock.Now})

	if err := l.Allow("k"); err != nil {
		t.Fatalf("Allow() first request = %v, want nil", err)
	}

	// The clock has not moved: repeated checks must not fabricate tokens.
	for i := 0; i < 3; i++ {
		if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
			t.Errorf("Allow() with frozen clock, attempt %d = %v, want ErrRateLimited", i+1, err)
		}
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 1, RefillPerSecond: 1, Now: clock.Now})

	if err := l.Allow("alice"); err != nil {
		t.Fatalf("Allow(alice) = %v, want nil", err)
	}
	if err := l.Allow("alice"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow(alice) second = %v, want ErrRateLimited", err)
	}

	// Exhausting alice's bucket must not touch bob's.
	if err := l.Allow("bob"); err != nil {
		t.Errorf("Allow(bob) = %v, want nil", err)
	}
}

func TestLimiter_Reset(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 1, RefillPerSecond: 1, Now: clock.Now})

	if err := l.Allow("k"); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("Allow() exhausted = %v, want ErrRateLimited", err)
	}

	l.Reset("k")

	if err := l.Allow("k"); err != nil {
		t.Errorf("Allow() after Reset = %v, want nil", err)
	}
}

func TestLimiter_DefaultsForInvalidOptions(t *testing.T) {
	clock := newFakeClock()
	l := New(Options{Capacity: 0, RefillPerSecond: -1, Now: clock.Now})

	if err := l.Allow("k"); err != nil {
		t.Fatalf("Allow() = %v, want nil", err)
	}
	if err := l.Allow("k"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Allow() second = %v, want ErrRateLimited", err)
	}
}

func TestLimiter_ConcurrentAdmissionsNeverExceedCapacity(t *testing.T) {
	clock := newFakeClock()
	const capacity = 50
	l := New(Options{Capacity: capacity, RefillPerSecond: 1, Now: clock.Now})

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Allow("shared"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != capacity {
		t.Errorf("admitted = %d, want %d", admitted, capacity)
	}
}
