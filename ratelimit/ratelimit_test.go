package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestKeyed_Allow_Burst(t *testing.T) {
	now := time.Now()
	limiter := New(Config{
		PerMinute: 60,
		Burst:     3,
		Now:       func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		if !limiter.Allow("caller") {
			t.Fatalf("Allow() call %d = false, want true (within burst)", i+1)
		}
	}
	if limiter.Allow("caller") {
		t.Errorf("Allow() call 4 = true, want false (burst exhausted)")
	}
}

func TestKeyed_Allow_SteadyRate(t *testing.T) {
	// With rate R/minute and burst B, exactly B + floor(R*t/60) calls
	// succeed in a t-second window of back-to-back calls.
	tests := []struct {
		name      string
		perMinute float64
		burst     int
		seconds   int
		want      int
	}{
		{name: "R=60 B=2 t=5", perMinute: 60, burst: 2, seconds: 5, want: 7},
		{name: "R=6 B=1 t=30", perMinute: 6, burst: 1, seconds: 30, want: 4},
		{name: "R=1 B=1 t=59", perMinute: 1, burst: 1, seconds: 59, want: 1},
		{name: "R=1 B=1 t=60", perMinute: 1, burst: 1, seconds: 60, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			now := start
			limiter := New(Config{
				PerMinute: tt.perMinute,
				Burst:     tt.burst,
				Now:       func() time.Time { return now },
			})

			succeeded := 0
			// Hammer the limiter every 10ms across the window. The extra
			// ticks past the boundary absorb float rounding in the refill
			// without reaching the next whole token.
			window := time.Duration(tt.seconds)*time.Second + 25*time.Millisecond
			for i := 0; ; i++ {
				now = start.Add(time.Duration(i) * 10 * time.Millisecond)
				if now.Sub(start) > window {
					break
				}
				if limiter.Allow("caller") {
					succeeded++
				}
			}

			if succeeded != tt.want {
				t.Errorf("admitted %d calls, want %d", succeeded, tt.want)
			}
		})
	}
}

func TestKeyed_Allow_IndependentKeys(t *testing.T) {
	now := time.Now()
	limiter := New(Config{
		PerMinute: 1,
		Burst:     1,
		Now:       func() time.Time { return now },
	})

	if !limiter.Allow("a") {
		t.Errorf("Allow(a) = false, want true")
	}
	if limiter.Allow("a") {
		t.Errorf("Allow(a) second call = true, want false")
	}
	// Exhausting one key must not affect another.
	if !limiter.Allow("b") {
		t.Errorf("Allow(b) = false, want true")
	}
}

func TestKeyed_Reset(t *testing.T) {
	now := time.Now()
	limiter := New(Config{PerMinute: 1, Burst: 1, Now: func() time.Time { return now }})

	limiter.Allow("caller")
	if limiter.Allow("caller") {
		t.Fatalf("Allow() = true, want false before reset")
	}

	limiter.Reset("caller")
	if !limiter.Allow("caller") {
		t.Errorf("Allow() = false, want true after reset")
	}
}

func TestKeyed_Allow_Concurrent(t *testing.T) {
	limiter := New(Config{PerMinute: 1, Burst: 100})

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if limiter.Allow("caller") {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// 200 concurrent calls against burst 100: no token may be double-spent.
	if admitted != 100 {
		t.Errorf("admitted %d calls, want exactly 100", admitted)
	}
}

func TestKeyed_MaxKeys_Eviction(t *testing.T) {
	now := time.Now()
	limiter := New(Config{
		PerMinute: 1,
		Burst:     1,
		MaxKeys:   3,
		Now:       func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		limiter.Allow(fmt.Sprintf("key-%d", i))
		now = now.Add(time.Millisecond)
	}

	// A fourth key evicts the stalest bucket rather than growing unbounded.
	limiter.Allow("key-3")

	limiter.mu.Lock()
	size := len(limiter.buckets)
	_, oldestPresent := limiter.buckets["key-0"]
	limiter.mu.Unlock()

	if size != 3 {
		t.Errorf("tracked keys = %d, want 3", size)
	}
	if oldestPresent {
		t.Errorf("stalest bucket still present, want evicted")
	}
}
