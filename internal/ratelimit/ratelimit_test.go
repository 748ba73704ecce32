package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_AllowsBurst(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 5, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("request beyond burst should be rejected")
	}
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	l := New(Config{RequestsPerMinute: 6000, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("5.6.7.8") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("5.6.7.8") {
		t.Fatal("second immediate request should be rejected")
	}

	time.Sleep(50 * time.Millisecond) // 100 tokens/sec refill
	if !l.Allow("5.6.7.8") {
		t.Fatal("request after refill should be allowed")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("key a should be allowed")
	}
	if !l.Allow("b") {
		t.Fatal("key b should be independent of key a")
	}
}
