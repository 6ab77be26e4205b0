package http

import "testing"

func TestRateLimiterCapsEvents(t *testing.T) {
	limiter := newRateLimiter(3)
	for i := 0; i < 3; i++ {
		if !limiter.allow() {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}
	if limiter.allow() {
		t.Fatal("fourth event should be limited")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !limiter.allow() {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}
