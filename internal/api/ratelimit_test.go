package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPLimiter_AllowsUpToBurstThenBlocks(t *testing.T) {
	l := &ipLimiter{
		entries: make(map[string]*ipLimiterEntry),
		rps:     rate.Limit(1),
		burst:   3,
		ttl:     time.Minute,
	}

	for i := 0; i < 3; i++ {
		if !l.allow("1.2.3.4") {
			t.Fatalf("expected request %d within burst to be allowed", i)
		}
	}
	if l.allow("1.2.3.4") {
		t.Fatal("expected request beyond burst to be rate-limited")
	}
}

func TestIPLimiter_TracksIndependentIPs(t *testing.T) {
	l := &ipLimiter{
		entries: make(map[string]*ipLimiterEntry),
		rps:     rate.Limit(1),
		burst:   1,
		ttl:     time.Minute,
	}

	if !l.allow("1.1.1.1") {
		t.Fatal("expected first IP's first request to be allowed")
	}
	if !l.allow("2.2.2.2") {
		t.Fatal("expected a different IP to have its own independent budget")
	}
	if l.allow("1.1.1.1") {
		t.Fatal("expected first IP's second request to be rate-limited")
	}
}

func TestClientIP_PrefersXForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	if ip := clientIP(req); ip != "9.9.9.9" {
		t.Fatalf("expected 9.9.9.9, got %s", ip)
	}
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", nil)
	req.RemoteAddr = "5.6.7.8:1234"
	if ip := clientIP(req); ip != "5.6.7.8" {
		t.Fatalf("expected 5.6.7.8, got %s", ip)
	}
}
