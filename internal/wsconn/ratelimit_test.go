package wsconn

import (
	"net/http"
	"testing"

	"github.com/rjsadow/axochat/internal/config"
)

func TestConnRateLimiter_AllowsUpToBurstThenDenies(t *testing.T) {
	rl := NewConnRateLimiter(config.NetConfig{ConnRatePerSecond: 0, ConnBurst: 2})
	if !rl.Allow("1.2.3.4") {
		t.Fatal("expected first attempt to be allowed")
	}
	if !rl.Allow("1.2.3.4") {
		t.Fatal("expected second attempt within burst to be allowed")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("expected third attempt to be denied")
	}
}

func TestConnRateLimiter_TracksIPsIndependently(t *testing.T) {
	rl := NewConnRateLimiter(config.NetConfig{ConnRatePerSecond: 0, ConnBurst: 1})
	if !rl.Allow("1.1.1.1") {
		t.Fatal("expected first IP's first attempt to be allowed")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("expected second IP's first attempt to be allowed regardless of the first IP's state")
	}
}

func TestClientIP_PrefersForwardedFor(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	r.RemoteAddr = "127.0.0.1:5000"

	if got := clientIP(r); got != "9.9.9.9" {
		t.Fatalf("got %q, want 9.9.9.9", got)
	}
}

func TestClientIP_FallsBackToRemoteAddr(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "127.0.0.1:5000"

	if got := clientIP(r); got != "127.0.0.1" {
		t.Fatalf("got %q, want 127.0.0.1", got)
	}
}
