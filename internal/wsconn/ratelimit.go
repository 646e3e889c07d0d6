package wsconn

import (
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rjsadow/axochat/internal/config"
)

// ConnRateLimiter caps WebSocket upgrade attempts per source IP. It sits
// in front of the hub's own per-user message limiter (internal/ratelimit),
// which only ever sees a connection once it has authenticated; this one
// guards the upgrade itself, before any identity exists to key on.
//
// An IP bucket has no natural end the way a user session does — there is
// no logout event to hang a cleanup off of — so instead of a dedicated
// background sweeper, eviction piggybacks on traffic: every Allow call has
// a small chance to also walk the table and drop anything idle past the
// TTL, which keeps the table bounded without a goroutine whose only job is
// to sleep.
type ConnRateLimiter struct {
	mu    sync.Mutex
	byIP  map[string]*ipBucket
	rate  rate.Limit
	burst int
	ttl   time.Duration
}

type ipBucket struct {
	limiter *rate.Limiter
	seenAt  time.Time
}

// sweepOdds is the 1-in-N chance a given Allow call also prunes stale
// entries.
const sweepOdds = 128

// NewConnRateLimiter builds a ConnRateLimiter from a listener's configured
// upgrade-flood thresholds (internal/config.NetConfig.ConnRatePerSecond /
// ConnBurst, already defaulted by config.Load).
func NewConnRateLimiter(netCfg config.NetConfig) *ConnRateLimiter {
	return &ConnRateLimiter{
		byIP:  make(map[string]*ipBucket),
		rate:  rate.Limit(netCfg.ConnRatePerSecond),
		burst: netCfg.ConnBurst,
		ttl:   5 * time.Minute,
	}
}

// Allow reports whether an upgrade attempt from ip may proceed.
func (rl *ConnRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.byIP[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.byIP[ip] = b
	}
	b.seenAt = time.Now()

	if rand.Intn(sweepOdds) == 0 {
		rl.evictStaleLocked()
	}

	return b.limiter.Allow()
}

func (rl *ConnRateLimiter) evictStaleLocked() {
	cutoff := time.Now().Add(-rl.ttl)
	for ip, b := range rl.byIP {
		if b.seenAt.Before(cutoff) {
			delete(rl.byIP, ip)
		}
	}
}

// clientIP extracts the source IP from a request, preferring
// X-Forwarded-For / X-Real-Ip when present (common behind a load balancer).
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
