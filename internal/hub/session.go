package hub

import (
	"time"

	"github.com/rjsadow/axochat/internal/protocol"
	"github.com/rjsadow/axochat/internal/ratelimit"
)

// userSession is the hub's per-identity bookkeeping: one rate limiter
// shared by every connection currently authenticated as this user, and
// the set of those connections. Keyed by user name in Hub.sessions.
type userSession struct {
	limiter     *ratelimit.Limiter
	connections map[protocol.ConnectionID]struct{}
}

func newUserSession(capacity int, regenTime time.Duration) *userSession {
	return &userSession{
		limiter:     ratelimit.New(capacity, regenTime),
		connections: make(map[protocol.ConnectionID]struct{}),
	}
}
