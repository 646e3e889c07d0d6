package wsconn

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades incoming HTTP requests to WebSocket connections and
// hands each one to a session. TLS termination and the surrounding HTTP
// server are the caller's responsibility.
type Handler struct {
	hub     connHub
	limiter *ConnRateLimiter
	log     *slog.Logger
}

// NewHandler constructs a Handler. limiter may be nil to disable the
// IP-level upgrade guard.
func NewHandler(h connHub, limiter *ConnRateLimiter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{hub: h, limiter: limiter, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow(clientIP(r)) {
		http.Error(w, "too many connection attempts", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(conn, h.hub, h.log)
	sess.run()
}
