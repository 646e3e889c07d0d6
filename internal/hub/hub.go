// Package hub implements the chat relay's single in-process authority: the
// connection table, the per-user session table, and the moderation table,
// plus the serial event loop that mutates them.
package hub

import (
	"context"
	"log/slog"
	"time"

	"github.com/rjsadow/axochat/internal/auth"
	"github.com/rjsadow/axochat/internal/metering"
	"github.com/rjsadow/axochat/internal/moderation"
	"github.com/rjsadow/axochat/internal/modlog"
	"github.com/rjsadow/axochat/internal/protocol"
)

// Config bundles everything the hub needs beyond its own tables: the
// tunable rate-limit and content-validation parameters, the two
// authentication services (the token service may be absent; the Mojang
// verifier must be set), the moderation store, and the ambient
// collaborators used for observability.
type Config struct {
	RateCapacity  int
	RateRegen     time.Duration
	MaxMessageLen int

	Mojang *auth.MojangVerifier // the hub's only external identity provider; always configured
	Tokens *auth.TokenService   // nil means LoginJWT/RequestJWT reply NotSupported

	Moderation moderation.Store

	Metering *metering.Collector // optional; nil disables metering events
	AuditLog *modlog.Log         // optional; nil disables the audit trail

	Logger *slog.Logger
}

// Hub is the chat relay's stateful authority. All fields below are mutated
// only by the goroutine running Run; everything else communicates with it
// exclusively through the exported methods, which enqueue events.
type Hub struct {
	cfg Config
	log *slog.Logger

	connections map[protocol.ConnectionID]*connection
	sessions    map[string]*userSession // keyed by user name
	moderation  *moderation.State

	nextID protocol.ConnectionID

	events chan event
	done   chan struct{}
}

// New constructs a Hub and loads its moderation state. The caller must
// call Run in its own goroutine before any session endpoint calls Connect.
func New(cfg Config) (*Hub, error) {
	state, err := cfg.Moderation.Load()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		cfg:         cfg,
		log:         logger,
		connections: make(map[protocol.ConnectionID]*connection),
		sessions:    make(map[string]*userSession),
		moderation:  state,
		events:      make(chan event, 256),
		done:        make(chan struct{}),
	}, nil
}

// Run processes events serially until ctx is canceled. It is the hub's
// only goroutine that ever touches connections, sessions, or moderation.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.handle(ev)
		}
	}
}

// Stopped is closed once Run has returned.
func (h *Hub) Stopped() <-chan struct{} {
	return h.done
}

func (h *Hub) handle(ev event) {
	switch e := ev.(type) {
	case connectEvent:
		h.handleConnect(e)
	case disconnectEvent:
		h.handleDisconnect(e.id)
	case packetEvent:
		h.handlePacket(e.id, e.packet)
	case mojangResultEvent:
		h.handleMojangResult(e)
	case statsRequest:
		e.reply <- h.statsLocked()
	}
}

// Connect registers a new connection and returns its assigned
// ConnectionID. Safe to call from any goroutine.
func (h *Hub) Connect(sink Sink) protocol.ConnectionID {
	reply := make(chan protocol.ConnectionID, 1)
	h.events <- connectEvent{sink: sink, reply: reply}
	return <-reply
}

// Disconnect notifies the hub that a connection has ended. Safe to call
// more than once or after the connection is already gone.
func (h *Hub) Disconnect(id protocol.ConnectionID) {
	h.events <- disconnectEvent{id: id}
}

// Dispatch forwards one decoded server-bound packet from ConnectionID id.
func (h *Hub) Dispatch(id protocol.ConnectionID, packet protocol.ServerPacket) {
	h.events <- packetEvent{id: id, packet: packet}
}

func (h *Hub) handleConnect(e connectEvent) {
	h.nextID++
	id := h.nextID
	h.connections[id] = newConnection(id, e.sink)
	if h.cfg.Metering != nil {
		h.cfg.Metering.Record(metering.EventConnectionOpened)
	}
	e.reply <- id
}

func (h *Hub) handleDisconnect(id protocol.ConnectionID) {
	conn, ok := h.connections[id]
	if !ok {
		return
	}
	delete(h.connections, id)
	if h.cfg.Metering != nil {
		h.cfg.Metering.Record(metering.EventConnectionClosed)
	}
	if conn.user != nil {
		h.removeFromSession(conn.user.Name, id)
	}
}

// removeFromSession drops id from the named user's session, removing the
// session entirely once its last connection leaves.
func (h *Hub) removeFromSession(name string, id protocol.ConnectionID) {
	sess, ok := h.sessions[name]
	if !ok {
		return
	}
	delete(sess.connections, id)
	if len(sess.connections) == 0 {
		delete(h.sessions, name)
		if h.cfg.Metering != nil {
			h.cfg.Metering.Record(metering.EventUserSessionEnded)
		}
	}
}

// Stats is a point-in-time snapshot of hub table sizes, used by
// internal/diagnostics and by RequestUserCount.
type Stats struct {
	Connections int
	LoggedIn    int
	Banned      int
	Moderators  int
}

func (h *Hub) statsLocked() Stats {
	return Stats{
		Connections: len(h.connections),
		LoggedIn:    len(h.sessions),
		Banned:      len(h.moderation.Banned),
		Moderators:  len(h.moderation.Moderators),
	}
}

// stats requests a Stats snapshot from the hub's serial loop. Safe to call
// from any goroutine.
func (h *Hub) stats() Stats {
	reply := make(chan Stats, 1)
	h.events <- statsRequest{reply: reply}
	return <-reply
}

// The following four methods implement internal/diagnostics.HubStats.

func (h *Hub) ConnectionCount() int { return h.stats().Connections }
func (h *Hub) LoggedInCount() int   { return h.stats().LoggedIn }
func (h *Hub) BannedCount() int     { return h.stats().Banned }
func (h *Hub) ModeratorCount() int  { return h.stats().Moderators }
