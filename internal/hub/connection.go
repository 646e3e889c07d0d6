package hub

import (
	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/protocol"
)

// State is a connection's position in the per-connection authentication
// state machine.
type State int

const (
	StateFresh State = iota
	StateChallenged
	StateAuthenticated
	StateClosed
)

// Sink is the write-only handle into a session endpoint's outbound queue.
// The hub is the sole writer; the session endpoint is the sole reader.
// Close forcibly terminates the connection, used when a moderator bans the
// connection's authenticated user.
type Sink interface {
	Send(protocol.ClientPacket)
	Close()
}

// boundUser is the optional authenticated-user binding a connection record
// carries once login completes.
type boundUser struct {
	Name                   string
	UUID                   uuid.UUID
	AcceptsPrivateMessages bool
}

// connection is the hub's record for one live connection, keyed by its
// ConnectionID in Hub.connections.
type connection struct {
	id    protocol.ConnectionID
	sink  Sink
	state State

	pendingNonce string
	user         *boundUser
}

func newConnection(id protocol.ConnectionID, sink Sink) *connection {
	return &connection{id: id, sink: sink, state: StateFresh}
}

func (c *connection) isAuthenticated() bool {
	return c.user != nil
}
