package hub

import (
	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/protocol"
)

// event is the sum type of everything the hub's serial loop consumes: the
// two connection lifecycle events, every server-bound packet variant
// (wrapped with its originating ConnectionID), and the asynchronous
// completion of a Mojang phase-2 verification.
type event interface {
	isHubEvent()
}

type connectEvent struct {
	sink  Sink
	reply chan protocol.ConnectionID
}

type disconnectEvent struct {
	id protocol.ConnectionID
}

type packetEvent struct {
	id     protocol.ConnectionID
	packet protocol.ServerPacket
}

// mojangResultEvent re-enters the hub's serial context when the external
// session verifier goroutine (launched from handleLoginMojang) completes.
// It carries the ConnectionID by value, not a pointer to the connection
// record, since the connection may already be gone by the time the
// lookup finishes.
type mojangResultEvent struct {
	id            protocol.ConnectionID
	claimedUUID   uuid.UUID
	allowMessages bool
	identity      protocol.UserIdentity
	err           error
}

type statsRequest struct {
	reply chan Stats
}

func (connectEvent) isHubEvent()      {}
func (disconnectEvent) isHubEvent()   {}
func (packetEvent) isHubEvent()       {}
func (mojangResultEvent) isHubEvent() {}
func (statsRequest) isHubEvent()      {}
