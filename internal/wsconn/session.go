// Package wsconn is the session endpoint: it upgrades an HTTP request to
// a WebSocket, registers the connection with the hub, and runs the
// read/write pumps that translate between wire frames and hub events.
package wsconn

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rjsadow/axochat/internal/hub"
	"github.com/rjsadow/axochat/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// connHub is the subset of *hub.Hub a session needs; it lets tests fake
// the hub without standing up the real event loop.
type connHub interface {
	Connect(sink hub.Sink) protocol.ConnectionID
	Disconnect(id protocol.ConnectionID)
	Dispatch(id protocol.ConnectionID, packet protocol.ServerPacket)
}

// session owns one accepted WebSocket connection: a read pump that decodes
// inbound frames and forwards them to the hub, and a write pump that
// serializes outbound packets the hub hands to its Sink through the
// outbound channel. When the read pump returns, run signals the write pump
// to stop by closing closeCh.
type session struct {
	conn *websocket.Conn
	hub  connHub
	log  *slog.Logger

	id protocol.ConnectionID

	outbound chan protocol.ClientPacket
	closeCh  chan struct{}
}

func newSession(conn *websocket.Conn, h connHub, log *slog.Logger) *session {
	return &session{
		conn:     conn,
		hub:      h,
		log:      log,
		outbound: make(chan protocol.ClientPacket, 32),
		closeCh:  make(chan struct{}),
	}
}

// Send implements hub.Sink. It is called from the hub's own goroutine, so
// it must never block on network I/O; queuing onto outbound is enough.
func (s *session) Send(p protocol.ClientPacket) {
	select {
	case s.outbound <- p:
	case <-s.closeCh:
	}
}

// Close implements hub.Sink, used when the hub forcibly evicts a
// connection (e.g. a ban). It is safe to call more than once. Beyond
// signaling the write pump, it unblocks a read pump parked in
// ReadMessage so the session actually tears down instead of leaking a
// goroutine until the peer happens to send another frame.
func (s *session) Close() {
	select {
	case <-s.closeCh:
		return
	default:
		close(s.closeCh)
	}
	s.conn.SetReadDeadline(time.Now())
}

// run registers the connection with the hub and blocks until either pump
// exits, at which point it tears down the other and notifies the hub.
func (s *session) run() {
	s.id = s.hub.Connect(s)
	s.log = s.log.With("connection_id", s.id.String())

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writePump()
	}()

	s.readPump()

	s.Close()
	<-writeDone
	s.hub.Disconnect(s.id)
	s.conn.Close()
}

func (s *session) readPump() {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("transport error on read", "error", err)
			}
			return
		}

		switch msgType {
		case websocket.TextMessage:
			packet, err := protocol.DecodeServerPacket(data)
			if err != nil {
				s.log.Debug("dropping undecodable frame", "error", err)
				continue
			}
			s.hub.Dispatch(s.id, packet)
		case websocket.BinaryMessage:
			s.log.Debug("dropping unsupported binary frame")
		case websocket.CloseMessage:
			return
		default:
			s.log.Debug("dropping unsupported frame type", "type", msgType)
		}
	}
}

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case p := <-s.outbound:
			data, err := protocol.EncodeClientPacket(p)
			if err != nil {
				s.log.Error("encode client packet", "error", err)
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.closeCh:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
