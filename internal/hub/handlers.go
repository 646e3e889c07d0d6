package hub

import (
	"context"

	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/metering"
	"github.com/rjsadow/axochat/internal/modlog"
	"github.com/rjsadow/axochat/internal/protocol"
	"github.com/rjsadow/axochat/internal/ratelimit"
)

func (h *Hub) handlePacket(id protocol.ConnectionID, packet protocol.ServerPacket) {
	conn, ok := h.connections[id]
	if !ok {
		return // tolerate events for connections already gone
	}

	switch p := packet.(type) {
	case protocol.RequestMojangInfo:
		h.handleRequestMojangInfo(conn)
	case protocol.LoginMojang:
		h.handleLoginMojang(conn, p)
	case protocol.LoginJWT:
		h.handleLoginJWT(conn, p)
	case protocol.RequestJWT:
		h.handleRequestJWT(conn)
	case protocol.Message:
		h.handleMessage(conn, p)
	case protocol.PrivateMessage:
		h.handlePrivateMessage(conn, p)
	case protocol.BanUser:
		h.handleBanUser(conn, p)
	case protocol.UnbanUser:
		h.handleUnbanUser(conn, p)
	case protocol.RequestUserCount:
		h.handleRequestUserCount(conn)
	}
}

func reply(conn *connection, p protocol.ClientPacket) {
	conn.sink.Send(p)
}

func replyErr(conn *connection, kind protocol.ClientErrorKind) {
	conn.sink.Send(protocol.ErrorPacket(kind))
}

// --- Mojang phase 1 & 2 ---

func (h *Hub) handleRequestMojangInfo(conn *connection) {
	nonce, err := protocol.NewSessionNonce()
	if err != nil {
		h.log.Error("generate session nonce", "connection_id", conn.id.String(), "error", err)
		replyErr(conn, protocol.ErrInternal)
		return
	}
	conn.pendingNonce = nonce
	conn.state = StateChallenged
	reply(conn, protocol.MojangInfo{SessionHash: nonce})
}

func (h *Hub) handleLoginMojang(conn *connection, p protocol.LoginMojang) {
	if conn.isAuthenticated() {
		replyErr(conn, protocol.ErrAlreadyLoggedIn)
		return
	}
	if conn.pendingNonce == "" {
		replyErr(conn, protocol.ErrMojangRequestMissing)
		return
	}

	nonce := conn.pendingNonce
	conn.pendingNonce = ""
	id := conn.id

	go func() {
		identity, err := h.cfg.Mojang.Verify(context.Background(), p.Name, nonce)
		h.events <- mojangResultEvent{
			id:            id,
			claimedUUID:   p.UUID,
			allowMessages: p.AllowMessages,
			identity:      identity,
			err:           err,
		}
	}()
}

func (h *Hub) handleMojangResult(e mojangResultEvent) {
	conn, ok := h.connections[e.id]
	if !ok || conn.isAuthenticated() {
		return // re-lookup; no-op if gone or already logged in
	}

	if e.err != nil {
		conn.state = StateFresh
		replyErr(conn, protocol.ErrLoginFailed)
		return
	}

	if e.identity.UUID != e.claimedUUID {
		conn.state = StateFresh
		replyErr(conn, protocol.ErrInvalidID)
		return
	}

	h.completeLogin(conn, e.identity, e.allowMessages)
}

// --- Token-based authentication ---

func (h *Hub) handleLoginJWT(conn *connection, p protocol.LoginJWT) {
	if h.cfg.Tokens == nil {
		replyErr(conn, protocol.ErrNotSupported)
		return
	}
	if conn.isAuthenticated() {
		replyErr(conn, protocol.ErrAlreadyLoggedIn)
		return
	}

	identity, err := h.cfg.Tokens.Verify(p.Token)
	if err != nil {
		replyErr(conn, protocol.ErrLoginFailed)
		return
	}
	h.completeLogin(conn, identity, p.AllowMessages)
}

func (h *Hub) handleRequestJWT(conn *connection) {
	if !conn.isAuthenticated() {
		replyErr(conn, protocol.ErrNotLoggedIn)
		return
	}
	if h.cfg.Tokens == nil {
		replyErr(conn, protocol.ErrNotSupported)
		return
	}

	token, err := h.cfg.Tokens.Mint(protocol.UserIdentity{Name: conn.user.Name, UUID: conn.user.UUID})
	if err != nil {
		h.log.Error("mint token", "connection_id", conn.id.String(), "error", err)
		replyErr(conn, protocol.ErrInternal)
		return
	}
	reply(conn, protocol.NewJWT{Token: token})
}

// --- Login completion ---

func (h *Hub) completeLogin(conn *connection, identity protocol.UserIdentity, allowMessages bool) {
	sess, ok := h.sessions[identity.Name]
	if !ok {
		sess = newUserSession(h.cfg.RateCapacity, h.cfg.RateRegen)
		h.sessions[identity.Name] = sess
		if h.cfg.Metering != nil {
			h.cfg.Metering.Record(metering.EventUserSessionStarted)
		}
	}
	sess.connections[conn.id] = struct{}{}

	conn.user = &boundUser{
		Name:                   identity.Name,
		UUID:                   identity.UUID,
		AcceptsPrivateMessages: allowMessages,
	}
	conn.state = StateAuthenticated

	reply(conn, protocol.Success{Reason: protocol.SuccessLogin})
}

// --- Message routing ---

func (h *Hub) handleMessage(conn *connection, p protocol.Message) {
	if !conn.isAuthenticated() {
		replyErr(conn, protocol.ErrNotLoggedIn)
		return
	}
	if h.moderation.IsBanned(conn.user.UUID) {
		replyErr(conn, protocol.ErrBanned)
		return
	}
	if err := ratelimit.ValidateContent(p.Content, h.cfg.MaxMessageLen); err != nil {
		reply(conn, protocol.Error{Message: err.(protocol.ClientError)})
		return
	}

	sess := h.sessions[conn.user.Name]
	if !sess.limiter.Allow() {
		replyErr(conn, protocol.ErrRateLimited)
		return
	}

	out := protocol.OutMessage{AuthorID: conn.id, AuthorName: conn.user.Name, Content: p.Content}
	for _, other := range h.connections {
		if other.isAuthenticated() {
			reply(other, out)
		}
	}
}

func (h *Hub) handlePrivateMessage(conn *connection, p protocol.PrivateMessage) {
	if !conn.isAuthenticated() {
		replyErr(conn, protocol.ErrNotLoggedIn)
		return
	}
	if h.moderation.IsBanned(conn.user.UUID) {
		replyErr(conn, protocol.ErrBanned)
		return
	}
	if err := ratelimit.ValidateContent(p.Content, h.cfg.MaxMessageLen); err != nil {
		reply(conn, protocol.Error{Message: err.(protocol.ClientError)})
		return
	}

	recipientSess, ok := h.sessions[p.Receiver]
	if !ok {
		replyErr(conn, protocol.ErrInvalidID)
		return
	}

	var recipients []*connection
	for id := range recipientSess.connections {
		rc, ok := h.connections[id]
		if ok && rc.user.AcceptsPrivateMessages {
			recipients = append(recipients, rc)
		}
	}
	if len(recipients) == 0 {
		replyErr(conn, protocol.ErrPrivateMessageNotAccepted)
		return
	}

	sess := h.sessions[conn.user.Name]
	if !sess.limiter.Allow() {
		replyErr(conn, protocol.ErrRateLimited)
		return
	}

	out := protocol.OutPrivateMessage{AuthorID: conn.id, AuthorName: conn.user.Name, Content: p.Content}
	for _, rc := range recipients {
		reply(rc, out)
	}
}

// --- Moderation operations ---

func (h *Hub) requireModerator(conn *connection) bool {
	if !conn.isAuthenticated() {
		replyErr(conn, protocol.ErrNotLoggedIn)
		return false
	}
	if h.moderation.IsBanned(conn.user.UUID) {
		replyErr(conn, protocol.ErrBanned)
		return false
	}
	if !h.moderation.IsModerator(conn.user.UUID) {
		replyErr(conn, protocol.ErrNotPermitted)
		return false
	}
	return true
}

func (h *Hub) handleBanUser(conn *connection, p protocol.BanUser) {
	if !h.requireModerator(conn) {
		return
	}

	h.moderation.Banned[p.UUID] = struct{}{}
	if err := h.cfg.Moderation.Save(h.moderation); err != nil {
		h.log.Warn("persist moderation store after ban", "uuid", p.UUID, "error", err)
	}

	for _, target := range h.connectionsWithUUID(p.UUID) {
		h.forceDisconnect(target)
	}

	h.auditLog(p.UUID, conn.user.UUID, modlog.ActionBan)
	reply(conn, protocol.Success{Reason: protocol.SuccessBan})
}

func (h *Hub) handleUnbanUser(conn *connection, p protocol.UnbanUser) {
	if !h.requireModerator(conn) {
		return
	}

	if _, banned := h.moderation.Banned[p.UUID]; !banned {
		replyErr(conn, protocol.ErrNotBanned)
		return
	}

	delete(h.moderation.Banned, p.UUID)
	if err := h.cfg.Moderation.Save(h.moderation); err != nil {
		h.log.Warn("persist moderation store after unban", "uuid", p.UUID, "error", err)
	}

	h.auditLog(p.UUID, conn.user.UUID, modlog.ActionUnban)
	reply(conn, protocol.Success{Reason: protocol.SuccessUnban})
}

func (h *Hub) handleRequestUserCount(conn *connection) {
	if !h.requireModerator(conn) {
		return
	}
	h.auditLog(conn.user.UUID, conn.user.UUID, modlog.ActionUserCount)

	stats := h.statsLocked()
	reply(conn, protocol.UserCount{
		Connections: uint32(stats.Connections),
		LoggedIn:    uint32(stats.LoggedIn),
	})
}

// connectionsWithUUID returns every live connection authenticated as
// target, a snapshot taken before any are mutated.
func (h *Hub) connectionsWithUUID(target uuid.UUID) []*connection {
	var matches []*connection
	for _, conn := range h.connections {
		if conn.isAuthenticated() && conn.user.UUID == target {
			matches = append(matches, conn)
		}
	}
	return matches
}

// forceDisconnect removes a connection from every hub table and closes its
// sink, used when a ban must evict an already-authenticated user.
func (h *Hub) forceDisconnect(conn *connection) {
	delete(h.connections, conn.id)
	if h.cfg.Metering != nil {
		h.cfg.Metering.Record(metering.EventConnectionClosed)
	}
	if conn.user != nil {
		h.removeFromSession(conn.user.Name, conn.id)
	}
	conn.state = StateClosed
	conn.sink.Close()
}

func (h *Hub) auditLog(target, moderator uuid.UUID, action modlog.Action) {
	if h.cfg.AuditLog == nil {
		return
	}
	if err := h.cfg.AuditLog.Append(context.Background(), target, moderator, action); err != nil {
		h.log.Warn("append moderation audit entry", "action", action, "error", err)
	}
}
