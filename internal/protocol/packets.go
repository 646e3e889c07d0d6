package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// envelope is the wire shape of every inbound and outbound JSON packet:
// a variant tag `m` and variant-specific fields nested under `c`.
type envelope struct {
	M string          `json:"m"`
	C json.RawMessage `json:"c,omitempty"`
}

// ServerPacket is a decoded, typed server-bound packet (client -> hub).
type ServerPacket interface {
	isServerPacket()
}

type Message struct {
	Content string `json:"content"`
}

type PrivateMessage struct {
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

type LoginMojang struct {
	Name          string    `json:"name"`
	UUID          uuid.UUID `json:"uuid"`
	AllowMessages bool      `json:"allow_messages"`
}

type RequestMojangInfo struct{}

type LoginJWT struct {
	Token         string `json:"token"`
	AllowMessages bool   `json:"allow_messages"`
}

type RequestJWT struct{}

type BanUser struct {
	UUID uuid.UUID `json:"uuid"`
}

type UnbanUser struct {
	UUID uuid.UUID `json:"uuid"`
}

type RequestUserCount struct{}

func (Message) isServerPacket()           {}
func (PrivateMessage) isServerPacket()    {}
func (LoginMojang) isServerPacket()       {}
func (RequestMojangInfo) isServerPacket() {}
func (LoginJWT) isServerPacket()          {}
func (RequestJWT) isServerPacket()        {}
func (BanUser) isServerPacket()           {}
func (UnbanUser) isServerPacket()         {}
func (RequestUserCount) isServerPacket()  {}

// DecodeServerPacket decodes a single text frame's payload into a typed
// server-bound packet. The caller drops the frame (but keeps the
// connection open) on error.
func DecodeServerPacket(data []byte) (ServerPacket, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.M {
	case "Message":
		var p Message
		if err := unmarshalContent(env.C, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "PrivateMessage":
		var p PrivateMessage
		if err := unmarshalContent(env.C, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "LoginMojang":
		var p LoginMojang
		if err := unmarshalContent(env.C, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "RequestMojangInfo":
		return RequestMojangInfo{}, nil
	case "LoginJWT":
		var p LoginJWT
		if err := unmarshalContent(env.C, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "RequestJWT":
		return RequestJWT{}, nil
	case "BanUser":
		var p BanUser
		if err := unmarshalContent(env.C, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "UnbanUser":
		var p UnbanUser
		if err := unmarshalContent(env.C, &p); err != nil {
			return nil, err
		}
		return p, nil
	case "RequestUserCount":
		return RequestUserCount{}, nil
	default:
		return nil, fmt.Errorf("unknown packet variant %q", env.M)
	}
}

func unmarshalContent(raw json.RawMessage, target any) error {
	if len(raw) == 0 {
		return fmt.Errorf("packet missing content object")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode packet content: %w", err)
	}
	return nil
}

// ClientPacket is a client-bound packet (hub -> a single connection). Every
// variant encodes to the same tagged envelope server-bound packets decode
// from.
type ClientPacket interface {
	clientVariant() string
}

type OutMessage struct {
	AuthorID   ConnectionID `json:"author_id"`
	AuthorName string       `json:"author_name"`
	Content    string       `json:"content"`
}

func (OutMessage) clientVariant() string { return "Message" }

type OutPrivateMessage struct {
	AuthorID   ConnectionID `json:"author_id"`
	AuthorName string       `json:"author_name"`
	Content    string       `json:"content"`
}

func (OutPrivateMessage) clientVariant() string { return "PrivateMessage" }

type MojangInfo struct {
	SessionHash string `json:"session_hash"`
}

func (MojangInfo) clientVariant() string { return "MojangInfo" }

type NewJWT struct {
	Token string `json:"token"`
}

func (NewJWT) clientVariant() string { return "NewJWT" }

type UserCount struct {
	Connections uint32 `json:"connections"`
	LoggedIn    uint32 `json:"logged_in"`
}

func (UserCount) clientVariant() string { return "UserCount" }

type SuccessReason string

const (
	SuccessLogin  SuccessReason = "Login"
	SuccessBan    SuccessReason = "Ban"
	SuccessUnban  SuccessReason = "Unban"
)

type Success struct {
	Reason SuccessReason `json:"reason"`
}

func (Success) clientVariant() string { return "Success" }

type Error struct {
	Message ClientError `json:"message"`
}

func (Error) clientVariant() string { return "Error" }

// EncodeClientPacket serializes a client-bound packet into the tagged
// envelope. Serialization never fails for the well-typed packets the hub
// produces; an error here is a programmer error.
func EncodeClientPacket(p ClientPacket) ([]byte, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode packet content: %w", err)
	}
	env := envelope{M: p.clientVariant(), C: content}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out, nil
}

// ErrorPacket is a small convenience for the hub's many `reply with an
// error` call sites.
func ErrorPacket(kind ClientErrorKind) ClientPacket {
	return Error{Message: New(kind)}
}
