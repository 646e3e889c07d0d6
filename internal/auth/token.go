// Package auth implements the hub's two interchangeable identity providers:
// a locally-signed HMAC token service, and a Mojang-style two-phase
// external session verifier.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/protocol"
)

// claims is the token payload: "exp" (seconds since epoch, handled by
// jwt.RegisteredClaims) and "user".
type claims struct {
	jwt.RegisteredClaims
	User claimUser `json:"user"`
}

type claimUser struct {
	Name string    `json:"name"`
	UUID uuid.UUID `json:"uuid"`
}

// TokenService mints and verifies the locally-issued signed tokens used by
// LoginJWT/RequestJWT. A nil *TokenService means the hub has no token
// service configured, and LoginJWT/RequestJWT reply NotSupported.
type TokenService struct {
	key       []byte
	method    jwt.SigningMethod
	validTime time.Duration
}

// NewTokenService creates a TokenService signing with the given HMAC
// algorithm ("HS256", "HS384", or "HS512") and key material.
func NewTokenService(key []byte, algorithm string, validTime time.Duration) (*TokenService, error) {
	method, err := hmacMethod(algorithm)
	if err != nil {
		return nil, err
	}
	return &TokenService{key: key, method: method, validTime: validTime}, nil
}

func hmacMethod(algorithm string) (jwt.SigningMethod, error) {
	switch algorithm {
	case "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	default:
		return nil, fmt.Errorf("unsupported token algorithm %q", algorithm)
	}
}

// Mint signs a fresh token for identity, expiring after the configured
// valid_time.
func (s *TokenService) Mint(identity protocol.UserIdentity) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validTime)),
		},
		User: claimUser{Name: identity.Name, UUID: identity.UUID},
	}
	token := jwt.NewWithClaims(s.method, c)
	return token.SignedString(s.key)
}

// Verify checks a token's signature and expiry and extracts the identity it
// carries. Any failure collapses to a single categorical error; callers
// map this error directly to the client-visible LoginFailed.
func (s *TokenService) Verify(tokenString string) (protocol.UserIdentity, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return protocol.UserIdentity{}, errInvalidToken
	}
	if !token.Valid {
		return protocol.UserIdentity{}, errInvalidToken
	}
	return protocol.UserIdentity{Name: c.User.Name, UUID: c.User.UUID}, nil
}

var errInvalidToken = errors.New("invalid or expired token")
