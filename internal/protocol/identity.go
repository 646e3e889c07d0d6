package protocol

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// ConnectionID is assigned monotonically by the hub on accept and is unique
// for the hub's lifetime. It is never reused after disconnect.
type ConnectionID uint64

// String renders the ID the way operators see it in logs: a zero-padded
// 8-hex-digit tag.
func (id ConnectionID) String() string {
	return fmt.Sprintf("%08x", uint64(id))
}

// UserIdentity is the authoritative identity of an authenticated session:
// a display name paired with the account's UUID.
type UserIdentity struct {
	Name string    `json:"name"`
	UUID uuid.UUID `json:"uuid"`
}

// NewSessionNonce generates the 20-byte Mojang-handshake challenge and
// returns it already hex-encoded per EncodeNonce. The top bit of the first
// byte is cleared so downstream systems never see a sign-ambiguous value.
func NewSessionNonce() (string, error) {
	var buf [20]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate session nonce: %w", err)
	}
	buf[0] &= 0b0111_1111
	return EncodeNonce(buf), nil
}

const hexAlphabet = "0123456789abcdef"

// EncodeNonce renders a 20-byte nonce as lowercase hex with leading
// zero-nibbles suppressed. The all-zero input yields "0", never "".
func EncodeNonce(bytes [20]byte) string {
	buf := make([]byte, 0, 40)
	skippedZeros := false
	for _, b := range bytes {
		left := b >> 4
		if left != 0 {
			skippedZeros = true
		}
		if skippedZeros {
			buf = append(buf, hexAlphabet[left])
		}

		right := b & 0b1111
		if right != 0 {
			skippedZeros = true
		}
		if skippedZeros {
			buf = append(buf, hexAlphabet[right])
		}
	}
	if len(buf) == 0 {
		buf = append(buf, hexAlphabet[0])
	}
	return string(buf)
}
