package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rjsadow/axochat/internal/protocol"
)

func TestTokenService_MintThenVerifyRoundTrips(t *testing.T) {
	svc, err := NewTokenService([]byte("a-test-signing-key"), "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	identity := protocol.UserIdentity{Name: "Alice", UUID: uuid.New()}
	token, err := svc.Mint(identity)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != identity {
		t.Fatalf("expected %+v, got %+v", identity, got)
	}
}

func TestTokenService_RejectsUnknownAlgorithm(t *testing.T) {
	if _, err := NewTokenService([]byte("key"), "none", time.Hour); err == nil {
		t.Fatal("expected error for unsupported algorithm")
	}
}

func TestTokenService_RejectsExpiredToken(t *testing.T) {
	svc, err := NewTokenService([]byte("a-test-signing-key"), "HS256", -time.Second)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := svc.Mint(protocol.UserIdentity{Name: "Bob", UUID: uuid.New()})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected verification of an already-expired token to fail")
	}
}

func TestTokenService_RejectsTamperedToken(t *testing.T) {
	svc, err := NewTokenService([]byte("a-test-signing-key"), "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	other, err := NewTokenService([]byte("a-different-key"), "HS256", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	token, err := other.Mint(protocol.UserIdentity{Name: "Eve", UUID: uuid.New()})
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if _, err := svc.Verify(token); err == nil {
		t.Fatal("expected verification with a different key to fail")
	}
}
