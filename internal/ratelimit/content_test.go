package ratelimit

import (
	"strings"
	"testing"

	"github.com/rjsadow/axochat/internal/protocol"
)

func TestValidateContent_Empty(t *testing.T) {
	err := ValidateContent("", 100)
	assertKind(t, err, protocol.ErrEmptyMessage)
}

func TestValidateContent_ExactlyMaxLengthAccepted(t *testing.T) {
	content := strings.Repeat("a", 10)
	if err := ValidateContent(content, 10); err != nil {
		t.Fatalf("content of exactly max_length should be accepted, got %v", err)
	}
}

func TestValidateContent_OverMaxLengthRejected(t *testing.T) {
	content := strings.Repeat("a", 11)
	err := ValidateContent(content, 10)
	assertKind(t, err, protocol.ErrMessageTooLong)
}

func TestValidateContent_ControlByteRejected(t *testing.T) {
	err := ValidateContent("hi\x01there", 100)
	assertKind(t, err, protocol.ErrInvalidCharacter)
}

func TestValidateContent_SpaceAccepted(t *testing.T) {
	if err := ValidateContent("hello world", 100); err != nil {
		t.Fatalf("plain text with spaces should be accepted, got %v", err)
	}
}

func assertKind(t *testing.T, err error, want protocol.ClientErrorKind) {
	t.Helper()
	ce, ok := err.(protocol.ClientError)
	if !ok {
		t.Fatalf("expected protocol.ClientError, got %T (%v)", err, err)
	}
	if ce.Kind != want {
		t.Fatalf("expected kind %s, got %s", want, ce.Kind)
	}
}
