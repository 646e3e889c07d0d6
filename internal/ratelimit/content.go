package ratelimit

import (
	"unicode"
	"unicode/utf8"

	"github.com/rjsadow/axochat/internal/protocol"
)

// ValidateContent applies the ordered checks a chat message must pass:
// empty, too long, then character policy. maxLength is measured in bytes
// (the packet payload's source code units), matching how the content
// arrives off the wire before any further decoding.
//
// The allowed-character policy is deliberately narrow and documented here
// explicitly rather than left implicit: a character is allowed iff
// unicode.IsPrint reports it printable. That set already excludes every
// ASCII control byte except 0x20 (space), while accepting ordinary
// printable Unicode text. Other common whitespace (tab, newline) is
// rejected as a control character; chat lines are single-line by design.
func ValidateContent(content string, maxLength int) error {
	if len(content) == 0 {
		return protocol.New(protocol.ErrEmptyMessage)
	}
	if len(content) > maxLength {
		return protocol.New(protocol.ErrMessageTooLong)
	}
	for _, ch := range content {
		if ch == utf8.RuneError {
			return protocol.NewInvalidCharacter(ch)
		}
		if !unicode.IsPrint(ch) {
			return protocol.NewInvalidCharacter(ch)
		}
	}
	return nil
}
