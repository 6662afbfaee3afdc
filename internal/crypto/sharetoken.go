package crypto

import (
	"encoding/base64"
	"fmt"
)

// Share tokens are 24 random bytes (192 bits), base64url without padding.
const (
	shareTokenBytes  = 24
	ShareTokenMinLen = 20
	ShareTokenMaxLen = 64
)

// NewShareToken returns an unguessable URL-safe token unrelated to any record ID.
func NewShareToken() (string, error) {
	b, err := RandBytes(shareTokenBytes)
	if err != nil {
		return "", fmt.Errorf("share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ShareTokenLooksValid is a cheap shape filter run before a storage lookup.
// It never replaces an exact match against the stored token.
func ShareTokenLooksValid(s string) bool {
	if len(s) < ShareTokenMinLen || len(s) > ShareTokenMaxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
