// Package security validates and normalizes storage keys before they reach a backend.
package security

import (
	"fmt"
	"strings"

	"github.com/Ning0612/Stowage/internal/domain"
)

// ValidateKey rejects keys that could escape the logical namespace.
// Checks run in order and the first failure is returned:
// traversal ("..", backslash), home directory ("~" prefix), control characters.
func ValidateKey(key string) error {
	if strings.Contains(key, "..") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: path traversal detected", domain.ErrInvalidKey)
	}
	if strings.HasPrefix(key, "~") {
		return fmt.Errorf("%w: home directory path not allowed", domain.ErrInvalidKey)
	}
	for i := 0; i < len(key); i++ {
		if c := key[i]; c < 0x20 || c == 0x7f {
			return fmt.Errorf("%w: control characters detected", domain.ErrInvalidKey)
		}
	}
	return nil
}

// SanitizeKey validates key, collapses repeated slashes and strips
// leading and trailing slashes.
func SanitizeKey(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(key))
	prevSlash := false
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	return strings.Trim(b.String(), "/"), nil
}

// EscapeQueryValue escapes a raw string for use inside a single-quoted
// Drive query literal. Backslashes are escaped before quotes.
func EscapeQueryValue(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

// LeadingSlash returns key with exactly one leading slash
func LeadingSlash(key string) string {
	return "/" + strings.TrimLeft(key, "/")
}
