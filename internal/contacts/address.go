package contacts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidAddress is returned when an address is empty or has no "@".
var ErrInvalidAddress = errors.New("invalid address")

// Normalize returns the canonical form of an email address used as the cache
// key. The domain is lowercased and the local part is kept verbatim, so
// "Joe@Example.COM" and "Joe@example.com" share a key while "joe@example.com"
// does not.
func Normalize(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	idx := strings.LastIndexByte(addr, '@')
	if idx < 0 {
		return "", fmt.Errorf("%w: %q has no @", ErrInvalidAddress, raw)
	}
	return addr[:idx+1] + strings.ToLower(addr[idx+1:]), nil
}

// LocalPart returns the part of addr before the last "@", or addr itself.
func LocalPart(addr string) string {
	if idx := strings.LastIndexByte(addr, '@'); idx >= 0 {
		return addr[:idx]
	}
	return addr
}
