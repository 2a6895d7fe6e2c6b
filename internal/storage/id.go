package storage

import (
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"regexp"
)

const (
	// SHA1Short is the short hash length used when displaying session IDs.
	SHA1Short = 7
	// SHA1MinLen is the minimum prefix length accepted when matching an ID.
	SHA1MinLen = 4
)

// SHA1Regexp matches a full or partial SHA-1 hex digest.
var SHA1Regexp = regexp.MustCompile(`^[0-9a-f]{4,40}$`)

// NewSessionID returns a new random session identifier.
func NewSessionID() string {
	b := make([]byte, 64)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", sha1.Sum(b)) //nolint:gosec
}
