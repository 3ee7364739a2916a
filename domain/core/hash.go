package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell designs apart in reports
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// ComputeHash fingerprints an ordered list of values. Floats are rendered with
// %g so equal designs always produce the same fingerprint.
func ComputeHash(parts ...interface{}) Hash {
	var data strings.Builder
	for _, p := range parts {
		data.WriteString(fmt.Sprintf("%v|", p))
	}
	return NewHash([]byte(data.String()))
}
