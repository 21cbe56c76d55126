// Package token generates the opaque random identifiers used by the
// service: event identities ("evt_...") and project API keys ("sk_...").
package token

import (
	"crypto/rand"
	"encoding/hex"
)

// randomHex returns n random bytes hex-encoded. crypto/rand failing is
// not a recoverable condition for an identity generator.
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// NewEventID returns a collision-resistant event identity, assigned when
// the caller did not supply one. The prefix keeps generated identities
// recognizable in logs and query results.
func NewEventID() string {
	return "evt_" + randomHex(16)
}

// NewAPIKey returns a project API key. The resolver rejects keys without
// the sk_ prefix before touching the store.
func NewAPIKey() string {
	return "sk_" + randomHex(24)
}
