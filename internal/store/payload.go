package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// rawTextKey is the sentinel key under which a non-JSON payload is stored
// instead of being discarded.
const rawTextKey = "raw_text"

// ContentHash returns the lowercase hex SHA-256 of a payload. It is the
// deduplication key for consecutive history entries.
func ContentHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// SanitizePayload returns the payload unchanged when it is valid JSON.
// Anything else is wrapped as {"raw_text": "..."} so the history ledger
// never loses an event to a malformed document.
func SanitizePayload(payload []byte) []byte {
	if json.Valid(payload) {
		return payload
	}
	wrapped, err := json.Marshal(map[string]string{rawTextKey: string(payload)})
	if err != nil {
		return []byte(`{"` + rawTextKey + `": ""}`)
	}
	return wrapped
}
