package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the SHA-256 hex digest of v's canonical JSON form. Map
// keys are sorted at every level, so documents that differ only in insertion
// order share a fingerprint.
func Fingerprint(v any) (string, error) {
	data, err := json.Marshal(Plain(v))
	if err != nil {
		return "", fmt.Errorf("failed to encode value for fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
