package core

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns a stable identifier of the token that is safe to log.
func (t AuthToken) Fingerprint() string {
	if t.Token == "" {
		return "(n/a)"
	}
	hash := sha256.Sum256([]byte(t.Token))
	return base64.StdEncoding.EncodeToString(hash[:])
}
