package skill

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// HashContent returns the hex SHA-256 digest of a content string.
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// HashManifest returns the digest of a manifest's canonical JSON form.
// Canonical here means encoding/json's deterministic key-sorted map output.
func HashManifest(m *Manifest) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return HashContent(string(raw)), nil
}
