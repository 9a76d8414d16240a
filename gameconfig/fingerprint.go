package gameconfig

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a hex BLAKE2b-256 digest of the normalized config. Two documents
// that parse to the same config share a fingerprint regardless of key order or defaults.
func Fingerprint(cfg GameConfig) (string, error) {
	canonical, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("fingerprint game config: %w", err)
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
