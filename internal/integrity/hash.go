// Package integrity implements the canonical episode hash, the
// order-independent Merkle tree over all episodes, and proof
// build/verify. It depends only on crypto/sha256 and encoding/json.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/engramhq/engram/internal/models"
)

// CanonicalBytes serializes ep with keys in lexicographic order. Go's
// encoding/json already sorts map[string]any keys when marshaling, so a
// round trip through a generic map is sufficient to canonicalize a
// struct's field order without a bespoke key-sorting serializer.
func CanonicalBytes(ep *models.Episode) ([]byte, error) {
	raw, err := json.Marshal(ep)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Hash returns the canonical episode hash: SHA-256 over CanonicalBytes.
// Callers must pass the as-stored representation (ciphertext form when
// encrypted) so a remote verifier never needs the decryption key.
func Hash(ep *models.Episode) ([32]byte, error) {
	canonical, err := CanonicalBytes(ep)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(canonical), nil
}

// HashHex is Hash formatted as lowercase hex.
func HashHex(ep *models.Episode) (string, error) {
	h, err := Hash(ep)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h[:]), nil
}
