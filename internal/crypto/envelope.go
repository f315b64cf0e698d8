// Package crypto implements the AEAD encryption-at-rest envelope:
// ChaCha20-Poly1305 sealing of episode text and tags, and the layered
// key-resolution chain in keys.go.
package crypto

import (
	"crypto/rand"
	"encoding/json"

	"github.com/engramhq/engram/internal/engramerr"
	"golang.org/x/crypto/chacha20poly1305"
)

// Envelope is the serialized AEAD payload: nonce, ciphertext and
// authentication tag split into their own fields so the on-disk JSON
// matches the documented shape exactly.
type Envelope struct {
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
}

// Seal encrypts plaintext under key, returning a fresh Envelope. A new
// random 12-byte nonce is generated per call.
func Seal(plaintext []byte, key [32]byte) (*Envelope, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrPolicy, "init AEAD: %v", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "generate nonce: %v", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	tagLen := aead.Overhead()
	return &Envelope{
		Nonce:      nonce,
		Ciphertext: sealed[:len(sealed)-tagLen],
		Tag:        sealed[len(sealed)-tagLen:],
	}, nil
}

// Open decrypts env under key. A tag mismatch or corrupt envelope is an
// IntegrityFailure; ciphertext is never silently returned.
func Open(env *Envelope, key [32]byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrPolicy, "init AEAD: %v", err)
	}

	combined := make([]byte, 0, len(env.Ciphertext)+len(env.Tag))
	combined = append(combined, env.Ciphertext...)
	combined = append(combined, env.Tag...)

	plaintext, err := aead.Open(nil, env.Nonce, combined, nil)
	if err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrIntegrity, "decrypt: %v", err)
	}
	return plaintext, nil
}

// Marshal serializes env to the JSON text stored in an episode's text or
// tags field.
func (e *Envelope) Marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalEnvelope parses a serialized envelope.
func UnmarshalEnvelope(text string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrMalformed, "envelope: %v", err)
	}
	return &env, nil
}
