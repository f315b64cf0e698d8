package crypto

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"os"
	"strings"

	"github.com/engramhq/engram/internal/engramerr"
	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLen        = 32
	saltLen       = 16
	pbkdf2Iters   = 100_000
	EnvKeyVar     = "ENGRAM_KEY"
)

// KeySource names where key material may come from, in resolution order.
type KeySource struct {
	RawKeyHex   string // (1) explicit raw key hex
	Password    string // (2) derive via PBKDF2-HMAC-SHA512 against a persisted salt
	SaltPath    string // where the salt lives, written before first use
	Env         string // (3) environment variable name, defaults to ENGRAM_KEY
	KeyFilePath string // (4) per-store key file, 64-hex with optional trailing newline
}

// Resolve picks the first available key source in priority order.
func Resolve(src KeySource) ([keyLen]byte, error) {
	var key [keyLen]byte

	if src.RawKeyHex != "" {
		return decodeKeyHex(src.RawKeyHex)
	}

	if src.Password != "" {
		salt, err := loadOrCreateSalt(src.SaltPath)
		if err != nil {
			return key, err
		}
		derived := pbkdf2.Key([]byte(src.Password), salt, pbkdf2Iters, keyLen, sha512.New)
		copy(key[:], derived)
		return key, nil
	}

	envVar := src.Env
	if envVar == "" {
		envVar = EnvKeyVar
	}
	if raw := os.Getenv(envVar); raw != "" {
		return decodeKeyHex(raw)
	}

	if src.KeyFilePath != "" {
		data, err := os.ReadFile(src.KeyFilePath)
		if err == nil {
			return decodeKeyHex(strings.TrimSpace(string(data)))
		}
		if !os.IsNotExist(err) {
			return key, engramerr.Wrapf(engramerr.ErrTransport, "read key file: %v", err)
		}
	}

	return key, engramerr.Wrap(engramerr.ErrPolicy, "encryption demanded but no key source resolvable")
}

func decodeKeyHex(raw string) ([keyLen]byte, error) {
	var key [keyLen]byte
	raw = strings.TrimSpace(raw)
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return key, engramerr.Wrapf(engramerr.ErrPolicy, "key is not valid hex: %v", err)
	}
	if len(decoded) != keyLen {
		return key, engramerr.Wrapf(engramerr.ErrPolicy, "key must be %d bytes, got %d", keyLen, len(decoded))
	}
	copy(key[:], decoded)
	return key, nil
}

// loadOrCreateSalt reads the persisted salt, or generates and persists a
// fresh one if absent. The salt is written before any encrypted episode
// is saved: a crash between derivation and persistence must not be able
// to leave the store encrypted under a salt nobody wrote down.
func loadOrCreateSalt(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		decoded, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(decoded) != saltLen {
			return nil, engramerr.Wrap(engramerr.ErrMalformed, "stored salt is not valid hex of the expected length")
		}
		return decoded, nil
	}
	if !os.IsNotExist(err) {
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "read salt: %v", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "generate salt: %v", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(salt)), 0o600); err != nil {
		return nil, engramerr.Wrapf(engramerr.ErrTransport, "persist salt: %v", err)
	}
	return salt, nil
}
