// Package engramerr defines the error-kind taxonomy shared by every
// component: storage, crypto, integrity and the orchestrator all wrap one
// of these sentinels so callers can use errors.Is regardless of which
// layer raised the failure.
package engramerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the store's error-kind taxonomy.
// Use errors.Is() to check for these in calling code.
var (
	// ErrNotFound indicates a lookup by id found nothing.
	ErrNotFound = errors.New("episode not found")

	// ErrMalformed indicates on-disk JSON could not be parsed.
	ErrMalformed = errors.New("malformed data")

	// ErrIntegrity indicates an AEAD tag mismatch, a failed Merkle proof,
	// or a snapshot root mismatch. Never silently coerced.
	ErrIntegrity = errors.New("integrity failure")

	// ErrPolicy indicates encryption was demanded but no key could be
	// resolved, or a resolved key has the wrong length.
	ErrPolicy = errors.New("policy error")

	// ErrTransport indicates a storage I/O or network failure.
	ErrTransport = errors.New("transport error")

	// ErrUsage indicates a caller supplied invalid parameters.
	ErrUsage = errors.New("usage error")
)

// Wrap attaches msg to sentinel so the result still satisfies errors.Is(err, sentinel).
func Wrap(sentinel error, msg string) error {
	return fmt.Errorf("%w: %s", sentinel, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
