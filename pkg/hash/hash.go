package hash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMalformedDigest signals that a stored digest is not a valid bcrypt hash.
// A plain mismatch is never an error, only a false result.
var ErrMalformedDigest = errors.New("malformed bcrypt digest")

// Hasher applies one-way bcrypt hashing to passwords and refresh tokens.
// Storing refresh tokens hashed means a database dump does not yield
// replayable credentials.
type Hasher struct {
	cost int
}

// New returns a Hasher with the given cost. Costs outside bcrypt's
// supported range fall back to the default.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether plain matches digest. It returns an error only
// when the digest itself is malformed.
func (h *Hasher) Compare(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}
}
