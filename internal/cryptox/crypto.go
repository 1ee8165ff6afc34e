// Package cryptox wraps the password hashing primitives used by the
// credential store. Plaintext passwords never leave this package in any
// form other than a salted bcrypt hash.
package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/plantapi/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor of hashes already stored by the service.
const DefaultCost = bcrypt.DefaultCost

// Hasher produces and checks bcrypt password hashes.
type Hasher struct {
	cost int
	// dummy is compared against when a login names an unknown user, so that
	// path spends the same bcrypt effort as a wrong password.
	dummy []byte
}

// NewHasher returns a Hasher with the given bcrypt cost. Costs outside the
// bcrypt range fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("plantapi-dummy-password"), cost)
	return &Hasher{cost: cost, dummy: dummy}
}

// Hash salts and hashes a plaintext password.
func (h *Hasher) Hash(plaintext string) (string, error) {
	pw := []byte(plaintext)
	defer common.WipeByteArray(pw)

	b, err := bcrypt.GenerateFromPassword(pw, h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Compare reports whether plaintext matches the stored hash. A malformed
// hash is treated as a mismatch.
func (h *Hasher) Compare(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// CompareDummy burns one bcrypt comparison and always reports false.
func (h *Hasher) CompareDummy(plaintext string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
	return false
}
