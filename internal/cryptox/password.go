// Package cryptox holds password hashing and constant-time comparison
// helpers used by the credential and admin checks.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/gophlicense/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// DeriveKey stretches password with argon2id.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// HashPassword returns the argon2id hash of password under a fresh random salt.
func HashPassword(password []byte) (hash, salt []byte) {
	salt = common.GenerateRandByteArray(SaltSize)
	return DeriveKey(password, salt), salt
}

// VerifyPassword recomputes the hash for candidate and compares it with
// hash in constant time.
func VerifyPassword(candidate, salt, hash []byte) bool {
	derived := DeriveKey(candidate, salt)
	defer common.WipeByteArray(derived)
	return subtle.ConstantTimeCompare(derived, hash) == 1
}

// EqualStrings compares two secrets without leaking where they differ.
// Lengths still leak, which is acceptable for fixed admin credentials.
func EqualStrings(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
