package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltLength       = 32
	keyLength        = sha256.Size
	pbkdf2Iterations = 100_000
	credentialSep    = "$"
)

// HashPassword derives a fresh credential for password in the form
// hex(salt)$hex(key). Empty passwords are accepted; policy is the caller's.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := deriveKey(password, salt)
	return hex.EncodeToString(salt) + credentialSep + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored credential.
// Malformed credentials never match.
func VerifyPassword(password, stored string) bool {
	salt, want, err := ParseCredential(stored)
	if err != nil {
		return false
	}
	got := deriveKey(password, salt)
	return subtle.ConstantTimeCompare(got, want) == 1
}

// ParseCredential splits a stored credential into salt and derived key.
func ParseCredential(stored string) (salt, key []byte, err error) {
	parts := strings.Split(stored, credentialSep)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, nil, ErrMalformedCredential
	}
	salt, err = hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, ErrMalformedCredential
	}
	key, err = hex.DecodeString(parts[1])
	if err != nil || len(key) != keyLength {
		return nil, nil, ErrMalformedCredential
	}
	return salt, key, nil
}

func deriveKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLength, sha256.New)
}
