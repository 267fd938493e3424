package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const sessionTokenBytes = 32

// NewSessionToken generates an opaque session token and the hash under which
// it is persisted. The raw token is handed to the client once; only the hash
// is ever stored server-side.
func NewSessionToken() (token string, hash []byte, err error) {
	raw := make([]byte, sessionTokenBytes)
	if _, err = rand.Read(raw); err != nil {
		return "", nil, err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, HashSessionToken(token), nil
}

// HashSessionToken derives the storage key for a presented token. SHA-256 is
// enough here: tokens are 256-bit random values, not passwords.
func HashSessionToken(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// ValidateTokenShape rejects obviously malformed tokens before any lookup.
func ValidateTokenShape(token string) error {
	if token == "" {
		return errors.New("empty session token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return errors.New("malformed session token")
	}
	if len(raw) != sessionTokenBytes {
		return errors.New("malformed session token")
	}
	return nil
}
