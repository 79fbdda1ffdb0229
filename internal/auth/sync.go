// Package auth verifies the shared token presented by the membership sync job on the
// internal endpoints.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// SyncVerifier checks sync tokens against the configured secret, which is either the
// token itself or a bcrypt hash of it ("$2a$...", "$2b$...").
type SyncVerifier struct {
	secret []byte
	hashed bool

	mu       sync.Mutex
	accepted string
}

func NewSyncVerifier(secret string) *SyncVerifier {
	secret = strings.TrimSpace(secret)
	return &SyncVerifier{
		secret: []byte(secret),
		hashed: isBcryptHash(secret),
	}
}

// Enabled reports whether a secret is configured. Without one every token is rejected.
func (v *SyncVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify returns ErrInvalidToken unless token matches the secret. A bcrypt match is
// remembered by fingerprint so repeated calls with the same token stay cheap.
func (v *SyncVerifier) Verify(token string) error {
	if !v.Enabled() || token == "" {
		return ErrInvalidToken
	}
	if !v.hashed {
		if subtle.ConstantTimeCompare([]byte(token), v.secret) != 1 {
			return ErrInvalidToken
		}
		return nil
	}

	fingerprint := HashToken(token)
	v.mu.Lock()
	cached := v.accepted
	v.mu.Unlock()
	if cached != "" && subtle.ConstantTimeCompare([]byte(cached), []byte(fingerprint)) == 1 {
		return nil
	}

	if err := bcrypt.CompareHashAndPassword(v.secret, []byte(token)); err != nil {
		return ErrInvalidToken
	}
	v.mu.Lock()
	v.accepted = fingerprint
	v.mu.Unlock()
	return nil
}

// HashToken is the hex sha256 of value.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}

func isBcryptHash(value string) bool {
	if len(value) != 60 {
		return false
	}
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}
