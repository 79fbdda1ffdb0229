package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPlainSecret(t *testing.T) {
	v := NewSyncVerifier(" sync-secret ")
	if err := v.Verify("sync-secret"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if err := v.Verify("sync-secreT"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := v.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected empty token to be rejected, got %v", err)
	}
}

func TestBcryptSecret(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sync-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}
	v := NewSyncVerifier(string(hash))
	if !v.hashed {
		t.Fatal("expected the secret to be detected as a bcrypt hash")
	}

	for i := 0; i < 2; i++ {
		if err := v.Verify("sync-secret"); err != nil {
			t.Fatalf("Verify() attempt %d error = %v", i, err)
		}
	}
	if err := v.Verify(string(hash)); !errors.Is(err, ErrInvalidToken) {
		t.Fatal("the hash itself must not be accepted as a token")
	}
	if err := v.Verify("other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestDisabledVerifierRejectsEverything(t *testing.T) {
	v := NewSyncVerifier("")
	if v.Enabled() {
		t.Fatal("expected verifier without secret to be disabled")
	}
	if err := v.Verify("anything"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashToken(t *testing.T) {
	if got := HashToken("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("HashToken() = %s", got)
	}
}
