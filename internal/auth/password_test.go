package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hashed, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hashed == "correct horse" {
		t.Fatal("hash must not equal plaintext")
	}
	if !hasher.Verify("correct horse", hashed) {
		t.Fatal("expected password to verify")
	}
	if hasher.Verify("battery staple", hashed) {
		t.Fatal("wrong password must not verify")
	}
	if hasher.Verify("correct horse", "not-a-hash") {
		t.Fatal("garbage hash must not verify")
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(24)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(pw) != 24 {
		t.Fatalf("expected 24 chars, got %d", len(pw))
	}
	for _, ch := range []byte(pw) {
		if ch < 33 || ch > 126 {
			t.Fatalf("character %q outside printable range", ch)
		}
	}
	if _, err := GeneratePassword(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
