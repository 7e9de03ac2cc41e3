package application

import (
	"errors"
	"testing"
)

var fastArgon2idParams = Argon2idParams{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestAdminTokenHash(t *testing.T) {
	t.Parallel()

	encoded, err := HashAdminToken("coach-secret", fastArgon2idParams)
	if err != nil {
		t.Fatalf("HashAdminToken returned error: %v", err)
	}
	if err := ValidateAdminTokenHash(encoded); err != nil {
		t.Fatalf("expected generated hash to validate, got %v", err)
	}

	if err := VerifyAdminToken(encoded, "coach-secret"); err != nil {
		t.Fatalf("expected matching token to verify, got %v", err)
	}
	if err := VerifyAdminToken(encoded, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAdminTokenHash_Malformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"plain-text",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8,t=1,p=1$!!$aGFzaA",
	}
	for _, encoded := range cases {
		if err := VerifyAdminToken(encoded, "token"); !errors.Is(err, ErrInvalidTokenHash) {
			t.Fatalf("VerifyAdminToken(%q) = %v, want ErrInvalidTokenHash", encoded, err)
		}
	}

	if err := ValidateAdminTokenHash("$argon2id$v=18$m=8,t=1,p=1$c2FsdA$aGFzaA"); !errors.Is(err, ErrIncompatibleTokenVersion) {
		t.Fatalf("expected ErrIncompatibleTokenVersion, got %v", err)
	}

	if _, err := HashAdminToken("", fastArgon2idParams); err == nil {
		t.Fatalf("expected empty token to be rejected")
	}
}
