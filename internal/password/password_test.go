package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/matt-dz/streamhub/internal/argon2id"
)

func TestPolicyValidate(t *testing.T) {
	strict := Policy{MinLength: 10, RequireMixed: true, MinEntropyBits: 60}

	tests := []struct {
		name     string
		policy   Policy
		password string
		wantErr  error
	}{
		{name: "default accepts simple password", policy: DefaultPolicy, password: "secret123"},
		{name: "default rejects short password", policy: DefaultPolicy, password: "abc", wantErr: ErrTooShort},
		{name: "rejects very long password", policy: DefaultPolicy, password: strings.Repeat("a", 73), wantErr: ErrTooLong},
		{name: "strict accepts strong password", policy: strict, password: "TestP@ssw0rd123!"},
		{name: "strict requires uppercase", policy: strict, password: "testp@ssw0rd123!", wantErr: ErrNoUppercase},
		{name: "strict requires lowercase", policy: strict, password: "TESTP@SSW0RD123!", wantErr: ErrNoLowercase},
		{name: "strict requires digit", policy: strict, password: "TestP@ssword!!!!", wantErr: ErrNoDigit},
		{name: "strict requires special", policy: strict, password: "TestPassw0rd1234", wantErr: ErrNoSpecial},
		{name: "strict rejects low entropy", policy: strict, password: "Aaaaaaaa1!", wantErr: ErrTooWeak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate(tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate(%q) error = %v, want %v", tt.password, err, tt.wantErr)
			}
			if tt.wantErr != nil && !IsPolicyViolation(err) {
				t.Errorf("expected %v to be a policy violation", err)
			}
		})
	}
}

func testHasher(alg Algorithm) Hasher {
	h := NewHasher(alg)
	h.BcryptCost = bcrypt.MinCost
	h.Argon2 = argon2id.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return h
}

func TestHasherRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(string(alg), func(t *testing.T) {
			h := testHasher(alg)
			for _, p := range []string{"secret123", "", "pässwörd", "TestP@ssw0rd123!"} {
				hash, err := h.Hash(p)
				if err != nil {
					t.Fatalf("Hash(%q) error = %v", p, err)
				}
				if hash == p {
					t.Fatalf("hash must not equal the plaintext")
				}
				if !h.Compare(p, hash) {
					t.Errorf("Compare(%q, Hash(%q)) = false, want true", p, p)
				}
				if h.Compare(p+"x", hash) {
					t.Errorf("Compare(%q, Hash(%q)) = true, want false", p+"x", p)
				}
			}
		})
	}
}

func TestHasherDefaultsToBcryptCost10(t *testing.T) {
	hash, err := Hasher{}.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != DefaultBcryptCost {
		t.Errorf("expected cost %d, got %d", DefaultBcryptCost, cost)
	}
}

func TestHasherComparesAcrossAlgorithms(t *testing.T) {
	bcryptHash, err := testHasher(AlgorithmBcrypt).Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	argonHash, err := testHasher(AlgorithmArgon2id).Hash("secret123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	h := testHasher(AlgorithmArgon2id)
	if !h.Compare("secret123", bcryptHash) {
		t.Error("argon2id hasher should still verify bcrypt hashes")
	}
	if !h.Compare("secret123", argonHash) {
		t.Error("argon2id hasher should verify argon2id hashes")
	}
}

func TestHasherCompareMalformedHash(t *testing.T) {
	h := testHasher(AlgorithmBcrypt)
	for _, hash := range []string{"", "plaintext", "$argon2id$broken", "$2a$10$short"} {
		if h.Compare("secret123", hash) {
			t.Errorf("Compare against %q should be false", hash)
		}
	}
}

func TestHasherUnknownAlgorithm(t *testing.T) {
	if _, err := (Hasher{Algorithm: "md5"}).Hash("secret123"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}
