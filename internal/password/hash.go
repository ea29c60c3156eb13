package password

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/matt-dz/streamhub/internal/argon2id"
)

type Algorithm string

const (
	AlgorithmBcrypt   Algorithm = "bcrypt"
	AlgorithmArgon2id Algorithm = "argon2id"
)

// DefaultBcryptCost matches the cost the service has always used.
const DefaultBcryptCost = 10

func (a Algorithm) Validate() error {
	switch a {
	case AlgorithmBcrypt, AlgorithmArgon2id:
		return nil
	}
	return fmt.Errorf("unknown password hashing algorithm: %q", a)
}

// Hasher produces salted one-way hashes for new passwords and verifies
// candidates against any hash it knows how to read.
type Hasher struct {
	Algorithm  Algorithm
	BcryptCost int
	Argon2     argon2id.Params
}

// NewHasher returns a Hasher using alg with default cost parameters.
func NewHasher(alg Algorithm) Hasher {
	return Hasher{
		Algorithm:  alg,
		BcryptCost: DefaultBcryptCost,
		Argon2:     argon2id.DefaultParams,
	}
}

// Hash hashes plaintext with the configured algorithm.
func (h Hasher) Hash(plaintext string) (string, error) {
	switch h.Algorithm {
	case AlgorithmArgon2id:
		hash, err := argon2id.EncodeHash(plaintext, h.Argon2)
		if err != nil {
			return "", fmt.Errorf("hashing password: %w", err)
		}
		return hash, nil
	case AlgorithmBcrypt, "":
		cost := h.BcryptCost
		if cost == 0 {
			cost = DefaultBcryptCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
		if err != nil {
			return "", fmt.Errorf("hashing password: %w", err)
		}
		return string(hash), nil
	}
	return "", h.Algorithm.Validate()
}

// Compare reports whether plaintext matches hash. The algorithm is taken
// from the hash itself, so hashes written under a previous configuration
// keep verifying. Unreadable hashes never match.
func (h Hasher) Compare(plaintext, hash string) bool {
	if strings.HasPrefix(hash, argon2id.Prefix) {
		ok, err := argon2id.Compare(plaintext, hash)
		return err == nil && ok
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
