// Package argon2id contains utilities for the argon2id protocol.
package argon2id

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("the encoded hash is not in the correct format")
	ErrIncompatibleVersion = errors.New("incompatible version of argon2")
)

// Prefix identifies an encoded argon2id hash.
const Prefix = "$argon2id$"

const (
	DefaultMemory      = 64 * 1024 // 64 MB
	DefaultIterations  = 1
	DefaultParallelism = 4
	DefaultSaltLength  = 16
	DefaultKeyLength   = 32
)

const (
	numHashSections = 6
)

type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var DefaultParams = Params{
	Memory:      DefaultMemory,
	Iterations:  DefaultIterations,
	Parallelism: DefaultParallelism,
	SaltLength:  DefaultSaltLength,
	KeyLength:   DefaultKeyLength,
}

// EncodeHash hashes password with a fresh random salt and returns the
// PHC-style encoding "$argon2id$v=..$m=..,t=..,p=..$salt$hash".
func EncodeHash(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	return EncodeHashWithSalt(password, p, salt), nil
}

func EncodeHashWithSalt(password string, p Params, salt []byte) string {
	b64Hash := base64.RawStdEncoding.EncodeToString(HashWithSalt(password, p, salt))
	b64Salt := base64.RawStdEncoding.EncodeToString(salt)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations,
		p.Parallelism, b64Salt, b64Hash)
}

func HashWithSalt(password string, p Params, salt []byte) []byte {
	return argon2.IDKey(
		[]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// DecodeHash parses an encoded hash back into its parameters, salt and key.
func DecodeHash(encodedHash string) (p *Params, salt []byte, hash []byte, err error) {
	if !strings.HasPrefix(encodedHash, Prefix) {
		return nil, nil, nil, ErrInvalidHash
	}
	sections := strings.Split(encodedHash, "$")
	if len(sections) != numHashSections {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	p = &Params{}
	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}

	salt, err = base64.RawStdEncoding.Strict().DecodeString(sections[4])
	if err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	p.SaltLength = uint32(len(salt))

	hash, err = base64.RawStdEncoding.Strict().DecodeString(sections[5])
	if err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	p.KeyLength = uint32(len(hash))
	return p, salt, hash, nil
}

// Compare reports whether password matches encodedHash. The key comparison
// is constant time.
func Compare(password, encodedHash string) (bool, error) {
	p, salt, want, err := DecodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	got := HashWithSalt(password, *p, salt)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
