// Package password contains utilities for managing passwords.
package password

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"

	passwordvalidator "github.com/wagslane/go-password-validator"
)

const (
	DefaultMinimumLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaximumLength = 72
)

var (
	uppercaseRe = regexp.MustCompile(`[A-Z]`)
	lowercaseRe = regexp.MustCompile(`[a-z]`)
	digitRe     = regexp.MustCompile(`[0-9]`)
	specialRe   = regexp.MustCompile(`[!@#$%^&*()\-_=+{};:,.<>/?\\|"']`)
)

var (
	ErrTooShort    = errors.New("password is too short")
	ErrTooLong     = fmt.Errorf("password must be at most %d bytes long", MaximumLength)
	ErrNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrNoDigit     = errors.New("password must contain at least one digit")
	ErrNoSpecial   = errors.New("password must contain at least one special character")
	ErrTooWeak     = errors.New("password is too weak")
)

// Policy describes which passwords are accepted when one is set.
type Policy struct {
	MinLength int
	// RequireMixed demands an uppercase letter, a lowercase letter, a digit
	// and a special character.
	RequireMixed bool
	// MinEntropyBits enables the entropy check when positive.
	MinEntropyBits float64
}

// DefaultPolicy only enforces a minimum length.
var DefaultPolicy = Policy{MinLength: DefaultMinimumLength}

// Validate returns nil when password satisfies the policy.
func (p Policy) Validate(password string) error {
	if utf8.RuneCountInString(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrTooShort, p.MinLength)
	}
	if len(password) > MaximumLength {
		return ErrTooLong
	}

	if p.RequireMixed {
		if !uppercaseRe.MatchString(password) {
			return ErrNoUppercase
		}
		if !lowercaseRe.MatchString(password) {
			return ErrNoLowercase
		}
		if !digitRe.MatchString(password) {
			return ErrNoDigit
		}
		if !specialRe.MatchString(password) {
			return ErrNoSpecial
		}
	}

	if p.MinEntropyBits > 0 {
		if err := passwordvalidator.Validate(password, p.MinEntropyBits); err != nil {
			return errors.Join(ErrTooWeak, err)
		}
	}

	return nil
}

// IsPolicyViolation reports whether err came from Policy.Validate.
func IsPolicyViolation(err error) bool {
	for _, target := range []error{
		ErrTooShort, ErrTooLong, ErrNoUppercase, ErrNoLowercase, ErrNoDigit, ErrNoSpecial, ErrTooWeak,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
