// Package jwt signs and verifies the access and refresh tokens.
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/matt-dz/streamhub/internal/user"
)

const DefaultKID = "1"

var (
	ErrExpired          = errors.New("token expired")
	ErrMalformed        = errors.New("token malformed")
	ErrInvalidSignature = errors.New("token signature invalid")
)

// AccessClaims authorize a single request.
type AccessClaims struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims only identify the user; the jti makes every issued token
// unique.
type RefreshClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// UserID parses the id claim.
func (c *AccessClaims) UserID() (uuid.UUID, error) {
	return parseID(c.ID)
}

// UserID parses the id claim.
func (c *RefreshClaims) UserID() (uuid.UUID, error) {
	return parseID(c.ID)
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id claim", ErrMalformed)
	}
	return parsed, nil
}

// Sign signs claims with HS256 and stamps the key version into the kid header.
func Sign(claims jwt.Claims, secret []byte, kid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses rawToken into claims and checks the signature, algorithm,
// kid and expiry. Failures are reported as ErrExpired, ErrInvalidSignature
// or ErrMalformed, each wrapping the parser's error.
func Verify(rawToken string, secret []byte, kid string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	keyFunc := func(token *jwt.Token) (any, error) {
		kidVal, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("missing/invalid kid value")
		}
		if kidVal != kid {
			return nil, fmt.Errorf("verifying KID value, value=%q", kidVal)
		}
		return secret, nil
	}

	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	_, err := jwt.ParseWithClaims(rawToken, claims, keyFunc, opts...)
	return classify(err)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %w", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}

type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	KeyVersion    string
}

// Service issues and verifies tokens. Access and refresh tokens use
// separate secrets so neither can stand in for the other.
type Service struct {
	config Config
	// Now is the clock used for iat/exp and for verification.
	Now func() time.Time
}

func NewService(config Config) (*Service, error) {
	if len(config.AccessSecret) == 0 || len(config.RefreshSecret) == 0 {
		return nil, errors.New("access and refresh secrets are required")
	}
	if string(config.AccessSecret) == string(config.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if config.AccessExpiry <= 0 || config.RefreshExpiry <= 0 {
		return nil, errors.New("token expiries must be positive")
	}
	if config.KeyVersion == "" {
		config.KeyVersion = DefaultKID
	}
	return &Service{config: config, Now: time.Now}, nil
}

func (s *Service) AccessExpiry() time.Duration {
	return s.config.AccessExpiry
}

func (s *Service) RefreshExpiry() time.Duration {
	return s.config.RefreshExpiry
}

func (s *Service) registered(u *user.User, ttl time.Duration) jwt.RegisteredClaims {
	now := s.Now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   u.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Service) IssueAccessToken(u *user.User) (string, error) {
	claims := AccessClaims{
		ID:               u.ID.String(),
		Email:            u.Email,
		Username:         u.Username,
		FullName:         u.FullName,
		RegisteredClaims: s.registered(u, s.config.AccessExpiry),
	}
	token, err := Sign(claims, s.config.AccessSecret, s.config.KeyVersion)
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}
	return token, nil
}

func (s *Service) IssueRefreshToken(u *user.User) (string, error) {
	claims := RefreshClaims{
		ID:               u.ID.String(),
		RegisteredClaims: s.registered(u, s.config.RefreshExpiry),
	}
	token, err := Sign(claims, s.config.RefreshSecret, s.config.KeyVersion)
	if err != nil {
		return "", fmt.Errorf("issuing refresh token: %w", err)
	}
	return token, nil
}

func (s *Service) VerifyAccess(rawToken string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := Verify(rawToken, s.config.AccessSecret, s.config.KeyVersion, claims, jwt.WithTimeFunc(s.Now)); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Service) VerifyRefresh(rawToken string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := Verify(rawToken, s.config.RefreshSecret, s.config.KeyVersion, claims, jwt.WithTimeFunc(s.Now)); err != nil {
		return nil, err
	}
	return claims, nil
}
