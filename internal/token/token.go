// Package token issues and validates signed access tokens. Tokens are
// short-lived HS256 JWTs with a fixed, explicitly-typed claim set; every
// issuance carries a fresh jti so it can be revoked individually.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const TypeAccess = "access"

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
	ErrRevoked          = errors.New("token has been revoked")
)

// Claims is the fixed claim set of an access token.
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// RevocationChecker answers whether a jti has been blacklisted. Implemented
// by the blacklist store; faked in tests.
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// Manager issues and verifies access tokens with a symmetric secret.
type Manager struct {
	secret     []byte
	ttl        time.Duration
	revocation RevocationChecker
	now        func() time.Time
}

func NewManager(secret string, ttl time.Duration, revocation RevocationChecker) *Manager {
	return &Manager{
		secret:     []byte(secret),
		ttl:        ttl,
		revocation: revocation,
		now:        time.Now,
	}
}

// TTL reports the configured access token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new access token for the given subject (user id hex).
func (m *Manager) Issue(subject string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Type: TypeAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Verify parses, checks signature and expiry, then consults the revocation
// store for the jti. Tokens issued before the jti claim existed carry none
// and skip the revocation check; they stay irrevocable until natural expiry.
func (m *Manager) Verify(ctx context.Context, tokenString string) (string, error) {
	claims, err := m.parse(tokenString, true)
	if err != nil {
		return "", err
	}

	if claims.ID != "" && m.revocation != nil {
		revoked, err := m.revocation.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return "", fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return "", ErrRevoked
		}
	}

	return claims.Subject, nil
}

// Decode validates structure and signature but not expiry or revocation.
// Logout uses it so an already-expired token can still be presented.
func (m *Manager) Decode(tokenString string) (*Claims, error) {
	return m.parse(tokenString, false)
}

func (m *Manager) parse(tokenString string, validateClaims bool) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	}
	if !validateClaims {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, ErrMalformed
	}

	if !parsed.Valid {
		return nil, ErrInvalidSignature
	}
	if claims.Subject == "" {
		return nil, ErrMalformed
	}
	return claims, nil
}
