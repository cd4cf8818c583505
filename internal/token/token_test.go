package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevocation struct {
	revoked map[string]bool
	err     error
}

func (f *fakeRevocation) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.revoked[jti], nil
}

func newTestManager(t *testing.T, ttl time.Duration, revocation RevocationChecker) *Manager {
	t.Helper()
	return NewManager("test-secret", ttl, revocation)
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, 30*time.Minute, &fakeRevocation{revoked: map[string]bool{}})

	signed, err := m.Issue("user-123")
	require.NoError(t, err)

	subject, err := m.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", subject)
}

func TestVerifyJTIUniquePerIssuance(t *testing.T) {
	m := newTestManager(t, 30*time.Minute, nil)

	first, err := m.Issue("user-123")
	require.NoError(t, err)
	second, err := m.Issue("user-123")
	require.NoError(t, err)

	c1, err := m.Decode(first)
	require.NoError(t, err)
	c2, err := m.Decode(second)
	require.NoError(t, err)

	assert.NotEmpty(t, c1.ID)
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, TypeAccess, c1.Type)
}

func TestVerifyExpired(t *testing.T) {
	m := newTestManager(t, 30*time.Minute, nil)

	signed, err := m.Issue("user-123")
	require.NoError(t, err)

	// Advance the clock past the TTL; signature stays valid.
	m.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	_, err = m.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newTestManager(t, 30*time.Minute, nil)
	verifier := NewManager("other-secret", 30*time.Minute, nil)

	signed, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyMalformed(t *testing.T) {
	m := newTestManager(t, 30*time.Minute, nil)

	for _, bad := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := m.Verify(context.Background(), bad)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", bad)
	}
}

func TestVerifyRevoked(t *testing.T) {
	revocation := &fakeRevocation{revoked: map[string]bool{}}
	m := newTestManager(t, 30*time.Minute, revocation)

	signed, err := m.Issue("user-123")
	require.NoError(t, err)

	claims, err := m.Decode(signed)
	require.NoError(t, err)
	revocation.revoked[claims.ID] = true

	_, err = m.Verify(context.Background(), signed)
	assert.ErrorIs(t, err, ErrRevoked)
}

func TestVerifyRevocationStoreError(t *testing.T) {
	revocation := &fakeRevocation{err: errors.New("store down")}
	m := newTestManager(t, 30*time.Minute, revocation)

	signed, err := m.Issue("user-123")
	require.NoError(t, err)

	_, err = m.Verify(context.Background(), signed)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRevoked)
}

// Legacy tokens carry no jti and skip the revocation check entirely.
func TestVerifyWithoutJTISkipsRevocation(t *testing.T) {
	revocation := &fakeRevocation{err: errors.New("should not be consulted")}
	m := newTestManager(t, 30*time.Minute, revocation)

	legacy := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-123",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(30 * time.Minute)),
	})
	signed, err := legacy.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	subject, err := m.Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", subject)
}

func TestDecodeAcceptsExpired(t *testing.T) {
	m := newTestManager(t, 30*time.Minute, nil)

	signed, err := m.Issue("user-123")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }

	claims, err := m.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestDecodeRejectsBadSignature(t *testing.T) {
	issuer := NewManager("other-secret", 30*time.Minute, nil)
	m := newTestManager(t, 30*time.Minute, nil)

	signed, err := issuer.Issue("user-123")
	require.NoError(t, err)

	_, err = m.Decode(signed)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
