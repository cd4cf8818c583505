// Package auth composes the token stores, the user repository, and the
// external collaborators into the session workflows: login, refresh, logout,
// logout-everywhere, password reset, and email verification.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"backend/internal/googleauth"
	"backend/internal/models"
	"backend/internal/password"
	"backend/internal/token"
)

const GenericRecoveryMessage = "If an account with that email exists, we have sent instructions to it"

// UserRepository is the external user store. Email uniqueness is its
// responsibility.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

// RefreshTokenStore issues, verifies, and deactivates opaque refresh tokens.
type RefreshTokenStore interface {
	Create(ctx context.Context, userID primitive.ObjectID) (string, error)
	Verify(ctx context.Context, raw string) (primitive.ObjectID, bool, error)
	Revoke(ctx context.Context, raw string) (bool, error)
	RevokeAllForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountActiveForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// ProofTokenStore is a single-use proof token store (password reset or
// email verification instance).
type ProofTokenStore interface {
	Create(ctx context.Context, userID primitive.ObjectID, email string) (string, error)
	Verify(ctx context.Context, raw string) (primitive.ObjectID, string, bool, error)
	MarkUsed(ctx context.Context, raw string) (bool, error)
	InvalidateForSubject(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// RevocationStore records blacklisted access tokens.
type RevocationStore interface {
	Blacklist(ctx context.Context, jti string, expiresAt time.Time) error
	BlacklistAllForSubject(ctx context.Context, userID primitive.ObjectID) error
}

// AccessTokens issues and validates signed access tokens.
type AccessTokens interface {
	Issue(subject string) (string, error)
	Verify(ctx context.Context, tokenString string) (string, error)
	Decode(tokenString string) (*token.Claims, error)
	TTL() time.Duration
}

// Notifier delivers account emails. Failures are logged and swallowed; they
// never fail the primary workflow.
type Notifier interface {
	SendPasswordReset(ctx context.Context, to, rawToken string) error
	SendEmailVerification(ctx context.Context, to, rawToken string) error
}

// FederatedVerifier validates a third-party identity assertion.
type FederatedVerifier interface {
	Configured() bool
	Verify(ctx context.Context, credential string) (*googleauth.Identity, error)
}

// TokenPair is the issuance result handed to clients.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service is the session orchestrator.
type Service struct {
	users         UserRepository
	refreshTokens RefreshTokenStore
	resetTokens   ProofTokenStore
	verifyTokens  ProofTokenStore
	revocation    RevocationStore
	accessTokens  AccessTokens
	notifier      Notifier
	federated     FederatedVerifier
	policy        *password.Validator
}

func NewService(
	users UserRepository,
	refreshTokens RefreshTokenStore,
	resetTokens ProofTokenStore,
	verifyTokens ProofTokenStore,
	revocation RevocationStore,
	accessTokens AccessTokens,
	notifier Notifier,
	federated FederatedVerifier,
	policy *password.Validator,
) *Service {
	return &Service{
		users:         users,
		refreshTokens: refreshTokens,
		resetTokens:   resetTokens,
		verifyTokens:  verifyTokens,
		revocation:    revocation,
		accessTokens:  accessTokens,
		notifier:      notifier,
		federated:     federated,
		policy:        policy,
	}
}

// Login authenticates an email/password account and mints a token pair.
// Federated-only accounts and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, email, pw string) (*TokenPair, *models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, errOf(KindAuthenticationFailed, "Incorrect email or password")
	}
	if !user.IsActive {
		return nil, nil, errOf(KindAuthenticationFailed, "Incorrect email or password")
	}
	if user.AuthProvider != models.AuthProviderEmail || user.PasswordHash == "" {
		return nil, nil, errOf(KindAuthenticationFailed, "Incorrect email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(pw)) != nil {
		return nil, nil, errOf(KindAuthenticationFailed, "Incorrect email or password")
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Println("[AUTH] [INFO] login succeeded:", user.Email)
	return pair, user, nil
}

// GoogleLogin validates a federated assertion, upserts the local account,
// and mints a token pair. An email-auth account with no prior federated id
// is linked by email; an email linked to a different federated id is
// rejected.
func (s *Service) GoogleLogin(ctx context.Context, credential string) (*TokenPair, *models.User, error) {
	if s.federated == nil || !s.federated.Configured() {
		return nil, nil, errOf(KindNotConfigured, "Google sign-in is not configured")
	}

	identity, err := s.federated.Verify(ctx, credential)
	if err != nil {
		return nil, nil, wrap(KindAuthenticationFailed, "Invalid Google credential", err)
	}

	user, err := s.users.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if user.GoogleID != "" && user.GoogleID != identity.GoogleID {
			return nil, nil, errOf(KindConflict, "Email is already linked to a different Google account")
		}
		if user.GoogleID == "" {
			user, err = s.users.Update(ctx, user.ID, bson.M{
				"googleId":      identity.GoogleID,
				"emailVerified": user.EmailVerified || identity.EmailVerified,
			})
			if err != nil {
				return nil, nil, wrap(KindServiceUnavailable, "Could not link account", err)
			}
		}
	case isNotFound(err):
		user, err = s.users.Create(ctx, &models.User{
			Email:         identity.Email,
			FullName:      identity.FullName,
			IsActive:      true,
			EmailVerified: identity.EmailVerified,
			AuthProvider:  models.AuthProviderGoogle,
			GoogleID:      identity.GoogleID,
		})
		if err != nil {
			return nil, nil, wrap(KindServiceUnavailable, "Could not create account", err)
		}
	default:
		return nil, nil, wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	if !user.IsActive {
		return nil, nil, errOf(KindAuthenticationFailed, "Account is inactive")
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	log.Println("[AUTH] [INFO] google login succeeded:", user.Email)
	return pair, user, nil
}

// Refresh rotates a refresh token: verify, reject inactive subjects, claim
// the presented token with the conditional deactivate, then mint a new pair.
// The claim is the serialization point: of N concurrent presentations of one
// token, exactly one sees Revoke return true. A rotated-out token fails like
// any unknown token.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (*TokenPair, *models.User, error) {
	userID, ok, err := s.refreshTokens.Verify(ctx, rawRefresh)
	if err != nil {
		return nil, nil, wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	if !ok {
		return nil, nil, errOf(KindAuthenticationFailed, "Invalid or expired refresh token")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, errOf(KindAuthenticationFailed, "Invalid or expired refresh token")
	}
	if !user.IsActive {
		return nil, nil, errOf(KindAuthenticationFailed, "Account is inactive")
	}

	claimed, err := s.refreshTokens.Revoke(ctx, rawRefresh)
	if err != nil {
		return nil, nil, wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	if !claimed {
		return nil, nil, errOf(KindAuthenticationFailed, "Invalid or expired refresh token")
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// VerifyAccess validates a bearer token end to end: signature, expiry,
// revocation, then the subject itself. Used by the auth middleware.
func (s *Service) VerifyAccess(ctx context.Context, accessToken string) (*models.User, error) {
	subject, err := s.accessTokens.Verify(ctx, accessToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	userID, err := primitive.ObjectIDFromHex(subject)
	if err != nil {
		return nil, errOf(KindTokenMalformed, "Invalid token subject")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, errOf(KindAuthenticationFailed, "Could not validate credentials")
	}
	if !user.IsActive {
		return nil, errOf(KindAuthenticationFailed, "Inactive user")
	}
	return user, nil
}

// Logout blacklists the presented access token for the remainder of its own
// lifetime. The token must be structurally valid and carry a good signature,
// but may already be expired. Tokens without a jti get a stable fallback id
// derived from the raw token; verification never consults it for jti-less
// tokens, so those stay irrevocable until natural expiry.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.accessTokens.Decode(accessToken)
	if err != nil {
		return mapTokenError(err)
	}

	jti := claims.ID
	if jti == "" {
		sum := sha256.Sum256([]byte(accessToken))
		jti = hex.EncodeToString(sum[:])
	}

	expiresAt := time.Now().Add(s.accessTokens.TTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := s.revocation.Blacklist(ctx, jti, expiresAt); err != nil {
		return wrap(KindServiceUnavailable, "Could not revoke token", err)
	}
	return nil
}

// LogoutAll writes a coarse subject-wide revocation record and deactivates
// every refresh token. Previously issued access tokens with jtis are not
// individually revoked; the coarse record plus refresh revocation is the
// accepted coverage.
func (s *Service) LogoutAll(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.revocation.BlacklistAllForSubject(ctx, userID); err != nil {
		return wrap(KindServiceUnavailable, "Could not revoke tokens", err)
	}
	if _, err := s.refreshTokens.RevokeAllForSubject(ctx, userID); err != nil {
		return wrap(KindServiceUnavailable, "Could not revoke refresh tokens", err)
	}
	return nil
}

// ActiveSessionCount reports how many refresh tokens are currently live for
// the user. Each login mints one, each rotation replaces one.
func (s *Service) ActiveSessionCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.refreshTokens.CountActiveForSubject(ctx, userID)
	if err != nil {
		return 0, wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	return n, nil
}

func (s *Service) issuePair(ctx context.Context, userID primitive.ObjectID) (*TokenPair, error) {
	access, err := s.accessTokens.Issue(userID.Hex())
	if err != nil {
		return nil, wrap(KindServiceUnavailable, "Token generation failed", err)
	}

	refresh, err := s.refreshTokens.Create(ctx, userID)
	if err != nil {
		return nil, wrap(KindServiceUnavailable, "Token generation failed", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessTokens.TTL().Seconds()),
	}, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return wrap(KindTokenExpired, "Token has expired", err)
	case errors.Is(err, token.ErrRevoked):
		return wrap(KindTokenRevoked, "Token has been revoked", err)
	case errors.Is(err, token.ErrInvalidSignature):
		return wrap(KindTokenInvalidSignature, "Could not validate credentials", err)
	case errors.Is(err, token.ErrMalformed):
		return wrap(KindTokenMalformed, "Could not validate credentials", err)
	default:
		return wrap(KindServiceUnavailable, "Could not validate credentials", err)
	}
}
