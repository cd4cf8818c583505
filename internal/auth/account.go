package auth

import (
	"context"
	"errors"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"backend/internal/models"
	"backend/internal/password"
	"backend/internal/store"
)

// Register creates an email/password account and fires off a verification
// email. Notification failure is logged and never fails registration.
func (s *Service) Register(ctx context.Context, email, pw, fullName string) (*models.User, error) {
	report := s.policy.Validate(pw, &password.UserInfo{Email: email, FullName: fullName})
	if !report.Valid {
		return nil, errOf(KindValidationFailed, strings.Join(report.Errors, "; "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return nil, wrap(KindServiceUnavailable, "Password hash failed", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
		IsActive:     true,
		AuthProvider: models.AuthProviderEmail,
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, errOf(KindConflict, "Email already registered")
		}
		return nil, wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	s.sendVerification(ctx, user)
	log.Println("[AUTH] [INFO] user registered:", user.Email)
	return user, nil
}

// ForgotPassword creates a reset proof token and notifies the address. It
// reveals nothing: the caller returns the same generic message whether or
// not the account exists, and internal failures are logged, not surfaced.
func (s *Service) ForgotPassword(ctx context.Context, email string) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			log.Println("[AUTH] [ERROR] forgot-password lookup failed:", err)
		}
		return
	}
	if !user.IsActive {
		return
	}

	raw, err := s.resetTokens.Create(ctx, user.ID, user.Email)
	if err != nil {
		log.Println("[AUTH] [ERROR] creating reset token failed:", err)
		return
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, raw); err != nil {
		log.Println("[AUTH] [ERROR] sending reset email failed:", err)
	}
}

// ResetPassword consumes a reset token exactly once, updates the password
// hash, then forces re-authentication everywhere.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	userID, email, ok, err := s.resetTokens.Verify(ctx, rawToken)
	if err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	if !ok {
		return errOf(KindTokenAlreadyUsed, "Invalid, expired, or already used reset token")
	}

	report := s.policy.Validate(newPassword, &password.UserInfo{Email: email})
	if !report.Valid {
		return errOf(KindValidationFailed, strings.Join(report.Errors, "; "))
	}

	used, err := s.resetTokens.MarkUsed(ctx, rawToken)
	if err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	if !used {
		// Lost the race to a concurrent consumer.
		return errOf(KindTokenAlreadyUsed, "Invalid, expired, or already used reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return wrap(KindServiceUnavailable, "Password hash failed", err)
	}
	if _, err := s.users.Update(ctx, userID, bson.M{"passwordHash": string(hash)}); err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		log.Println("[AUTH] [ERROR] post-reset revocation failed:", err)
	}

	log.Println("[AUTH] [INFO] password reset for:", email)
	return nil
}

// VerifyEmail consumes a verification token exactly once and marks the
// account's email as verified.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) error {
	userID, email, ok, err := s.verifyTokens.Verify(ctx, rawToken)
	if err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	if !ok {
		return errOf(KindTokenAlreadyUsed, "Invalid, expired, or already used verification token")
	}

	used, err := s.verifyTokens.MarkUsed(ctx, rawToken)
	if err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	if !used {
		return errOf(KindTokenAlreadyUsed, "Invalid, expired, or already used verification token")
	}

	if _, err := s.users.Update(ctx, userID, bson.M{"emailVerified": true}); err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	log.Println("[AUTH] [INFO] email verified:", email)
	return nil
}

// ResendVerification issues a fresh verification token. A missing, inactive,
// or already verified account is a silent no-op; the caller always returns
// the generic success message.
func (s *Service) ResendVerification(ctx context.Context, email string) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			log.Println("[AUTH] [ERROR] resend-verification lookup failed:", err)
		}
		return
	}
	if !user.IsActive || user.EmailVerified {
		return
	}

	s.sendVerification(ctx, user)
}

// UpdateProfile applies a partial {fullName, email} update.
func (s *Service) UpdateProfile(ctx context.Context, userID primitive.ObjectID, fullName, email *string) (*models.User, error) {
	fields := bson.M{}
	if fullName != nil {
		fields["fullName"] = strings.TrimSpace(*fullName)
	}
	if email != nil {
		fields["email"] = *email
		// A changed address needs verifying again.
		fields["emailVerified"] = false
	}
	if len(fields) == 0 {
		return nil, errOf(KindValidationFailed, "No fields to update")
	}

	user, err := s.users.Update(ctx, userID, fields)
	if err != nil {
		if isDuplicate(err) {
			return nil, errOf(KindConflict, "Email already registered")
		}
		if isNotFound(err) {
			return nil, errOf(KindNotFound, "User not found")
		}
		return nil, wrap(KindServiceUnavailable, "Database service unavailable", err)
	}
	return user, nil
}

// ChangePassword verifies the current password, validates the replacement,
// and updates the hash.
func (s *Service) ChangePassword(ctx context.Context, userID primitive.ObjectID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return errOf(KindNotFound, "User not found")
		}
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return errOf(KindValidationFailed, "Current password is incorrect")
	}

	report := s.policy.Validate(next, &password.UserInfo{Email: user.Email, FullName: user.FullName})
	if !report.Valid {
		return errOf(KindValidationFailed, strings.Join(report.Errors, "; "))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return wrap(KindServiceUnavailable, "Password hash failed", err)
	}
	if _, err := s.users.Update(ctx, userID, bson.M{"passwordHash": string(hash)}); err != nil {
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	// A pending reset token must not outlive a successful password change.
	if _, err := s.resetTokens.InvalidateForSubject(ctx, userID); err != nil {
		log.Println("[AUTH] [ERROR] invalidating reset tokens failed:", err)
	}
	return nil
}

// DeleteAccount soft-deletes the user and revokes every credential, the same
// coverage as logout-all plus any outstanding proof tokens.
func (s *Service) DeleteAccount(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.SoftDelete(ctx, userID); err != nil {
		if isNotFound(err) {
			return errOf(KindNotFound, "User not found")
		}
		return wrap(KindServiceUnavailable, "Database service unavailable", err)
	}

	if err := s.LogoutAll(ctx, userID); err != nil {
		log.Println("[AUTH] [ERROR] post-delete revocation failed:", err)
	}
	if _, err := s.resetTokens.InvalidateForSubject(ctx, userID); err != nil {
		log.Println("[AUTH] [ERROR] invalidating reset tokens failed:", err)
	}
	if _, err := s.verifyTokens.InvalidateForSubject(ctx, userID); err != nil {
		log.Println("[AUTH] [ERROR] invalidating verification tokens failed:", err)
	}
	return nil
}

// CheckPassword runs the pure strength policy with optional user context.
func (s *Service) CheckPassword(pw, email, fullName string) password.Report {
	var info *password.UserInfo
	if email != "" || fullName != "" {
		info = &password.UserInfo{Email: email, FullName: fullName}
	}
	return s.policy.Validate(pw, info)
}

func (s *Service) sendVerification(ctx context.Context, user *models.User) {
	raw, err := s.verifyTokens.Create(ctx, user.ID, user.Email)
	if err != nil {
		log.Println("[AUTH] [ERROR] creating verification token failed:", err)
		return
	}
	if err := s.notifier.SendEmailVerification(ctx, user.Email, raw); err != nil {
		log.Println("[AUTH] [ERROR] sending verification email failed:", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrUserNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicateEmail)
}
