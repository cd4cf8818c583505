package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"backend/internal/auth"
)

type UpdateProfileRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type EmailVerificationRequest struct {
	Token string `json:"token" binding:"required"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type PasswordStrengthRequest struct {
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

func UpdateProfile(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req UpdateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := svc.UpdateProfile(ctx, userID, req.FullName, req.Email)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, profileOf(user))
	}
}

func ChangePassword(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
	}
}

func DeleteAccount(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.DeleteAccount(ctx, userID); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
	}
}

// ForgotPassword always answers with the same generic message so account
// existence cannot be probed.
func ForgotPassword(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		svc.ForgotPassword(ctx, req.Email)
		c.JSON(http.StatusOK, gin.H{"message": auth.GenericRecoveryMessage})
	}
}

func ResetPassword(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
	}
}

func VerifyEmail(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailVerificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.VerifyEmail(ctx, req.Token); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
	}
}

// ResendVerification mirrors ForgotPassword: one generic answer, always.
func ResendVerification(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResendVerificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		svc.ResendVerification(ctx, req.Email)
		c.JSON(http.StatusOK, gin.H{"message": auth.GenericRecoveryMessage})
	}
}

func PasswordStrength(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PasswordStrengthRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		report := svc.CheckPassword(req.Password, req.Email, req.FullName)
		c.JSON(http.StatusOK, report)
	}
}
