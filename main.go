package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/googleauth"
	"backend/internal/handlers"
	"backend/internal/mailer"
	"backend/internal/middleware"
	"backend/internal/password"
	"backend/internal/store"
	"backend/internal/token"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("⚠️ user index warning: %v", err)
	}
	if err := database.EnsureBlacklistIndexes(db); err != nil {
		log.Printf("⚠️ blacklist index warning: %v", err)
	}
	if err := database.EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("⚠️ refresh token index warning: %v", err)
	}
	if err := database.EnsureProofTokenIndexes(db, "password_reset_tokens"); err != nil {
		log.Printf("⚠️ password reset index warning: %v", err)
	}
	if err := database.EnsureProofTokenIndexes(db, "email_verifications"); err != nil {
		log.Printf("⚠️ email verification index warning: %v", err)
	}

	blacklist := store.NewBlacklist(db)
	accessTokens := token.NewManager(config.AppEnv.JWTSecret, config.AppEnv.AccessTokenTTL, blacklist)

	refreshTokens := store.NewRefreshTokens(db, config.AppEnv.RefreshTokenTTL)
	resetTokens := store.NewPasswordResetTokens(db, config.AppEnv.ResetTokenTTL)
	verifyTokens := store.NewEmailVerificationTokens(db, config.AppEnv.VerificationTokenTTL)

	go cleanupLoop(blacklist, refreshTokens, resetTokens, verifyTokens)

	svc := auth.NewService(
		store.NewUsers(db),
		refreshTokens,
		resetTokens,
		verifyTokens,
		blacklist,
		accessTokens,
		mailer.New(mailer.Config{
			Host:        config.AppEnv.SMTPHost,
			Port:        config.AppEnv.SMTPPort,
			Username:    config.AppEnv.SMTPUsername,
			Password:    config.AppEnv.SMTPPassword,
			From:        config.AppEnv.EmailFrom,
			FrontendURL: config.AppEnv.FrontendURL,
		}),
		googleauth.NewVerifier(config.AppEnv.GoogleClientID),
		password.Default(),
	)

	r := gin.Default()

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", handlers.Register(svc))
		authGroup.POST("/login", handlers.Login(svc))
		authGroup.POST("/login/json", handlers.LoginJSON(svc))
		authGroup.POST("/google", handlers.GoogleLogin(svc))
		authGroup.POST("/refresh", handlers.Refresh(svc))
		authGroup.POST("/forgot-password", handlers.ForgotPassword(svc))
		authGroup.POST("/reset-password", handlers.ResetPassword(svc))
		authGroup.POST("/verify-email", handlers.VerifyEmail(svc))
		authGroup.POST("/resend-verification", handlers.ResendVerification(svc))
		authGroup.POST("/password-strength", handlers.PasswordStrength(svc))

		authed := authGroup.Group("")
		authed.Use(middleware.UserAuth(svc))
		{
			authed.GET("/me", handlers.GetMe())
			authed.GET("/verify", handlers.VerifyToken())
			authed.GET("/sessions", handlers.Sessions(svc))
			authed.POST("/logout", handlers.Logout(svc))
			authed.POST("/logout-all", handlers.LogoutAll(svc))
			authed.PUT("/profile", handlers.UpdateProfile(svc))
			authed.POST("/change-password", handlers.ChangePassword(svc))
			authed.DELETE("/account", handlers.DeleteAccount(svc))
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

// cleanupLoop sweeps expired records hourly. The TTL indexes do the real
// work; this catches deployments where they were never created.
func cleanupLoop(blacklist *store.Blacklist, refresh *store.RefreshTokens, reset, verify *store.ProofTokens) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := blacklist.CleanupExpired(ctx); err != nil {
			log.Println("[AUTH] [ERROR] blacklist cleanup failed:", err)
		}
		if _, err := refresh.CleanupExpired(ctx); err != nil {
			log.Println("[AUTH] [ERROR] refresh token cleanup failed:", err)
		}
		if _, err := reset.CleanupExpired(ctx); err != nil {
			log.Println("[AUTH] [ERROR] reset token cleanup failed:", err)
		}
		if _, err := verify.CleanupExpired(ctx); err != nil {
			log.Println("[AUTH] [ERROR] verification token cleanup failed:", err)
		}
		cancel()
	}
}
