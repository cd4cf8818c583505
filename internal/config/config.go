package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI             string
	DBName               string
	JWTSecret            string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	ResetTokenTTL        time.Duration
	VerificationTokenTTL time.Duration
	GoogleClientID       string
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailFrom            string
	FrontendURL          string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:             getEnvOrDefault("MONGO_URI", ""),
		DBName:               getEnvOrDefault("DB_NAME", "leetspace"),
		JWTSecret:            getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:       getDurationEnv("ACCESS_TOKEN_TTL", 30, time.Minute),
		RefreshTokenTTL:      getDurationEnv("REFRESH_TOKEN_TTL", 7, 24*time.Hour),
		ResetTokenTTL:        getDurationEnv("RESET_TOKEN_TTL", 30, time.Minute),
		VerificationTokenTTL: getDurationEnv("VERIFICATION_TOKEN_TTL", 24, time.Hour),
		GoogleClientID:       getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		SMTPHost:             getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:             getIntEnv("SMTP_PORT", 587),
		SMTPUsername:         getEnvOrDefault("SMTP_USERNAME", ""),
		SMTPPassword:         getEnvOrDefault("SMTP_PASSWORD", ""),
		EmailFrom:            getEnvOrDefault("EMAIL_FROM", "no-reply@localhost"),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
