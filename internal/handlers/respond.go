package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"backend/internal/auth"
)

// statusForError translates an error kind into an HTTP status. This is the
// only place core failures meet transport codes.
func statusForError(err error) int {
	switch auth.KindOf(err) {
	case auth.KindAuthenticationFailed,
		auth.KindTokenExpired,
		auth.KindTokenRevoked,
		auth.KindTokenInvalidSignature:
		return http.StatusUnauthorized
	case auth.KindTokenMalformed,
		auth.KindTokenAlreadyUsed,
		auth.KindConflict,
		auth.KindValidationFailed:
		return http.StatusBadRequest
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindNotConfigured:
		return http.StatusNotImplemented
	case auth.KindServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": auth.PublicMessage(err)})
}

func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			case "email":
				details = append(details, fmt.Sprintf("%s must be a valid email address", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
