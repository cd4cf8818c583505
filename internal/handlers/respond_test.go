package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/auth"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"authentication failed", &auth.Error{Kind: auth.KindAuthenticationFailed, Message: "Incorrect email or password"}, http.StatusUnauthorized},
		{"expired token", &auth.Error{Kind: auth.KindTokenExpired, Message: "Token has expired"}, http.StatusUnauthorized},
		{"revoked token", &auth.Error{Kind: auth.KindTokenRevoked, Message: "Token has been revoked"}, http.StatusUnauthorized},
		{"bad signature", &auth.Error{Kind: auth.KindTokenInvalidSignature, Message: "Could not validate credentials"}, http.StatusUnauthorized},
		{"malformed token", &auth.Error{Kind: auth.KindTokenMalformed, Message: "Could not validate credentials"}, http.StatusBadRequest},
		{"already used", &auth.Error{Kind: auth.KindTokenAlreadyUsed, Message: "Invalid, expired, or already used reset token"}, http.StatusBadRequest},
		{"conflict", &auth.Error{Kind: auth.KindConflict, Message: "Email already registered"}, http.StatusBadRequest},
		{"validation", &auth.Error{Kind: auth.KindValidationFailed, Message: "No fields to update"}, http.StatusBadRequest},
		{"not found", &auth.Error{Kind: auth.KindNotFound, Message: "User not found"}, http.StatusNotFound},
		{"not configured", &auth.Error{Kind: auth.KindNotConfigured, Message: "Google sign-in is not configured"}, http.StatusNotImplemented},
		{"store down", &auth.Error{Kind: auth.KindServiceUnavailable, Message: "Database service unavailable"}, http.StatusServiceUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestRespondErrorUsesPublicMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	respondError(c, &auth.Error{Kind: auth.KindConflict, Message: "Email already registered"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Email already registered", body["error"])
}

func TestRespondValidationErrorFieldMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"not-an-email"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req RegisterRequest
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	respondValidationError(c, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error   string   `json:"error"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Details, "email must be a valid email address")
	assert.Contains(t, body.Details, "password is required")
}

func TestLowerCamel(t *testing.T) {
	assert.Equal(t, "email", lowerCamel("Email"))
	assert.Equal(t, "fullName", lowerCamel("FullName"))
	assert.Equal(t, "", lowerCamel(""))
}
