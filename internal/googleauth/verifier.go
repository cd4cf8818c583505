// Package googleauth validates Google-issued ID tokens and normalizes their
// claims for the session layer.
package googleauth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var ErrNotConfigured = errors.New("google sign-in is not configured")

// Identity is the normalized claim set of a verified Google ID token.
type Identity struct {
	GoogleID      string
	Email         string
	EmailVerified bool
	FullName      string
}

// Verifier checks signature, audience and issuer of Google credentials.
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

func (v *Verifier) Configured() bool {
	return v.clientID != ""
}

// Verify validates the credential against Google's JWKS with the configured
// client id as audience and returns the normalized identity.
func (v *Verifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if v.clientID == "" {
		return nil, ErrNotConfigured
	}

	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("validating google credential: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if payload.Subject == "" || email == "" {
		return nil, errors.New("google credential missing required claims")
	}

	verified, _ := payload.Claims["email_verified"].(bool)
	name, _ := payload.Claims["name"].(string)

	return &Identity{
		GoogleID:      payload.Subject,
		Email:         email,
		EmailVerified: verified,
		FullName:      name,
	}, nil
}
