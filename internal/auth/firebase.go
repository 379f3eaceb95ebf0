package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ExternalClaims is the normalized identity asserted by a verified external
// credential. It contains facts only; resolving them to a user record is the
// resolver's job.
type ExternalClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// TokenVerifier verifies an externally issued identity credential.
// Implementations call out to the identity provider; tests substitute fakes.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*ExternalClaims, error)
}

// FirebaseVerifier verifies Firebase ID tokens through OIDC discovery against
// Google's secure token issuer for the configured project.
type FirebaseVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewFirebaseVerifier performs OIDC discovery for the project's token issuer.
// Called once at startup; the verifier caches the issuer's signing keys.
func NewFirebaseVerifier(ctx context.Context, projectID string) (*FirebaseVerifier, error) {
	issuer := "https://securetoken.google.com/" + projectID
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering token issuer: %w", err)
	}

	return &FirebaseVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: projectID}),
	}, nil
}

// Verify checks the token's signature, issuer, audience, and expiry, and
// extracts the identity claims.
func (v *FirebaseVerifier) Verify(ctx context.Context, rawToken string) (*ExternalClaims, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding id token claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token has no email claim")
	}

	return &ExternalClaims{
		Subject:       token.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}
