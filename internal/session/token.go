package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the JWT claims issued by the backend.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier checks a stored token before it is trusted on probe.
type Verifier interface {
	Verify(token string) error
}

// tokenExpiry reads exp without verifying the signature. Opaque tokens
// report ok=false.
func tokenExpiry(token string) (time.Time, bool) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// JWKSVerifier verifies token signatures against a JWKS endpoint.
type JWKSVerifier struct {
	jwks keyfunc.Keyfunc
}

// NewJWKSVerifier fetches the key set at url.
func NewJWKSVerifier(ctx context.Context, url string) (*JWKSVerifier, error) {
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS keyfunc: %w", err)
	}
	return &JWKSVerifier{jwks: jwks}, nil
}

// Verify validates the signature and expiry of token.
func (v *JWKSVerifier) Verify(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{"RS256", "ES256", "HS256"}),
	)
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// KeyVerifier verifies tokens signed with a static key.
type KeyVerifier struct {
	Key    any
	Method string
}

// Verify validates the signature and expiry of token.
func (v KeyVerifier) Verify(token string) error {
	_, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.Key, nil
	}, jwt.WithValidMethods([]string{v.Method}))
	if err != nil {
		return fmt.Errorf("failed to parse token: %w", err)
	}
	return nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
