package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TestSigningKey signs tokens produced by NewTestToken.
var TestSigningKey = []byte("tagboard-test-signing-key")

// NewTestToken returns an HS256 token for subject expiring at exp.
// This is primarily for testing purposes.
func NewTestToken(subject string, exp time.Time) string {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(TestSigningKey)
	if err != nil {
		panic(err)
	}
	return signed
}

// TestVerifier accepts tokens from NewTestToken.
// This is primarily for testing purposes.
func TestVerifier() Verifier {
	return KeyVerifier{Key: TestSigningKey, Method: "HS256"}
}
