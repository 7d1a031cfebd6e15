package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Claims is the identity carried inside an access token.
type Claims struct {
	Subject   string
	UserID    string
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims reads the token's claims without verifying the signature.
// Opaque (non-JWT) tokens report ok=false.
func ParseClaims(token string) (Claims, bool) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, false
	}
	c := Claims{Subject: tc.Subject, UserID: tc.UserID}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time
	}
	return c, true
}

// TokenExpiry returns the token's exp claim, if it has one.
func TokenExpiry(token string) (time.Time, bool) {
	c, ok := ParseClaims(token)
	if !ok || c.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return c.ExpiresAt, true
}

// tokenExpired reports whether token is past (or within seconds of) its
// expiry. Tokens without a known expiry never count as expired.
func tokenExpired(token string) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return !(&oauth2.Token{AccessToken: token, Expiry: exp}).Valid()
}
