package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shoenig/go-conceal"
)

// Claims is the display identity carried by an access token.
type Claims struct {
	Subject string
	UserID  string
}

// ParseClaims reads the access token's claims without verifying its
// signature. Verification belongs to the services that accept the token.
func ParseClaims(access *conceal.Text) (Claims, error) {
	if access == nil {
		return Claims{}, fmt.Errorf("parse claims: token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access.Unveil(), claims); err != nil {
		return Claims{}, fmt.Errorf("parse claims: %w", err)
	}

	subject, _ := claims.GetSubject()
	out := Claims{Subject: subject, UserID: subject}
	switch id := claims["userId"].(type) {
	case string:
		out.UserID = id
	case float64:
		out.UserID = fmt.Sprintf("%.0f", id)
	}
	return out, nil
}

// Subject returns the token subject, or "" when the token is not a JWT.
func Subject(access *conceal.Text) string {
	claims, err := ParseClaims(access)
	if err != nil {
		return ""
	}
	return claims.Subject
}
