package util

import (
	"fmt"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

// InstanceURLFromJWT extracts the issuing instance URL from a JWT access token
// without verifying the signature. The caller only uses this as a hint for
// which API host issued the token.
func InstanceURLFromJWT(jwtString string) (string, error) {
	p := jwt.NewParser(jwt.WithoutClaimsValidation())
	var claims jwt.RegisteredClaims
	tokens, _, err := p.ParseUnverified(jwtString, &claims)
	if err != nil {
		return "", fmt.Errorf("failed to parse jwt: %w", err)
	}
	return tokens.Claims.GetIssuer()
}

// OrgIDFromIdentityURL extracts the org id from an identity URL of the form
// https://login.example.com/id/{orgId}/{userId}.
func OrgIDFromIdentityURL(identityURL string) string {
	parts := strings.Split(strings.TrimSuffix(identityURL, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}
