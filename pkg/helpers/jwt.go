package helpers

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the Keycloak access token claims the provisioner reports on.
type TokenClaims struct {
	PreferredUsername string `json:"preferred_username"`
	AuthorizedParty   string `json:"azp"`
	jwt.RegisteredClaims
}

// InspectToken decodes an access token without verifying its signature.
// Keycloak is the only party that validates it; the claims are informational.
func InspectToken(tokenStr string) (*TokenClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty token")
	}
	claims := &TokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
