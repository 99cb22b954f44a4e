package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/waldo1001/waldo.BCTelemetryBuddy-sub001/internal/domain"
)

// accountFromToken extracts display metadata from an access token without
// verifying its signature. The token was just issued by the identity
// provider; the claims are used for labeling only, never authorization.
func accountFromToken(raw string) domain.Account {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return domain.Account{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Account{}
	}

	account := domain.Account{
		ID:    firstStringClaim(claims, "oid", "sub"),
		Label: firstStringClaim(claims, "upn", "preferred_username", "name", "appid"),
	}
	if account.Label == "" {
		account.Label = account.ID
	}
	return account
}

func firstStringClaim(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
