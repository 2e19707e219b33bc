package portalsdk

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeOIDCClaims decodes the claims of a JWT-shaped token without
// verifying its signature. Tokens of type "oidc" are JWTs minted by the
// platform's identity provider; this is a display aid only and must never
// be used to make trust decisions.
func DecodeOIDCClaims(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("not a decodable JWT: %w", err)
	}
	return claims, nil
}
